package allocation

import (
	"context"

	"github.com/dalemusser/seatplan/internal/domain/allocation"
	"github.com/dalemusser/seatplan/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Snapshot is the matcher input for one company.
type Snapshot struct {
	Pool     []string // member IDs in pool order
	Prefs    allocation.PreferenceIndex
	Capacity allocation.CapacitySnapshot
	Projects []models.Project // active projects in listing order
}

// LoadCompanySnapshot reads the company's pool, preferences and active
// projects. Capacity is each project's full max_seats because a preview
// re-plans the whole company. Preferences of members outside the pool, and
// preferences naming inactive or foreign projects, are dropped.
func (s *Service) LoadCompanySnapshot(ctx context.Context, companyID primitive.ObjectID) (Snapshot, error) {
	members, err := s.memberships.ListPool(ctx, companyID)
	if err != nil {
		return Snapshot{}, err
	}
	projects, err := s.projects.ListActive(ctx, companyID)
	if err != nil {
		return Snapshot{}, err
	}
	prefs, err := s.prefs.ListByCompany(ctx, companyID)
	if err != nil {
		return Snapshot{}, err
	}

	pool := make([]string, 0, len(members))
	inPool := make(map[primitive.ObjectID]bool, len(members))
	for _, m := range members {
		pool = append(pool, m.UserID.Hex())
		inPool[m.UserID] = true
	}

	seats := make([]allocation.ProjectSeats, 0, len(projects))
	active := make(map[primitive.ObjectID]bool, len(projects))
	for _, p := range projects {
		seats = append(seats, allocation.ProjectSeats{ProjectID: p.ID.Hex(), Remaining: p.MaxSeats})
		active[p.ID] = true
	}

	choices := make([]allocation.RankedChoice, 0, len(prefs))
	for _, p := range prefs {
		if !inPool[p.UserID] || !active[p.ProjectID] {
			continue
		}
		choices = append(choices, allocation.RankedChoice{
			MemberID:  p.UserID.Hex(),
			ProjectID: p.ProjectID.Hex(),
			Rank:      p.Rank,
		})
	}

	if err := allocation.ValidatePool(pool); err != nil {
		return Snapshot{}, err
	}
	capacity, err := allocation.NewCapacitySnapshot(seats)
	if err != nil {
		return Snapshot{}, err
	}
	index, err := allocation.NewPreferenceIndex(choices)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{Pool: pool, Prefs: index, Capacity: capacity, Projects: projects}, nil
}
