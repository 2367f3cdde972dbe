package allocation

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProjectCapacity is one row of the capacity report.
type ProjectCapacity struct {
	ID           string
	Name         string
	MaxSeats     int
	CurrentSeats int
	IsFull       bool
	IsActive     bool
}

// Capacity reports seats taken per project, in listing order, inactive
// projects included. The caller must belong to the company or its
// enterprise.
func (s *Service) Capacity(ctx context.Context, companyID, callerID primitive.ObjectID) ([]ProjectCapacity, error) {
	c, err := s.company(ctx, companyID)
	if err != nil {
		return nil, err
	}
	ok, err := s.inScope(ctx, c, callerID)
	if err := s.require(ctx, ok, err, callerID, "view capacity", companyScope(c)); err != nil {
		return nil, err
	}

	projects, err := s.projects.ListByCompany(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	counts, err := s.assignments.CountsByCompany(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	out := make([]ProjectCapacity, 0, len(projects))
	for _, p := range projects {
		n := counts[p.ID]
		out = append(out, ProjectCapacity{
			ID:           p.ID.Hex(),
			Name:         p.Name,
			MaxSeats:     p.MaxSeats,
			CurrentSeats: n,
			IsFull:       n >= p.MaxSeats,
			IsActive:     p.IsActive,
		})
	}
	return out, nil
}
