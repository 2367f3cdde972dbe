package allocation

import (
	"context"

	"github.com/dalemusser/seatplan/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HistoryQuery selects a page of a company's allocation trail.
type HistoryQuery struct {
	CompanyID primitive.ObjectID
	CallerID  primitive.ObjectID

	// UserID narrows to events about one member.
	UserID    *primitive.ObjectID
	EventType string
	Limit     int64
	Offset    int64
}

// History is one page of audit events plus the unpaged total.
type History struct {
	Events []audit.Event
	Total  int64
}

// History returns the company's allocation events, newest first. The caller
// must be a company owner, admin or staff member.
func (s *Service) History(ctx context.Context, q HistoryQuery) (History, error) {
	c, err := s.company(ctx, q.CompanyID)
	if err != nil {
		return History{}, err
	}
	ok, err := s.gate.CanManageCompany(ctx, c, q.CallerID)
	if err := s.require(ctx, ok, err, q.CallerID, "view allocation history", companyScope(c)); err != nil {
		return History{}, err
	}

	f := audit.Filter{
		CompanyID: &c.ID,
		UserID:    q.UserID,
		Category:  audit.CategoryAllocation,
		EventType: q.EventType,
		Limit:     q.Limit,
		Offset:    q.Offset,
	}
	events, err := s.trail.Query(ctx, f)
	if err != nil {
		return History{}, err
	}
	total, err := s.trail.Count(ctx, f)
	if err != nil {
		return History{}, err
	}
	return History{Events: events, Total: total}, nil
}
