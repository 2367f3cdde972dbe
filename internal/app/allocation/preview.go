package allocation

import (
	"context"
	"time"

	"github.com/dalemusser/seatplan/internal/app/system/htmlsanitize"
	"github.com/dalemusser/seatplan/internal/domain/allocation"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ProjectPreview is one project's proposed member list.
type ProjectPreview struct {
	ProjectID   string
	ProjectName string
	MaxSeats    int
	UserIDs     []string
}

// Preview is a proposed company-wide assignment. Nothing is written.
type Preview struct {
	Projects []ProjectPreview
	Unplaced []string
}

// Result converts the preview back into matcher form, as CommitMany expects.
func (p Preview) Result() allocation.Result {
	res := allocation.Result{
		Projects: make([]allocation.ProjectMembers, 0, len(p.Projects)),
		Unplaced: p.Unplaced,
	}
	for _, pp := range p.Projects {
		res.Projects = append(res.Projects, allocation.ProjectMembers{ProjectID: pp.ProjectID, MemberIDs: pp.UserIDs})
	}
	return res
}

// PendingPreference is an enterprise preference awaiting a single commit.
type PendingPreference struct {
	ID           string
	UserID       string
	UserName     string
	EnterpriseID string
	CompanyID    string
	ProjectID    string
	Status       string
}

// PreviewCompany runs the matcher over the company's current snapshot.
// The caller must be a company owner, admin or staff member.
func (s *Service) PreviewCompany(ctx context.Context, companyID, callerID primitive.ObjectID) (_ Preview, err error) {
	ctx, span := s.startSpan(ctx, "PreviewCompany", attribute.String("company_id", companyID.Hex()))
	defer func() { endSpan(span, err) }()
	start := time.Now()

	c, err := s.company(ctx, companyID)
	if err != nil {
		return Preview{}, err
	}
	ok, err := s.gate.CanManageCompany(ctx, c, callerID)
	if err := s.require(ctx, ok, err, callerID, "preview", companyScope(c)); err != nil {
		return Preview{}, err
	}

	snap, err := s.LoadCompanySnapshot(ctx, companyID)
	if err != nil {
		return Preview{}, err
	}
	res := allocation.Match(snap.Pool, snap.Prefs, snap.Capacity)

	out := Preview{
		Projects: make([]ProjectPreview, 0, len(res.Projects)),
		Unplaced: res.Unplaced,
	}
	for i, pm := range res.Projects {
		// res.Projects follows snap.Projects order.
		p := snap.Projects[i]
		out.Projects = append(out.Projects, ProjectPreview{
			ProjectID:   pm.ProjectID,
			ProjectName: p.Name,
			MaxSeats:    p.MaxSeats,
			UserIDs:     pm.MemberIDs,
		})
	}

	s.metrics.RecordPreview(res.Placed(), len(res.Unplaced), time.Since(start))
	span.SetAttributes(
		attribute.Int("pool", len(snap.Pool)),
		attribute.Int("placed", res.Placed()),
		attribute.Int("unplaced", len(res.Unplaced)),
	)
	s.log.Debug("allocation preview",
		zap.String("company_id", companyID.Hex()),
		zap.Int("pool", len(snap.Pool)),
		zap.Int("placed", res.Placed()),
		zap.Int("unplaced", len(res.Unplaced)))
	return out, nil
}

// PendingForEnterprise lists the enterprise's pending preferences with
// display names stripped of markup. The caller must be an enterprise owner
// or admin.
func (s *Service) PendingForEnterprise(ctx context.Context, enterpriseID, callerID primitive.ObjectID) (_ []PendingPreference, err error) {
	ctx, span := s.startSpan(ctx, "PendingForEnterprise", attribute.String("enterprise_id", enterpriseID.Hex()))
	defer func() { endSpan(span, err) }()

	if _, err := s.enterprise(ctx, enterpriseID); err != nil {
		return nil, err
	}
	ok, err := s.gate.CanManageEnterprise(ctx, enterpriseID, callerID)
	if err := s.require(ctx, ok, err, callerID, "preview", enterpriseScope(enterpriseID)); err != nil {
		return nil, err
	}

	pending, err := s.userPrefs.ListPending(ctx, enterpriseID)
	if err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(pending))
	for _, p := range pending {
		ids = append(ids, p.UserID)
	}
	names, err := s.users.DisplayNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]PendingPreference, 0, len(pending))
	for _, p := range pending {
		out = append(out, PendingPreference{
			ID:           p.ID.Hex(),
			UserID:       p.UserID.Hex(),
			UserName:     htmlsanitize.DisplayName(names[p.UserID], "Unknown"),
			EnterpriseID: p.EnterpriseID.Hex(),
			CompanyID:    hexOrEmpty(p.CompanyID),
			ProjectID:    hexOrEmpty(p.ProjectID),
			Status:       p.Status,
		})
	}
	return out, nil
}
