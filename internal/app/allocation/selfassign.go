package allocation

import (
	"context"
	"time"

	"github.com/dalemusser/seatplan/internal/app/system/events"
	"github.com/dalemusser/seatplan/internal/app/system/metrics"
	"github.com/dalemusser/seatplan/internal/app/system/txn"
	"github.com/dalemusser/seatplan/internal/domain/errs"
	"github.com/dalemusser/seatplan/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
)

// SelfAssign lets a member claim a free seat in an active project.
//
// The caller must be an active member of the company's enterprise, or of
// the company when it has no enterprise. A caller who already holds a seat
// anywhere in that scope is refused, as is a full project. Both checks run
// under the enterprise lock, when there is an enterprise, and the company
// lock, taken in that order.
func (s *Service) SelfAssign(ctx context.Context, companyID, projectID, userID primitive.ObjectID) (_ primitive.ObjectID, err error) {
	ctx, span := s.startSpan(ctx, "SelfAssign",
		attribute.String("company_id", companyID.Hex()),
		attribute.String("project_id", projectID.Hex()))
	defer func() { endSpan(span, err) }()
	start := time.Now()
	defer func() { s.observeCommit(metrics.KindSelf, start, err) }()

	c, err := s.company(ctx, companyID)
	if err != nil {
		return primitive.NilObjectID, err
	}

	var (
		ok    bool
		scope []primitive.ObjectID
	)
	if c.EnterpriseID != nil {
		ok, err = s.gate.IsEnterpriseMember(ctx, *c.EnterpriseID, userID)
		if err == nil && ok {
			scope, err = s.companies.IDsByEnterprise(ctx, *c.EnterpriseID)
		}
	} else {
		ok, err = s.gate.IsCompanyMember(ctx, c, userID)
		scope = []primitive.ObjectID{c.ID}
	}
	if err := s.require(ctx, ok, err, userID, "self-assign", companyScope(c)); err != nil {
		return primitive.NilObjectID, err
	}

	p, err := s.project(ctx, c.ID, projectID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if !p.IsActive {
		return primitive.NilObjectID, errs.NotFound("active project", p.ID.Hex())
	}

	if c.EnterpriseID != nil {
		releaseEnt, err := s.acquireEnterpriseLock(ctx, *c.EnterpriseID)
		if err != nil {
			return primitive.NilObjectID, err
		}
		defer releaseEnt()
	}
	release, err := s.acquireCompanyLock(ctx, c.ID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	defer release()

	commitID := uuid.NewString()
	var assignmentID primitive.ObjectID
	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		held, err := s.assignments.CountForUser(ctx, userID, scope)
		if err != nil {
			return err
		}
		if held > 0 {
			code := errs.CodeAlreadyAssigned
			if c.EnterpriseID != nil {
				code = errs.CodeEnterpriseAssigned
			}
			return errs.Conflict(code, "member %s already holds a seat", userID.Hex())
		}
		if err := s.checkSeatFree(ctx, p); err != nil {
			return err
		}
		if _, err := s.memberships.Ensure(ctx, c.ID, userID); err != nil {
			return err
		}
		assignmentID, _, err = s.assignments.Upsert(ctx, models.Assignment{
			UserID:     userID,
			CompanyID:  c.ID,
			ProjectID:  p.ID,
			AssignedAt: s.now(),
			AssignedBy: models.AssignedBySelf,
			CommitID:   commitID,
		})
		if err != nil {
			return err
		}
		_, err = s.memberships.SetAllocationStatus(ctx, c.ID, []primitive.ObjectID{userID}, models.AllocationAllocated)
		return err
	})
	if err != nil {
		return primitive.NilObjectID, err
	}

	s.metrics.RecordSeatsWritten(metrics.KindSelf, 1)
	s.audit.SelfAssigned(ctx, userID, c.ID, p.ID)
	s.publish(ctx, events.Committed{
		CommitID:     commitID,
		Kind:         metrics.KindSelf,
		EnterpriseID: hexOrEmpty(c.EnterpriseID),
		CompanyID:    c.ID.Hex(),
		ProjectID:    p.ID.Hex(),
		UserID:       userID.Hex(),
		ActorID:      userID.Hex(),
		Inserted:     1,
	})
	return assignmentID, nil
}
