package allocation

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/seatplan/internal/app/system/events"
	"github.com/dalemusser/seatplan/internal/app/system/metrics"
	"github.com/dalemusser/seatplan/internal/app/system/txn"
	"github.com/dalemusser/seatplan/internal/domain/errs"
	"github.com/dalemusser/seatplan/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/attribute"
)

// Allocate places one member in one project by hand.
//
// The caller must be a company owner or admin, or an owner or admin of the
// company's enterprise. The member must belong to the company or its
// enterprise. The seat checks and the write run under the company lock. The
// member's matching preference, if any, becomes allocated; other pending
// preferences are left as they are.
func (s *Service) Allocate(ctx context.Context, companyID, userID, projectID, adminID primitive.ObjectID) (_ primitive.ObjectID, err error) {
	ctx, span := s.startSpan(ctx, "Allocate",
		attribute.String("company_id", companyID.Hex()),
		attribute.String("project_id", projectID.Hex()))
	defer func() { endSpan(span, err) }()
	start := time.Now()
	defer func() { s.observeCommit(metrics.KindManual, start, err) }()

	c, err := s.company(ctx, companyID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	ok, err := s.gate.CanAdministerCompany(ctx, c, adminID)
	if err := s.require(ctx, ok, err, adminID, "allocate", companyScope(c)); err != nil {
		return primitive.NilObjectID, err
	}
	p, err := s.project(ctx, c.ID, projectID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	member, err := s.inScope(ctx, c, userID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if !member {
		return primitive.NilObjectID, errs.NotFound("member", userID.Hex())
	}

	release, err := s.acquireCompanyLock(ctx, c.ID)
	if err != nil {
		if errs.IsConflict(err) {
			s.audit.CommitRejected(ctx, adminID, c.ID, string(errs.CodeCommitInProgress))
		}
		return primitive.NilObjectID, err
	}
	defer release()

	commitID := uuid.NewString()
	admin := adminID
	var assignmentID primitive.ObjectID
	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if _, err := s.assignments.Find(ctx, userID, c.ID, p.ID); err == nil {
			return errs.Conflict(errs.CodeAlreadyAssigned, "member %s already holds a seat in project %s", userID.Hex(), p.ID.Hex())
		} else if !errors.Is(err, mongo.ErrNoDocuments) {
			return err
		}
		if err := s.checkSeatFree(ctx, p); err != nil {
			return err
		}
		if _, err := s.memberships.Ensure(ctx, c.ID, userID); err != nil {
			return err
		}
		var err error
		assignmentID, _, err = s.assignments.Upsert(ctx, models.Assignment{
			UserID:           userID,
			CompanyID:        c.ID,
			ProjectID:        p.ID,
			AssignedAt:       s.now(),
			AssignedByUserID: &admin,
			AssignedBy:       models.AssignedByAdmin,
			CommitID:         commitID,
		})
		if err != nil {
			return err
		}
		if _, err := s.memberships.SetAllocationStatus(ctx, c.ID, []primitive.ObjectID{userID}, models.AllocationAllocated); err != nil {
			return err
		}
		_, err = s.prefs.MarkAllocated(ctx, c.ID, userID, p.ID)
		return err
	})
	if err != nil {
		if errs.CodeOf(err) == errs.CodeProjectFull {
			s.audit.CommitRejected(ctx, adminID, c.ID, string(errs.CodeProjectFull))
		}
		return primitive.NilObjectID, err
	}

	s.metrics.RecordSeatsWritten(metrics.KindManual, 1)
	s.audit.MemberAllocated(ctx, adminID, userID, c.ID, p.ID)
	s.publish(ctx, events.Committed{
		CommitID:     commitID,
		Kind:         metrics.KindManual,
		EnterpriseID: hexOrEmpty(c.EnterpriseID),
		CompanyID:    c.ID.Hex(),
		ProjectID:    p.ID.Hex(),
		UserID:       userID.Hex(),
		ActorID:      adminID.Hex(),
		Inserted:     1,
	})
	return assignmentID, nil
}

// Unallocate removes one member's seat in one project. The caller must be a
// company owner or admin. The membership returns to unallocated when the
// member holds no other seat in the company.
func (s *Service) Unallocate(ctx context.Context, companyID, userID, projectID, adminID primitive.ObjectID) (err error) {
	ctx, span := s.startSpan(ctx, "Unallocate",
		attribute.String("company_id", companyID.Hex()),
		attribute.String("project_id", projectID.Hex()))
	defer func() { endSpan(span, err) }()
	start := time.Now()
	defer func() { s.observeCommit(metrics.KindManual, start, err) }()

	c, err := s.company(ctx, companyID)
	if err != nil {
		return err
	}
	ok, err := s.gate.IsCompanyAdmin(ctx, c, adminID)
	if err := s.require(ctx, ok, err, adminID, "unallocate", companyScope(c)); err != nil {
		return err
	}
	p, err := s.project(ctx, c.ID, projectID)
	if err != nil {
		return err
	}

	release, err := s.acquireCompanyLock(ctx, c.ID)
	if err != nil {
		return err
	}
	defer release()

	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		n, err := s.assignments.Delete(ctx, userID, c.ID, p.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return errs.NotFound("assignment", userID.Hex()+"/"+p.ID.Hex())
		}
		left, err := s.assignments.CountForUser(ctx, userID, []primitive.ObjectID{c.ID})
		if err != nil {
			return err
		}
		if left > 0 {
			return nil
		}
		_, err = s.memberships.SetAllocationStatus(ctx, c.ID, []primitive.ObjectID{userID}, models.AllocationUnallocated)
		return err
	})
	if err != nil {
		return err
	}

	s.audit.MemberUnallocated(ctx, adminID, userID, c.ID, p.ID)
	s.publish(ctx, events.Committed{
		CommitID:     uuid.NewString(),
		Kind:         metrics.KindManual,
		EnterpriseID: hexOrEmpty(c.EnterpriseID),
		CompanyID:    c.ID.Hex(),
		ProjectID:    p.ID.Hex(),
		UserID:       userID.Hex(),
		ActorID:      adminID.Hex(),
		Deleted:      1,
	})
	return nil
}
