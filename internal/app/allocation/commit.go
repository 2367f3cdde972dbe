package allocation

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/seatplan/internal/app/system/events"
	"github.com/dalemusser/seatplan/internal/app/system/metrics"
	"github.com/dalemusser/seatplan/internal/app/system/timeouts"
	"github.com/dalemusser/seatplan/internal/app/system/txn"
	"github.com/dalemusser/seatplan/internal/domain/allocation"
	"github.com/dalemusser/seatplan/internal/domain/errs"
	"github.com/dalemusser/seatplan/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CommitOneRequest places one pending enterprise applicant into one project.
type CommitOneRequest struct {
	PreferenceID primitive.ObjectID
	CompanyID    primitive.ObjectID
	ProjectID    primitive.ObjectID
	ApproverID   primitive.ObjectID
}

// CommitSummary reports the effect of a bulk commit.
type CommitSummary struct {
	CommitID string
	Deleted  int64
	Inserted int64
}

// lock backoff bounds
const (
	lockRetryMin = 25 * time.Millisecond
	lockRetryMax = time.Second
)

/*─────────────────────────────────────────────────────────────────────────────*
| Single commit                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// CommitOne seats the member of an enterprise preference in req.ProjectID.
//
// The approver must be an owner or admin of the preference's enterprise and
// the company must belong to that enterprise. A preference that names a
// different company or project is not found. The write holds the company
// lock. Committing an already allocated preference whose assignment exists
// returns that assignment's ID.
func (s *Service) CommitOne(ctx context.Context, req CommitOneRequest) (_ primitive.ObjectID, err error) {
	ctx, span := s.startSpan(ctx, "CommitOne",
		attribute.String("preference_id", req.PreferenceID.Hex()),
		attribute.String("company_id", req.CompanyID.Hex()),
		attribute.String("project_id", req.ProjectID.Hex()))
	defer func() { endSpan(span, err) }()
	start := time.Now()
	defer func() { s.observeCommit(metrics.KindSingle, start, err) }()

	pref, err := s.userPrefs.GetByID(ctx, req.PreferenceID)
	if err != nil {
		return primitive.NilObjectID, notFound(err, "preference", req.PreferenceID)
	}
	ok, err := s.gate.CanManageEnterprise(ctx, pref.EnterpriseID, req.ApproverID)
	if err := s.require(ctx, ok, err, req.ApproverID, "commit", enterpriseScope(pref.EnterpriseID)); err != nil {
		return primitive.NilObjectID, err
	}

	c, err := s.company(ctx, req.CompanyID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if c.EnterpriseID == nil || *c.EnterpriseID != pref.EnterpriseID {
		return primitive.NilObjectID, errs.NotFound("company", req.CompanyID.Hex())
	}
	p, err := s.project(ctx, c.ID, req.ProjectID)
	if err != nil {
		return primitive.NilObjectID, err
	}

	if pref.ProjectID != nil && *pref.ProjectID != p.ID {
		return primitive.NilObjectID, errs.NotFound("preference for project", p.ID.Hex())
	}
	if pref.CompanyID != nil && *pref.CompanyID != c.ID {
		return primitive.NilObjectID, errs.NotFound("preference for company", c.ID.Hex())
	}

	release, err := s.acquireCompanyLock(ctx, c.ID)
	if err != nil {
		if errs.IsConflict(err) {
			s.audit.CommitRejected(ctx, req.ApproverID, c.ID, string(errs.CodeCommitInProgress))
		}
		return primitive.NilObjectID, err
	}
	defer release()

	// Re-read under the lock; a commit that held it may have settled pref.
	if pref, err = s.userPrefs.GetByID(ctx, req.PreferenceID); err != nil {
		return primitive.NilObjectID, notFound(err, "preference", req.PreferenceID)
	}
	existing, err := s.assignments.Find(ctx, pref.UserID, c.ID, p.ID)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return primitive.NilObjectID, err
	}

	switch pref.Status {
	case models.PreferencePending:
	case models.PreferenceAllocated:
		if existing != nil {
			return existing.ID, nil
		}
		return primitive.NilObjectID, errs.Conflict(errs.CodePreferenceSettled, "preference %s is already allocated", pref.ID.Hex())
	default:
		return primitive.NilObjectID, errs.Conflict(errs.CodePreferenceSettled, "preference %s is %s", pref.ID.Hex(), pref.Status)
	}

	commitID := uuid.NewString()
	approver := req.ApproverID
	var (
		assignmentID primitive.ObjectID
		created      bool
	)
	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if s.cfg.CommitOneCapacityGuard && existing == nil {
			if err := s.checkSeatFree(ctx, p); err != nil {
				return err
			}
		}
		if _, err := s.memberships.Ensure(ctx, c.ID, pref.UserID); err != nil {
			return err
		}
		var err error
		assignmentID, created, err = s.assignments.Upsert(ctx, models.Assignment{
			UserID:           pref.UserID,
			CompanyID:        c.ID,
			ProjectID:        p.ID,
			AssignedAt:       s.now(),
			AssignedByUserID: &approver,
			AssignedBy:       models.AssignedByAdmin,
			CommitID:         commitID,
		})
		if err != nil {
			return err
		}
		if _, err := s.memberships.SetAllocationStatus(ctx, c.ID, []primitive.ObjectID{pref.UserID}, models.AllocationAllocated); err != nil {
			return err
		}
		settled, err := s.userPrefs.MarkAllocated(ctx, pref.ID)
		if err != nil {
			return err
		}
		if !settled {
			return errs.Conflict(errs.CodePreferenceSettled, "preference %s was settled by another commit", pref.ID.Hex())
		}
		return nil
	})
	if err != nil {
		if errs.CodeOf(err) == errs.CodeProjectFull {
			s.audit.CommitRejected(ctx, req.ApproverID, c.ID, string(errs.CodeProjectFull))
		}
		return primitive.NilObjectID, err
	}

	if created {
		s.metrics.RecordSeatsWritten(metrics.KindSingle, 1)
	}
	s.audit.PreferenceCommitted(ctx, req.ApproverID, pref.UserID, pref.EnterpriseID, c.ID, p.ID, assignmentID)
	s.log.Info("preference committed",
		zap.String("preference_id", pref.ID.Hex()),
		zap.String("user_id", pref.UserID.Hex()),
		zap.String("project_id", p.ID.Hex()),
		zap.String("assignment_id", assignmentID.Hex()))
	s.publish(ctx, events.Committed{
		CommitID:     commitID,
		Kind:         metrics.KindSingle,
		EnterpriseID: pref.EnterpriseID.Hex(),
		CompanyID:    c.ID.Hex(),
		ProjectID:    p.ID.Hex(),
		UserID:       pref.UserID.Hex(),
		ActorID:      req.ApproverID.Hex(),
		Inserted:     boolToInt64(created),
	})
	return assignmentID, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Bulk commit                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// bulkPlan is a validated bulk result in ObjectID form.
type bulkPlan struct {
	members  []primitive.ObjectID
	lists    map[primitive.ObjectID][]primitive.ObjectID
	order    []primitive.ObjectID
	projects map[primitive.ObjectID]models.Project
}

// parseResult checks that every ID is well-formed, that no member appears
// twice, and that every project belongs to the company.
func (s *Service) parseResult(ctx context.Context, companyID primitive.ObjectID, res allocation.Result) (bulkPlan, error) {
	plan := bulkPlan{lists: make(map[primitive.ObjectID][]primitive.ObjectID, len(res.Projects))}
	seen := make(map[primitive.ObjectID]bool)

	for _, pm := range res.Projects {
		pid, err := primitive.ObjectIDFromHex(pm.ProjectID)
		if err != nil {
			return bulkPlan{}, errs.Validation("projectId", "%q is not a valid id", pm.ProjectID)
		}
		if _, dup := plan.lists[pid]; dup {
			return bulkPlan{}, errs.Validation("projectId", "project %s listed more than once", pm.ProjectID)
		}
		ids := make([]primitive.ObjectID, 0, len(pm.MemberIDs))
		for _, m := range pm.MemberIDs {
			uid, err := primitive.ObjectIDFromHex(m)
			if err != nil {
				return bulkPlan{}, errs.Validation("userIds", "%q is not a valid id", m)
			}
			if seen[uid] {
				return bulkPlan{}, errs.Validation("userIds", "member %s is placed more than once", m)
			}
			seen[uid] = true
			ids = append(ids, uid)
		}
		plan.lists[pid] = ids
		plan.order = append(plan.order, pid)
		plan.members = append(plan.members, ids...)
	}

	found, err := s.projects.ListInCompany(ctx, companyID, plan.order)
	if err != nil {
		return bulkPlan{}, err
	}
	plan.projects = make(map[primitive.ObjectID]models.Project, len(found))
	for _, p := range found {
		plan.projects[p.ID] = p
	}
	for _, pid := range plan.order {
		if _, ok := plan.projects[pid]; !ok {
			return bulkPlan{}, errs.NotFound("project", pid.Hex())
		}
	}
	return plan, nil
}

// CommitMany makes a company-wide result durable.
//
// Assignments held in the company by members named in res are replaced by
// the result's placements, all stamped with one fresh commit ID. The whole
// write runs under the company lock and, where supported, in one
// transaction. Re-running the same result converges to the same assignments.
func (s *Service) CommitMany(ctx context.Context, companyID primitive.ObjectID, res allocation.Result, approverID primitive.ObjectID) (_ CommitSummary, err error) {
	ctx, span := s.startSpan(ctx, "CommitMany", attribute.String("company_id", companyID.Hex()))
	defer func() { endSpan(span, err) }()
	start := time.Now()
	defer func() { s.observeCommit(metrics.KindBulk, start, err) }()

	c, err := s.company(ctx, companyID)
	if err != nil {
		return CommitSummary{}, err
	}
	ok, err := s.gate.CanManageCompany(ctx, c, approverID)
	if err := s.require(ctx, ok, err, approverID, "commit", companyScope(c)); err != nil {
		return CommitSummary{}, err
	}

	plan, err := s.parseResult(ctx, c.ID, res)
	if err != nil {
		return CommitSummary{}, err
	}

	release, err := s.acquireCompanyLock(ctx, c.ID)
	if err != nil {
		if errs.IsConflict(err) {
			s.audit.CommitRejected(ctx, approverID, c.ID, string(errs.CodeCommitInProgress))
		}
		return CommitSummary{}, err
	}
	defer release()

	sum := CommitSummary{CommitID: uuid.NewString()}
	approver := approverID
	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if err := s.checkBulkCapacity(ctx, c.ID, plan); err != nil {
			return err
		}

		deleted, err := s.assignments.DeleteForMembers(ctx, c.ID, plan.members)
		if err != nil {
			return err
		}

		now := s.now()
		rows := make([]models.Assignment, 0, len(plan.members))
		for _, pid := range plan.order {
			for _, uid := range plan.lists[pid] {
				rows = append(rows, models.Assignment{
					UserID:           uid,
					CompanyID:        c.ID,
					ProjectID:        pid,
					AssignedAt:       now,
					AssignedByUserID: &approver,
					AssignedBy:       models.AssignedByAuto,
					CommitID:         sum.CommitID,
				})
			}
		}
		inserted, err := s.assignments.UpsertMany(ctx, rows)
		if err != nil {
			return err
		}
		if _, err := s.memberships.SetAllocationStatus(ctx, c.ID, plan.members, models.AllocationAllocated); err != nil {
			return err
		}
		sum.Deleted, sum.Inserted = deleted, inserted
		return nil
	})
	if err != nil {
		if errs.IsConflict(err) {
			s.audit.CommitRejected(ctx, approverID, c.ID, string(errs.CodeOf(err)))
		}
		return CommitSummary{}, err
	}

	span.SetAttributes(
		attribute.String("commit_id", sum.CommitID),
		attribute.Int64("deleted", sum.Deleted),
		attribute.Int64("inserted", sum.Inserted),
	)
	s.metrics.RecordSeatsWritten(metrics.KindBulk, int(sum.Inserted))
	s.audit.BulkCommitted(ctx, approverID, c.ID, sum.CommitID, sum.Deleted, sum.Inserted)
	s.log.Info("allocation committed",
		zap.String("company_id", c.ID.Hex()),
		zap.String("commit_id", sum.CommitID),
		zap.Int64("deleted", sum.Deleted),
		zap.Int64("inserted", sum.Inserted))
	s.publish(ctx, events.Committed{
		CommitID:     sum.CommitID,
		Kind:         metrics.KindBulk,
		EnterpriseID: hexOrEmpty(c.EnterpriseID),
		CompanyID:    c.ID.Hex(),
		ActorID:      approverID.Hex(),
		Deleted:      sum.Deleted,
		Inserted:     sum.Inserted,
	})
	return sum, nil
}

// checkBulkCapacity verifies that, once the plan's members give up their
// current seats, every project can hold its new list.
func (s *Service) checkBulkCapacity(ctx context.Context, companyID primitive.ObjectID, plan bulkPlan) error {
	current, err := s.assignments.ListByCompany(ctx, companyID)
	if err != nil {
		return err
	}
	moving := make(map[primitive.ObjectID]bool, len(plan.members))
	for _, uid := range plan.members {
		moving[uid] = true
	}
	remaining := make(map[primitive.ObjectID]int)
	for _, a := range current {
		if !moving[a.UserID] {
			remaining[a.ProjectID]++
		}
	}
	for _, pid := range plan.order {
		p := plan.projects[pid]
		if n := remaining[pid] + len(plan.lists[pid]); n > p.MaxSeats {
			return errs.Conflict(errs.CodeCapacityExceeded,
				"project %s would hold %d members but has %d seats", pid.Hex(), n, p.MaxSeats)
		}
	}
	return nil
}

// acquireCompanyLock takes the company's commit lock. Every write to a
// company's assignments holds it.
func (s *Service) acquireCompanyLock(ctx context.Context, companyID primitive.ObjectID) (func(), error) {
	return s.acquireLock(ctx, "company:"+companyID.Hex(), "company "+companyID.Hex())
}

// acquireEnterpriseLock takes the enterprise-wide self-assignment lock. It
// is always taken before any company lock.
func (s *Service) acquireEnterpriseLock(ctx context.Context, enterpriseID primitive.ObjectID) (func(), error) {
	return s.acquireLock(ctx, "enterprise:"+enterpriseID.Hex(), "enterprise "+enterpriseID.Hex())
}

// acquireLock takes the lease lock named key, retrying with exponential
// backoff until ctx ends. The returned func releases it.
func (s *Service) acquireLock(ctx context.Context, key, scope string) (func(), error) {
	holder := uuid.NewString()
	start := time.Now()
	wait := lockRetryMin

	for {
		ok, err := s.locks.TryAcquire(ctx, key, holder, s.cfg.LockLease)
		if err != nil {
			s.metrics.RecordLockWait(time.Since(start), false)
			return nil, err
		}
		if ok {
			s.metrics.RecordLockWait(time.Since(start), true)
			return func() {
				rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Release())
				defer cancel()
				if err := s.locks.Release(rctx, key, holder); err != nil {
					s.log.Warn("allocation lock not released", zap.Error(err), zap.String("key", key))
				}
			}, nil
		}

		select {
		case <-ctx.Done():
			s.metrics.RecordLockWait(time.Since(start), false)
			return nil, errs.Conflict(errs.CodeCommitInProgress, "another commit for %s is in progress", scope)
		case <-time.After(wait):
		}
		if wait *= 2; wait > lockRetryMax {
			wait = lockRetryMax
		}
	}
}

// checkSeatFree returns a ProjectFull conflict when p has no seat left.
func (s *Service) checkSeatFree(ctx context.Context, p models.Project) error {
	taken, err := s.assignments.CountByProject(ctx, p.ID)
	if err != nil {
		return err
	}
	if taken >= int64(p.MaxSeats) {
		return errs.Conflict(errs.CodeProjectFull, "project %s is full (%d/%d)", p.ID.Hex(), taken, p.MaxSeats)
	}
	return nil
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
