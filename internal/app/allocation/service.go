// Package allocation is the allocation engine service: it loads company
// snapshots, runs the matcher for previews, and applies bulk, single,
// manual and self-service commits under the scope-role checks of an
// Authorizer.
//
// Handlers parse requests and resolve the signed-in caller. Authorization
// and capacity checks live here.
package allocation

import (
	"context"
	"errors"
	"time"

	assignmentstore "github.com/dalemusser/seatplan/internal/app/store/assignments"
	auditstore "github.com/dalemusser/seatplan/internal/app/store/audit"
	companystore "github.com/dalemusser/seatplan/internal/app/store/companies"
	enterprisestore "github.com/dalemusser/seatplan/internal/app/store/enterprises"
	lockstore "github.com/dalemusser/seatplan/internal/app/store/locks"
	membershipstore "github.com/dalemusser/seatplan/internal/app/store/memberships"
	preferencestore "github.com/dalemusser/seatplan/internal/app/store/preferences"
	projectstore "github.com/dalemusser/seatplan/internal/app/store/projects"
	userprefstore "github.com/dalemusser/seatplan/internal/app/store/userprefs"
	userstore "github.com/dalemusser/seatplan/internal/app/store/users"
	"github.com/dalemusser/seatplan/internal/app/system/auditlog"
	"github.com/dalemusser/seatplan/internal/app/system/events"
	"github.com/dalemusser/seatplan/internal/app/system/metrics"
	"github.com/dalemusser/seatplan/internal/app/system/tracing"
	"github.com/dalemusser/seatplan/internal/domain/errs"
	"github.com/dalemusser/seatplan/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Authorizer answers scope-role questions. *authz.Gate implements it.
type Authorizer interface {
	CanManageEnterprise(ctx context.Context, enterpriseID, userID primitive.ObjectID) (bool, error)
	IsEnterpriseMember(ctx context.Context, enterpriseID, userID primitive.ObjectID) (bool, error)
	CanManageCompany(ctx context.Context, company models.Company, userID primitive.ObjectID) (bool, error)
	IsCompanyAdmin(ctx context.Context, company models.Company, userID primitive.ObjectID) (bool, error)
	CanAdministerCompany(ctx context.Context, company models.Company, userID primitive.ObjectID) (bool, error)
	IsCompanyMember(ctx context.Context, company models.Company, userID primitive.ObjectID) (bool, error)
}

// Config tunes commit behavior.
type Config struct {
	// CommitOneCapacityGuard makes CommitOne refuse a full project.
	CommitOneCapacityGuard bool
	// LockLease is how long a bulk commit may hold the company lock.
	LockLease time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{CommitOneCapacityGuard: true, LockLease: 30 * time.Second}
}

// Deps are the collaborators of a Service. Metrics, Events and Audit may be
// nil; they default to no-ops.
type Deps struct {
	DB      *mongo.Database
	Gate    Authorizer
	Metrics metrics.Collector
	Events  events.Publisher
	Audit   *auditlog.Logger
	Log     *zap.Logger
}

// Service is the allocation engine.
type Service struct {
	db  *mongo.Database
	cfg Config

	gate    Authorizer
	metrics metrics.Collector
	events  events.Publisher
	audit   *auditlog.Logger
	log     *zap.Logger
	tracer  trace.Tracer

	users       *userstore.Store
	enterprises *enterprisestore.Store
	companies   *companystore.Store
	memberships *membershipstore.Store
	projects    *projectstore.Store
	prefs       *preferencestore.Store
	userPrefs   *userprefstore.Store
	assignments *assignmentstore.Store
	locks       *lockstore.Store
	trail       *auditstore.Store

	now func() time.Time
}

// New builds a Service over d.DB.
func New(d Deps, cfg Config) *Service {
	if cfg.LockLease <= 0 {
		cfg.LockLease = DefaultConfig().LockLease
	}
	s := &Service{
		db:          d.DB,
		cfg:         cfg,
		gate:        d.Gate,
		metrics:     d.Metrics,
		events:      d.Events,
		audit:       d.Audit,
		log:         d.Log,
		tracer:      tracing.Tracer(),
		users:       userstore.New(d.DB),
		enterprises: enterprisestore.New(d.DB),
		companies:   companystore.New(d.DB),
		memberships: membershipstore.New(d.DB),
		projects:    projectstore.New(d.DB),
		prefs:       preferencestore.New(d.DB),
		userPrefs:   userprefstore.New(d.DB),
		assignments: assignmentstore.New(d.DB),
		locks:       lockstore.New(d.DB),
		trail:       auditstore.New(d.DB),
		now:         func() time.Time { return time.Now().UTC() },
	}
	if s.metrics == nil {
		s.metrics = metrics.NewNop()
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

/*─────────────────────────────────────────────────────────────────────────────*
| Lookups                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// notFound converts mongo.ErrNoDocuments into a *errs.NotFoundError.
func notFound(err error, kind string, id primitive.ObjectID) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errs.NotFound(kind, id.Hex())
	}
	return err
}

func (s *Service) company(ctx context.Context, id primitive.ObjectID) (models.Company, error) {
	c, err := s.companies.GetByID(ctx, id)
	if err != nil {
		return models.Company{}, notFound(err, "company", id)
	}
	return *c, nil
}

func (s *Service) enterprise(ctx context.Context, id primitive.ObjectID) (models.Enterprise, error) {
	e, err := s.enterprises.GetByID(ctx, id)
	if err != nil {
		return models.Enterprise{}, notFound(err, "enterprise", id)
	}
	return *e, nil
}

func (s *Service) project(ctx context.Context, companyID, projectID primitive.ObjectID) (models.Project, error) {
	p, err := s.projects.GetInCompany(ctx, companyID, projectID)
	if err != nil {
		return models.Project{}, notFound(err, "project", projectID)
	}
	return *p, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Authorization                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// deny records the refusal and returns a *errs.ForbiddenError.
func (s *Service) deny(ctx context.Context, callerID primitive.ObjectID, action, scope string) error {
	s.audit.AccessDenied(ctx, callerID, action, scope)
	s.log.Debug("allocation access denied",
		zap.String("caller_id", callerID.Hex()),
		zap.String("action", action),
		zap.String("scope", scope))
	return errs.Forbidden(action, scope)
}

// require turns a gate answer into nil, a gate failure, or a denial.
func (s *Service) require(ctx context.Context, ok bool, err error, callerID primitive.ObjectID, action, scope string) error {
	if err != nil {
		return err
	}
	if !ok {
		return s.deny(ctx, callerID, action, scope)
	}
	return nil
}

func companyScope(c models.Company) string { return "company " + c.ID.Hex() }
func enterpriseScope(id primitive.ObjectID) string { return "enterprise " + id.Hex() }

// inScope reports whether userID is an active member of the company, or of
// the company's enterprise.
func (s *Service) inScope(ctx context.Context, c models.Company, userID primitive.ObjectID) (bool, error) {
	ok, err := s.gate.IsCompanyMember(ctx, c, userID)
	if err != nil || ok || c.EnterpriseID == nil {
		return ok, err
	}
	return s.gate.IsEnterpriseMember(ctx, *c.EnterpriseID, userID)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Observation                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "allocation."+name, trace.WithAttributes(attrs...))
}

// endSpan marks the span failed when err is set and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// resultOf classifies err for the commits_total metric.
func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errs.IsConflict(err):
		return metrics.ResultConflict
	case errs.IsForbidden(err):
		return metrics.ResultForbidden
	default:
		return metrics.ResultError
	}
}

// observeCommit records the outcome of one commit of kind started at start.
func (s *Service) observeCommit(kind string, start time.Time, err error) {
	s.metrics.RecordCommit(kind, resultOf(err), time.Since(start))
}

// publish sends ev and logs a failure; the commit is already durable.
func (s *Service) publish(ctx context.Context, ev events.Committed) {
	ev.At = s.now()
	if err := s.events.PublishCommitted(ctx, ev); err != nil {
		s.log.Warn("allocation event not published",
			zap.Error(err),
			zap.String("commit_id", ev.CommitID),
			zap.String("kind", ev.Kind))
	}
}

func hexOrEmpty(id *primitive.ObjectID) string {
	if id == nil {
		return ""
	}
	return id.Hex()
}
