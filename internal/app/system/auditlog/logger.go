// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/dalemusser/seatplan/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Allocation controls logging for commits, manual allocation, self-assignment
	// and preference submission.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Allocation string
	// Security controls logging for authorization denials.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Security string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

type clientKey struct{}

type client struct {
	IP        string
	UserAgent string
}

// WithRequest stores the caller's address and user agent in ctx so events
// logged further down the call chain carry them.
func WithRequest(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, clientKey{}, client{IP: getClientIP(r), UserAgent: r.UserAgent()})
}

// Middleware applies WithRequest to every request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithRequest(r.Context(), r)))
	})
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (for reverse proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.EnterpriseID != nil {
		fields = append(fields, zap.String("enterprise_id", event.EnterpriseID.Hex()))
	}
	if event.CompanyID != nil {
		fields = append(fields, zap.String("company_id", event.CompanyID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Logging destination is controlled by config: "all", "db", "log", or "off".
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAllocation:
		setting = l.config.Allocation
	case audit.CategorySecurity:
		setting = l.config.Security
	default:
		setting = "all"
	}
	if setting == "off" {
		return
	}

	if c, ok := ctx.Value(clientKey{}).(client); ok {
		if event.IP == "" {
			event.IP = c.IP
		}
		if event.UserAgent == "" {
			event.UserAgent = c.UserAgent
		}
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func ptr(id primitive.ObjectID) *primitive.ObjectID {
	return &id
}

// --- Allocation Events ---

// BulkCommitted logs a company-wide commit.
func (l *Logger) BulkCommitted(ctx context.Context, actorID, companyID primitive.ObjectID, commitID string, deleted, inserted int64) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAllocation,
		EventType: audit.EventBulkCommitted,
		ActorID:   ptr(actorID),
		CompanyID: ptr(companyID),
		Success:   true,
		Details: map[string]string{
			"commit_id": commitID,
			"deleted":   strconv.FormatInt(deleted, 10),
			"inserted":  strconv.FormatInt(inserted, 10),
		},
	})
}

// PreferenceCommitted logs the placement of one enterprise applicant.
func (l *Logger) PreferenceCommitted(ctx context.Context, actorID, userID, enterpriseID, companyID, projectID, assignmentID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:     audit.CategoryAllocation,
		EventType:    audit.EventPreferenceCommitted,
		ActorID:      ptr(actorID),
		UserID:       ptr(userID),
		EnterpriseID: ptr(enterpriseID),
		CompanyID:    ptr(companyID),
		Success:      true,
		Details: map[string]string{
			"project_id":    projectID.Hex(),
			"assignment_id": assignmentID.Hex(),
		},
	})
}

// MemberAllocated logs a manual placement.
func (l *Logger) MemberAllocated(ctx context.Context, actorID, userID, companyID, projectID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAllocation,
		EventType: audit.EventMemberAllocated,
		ActorID:   ptr(actorID),
		UserID:    ptr(userID),
		CompanyID: ptr(companyID),
		Success:   true,
		Details:   map[string]string{"project_id": projectID.Hex()},
	})
}

// MemberUnallocated logs a manual removal.
func (l *Logger) MemberUnallocated(ctx context.Context, actorID, userID, companyID, projectID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAllocation,
		EventType: audit.EventMemberUnallocated,
		ActorID:   ptr(actorID),
		UserID:    ptr(userID),
		CompanyID: ptr(companyID),
		Success:   true,
		Details:   map[string]string{"project_id": projectID.Hex()},
	})
}

// SelfAssigned logs a member claiming a seat.
func (l *Logger) SelfAssigned(ctx context.Context, userID, companyID, projectID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAllocation,
		EventType: audit.EventSelfAssigned,
		ActorID:   ptr(userID),
		UserID:    ptr(userID),
		CompanyID: ptr(companyID),
		Success:   true,
		Details:   map[string]string{"project_id": projectID.Hex()},
	})
}

// PreferencesSubmitted logs a member replacing their ranked list.
func (l *Logger) PreferencesSubmitted(ctx context.Context, userID, companyID primitive.ObjectID, count int) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAllocation,
		EventType: audit.EventPreferencesSubmitted,
		UserID:    ptr(userID),
		CompanyID: ptr(companyID),
		Success:   true,
		Details:   map[string]string{"count": strconv.Itoa(count)},
	})
}

// PreferencesCleared logs a member withdrawing their ranked list.
func (l *Logger) PreferencesCleared(ctx context.Context, userID, companyID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAllocation,
		EventType: audit.EventPreferencesCleared,
		UserID:    ptr(userID),
		CompanyID: ptr(companyID),
		Success:   true,
	})
}

// CommitRejected logs a commit refused by a conflict (full project, lock held).
func (l *Logger) CommitRejected(ctx context.Context, actorID, companyID primitive.ObjectID, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAllocation,
		EventType:     audit.EventCommitRejected,
		ActorID:       ptr(actorID),
		CompanyID:     ptr(companyID),
		Success:       false,
		FailureReason: reason,
	})
}

// --- Security Events ---

// AccessDenied logs an authorization failure.
func (l *Logger) AccessDenied(ctx context.Context, actorID primitive.ObjectID, action, scope string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategorySecurity,
		EventType:     audit.EventAccessDenied,
		ActorID:       ptr(actorID),
		Success:       false,
		FailureReason: "not permitted",
		Details: map[string]string{
			"action": action,
			"scope":  scope,
		},
	})
}
