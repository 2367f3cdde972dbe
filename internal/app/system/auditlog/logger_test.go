package auditlog_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/seatplan/internal/app/store/audit"
	"github.com/dalemusser/seatplan/internal/app/system/auditlog"
	"github.com/dalemusser/seatplan/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestLogger_NilLogger(t *testing.T) {
	// nil logger should be a no-op (not panic)
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.MemberAllocated(ctx, primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID())
	logger.AccessDenied(ctx, primitive.NewObjectID(), "commit", "company")
}

func TestLogger_Log_ConfigOff(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{
		Allocation: "off",
		Security:   "off",
	})

	userID := primitive.NewObjectID()
	logger.SelfAssigned(ctx, userID, primitive.NewObjectID(), primitive.NewObjectID())
	logger.AccessDenied(ctx, userID, "commit", "company")

	events, err := store.Query(ctx, audit.Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 0 {
		t.Error("expected no events when config is 'off'")
	}
}

func TestLogger_Log_ConfigDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{
		Allocation: "db",
		Security:   "db",
	})

	actor, companyID := primitive.NewObjectID(), primitive.NewObjectID()
	logger.BulkCommitted(ctx, actor, companyID, "c-1", 2, 5)

	events, err := store.Query(ctx, audit.Filter{CompanyID: &companyID})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.EventType != audit.EventBulkCommitted {
		t.Errorf("EventType: got %q, want %q", ev.EventType, audit.EventBulkCommitted)
	}
	if ev.Details["commit_id"] != "c-1" || ev.Details["deleted"] != "2" || ev.Details["inserted"] != "5" {
		t.Errorf("Details: got %v", ev.Details)
	}
	if ev.ActorID == nil || *ev.ActorID != actor {
		t.Error("expected ActorID to be recorded")
	}
}

func TestLogger_Log_ConfigLog(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Allocation: "log"})

	companyID := primitive.NewObjectID()
	logger.PreferencesCleared(ctx, primitive.NewObjectID(), companyID)

	events, _ := store.Query(ctx, audit.Filter{CompanyID: &companyID})
	if len(events) != 0 {
		t.Errorf("expected no stored events for 'log', got %d", len(events))
	}
}

func TestLogger_CategoryFilteredByConfig(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{
		Allocation: "db",
		Security:   "off",
	})

	actor := primitive.NewObjectID()
	logger.AccessDenied(ctx, actor, "preview", "company")
	logger.CommitRejected(ctx, actor, primitive.NewObjectID(), "project full")

	events, err := store.Query(ctx, audit.Filter{ActorID: &actor})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].EventType != audit.EventCommitRejected || events[0].Success {
		t.Errorf("got %q success=%v, want failed commit_rejected", events[0].EventType, events[0].Success)
	}
}

func TestLogger_ClientFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"x-forwarded-for wins", map[string]string{"X-Forwarded-For": "203.0.113.195", "X-Real-IP": "192.168.1.1"}, "127.0.0.1:12345", "203.0.113.195"},
		{"x-real-ip", map[string]string{"X-Real-IP": "192.168.1.100"}, "127.0.0.1:12345", "192.168.1.100"},
		{"remote addr without port", nil, "10.0.0.5:12345", "10.0.0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			store := audit.New(db)
			ctx, cancel := testutil.TestContext()
			defer cancel()

			logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Allocation: "db"})

			req := httptest.NewRequest("POST", "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			req.RemoteAddr = tt.remote
			req.Header.Set("User-Agent", "TestBrowser/1.0")

			userID := primitive.NewObjectID()
			var handled bool
			h := auditlog.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handled = true
				logger.SelfAssigned(r.Context(), userID, primitive.NewObjectID(), primitive.NewObjectID())
			}))
			h.ServeHTTP(httptest.NewRecorder(), req.WithContext(ctx))
			if !handled {
				t.Fatal("middleware did not call next handler")
			}

			events, _ := store.Query(ctx, audit.Filter{UserID: &userID})
			if len(events) != 1 {
				t.Fatalf("expected 1 event, got %d", len(events))
			}
			if events[0].IP != tt.want {
				t.Errorf("IP: got %q, want %q", events[0].IP, tt.want)
			}
			if events[0].UserAgent != "TestBrowser/1.0" {
				t.Errorf("UserAgent: got %q, want %q", events[0].UserAgent, "TestBrowser/1.0")
			}
		})
	}
}
