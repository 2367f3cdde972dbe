package bootstrap

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/seatplan/internal/app/system/auth"
	"github.com/dalemusser/seatplan/internal/app/system/timeouts"
	"github.com/dalemusser/seatplan/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:               "mongodb://localhost:27017",
		MongoDatabase:          "seatplan",
		MongoMaxPoolSize:       100,
		MongoMinPoolSize:       10,
		SessionKey:             "test-session-key-0123456789abcdefghijkl",
		SessionName:            "seatplan-session",
		SessionMaxAge:          time.Hour,
		AuditLogAllocation:     "all",
		AuditLogSecurity:       "log",
		CommitOneCapacityGuard: true,
		LockLease:              30 * time.Second,
		TimeoutRead:            10 * time.Second,
		TimeoutCommit:          30 * time.Second,
		NATSSubjectPrefix:      "seatplan",
		MetricsNamespace:       "seatplan_test",
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"valid", func(*AppConfig) {}, false},
		{"bad uri", func(c *AppConfig) { c.MongoURI = "postgres://nope" }, true},
		{"empty database", func(c *AppConfig) { c.MongoDatabase = "" }, true},
		{"pool inverted", func(c *AppConfig) { c.MongoMinPoolSize = 200 }, true},
		{"unknown audit setting", func(c *AppConfig) { c.AuditLogAllocation = "sometimes" }, true},
		{"zero lease", func(c *AppConfig) { c.LockLease = 0 }, true},
		{"short lease only warns", func(c *AppConfig) { c.LockLease = time.Second }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(&config.CoreConfig{}, cfg, testLogger())
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStartup_ConfiguresTimeouts(t *testing.T) {
	t.Cleanup(timeouts.Reset)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cfg := validConfig()
	cfg.TimeoutRead = 3 * time.Second
	cfg.TimeoutCommit = 7 * time.Second
	if err := Startup(ctx, &config.CoreConfig{}, cfg, DBDeps{}, testLogger()); err != nil {
		t.Fatalf("Startup failed: %v", err)
	}
	if got := timeouts.Read(); got != 3*time.Second {
		t.Errorf("Read timeout = %v, want 3s", got)
	}
	if got := timeouts.Commit(); got != 7*time.Second {
		t.Errorf("Commit timeout = %v, want 7s", got)
	}
}

func TestEnsureSchema_CreatesIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := DBDeps{SeatPlanMongoClient: db.Client(), SeatPlanMongoDatabase: db}
	if err := EnsureSchema(ctx, &config.CoreConfig{}, validConfig(), deps, testLogger()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	// Second run must be a no-op.
	if err := EnsureSchema(ctx, &config.CoreConfig{}, validConfig(), deps, testLogger()); err != nil {
		t.Fatalf("second EnsureSchema failed: %v", err)
	}

	cur, err := db.Collection("assignments").Indexes().List(ctx)
	if err != nil {
		t.Fatalf("list indexes: %v", err)
	}
	var idx []bson.M
	if err := cur.All(ctx, &idx); err != nil {
		t.Fatalf("decode indexes: %v", err)
	}
	var unique bool
	for _, ix := range idx {
		if u, _ := ix["unique"].(bool); u {
			unique = true
		}
	}
	if !unique {
		t.Error("expected a unique index on assignments")
	}
}

// newTestHandler builds the full router over a test database.
func newTestHandler(t *testing.T) (http.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := DBDeps{SeatPlanMongoClient: db.Client(), SeatPlanMongoDatabase: db}
	if err := EnsureSchema(ctx, &config.CoreConfig{}, validConfig(), deps, testLogger()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, validConfig(), deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler failed: %v", err)
	}
	return h, testutil.NewFixtures(t, db)
}

// sessionCookie mints a cookie the router's session manager accepts.
func sessionCookie(t *testing.T, userID string) *http.Cookie {
	t.Helper()
	cfg := validConfig()
	sm, err := auth.NewSessionManager(cfg.SessionKey, cfg.SessionName, "", cfg.SessionMaxAge, false, testLogger())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	rec := httptest.NewRecorder()
	if err := sm.SignIn(rec, httptest.NewRequest("GET", "/", nil), userID); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("SignIn wrote no cookie")
	}
	return cookies[0]
}

func TestBuildHandler_PublicEndpoints(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := []struct {
		method, path string
		status       int
		contains     string
	}{
		{"GET", "/health", http.StatusOK, `"status":"ok"`},
		{"GET", "/metrics", http.StatusOK, "go_goroutines"},
		{"GET", "/api/allocations/preview?companyId=x", http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"POST", "/api/projects/self-assign", http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"GET", "/no/such/route", http.StatusNotFound, "ROUTE_NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d; body: %s", rec.Code, tt.status, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("body %q does not contain %q", rec.Body.String(), tt.contains)
			}
		})
	}
}

func TestBuildHandler_PreviewCommitCapacityFlow(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Olive Owner", "olive@test.com")
	ann := fx.CreateUser(ctx, "Ann", "ann@test.com")
	bob := fx.CreateUser(ctx, "Bob", "bob@test.com")
	company := fx.CreateCompany(ctx, "Acme", nil, owner.ID)
	fx.AddCompanyMember(ctx, company.ID, ann.ID, "member")
	fx.AddCompanyMember(ctx, company.ID, bob.ID, "member")
	apollo := fx.CreateProject(ctx, company.ID, "Apollo", 1)
	gemini := fx.CreateProject(ctx, company.ID, "Gemini", 1)
	fx.AddPreference(ctx, company.ID, ann.ID, apollo.ID, 1)
	fx.AddPreference(ctx, company.ID, bob.ID, apollo.ID, 1)
	fx.AddPreference(ctx, company.ID, bob.ID, gemini.ID, 2)

	cookie := sessionCookie(t, owner.ID.Hex())
	do := func(method, path, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(method, path, nil)
		} else {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
		}
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := do("GET", "/api/allocations/preview?companyId="+company.ID.Hex(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("preview status = %d; body: %s", rec.Code, rec.Body.String())
	}
	var preview struct {
		Preview []struct {
			ProjectID string   `json:"projectId"`
			UserIDs   []string `json:"userIds"`
		} `json:"preview"`
		Unplaced []string `json:"unplaced"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &preview); err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if len(preview.Preview) != 2 || len(preview.Unplaced) != 0 {
		t.Fatalf("unexpected preview: %+v", preview)
	}

	commitBody, _ := json.Marshal(map[string]any{
		"companyId": company.ID.Hex(),
		"preview":   preview.Preview,
	})
	rec = do("POST", "/api/allocations/commit", string(commitBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("commit status = %d; body: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"inserted":2`) {
		t.Errorf("commit body = %s, want 2 inserted", rec.Body.String())
	}

	rec = do("GET", "/api/projects/capacity?companyId="+company.ID.Hex(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("capacity status = %d; body: %s", rec.Code, rec.Body.String())
	}
	var capacity []struct {
		Name   string `json:"name"`
		IsFull bool   `json:"isFull"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &capacity); err != nil {
		t.Fatalf("decode capacity: %v", err)
	}
	for _, p := range capacity {
		if !p.IsFull {
			t.Errorf("project %s should be full after commit", p.Name)
		}
	}

	rec = do("DELETE", "/api/companies/"+company.ID.Hex()+"/allocate?userId="+ann.ID.Hex()+"&projectId="+apollo.ID.Hex(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unallocate status = %d; body: %s", rec.Code, rec.Body.String())
	}

	rec = do("GET", "/api/companies/"+company.ID.Hex()+"/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d; body: %s", rec.Code, rec.Body.String())
	}
	var hist struct {
		Events []struct {
			Type string `json:"type"`
		} `json:"events"`
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if hist.Total != 2 || len(hist.Events) != 2 {
		t.Fatalf("history = %+v, want bulk commit and unallocation", hist)
	}
	if hist.Events[0].Type != "member_unallocated" || hist.Events[1].Type != "bulk_committed" {
		t.Errorf("history order = %s,%s", hist.Events[0].Type, hist.Events[1].Type)
	}
}
