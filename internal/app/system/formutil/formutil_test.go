package formutil

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/seatplan/internal/domain/errs"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDecodeJSON(t *testing.T) {
	var body struct {
		CompanyID string `json:"companyId"`
	}
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"companyId":"abc"}`))
	if err := DecodeJSON(r, &body); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if body.CompanyID != "abc" {
		t.Errorf("companyId: got %q", body.CompanyID)
	}
}

func TestDecodeJSON_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"malformed", `{"companyId":`},
		{"wrong type", `{"companyId":7}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body struct {
				CompanyID string `json:"companyId"`
			}
			r := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			err := DecodeJSON(r, &body)
			if errs.CodeOf(err) != errs.CodeValidation {
				t.Errorf("got %v, want validation error", err)
			}
		})
	}
}

func TestObjectID(t *testing.T) {
	id := primitive.NewObjectID()
	got, err := ObjectID("companyId", " "+id.Hex()+" ")
	if err != nil || got != id {
		t.Fatalf("ObjectID: got (%s, %v)", got.Hex(), err)
	}

	for _, raw := range []string{"", "  ", "nope"} {
		if _, err := ObjectID("companyId", raw); errs.CodeOf(err) != errs.CodeValidation {
			t.Errorf("ObjectID(%q): got %v, want validation error", raw, err)
		}
	}
}

func TestOptionalObjectID(t *testing.T) {
	got, err := OptionalObjectID("projectId", "")
	if err != nil || got != nil {
		t.Fatalf("empty: got (%v, %v)", got, err)
	}
	id := primitive.NewObjectID()
	got, err = OptionalObjectID("projectId", id.Hex())
	if err != nil || got == nil || *got != id {
		t.Fatalf("set: got (%v, %v)", got, err)
	}
	if _, err := OptionalObjectID("projectId", "zz"); err == nil {
		t.Error("expected error for malformed id")
	}
}

func TestQueryObjectID(t *testing.T) {
	id := primitive.NewObjectID()
	r := httptest.NewRequest("GET", "/?companyId="+id.Hex(), nil)
	got, err := QueryObjectID(r, "companyId")
	if err != nil || got != id {
		t.Fatalf("got (%s, %v)", got.Hex(), err)
	}
	if _, err := QueryObjectID(httptest.NewRequest("GET", "/", nil), "companyId"); err == nil {
		t.Error("expected error for missing parameter")
	}
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		query   string
		want    int64
		wantErr bool
	}{
		{"", 50, false},
		{"?limit=", 50, false},
		{"?limit=7", 7, false},
		{"?limit=0", 0, false},
		{"?limit=-1", 0, true},
		{"?limit=ten", 0, true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/"+tt.query, nil)
		got, err := QueryInt(r, "limit", 50)
		if tt.wantErr {
			if errs.CodeOf(err) != errs.CodeValidation {
				t.Errorf("%q: got %v, want validation error", tt.query, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("%q: got (%d, %v), want %d", tt.query, got, err, tt.want)
		}
	}
}
