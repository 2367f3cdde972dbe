// Package formutil reads the bodies and query parameters of API requests.
//
// Every parse failure comes back as an *errs.ValidationError naming the
// offending field, so handlers can hand it straight to the error writer:
//
//	var body struct {
//		CompanyID string `json:"companyId"`
//	}
//	if err := formutil.DecodeJSON(r, &body); err != nil {
//		apperrors.Write(w, r, h.Log, err)
//		return
//	}
//	companyID, err := formutil.ObjectID("companyId", body.CompanyID)
package formutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/seatplan/internal/domain/errs"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxBodyBytes bounds a JSON request body.
const MaxBodyBytes = 1 << 20

// DecodeJSON decodes the request body into v. An empty body is an error.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errs.Validation("body", "request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errs.Validation("body", "request body is required")
		}
		return errs.Validation("body", "malformed JSON: %v", err)
	}
	return nil
}

// ObjectID parses a required hex ObjectID.
func ObjectID(field, raw string) (primitive.ObjectID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return primitive.NilObjectID, errs.Validation(field, "%s is required", field)
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, errs.Validation(field, "%q is not a valid id", raw)
	}
	return id, nil
}

// OptionalObjectID parses a hex ObjectID that may be absent. An empty value
// yields nil.
func OptionalObjectID(field, raw string) (*primitive.ObjectID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := ObjectID(field, raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// QueryObjectID parses a required ObjectID from the query string.
func QueryObjectID(r *http.Request, name string) (primitive.ObjectID, error) {
	return ObjectID(name, r.URL.Query().Get(name))
}

// QueryInt parses an optional non-negative integer from the query string,
// returning def when it is absent.
func QueryInt(r *http.Request, name string, def int64) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, errs.Validation(name, "%s must be a non-negative integer", name)
	}
	return n, nil
}
