// Package events announces durable allocation changes to other services.
//
// Every successful commit (bulk, single, manual or self) produces one
// Committed event. Publishing is best-effort: the commit is already durable
// when the event is sent, and a failed publish is logged, not returned to the
// caller.
package events

import (
	"context"
	"time"
)

// SubjectCommitted is appended to the configured prefix to form the subject
// for Committed events, e.g. "seatplan.allocation.committed".
const SubjectCommitted = "allocation.committed"

// Committed describes one durable allocation change.
type Committed struct {
	CommitID     string    `json:"commitId"`
	Kind         string    `json:"kind"` // bulk | single | manual | self
	EnterpriseID string    `json:"enterpriseId,omitempty"`
	CompanyID    string    `json:"companyId"`
	ProjectID    string    `json:"projectId,omitempty"`
	UserID       string    `json:"userId,omitempty"`
	ActorID      string    `json:"actorId"`
	Deleted      int64     `json:"deleted"`
	Inserted     int64     `json:"inserted"`
	At           time.Time `json:"at"`
}

// Publisher sends allocation events.
type Publisher interface {
	PublishCommitted(ctx context.Context, ev Committed) error
}

// Nop discards every event.
type Nop struct{}

var _ Publisher = Nop{}

// PublishCommitted does nothing.
func (Nop) PublishCommitted(context.Context, Committed) error { return nil }
