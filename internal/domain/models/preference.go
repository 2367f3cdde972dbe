// internal/domain/models/preference.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Preference statuses.
const (
	PreferencePending   = "pending"
	PreferenceAllocated = "allocated"
	PreferenceRejected  = "rejected"
)

// Preference is one ranked entry of a member's project list for a company.
// Unique per (company_id, user_id, rank) and per (company_id, user_id, project_id).
// A resubmitted list replaces the previous one.
type Preference struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CompanyID primitive.ObjectID `bson:"company_id" json:"company_id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	ProjectID primitive.ObjectID `bson:"project_id" json:"project_id"`
	Rank      int                `bson:"rank" json:"rank"`
	Status    string             `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// EnterprisePreference is a pending request from an enterprise member to be
// placed, optionally naming a company and project. CommitOne consumes these.
type EnterprisePreference struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	EnterpriseID primitive.ObjectID  `bson:"enterprise_id" json:"enterprise_id"`
	UserID       primitive.ObjectID  `bson:"user_id" json:"user_id"`
	CompanyID    *primitive.ObjectID `bson:"company_id,omitempty" json:"company_id,omitempty"`
	ProjectID    *primitive.ObjectID `bson:"project_id,omitempty" json:"project_id,omitempty"`
	Status       string              `bson:"status" json:"status"`
	CreatedAt    time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time           `bson:"updated_at" json:"updated_at"`
}
