// internal/domain/models/assignment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Who created an assignment.
const (
	AssignedByAdmin = "admin"
	AssignedByAuto  = "auto"
	AssignedBySelf  = "self"
)

// Assignment records that a user occupies a seat in a project.
// Unique per (user_id, company_id, project_id). Assignments are never
// edited, only created and deleted.
type Assignment struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID           primitive.ObjectID  `bson:"user_id" json:"user_id"`
	CompanyID        primitive.ObjectID  `bson:"company_id" json:"company_id"`
	ProjectID        primitive.ObjectID  `bson:"project_id" json:"project_id"`
	AssignedAt       time.Time           `bson:"assigned_at" json:"assigned_at"`
	AssignedByUserID *primitive.ObjectID `bson:"assigned_by_user_id,omitempty" json:"assigned_by_user_id,omitempty"` // nil = self
	AssignedBy       string              `bson:"assigned_by" json:"assigned_by"`
	CommitID         string              `bson:"commit_id,omitempty" json:"commit_id,omitempty"`
}
