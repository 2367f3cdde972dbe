// internal/domain/models/enterprise.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Enterprise is the top-level organization that owns companies.
type Enterprise struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	OwnerUserID primitive.ObjectID `bson:"owner_user_id" json:"owner_user_id"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// EnterpriseMembership links a user to an enterprise with a role.
// Exactly one document per (user_id, enterprise_id).
type EnterpriseMembership struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EnterpriseID primitive.ObjectID `bson:"enterprise_id" json:"enterprise_id"`
	UserID       primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role         string             `bson:"role" json:"role"`     // owner | admin | staff | member
	Status       string             `bson:"status" json:"status"` // active | pending
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}
