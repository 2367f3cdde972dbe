// internal/domain/models/company.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Company is the scoping unit for projects, memberships and allocation.
// EnterpriseID is nil for standalone companies.
type Company struct {
	ID           primitive.ObjectID  `bson:"_id" json:"id"`
	Name         string              `bson:"name" json:"name"`
	NameCI       string              `bson:"name_ci" json:"-"`
	EnterpriseID *primitive.ObjectID `bson:"enterprise_id,omitempty" json:"enterprise_id,omitempty"`
	OwnerUserID  primitive.ObjectID  `bson:"owner_user_id" json:"owner_user_id"`
	CreatedAt    time.Time           `bson:"created_at" json:"created_at"`
}
