// internal/domain/models/project.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project is a unit of work inside a company with a fixed seat capacity.
// Assignments for a project must never exceed MaxSeats.
type Project struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	CompanyID primitive.ObjectID `bson:"company_id" json:"company_id"`
	Name      string             `bson:"name" json:"name"`
	MaxSeats  int                `bson:"max_seats" json:"max_seats"`
	IsActive  bool               `bson:"is_active" json:"is_active"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
