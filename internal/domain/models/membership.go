// internal/domain/models/membership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles shared by enterprise and company memberships.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RoleMember = "member"
)

// Membership statuses.
const (
	StatusActive  = "active"
	StatusPending = "pending"
)

// Allocation statuses carried on a company membership.
const (
	AllocationUnallocated         = "unallocated"
	AllocationPreferenceSubmitted = "preference-submitted"
	AllocationAllocated           = "allocated"
)

// Membership is a user's membership in a company.
// Exactly one document per (user_id, company_id).
type Membership struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CompanyID        primitive.ObjectID `bson:"company_id" json:"company_id"`
	UserID           primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role             string             `bson:"role" json:"role"`
	Status           string             `bson:"status" json:"status"`
	AllocationStatus string             `bson:"allocation_status,omitempty" json:"allocation_status,omitempty"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
}

// IsManager reports whether the role can manage a company (owner, admin, staff).
func IsManager(role string) bool {
	return role == RoleOwner || role == RoleAdmin || role == RoleStaff
}
