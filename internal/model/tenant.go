package model

import (
	"time"
)

// Plan values shared by Tenant and User.
const (
	PlanFree = "FREE"
	PlanPro  = "PRO"
)

// Tenant represents an isolated organization stored in the database.
// This is the root of our multi-tenant data partitioning: every User and
// Note belongs to exactly one tenant.
type Tenant struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(100);not null"`
	Slug      string    `json:"slug" gorm:"type:varchar(100);uniqueIndex;not null"`
	Plan      string    `json:"plan" gorm:"type:varchar(20);not null;default:'FREE'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidPlan reports whether the given plan is one of the known plan values.
func ValidPlan(plan string) bool {
	return plan == PlanFree || plan == PlanPro
}
