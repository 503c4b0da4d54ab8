package model

import (
	"time"
)

// Role values for users within a tenant.
const (
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

// User represents the user model stored in the database. A user belongs to
// exactly one tenant and the tenant assignment never changes after creation.
//
// Deletion is a soft delete via the Deleted flag rather than gorm.DeletedAt:
// soft-deleted rows must stay addressable by id so audit log references
// remain valid, which gorm's default soft-delete scoping would break.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Password  string    `json:"-" gorm:"type:varchar(255);not null"`
	Role      string    `json:"role" gorm:"type:varchar(20);not null;default:'MEMBER'"`
	Plan      string    `json:"plan" gorm:"type:varchar(20);not null;default:'FREE'"`
	TenantID  uint      `json:"tenant_id" gorm:"index;not null"`
	Deleted   bool      `json:"deleted" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidRole reports whether the given role is one of the known role values.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleMember
}
