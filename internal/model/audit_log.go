package model

import (
	"time"
)

// Audit log actions written by privileged admin mutations.
const (
	AuditUserDeleted = "USER_DELETED"
	AuditRoleUpdated = "ROLE_UPDATED"
)

// AuditLog is an append-only record of a privileged mutation. UserID refers
// to the user the action was performed on, which may be a soft-deleted row.
// Entries are never updated or deleted.
type AuditLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TenantID  uint      `json:"tenant_id" gorm:"index;not null"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	Action    string    `json:"action" gorm:"type:varchar(100);not null"`
	CreatedAt time.Time `json:"created_at"`
}
