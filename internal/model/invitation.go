package model

import (
	"time"
)

// Invitation represents an outstanding offer to join a tenant. The token is
// an opaque lookup key, not a signed credential. Invitations expire 7 days
// after creation and are never updated; acceptance happens out of band by
// the invitee registering with the tenant slug.
type Invitation struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"type:varchar(100);index;not null"`
	Token     string    `json:"token" gorm:"type:varchar(255);uniqueIndex;not null"`
	TenantID  uint      `json:"tenant_id" gorm:"index;not null"`
	InvitedBy uint      `json:"invited_by" gorm:"index;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
	CreatedAt time.Time `json:"created_at"`
}
