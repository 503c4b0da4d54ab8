// Package guard implements the tenant access and quota checks applied on
// every protected request: tenant-scoped resource loading, the self-action
// rule for destructive admin operations, and the note quota for members.
package guard

import (
	"errors"
	"fmt"

	"isolate/internal/model"

	"gorm.io/gorm"
)

// FreeNoteLimit is the maximum number of active notes a member may own.
const FreeNoteLimit = 3

// TenantByID loads a tenant by id.
func TenantByID(db *gorm.DB, tenantID uint) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := db.First(&tenant, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return &tenant, nil
}

// UserInTenant loads a user by id scoped to the given tenant. A user that
// does not exist and a user in another tenant both yield ErrNotFound; the
// filter is part of the query so no cross-tenant row is ever read.
func UserInTenant(db *gorm.DB, tenantID, userID uint) (*model.User, error) {
	var user model.User
	err := db.Where("id = ? AND tenant_id = ?", userID, tenantID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return &user, nil
}

// NoteInTenant loads a note by id scoped to the given tenant, with the same
// no-enumeration property as UserInTenant.
func NoteInTenant(db *gorm.DB, tenantID, noteID uint) (*model.Note, error) {
	var note model.Note
	err := db.Where("id = ? AND tenant_id = ?", noteID, tenantID).First(&note).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return &note, nil
}

// NotSelf rejects destructive or role-changing admin operations aimed at
// the caller's own account.
func NotSelf(caller *model.User, targetID uint) error {
	if caller.ID == targetID {
		return ErrSelfAction
	}
	return nil
}

// CheckNoteQuota enforces the note limit before a creation. The check keys
// off role, not plan: only members are counted, admins are exempt whatever
// their plan says. Count-then-create is not atomic, so two concurrent
// creations by the same user can overshoot the limit by one.
func CheckNoteQuota(db *gorm.DB, caller *model.User) error {
	if caller.Role != model.RoleMember {
		return nil
	}

	var count int64
	err := db.Model(&model.Note{}).
		Where("user_id = ? AND deleted = ?", caller.ID, false).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	if count >= FreeNoteLimit {
		return ErrQuotaExceeded
	}
	return nil
}
