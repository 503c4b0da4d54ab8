package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"isolate/internal/invite"
	"isolate/internal/mailer"
	"isolate/internal/model"
	"isolate/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMailer struct {
	sent []mailer.InvitationEmail
	err  error
}

func (f *fakeMailer) SendInvitation(_ context.Context, email mailer.InvitationEmail) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, email)
	return nil
}

func TestUpdateTenantPlan(t *testing.T) {
	db := setupDB(t)
	acme := createTenant(t, db, "Acme2", "acme-2")
	admin := createUser(t, db, "admin@x.com", "secret1", model.RoleAdmin, acme.ID)

	t.Run("upgrades the caller's own tenant", func(t *testing.T) {
		c, rec := newRequest(t, http.MethodPost, "/admin/update-tenant-plan",
			`{"plan":"PRO"}`, &admin)
		require.NoError(t, UpdateTenantPlan(c))
		require.Equal(t, http.StatusOK, rec.Code)

		var stored model.Tenant
		require.NoError(t, db.First(&stored, acme.ID).Error)
		assert.Equal(t, model.PlanPro, stored.Plan)
	})

	t.Run("unknown plan is rejected", func(t *testing.T) {
		c, rec := newRequest(t, http.MethodPost, "/admin/update-tenant-plan",
			`{"plan":"PLATINUM"}`, &admin)
		require.NoError(t, UpdateTenantPlan(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpdateUserPlan(t *testing.T) {
	db := setupDB(t)
	acme := createTenant(t, db, "Acme2", "acme-2")
	globex := createTenant(t, db, "Globex", "globex")
	admin := createUser(t, db, "admin@x.com", "secret1", model.RoleAdmin, acme.ID)
	member := createUser(t, db, "a@x.com", "secret1", model.RoleMember, acme.ID)
	outsider := createUser(t, db, "g@x.com", "secret1", model.RoleMember, globex.ID)

	t.Run("same tenant target succeeds", func(t *testing.T) {
		body := fmt.Sprintf(`{"plan":"PRO","userId":%d}`, member.ID)
		c, rec := newRequest(t, http.MethodPost, "/admin/update-user-plan", body, &admin)
		require.NoError(t, UpdateUserPlan(c))
		require.Equal(t, http.StatusOK, rec.Code)

		var stored model.User
		require.NoError(t, db.First(&stored, member.ID).Error)
		assert.Equal(t, model.PlanPro, stored.Plan)
	})

	t.Run("cross tenant target is not found and untouched", func(t *testing.T) {
		body := fmt.Sprintf(`{"plan":"PRO","userId":%d}`, outsider.ID)
		c, rec := newRequest(t, http.MethodPost, "/admin/update-user-plan", body, &admin)
		require.NoError(t, UpdateUserPlan(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)

		var stored model.User
		require.NoError(t, db.First(&stored, outsider.ID).Error)
		assert.Equal(t, model.PlanFree, stored.Plan)
	})

	t.Run("missing target gets the same not found", func(t *testing.T) {
		c, rec := newRequest(t, http.MethodPost, "/admin/update-user-plan",
			`{"plan":"PRO","userId":9999}`, &admin)
		require.NoError(t, UpdateUserPlan(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDeleteUser(t *testing.T) {
	db := setupDB(t)
	acme := createTenant(t, db, "Acme2", "acme-2")
	globex := createTenant(t, db, "Globex", "globex")
	admin := createUser(t, db, "admin@x.com", "secret1", model.RoleAdmin, acme.ID)
	member := createUser(t, db, "a@x.com", "secret1", model.RoleMember, acme.ID)
	outsider := createUser(t, db, "g@x.com", "secret1", model.RoleMember, globex.ID)

	t.Run("admin cannot delete their own account", func(t *testing.T) {
		body := fmt.Sprintf(`{"userId":%d}`, admin.ID)
		c, rec := newRequest(t, http.MethodPost, "/admin/delete-user", body, &admin)
		require.NoError(t, DeleteUser(c))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		var stored model.User
		require.NoError(t, db.First(&stored, admin.ID).Error)
		assert.False(t, stored.Deleted)
	})

	t.Run("cross tenant target is not found and no row is mutated", func(t *testing.T) {
		body := fmt.Sprintf(`{"userId":%d}`, outsider.ID)
		c, rec := newRequest(t, http.MethodPost, "/admin/delete-user", body, &admin)
		require.NoError(t, DeleteUser(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)

		var stored model.User
		require.NoError(t, db.First(&stored, outsider.ID).Error)
		assert.False(t, stored.Deleted)
	})

	t.Run("same tenant peer is soft deleted with an audit entry", func(t *testing.T) {
		body := fmt.Sprintf(`{"userId":%d}`, member.ID)
		c, rec := newRequest(t, http.MethodPost, "/admin/delete-user", body, &admin)
		require.NoError(t, DeleteUser(c))
		require.Equal(t, http.StatusOK, rec.Code)

		// soft deleted, still addressable by id
		var stored model.User
		require.NoError(t, db.First(&stored, member.ID).Error)
		assert.True(t, stored.Deleted)

		var entry model.AuditLog
		require.NoError(t, db.Where("tenant_id = ? AND action = ?", acme.ID, model.AuditUserDeleted).First(&entry).Error)
		assert.Equal(t, member.ID, entry.UserID)
	})
}

func TestUpdateUserRole(t *testing.T) {
	db := setupDB(t)
	acme := createTenant(t, db, "Acme2", "acme-2")
	admin := createUser(t, db, "admin@x.com", "secret1", model.RoleAdmin, acme.ID)
	member := createUser(t, db, "a@x.com", "secret1", model.RoleMember, acme.ID)

	t.Run("admin cannot change their own role", func(t *testing.T) {
		body := fmt.Sprintf(`{"userId":%d,"role":"MEMBER"}`, admin.ID)
		c, rec := newRequest(t, http.MethodPost, "/admin/update-user-role", body, &admin)
		require.NoError(t, UpdateUserRole(c))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("same tenant peer role change succeeds and is audited", func(t *testing.T) {
		body := fmt.Sprintf(`{"userId":%d,"role":"ADMIN"}`, member.ID)
		c, rec := newRequest(t, http.MethodPost, "/admin/update-user-role", body, &admin)
		require.NoError(t, UpdateUserRole(c))
		require.Equal(t, http.StatusOK, rec.Code)

		var stored model.User
		require.NoError(t, db.First(&stored, member.ID).Error)
		assert.Equal(t, model.RoleAdmin, stored.Role)

		var entry model.AuditLog
		require.NoError(t, db.Where("tenant_id = ? AND action = ?", acme.ID, model.AuditRoleUpdated).First(&entry).Error)
		assert.Equal(t, member.ID, entry.UserID)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		body := fmt.Sprintf(`{"userId":%d,"role":"OWNER"}`, member.ID)
		c, rec := newRequest(t, http.MethodPost, "/admin/update-user-role", body, &admin)
		require.NoError(t, UpdateUserRole(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetTenantUsersExcludesDeleted(t *testing.T) {
	db := setupDB(t)
	acme := createTenant(t, db, "Acme2", "acme-2")
	globex := createTenant(t, db, "Globex", "globex")
	admin := createUser(t, db, "admin@x.com", "secret1", model.RoleAdmin, acme.ID)
	createUser(t, db, "a@x.com", "secret1", model.RoleMember, acme.ID)
	gone := createUser(t, db, "gone@x.com", "secret1", model.RoleMember, acme.ID)
	createUser(t, db, "g@x.com", "secret1", model.RoleMember, globex.ID)
	require.NoError(t, db.Model(&gone).Update("deleted", true).Error)

	c, rec := newRequest(t, http.MethodGet, "/admin/users", "", &admin)
	require.NoError(t, GetTenantUsers(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Users []model.User `json:"users"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Users, 2)
	for _, u := range resp.Users {
		assert.Equal(t, acme.ID, u.TenantID)
		assert.False(t, u.Deleted)
	}
}

func TestSendInvitation(t *testing.T) {
	db := setupDB(t)
	acme := createTenant(t, db, "Acme2", "acme-2")
	admin := createUser(t, db, "admin@x.com", "secret1", model.RoleAdmin, acme.ID)

	t.Run("dispatches and persists", func(t *testing.T) {
		fm := &fakeMailer{}
		svc := invite.NewService(database.GetDB(), fm, "http://localhost:3001", zap.NewNop())

		c, rec := newRequest(t, http.MethodPost, "/admin/send-invitation",
			`{"email":"invitee@x.com"}`, &admin)
		require.NoError(t, SendInvitation(svc)(c))
		require.Equal(t, http.StatusCreated, rec.Code)
		require.Len(t, fm.sent, 1)

		var stored model.Invitation
		require.NoError(t, db.Where("email = ?", "invitee@x.com").First(&stored).Error)
		assert.Equal(t, acme.ID, stored.TenantID)
		assert.Equal(t, admin.ID, stored.InvitedBy)
		assert.WithinDuration(t, time.Now().Add(invite.TTL), stored.ExpiresAt, 5*time.Second)
	})

	t.Run("delivery failure surfaces and writes nothing", func(t *testing.T) {
		fm := &fakeMailer{err: errors.New("smtp down")}
		svc := invite.NewService(database.GetDB(), fm, "http://localhost:3001", zap.NewNop())

		c, rec := newRequest(t, http.MethodPost, "/admin/send-invitation",
			`{"email":"second@x.com"}`, &admin)
		require.NoError(t, SendInvitation(svc)(c))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		var count int64
		require.NoError(t, db.Model(&model.Invitation{}).Where("email = ?", "second@x.com").Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("missing email is rejected", func(t *testing.T) {
		svc := invite.NewService(database.GetDB(), &fakeMailer{}, "http://localhost:3001", zap.NewNop())
		c, rec := newRequest(t, http.MethodPost, "/admin/send-invitation", `{}`, &admin)
		require.NoError(t, SendInvitation(svc)(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetPendingInvitations(t *testing.T) {
	db := setupDB(t)
	acme := createTenant(t, db, "Acme2", "acme-2")
	admin := createUser(t, db, "admin@x.com", "secret1", model.RoleAdmin, acme.ID)
	svc := invite.NewService(database.GetDB(), &fakeMailer{}, "http://localhost:3001", zap.NewNop())

	require.NoError(t, db.Create(&model.Invitation{
		Email: "live@x.com", Token: "t1", TenantID: acme.ID,
		InvitedBy: admin.ID, ExpiresAt: time.Now().Add(time.Hour),
	}).Error)
	require.NoError(t, db.Create(&model.Invitation{
		Email: "expired@x.com", Token: "t2", TenantID: acme.ID,
		InvitedBy: admin.ID, ExpiresAt: time.Now().Add(-time.Hour),
	}).Error)

	c, rec := newRequest(t, http.MethodGet, "/admin/invitations", "", &admin)
	require.NoError(t, GetPendingInvitations(svc)(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Invitations []model.Invitation `json:"invitations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Invitations, 1)
	assert.Equal(t, "live@x.com", resp.Invitations[0].Email)
}

func TestGetTenantStats(t *testing.T) {
	db := setupDB(t)
	acme := createTenant(t, db, "Acme2", "acme-2")
	admin := createUser(t, db, "admin@x.com", "secret1", model.RoleAdmin, acme.ID)
	member := createUser(t, db, "a@x.com", "secret1", model.RoleMember, acme.ID)
	gone := createUser(t, db, "gone@x.com", "secret1", model.RoleMember, acme.ID)
	require.NoError(t, db.Model(&gone).Update("deleted", true).Error)

	require.NoError(t, db.Create(&model.Note{Title: "n", Content: "c", Version: 1, TenantID: acme.ID, UserID: member.ID}).Error)
	require.NoError(t, db.Create(&model.Note{Title: "d", Content: "c", Version: 1, TenantID: acme.ID, UserID: member.ID, Deleted: true}).Error)
	require.NoError(t, db.Create(&model.Invitation{
		Email: "live@x.com", Token: "t1", TenantID: acme.ID,
		InvitedBy: admin.ID, ExpiresAt: time.Now().Add(time.Hour),
	}).Error)

	c, rec := newRequest(t, http.MethodGet, "/admin/stats", "", &admin)
	require.NoError(t, GetTenantStats(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Stats struct {
			Users              int64 `json:"users"`
			Notes              int64 `json:"notes"`
			PendingInvitations int64 `json:"pendingInvitations"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Stats.Users)
	assert.Equal(t, int64(1), resp.Stats.Notes)
	assert.Equal(t, int64(1), resp.Stats.PendingInvitations)
}

func TestGetAuditLogs(t *testing.T) {
	db := setupDB(t)
	acme := createTenant(t, db, "Acme2", "acme-2")
	globex := createTenant(t, db, "Globex", "globex")
	admin := createUser(t, db, "admin@x.com", "secret1", model.RoleAdmin, acme.ID)

	require.NoError(t, db.Create(&model.AuditLog{TenantID: acme.ID, UserID: 2, Action: model.AuditUserDeleted}).Error)
	require.NoError(t, db.Create(&model.AuditLog{TenantID: globex.ID, UserID: 3, Action: model.AuditRoleUpdated}).Error)

	c, rec := newRequest(t, http.MethodGet, "/admin/audit-logs", "", &admin)
	require.NoError(t, GetAuditLogs(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Logs []model.AuditLog `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Logs, 1)
	assert.Equal(t, acme.ID, resp.Logs[0].TenantID)
}
