package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"isolate/internal/guard"
	"isolate/internal/middleware"
	"isolate/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateNoteQuota(t *testing.T) {
	db := setupDB(t)
	tenant := createTenant(t, db, "Acme2", "acme-2")
	member := createUser(t, db, "a@x.com", "secret1", model.RoleMember, tenant.ID)

	// first 3 creations succeed, the 4th hits the limit
	for i := 1; i <= guard.FreeNoteLimit; i++ {
		body := fmt.Sprintf(`{"title":"Note %d","content":"body"}`, i)
		c, rec := newRequest(t, http.MethodPost, "/user/create-node", body, &member)
		require.NoError(t, CreateNote(c))
		assert.Equal(t, http.StatusCreated, rec.Code, "creation %d", i)
	}

	c, rec := newRequest(t, http.MethodPost, "/user/create-node",
		`{"title":"One too many","content":"body"}`, &member)
	require.NoError(t, CreateNote(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Note limit reached", resp.Message)
}

func TestCreateNoteQuotaIgnoresDeleted(t *testing.T) {
	db := setupDB(t)
	tenant := createTenant(t, db, "Acme2", "acme-2")
	member := createUser(t, db, "a@x.com", "secret1", model.RoleMember, tenant.ID)

	for i := 0; i < guard.FreeNoteLimit; i++ {
		note := model.Note{Title: "n", Content: "c", Version: 1, TenantID: tenant.ID, UserID: member.ID}
		require.NoError(t, db.Create(&note).Error)
	}
	require.NoError(t, db.Model(&model.Note{}).
		Where("user_id = ?", member.ID).
		Update("deleted", true).Error)

	c, rec := newRequest(t, http.MethodPost, "/user/create-node",
		`{"title":"Fresh","content":"body"}`, &member)
	require.NoError(t, CreateNote(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateNoteInheritsTenant(t *testing.T) {
	db := setupDB(t)
	tenant := createTenant(t, db, "Acme2", "acme-2")
	member := createUser(t, db, "a@x.com", "secret1", model.RoleMember, tenant.ID)

	c, rec := newRequest(t, http.MethodPost, "/user/create-node",
		`{"title":"T","content":"C"}`, &member)
	require.NoError(t, CreateNote(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Note model.Note `json:"note"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, tenant.ID, resp.Note.TenantID)
	assert.Equal(t, member.ID, resp.Note.UserID)
	assert.Equal(t, 1, resp.Note.Version)
}

func TestRoleGateBlocksAdminFromNoteRoutes(t *testing.T) {
	db := setupDB(t)
	tenant := createTenant(t, db, "Acme2", "acme-2")
	admin := createUser(t, db, "admin@x.com", "secret1", model.RoleAdmin, tenant.ID)

	c, rec := newRequest(t, http.MethodPost, "/user/create-node",
		`{"title":"T","content":"C"}`, &admin)
	gated := middleware.RequireRole(model.RoleMember)(CreateNote)
	require.NoError(t, gated(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetTenantNotes(t *testing.T) {
	db := setupDB(t)
	acme := createTenant(t, db, "Acme2", "acme-2")
	globex := createTenant(t, db, "Globex", "globex")
	member := createUser(t, db, "a@x.com", "secret1", model.RoleMember, acme.ID)
	peer := createUser(t, db, "b@x.com", "secret1", model.RoleMember, acme.ID)
	outsider := createUser(t, db, "g@x.com", "secret1", model.RoleMember, globex.ID)

	notes := []model.Note{
		{Title: "mine", Content: "c", Version: 1, TenantID: acme.ID, UserID: member.ID},
		{Title: "peer", Content: "c", Version: 1, TenantID: acme.ID, UserID: peer.ID},
		{Title: "gone", Content: "c", Version: 1, TenantID: acme.ID, UserID: peer.ID, Deleted: true},
		{Title: "foreign", Content: "c", Version: 1, TenantID: globex.ID, UserID: outsider.ID},
	}
	for i := range notes {
		require.NoError(t, db.Create(&notes[i]).Error)
	}

	c, rec := newRequest(t, http.MethodGet, "/user/get-tenant-notes", "", &member)
	require.NoError(t, GetTenantNotes(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Notes []model.Note `json:"notes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Notes, 2)
	for _, n := range resp.Notes {
		assert.Equal(t, acme.ID, n.TenantID)
		assert.False(t, n.Deleted)
	}
}

func TestGetUserNotes(t *testing.T) {
	db := setupDB(t)
	acme := createTenant(t, db, "Acme2", "acme-2")
	member := createUser(t, db, "a@x.com", "secret1", model.RoleMember, acme.ID)
	peer := createUser(t, db, "b@x.com", "secret1", model.RoleMember, acme.ID)

	require.NoError(t, db.Create(&model.Note{Title: "mine", Content: "c", Version: 1, TenantID: acme.ID, UserID: member.ID}).Error)
	require.NoError(t, db.Create(&model.Note{Title: "peer", Content: "c", Version: 1, TenantID: acme.ID, UserID: peer.ID}).Error)

	c, rec := newRequest(t, http.MethodGet, "/user/get-user-notes", "", &member)
	require.NoError(t, GetUserNotes(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Notes []model.Note `json:"notes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Notes, 1)
	assert.Equal(t, "mine", resp.Notes[0].Title)
}

func TestUpdateNoteBumpsVersion(t *testing.T) {
	db := setupDB(t)
	acme := createTenant(t, db, "Acme2", "acme-2")
	member := createUser(t, db, "a@x.com", "secret1", model.RoleMember, acme.ID)
	note := model.Note{Title: "old", Content: "old", Version: 1, TenantID: acme.ID, UserID: member.ID}
	require.NoError(t, db.Create(&note).Error)

	target := fmt.Sprintf("/user/update-note?id=%d", note.ID)
	c, rec := newRequest(t, http.MethodPut, target,
		`{"title":"new","content":"new body"}`, &member)
	require.NoError(t, UpdateNote(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var stored model.Note
	require.NoError(t, db.First(&stored, note.ID).Error)
	assert.Equal(t, "new", stored.Title)
	assert.Equal(t, "new body", stored.Content)
	assert.Equal(t, 2, stored.Version)
}

func TestDeleteNoteIsSoft(t *testing.T) {
	db := setupDB(t)
	acme := createTenant(t, db, "Acme2", "acme-2")
	member := createUser(t, db, "a@x.com", "secret1", model.RoleMember, acme.ID)
	note := model.Note{Title: "t", Content: "c", Version: 1, TenantID: acme.ID, UserID: member.ID}
	require.NoError(t, db.Create(&note).Error)

	target := fmt.Sprintf("/user/delete-note?id=%d", note.ID)
	c, rec := newRequest(t, http.MethodDelete, target, "", &member)
	require.NoError(t, DeleteNote(c))
	require.Equal(t, http.StatusOK, rec.Code)

	// the row stays addressable by id
	var stored model.Note
	require.NoError(t, db.First(&stored, note.ID).Error)
	assert.True(t, stored.Deleted)
}

func TestGetNoteMissingIsNotFound(t *testing.T) {
	setupDB(t)

	c, rec := newRequest(t, http.MethodGet, "/user/get-note?id=9999", "", nil)
	require.NoError(t, GetNote(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetNoteBadIDIsBadRequest(t *testing.T) {
	setupDB(t)

	c, rec := newRequest(t, http.MethodGet, "/user/get-note?id=abc", "", nil)
	require.NoError(t, GetNote(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestGetNoteDoesNotEnforceTenantBoundary documents the isolation gap on
// the single-note routes: the note is loaded by id without a tenant filter,
// so a member holding a foreign note id can read it. guard.NoteInTenant is
// the scoped accessor a fix would use.
func TestGetNoteDoesNotEnforceTenantBoundary(t *testing.T) {
	db := setupDB(t)
	acme := createTenant(t, db, "Acme2", "acme-2")
	globex := createTenant(t, db, "Globex", "globex")
	member := createUser(t, db, "a@x.com", "secret1", model.RoleMember, acme.ID)
	outsider := createUser(t, db, "g@x.com", "secret1", model.RoleMember, globex.ID)

	foreign := model.Note{Title: "foreign", Content: "c", Version: 1, TenantID: globex.ID, UserID: outsider.ID}
	require.NoError(t, db.Create(&foreign).Error)

	target := fmt.Sprintf("/user/get-note?id=%d", foreign.ID)
	c, rec := newRequest(t, http.MethodGet, target, "", &member)
	require.NoError(t, GetNote(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
