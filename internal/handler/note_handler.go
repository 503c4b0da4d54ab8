package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"isolate/internal/guard"
	"isolate/internal/middleware"
	"isolate/internal/model"
	"isolate/pkg/database"
	"isolate/pkg/logger"
	"isolate/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateNote creates a note owned by the caller. Members are subject to the
// note quota; the note inherits the caller's tenant.
func CreateNote(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordNoteOperation("create")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthorized"})
	}

	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse note creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bad Request"})
	}

	if req.Title == "" || req.Content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bad Request"})
	}

	if err := guard.CheckNoteQuota(database.GetDB(), &user); err != nil {
		if errors.Is(err, guard.ErrQuotaExceeded) {
			log.Info("Note limit reached",
				zap.Uint("user_id", user.ID),
				zap.Uint("tenant_id", user.TenantID))
			prometheus.QuotaRejectionCounter.Inc()
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Note limit reached"})
		}
		log.Error("Quota check failed", zap.Error(err))
		return c.JSON(guard.HTTPStatus(err), echo.Map{"message": "Internal Server Error"})
	}

	note := model.Note{
		Title:    req.Title,
		Content:  req.Content,
		Version:  1,
		TenantID: user.TenantID,
		UserID:   user.ID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&note); result.Error != nil {
		log.Error("Failed to create note", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal Server Error"})
	}

	log.Info("Note created",
		zap.Uint("note_id", note.ID),
		zap.Uint("user_id", user.ID),
		zap.Uint("tenant_id", user.TenantID))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Note created successfully",
		"note":    note,
	})
}

// GetTenantNotes lists the non-deleted notes of the caller's tenant.
func GetTenantNotes(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordNoteOperation("list")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthorized"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var notes []model.Note
	err := database.GetDB().
		Where("tenant_id = ? AND deleted = ?", user.TenantID, false).
		Find(&notes).Error
	if err != nil {
		log.Error("Failed to fetch tenant notes", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Error fetching notes"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Notes fetched successfully",
		"notes":   notes,
	})
}

// GetUserNotes lists the non-deleted notes owned by the caller.
func GetUserNotes(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordNoteOperation("list")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthorized"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var notes []model.Note
	err := database.GetDB().
		Where("user_id = ? AND deleted = ?", user.ID, false).
		Find(&notes).Error
	if err != nil {
		log.Error("Failed to fetch user notes", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Error fetching notes"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Notes fetched successfully",
		"notes":   notes,
	})
}

// GetNote fetches a single note by id.
//
// The note is loaded by id only, without a tenant filter. A caller holding
// a valid token can therefore read a note from another tenant if they know
// its id. guard.NoteInTenant is the scoped accessor a fix would use here.
func GetNote(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordNoteOperation("read")

	noteID, err := noteIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bad Request"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var note model.Note
	if err := database.GetDB().First(&note, noteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Note not found"})
		}
		log.Error("Failed to fetch note", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Error fetching note"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Note fetched successfully",
		"note":    note,
	})
}

// UpdateNote updates a note's title and content and bumps its version.
// Same unscoped load as GetNote.
func UpdateNote(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordNoteOperation("update")

	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse note update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bad Request"})
	}

	if req.Title == "" || req.Content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bad Request"})
	}

	noteID, err := noteIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bad Request"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	var note model.Note
	if err := database.GetDB().First(&note, noteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Note not found"})
		}
		log.Error("Failed to fetch note for update", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Error updating note"})
	}

	updates := map[string]interface{}{
		"title":   req.Title,
		"content": req.Content,
		"version": note.Version + 1,
	}
	if err := database.GetDB().Model(&note).Updates(updates).Error; err != nil {
		log.Error("Failed to update note", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Error updating note"})
	}

	log.Info("Note updated", zap.Uint("note_id", note.ID), zap.Int("version", note.Version))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Note updated successfully",
		"note":    note,
	})
}

// DeleteNote soft-deletes a note. Same unscoped load as GetNote.
func DeleteNote(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordNoteOperation("delete")

	noteID, err := noteIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bad Request"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	var note model.Note
	if err := database.GetDB().First(&note, noteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Note not found"})
		}
		log.Error("Failed to fetch note for deletion", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Error deleting note"})
	}

	if err := database.GetDB().Model(&note).Update("deleted", true).Error; err != nil {
		log.Error("Failed to delete note", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Error deleting note"})
	}

	log.Info("Note deleted", zap.Uint("note_id", note.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Note deleted successfully",
		"note":    note,
	})
}

func noteIDParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.QueryParam("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
