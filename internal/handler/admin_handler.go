package handler

import (
	"errors"
	"net/http"
	"time"

	"isolate/internal/guard"
	"isolate/internal/invite"
	"isolate/internal/middleware"
	"isolate/internal/model"
	"isolate/pkg/database"
	"isolate/pkg/logger"
	"isolate/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// UpdateTenantPlan changes the plan of the caller's own tenant.
func UpdateTenantPlan(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAdminOperation("update_tenant_plan")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthorized"})
	}

	var req struct {
		Plan string `json:"plan"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse tenant plan request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bad Request"})
	}

	if !model.ValidPlan(req.Plan) {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bad Request"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	tenant, err := guard.TenantByID(database.GetDB(), user.TenantID)
	if err != nil {
		if errors.Is(err, guard.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Tenant not found"})
		}
		log.Error("Failed to load tenant", zap.Error(err))
		return c.JSON(guard.HTTPStatus(err), echo.Map{"message": "Internal Server Error"})
	}

	if err := database.GetDB().Model(tenant).Update("plan", req.Plan).Error; err != nil {
		log.Error("Failed to update tenant plan", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal Server Error"})
	}

	log.Info("Tenant plan updated",
		zap.Uint("tenant_id", tenant.ID),
		zap.String("plan", req.Plan))

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Plan updated successfully",
		"tenant":  tenant,
	})
}

// UpdateUserPlan changes the plan of a user in the caller's tenant. A
// target outside the tenant is indistinguishable from a missing one.
func UpdateUserPlan(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAdminOperation("update_user_plan")

	caller, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthorized"})
	}

	var req struct {
		Plan   string `json:"plan"`
		UserID uint   `json:"userId"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse user plan request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bad Request"})
	}

	if !model.ValidPlan(req.Plan) || req.UserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bad Request"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	target, err := guard.UserInTenant(database.GetDB(), caller.TenantID, req.UserID)
	if err != nil {
		if errors.Is(err, guard.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "User not found"})
		}
		log.Error("Failed to load target user", zap.Error(err))
		return c.JSON(guard.HTTPStatus(err), echo.Map{"message": "Internal Server Error"})
	}

	if err := database.GetDB().Model(target).Update("plan", req.Plan).Error; err != nil {
		log.Error("Failed to update user plan", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal Server Error"})
	}

	log.Info("User plan updated",
		zap.Uint("user_id", target.ID),
		zap.String("plan", req.Plan))

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Plan updated successfully",
		"user":    target,
	})
}

// GetTenantUsers lists the non-deleted users of the caller's tenant.
func GetTenantUsers(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAdminOperation("list_users")

	caller, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthorized"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var users []model.User
	err := database.GetDB().
		Where("tenant_id = ? AND deleted = ?", caller.TenantID, false).
		Find(&users).Error
	if err != nil {
		log.Error("Failed to fetch tenant users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal Server Error"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Users fetched successfully",
		"users":   users,
	})
}

// DeleteUser soft-deletes a user in the caller's tenant and writes an audit
// log entry. Admins cannot delete themselves.
func DeleteUser(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAdminOperation("delete_user")

	caller, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthorized"})
	}

	var req struct {
		UserID uint `json:"userId"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse user deletion request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bad Request"})
	}

	if req.UserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bad Request"})
	}

	if err := guard.NotSelf(&caller, req.UserID); err != nil {
		log.Error("Admin attempted to delete own account", zap.Uint("user_id", caller.ID))
		return c.JSON(guard.HTTPStatus(err), echo.Map{"message": "Cannot perform this action on your own account"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	target, err := guard.UserInTenant(database.GetDB(), caller.TenantID, req.UserID)
	if err != nil {
		if errors.Is(err, guard.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "User not found"})
		}
		log.Error("Failed to load target user", zap.Error(err))
		return c.JSON(guard.HTTPStatus(err), echo.Map{"message": "Internal Server Error"})
	}

	if err := database.GetDB().Model(target).Update("deleted", true).Error; err != nil {
		log.Error("Failed to delete user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal Server Error"})
	}

	writeAuditLog(c, caller.TenantID, target.ID, model.AuditUserDeleted)

	log.Info("User deleted",
		zap.Uint("user_id", target.ID),
		zap.Uint("tenant_id", caller.TenantID),
		zap.Uint("deleted_by", caller.ID))

	return c.JSON(http.StatusOK, echo.Map{
		"message": "User deleted successfully",
	})
}

// UpdateUserRole changes the role of a user in the caller's tenant and
// writes an audit log entry. Admins cannot change their own role.
func UpdateUserRole(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAdminOperation("update_user_role")

	caller, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthorized"})
	}

	var req struct {
		UserID uint   `json:"userId"`
		Role   string `json:"role"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse role update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bad Request"})
	}

	if req.UserID == 0 || !model.ValidRole(req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bad Request"})
	}

	if err := guard.NotSelf(&caller, req.UserID); err != nil {
		log.Error("Admin attempted to change own role", zap.Uint("user_id", caller.ID))
		return c.JSON(guard.HTTPStatus(err), echo.Map{"message": "Cannot perform this action on your own account"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	target, err := guard.UserInTenant(database.GetDB(), caller.TenantID, req.UserID)
	if err != nil {
		if errors.Is(err, guard.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "User not found"})
		}
		log.Error("Failed to load target user", zap.Error(err))
		return c.JSON(guard.HTTPStatus(err), echo.Map{"message": "Internal Server Error"})
	}

	if err := database.GetDB().Model(target).Update("role", req.Role).Error; err != nil {
		log.Error("Failed to update user role", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal Server Error"})
	}

	writeAuditLog(c, caller.TenantID, target.ID, model.AuditRoleUpdated)

	log.Info("User role updated",
		zap.Uint("user_id", target.ID),
		zap.String("role", req.Role),
		zap.Uint("updated_by", caller.ID))

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Role updated successfully",
		"user":    target,
	})
}

// SendInvitation issues an invitation through the injected invite service.
func SendInvitation(svc *invite.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)
		prometheus.RecordAdminOperation("send_invitation")

		caller, ok := middleware.CurrentUser(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthorized"})
		}

		var req struct {
			Email string `json:"email"`
		}

		if err := c.Bind(&req); err != nil {
			log.Error("Failed to parse invitation request", zap.Error(err))
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bad Request"})
		}

		if req.Email == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bad Request"})
		}

		invitation, err := svc.Issue(c.Request().Context(), &caller, req.Email)
		if err != nil {
			if errors.Is(err, guard.ErrEmailDelivery) {
				return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Failed to send invitation email"})
			}
			if errors.Is(err, guard.ErrNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"message": "Tenant not found"})
			}
			log.Error("Failed to issue invitation", zap.Error(err))
			return c.JSON(guard.HTTPStatus(err), echo.Map{"message": "Internal Server Error"})
		}

		prometheus.InvitationSentCounter.Inc()
		log.Info("Invitation sent",
			zap.String("email", req.Email),
			zap.Uint("tenant_id", caller.TenantID))

		return c.JSON(http.StatusCreated, echo.Map{
			"message":    "Invitation sent successfully",
			"invitation": invitation,
		})
	}
}

// GetPendingInvitations lists the unexpired invitations of the caller's
// tenant.
func GetPendingInvitations(svc *invite.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)
		prometheus.RecordAdminOperation("list_invitations")

		caller, ok := middleware.CurrentUser(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthorized"})
		}

		defer prometheus.TrackDBOperation("query")(time.Now())
		invitations, err := svc.Pending(caller.TenantID)
		if err != nil {
			log.Error("Failed to fetch invitations", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal Server Error"})
		}

		return c.JSON(http.StatusOK, echo.Map{
			"message":     "Invitations fetched successfully",
			"invitations": invitations,
		})
	}
}

// GetTenantStats returns counts of active users, notes and pending
// invitations for the caller's tenant.
func GetTenantStats(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAdminOperation("stats")

	caller, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthorized"})
	}

	db := database.GetDB()
	defer prometheus.TrackDBOperation("query")(time.Now())

	var userCount, noteCount, invitationCount int64
	if err := db.Model(&model.User{}).
		Where("tenant_id = ? AND deleted = ?", caller.TenantID, false).
		Count(&userCount).Error; err != nil {
		log.Error("Failed to count users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal Server Error"})
	}
	if err := db.Model(&model.Note{}).
		Where("tenant_id = ? AND deleted = ?", caller.TenantID, false).
		Count(&noteCount).Error; err != nil {
		log.Error("Failed to count notes", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal Server Error"})
	}
	if err := db.Model(&model.Invitation{}).
		Where("tenant_id = ? AND expires_at > ?", caller.TenantID, time.Now()).
		Count(&invitationCount).Error; err != nil {
		log.Error("Failed to count invitations", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal Server Error"})
	}

	prometheus.UpdateNotesPerTenant(caller.TenantID, noteCount)

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Stats fetched successfully",
		"stats": echo.Map{
			"users":              userCount,
			"notes":              noteCount,
			"pendingInvitations": invitationCount,
		},
	})
}

// GetAuditLogs lists the audit entries of the caller's tenant, newest
// first.
func GetAuditLogs(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAdminOperation("audit_logs")

	caller, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthorized"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var logs []model.AuditLog
	err := database.GetDB().
		Where("tenant_id = ?", caller.TenantID).
		Order("created_at DESC").
		Limit(100).
		Find(&logs).Error
	if err != nil {
		log.Error("Failed to fetch audit logs", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal Server Error"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Audit logs fetched successfully",
		"logs":    logs,
	})
}

// writeAuditLog appends an audit entry for a privileged mutation. Audit
// writes never fail the surrounding request.
func writeAuditLog(c echo.Context, tenantID, userID uint, action string) {
	entry := model.AuditLog{
		TenantID: tenantID,
		UserID:   userID,
		Action:   action,
	}
	if err := database.GetDB().Create(&entry).Error; err != nil {
		logger.FromContext(c).Error("Failed to write audit log",
			zap.String("action", action),
			zap.Error(err))
	}
}
