package handler

import (
	"errors"
	"net/http"
	"time"

	"isolate/internal/model"
	"isolate/pkg/database"
	"isolate/pkg/jwtutil"
	"isolate/pkg/logger"
	"isolate/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegisterTenant creates a new tenant on the FREE plan.
func RegisterTenant(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.TenantRegisterCounter.Inc()

	var req struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse tenant registration request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bad Request"})
	}

	if req.Name == "" || req.Slug == "" {
		log.Error("Invalid tenant registration data", zap.String("slug", req.Slug))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bad Request"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var existing model.Tenant
	result := database.GetDB().Where("slug = ?", req.Slug).First(&existing)
	if result.Error == nil {
		log.Error("Tenant already exists", zap.String("slug", req.Slug))
		return c.JSON(http.StatusConflict, echo.Map{"message": "Tenant already exists"})
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		log.Error("Failed to check tenant slug", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal Server Error"})
	}

	tenant := model.Tenant{
		Name: req.Name,
		Slug: req.Slug,
		Plan: model.PlanFree,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&tenant); result.Error != nil {
		log.Error("Failed to create tenant", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal Server Error"})
	}

	log.Info("Tenant registered", zap.String("slug", tenant.Slug), zap.Uint("id", tenant.ID))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Tenant created successfully",
		"tenant":  tenant,
	})
}

// Register creates a user under the tenant identified by slug and returns a
// token for the new user.
func Register(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
		Slug     string `json:"slug"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bad Request"})
	}

	if req.Email == "" || req.Password == "" || req.Role == "" || req.Slug == "" {
		log.Error("Incomplete registration data", zap.String("email", req.Email))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bad Request"})
	}

	if !model.ValidRole(req.Role) {
		log.Error("Unknown role in registration", zap.String("role", req.Role))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bad Request"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var existing model.User
	if result := database.GetDB().Where("email = ?", req.Email).First(&existing); result.Error == nil {
		log.Error("User already exists", zap.String("email", req.Email))
		return c.JSON(http.StatusConflict, echo.Map{"message": "User already exists"})
	}

	var tenant model.Tenant
	if result := database.GetDB().Where("slug = ?", req.Slug).First(&tenant); result.Error != nil {
		log.Error("Tenant not found for registration", zap.String("slug", req.Slug))
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Tenant not found"})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal Server Error"})
	}

	user := model.User{
		Email:    req.Email,
		Password: string(hashedPassword),
		Role:     req.Role,
		Plan:     model.PlanFree,
		TenantID: tenant.ID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&user); result.Error != nil {
		log.Error("Failed to create user", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal Server Error"})
	}

	token, err := jwtutil.GenerateToken(&user)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal Server Error"})
	}

	prometheus.IncreaseActiveTokens()
	log.Info("User registered",
		zap.String("email", user.Email),
		zap.Uint("tenant_id", user.TenantID),
		zap.String("role", user.Role))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User created successfully",
		"user":    user,
		"token":   token,
	})
}

// Login verifies credentials and returns a token.
func Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bad Request"})
	}

	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Bad Request"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	if result := database.GetDB().Where("email = ?", req.Email).First(&user); result.Error != nil {
		log.Error("User not found", zap.String("email", req.Email))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"message": "User not found"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Error("Invalid password", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthorized"})
	}

	token, err := jwtutil.GenerateToken(&user)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal Server Error"})
	}

	prometheus.IncreaseActiveTokens()
	log.Info("User logged in",
		zap.String("email", user.Email),
		zap.Uint("tenant_id", user.TenantID))

	return c.JSON(http.StatusOK, echo.Map{
		"message": "User logged in successfully",
		"user":    user,
		"token":   token,
	})
}
