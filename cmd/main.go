package main

import (
	"isolate/internal/handler"
	"isolate/internal/invite"
	"isolate/internal/mailer"
	"isolate/internal/middleware"
	"isolate/internal/model"
	"isolate/pkg/config"
	"isolate/pkg/database"
	"isolate/pkg/jwtutil"
	"isolate/pkg/logger"
	"isolate/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(cfg); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting isolate backend...", zap.String("environment", cfg.Server.Env))

	// Initialize database
	if err := database.Initialize(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize JWT utility
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utility initialized")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized")

	// Build the email client once at startup and inject it into the
	// invitation issuer
	smtp, err := mailer.New(&cfg.SMTP, log)
	if err != nil {
		log.Fatal("Failed to initialize mailer", zap.Error(err))
	}
	invites := invite.NewService(database.GetDB(), smtp, cfg.Server.AppURL, log)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Authentication routes
	auth := e.Group("/auth")
	auth.POST("/register-tenant", handler.RegisterTenant)
	auth.POST("/register", handler.Register)
	auth.POST("/login", handler.Login)

	// Member note routes - token resolution then role gate
	user := e.Group("/user")
	user.Use(middleware.AuthMiddleware)
	user.Use(middleware.RequireRole(model.RoleMember))
	user.POST("/create-node", handler.CreateNote)
	user.GET("/get-tenant-notes", handler.GetTenantNotes)
	user.GET("/get-user-notes", handler.GetUserNotes)
	user.GET("/get-note", handler.GetNote)
	user.PUT("/update-note", handler.UpdateNote)
	user.DELETE("/delete-note", handler.DeleteNote)

	// Admin routes
	admin := e.Group("/admin")
	admin.Use(middleware.AuthMiddleware)
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	admin.POST("/update-tenant-plan", handler.UpdateTenantPlan)
	admin.POST("/update-user-plan", handler.UpdateUserPlan)
	admin.GET("/users", handler.GetTenantUsers)
	admin.POST("/delete-user", handler.DeleteUser)
	admin.POST("/update-user-role", handler.UpdateUserRole)
	admin.POST("/send-invitation", handler.SendInvitation(invites))
	admin.GET("/invitations", handler.GetPendingInvitations(invites))
	admin.GET("/stats", handler.GetTenantStats)
	admin.GET("/audit-logs", handler.GetAuditLogs)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
