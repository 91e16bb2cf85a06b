package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/gctu/certificate-registry/docs"
	"github.com/gctu/certificate-registry/internal/api/handler"
	"github.com/gctu/certificate-registry/internal/api/middleware"
	"github.com/gctu/certificate-registry/internal/core/domain"
	"github.com/gctu/certificate-registry/internal/core/ports"
	"github.com/gctu/certificate-registry/internal/core/service"
	mongorepo "github.com/gctu/certificate-registry/internal/infrastructure/db/mongo"
	redisdb "github.com/gctu/certificate-registry/internal/infrastructure/db/redis"
	"github.com/gctu/certificate-registry/internal/infrastructure/storage"
)

// RouterDeps carries the infrastructure the router wires together.
type RouterDeps struct {
	Mongo          *mongo.Database
	Redis          *redis.Client
	Store          *storage.LocalStore
	Anchor         ports.AnchorWriter
	Audit          ports.AuditRecorder
	JWTSecret      string
	MaxUploadBytes int64
	Logger         zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("certreg"))

	// --- Repositories ---
	userRepo := mongorepo.NewUserRepository(deps.Mongo)
	instRepo := mongorepo.NewInstitutionRepository(deps.Mongo)
	certRepo := mongorepo.NewCertificateRepository(deps.Mongo)
	auditRepo := mongorepo.NewAuditRepository(deps.Mongo)
	verdictCache := redisdb.NewVerdictCache(deps.Redis)

	// --- Services ---
	authService := service.NewAuthService(userRepo, instRepo, deps.Audit, deps.JWTSecret, 24*time.Hour)
	certService := service.NewCertificateService(
		certRepo, userRepo, instRepo, deps.Store, deps.Anchor,
		deps.Audit, auditRepo, verdictCache, deps.Logger,
	)
	verifyService := service.NewVerificationService(
		certRepo, userRepo, instRepo, deps.Audit, verdictCache, deps.Logger,
	)

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(authService)
	certHandler := handler.NewCertificateHandler(certService, deps.MaxUploadBytes)
	verifyHandler := handler.NewVerifyHandler(verifyService, deps.MaxUploadBytes)
	studentHandler := handler.NewStudentHandler(certService, deps.MaxUploadBytes)
	auditHandler := handler.NewAuditHandler(certService)

	authRequired := middleware.Auth(deps.JWTSecret)
	authOptional := middleware.OptionalAuth(deps.JWTSecret)
	adminOnly := middleware.RBAC(domain.RoleAdmin)
	studentOnly := middleware.RBAC(domain.RoleStudent)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Certificate routes ---
	e.POST("/certificates/issue", certHandler.Issue, authRequired, adminOnly)
	e.GET("/certificates/all", certHandler.ListAll, authRequired, adminOnly)
	e.GET("/certificates/student", certHandler.ListMine, authRequired, studentOnly)
	e.GET("/certificates/:id/download", certHandler.Download, authRequired, studentOnly)
	e.POST("/certificates/delete", certHandler.Delete, authRequired, adminOnly)
	e.GET("/institution", certHandler.Institution, authRequired, adminOnly)
	e.POST("/revoke", certHandler.Revoke, authRequired, adminOnly)

	// --- Public verification ---
	e.GET("/certificates/verify/:hash", verifyHandler.VerifyByHash, authOptional)
	e.POST("/verify", verifyHandler.VerifyArtifact, authOptional)

	// --- Student administration ---
	e.POST("/students/delete", studentHandler.Delete, authRequired, adminOnly)
	e.POST("/students/update-info", studentHandler.UpdateInfo, authRequired, adminOnly)
	e.POST("/students/update-photo", studentHandler.UpdatePhoto, authRequired, adminOnly)

	// --- Audit trail ---
	e.GET("/audit-logs", auditHandler.List, authRequired, adminOnly)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Mongo, deps.Redis, deps.Store)

	e.GET("/health", healthHandler.Liveness)          // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	// --- Observability and docs ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	return e
}
