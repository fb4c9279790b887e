package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/spec-kit/custody-service/internal/api/http/handlers"
	"github.com/spec-kit/custody-service/internal/auth"
	"github.com/spec-kit/custody-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Acquisitions   *handlers.AcquisitionHandler
	Transports     *handlers.TransportHandler
	Processings    *handlers.ProcessingHandler
	Disposals      *handlers.DisposalHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	LoginLimit     int
	LoginWindow    time.Duration
}

// RegisterRoutes wires HTTP routes. Reads on a stage are open to the owning
// role, the next stage downstream, and administrators; writes only to the
// owning role.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", loginLimiter(cfg.LoginLimit, cfg.LoginWindow), cfg.Auth.Login)
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Get("/verify-token/:token", cfg.Auth.VerifyToken)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle)
	authProtected.Post("/logout", cfg.Auth.Logout)
	authProtected.Post("/verify-fingerprint", cfg.Auth.VerifyFingerprint)
	authProtected.Post("/seal-sample", cfg.Auth.SealSample)
	authProtected.Post("/generate-token",
		auth.RequireRole(domain.RoleAdministrator), cfg.Auth.GenerateToken)

	acquisitions := app.Group("/acquisitions", cfg.AuthMiddleware.Handle)
	acquisitions.Post("",
		auth.RequireRole(domain.RoleAcquisition), cfg.Acquisitions.Create)
	acquisitions.Get("",
		auth.RequireRole(domain.RoleAcquisition, domain.RoleTransport, domain.RoleAdministrator), cfg.Acquisitions.List)
	acquisitions.Get("/:id",
		auth.RequireRole(domain.RoleAcquisition, domain.RoleTransport, domain.RoleAdministrator), cfg.Acquisitions.Get)
	acquisitions.Patch("/:id/review",
		auth.RequireRole(domain.RoleAdministrator), cfg.Acquisitions.Review)
	acquisitions.Patch("/:id/correct",
		auth.RequireRole(domain.RoleAdministrator), cfg.Acquisitions.Correct)

	transports := app.Group("/transports", cfg.AuthMiddleware.Handle)
	transports.Post("",
		auth.RequireRole(domain.RoleTransport), cfg.Transports.Create)
	transports.Get("",
		auth.RequireRole(domain.RoleTransport, domain.RoleProcessing, domain.RoleAdministrator), cfg.Transports.List)
	transports.Get("/:id",
		auth.RequireRole(domain.RoleTransport, domain.RoleProcessing, domain.RoleAdministrator), cfg.Transports.Get)
	transports.Patch("/:id/review",
		auth.RequireRole(domain.RoleAdministrator), cfg.Transports.Review)
	transports.Patch("/:id/deliver",
		auth.RequireRole(domain.RoleTransport, domain.RoleAdministrator), cfg.Transports.Deliver)
	transports.Patch("/:id/border-crossing",
		auth.RequireRole(domain.RoleTransport, domain.RoleAdministrator), cfg.Transports.UpdateBorderCrossing)

	processings := app.Group("/processings", cfg.AuthMiddleware.Handle)
	processings.Post("",
		auth.RequireRole(domain.RoleProcessing), cfg.Processings.Create)
	processings.Get("",
		auth.RequireRole(domain.RoleProcessing, domain.RoleDisposal, domain.RoleAdministrator), cfg.Processings.List)
	processings.Get("/:id",
		auth.RequireRole(domain.RoleProcessing, domain.RoleDisposal, domain.RoleAdministrator), cfg.Processings.Get)
	processings.Patch("/:id/review",
		auth.RequireRole(domain.RoleAdministrator), cfg.Processings.Review)
	processings.Patch("/:id/package",
		auth.RequireRole(domain.RoleProcessing, domain.RoleAdministrator), cfg.Processings.Package)
	processings.Patch("/:id/quality",
		auth.RequireRole(domain.RoleProcessing, domain.RoleAdministrator), cfg.Processings.UpdateQuality)

	disposals := app.Group("/disposals", cfg.AuthMiddleware.Handle)
	disposals.Post("",
		auth.RequireRole(domain.RoleDisposal), cfg.Disposals.Create)
	disposals.Get("",
		auth.RequireRole(domain.RoleDisposal, domain.RoleAdministrator), cfg.Disposals.List)
	disposals.Get("/:id",
		auth.RequireRole(domain.RoleDisposal, domain.RoleAdministrator), cfg.Disposals.Get)
	disposals.Patch("/:id/fulfil",
		auth.RequireRole(domain.RoleDisposal, domain.RoleAdministrator), cfg.Disposals.Fulfil)
	disposals.Patch("/:id/cancel",
		auth.RequireRole(domain.RoleDisposal, domain.RoleAdministrator), cfg.Disposals.Cancel)
	disposals.Patch("/:id/payment",
		auth.RequireRole(domain.RoleDisposal, domain.RoleAdministrator), cfg.Disposals.UpdatePayment)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdministrator))
	admin.Get("/identities", cfg.Admin.ListIdentities)
	admin.Patch("/identities/:id/active", cfg.Admin.SetIdentityActive)
	admin.Get("/chain/:acquisitionId", cfg.Admin.ChainOfCustody)
	admin.Get("/metrics", cfg.Admin.Metrics)
}

func loginLimiter(max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 100
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"code":    "RATE_LIMITED",
				"error":   "too many login attempts, try again later",
			})
		},
	})
}
