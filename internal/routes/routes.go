package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/moja-pay/moja_pay/internal/audit"
	"github.com/moja-pay/moja_pay/internal/auth"
	"github.com/moja-pay/moja_pay/internal/catalog"
	"github.com/moja-pay/moja_pay/internal/config"
	"github.com/moja-pay/moja_pay/internal/guard"
	"github.com/moja-pay/moja_pay/internal/identity"
	"github.com/moja-pay/moja_pay/internal/ledger"
	"github.com/moja-pay/moja_pay/internal/middleware"
	"github.com/moja-pay/moja_pay/internal/notification"
	"github.com/moja-pay/moja_pay/internal/purchase"
	"github.com/moja-pay/moja_pay/internal/reporting"
	"github.com/moja-pay/moja_pay/internal/topup"
	"github.com/moja-pay/moja_pay/internal/voucher"
	"github.com/moja-pay/moja_pay/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. Without a database
// the in-memory backends are used, which only dev mode allows.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	if !d.Cfg.IsDev() {
		// Structured request log alongside the plain access log.
		app.Use(middleware.Audit(d.Logger))
	}
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	// Storage backends.
	var (
		ledgerBackend ledger.Ledger
		walletRepo    wallet.Repository
		topupRepo     topup.Repository
		catalogRepo   catalog.Repository
		purchaseRepo  purchase.Repository
		allocator     voucher.Allocator
		identityRepo  identity.Repository
	)
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
		walletRepo = wallet.NewPostgresRepository(d.DB)
		topupRepo = topup.NewPostgresRepository(d.DB)
		catalogRepo = catalog.NewPostgresRepository(d.DB)
		purchaseRepo = purchase.NewPostgresRepository(d.DB)
		allocator = voucher.NewPostgresAllocator(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory()
		walletRepo = wallet.NewMemoryRepository()
		topupRepo = topup.NewMemoryRepository()
		catalogRepo = catalog.NewMemoryRepository()
		purchaseRepo = purchase.NewMemoryRepository()
		allocator = voucher.NewMemoryAllocator()
		identityRepo = identity.NewMemoryRepository()
	}

	// Services.
	g := guard.New(d.Cfg.LaneWaitTimeout, d.Cfg.LaneRetryAttempts)
	notifier := notification.NewLoggerNotifier(d.Logger)
	auditor := audit.NewLoggerRecorder(d.Logger)

	walletSvc := wallet.NewService(walletRepo, ledgerBackend, g, notifier)
	topupSvc := topup.NewService(topupRepo, walletSvc, ledgerBackend, g, notifier, auditor, topup.Bounds{
		Min: d.Cfg.TopupMinAmount,
		Max: d.Cfg.TopupMaxAmount,
	})
	purchaseSvc := purchase.NewService(purchaseRepo, catalogRepo, allocator, walletSvc, ledgerBackend, g, notifier)
	reportingSvc := reporting.NewService(purchaseRepo)
	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg, identityRepo)

	// The admin-gated surface is only reachable through the seeded account.
	if d.Cfg.AdminPhone != "" && d.Cfg.AdminPIN != "" {
		adminUser, err := identitySvc.EnsureAdmin(context.Background(), d.Cfg.AdminPhone, d.Cfg.AdminPIN)
		if err != nil {
			return fmt.Errorf("seed admin account: %w", err)
		}
		if d.Logger != nil {
			d.Logger.Info("admin account ready", "user_id", adminUser.ID, "phone", adminUser.Phone)
		}
	}

	// Handlers.
	walletHandler := wallet.NewHandler(walletSvc, auditor)
	topupHandler := topup.NewHandler(topupSvc)
	catalogHandler := catalog.NewHandler(catalogRepo, allocator, auditor)
	purchaseHandler := purchase.NewHandler(purchaseSvc)
	reportingHandler := reporting.NewHandler(reportingSvc)
	authHandler := auth.NewHandler(identitySvc, authSvc, walletSvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes.
	RegisterIdentityRoutes(api, identitySvc, walletSvc, d.Logger)
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, authHandler, rateLimiter)

	// Authenticated routes.
	jwtmw := middleware.JWTAuth(d.Cfg, identityRepo)
	protected := api.Group("", jwtmw)
	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/me", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		if uid == "" {
			return c.SendStatus(http.StatusUnauthorized)
		}
		user, err := identityRepo.FindByID(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		return c.JSON(fiber.Map{
			"user_id":       user.ID,
			"phone":         user.Phone,
			"role":          user.Role,
			"device_id":     user.DeviceID,
			"token_version": user.TokenVersion,
			"created_at":    user.CreatedAt,
		})
	})

	admin := middleware.RequireAdmin()
	RegisterWalletRoutes(protected, walletHandler, admin)
	RegisterTopupRoutes(protected, topupHandler, admin)
	RegisterCatalogRoutes(protected, catalogHandler, admin)
	RegisterPurchaseRoutes(protected, purchaseHandler)
	RegisterReportingRoutes(protected, reportingHandler, admin)

	return nil
}
