package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-desk/internal/api/http"
	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/guard"
	"github.com/spec-kit/support-desk/internal/identity"
	"github.com/spec-kit/support-desk/internal/kvstore"
	"github.com/spec-kit/support-desk/internal/notify"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/permission"
	"github.com/spec-kit/support-desk/internal/role"
	"github.com/spec-kit/support-desk/internal/ticket"
	"github.com/spec-kit/support-desk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var kv kvstore.Store
	var backend handlers.Pinger
	switch cfg.Persistence.Driver {
	case "postgres":
		pg, err := kvstore.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()
		kv, backend = pg, pg
	case "memory":
		logger.Warn("using in-memory persistence; data will not survive restarts")
		kv = kvstore.NewMemory()
	default:
		rd := kvstore.NewRedis(cfg.Redis, logger)
		defer rd.Close()
		kv, backend = rd, rd
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	notifier := notify.NewNotifier(dispatcher, logger)
	worker.StartNotificationWorker(notifier)

	registry, err := role.NewRegistry(ctx, kv, cfg.Persistence.RolesKey, logger)
	if err != nil {
		logger.Fatal("failed to load role registry", zap.Error(err))
	}
	if err := registry.Bootstrap(ctx); err != nil {
		logger.Fatal("failed to bootstrap system roles", zap.Error(err))
	}
	permResolver := permission.NewResolver(registry)

	ticketStore, err := ticket.NewStore(ctx, kv, cfg.Persistence.TicketsKey, dispatcher, logger)
	if err != nil {
		logger.Fatal("failed to load ticket store", zap.Error(err))
	}

	tokens := identity.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	provider := identity.NewMockProvider(tokens, cfg.Auth.BcryptCost, cfg.Identity.AttributeLag(), logger)
	seedIdentities(provider, logger)
	sessionResolver := identity.NewResolver(provider,
		cfg.Identity.AttributeRetryAttempts, cfg.Identity.AttributeRetryDelay(), logger)

	routeGuard := guard.New(sessionResolver, permResolver)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:       handlers.NewHealthHandler(backend),
		Auth:         handlers.NewAuthHandler(sessionResolver),
		Tickets:      handlers.NewTicketsHandler(ticketStore),
		StaffTickets: handlers.NewStaffTicketsHandler(ticketStore, permResolver),
		Roles:        handlers.NewRolesHandler(registry),
		Guard:        routeGuard,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// seedIdentities fills the mocked provider's directory with the
// development accounts. The provider is a stand-in for the real
// identity service and carries no production credentials.
func seedIdentities(provider *identity.MockProvider, logger *zap.Logger) {
	seeds := []struct {
		identifier string
		password   string
		actor      domain.Actor
		attributes map[string]string
	}{
		{"admin@desk.local", "admin-dev", domain.Actor{ID: "emp-admin", Role: permission.AdminRoleID, Kind: domain.ActorKindStaff},
			map[string]string{"name": "Desk Administrator"}},
		{"manager@desk.local", "manager-dev", domain.Actor{ID: "emp-mgr", Role: "support-manager", Kind: domain.ActorKindStaff},
			map[string]string{"name": "Support Manager"}},
		{"agent@desk.local", "agent-dev", domain.Actor{ID: "emp-1", Role: "support-agent", Kind: domain.ActorKindStaff},
			map[string]string{"name": "Support Agent"}},
		{"customer@example.com", "customer-dev", domain.Actor{ID: "cust-1", Role: "customer", Kind: domain.ActorKindCustomer},
			map[string]string{"name": "Example Customer"}},
	}
	for _, seed := range seeds {
		if err := provider.Seed(seed.identifier, seed.password, seed.actor, seed.attributes); err != nil {
			logger.Warn("failed to seed identity", zap.String("identifier", seed.identifier), zap.Error(err))
		}
	}
	logger.Info("identity directory seeded", zap.Int("count", len(seeds)))
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
