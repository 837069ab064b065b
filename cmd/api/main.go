package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/quotagate/quotagate-backend/api/routes"
	"github.com/quotagate/quotagate-backend/internal/auth"
	"github.com/quotagate/quotagate-backend/internal/billing"
	"github.com/quotagate/quotagate-backend/internal/credentials"
	"github.com/quotagate/quotagate-backend/internal/guard"
	"github.com/quotagate/quotagate-backend/internal/identity"
	"github.com/quotagate/quotagate-backend/internal/usage"
	"github.com/quotagate/quotagate-backend/internal/users"
	"github.com/quotagate/quotagate-backend/pkg/auth/session"
	"github.com/quotagate/quotagate-backend/pkg/config"
	"github.com/quotagate/quotagate-backend/pkg/db"
	"github.com/quotagate/quotagate-backend/pkg/logger"
	"github.com/quotagate/quotagate-backend/pkg/metrics"
	"github.com/quotagate/quotagate-backend/pkg/migrate"
	"github.com/quotagate/quotagate-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	keysRepo := credentials.NewRepository(dbClient.DB())
	billingRepo := billing.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	credentialsService, err := credentials.NewService(credentials.ServiceParams{Repo: keysRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create credentials service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	guardMetrics := metrics.NewGuardMetrics(registry)

	billingService, err := billing.NewService(billing.ServiceParams{
		Repo:          billingRepo,
		PaymentConfig: cfg.Payment,
		BillingConfig: cfg.Billing,
		Logger:        logg,
		Metrics:       guardMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create billing service", err)
		os.Exit(1)
	}

	resolver, err := identity.NewResolver(identity.ResolverParams{
		KeyRepo:    keysRepo,
		WalletRepo: usersRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create identity resolver", err)
		os.Exit(1)
	}

	recorder, err := usage.NewRecorder(usage.RecorderParams{
		Repo:      billingRepo,
		Logger:    logg,
		QueueSize: cfg.Billing.UsageQueueSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create usage recorder", err)
		os.Exit(1)
	}
	defer recorder.Close()

	guardService, err := guard.NewService(guard.ServiceParams{
		Resolver:      resolver,
		StateRepo:     billingRepo,
		Recorder:      recorder,
		PaymentConfig: cfg.Payment,
		BillingConfig: cfg.Billing,
		Logger:        logg,
		Metrics:       guardMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create guard service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:         cfg,
			Logger:         logg,
			DBPinger:       dbClient,
			RedisClient:    redisClient,
			SessionManager: sessionManager,
			AuthService:    authService,
			RegisterSvc:    registerService,
			Credentials:    credentialsService,
			Billing:        billingService,
			Guard:          guardService,
			Metrics:        registry,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
