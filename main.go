package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pos_admin/api"
	"pos_admin/internal/auth"
	"pos_admin/internal/config"
	"pos_admin/internal/events"
	"pos_admin/internal/metrics"
	"pos_admin/internal/sales"
	"pos_admin/internal/supabase"
	"pos_admin/internal/users"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	cfg, err := config.Load(envFile)
	if err != nil {
		panic(fmt.Errorf("error loading config: %w", err))
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("error creating logger: %w", err))
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	if err := zcfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	return zcfg.Build()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery())

	var publisher events.Publisher = events.NewLogPublisher(logger)
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		publisher = events.NewKafkaPublisher(brokers, cfg.KafkaTopic, logger)
		logger.Info("publishing events to kafka", zap.Strings("brokers", brokers), zap.String("topic", cfg.KafkaTopic))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("error closing event publisher", zap.Error(err))
		}
	}()

	var (
		memberStore users.Storage
		credentials users.Credentials
		saleStore   sales.Storage
	)
	switch cfg.StorageBackend {
	case config.BackendMemory:
		localMembers, localSales := seedLocalStorage()
		memberStore, credentials, saleStore = localMembers, users.NewLocalCredentials(), localSales
		logger.Warn("using in-memory storage, changes are lost on restart")
	default:
		client, err := supabase.New(supabase.Config{
			URL:        cfg.SupabaseURL,
			AnonKey:    cfg.SupabaseAnonKey,
			ServiceKey: cfg.SupabaseServiceKey,
			Timeout:    cfg.RequestTimeout,
			Retries:    cfg.BackendRetries,
		})
		if err != nil {
			return fmt.Errorf("error creating supabase client: %w", err)
		}
		defer client.Close()
		memberStore = users.NewSupabaseStorage(client)
		credentials = users.NewSupabaseCredentials(client)
		saleStore = sales.NewSupabaseStorage(client)
	}

	deps := api.Dependencies{
		Users: users.NewService(memberStore, credentials, publisher, logger, users.Options{
			PageSize:      cfg.DefaultPageSize,
			LookupTimeout: cfg.RequestTimeout,
		}),
		Sales:          sales.NewService(saleStore, publisher, logger, cfg.DefaultPageSize),
		Logger:         logger,
		Metrics:        metrics.New(),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}
	if cfg.SupabaseJWTSecret != "" {
		deps.Verifier = auth.NewVerifier(cfg.SupabaseJWTSecret, logger)
	} else {
		logger.Warn("SUPABASE_JWT_SECRET not set, bearer tokens are forwarded without verification")
	}
	api.InitRoutes(r, deps)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr), zap.String("storage", cfg.StorageBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("error trying to start server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// seedLocalStorage loads a few records so the in-memory backend is usable
// for demos.
func seedLocalStorage() (*users.LocalStorage, *sales.LocalStorage) {
	members := users.NewLocalStorage()
	for _, m := range []*users.Member{
		{ID: "1", Name: "Admin", Lastname: "General", Role: users.RoleAdmin, Status: users.StatusActive},
		{ID: "2", Name: "Valeria", Lastname: "Paz", Role: users.RoleSeller, Status: users.StatusActive},
		{ID: "3", Name: "Jorge", Lastname: "Luna", Role: users.RoleStorekeeper, Status: users.StatusInactive},
	} {
		_ = members.Set(m)
	}

	saleStore := sales.NewLocalStorage()
	now := time.Now().UTC().Truncate(time.Minute)
	for i, s := range []*sales.Sale{
		{Customer: sales.Customer{FirstName: "Lucia", LastName: "Gomez"}, Total: decimal.RequireFromString("120.50"), Status: sales.StatusCompleted},
		{Customer: sales.Customer{FirstName: "Mario", LastName: "Diaz"}, Total: decimal.RequireFromString("35.00"), Status: sales.StatusCanceled},
		{Customer: sales.Customer{FirstName: "Rosa"}, Total: decimal.RequireFromString("89.90"), Status: sales.StatusCompleted},
	} {
		s.ID = int64(i + 1)
		s.SaleDate = now.Add(-time.Duration(i) * 24 * time.Hour)
		_ = saleStore.Set(s)
	}
	return members, saleStore
}
