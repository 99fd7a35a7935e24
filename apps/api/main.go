package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-storefront/contracts"
	accountshandler "github.com/zenGate-Global/palmyra-storefront/domains/accounts/be/handler"
	accountsrepo "github.com/zenGate-Global/palmyra-storefront/domains/accounts/be/repo"
	accountsservice "github.com/zenGate-Global/palmyra-storefront/domains/accounts/be/service"
	cartshandler "github.com/zenGate-Global/palmyra-storefront/domains/carts/be/handler"
	cartsrepo "github.com/zenGate-Global/palmyra-storefront/domains/carts/be/repo"
	cartsservice "github.com/zenGate-Global/palmyra-storefront/domains/carts/be/service"
	cataloghandler "github.com/zenGate-Global/palmyra-storefront/domains/catalog/be/handler"
	catalogrepo "github.com/zenGate-Global/palmyra-storefront/domains/catalog/be/repo"
	catalogservice "github.com/zenGate-Global/palmyra-storefront/domains/catalog/be/service"
	"github.com/zenGate-Global/palmyra-storefront/domains/orders/be/feed"
	ordershandler "github.com/zenGate-Global/palmyra-storefront/domains/orders/be/handler"
	"github.com/zenGate-Global/palmyra-storefront/domains/orders/be/notify"
	ordersrepo "github.com/zenGate-Global/palmyra-storefront/domains/orders/be/repo"
	ordersservice "github.com/zenGate-Global/palmyra-storefront/domains/orders/be/service"
	reportshandler "github.com/zenGate-Global/palmyra-storefront/domains/reports/be/handler"
	reportsservice "github.com/zenGate-Global/palmyra-storefront/domains/reports/be/service"
	shippinghandler "github.com/zenGate-Global/palmyra-storefront/domains/shipping/be/handler"
	"github.com/zenGate-Global/palmyra-storefront/domains/shipping/be/rajaongkir"
	shippingservice "github.com/zenGate-Global/palmyra-storefront/domains/shipping/be/service"
	tenantshandler "github.com/zenGate-Global/palmyra-storefront/domains/tenants/be/handler"
	tenantsrepo "github.com/zenGate-Global/palmyra-storefront/domains/tenants/be/repo"
	tenantsservice "github.com/zenGate-Global/palmyra-storefront/domains/tenants/be/service"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/cache"
	platformlogging "github.com/zenGate-Global/palmyra-storefront/platform/go/logging"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/messaging"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/metrics"
	platformmiddleware "github.com/zenGate-Global/palmyra-storefront/platform/go/middleware"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/storage"
	tenantmiddleware "github.com/zenGate-Global/palmyra-storefront/platform/go/tenant/middleware"
)

type config struct {
	Port               string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL        string        `env:"DATABASE_URL,required"`
	ApplySchema        bool          `env:"APPLY_SCHEMA" envDefault:"true"`
	AuthProvider       string        `env:"AUTH_PROVIDER" envDefault:"firebase"` // firebase | dev
	EnvKey             string        `env:"ENV_KEY,required"`
	ProfileBackend     string        `env:"PROFILE_BACKEND" envDefault:"postgres"` // postgres | firestore
	StorageBackend     string        `env:"STORAGE_BACKEND" envDefault:"gcs"`      // gcs | local
	StorageBucket      string        `env:"STORAGE_BUCKET"`                        // required when STORAGE_BACKEND=gcs
	StorageLocalDir    string        `env:"STORAGE_LOCAL_DIR" envDefault:"./.data/storage"`
	CORSOrigins        []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	RedisURL           string        `env:"REDIS_URL"`    // empty keeps carts and the order feed in memory
	RabbitMQURL        string        `env:"RABBITMQ_URL"` // empty logs notifications instead
	NotifyExchange     string        `env:"NOTIFY_EXCHANGE" envDefault:"storefront.events"`
	SuperAdminSecret   string        `env:"SUPERADMIN_SECRET"`
	RajaOngkirAPIKey   string        `env:"RAJAONGKIR_API_KEY"`
	RajaOngkirBaseURL  string        `env:"RAJAONGKIR_BASE_URL" envDefault:"https://api.rajaongkir.com/starter"`
	TrialDays          int           `env:"TRIAL_DAYS" envDefault:"7"`
	TrialExtensionDays int           `env:"TRIAL_EXTENSION_DAYS" envDefault:"30"`
	ProfileRetries     int           `env:"PROFILE_RETRIES" envDefault:"3"`
	ProfileRetryDelay  time.Duration `env:"PROFILE_RETRY_DELAY" envDefault:"1s"`
	TenantCacheTTL     time.Duration `env:"TENANT_CACHE_TTL" envDefault:"30s"`
	CartTTL            time.Duration `env:"CART_TTL" envDefault:"720h"`
	StoreTimezone      string        `env:"STORE_TIMEZONE" envDefault:"Asia/Jakarta"`
}

func main() {
	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "storefront-api",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	storeLocation, err := time.LoadLocation(cfg.StoreTimezone)
	if err != nil {
		logger.Fatal("load store timezone", zap.String("timezone", cfg.StoreTimezone), zap.Error(err))
	}

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	if cfg.ApplySchema {
		if err := persistence.ApplySchema(ctx, pool); err != nil {
			logger.Fatal("apply schema", zap.Error(err))
		}
	}

	m := metrics.New("storefront")

	// ---- Optional infrastructure ----
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.Connect(ctx, cache.Config{URL: cfg.RedisURL, MaxRetries: 5})
		if err != nil {
			logger.Fatal("connect redis", zap.Error(err))
		}
		defer func() { _ = redisClient.Close() }()
	}

	var publisher *messaging.Publisher
	if cfg.RabbitMQURL != "" {
		publisher, err = messaging.Dial(messaging.Config{URL: cfg.RabbitMQURL, Exchange: cfg.NotifyExchange})
		if err != nil {
			logger.Fatal("connect rabbitmq", zap.Error(err))
		}
		defer func() { _ = publisher.Close() }()
	}

	objectStore := buildObjectStore(ctx, cfg, logger)

	// ---- Tenants ----
	tenantService := tenantsservice.New(tenantsrepo.NewPostgresRepository(pool), objectStore, tenantsservice.Config{
		EnvKey:        cfg.EnvKey,
		Bucket:        cfg.StorageBucket,
		TrialDays:     cfg.TrialDays,
		ExtensionDays: cfg.TrialExtensionDays,
	})
	tenantCache := tenantmiddleware.NewCache(cfg.TenantCacheTTL)
	tenantService.OnChange(tenantCache.Invalidate)
	tenantHTTPHandler := tenantshandler.New(tenantService, logger)

	// ---- Catalog ----
	catalogService := catalogservice.New(catalogrepo.NewPostgresRepository(pool))
	catalogHTTPHandler := cataloghandler.New(catalogService, tenantService, logger)

	// ---- Carts ----
	var cartStore cartsservice.Store = cartsrepo.NewMemoryStore()
	if redisClient != nil {
		cartStore = cartsrepo.NewRedisStore(redisClient, cfg.CartTTL, 0)
	}
	cartService := cartsservice.New(cartStore, catalogService, logger)
	cartHTTPHandler := cartshandler.New(cartService, logger)

	// ---- Accounts ----
	auth := buildAuth(ctx, cfg, logger)
	profiles, closeProfiles := buildProfileRepository(ctx, cfg, auth, accountsrepo.NewPostgresRepository(pool), logger)
	defer closeProfiles()

	resolver := accountsservice.NewResolver(profiles, auth.identities, accountsservice.RetryPolicy{
		MaxRetries: cfg.ProfileRetries,
		Delay:      cfg.ProfileRetryDelay,
	}, logger)
	var resets accountsservice.ResetNotifier = accountsservice.NewLogResetNotifier(logger)
	if publisher != nil {
		resets = accountsservice.NewEventResetNotifier(publisher)
	}
	accountService := accountsservice.New(accountsservice.Deps{
		Profiles:   profiles,
		Identities: auth.identities,
		Resolver:   resolver,
		Tenants:    tenantService,
		Pending:    cartService,
		Resets:     resets,
		Recorder:   m,
		Logger:     logger,
	}, accountsservice.Config{SuperAdminSecret: cfg.SuperAdminSecret})
	accountHTTPHandler := accountshandler.New(accountService, logger)

	// ---- Orders ----
	var broker feed.Broker = feed.NewMemory()
	if redisClient != nil {
		broker = feed.NewRedis(redisClient, logger)
	}
	var notifier ordersservice.Notifier = notify.NewLogNotifier(logger)
	if publisher != nil {
		notifier = notify.NewQueueNotifier(publisher)
	}
	orderService := ordersservice.New(ordersservice.Deps{
		Orders:    ordersrepo.NewPostgresRepository(pool),
		Carts:     cartService,
		Stores:    tenantService,
		Notifier:  notifier,
		Publisher: broker,
		Recorder:  m,
		Logger:    logger,
	})
	orderHTTPHandler := ordershandler.New(orderService, broker, logger)

	// ---- Reports and shipping ----
	reportHTTPHandler := reportshandler.New(reportsservice.New(orderService, storeLocation), logger)

	var locations shippingservice.Locations
	if client, err := rajaongkir.New(rajaongkir.Config{APIKey: cfg.RajaOngkirAPIKey, BaseURL: cfg.RajaOngkirBaseURL}); err == nil {
		locations = client
	} else {
		logger.Warn("shipping lookups disabled", zap.Error(err))
	}
	shippingHTTPHandler := shippinghandler.New(shippingservice.New(locations, tenantService, logger), logger)

	// ---- Routing ----
	rootRouter := chi.NewRouter()
	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		platformmiddleware.CORS(cfg.CORSOrigins),
		platformlogging.RequestLogger(logger),
		m.Middleware,
	)

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Handle("/metrics", m.Handler())

	// ---- Swagger UI + OpenAPI JSON (public) ----
	registerDocsRoutes(rootRouter, logger)

	rootRouter.Mount("/api/v1", newAPIRouter(apiDeps{
		Logger:         logger,
		JWT:            auth.jwt,
		Validate:       mustContractValidators(logger, "auth", "carts", "orders", "shipping", "reports"),
		RequestTimeout: cfg.RequestTimeout,
		Profiles:       resolver,
		Spaces:         tenantService,
		SpaceCache:     tenantCache,
		EnvKey:         cfg.EnvKey,
		Accounts:       accountHTTPHandler,
		Tenants:        tenantHTTPHandler,
		Catalog:        catalogHTTPHandler,
		Carts:          cartHTTPHandler,
		Orders:         orderHTTPHandler,
		Reports:        reportHTTPHandler,
		Shipping:       shippingHTTPHandler,
	}))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           rootRouter,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildObjectStore(ctx context.Context, cfg config, logger *zap.Logger) storage.ObjectStore {
	switch cfg.StorageBackend {
	case "gcs":
		if cfg.StorageBucket == "" {
			logger.Fatal("storage bucket required when STORAGE_BACKEND=gcs")
		}
		client, err := gcs.NewClient(ctx)
		if err != nil {
			logger.Fatal("init gcs client", zap.Error(err))
		}
		return storage.NewGCSStore(client, cfg.StorageBucket)
	case "local":
		if strings.TrimSpace(cfg.StorageLocalDir) == "" {
			logger.Fatal("storage local dir required when STORAGE_BACKEND=local")
		}
		return storage.NewLocalStore(cfg.StorageLocalDir)
	default:
		logger.Fatal("invalid STORAGE_BACKEND (use gcs or local)", zap.String("backend", cfg.StorageBackend))
	}
	return nil
}

// mustContractValidators loads the named contracts and chains their validators. Each one
// ignores paths it does not describe.
func mustContractValidators(logger *zap.Logger, names ...string) func(http.Handler) http.Handler {
	chain := make([]func(http.Handler) http.Handler, 0, len(names))
	for _, name := range names {
		doc, err := contracts.Load(name)
		if err != nil {
			logger.Fatal("load contract", zap.String("name", name), zap.Error(err))
		}
		validator, err := platformmiddleware.ValidateContract(contracts.Rebase(doc))
		if err != nil {
			logger.Fatal("build contract validator", zap.String("name", name), zap.Error(err))
		}
		chain = append(chain, validator)
	}
	return func(next http.Handler) http.Handler {
		for i := len(chain) - 1; i >= 0; i-- {
			next = chain[i](next)
		}
		return next
	}
}
