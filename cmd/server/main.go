package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cindy0891101/nordictrip.fi.sw/internal/api"
	"github.com/cindy0891101/nordictrip.fi.sw/internal/blob"
	"github.com/cindy0891101/nordictrip.fi.sw/internal/config"
	"github.com/cindy0891101/nordictrip.fi.sw/internal/connectivity"
	"github.com/cindy0891101/nordictrip.fi.sw/internal/core"
	"github.com/cindy0891101/nordictrip.fi.sw/internal/db"
	"github.com/cindy0891101/nordictrip.fi.sw/internal/firebase"
	"github.com/cindy0891101/nordictrip.fi.sw/internal/metrics"
	"github.com/cindy0891101/nordictrip.fi.sw/internal/middleware"
	"github.com/cindy0891101/nordictrip.fi.sw/pkg/cache"
	"github.com/cindy0891101/nordictrip.fi.sw/pkg/messagequeue"
)

func main() {
	// Load .env file. In production, environment variables should be set directly.
	if os.Getenv("GIN_MODE") != "release" {
		if err := godotenv.Load(); err != nil {
			log.Println("Warning: Error loading .env file:", err)
		}
	}

	// --- 1. Initialize Logger (Zap) ---
	zapLogger, err := newLogger(os.Getenv("GIN_MODE"))
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()

	// --- 2. Load Application Configuration ---
	appConfig, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to load application configuration", zap.Error(err))
	}
	zapLogger.Info("Application configuration loaded successfully.",
		zap.String("store", appConfig.StoreBackend),
		zap.String("blobs", appConfig.BlobBackend),
		zap.String("tripId", appConfig.TripID))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- 3. Initialize Firebase Admin SDK when any component needs it ---
	var fbClients *firebase.Clients
	if appConfig.NeedsFirebase() {
		initCtx, cancelInit := context.WithTimeout(ctx, 15*time.Second)
		fbClients, err = firebase.NewClients(initCtx, appConfig, zapLogger)
		cancelInit()
		if err != nil {
			zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Firebase Admin SDK", zap.Error(err))
		}
		defer fbClients.Close()
	}

	// --- 4. Storage, identity and blob backends ---
	var store db.TripDocumentStore
	switch appConfig.StoreBackend {
	case config.StoreFirestore:
		store = db.NewFirestoreTripStore(fbClients.Firestore, appConfig.TripID)
	default:
		zapLogger.Warn("Using the in-memory trip store; data is lost on restart.")
		store = db.NewMemoryTripStore()
	}

	var identity core.IdentityProvider
	if fbClients != nil {
		identity = firebase.NewAnonymousIdentityProvider(fbClients.Auth, appConfig.ServiceIdentityUID, zapLogger)
	} else {
		identity = firebase.LocalIdentityProvider{UID: appConfig.ServiceIdentityUID}
	}

	blobs, blobReader, err := newBlobStore(ctx, appConfig, fbClients)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize blob storage", zap.Error(err))
	}

	// --- 5. Optional local cache and change events ---
	var fieldCache core.FieldCache
	if appConfig.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(ctx, cache.NewRedisCacheConfig{
			Address:  appConfig.RedisAddr,
			Password: appConfig.RedisPassword,
			DB:       appConfig.RedisDB,
		}, zapLogger)
		if err != nil {
			zapLogger.Warn("Field cache disabled: Redis is unreachable", zap.Error(err))
		} else {
			defer redisCache.Close()
			fieldCache = cache.NewFieldCache(redisCache, appConfig.TripID, cache.DefaultFieldTTL, zapLogger)
		}
	}

	var notifier core.ChangeNotifier
	if appConfig.AMQPURL != "" {
		mq, err := messagequeue.NewRabbitMQService(messagequeue.NewRabbitMQServiceConfig{URL: appConfig.AMQPURL}, zapLogger)
		if err != nil {
			zapLogger.Warn("Change events disabled: RabbitMQ is unreachable", zap.Error(err))
		} else {
			defer mq.Close()
			notifier = messagequeue.NewFieldEventPublisher(mq, appConfig.AMQPQueue, appConfig.TripID, zapLogger)
		}
	}

	// --- 6. Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	// --- 7. Initialize Services ---
	syncService, err := core.NewSyncService(core.SyncServiceConfig{
		Store:    store,
		Identity: identity,
		Blobs:    blobs,
		Cache:    fieldCache,
		Notifier: notifier,
		Metrics:  appMetrics,
		Logger:   zapLogger,
	})
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize SyncService", zap.Error(err))
	}
	memberService := core.NewMemberService(syncService, appConfig.DefaultAvatarURL, zapLogger)
	scheduleService := core.NewScheduleService(syncService)

	monitor := connectivity.NewMonitor(store.Ping, appConfig.ConnectivityProbeInterval, zapLogger)
	reducer := connectivity.NewReducer(monitor, connectivity.ReducerConfig{
		SyncDelay: appConfig.SyncDelay,
		HideDelay: appConfig.HideDelay,
		Logger:    zapLogger,
		Metrics:   appMetrics,
	})
	reducer.Start()
	defer reducer.Stop()
	zapLogger.Info("Core services initialized successfully.")

	// --- 8. Setup Gin HTTP Engine ---
	if strings.ToLower(appConfig.GinMode) == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	if appConfig.ClientURL != "" {
		router.Use(middleware.CORSMiddleware(appConfig.ClientURL))
		zapLogger.Info("CORS Middleware enabled", zap.String("clientURL", appConfig.ClientURL))
	} else {
		zapLogger.Warn("CORS Middleware SKIPPED: CLIENT_URL is not configured. API might not be accessible from a web frontend.")
	}

	var verifier middleware.TokenVerifier
	if fbClients != nil {
		verifier = fbClients.Auth
	}
	if appConfig.AuthDisabled {
		zapLogger.Warn("Authentication is DISABLED; every request runs as the local user.")
	}
	api.SetupRoutes(router, api.Dependencies{
		Logger:          zapLogger,
		Auth:            middleware.NewAuthMiddleware(verifier, appConfig.AuthDisabled, zapLogger),
		AllowedOrigins:  splitOrigins(appConfig.ClientURL),
		SyncService:     syncService,
		MemberService:   memberService,
		ScheduleService: scheduleService,
		Status:          reducer,
		Gatherer:        registry,
		Blobs:           blobReader,
	})

	// --- 9. Run the HTTP server and the connectivity monitor until shutdown ---
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", appConfig.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLogger.Info("Starting HTTP server...", zap.String("address", httpServer.Addr), zap.String("ginMode", gin.Mode()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return monitor.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		zapLogger.Info("Attempting graceful shutdown of HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		zapLogger.Error("Server stopped with error", zap.Error(err))
		return
	}
	zapLogger.Info("Server exiting gracefully.")
}

func newLogger(ginMode string) (*zap.Logger, error) {
	if strings.ToLower(ginMode) == "release" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func newBlobStore(ctx context.Context, cfg *config.Config, fb *firebase.Clients) (core.BlobStore, api.BlobReader, error) {
	switch cfg.BlobBackend {
	case config.BlobFirebase:
		bucket, err := fb.Bucket(cfg.FirebaseStorageBucket)
		if err != nil {
			return nil, nil, err
		}
		return blob.NewFirebaseStore(bucket, cfg.FirebaseStorageBucket), nil, nil
	case config.BlobS3:
		s, err := blob.NewS3Store(ctx, blob.S3Config{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			Bucket:        cfg.S3Bucket,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.BlobPublicBaseURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	default:
		base := cfg.BlobPublicBaseURL
		if base == "" {
			base = fmt.Sprintf("http://localhost:%s/blobs", cfg.Port)
		}
		s := blob.NewMemoryStore(base)
		return s, s, nil
	}
}

func splitOrigins(clientURL string) []string {
	var origins []string
	for _, o := range strings.Split(clientURL, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
