package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appingest "github.com/markethub/backend/internal/application/ingest"
	appreconcile "github.com/markethub/backend/internal/application/reconcile"
	appsync "github.com/markethub/backend/internal/application/sync"
	"github.com/markethub/backend/internal/domain/channel"
	"github.com/markethub/backend/internal/domain/ingest"
	"github.com/markethub/backend/internal/domain/reconcile"
	"github.com/markethub/backend/internal/infrastructure/config"
	"github.com/markethub/backend/internal/infrastructure/logger"
	"github.com/markethub/backend/internal/infrastructure/marketplace"
	"github.com/markethub/backend/internal/infrastructure/notify"
	"github.com/markethub/backend/internal/infrastructure/persistence"
	"github.com/markethub/backend/internal/infrastructure/scheduler"
	"github.com/markethub/backend/internal/infrastructure/telemetry"
	"github.com/markethub/backend/internal/interfaces/http/handler"
	"github.com/markethub/backend/internal/interfaces/http/middleware"
	"github.com/markethub/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:         cfg.Log.Level,
		Format:        cfg.Log.Format,
		Output:        cfg.Log.Output,
		TimeFormat:    "2006-01-02T15:04:05.000Z07:00",
		ChannelLogDir: cfg.Log.ChannelLogDir,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting MarketHub Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Redis backs the idempotency fast path; the store lookup stays
	// authoritative, so a missing Redis degrades startup instead of
	// failing it.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		_ = redisClient.Close()
	}()
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Warn("Redis unavailable, idempotency cache degraded", zap.Error(err))
	}
	cancelPing()

	// Initialize distributed tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Operator notifications
	notifier := notify.New(notify.Config{
		SMTPAddr:        cfg.Notify.SMTPAddr,
		From:            cfg.Notify.From,
		InfoRecipients:  cfg.Notify.InfoRecipients,
		ErrorRecipients: cfg.Notify.ErrorRecipients,
		MailedInfoCodes: cfg.Notify.MailedInfoCodes,
		Subject:         cfg.Notify.Subject,
	}, log)
	mailer := notify.NewMailer(cfg.Notify.SMTPAddr, cfg.Notify.From)

	// Initialize repositories
	orderStore := persistence.NewGormOrderStore(db.DB)
	catalogReader := persistence.NewGormCatalogReader(db.DB)
	buyerRepo := persistence.NewGormBuyerRepository(db.DB)
	couponSuppressor := persistence.NewMutexCouponSuppressor(log)
	locationResolver := persistence.NewGormLocationResolver(db.DB)
	idempotencyCache := persistence.NewRedisIdempotencyCache(redisClient)
	syncSource := persistence.NewGormCatalogSyncSource(db.DB)

	// Domain services
	guard := ingest.NewIdempotencyGuard(orderStore, idempotencyCache, map[channel.Code]bool{
		channel.CodeOzon:       cfg.Ingest.Ozon.BlockEmptyExternalID,
		channel.CodeMegaMarket: cfg.Ingest.MegaMarket.BlockEmptyExternalID,
		channel.CodeMultibonus: cfg.Ingest.Multibonus.BlockEmptyExternalID,
	}, log)
	pipeline := ingest.NewValidationPipeline(catalogReader, map[channel.Code]ingest.ValidationPolicy{
		channel.CodeOzon:       validationPolicy(cfg.Ingest.Ozon),
		channel.CodeMegaMarket: validationPolicy(cfg.Ingest.MegaMarket),
		channel.CodeMultibonus: validationPolicy(cfg.Ingest.Multibonus),
	}, log)
	commits := ingest.NewCommitSequence(orderStore, buyerRepo, couponSuppressor, locationResolver, notifier, ingest.CommitConfig{
		Currency: cfg.Ingest.Currency,
		Site:     cfg.Ingest.Site,
		DefaultBuyerIDs: map[channel.Code]int64{
			channel.CodeOzon:       cfg.Ingest.Ozon.DefaultBuyerID,
			channel.CodeMegaMarket: cfg.Ingest.MegaMarket.DefaultBuyerID,
			channel.CodeMultibonus: cfg.Ingest.Multibonus.DefaultBuyerID,
		},
	}, log)

	// Marketplace clients. Each enabled channel gets its own log file and
	// registers its outbound gateway.
	gateways := channel.NewGatewayRegistry()
	retryClient := marketplace.NewRetryClient(notifier, log)

	var adapters []channel.Adapter
	var ozonClient *marketplace.OzonClient
	var ozonLog *zap.Logger
	if cfg.Ozon.Enabled {
		ozonLog = logger.NewChannelLogger(log, logCfg, "ozon")
		ozonClient, err = marketplace.NewOzonClient(&marketplace.OzonConfig{
			ClientID:        cfg.Ozon.ClientID,
			APIKey:          cfg.Ozon.APIKey,
			APIBaseURL:      cfg.Ozon.APIBaseURL,
			WarehouseID:     cfg.Ozon.WarehouseID,
			TimeoutSeconds:  cfg.Ozon.TimeoutSeconds,
			PollWindowHours: cfg.Ozon.PollWindowHours,
		}, retryClient, ozonLog)
		if err != nil {
			log.Fatal("Failed to initialize Ozon client", zap.Error(err))
		}
		gateways.Register(ozonClient)
		adapters = append(adapters, marketplace.NewOzonAdapter())
	}

	var megaMarketClient *marketplace.MegaMarketClient
	if cfg.MegaMarket.Enabled {
		mmLog := logger.NewChannelLogger(log, logCfg, "megamarket")
		megaMarketClient, err = marketplace.NewMegaMarketClient(&marketplace.MegaMarketConfig{
			Token:          cfg.MegaMarket.Token,
			MerchantCode:   cfg.MegaMarket.MerchantCode,
			APIBaseURL:     cfg.MegaMarket.APIBaseURL,
			WarehouseEmail: cfg.MegaMarket.WarehouseEmail,
			TimeoutSeconds: cfg.MegaMarket.TimeoutSeconds,
		}, retryClient, mmLog)
		if err != nil {
			log.Fatal("Failed to initialize MegaMarket client", zap.Error(err))
		}
		gateways.Register(megaMarketClient)
		adapters = append(adapters, marketplace.NewMegaMarketAdapter())
	}

	if cfg.Multibonus.Enabled {
		mbLog := logger.NewChannelLogger(log, logCfg, "multibonus")
		multibonusClient, err := marketplace.NewMultibonusClient(&marketplace.MultibonusConfig{
			NotifyURL:         cfg.Multibonus.NotifyURL,
			ReturnURL:         cfg.Multibonus.ReturnURL,
			ClientCertPath:    cfg.Multibonus.ClientCertPath,
			ClientKeyPath:     cfg.Multibonus.ClientKeyPath,
			TimeoutSeconds:    cfg.Multibonus.TimeoutSeconds,
			DeliveryCost:      cfg.Multibonus.DeliveryCost,
			DefaultPostalCode: cfg.Multibonus.DefaultPostalCode,
		}, mbLog)
		if err != nil {
			log.Fatal("Failed to initialize Multibonus client", zap.Error(err))
		}
		gateways.Register(multibonusClient)
		adapters = append(adapters, marketplace.NewMultibonusAdapter())
	}

	// Application services
	dispatcher := reconcile.NewDispatcher(orderStore, gateways, notifier, log)
	ingestService := appingest.NewService(adapters, guard, pipeline, commits, dispatcher, notifier, log)
	reconcileService := appreconcile.NewService(dispatcher, guard, orderStore, notifier, log)

	var packingService *appreconcile.PackingService
	if megaMarketClient != nil {
		packingService = appreconcile.NewPackingService(
			orderStore,
			marketplace.NewMegaMarketPackingGateway(megaMarketClient),
			mailer,
			notifier,
			cfg.MegaMarket.MerchantCode,
			cfg.MegaMarket.WarehouseEmail,
			log,
		)
	}

	var syncTargets []appsync.Target
	if ozonClient != nil {
		syncTargets = append(syncTargets, marketplace.NewOzonSyncTarget(ozonClient, cfg.Ozon.WarehouseID))
	}
	syncService := appsync.NewService(syncSource, syncTargets, cfg.Sync.StockSyncBatchSize, log)

	var orderPoller scheduler.OrderPoller
	if ozonClient != nil {
		draftSource := marketplace.NewOzonDraftSource(ozonClient, marketplace.NewOzonAdapter(), ozonLog)
		orderPoller = appingest.NewPoller(draftSource, ingestService, time.Duration(cfg.Ozon.PollWindowHours)*time.Hour, ozonLog)
	}

	// Background loops
	trigger := scheduler.NewTrigger(scheduler.Config{
		OrderPollInterval: cfg.Sync.OrderPollInterval,
		StockSyncInterval: cfg.Sync.StockSyncInterval,
		PriceSyncInterval: cfg.Sync.PriceSyncInterval,
	}, orderPoller, syncService, log)
	if cfg.Sync.Enabled {
		if err := trigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start background loops", zap.Error(err))
		}
	}

	// HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Failed to set trusted proxies", zap.Error(err))
	}
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Routes. The internal fulfillment callbacks require the static token;
	// the marketplace contracts carry their own authentication.
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewSystemHandler())
	r.RegisterAt("/api/v1",
		[]gin.HandlerFunc{middleware.StaticToken(cfg.HTTP.WebhookToken)},
		handler.NewFulfillmentHandler(reconcileService, log),
	)
	if cfg.MegaMarket.Enabled {
		r.RegisterAt("/api/market/v1/orderService", nil,
			handler.NewMegaMarketHandler(ingestService, reconcileService, packingService, cfg.MegaMarket.Token, log),
		)
	}
	if cfg.Multibonus.Enabled {
		r.RegisterAt("/api/multibonus/v1", nil,
			handler.NewMultibonusHandler(ingestService, cfg.Multibonus.DeliveryCost, cfg.Multibonus.DefaultPostalCode, log),
		)
	}
	r.Setup()

	engine.GET("/api/v1/health", healthHandler(db, log))

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine. With a server certificate configured the
	// listener speaks TLS; the client CA additionally enables the mutual
	// TLS the XML push contract requires. Client certificates stay optional
	// on the shared listener because the other channels call without one.
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr), zap.Bool("tls", cfg.HTTP.CertPath != ""))
		var err error
		if cfg.HTTP.CertPath != "" {
			srv.TLSConfig, err = serverTLSConfig(cfg.HTTP.ClientCAPath)
			if err != nil {
				log.Fatal("Failed to build TLS config", zap.Error(err))
			}
			err = srv.ListenAndServeTLS(cfg.HTTP.CertPath, cfg.HTTP.KeyPath)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := trigger.Stop(ctx); err != nil {
		log.Error("Background loops forced to stop", zap.Error(err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// validationPolicy maps the per-channel ingestion tuning to the pipeline
// policy.
func validationPolicy(c config.ChannelIngestConfig) ingest.ValidationPolicy {
	return ingest.ValidationPolicy{
		CheckPriceDeviation:     c.CheckPriceDeviation,
		PriceDeviationThreshold: decimal.NewFromFloat(c.PriceDeviationThreshold),
	}
}

// serverTLSConfig builds the listener TLS config, loading the client CA
// pool when mutual TLS is enabled.
func serverTLSConfig(clientCAPath string) (*tls.Config, error) {
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if clientCAPath == "" {
		return tlsCfg, nil
	}

	pem, err := os.ReadFile(clientCAPath)
	if err != nil {
		return nil, fmt.Errorf("read client CA: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates in client CA file %s", clientCAPath)
	}
	tlsCfg.ClientCAs = pool
	tlsCfg.ClientAuth = tls.VerifyClientCertIfGiven
	return tlsCfg, nil
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
