package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campushq/sentra/api/anomaly"
	"github.com/campushq/sentra/api/audit"
	"github.com/campushq/sentra/api/config"
	"github.com/campushq/sentra/api/controller"
	"github.com/campushq/sentra/api/dao"
	"github.com/campushq/sentra/api/db"
	logger "github.com/campushq/sentra/api/logging"
	"github.com/campushq/sentra/api/pdp"
	"github.com/campushq/sentra/api/policy"
	"github.com/campushq/sentra/api/router"
	"github.com/campushq/sentra/api/service"
	"github.com/campushq/sentra/api/util"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	// Initialize logger
	logger.InitLogger(config.GetString("log.dir"))
	defer logger.Sync()

	// Initialize Neo4j
	if err := db.InitNeo4j(); err != nil {
		logger.Fatal("Failed to initialize Neo4j", zap.Error(err))
	}
	defer db.CloseNeo4j()

	// Initialize Redis
	if err := db.InitRedis(); err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer db.CloseRedis()

	// Initialize EventBus
	eventBus := util.NewEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eventBus.Start(ctx)

	// Initialize audit trail
	auditRepository, err := audit.NewElasticsearchRepository(config.GetString("elasticsearch.url"))
	if err != nil {
		logger.Fatal("Failed to initialize audit repository", zap.Error(err))
	}
	auditService := audit.NewService(auditRepository)

	// Load the policy set. A broken document leaves the set empty and
	// every request denied until a successful reload, so only warn.
	policyPath := config.GetString("policy.file")
	policyStore := policy.NewStore(eventBus)
	if err := policyStore.Load(policyPath); err != nil {
		logger.Warn("Starting with empty policy set, all requests will be denied",
			zap.Error(err))
	}

	// Decision engine
	engine := pdp.NewEngine(policyStore, pdp.NewConditionRegistry(), config.GetDuration("policy.decisionTTL"))
	defer engine.Close()

	// Anomaly guard
	guardCfg := anomaly.DefaultConfig()
	guardCfg.HighVolumeThreshold = config.GetInt64("anomaly.highVolumeThreshold")
	guardCfg.HighVolumeWindow = config.GetDuration("anomaly.highVolumeWindow")
	guardCfg.ExfiltrationThreshold = config.GetInt64("anomaly.exfiltrationThresholdBytes")
	guardCfg.ExfiltrationWindow = config.GetDuration("anomaly.exfiltrationWindow")
	guardCfg.KnownIPWindow = config.GetDuration("anomaly.knownIPWindow")

	var history anomaly.ActivityStore = auditService
	var bytes anomaly.ByteCounter
	var recorder service.ActivityRecorder
	if config.GetString("anomaly.activityBackend") == "redis" {
		activityService := util.NewActivityService(
			guardCfg.HighVolumeWindow, guardCfg.KnownIPWindow, guardCfg.ExfiltrationWindow)
		history = activityService
		bytes = activityService
		recorder = activityService
	}
	guard := anomaly.NewGuard(history, bytes, guardCfg)

	// Initialize DAOs
	resourceDAO := dao.NewResourceDAO(db.Neo4jDriver)

	// Initialize services and utilities
	notificationService := util.NewNotificationService()
	accessService := service.NewAccessService(
		engine,
		guard,
		policyStore,
		policyPath,
		resourceDAO,
		auditService,
		recorder,
		notificationService,
		eventBus,
	)

	// Initialize controllers
	accessController := controller.NewAccessController(accessService)

	// Set up the router
	gin.SetMode(gin.ReleaseMode)
	r := router.SetupRouter(accessController, 100, time.Minute) // 100 requests per minute

	// Set up the server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.GetString("server.port")),
		Handler: r,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", config.GetString("server.port")))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
