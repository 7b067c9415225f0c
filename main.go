package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/warelens/warelens-engine/pkg/adapters/warehouse"
	"github.com/warelens/warelens-engine/pkg/config"
	"github.com/warelens/warelens-engine/pkg/handlers"
	"github.com/warelens/warelens-engine/pkg/llm"
	"github.com/warelens/warelens-engine/pkg/logging"
	"github.com/warelens/warelens-engine/pkg/middleware"
	"github.com/warelens/warelens-engine/pkg/repositories"
	"github.com/warelens/warelens-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.Bool("warehouse_configured", cfg.Warehouse.IsConfigured()),
		zap.Bool("llm_configured", cfg.LLM.IsConfigured()),
		zap.Bool("session_store_configured", cfg.Sessions.IsConfigured()))

	// Optional collaborators. The engine starts without any of them and
	// degrades per endpoint.
	var warehouseClient warehouse.Client
	if cfg.Warehouse.IsConfigured() {
		client, err := warehouse.NewSnowflakeClient(&cfg.Warehouse, logger)
		if err != nil {
			log.Fatalf("Failed to connect to warehouse: %v", err)
		}
		defer func() { _ = client.Close() }()
		warehouseClient = client
	} else {
		logger.Warn("warehouse not configured; query endpoints disabled")
	}

	var generator llm.TextGenerator
	if cfg.LLM.IsConfigured() {
		generator, err = llm.NewFromConfig(&cfg.LLM, logger)
		if err != nil {
			log.Fatalf("Failed to create llm client: %v", err)
		}
	} else {
		logger.Warn("llm not configured; generation endpoints disabled")
	}

	var sessionRepo repositories.SessionRepository
	if cfg.Sessions.IsConfigured() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Sessions.URI))
		cancel()
		if err != nil {
			log.Fatalf("Failed to connect to session store: %v", err)
		}
		defer func() { _ = mongoClient.Disconnect(context.Background()) }()
		sessionRepo = repositories.NewSessionRepository(mongoClient.Database(cfg.Sessions.Database), logger)
	} else {
		logger.Warn("session store not configured; analysis runs are not persisted")
	}

	// Services
	catalog := services.NewSchemaCatalogService(logger)
	profiler := services.NewDataProfiler(logger)
	insights := services.NewInsightGenerator(logger)
	orchestrator := services.NewQueryOrchestrator(catalog, generator, warehouseClient, logger)
	reports := services.NewReportAssembler(generator, profiler, insights, catalog, logger)

	var workflow services.ProfilingWorkflow
	if warehouseClient != nil {
		extractor := services.NewMetadataExtractor(warehouseClient, logger)
		workflow = services.NewProfilingWorkflow(extractor, catalog, generator, sessionRepo, logger)
	}

	mux := http.NewServeMux()

	components := handlers.ComponentStatus{
		Warehouse:    warehouseClient != nil,
		LLM:          generator != nil,
		SessionStore: sessionRepo != nil,
	}

	// Register handlers
	handlers.NewHealthHandler(cfg, components, logger).RegisterRoutes(mux)
	handlers.NewAnalysisHandler(orchestrator, reports, components, logger).RegisterRoutes(mux)
	handlers.NewSchemaHandler(catalog, logger).RegisterRoutes(mux)
	handlers.NewSessionsHandler(sessionRepo, logger).RegisterRoutes(mux)
	if workflow != nil {
		handlers.NewProfilingHandler(workflow, logger).RegisterRoutes(mux)
	}

	// Middleware chain: CORS outermost so even error responses carry the
	// headers the browser UI needs.
	corsMiddleware := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Cache-Control"},
		AllowCredentials: true,
	})
	handler := corsMiddleware(middleware.RequestLogger(logger)(mux))

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting warelens-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
