package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tripcast-service/internal/domain/repository"
	"tripcast-service/internal/infrastructure/config"
	"tripcast-service/internal/infrastructure/health"
	"tripcast-service/internal/infrastructure/oauth"
	"tripcast-service/internal/infrastructure/persistence"
	"tripcast-service/internal/infrastructure/queue"
	"tripcast-service/internal/infrastructure/router"
	"tripcast-service/internal/interface/api"
	"tripcast-service/internal/interface/llm"
	repo "tripcast-service/internal/interface/repository"
	"tripcast-service/internal/interface/scraper"
	"tripcast-service/internal/interface/search"
	"tripcast-service/internal/usecase"
	"tripcast-service/pkg/logger"
	"tripcast-service/pkg/metrics"
	"tripcast-service/templates"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger().Fatal("Failed to load config", "error", err)
	}

	log := logger.NewLoggerWithLevel(cfg.LogLevel)
	log.Info("Starting Tripcast Service", "version", cfg.AppVersion)

	catalog, err := config.LoadCatalog(cfg.ModelCatalogPath, cfg.CostTargetUSD)
	if err != nil {
		log.Fatal("Failed to load model catalog", "error", err)
	}
	log.Info("Model catalog loaded", "version", catalog.Version, "costTargetUSD", catalog.CostTargetUSD)

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor := health.NewMonitor(cfg.AppVersion, 5*time.Second, log)
	m := metrics.NewMetrics("tripcast", prometheus.DefaultRegisterer)

	// Set up MongoDB connection
	log.Info("Connecting to MongoDB")
	mongoClient, db, err := persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoUser, cfg.MongoPassword)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}
	monitor.RegisterMongo(mongoClient)
	tripRepo := repo.NewMongoTripRepository(db)

	// PostgreSQL is optional: model directory and build job ledger
	var (
		modelDirectory repository.ModelDirectoryRepository
		jobRepo        repository.BuildJobRepository
	)
	if cfg.PostgresURI != "" {
		log.Info("Connecting to PostgreSQL")
		gormDB, err := persistence.NewPostgres(cfg.PostgresURI, &repo.Models{}, &repo.BuildJobs{})
		if err != nil {
			log.Fatal("Failed to connect to PostgreSQL", "error", err)
		}
		modelDirectory = repo.NewGormModelDirectoryRepository(gormDB)
		jobRepo = repo.NewGormBuildJobRepository(gormDB)
		monitor.Register("postgres", func(ctx context.Context) error {
			sqlDB, err := gormDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		})
	} else {
		log.Warn("POSTGRES_DSN not set; using catalog models only and skipping build job ledger")
	}

	// Redis is optional: research findings cache
	var findingsCache repository.ResearchCacheRepository
	if cfg.RedisAddr != "" {
		redisClient, err := persistence.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisCacheDB)
		if err != nil {
			log.Fatal("Failed to connect to Redis", "error", err)
		}
		defer redisClient.Close()
		findingsCache = repo.NewRedisResearchCacheRepository(redisClient, cfg.ResearchCacheTTL)
		monitor.RegisterRedis("redis", redisClient)
	}

	// Generative providers
	gemini := llm.NewGeminiProvider(cfg.GeminiAPIKey, defaultModel(catalog.Generative, llm.ProviderGemini), log)
	defer gemini.Close()
	generativeProviders := []usecase.GenerativeProvider{
		llm.NewOpenAIProvider(llm.ProviderOpenRouter, cfg.OpenRouterAPIKey, cfg.OpenRouterURL, defaultModel(catalog.Generative, llm.ProviderOpenRouter), cfg.ProviderTimeout, log),
		llm.NewOpenAIProvider(llm.ProviderOpenAI, cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, defaultModel(catalog.Generative, llm.ProviderOpenAI), cfg.ProviderTimeout, log),
		gemini,
	}

	// Search and scraping providers
	searchProviders := []usecase.SearchProvider{
		search.NewTavily(cfg.TavilyAPIKey, cfg.ProviderTimeout),
		search.NewBrave(cfg.BraveAPIKey, cfg.ProviderTimeout),
		search.NewDuckDuckGo(true, cfg.ProviderTimeout),
	}
	scrapers := []usecase.Scraper{
		scraper.NewFirecrawl(cfg.FirecrawlAPIKey, cfg.ProviderTimeout),
		scraper.NewHTTPFetcher(cfg.EnableDirectFetch, cfg.ProviderTimeout),
	}

	// Booking partner
	amadeusAuth := oauth.NewAmadeusOAuth(cfg.AmadeusBaseURL, cfg.AmadeusClientID, cfg.AmadeusClientSecret, log)
	amadeus := repo.NewAmadeusClient(cfg.AmadeusBaseURL, amadeusAuth, cfg.ProviderTimeout, log)
	if !amadeus.IsAvailable() {
		log.Warn("Amadeus credentials not set; trip options will use estimates")
	}

	// Use cases
	resolver := usecase.NewModelResolver(modelDirectory, catalog, cfg.ModelCacheTTL, log)
	generator := usecase.NewGenerativeClient(generativeProviders, catalog, resolver, m, log)
	searchClient := usecase.NewSearchClient(searchProviders, catalog, cfg.SearchMaxResults, m, log)
	enricher := usecase.NewEnrichmentClient(scrapers, searchClient, catalog, cfg.EnrichConcurrency, m, log)
	gate := usecase.NewPhaseGate()

	research := usecase.NewResearchOrchestrator(tripRepo, findingsCache, generator, searchClient, enricher, gate, catalog.CostTargetUSD, m, log)
	builder := usecase.NewTripBuildOrchestrator(
		tripRepo, gate, generator, enricher,
		repo.NewAmadeusFlightRepository(amadeus),
		repo.NewAmadeusHotelRepository(amadeus),
		repo.NewAmadeusTourRepository(amadeus),
		catalog, cfg.EnrichConcurrency, catalog.CostTargetUSD, m, log,
	)

	classifier := router.NewRefinementRouter(log)
	for _, matcher := range templates.DefaultMatchers() {
		classifier.Register(matcher)
	}

	// Phase 2 hand-off: asynq when Redis is configured, goroutines otherwise
	var (
		service    *usecase.TripService
		dispatcher usecase.BuildDispatcher
		worker     *queue.BuildWorker
		inProcess  *queue.InProcessDispatcher
	)
	runner := usecase.BuildRunnerFunc(func(ctx context.Context, tripID string) error {
		return service.RunBuild(ctx, tripID)
	})
	if cfg.RedisAddr != "" {
		redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisQueueDB}
		asynqDispatcher := queue.NewAsynqDispatcher(redisOpt, jobRepo, cfg.BuildQueue, cfg.BuildTimeout, log)
		defer asynqDispatcher.Close()
		dispatcher = asynqDispatcher
		worker = queue.NewBuildWorker(redisOpt, cfg.BuildQueue, cfg.BuildWorkers, runner, jobRepo, log)
	} else {
		log.Warn("REDIS_ADDR not set; running trip builds in process")
		inProcess = queue.NewInProcessDispatcher(runner, jobRepo, cfg.BuildTimeout, log)
		dispatcher = inProcess
	}

	service = usecase.NewTripService(tripRepo, jobRepo, gate, research, builder, generator, classifier, dispatcher, m, log)

	if worker != nil {
		if err := worker.Start(); err != nil {
			log.Fatal("Failed to start build worker", "error", err)
		}
	}

	// Set up HTTP server
	gin.SetMode(gin.ReleaseMode)
	handler := api.NewRouter(api.RouterDeps{
		Trips:          api.NewTripHandler(service, log),
		Health:         monitor,
		Metrics:        promhttp.Handler(),
		RateLimitPerIP: cfg.RateLimitPerMin,
		Logger:         log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	if worker != nil {
		worker.Shutdown()
	}
	if inProcess != nil {
		log.Info("Waiting for in-flight trip builds")
		inProcess.Wait()
	}

	cancel() // Cancel the context to stop all goroutines

	// Disconnect from MongoDB
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		log.Error("MongoDB disconnect error", "error", err)
	}

	log.Info("Tripcast Service stopped")
}
