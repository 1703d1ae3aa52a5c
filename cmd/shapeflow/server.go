package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shapeflow/shapeflow/api/handlers"
	"github.com/shapeflow/shapeflow/assets"
	"github.com/shapeflow/shapeflow/config"
	"github.com/shapeflow/shapeflow/inference"
	"github.com/shapeflow/shapeflow/internal/cache"
	"github.com/shapeflow/shapeflow/internal/database"
	"github.com/shapeflow/shapeflow/internal/metrics"
	"github.com/shapeflow/shapeflow/internal/server"
	"github.com/shapeflow/shapeflow/internal/telemetry"
	"github.com/shapeflow/shapeflow/lexicon"
	"github.com/shapeflow/shapeflow/pipeline"
	"github.com/shapeflow/shapeflow/procedural"
	"github.com/shapeflow/shapeflow/usage"
	"github.com/shapeflow/shapeflow/vision"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 ShapeFlow 的主服务器
type Server struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger

	otelProviders *telemetry.Providers
	dbPool        *database.PoolManager

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// 核心组件
	cacheManager *cache.Manager
	resultCache  *pipeline.ResultCache
	orchestrator *pipeline.Orchestrator
	hub          *pipeline.Hub
	gate         usage.Gate

	// Handlers
	healthHandler   *handlers.HealthHandler
	generateHandler *handlers.GenerateHandler
	eventsHandler   *handlers.EventsHandler
	adminHandler    *handlers.AdminHandler

	// 指标收集器
	metricsCollector *metrics.Collector

	// 热更新管理器
	hotReloadManager *config.HotReloadManager
	configAPIHandler *config.ConfigAPIHandler

	// Rate limiter 生命周期管理
	rateLimiterCancel context.CancelFunc

	wg sync.WaitGroup
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, configPath string, logger *zap.Logger, otelProviders *telemetry.Providers, dbPool *database.PoolManager) *Server {
	return &Server{
		cfg:           cfg,
		configPath:    configPath,
		logger:        logger,
		otelProviders: otelProviders,
		dbPool:        dbPool,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start() error {
	// 1. 初始化指标收集器
	s.metricsCollector = metrics.NewCollector("shapeflow", s.logger)

	// 2. 初始化核心组件（Redis、门控、生成管线）
	if err := s.initPipeline(); err != nil {
		return fmt.Errorf("failed to init pipeline: %w", err)
	}

	// 3. 初始化 Handlers
	if err := s.initHandlers(); err != nil {
		return fmt.Errorf("failed to init handlers: %w", err)
	}

	// 4. 初始化热更新管理器
	if err := s.initHotReloadManager(); err != nil {
		return fmt.Errorf("failed to init hot reload manager: %w", err)
	}

	// 5. 启动 HTTP 服务器
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// 6. 启动 Metrics 服务器
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Bool("hot_reload_enabled", s.configPath != ""),
	)

	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initPipeline 初始化 Redis、用量门控与三级生成管线
func (s *Server) initPipeline() error {
	// Redis：用量计数与可选的二级结果缓存都依赖它
	cacheManager, err := cache.NewManager(cache.Config{
		Addr:         s.cfg.Redis.Addr,
		Password:     s.cfg.Redis.Password,
		DB:           s.cfg.Redis.DB,
		PoolSize:     s.cfg.Redis.PoolSize,
		MinIdleConns: s.cfg.Redis.MinIdleConns,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("redis unavailable: %w", err)
	}
	s.cacheManager = cacheManager

	// 用量存储：数据库不可用时仅计数、不留痕
	var store *usage.Store
	if s.dbPool != nil {
		store, err = usage.NewStore(s.dbPool, s.logger)
		if err != nil {
			s.logger.Warn("usage store init failed, records disabled", zap.Error(err))
		}
	}

	s.gate = usage.NewRedisGate(cacheManager, store, usage.Config{
		AnonymousDailyLimit: s.cfg.Usage.AnonymousDailyLimit,
		SharedDailyLimit:    s.cfg.Usage.SharedDailyLimit,
		CounterTTL:          s.cfg.Usage.CounterTTL,
	}, s.logger)

	// 词典为程序化合成与资产匹配共用
	lex := lexicon.NewDefault()

	synth := procedural.NewSynthesizer(lex, procedural.Config{
		Spacing:           s.cfg.Procedural.Spacing,
		BaseSize:          s.cfg.Procedural.BaseSize,
		Seed:              s.cfg.Procedural.Seed,
		AnimationDuration: s.cfg.Procedural.AnimationDuration,
	}, s.logger)

	inferenceClient := inference.NewClient(inference.Config{
		BaseURL:      s.cfg.Inference.BaseURL,
		Model:        s.cfg.Inference.Model,
		SharedAPIKey: s.cfg.Inference.SharedAPIKey,
		Timeout:      s.cfg.Inference.Timeout,
		MinInterval:  s.cfg.Inference.MinInterval,
		DailyLimit:   s.cfg.Inference.DailyLimit,
	}, s.logger)

	catalog := assets.NewDefaultCatalog()
	resolver := assets.NewResolver(catalog, lex)
	loader := assets.NewLoader(catalog, assets.Config{
		BaseURL:         s.cfg.Assets.BaseURL,
		FetchTimeout:    s.cfg.Assets.FetchTimeout,
		MaxCacheEntries: s.cfg.Assets.MaxCacheEntries,
		CacheTTL:        s.cfg.Assets.CacheTTL,
	}, s.logger)

	if s.cfg.Assets.Prewarm {
		// 预热不阻塞启动，失败的资产按需再拉取
		go loader.Prewarm(context.Background(), s.cfg.Assets.PrewarmConcurrency)
	}

	converter := vision.NewConverter(synth, s.logger)

	strategies := []pipeline.GenerationStrategy{
		pipeline.NewInferenceStrategy(inferenceClient, converter, s.logger),
		pipeline.NewAssetStrategy(resolver, loader),
		pipeline.NewProceduralStrategy(synth),
	}

	cacheCfg := pipeline.CacheConfig{
		LocalMaxSize: s.cfg.Pipeline.CacheMaxSize,
		LocalTTL:     s.cfg.Pipeline.CacheLocalTTL,
		RedisTTL:     s.cfg.Pipeline.CacheRedisTTL,
		EnableRedis:  s.cfg.Pipeline.CacheEnableRedis,
	}
	var rdb *redis.Client
	if cacheCfg.EnableRedis {
		rdb = cacheManager.Client()
	}
	s.resultCache = pipeline.NewResultCache(rdb, cacheCfg, s.logger)

	s.hub = pipeline.NewHub(64, s.logger)

	s.orchestrator = pipeline.NewOrchestrator(pipeline.Config{
		InferenceDeadline:  s.cfg.Pipeline.InferenceDeadline,
		AssetDeadline:      s.cfg.Pipeline.AssetDeadline,
		ProceduralDeadline: s.cfg.Pipeline.ProceduralDeadline,
		AnimationDuration:  s.cfg.Pipeline.AnimationDuration,
		Cache:              cacheCfg,
	}, strategies, s.resultCache, s.hub, s.metricsCollector, s.logger)

	s.logger.Info("Generation pipeline initialized",
		zap.Int("strategies", len(strategies)),
		zap.Bool("redis_result_cache", cacheCfg.EnableRedis),
	)
	return nil
}

// initHandlers 初始化所有 handlers
func (s *Server) initHandlers() error {
	s.healthHandler = handlers.NewHealthHandler(Version, s.logger)

	// 依赖探活
	s.healthHandler.RegisterCheck(handlers.NewPingHealthCheck("redis", s.cacheManager.Ping))
	if s.dbPool != nil {
		s.healthHandler.RegisterCheck(handlers.NewPingHealthCheck("database", s.dbPool.Ping))
	}
	s.healthHandler.RegisterCheck(handlers.NewInferenceHealthCheck("inference", s.cfg.Inference.BaseURL, nil))

	s.generateHandler = handlers.NewGenerateHandler(s.orchestrator, s.gate, s.logger)
	s.eventsHandler = handlers.NewEventsHandler(s.hub, s.logger)
	s.adminHandler = handlers.NewAdminHandler(s.orchestrator, s.logger)

	s.logger.Info("Handlers initialized")
	return nil
}

// initHotReloadManager 初始化热更新管理器
func (s *Server) initHotReloadManager() error {
	opts := []config.HotReloadOption{
		config.WithHotReloadLogger(s.logger),
	}

	if s.configPath != "" {
		opts = append(opts, config.WithConfigPath(s.configPath))
	}

	s.hotReloadManager = config.NewHotReloadManager(s.cfg, opts...)

	// 注册配置变更回调
	s.hotReloadManager.OnChange(func(change config.ConfigChange) {
		s.logger.Info("Configuration changed",
			zap.String("path", change.Path),
			zap.String("source", change.Source),
			zap.Bool("requires_restart", change.RequiresRestart),
		)
	})

	// 注册配置重载回调
	s.hotReloadManager.OnReload(func(oldConfig, newConfig *config.Config) {
		s.logger.Info("Configuration reloaded")
		s.cfg = newConfig
	})

	// 启动热更新管理器
	ctx := context.Background()
	if err := s.hotReloadManager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start hot reload manager: %w", err)
	}

	// 创建配置 API 处理器
	s.configAPIHandler = config.NewConfigAPIHandler(s.hotReloadManager)

	return nil
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// startHTTPServer 启动 HTTP 服务器
func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	// ========================================
	// 健康检查端点
	// ========================================
	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/readyz", s.healthHandler.HandleReady)

	// 版本信息端点
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// ========================================
	// 生成 API 路由
	// ========================================
	mux.HandleFunc("/api/v1/generate", s.generateHandler.HandleGenerate)
	mux.HandleFunc("/api/v1/generate/events", s.eventsHandler.HandleEvents)

	// ========================================
	// 管理 API（独立认证保护，不依赖全局中间件链顺序）
	// ========================================
	adminAuth := config.NewConfigAPIMiddleware(s.configAPIHandler, s.cfg.Auth.AdminAPIKey)
	mux.HandleFunc("/api/v1/admin/cache/clear", adminAuth.RequireAuth(s.adminHandler.HandleCacheClear))

	if s.configAPIHandler != nil {
		mux.HandleFunc("/api/v1/config", adminAuth.RequireAuth(s.configAPIHandler.HandleConfig))
		mux.HandleFunc("/api/v1/config/reload", adminAuth.RequireAuth(s.configAPIHandler.HandleReload))
		mux.HandleFunc("/api/v1/config/fields", adminAuth.RequireAuth(s.configAPIHandler.HandleFields))
		mux.HandleFunc("/api/v1/config/changes", adminAuth.RequireAuth(s.configAPIHandler.HandleChanges))
		s.logger.Info("Configuration API registered with authentication")
	}

	// ========================================
	// 构建中间件链
	// ========================================
	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel

	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		MetricsMiddleware(s.metricsCollector),
	}
	if s.cfg.Telemetry.Enabled {
		middlewares = append(middlewares, OTelTracing())
	}
	// 主体解析在限流之前，限流按主体（匿名时按 IP）计
	middlewares = append(middlewares, PrincipalAuth(s.cfg.Auth, s.logger))
	if s.cfg.RateLimit.Enabled {
		middlewares = append(middlewares,
			PrincipalRateLimiter(rateLimiterCtx, s.cfg.RateLimit.RPS, s.cfg.RateLimit.Burst, s.logger))
	}

	handler := Chain(mux, middlewares...)

	// ========================================
	// 使用 internal/server.Manager
	// ========================================
	serverConfig := server.Config{
		Name:            "api",
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20, // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)

	// 启动服务器（非阻塞）
	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

// startMetricsServer 启动 Metrics 服务器
func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Name:            "metrics",
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)

	// 启动服务器（非阻塞）
	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}

	s.Shutdown()
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx := context.Background()

	// 0. 停止 rate limiter 清理 goroutine
	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	// 1. 停止热更新管理器
	if s.hotReloadManager != nil {
		if err := s.hotReloadManager.Stop(); err != nil {
			s.logger.Error("Hot reload manager shutdown error", zap.Error(err))
		}
	}

	// 2. 关闭 HTTP 服务器
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	// 3. 关闭 Metrics 服务器
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	// 4. 关闭事件中心与 Redis 连接
	if s.hub != nil {
		s.hub.Close()
	}
	if s.cacheManager != nil {
		if err := s.cacheManager.Close(); err != nil {
			s.logger.Error("Cache manager shutdown error", zap.Error(err))
		}
	}

	// 5. 关闭数据库连接池
	if s.dbPool != nil {
		if err := s.dbPool.Close(); err != nil {
			s.logger.Error("Database pool shutdown error", zap.Error(err))
		}
	}

	// 6. 关闭遥测
	if s.otelProviders != nil {
		if err := s.otelProviders.Shutdown(ctx); err != nil {
			s.logger.Error("Telemetry shutdown error", zap.Error(err))
		}
	}

	// 7. 等待所有 goroutine 完成
	s.wg.Wait()

	s.logger.Info("Graceful shutdown completed")
}
