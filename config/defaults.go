// =============================================================================
// 📦 ShapeFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:     DefaultServerConfig(),
		Inference:  DefaultInferenceConfig(),
		Assets:     DefaultAssetsConfig(),
		Procedural: DefaultProceduralConfig(),
		Pipeline:   DefaultPipelineConfig(),
		Usage:      DefaultUsageConfig(),
		Auth:       DefaultAuthConfig(),
		RateLimit:  DefaultRateLimitConfig(),
		Redis:      DefaultRedisConfig(),
		Database:   DefaultDatabaseConfig(),
		Log:        DefaultLogConfig(),
		Telemetry:  DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// DefaultInferenceConfig 返回默认推理配置
func DefaultInferenceConfig() InferenceConfig {
	return InferenceConfig{
		BaseURL:      "https://api-inference.huggingface.co",
		Model:        "shap-e",
		SharedAPIKey: "",
		Timeout:      30 * time.Second,
		MinInterval:  time.Second,
		DailyLimit:   200,
	}
}

// DefaultAssetsConfig 返回默认资产配置
func DefaultAssetsConfig() AssetsConfig {
	return AssetsConfig{
		BaseURL:            "https://assets.shapeflow.dev",
		FetchTimeout:       10 * time.Second,
		MaxCacheEntries:    64,
		CacheTTL:           30 * time.Minute,
		PrewarmConcurrency: 4,
	}
}

// DefaultProceduralConfig 返回默认程序化合成配置
func DefaultProceduralConfig() ProceduralConfig {
	return ProceduralConfig{
		Spacing:           2.5,
		BaseSize:          1.0,
		Seed:              1,
		AnimationDuration: 600 * time.Millisecond,
	}
}

// DefaultPipelineConfig 返回默认编排配置
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		InferenceDeadline:  45 * time.Second,
		AssetDeadline:      10 * time.Second,
		ProceduralDeadline: 2 * time.Second,
		AnimationDuration:  600 * time.Millisecond,
		CacheMaxSize:       256,
		CacheLocalTTL:      30 * time.Minute,
		CacheRedisTTL:      2 * time.Hour,
		CacheEnableRedis:   false,
	}
}

// DefaultUsageConfig 返回默认用量门控配置
func DefaultUsageConfig() UsageConfig {
	return UsageConfig{
		AnonymousDailyLimit: 20,
		SharedDailyLimit:    50,
		CounterTTL:          25 * time.Hour,
	}
}

// DefaultAuthConfig 返回默认认证配置
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret: "",
		TokenTTL:  24 * time.Hour,
	}
}

// DefaultRateLimitConfig 返回默认限流配置
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled: true,
		RPS:     10,
		Burst:   20,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		User:            "shapeflow",
		Password:        "",
		Name:            "shapeflow.db",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "shapeflow",
		SampleRate:   0.1,
	}
}
