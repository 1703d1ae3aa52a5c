package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- DefaultConfig aggregate ---

func TestDefaultConfig_ContainsAllSubConfigs(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	// Each sub-config should be non-zero
	assert.NotEqual(t, ServerConfig{}, cfg.Server)
	assert.NotEqual(t, InferenceConfig{}, cfg.Inference)
	assert.NotEqual(t, AssetsConfig{}, cfg.Assets)
	assert.NotEqual(t, ProceduralConfig{}, cfg.Procedural)
	assert.NotEqual(t, PipelineConfig{}, cfg.Pipeline)
	assert.NotEqual(t, UsageConfig{}, cfg.Usage)
	assert.NotEqual(t, RateLimitConfig{}, cfg.RateLimit)
	assert.NotEqual(t, RedisConfig{}, cfg.Redis)
	assert.NotEqual(t, DatabaseConfig{}, cfg.Database)
	assert.NotEqual(t, LogConfig{}, cfg.Log)
	assert.NotEqual(t, TelemetryConfig{}, cfg.Telemetry)
}

// --- Individual Default*Config functions ---

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 9091, cfg.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
}

func TestDefaultInferenceConfig(t *testing.T) {
	cfg := DefaultInferenceConfig()
	assert.Equal(t, "https://api-inference.huggingface.co", cfg.BaseURL)
	assert.Equal(t, "shap-e", cfg.Model)
	assert.Empty(t, cfg.SharedAPIKey)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, time.Second, cfg.MinInterval)
	assert.Equal(t, 200, cfg.DailyLimit)
}

func TestDefaultAssetsConfig(t *testing.T) {
	cfg := DefaultAssetsConfig()
	assert.Equal(t, "https://assets.shapeflow.dev", cfg.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 64, cfg.MaxCacheEntries)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
}

func TestDefaultProceduralConfig(t *testing.T) {
	cfg := DefaultProceduralConfig()
	assert.InDelta(t, 2.5, cfg.Spacing, 0.001)
	assert.InDelta(t, 1.0, cfg.BaseSize, 0.001)
	assert.Equal(t, int64(1), cfg.Seed)
}

func TestDefaultPipelineConfig(t *testing.T) {
	cfg := DefaultPipelineConfig()
	assert.Equal(t, 45*time.Second, cfg.InferenceDeadline)
	assert.Equal(t, 10*time.Second, cfg.AssetDeadline)
	assert.Equal(t, 2*time.Second, cfg.ProceduralDeadline)
	assert.Equal(t, 600*time.Millisecond, cfg.AnimationDuration)
	assert.Equal(t, 256, cfg.CacheMaxSize)
	assert.Equal(t, 30*time.Minute, cfg.CacheLocalTTL)
	assert.Equal(t, 2*time.Hour, cfg.CacheRedisTTL)
	assert.False(t, cfg.CacheEnableRedis)
}

func TestDefaultUsageConfig(t *testing.T) {
	cfg := DefaultUsageConfig()
	assert.Equal(t, int64(20), cfg.AnonymousDailyLimit)
	assert.Equal(t, int64(50), cfg.SharedDailyLimit)
	assert.Equal(t, 25*time.Hour, cfg.CounterTTL)
}

func TestDefaultAuthConfig(t *testing.T) {
	cfg := DefaultAuthConfig()
	assert.Empty(t, cfg.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	assert.True(t, cfg.Enabled)
	assert.InDelta(t, 10.0, cfg.RPS, 0.001)
	assert.Equal(t, 20, cfg.Burst)
}

func TestDefaultRedisConfig(t *testing.T) {
	cfg := DefaultRedisConfig()
	assert.Equal(t, "localhost:6379", cfg.Addr)
	assert.Empty(t, cfg.Password)
	assert.Equal(t, 0, cfg.DB)
	assert.Equal(t, 10, cfg.PoolSize)
	assert.Equal(t, 2, cfg.MinIdleConns)
}

func TestDefaultDatabaseConfig(t *testing.T) {
	cfg := DefaultDatabaseConfig()
	assert.Equal(t, "sqlite", cfg.Driver)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "shapeflow", cfg.User)
	assert.Empty(t, cfg.Password)
	assert.Equal(t, "shapeflow.db", cfg.Name)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.Equal(t, 25, cfg.MaxOpenConns)
	assert.Equal(t, 5, cfg.MaxIdleConns)
	assert.Equal(t, 5*time.Minute, cfg.ConnMaxLifetime)
}

func TestDefaultLogConfig(t *testing.T) {
	cfg := DefaultLogConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, []string{"stdout"}, cfg.OutputPaths)
	assert.True(t, cfg.EnableCaller)
	assert.False(t, cfg.EnableStacktrace)
}

func TestDefaultTelemetryConfig(t *testing.T) {
	cfg := DefaultTelemetryConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	assert.Equal(t, "shapeflow", cfg.ServiceName)
	assert.InDelta(t, 0.1, cfg.SampleRate, 0.001)
}
