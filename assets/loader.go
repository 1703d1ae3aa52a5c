package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/shapeflow/shapeflow/geometry"
	"github.com/shapeflow/shapeflow/internal/pool"
	"github.com/shapeflow/shapeflow/internal/tlsutil"
	"github.com/shapeflow/shapeflow/types"
)

// Config 资产加载配置
type Config struct {
	// 目录端点基地址
	BaseURL string `yaml:"base_url" json:"base_url"`

	// 单次拉取超时
	FetchTimeout time.Duration `yaml:"fetch_timeout" json:"fetch_timeout"`

	// 响应体大小上限
	MaxBodyBytes int64 `yaml:"max_body_bytes" json:"max_body_bytes"`

	// 缓存容量（条目数）
	MaxCacheEntries int `yaml:"max_cache_entries" json:"max_cache_entries"`

	// 缓存条目存活时间
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl"`

	// 归一化目标：最大包围盒尺寸
	TargetDimension float64 `yaml:"target_dimension" json:"target_dimension"`
}

// DefaultConfig 返回默认资产加载配置
func DefaultConfig() Config {
	return Config{
		BaseURL:         "https://assets.shapeflow.dev",
		FetchTimeout:    10 * time.Second,
		MaxBodyBytes:    16 << 20, // 16 MB
		MaxCacheEntries: 64,
		CacheTTL:        30 * time.Minute,
		TargetDimension: 3.0,
	}
}

// Loader 资产加载器：拉取、解码、归一化并缓存目录资产。
// 同一标识的并发加载会被合并为一次在途请求。
type Loader struct {
	catalog *Catalog
	cfg     Config
	client  *http.Client
	flight  singleflight.Group
	logger  *zap.Logger

	mu    sync.Mutex
	cache map[string]*cachedAsset
}

type cachedAsset struct {
	result   *types.GenerationResult
	storedAt time.Time
	lastUsed time.Time
}

// NewLoader 创建加载器
func NewLoader(catalog *Catalog, cfg Config, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		catalog: catalog,
		cfg:     cfg,
		client:  tlsutil.SecureHTTPClient(cfg.FetchTimeout),
		logger:  logger.With(zap.String("component", "asset_loader")),
		cache:   make(map[string]*cachedAsset),
	}
}

// Load 按资产标识加载。命中缓存直接返回独立副本；
// 未命中时拉取并解码，失败返回 FetchError / ParseError。
func (l *Loader) Load(ctx context.Context, id string) (*types.GenerationResult, error) {
	if cached := l.fromCache(id); cached != nil {
		return cached, nil
	}

	// 在途请求合并：并发调用等待同一次拉取。
	// 共享拉取不随首个调用方的断开而取消，只受拉取超时约束。
	ch := l.flight.DoChan(id, func() (any, error) {
		timeout := l.cfg.FetchTimeout
		if timeout <= 0 {
			timeout = DefaultConfig().FetchTimeout
		}
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return l.fetchAndDecode(fctx, id)
	})

	select {
	case <-ctx.Done():
		return nil, types.NewError(types.ErrFetchError, "asset load cancelled").WithCause(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		result := res.Val.(*types.GenerationResult)
		l.store(id, result)
		return result.Clone(), nil
	}
}

// ClearCache 清空资产缓存并释放条目持有的几何资源
func (l *Loader) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, entry := range l.cache {
		entry.result.Dispose()
		delete(l.cache, id)
	}
}

// fromCache 带 TTL 检查的缓存查找，命中返回克隆
func (l *Loader) fromCache(id string) *types.GenerationResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.cache[id]
	if !ok {
		return nil
	}
	if l.cfg.CacheTTL > 0 && time.Since(entry.storedAt) > l.cfg.CacheTTL {
		delete(l.cache, id)
		entry.result.Dispose()
		return nil
	}
	entry.lastUsed = time.Now()
	return entry.result.Clone()
}

// store 写入缓存，超容时淘汰最久未使用的条目并释放其资源
func (l *Loader) store(id string, result *types.GenerationResult) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.cache[id]; !ok && l.cfg.MaxCacheEntries > 0 && len(l.cache) >= l.cfg.MaxCacheEntries {
		var oldestID string
		var oldest time.Time
		for k, e := range l.cache {
			if oldestID == "" || e.lastUsed.Before(oldest) {
				oldestID, oldest = k, e.lastUsed
			}
		}
		if victim, ok := l.cache[oldestID]; ok {
			victim.result.Dispose()
			delete(l.cache, oldestID)
		}
	}
	// 合并窗口内的多次写入携带同一原件，不可自我释放
	if old, ok := l.cache[id]; ok && old.result != result {
		old.result.Dispose()
	}
	now := time.Now()
	l.cache[id] = &cachedAsset{result: result, storedAt: now, lastUsed: now}
}

// fetchAndDecode 拉取并解码资产，随后做统一归一化：
// 最大包围盒尺寸缩放到目标常量，底面落在地面参考平面上。
func (l *Loader) fetchAndDecode(ctx context.Context, id string) (*types.GenerationResult, error) {
	entry, ok := l.catalog.Entry(id)
	if !ok {
		return nil, types.NewError(types.ErrFetchError, fmt.Sprintf("unknown asset id %q", id))
	}

	url := strings.TrimRight(l.cfg.BaseURL, "/") + "/" + strings.TrimLeft(entry.Path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, types.NewError(types.ErrFetchError, "failed to create request").WithCause(err)
	}

	start := time.Now()
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrFetchError, "asset fetch failed").WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewError(types.ErrFetchError,
			fmt.Sprintf("asset fetch status %d for %s", resp.StatusCode, entry.Path))
	}

	// 复用缓冲读取响应体；DecodeOBJ 不保留对字节的引用
	buf := pool.ByteBufferPool.Get()
	defer pool.ByteBufferPool.Put(buf)
	if _, err := io.Copy(buf, io.LimitReader(resp.Body, l.cfg.MaxBodyBytes)); err != nil {
		return nil, types.NewError(types.ErrFetchError, "failed to read asset body").WithCause(err)
	}

	mesh, err := DecodeOBJ(buf.Bytes())
	if err != nil {
		return nil, err
	}

	node := geometry.NewMeshNode(id, mesh)
	node.NormalizeMaxDimension(l.cfg.TargetDimension)
	node.RestOnGround()

	l.logger.Debug("asset loaded",
		zap.String("asset_id", id),
		zap.Int("vertices", mesh.VertexCount()),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &types.GenerationResult{
		ID:        uuid.NewString(),
		Strategy:  types.StrategyAsset,
		Object:    node,
		CreatedAt: time.Now(),
	}, nil
}

// Prewarm 并发预热目录资产：逐个拉取并填充本地缓存。
// 单个资产失败只记日志，不中断其余预热。
func (l *Loader) Prewarm(ctx context.Context, concurrency int) {
	ids := l.catalog.IDs()
	if len(ids) == 0 {
		return
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	workers := pool.NewGoroutinePool(pool.GoroutinePoolConfig{
		MaxWorkers:  concurrency,
		QueueSize:   len(ids),
		IdleTimeout: time.Second,
	})

	start := time.Now()
	var failed atomic.Int32
	for _, id := range ids {
		assetID := id
		if err := workers.Submit(ctx, func(ctx context.Context) error {
			if _, err := l.Load(ctx, assetID); err != nil {
				failed.Add(1)
				l.logger.Warn("asset prewarm failed",
					zap.String("asset_id", assetID),
					zap.Error(err),
				)
				return err
			}
			return nil
		}); err != nil {
			failed.Add(1)
			l.logger.Warn("asset prewarm submit failed",
				zap.String("asset_id", assetID),
				zap.Error(err),
			)
		}
	}
	workers.Close()

	l.logger.Info("asset prewarm finished",
		zap.Int("total", len(ids)),
		zap.Int32("failed", failed.Load()),
		zap.Duration("elapsed", time.Since(start)),
	)
}
