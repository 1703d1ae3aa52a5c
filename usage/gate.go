package usage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shapeflow/shapeflow/internal/cache"
	"github.com/shapeflow/shapeflow/types"
)

// =============================================================================
// 🎫 主体与层级
// =============================================================================

// Kind 主体类别
type Kind string

const (
	KindAnonymous Kind = "anonymous"
	KindAccount   Kind = "account"
)

// Tier 用量层级
type Tier string

const (
	// TierProcedural 仅允许本地程序化合成
	TierProcedural Tier = "procedural"

	// TierShared 通过共享凭证的受限远端推理
	TierShared Tier = "shared"

	// TierUnlimited 自带凭证，不受服务端配额约束
	TierUnlimited Tier = "unlimited"
)

// Principal 请求主体。Credential 仅在请求内传递，永不持久化。
type Principal struct {
	ID               string `json:"id"`
	Kind             Kind   `json:"kind"`
	HasOwnCredential bool   `json:"has_own_credential"`
	Credential       string `json:"-"`
}

// AnonymousPrincipal 创建一个一次性的匿名主体。
// 按日配额依赖稳定标识，HTTP 入口应使用 AnonymousPrincipalFor。
func AnonymousPrincipal() Principal {
	return Principal{
		ID:   "anon-" + uuid.NewString(),
		Kind: KindAnonymous,
	}
}

// AnonymousPrincipalFor 从客户端标识派生稳定的匿名主体，
// 同一浏览器的请求落在同一个计数键上。标识为空时退化为一次性主体。
func AnonymousPrincipalFor(identity string) Principal {
	if identity == "" {
		return AnonymousPrincipal()
	}
	sum := sha256.Sum256([]byte(identity))
	return Principal{
		ID:   "anon-" + hex.EncodeToString(sum[:8]),
		Kind: KindAnonymous,
	}
}

// TierOf 主体到层级的映射
func TierOf(p Principal) Tier {
	switch {
	case p.Kind == KindAccount && p.HasOwnCredential:
		return TierUnlimited
	case p.Kind == KindAccount:
		return TierShared
	default:
		return TierProcedural
	}
}

// Permission 许可检查结果
type Permission struct {
	Tier Tier `json:"tier"`

	// 是否允许触达远端推理策略
	RemoteInference bool `json:"remote_inference"`

	// 是否允许拉取远端资产目录
	AssetFetch bool `json:"asset_fetch"`

	// 当日剩余额度；-1 表示不限量
	DailyRemaining int64 `json:"daily_remaining"`
}

// =============================================================================
// 🚪 门控接口
// =============================================================================

// Gate 用量门控。CheckPermission 在任何策略运行之前调用；
// RecordConsumption 在生成成功后由调用方调用，两者之间不保证原子性。
type Gate interface {
	CheckPermission(ctx context.Context, p Principal) (Permission, error)
	RecordConsumption(ctx context.Context, p Principal, strategy string) error
}

// Config 门控配额配置
type Config struct {
	// 匿名主体每日生成上限
	AnonymousDailyLimit int64 `yaml:"anonymous_daily_limit" json:"anonymous_daily_limit"`

	// 共享凭证账号每日生成上限
	SharedDailyLimit int64 `yaml:"shared_daily_limit" json:"shared_daily_limit"`

	// 计数键过期时间
	CounterTTL time.Duration `yaml:"counter_ttl" json:"counter_ttl"`
}

// DefaultConfig 返回默认门控配置
func DefaultConfig() Config {
	return Config{
		AnonymousDailyLimit: 20,
		SharedDailyLimit:    50,
		CounterTTL:          25 * time.Hour,
	}
}

// RedisGate 基于 Redis 按日计数的门控实现；
// 可选地把主体档案与消费记录写入 GORM 存储。
type RedisGate struct {
	counters *cache.Manager
	store    *Store
	cfg      Config
	logger   *zap.Logger
}

// NewRedisGate 创建门控。store 可为 nil（不留痕，仅计数）。
func NewRedisGate(counters *cache.Manager, store *Store, cfg Config, logger *zap.Logger) *RedisGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisGate{
		counters: counters,
		store:    store,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "usage_gate")),
	}
}

// CheckPermission 检查主体当日配额并给出层级许可
func (g *RedisGate) CheckPermission(ctx context.Context, p Principal) (Permission, error) {
	tier := TierOf(p)
	if tier == TierUnlimited {
		return Permission{Tier: tier, RemoteInference: true, AssetFetch: true, DailyRemaining: -1}, nil
	}

	limit := g.limitFor(tier)
	count, err := g.counters.GetCount(ctx, counterKey(p, time.Now()))
	if err != nil {
		return Permission{}, types.NewError(types.ErrInternalError, "usage counter unavailable").WithCause(err)
	}
	if count >= limit {
		return Permission{}, types.NewError(types.ErrQuotaExceeded,
			fmt.Sprintf("daily quota of %d generations exhausted", limit)).
			WithHTTPStatus(http.StatusTooManyRequests)
	}

	return Permission{
		Tier:            tier,
		RemoteInference: tier == TierShared,
		AssetFetch:      tier != TierProcedural,
		DailyRemaining:  limit - count,
	}, nil
}

// RecordConsumption 递增当日计数并写入消费记录
func (g *RedisGate) RecordConsumption(ctx context.Context, p Principal, strategy string) error {
	tier := TierOf(p)
	if tier != TierUnlimited {
		if _, err := g.counters.IncrWithTTL(ctx, counterKey(p, time.Now()), g.cfg.CounterTTL); err != nil {
			return types.NewError(types.ErrInternalError, "usage counter increment failed").WithCause(err)
		}
	}

	if g.store != nil {
		if err := g.store.Record(ctx, p, strategy, tier); err != nil {
			// 留痕失败不阻断请求
			g.logger.Warn("consumption record failed",
				zap.String("principal", p.ID),
				zap.Error(err),
			)
		}
	}

	g.logger.Debug("consumption recorded",
		zap.String("principal", p.ID),
		zap.String("tier", string(tier)),
		zap.String("strategy", strategy),
	)
	return nil
}

func (g *RedisGate) limitFor(tier Tier) int64 {
	if tier == TierShared {
		return g.cfg.SharedDailyLimit
	}
	return g.cfg.AnonymousDailyLimit
}

// counterKey 主体 + UTC 日期的计数键
func counterKey(p Principal, now time.Time) string {
	return fmt.Sprintf("usage:%s:%s", p.ID, now.UTC().Format("2006-01-02"))
}
