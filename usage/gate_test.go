package usage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shapeflow/shapeflow/internal/cache"
	"github.com/shapeflow/shapeflow/internal/database"
	"github.com/shapeflow/shapeflow/types"
)

func setupGate(t *testing.T, cfg Config) (*miniredis.Miniredis, *RedisGate, *Store) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	counters, err := cache.NewManager(cache.Config{Addr: mr.Addr()}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { counters.Close() })

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Profile{}, &Consumption{}))

	pool, err := database.NewPoolManager(db, database.PoolConfig{MaxIdleConns: 1, MaxOpenConns: 1}, zap.NewNop())
	require.NoError(t, err)

	store, err := NewStore(pool, zap.NewNop())
	require.NoError(t, err)

	return mr, NewRedisGate(counters, store, cfg, zap.NewNop()), store
}

// TestTierOf 主体到层级的映射
func TestTierOf(t *testing.T) {
	assert.Equal(t, TierProcedural, TierOf(Principal{Kind: KindAnonymous}))
	assert.Equal(t, TierShared, TierOf(Principal{Kind: KindAccount}))
	assert.Equal(t, TierUnlimited, TierOf(Principal{Kind: KindAccount, HasOwnCredential: true}))
}

// TestCheckPermissionTiers 各层级的许可结果
func TestCheckPermissionTiers(t *testing.T) {
	_, gate, _ := setupGate(t, DefaultConfig())
	ctx := context.Background()

	perm, err := gate.CheckPermission(ctx, Principal{ID: "a1", Kind: KindAnonymous})
	require.NoError(t, err)
	assert.Equal(t, TierProcedural, perm.Tier)
	assert.False(t, perm.RemoteInference)
	assert.Equal(t, int64(20), perm.DailyRemaining)

	perm, err = gate.CheckPermission(ctx, Principal{ID: "u1", Kind: KindAccount})
	require.NoError(t, err)
	assert.Equal(t, TierShared, perm.Tier)
	assert.True(t, perm.RemoteInference)
	assert.Equal(t, int64(50), perm.DailyRemaining)

	perm, err = gate.CheckPermission(ctx, Principal{ID: "u2", Kind: KindAccount, HasOwnCredential: true})
	require.NoError(t, err)
	assert.Equal(t, TierUnlimited, perm.Tier)
	assert.True(t, perm.RemoteInference)
	assert.Equal(t, int64(-1), perm.DailyRemaining)
}

// TestQuotaExhaustion 配额耗尽返回 QUOTA_EXCEEDED
func TestQuotaExhaustion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AnonymousDailyLimit = 2
	_, gate, _ := setupGate(t, cfg)

	ctx := context.Background()
	p := Principal{ID: "a1", Kind: KindAnonymous}

	for i := 0; i < 2; i++ {
		_, err := gate.CheckPermission(ctx, p)
		require.NoError(t, err)
		require.NoError(t, gate.RecordConsumption(ctx, p, "procedural"))
	}

	_, err := gate.CheckPermission(ctx, p)
	require.Error(t, err)
	assert.Equal(t, types.ErrQuotaExceeded, types.GetErrorCode(err))
}

// TestQuotaIsPerPrincipal 配额按主体隔离
func TestQuotaIsPerPrincipal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AnonymousDailyLimit = 1
	_, gate, _ := setupGate(t, cfg)

	ctx := context.Background()
	require.NoError(t, gate.RecordConsumption(ctx, Principal{ID: "a1", Kind: KindAnonymous}, "procedural"))

	_, err := gate.CheckPermission(ctx, Principal{ID: "a1", Kind: KindAnonymous})
	require.Error(t, err)

	_, err = gate.CheckPermission(ctx, Principal{ID: "a2", Kind: KindAnonymous})
	require.NoError(t, err)
}

// TestUnlimitedSkipsCounter 自带凭证不计数
func TestUnlimitedSkipsCounter(t *testing.T) {
	mr, gate, _ := setupGate(t, DefaultConfig())
	ctx := context.Background()
	p := Principal{ID: "u1", Kind: KindAccount, HasOwnCredential: true}

	for i := 0; i < 5; i++ {
		require.NoError(t, gate.RecordConsumption(ctx, p, "inference"))
	}

	assert.Empty(t, mr.Keys())

	_, err := gate.CheckPermission(ctx, p)
	require.NoError(t, err)
}

// TestConsumptionPersisted 消费记录落库
func TestConsumptionPersisted(t *testing.T) {
	_, gate, store := setupGate(t, DefaultConfig())
	ctx := context.Background()
	p := Principal{ID: "u1", Kind: KindAccount}

	require.NoError(t, gate.RecordConsumption(ctx, p, "inference"))
	require.NoError(t, gate.RecordConsumption(ctx, p, "procedural"))

	count, err := store.CountSince(ctx, "u1", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	recs, err := store.RecentConsumptions(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, string(TierShared), recs[0].Tier)
}

// TestEnsureProfileUpserts 档案重复写入保持单行
func TestEnsureProfileUpserts(t *testing.T) {
	_, _, store := setupGate(t, DefaultConfig())
	ctx := context.Background()

	p := Principal{ID: "u1", Kind: KindAccount}
	require.NoError(t, store.EnsureProfile(ctx, p))

	p.HasOwnCredential = true
	require.NoError(t, store.EnsureProfile(ctx, p))

	var profiles []Profile
	require.NoError(t, store.pool.DB().WithContext(ctx).Find(&profiles).Error)
	require.Len(t, profiles, 1)
	assert.True(t, profiles[0].HasOwnCredential)
}

// TestAnonymousPrincipal 匿名主体有唯一标识
func TestAnonymousPrincipal(t *testing.T) {
	a := AnonymousPrincipal()
	b := AnonymousPrincipal()
	assert.Equal(t, KindAnonymous, a.Kind)
	assert.NotEqual(t, a.ID, b.ID)
}

// TestAnonymousPrincipalFor 同一客户端标识映射到稳定主体
func TestAnonymousPrincipalFor(t *testing.T) {
	a := AnonymousPrincipalFor("browser-1")
	b := AnonymousPrincipalFor("browser-1")
	c := AnonymousPrincipalFor("browser-2")
	assert.Equal(t, KindAnonymous, a.Kind)
	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, c.ID)

	// 空标识退化为一次性主体
	assert.NotEqual(t, AnonymousPrincipalFor("").ID, AnonymousPrincipalFor("").ID)
}

// TestStableAnonymousQuotaAccumulates 同一浏览器的重复请求共享计数键，超限被拒
func TestStableAnonymousQuotaAccumulates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AnonymousDailyLimit = 1
	_, gate, _ := setupGate(t, cfg)
	ctx := context.Background()

	p := AnonymousPrincipalFor("same-browser")
	_, err := gate.CheckPermission(ctx, p)
	require.NoError(t, err)
	require.NoError(t, gate.RecordConsumption(ctx, p, "procedural"))

	// 每次请求重新派生主体，计数仍然累计
	_, err = gate.CheckPermission(ctx, AnonymousPrincipalFor("same-browser"))
	require.Error(t, err)
	assert.Equal(t, types.ErrQuotaExceeded, types.GetErrorCode(err))
}
