package usage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shapeflow/shapeflow/internal/database"
)

// =============================================================================
// 🗄️ 持久化存储
// =============================================================================

// Profile 主体档案表
type Profile struct {
	ID               string    `gorm:"primaryKey;size:64" json:"id"`
	Kind             string    `gorm:"size:16;not null" json:"kind"`
	HasOwnCredential bool      `gorm:"not null;default:false" json:"has_own_credential"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Profile) TableName() string { return "usage_profiles" }

// Consumption 消费记录表
type Consumption struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PrincipalID string    `gorm:"size:64;index;not null" json:"principal_id"`
	Strategy    string    `gorm:"size:32;not null" json:"strategy"`
	Tier        string    `gorm:"size:16;not null" json:"tier"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (Consumption) TableName() string { return "usage_consumptions" }

// Store GORM 主体档案与消费记录存储
type Store struct {
	pool   *database.PoolManager
	logger *zap.Logger
}

// NewStore 创建存储。表结构由 internal/migration 迁移维护。
func NewStore(pool *database.PoolManager, logger *zap.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		pool:   pool,
		logger: logger.With(zap.String("component", "usage_store")),
	}, nil
}

// EnsureProfile 确保主体档案存在并与当前属性一致
func (s *Store) EnsureProfile(ctx context.Context, p Principal) error {
	if err := s.pool.WithTransaction(ctx, func(tx *gorm.DB) error {
		return ensureProfileTx(tx, p)
	}); err != nil {
		return fmt.Errorf("failed to ensure profile: %w", err)
	}
	return nil
}

func ensureProfileTx(tx *gorm.DB, p Principal) error {
	profile := Profile{
		ID:               p.ID,
		Kind:             string(p.Kind),
		HasOwnCredential: p.HasOwnCredential,
	}
	return tx.
		Where(Profile{ID: p.ID}).
		Assign(Profile{Kind: string(p.Kind), HasOwnCredential: p.HasOwnCredential}).
		FirstOrCreate(&profile).Error
}

// Record 在一个事务里落档案与消费记录，瞬时冲突自动重试
func (s *Store) Record(ctx context.Context, p Principal, strategy string, tier Tier) error {
	err := s.pool.WithTransactionRetry(ctx, 3, func(tx *gorm.DB) error {
		if err := ensureProfileTx(tx, p); err != nil {
			return err
		}
		rec := Consumption{
			PrincipalID: p.ID,
			Strategy:    strategy,
			Tier:        string(tier),
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return fmt.Errorf("failed to record consumption: %w", err)
	}
	return nil
}

// CountSince 统计主体自某时刻起的消费次数
func (s *Store) CountSince(ctx context.Context, principalID string, since time.Time) (int64, error) {
	var count int64
	err := s.pool.DB().WithContext(ctx).
		Model(&Consumption{}).
		Where("principal_id = ? AND created_at >= ?", principalID, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count consumptions: %w", err)
	}
	return count, nil
}

// RecentConsumptions 查询主体最近的消费记录
func (s *Store) RecentConsumptions(ctx context.Context, principalID string, limit int) ([]Consumption, error) {
	var recs []Consumption
	err := s.pool.DB().WithContext(ctx).
		Where("principal_id = ?", principalID).
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list consumptions: %w", err)
	}
	return recs, nil
}
