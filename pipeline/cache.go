package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shapeflow/shapeflow/types"
)

// =============================================================================
// 💾 结果缓存
// =============================================================================

// CacheConfig 结果缓存配置
type CacheConfig struct {
	// 本地缓存最大条目数
	LocalMaxSize int `yaml:"local_max_size" json:"local_max_size"`

	// 本地缓存 TTL
	LocalTTL time.Duration `yaml:"local_ttl" json:"local_ttl"`

	// Redis 缓存 TTL
	RedisTTL time.Duration `yaml:"redis_ttl" json:"redis_ttl"`

	// 是否启用 Redis 二级缓存
	EnableRedis bool `yaml:"enable_redis" json:"enable_redis"`
}

// DefaultCacheConfig 默认结果缓存配置
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		LocalMaxSize: 256,
		LocalTTL:     30 * time.Minute,
		RedisTTL:     2 * time.Hour,
		EnableRedis:  false,
	}
}

// ResultCache 提示词键控的结果缓存：本地 LRU 一级，可选 Redis 二级。
// 缓存持有原件并维护命中计数；调用方对外交付前必须 Clone。
type ResultCache struct {
	local  *lruCache
	redis  *redis.Client
	config CacheConfig
	logger *zap.Logger
}

// NewResultCache 创建结果缓存。rdb 为 nil 或未启用 Redis 时仅本地一级。
func NewResultCache(rdb *redis.Client, config CacheConfig, logger *zap.Logger) *ResultCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultCache{
		local:  newLRUCache(config.LocalMaxSize, config.LocalTTL),
		redis:  rdb,
		config: config,
		logger: logger.With(zap.String("component", "result_cache")),
	}
}

// Get 查询缓存。命中时递增原件的命中计数，返回锁内制作的独立副本。
func (c *ResultCache) Get(ctx context.Context, key string) (*types.GenerationResult, bool) {
	// 1. 查本地
	if clone, ok := c.local.get(key); ok {
		c.logger.Debug("local cache hit", zap.String("key", key), zap.Int("hits", clone.Hits))
		return clone, true
	}

	// 2. 查 Redis
	if c.config.EnableRedis && c.redis != nil {
		data, err := c.redis.Get(ctx, redisKey(key)).Bytes()
		if err == nil {
			var result types.GenerationResult
			if err := json.Unmarshal(data, &result); err == nil {
				result.Hits++
				// 回填本地原件，交付其副本
				clone := result.Clone()
				c.local.set(key, &result)
				c.logger.Debug("redis cache hit", zap.String("key", key))
				return clone, true
			}
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis get error", zap.Error(err))
		}
	}

	return nil, false
}

// Set 写入缓存：本地直写，Redis 异常不阻断
func (c *ResultCache) Set(ctx context.Context, key string, result *types.GenerationResult) {
	c.local.set(key, result)

	if c.config.EnableRedis && c.redis != nil {
		data, err := json.Marshal(result)
		if err != nil {
			c.logger.Warn("result marshal error", zap.Error(err))
			return
		}
		if err := c.redis.Set(ctx, redisKey(key), data, c.config.RedisTTL).Err(); err != nil {
			c.logger.Warn("redis set error", zap.Error(err))
		}
	}

	c.logger.Debug("cache set", zap.String("key", key))
}

// Clear 清空缓存。本地条目逐个释放几何资源；Redis 条目按前缀扫描删除。
func (c *ResultCache) Clear(ctx context.Context) {
	c.local.clear()

	if c.config.EnableRedis && c.redis != nil {
		iter := c.redis.Scan(ctx, 0, redisKey("*"), 100).Iterator()
		for iter.Next(ctx) {
			if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
				c.logger.Warn("redis del error", zap.Error(err))
			}
		}
		if err := iter.Err(); err != nil {
			c.logger.Warn("redis scan error", zap.Error(err))
		}
	}

	c.logger.Info("result cache cleared")
}

// Len 本地缓存条目数
func (c *ResultCache) Len() int {
	return c.local.len()
}

func redisKey(key string) string {
	return "shapeflow:result_cache:" + key
}

// =============================================================================
// LRU 本地缓存（双向链表，O(1) 操作）
// =============================================================================

type lruCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*lruNode
	head     *lruNode // 最近使用
	tail     *lruNode // 最久未使用
}

type lruNode struct {
	key       string
	result    *types.GenerationResult
	expiresAt time.Time
	prev      *lruNode
	next      *lruNode
}

func newLRUCache(capacity int, ttl time.Duration) *lruCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &lruCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*lruNode),
	}
}

// get 命中时在锁内完成计数与深拷贝：原件只在锁内被触碰，
// 淘汰时的资源释放不会与已交付副本竞争。
func (c *lruCache) get(key string) (*types.GenerationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.items[key]
	if !ok {
		return nil, false
	}

	// 检查过期
	if c.ttl > 0 && time.Now().After(node.expiresAt) {
		c.removeNode(node)
		delete(c.items, key)
		node.result.Dispose()
		return nil, false
	}

	// 命中即最近使用
	c.moveToHead(node)
	node.result.Hits++

	return node.result.Clone(), true
}

func (c *lruCache) set(key string, result *types.GenerationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if node, ok := c.items[key]; ok {
		if node.result != result {
			node.result.Dispose()
		}
		node.result = result
		node.expiresAt = time.Now().Add(c.ttl)
		c.moveToHead(node)
		return
	}

	// 容量满时淘汰最久未使用的
	if len(c.items) >= c.capacity {
		c.evictTail()
	}

	node := &lruNode{
		key:       key,
		result:    result,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.items[key] = node
	c.addToHead(node)
}

func (c *lruCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, node := range c.items {
		node.result.Dispose()
		delete(c.items, key)
	}
	c.head = nil
	c.tail = nil
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *lruCache) addToHead(node *lruNode) {
	node.prev = nil
	node.next = c.head
	if c.head != nil {
		c.head.prev = node
	}
	c.head = node
	if c.tail == nil {
		c.tail = node
	}
}

func (c *lruCache) removeNode(node *lruNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		c.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		c.tail = node.prev
	}
	node.prev = nil
	node.next = nil
}

func (c *lruCache) moveToHead(node *lruNode) {
	if c.head == node {
		return
	}
	c.removeNode(node)
	c.addToHead(node)
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	victim := c.tail
	c.removeNode(victim)
	delete(c.items, victim.key)
	victim.result.Dispose()
}
