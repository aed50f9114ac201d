package recall

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rushteam/feedkit/core"
)

// SignalWeights 是互动信号 → 权重的映射。同一内容的多个信号累加。
type SignalWeights map[string]float64

// DefaultSignalWeights 返回默认的信号权重。
func DefaultSignalWeights() SignalWeights {
	return SignalWeights{
		"play":         1.0,
		"like":         3.0,
		"download":     2.0,
		"playlist_add": 2.5,
	}
}

// VectorBuilder 构建用户的互动向量（map[itemID]weight），并做短 TTL 记忆化。
// 向量重算是协同过滤的主要成本，缓存命中时省掉一次互动日志聚合。
type VectorBuilder struct {
	Store core.InteractionStore

	// Cache 可选；nil 时每次都从 Store 重算
	Cache core.Store

	// TTL 缓存时长，默认 1 小时
	TTL time.Duration

	// KeyPrefix 缓存 key 前缀，默认 "feed:vector"
	KeyPrefix string
}

func (b *VectorBuilder) ttlSeconds() int {
	ttl := b.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return int(ttl / time.Second)
}

func (b *VectorBuilder) cacheKey(userID string) string {
	prefix := b.KeyPrefix
	if prefix == "" {
		prefix = "feed:vector"
	}
	return prefix + ":" + userID
}

// Build 返回用户的互动向量。无互动历史时返回空 map，不是错误。
func (b *VectorBuilder) Build(ctx context.Context, userID string) (map[string]float64, error) {
	if b.Cache != nil {
		if data, err := b.Cache.Get(ctx, b.cacheKey(userID)); err == nil {
			var vec map[string]float64
			if json.Unmarshal(data, &vec) == nil {
				return vec, nil
			}
			// 缓存内容损坏：当 miss 处理，重算后覆盖
		}
	}

	vec, err := b.Store.GetInteractions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if vec == nil {
		vec = make(map[string]float64)
	}

	if b.Cache != nil {
		if data, err := json.Marshal(vec); err == nil {
			// 缓存写失败不影响结果
			_ = b.Cache.Set(ctx, b.cacheKey(userID), data, b.ttlSeconds())
		}
	}
	return vec, nil
}

// Invalidate 主动失效用户的向量缓存（例如新互动写入后）。
func (b *VectorBuilder) Invalidate(ctx context.Context, userID string) {
	if b.Cache != nil {
		_ = b.Cache.Delete(ctx, b.cacheKey(userID))
	}
}
