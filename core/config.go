package core

import "time"

// RecommendConfig 是推荐链路的成本控制配置接口，用于提供默认值。
// 协同过滤是 O(候选数 × 向量均长) 的算法，上限不是调优项而是硬约束。
type RecommendConfig interface {
	// DefaultCandidateCap 返回候选邻居用户数上限
	DefaultCandidateCap() int

	// DefaultNeighborCap 返回相似度达标后保留的邻居数上限
	DefaultNeighborCap() int

	// DefaultSimilarityThreshold 返回邻居相似度阈值
	DefaultSimilarityThreshold() float64

	// DefaultVectorTTL 返回互动向量缓存 TTL
	DefaultVectorTTL() time.Duration

	// DefaultTimeout 返回外部调用的默认超时
	DefaultTimeout() time.Duration
}

// DefaultRecommendConfig 是默认的推荐配置实现。
type DefaultRecommendConfig struct{}

func (c *DefaultRecommendConfig) DefaultCandidateCap() int {
	return 200
}

func (c *DefaultRecommendConfig) DefaultNeighborCap() int {
	return 50
}

func (c *DefaultRecommendConfig) DefaultSimilarityThreshold() float64 {
	return 0.3
}

func (c *DefaultRecommendConfig) DefaultVectorTTL() time.Duration {
	return time.Hour
}

func (c *DefaultRecommendConfig) DefaultTimeout() time.Duration {
	return 2 * time.Second
}
