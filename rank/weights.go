package rank

import (
	"fmt"
	"math"
)

// WeightConfig 是组合打分公式的权重配置。
//
// 强类型字段替代 map[string]float64 查表：权重集合是有限且已知的六个分量，
// 实验切换的是取值而不是 key 集合。
//
// 约定：非 Prestige 的五个权重之和 ≈ 1.0（各分量已归一到 0-100，
// 加权和天然落在 0-100 量级）；Prestige 是额外的加成项，不参与归一。
type WeightConfig struct {
	Recency         float64
	Relevance       float64
	Engagement      float64
	Diversity       float64
	Personalization float64
	Prestige        float64
}

// weightSumTolerance 非 Prestige 权重和的允许偏差。
const weightSumTolerance = 0.01

// DefaultWeights 返回基准（control）权重集。
func DefaultWeights() WeightConfig {
	return WeightConfig{
		Recency:         0.30,
		Relevance:       0.25,
		Engagement:      0.20,
		Diversity:       0.10,
		Personalization: 0.15,
		Prestige:        0.10,
	}
}

// VariantWeightSets 返回内置的实验变体权重集。
// key 即变体名，与 experiment.Assigner 的变体列表对应。
func VariantWeightSets() map[string]WeightConfig {
	return map[string]WeightConfig{
		"control": DefaultWeights(),
		"recency_heavy": {
			Recency:         0.50,
			Relevance:       0.20,
			Engagement:      0.15,
			Diversity:       0.05,
			Personalization: 0.10,
			Prestige:        0.10,
		},
		"engagement_heavy": {
			Recency:         0.20,
			Relevance:       0.15,
			Engagement:      0.45,
			Diversity:       0.05,
			Personalization: 0.15,
			Prestige:        0.10,
		},
		"prestige_heavy": {
			Recency:         0.25,
			Relevance:       0.25,
			Engagement:      0.20,
			Diversity:       0.10,
			Personalization: 0.20,
			Prestige:        0.30,
		},
	}
}

// Validate 校验非 Prestige 权重之和是否 ≈ 1.0。
func (w WeightConfig) Validate() error {
	sum := w.Recency + w.Relevance + w.Engagement + w.Diversity + w.Personalization
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("rank: non-prestige weights sum to %.4f, want 1.0±%.2f", sum, weightSumTolerance)
	}
	return nil
}

// WeightsFromMap 从动态配置（YAML/JSON 解析结果）构建 WeightConfig。
// 只认六个已知 key，未知 key 忽略；未给出的分量保留默认值。
func WeightsFromMap(m map[string]float64) WeightConfig {
	w := DefaultWeights()
	if m == nil {
		return w
	}
	if v, ok := m["recency"]; ok {
		w.Recency = v
	}
	if v, ok := m["relevance"]; ok {
		w.Relevance = v
	}
	if v, ok := m["engagement"]; ok {
		w.Engagement = v
	}
	if v, ok := m["diversity"]; ok {
		w.Diversity = v
	}
	if v, ok := m["personalization"]; ok {
		w.Personalization = v
	}
	if v, ok := m["prestige"]; ok {
		w.Prestige = v
	}
	return w
}

// ResolveVariant 按变体名从 sets 取权重集；未知变体名回退到基准权重，
// 不报错（实验配置错误不应影响线上排序）。
func ResolveVariant(sets map[string]WeightConfig, variant string) WeightConfig {
	if sets != nil {
		if w, ok := sets[variant]; ok {
			return w
		}
	}
	return DefaultWeights()
}
