package rank

import (
	"testing"
)

// TestDefaultWeightsValid 内置权重集必须全部通过校验
func TestDefaultWeightsValid(t *testing.T) {
	if err := DefaultWeights().Validate(); err != nil {
		t.Errorf("DefaultWeights 校验失败: %v", err)
	}
	for name, w := range VariantWeightSets() {
		if err := w.Validate(); err != nil {
			t.Errorf("变体 %q 校验失败: %v", name, err)
		}
	}
}

// TestValidateRejectsBadSum 非 Prestige 权重和偏离 1.0 超过容差时报错
func TestValidateRejectsBadSum(t *testing.T) {
	w := WeightConfig{Recency: 0.5, Relevance: 0.5, Engagement: 0.5}
	if err := w.Validate(); err == nil {
		t.Error("权重和 1.5 应该校验失败")
	}

	// Prestige 不参与归一，取大值不影响校验
	w = DefaultWeights()
	w.Prestige = 5.0
	if err := w.Validate(); err != nil {
		t.Errorf("Prestige 不应参与权重和校验: %v", err)
	}
}

// TestWeightsFromMap 动态配置只认已知 key，缺省字段保留默认值
func TestWeightsFromMap(t *testing.T) {
	w := WeightsFromMap(map[string]float64{
		"recency":     0.50,
		"engagement":  0.10,
		"unknown_key": 9.9, // 未知 key 忽略
	})

	if w.Recency != 0.50 {
		t.Errorf("Recency = %v, want 0.50", w.Recency)
	}
	if w.Engagement != 0.10 {
		t.Errorf("Engagement = %v, want 0.10", w.Engagement)
	}
	if w.Relevance != DefaultWeights().Relevance {
		t.Errorf("未配置的 Relevance 应保留默认值, got %v", w.Relevance)
	}

	if got := WeightsFromMap(nil); got != DefaultWeights() {
		t.Error("nil 配置应返回默认权重")
	}
}

// TestResolveVariant 未知变体名回退基准权重
func TestResolveVariant(t *testing.T) {
	sets := VariantWeightSets()

	if got := ResolveVariant(sets, "recency_heavy"); got.Recency != 0.50 {
		t.Errorf("recency_heavy 的 Recency = %v, want 0.50", got.Recency)
	}
	if got := ResolveVariant(sets, "no_such_variant"); got != DefaultWeights() {
		t.Error("未知变体应回退默认权重")
	}
	if got := ResolveVariant(nil, "control"); got != DefaultWeights() {
		t.Error("nil sets 应回退默认权重")
	}
}
