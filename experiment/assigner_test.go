package experiment

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/rushteam/feedkit/store"
)

// TestAssignVariantDeterministic 同样的输入永远得到同样的桶号
func TestAssignVariantDeterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		subjectID := fmt.Sprintf("user:%d", i)
		first := AssignVariant(subjectID, "feed_ranking", 3)
		for j := 0; j < 10; j++ {
			if got := AssignVariant(subjectID, "feed_ranking", 3); got != first {
				t.Fatalf("AssignVariant(%s) 不稳定: %d vs %d", subjectID, got, first)
			}
		}
		if first < 0 || first >= 3 {
			t.Fatalf("桶号越界: %d", first)
		}
	}
}

// TestAssignVariantExperimentIsolation 不同实验的分桶互相独立
func TestAssignVariantExperimentIsolation(t *testing.T) {
	differ := false
	for i := 0; i < 100; i++ {
		subjectID := fmt.Sprintf("user:%d", i)
		if AssignVariant(subjectID, "exp_a", 2) != AssignVariant(subjectID, "exp_b", 2) {
			differ = true
			break
		}
	}
	if !differ {
		t.Error("100 个用户在两个实验中分桶完全一致，实验名未参与哈希")
	}
}

// TestAssignVariantEdgeCases 变体数边界
func TestAssignVariantEdgeCases(t *testing.T) {
	if got := AssignVariant("user:1", "exp", 0); got != 0 {
		t.Errorf("variantCount=0 应返回 0, got %d", got)
	}
	if got := AssignVariant("user:1", "exp", -1); got != 0 {
		t.Errorf("variantCount<0 应返回 0, got %d", got)
	}
	if got := AssignVariant("user:1", "exp", 1); got != 0 {
		t.Errorf("单变体只有 0 号桶, got %d", got)
	}
}

// TestAssignerDistribution 分桶分布大致均匀（每个桶都有人）
func TestAssignerDistribution(t *testing.T) {
	assigner := NewAssigner("feed_ranking", []string{"control", "recency_heavy", "engagement_heavy"})
	counts := make(map[string]int)
	for i := 0; i < 3000; i++ {
		counts[assigner.AssignName(context.Background(), fmt.Sprintf("user:%d", i))]++
	}
	for _, v := range assigner.Variants {
		if counts[v] < 500 {
			t.Errorf("变体 %s 只分到 %d 个用户，分布异常", v, counts[v])
		}
	}
}

// TestAssignerCacheIsMemoizationOnly 缓存里的脏数据不会改变分桶结果
func TestAssignerCacheIsMemoizationOnly(t *testing.T) {
	memStore := store.NewMemoryStore()
	defer memStore.Close()

	assigner := NewAssigner("feed_ranking", []string{"control", "treatment"})
	assigner.Cache = memStore

	ctx := context.Background()
	expected := AssignVariant("user:42", "feed_ranking", 2)

	// 预埋一个错误的桶号，Assign 仍应返回哈希计算值
	wrong := (expected + 1) % 2
	key := "exp:feed_ranking:user:42"
	if err := memStore.Set(ctx, key, []byte(strconv.Itoa(wrong))); err != nil {
		t.Fatalf("预埋缓存失败: %v", err)
	}

	if got := assigner.Assign(ctx, "user:42"); got != expected {
		t.Errorf("Assign = %d, want 哈希计算值 %d（缓存只做记忆化）", got, expected)
	}

	// Assign 之后缓存被纠正为计算值
	data, err := memStore.Get(ctx, key)
	if err != nil {
		t.Fatalf("读缓存失败: %v", err)
	}
	if string(data) != strconv.Itoa(expected) {
		t.Errorf("缓存值 = %s, want %d", data, expected)
	}
}

// TestAssignNameEmptyVariants 无变体时返回空串而不是 panic
func TestAssignNameEmptyVariants(t *testing.T) {
	assigner := NewAssigner("exp", nil)
	if got := assigner.AssignName(context.Background(), "user:1"); got != "" {
		t.Errorf("AssignName = %q, want 空串", got)
	}
}
