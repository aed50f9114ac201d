package experiment

import (
	"context"
	"testing"
)

func variant(name string, views, clicks int64) VariantStats {
	return VariantStats{Name: name, Assignments: views / 10, Views: views, Clicks: clicks}
}

// TestSignificanceClearWinner 点击率差距巨大时判定显著并给出赢家
func TestSignificanceClearWinner(t *testing.T) {
	a := variant("A", 1000, 200) // ctr 0.20
	b := variant("B", 1000, 50)  // ctr 0.05

	res := Significance(a, b)
	if !res.Significant {
		t.Fatalf("0.20 vs 0.05 (n=1000) 应显著, p=%.4f", res.PValue)
	}
	if res.PValue >= 0.05 {
		t.Errorf("p 值 = %.4f, 应 < 0.05", res.PValue)
	}
	if res.Winner == nil || *res.Winner != "A" {
		t.Errorf("赢家应为 A, got %v", res.Winner)
	}
	if res.Confidence <= 0.95 {
		t.Errorf("置信度 = %.4f, 应 > 0.95", res.Confidence)
	}
}

// TestSignificanceIdenticalRates 点击率完全相同时 p=1
func TestSignificanceIdenticalRates(t *testing.T) {
	a := variant("A", 1000, 100)
	b := variant("B", 1000, 100)

	res := Significance(a, b)
	if res.Significant {
		t.Error("相同点击率不应显著")
	}
	if res.PValue < 0.99 {
		t.Errorf("z=0 时 p 值 = %.4f, 应 ≈ 1", res.PValue)
	}
	if res.Winner != nil {
		t.Errorf("不显著时不应给赢家, got %v", *res.Winner)
	}
}

// TestSignificanceSmallDifference 小差距在该样本量下不显著
func TestSignificanceSmallDifference(t *testing.T) {
	a := variant("A", 1000, 100) // ctr 0.10
	b := variant("B", 1000, 120) // ctr 0.12

	res := Significance(a, b)
	if res.Significant {
		t.Errorf("0.10 vs 0.12 (n=1000) 不应显著, p=%.4f", res.PValue)
	}
	if res.Winner != nil {
		t.Error("不显著时不应给赢家")
	}
}

// TestSignificanceZeroSamples 无曝光时返回固定的"无法判断"结果
func TestSignificanceZeroSamples(t *testing.T) {
	tests := []struct {
		name string
		a, b VariantStats
	}{
		{"双方都无曝光", variant("A", 0, 0), variant("B", 0, 0)},
		{"一方无曝光", variant("A", 1000, 100), variant("B", 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Significance(tt.a, tt.b)
			if res.Significant || res.Confidence != 0 || res.PValue != 1 || res.Winner != nil {
				t.Errorf("无曝光时应返回 {false, 0, 1, nil}, got %+v", res)
			}
		})
	}
}

// TestSignificanceZeroClicks 双方都零点击时合并比例为 0，标准误为 0
func TestSignificanceZeroClicks(t *testing.T) {
	res := Significance(variant("A", 1000, 0), variant("B", 1000, 0))
	if res.Significant || res.PValue != 1 {
		t.Errorf("零点击时应不显著且 p=1, got %+v", res)
	}
}

// TestSignificanceZeroAssignments 有曝光但没分到用户的变体不参与检验
func TestSignificanceZeroAssignments(t *testing.T) {
	orphan := VariantStats{Name: "A", Views: 1000, Clicks: 100}
	res := Significance(orphan, variant("B", 1000, 50))
	if res.Significant || res.Confidence != 0 || res.PValue != 1 || res.Winner != nil {
		t.Errorf("无分配用户时应返回 {false, 0, 1, nil}, got %+v", res)
	}
}

// TestClassify 粗分类的样本门槛与互动率差距档位
func TestClassify(t *testing.T) {
	big := func(name string, engagements int64) VariantStats {
		return VariantStats{Name: name, Assignments: 1000, Views: 10000, Engagements: engagements}
	}

	tests := []struct {
		name     string
		variants []VariantStats
		want     string
	}{
		{
			"只有一个变体",
			[]VariantStats{big("A", 1000)},
			ClassInsufficientData,
		},
		{
			"用户数不足",
			[]VariantStats{
				{Name: "A", Assignments: 50, Views: 10000, Engagements: 1000},
				big("B", 1000),
			},
			ClassInsufficientData,
		},
		{
			"曝光不足",
			[]VariantStats{
				{Name: "A", Assignments: 1000, Views: 500, Engagements: 50},
				big("B", 1000),
			},
			ClassInsufficientData,
		},
		{
			"差距 2% 不显著",
			[]VariantStats{big("A", 1000), big("B", 1020)},
			ClassNotSignificant,
		},
		{
			"差距 10% 边缘显著",
			[]VariantStats{big("A", 1000), big("B", 1100)},
			ClassMarginallySignificant,
		},
		{
			"差距 30% 显著",
			[]VariantStats{big("A", 1000), big("B", 1300)},
			ClassSignificant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.variants); got != tt.want {
				t.Errorf("Classify = %s, want %s", got, tt.want)
			}
		})
	}
}

// TestClassifyEngagementNotClicks 分档看互动率：点击率相同、互动率翻倍应判显著
func TestClassifyEngagementNotClicks(t *testing.T) {
	a := VariantStats{Name: "A", Assignments: 1000, Views: 10000, Clicks: 1000, Engagements: 1000}
	b := VariantStats{Name: "B", Assignments: 1000, Views: 10000, Clicks: 1000, Engagements: 2000}

	if a.ClickRate() != b.ClickRate() {
		t.Fatal("前置条件：两变体点击率应相同")
	}
	if got := Classify([]VariantStats{a, b}); got != ClassSignificant {
		t.Errorf("互动率 0.10 vs 0.20 应判 significant, got %s", got)
	}
}

// TestTrackerRecord 指标累计与会话时长的增量平均
func TestTrackerRecord(t *testing.T) {
	tracker := NewTracker("feed_ranking", nil)
	ctx := context.Background()

	tracker.Record(ctx, "control", EventAssignment)
	tracker.Record(ctx, "control", EventView)
	tracker.Record(ctx, "control", EventView)
	tracker.Record(ctx, "control", EventClick)
	tracker.Record(ctx, "control", "unknown_event") // 未知事件忽略
	tracker.RecordSession(ctx, "control", 100)
	tracker.RecordSession(ctx, "control", 200)

	stats := tracker.Snapshot()
	if len(stats) != 1 {
		t.Fatalf("Snapshot 长度 = %d, want 1", len(stats))
	}
	s := stats[0]
	if s.Assignments != 1 || s.Views != 2 || s.Clicks != 1 {
		t.Errorf("计数错误: %+v", s)
	}
	if s.Sessions != 2 || s.AvgSessionSecs != 150 {
		t.Errorf("会话均值 = %.1f (n=%d), want 150 (n=2)", s.AvgSessionSecs, s.Sessions)
	}
}
