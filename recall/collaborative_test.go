package recall

import (
	"context"
	"strings"
	"testing"

	"github.com/rushteam/feedkit/store"
)

// seedInteractions 构造测试互动数据：alice 与 bob 口味相近，carol 无关
func seedInteractions(t *testing.T) (*StoreInteractionAdapter, *store.MemoryStore) {
	t.Helper()
	memStore := store.NewMemoryStore()
	t.Cleanup(func() { memStore.Close() })

	adapter := NewStoreInteractionAdapter(memStore, "test:cf")
	interactions := []Interaction{
		{UserID: "alice", ItemID: "song:1", Signal: "play", Count: 5},
		{UserID: "alice", ItemID: "song:2", Signal: "like", Count: 1},
		{UserID: "alice", ItemID: "song:3", Signal: "play", Count: 2},

		{UserID: "bob", ItemID: "song:1", Signal: "play", Count: 3},
		{UserID: "bob", ItemID: "song:2", Signal: "play", Count: 4},
		{UserID: "bob", ItemID: "song:4", Signal: "like", Count: 1},
		{UserID: "bob", ItemID: "song:5", Signal: "download", Count: 2},

		{UserID: "carol", ItemID: "song:9", Signal: "play", Count: 10},
	}
	if err := adapter.RecordInteractions(context.Background(), interactions, ""); err != nil {
		t.Fatalf("RecordInteractions 失败: %v", err)
	}
	return adapter, memStore
}

// TestCollaborativeRecommend 邻居独有的内容被推荐，已互动内容被排除
func TestCollaborativeRecommend(t *testing.T) {
	adapter, memStore := seedInteractions(t)

	cf := &Collaborative{
		Vectors: &VectorBuilder{Store: adapter, Cache: memStore},
	}

	items, err := cf.Recommend(context.Background(), "alice", 10)
	if err != nil {
		t.Fatalf("Recommend 失败: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("alice 与 bob 口味相近，应产出推荐")
	}

	got := make(map[string]bool, len(items))
	for _, it := range items {
		got[it.ID] = true
	}

	// bob 独有的 song:4 / song:5 应被推给 alice
	for _, want := range []string{"song:4", "song:5"} {
		if !got[want] {
			t.Errorf("推荐结果缺少 %s", want)
		}
	}
	// alice 自己互动过的内容不重复推荐
	for _, seen := range []string{"song:1", "song:2", "song:3"} {
		if got[seen] {
			t.Errorf("不应推荐 alice 已互动过的 %s", seen)
		}
	}
	// carol 与 alice 无交集（相似度 0 < 阈值），她的内容不应出现
	if got["song:9"] {
		t.Error("不应推荐相似度不达标用户的内容")
	}
}

// TestCollaborativeRecommendOrdering 累计分高的内容排在前面
func TestCollaborativeRecommendOrdering(t *testing.T) {
	adapter, memStore := seedInteractions(t)

	cf := &Collaborative{
		Vectors: &VectorBuilder{Store: adapter, Cache: memStore},
	}

	items, err := cf.Recommend(context.Background(), "alice", 10)
	if err != nil {
		t.Fatalf("Recommend 失败: %v", err)
	}
	for i := 1; i < len(items); i++ {
		if items[i].Score > items[i-1].Score {
			t.Errorf("推荐结果未按分数降序: %s(%.2f) 在 %s(%.2f) 之后",
				items[i].ID, items[i].Score, items[i-1].ID, items[i-1].Score)
		}
	}
	// song:5 (download×2 权重 2.0 = 4.0) 应排在 song:4 (like 权重 3.0) 前面
	if len(items) >= 2 && items[0].ID != "song:5" {
		t.Errorf("首位 = %s, want song:5", items[0].ID)
	}
}

// TestCollaborativeColdStartFallback 无互动历史的新用户走流行度兜底
func TestCollaborativeColdStartFallback(t *testing.T) {
	adapter, memStore := seedInteractions(t)

	cf := &Collaborative{
		Vectors:  &VectorBuilder{Store: adapter, Cache: memStore},
		Fallback: &Popularity{IDs: []string{"song:1", "song:2"}},
	}

	items, err := cf.Recommend(context.Background(), "newcomer", 5)
	if err != nil {
		t.Fatalf("Recommend 失败: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("兜底应返回 2 条流行内容, got %d", len(items))
	}
	// 兜底标签与原始召回标签按 merge 规则累积
	if lbl, ok := items[0].Labels["recall_source"]; !ok || !strings.Contains(lbl.Value, "popularity_fallback") {
		t.Errorf("兜底内容应打 popularity_fallback 标签, got %v", items[0].Labels)
	}
}

// TestCollaborativeColdStartNoFallback 没配兜底时新用户拿到空结果而非错误
func TestCollaborativeColdStartNoFallback(t *testing.T) {
	adapter, memStore := seedInteractions(t)

	cf := &Collaborative{
		Vectors: &VectorBuilder{Store: adapter, Cache: memStore},
	}

	items, err := cf.Recommend(context.Background(), "newcomer", 5)
	if err != nil {
		t.Fatalf("冷启动不应报错: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("无兜底时应返回空结果, got %d", len(items))
	}
}

// TestSimilarItems 听过同一首歌的用户还听过什么
func TestSimilarItems(t *testing.T) {
	adapter, _ := seedInteractions(t)

	similar := &SimilarItems{Store: adapter}
	items, err := similar.Similar(context.Background(), "song:1", 5)
	if err != nil {
		t.Fatalf("Similar 失败: %v", err)
	}

	got := make(map[string]bool, len(items))
	for _, it := range items {
		if it.ID == "song:1" {
			t.Error("相似列表不应包含种子内容自身")
		}
		got[it.ID] = true
	}
	// alice 和 bob 都听过 song:1，他们的其他歌曲构成共现集合
	if !got["song:2"] {
		t.Error("song:2 与 song:1 被两个用户共同消费，应出现在相似列表")
	}
	// song:2 被 alice 和 bob 共同消费（2 个用户），应排在只有单用户共现的内容前
	if len(items) > 0 && items[0].ID != "song:2" {
		t.Errorf("首位 = %s, want song:2", items[0].ID)
	}
}
