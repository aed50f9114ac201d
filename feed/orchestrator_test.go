package feed

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/rank"
	"github.com/rushteam/feedkit/recall"
	"github.com/rushteam/feedkit/store"
)

// stubCatalog 是测试用的内存候选池
type stubCatalog struct {
	items   []*core.Item
	failure error
	queries int
}

func (c *stubCatalog) QueryCandidates(
	_ context.Context,
	_ core.CandidateFilter,
	limit int,
) ([]*core.Item, error) {
	c.queries++
	if c.failure != nil {
		return nil, c.failure
	}
	if len(c.items) > limit {
		return c.items[:limit], nil
	}
	return c.items, nil
}

func (c *stubCatalog) GetItems(_ context.Context, itemIDs []string) ([]*core.Item, error) {
	byID := make(map[string]*core.Item, len(c.items))
	for _, it := range c.items {
		byID[it.ID] = it
	}
	out := make([]*core.Item, 0, len(itemIDs))
	for _, id := range itemIDs {
		if it, ok := byID[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func freshItem(id, module string, likes int64) *core.Item {
	it := core.NewItem(id)
	it.Module = module
	published := time.Now().Add(-time.Hour)
	it.PublishedAt = &published
	it.Likes = likes
	return it
}

func testCatalog(n int) *stubCatalog {
	c := &stubCatalog{}
	modules := []string{"music", "events", "awards"}
	for i := 0; i < n; i++ {
		c.items = append(c.items, freshItem(
			fmt.Sprintf("item:%02d", i),
			modules[i%len(modules)],
			int64(n-i)*10,
		))
	}
	return c
}

// TestGetFeedBasic 正常链路：取候选、打分、分页
func TestGetFeedBasic(t *testing.T) {
	catalog := testCatalog(30)
	o := &Orchestrator{
		Candidates: catalog,
		Engine:     rank.NewEngine(),
		PageSize:   10,
	}

	rctx := &core.RecommendContext{UserID: "user:1"}
	page, err := o.GetFeed(context.Background(), rctx, core.CandidateFilter{}, 1)
	if err != nil {
		t.Fatalf("GetFeed 不应报错: %v", err)
	}
	if page.Page != 1 || page.PageSize != 10 {
		t.Errorf("分页元数据错误: %+v", page)
	}
	if len(page.Items) != 10 {
		t.Fatalf("页长度 = %d, want 10", len(page.Items))
	}
	for _, it := range page.Items {
		if it.Score <= 0 {
			t.Errorf("%s 未打分: score=%v", it.ID, it.Score)
		}
	}
}

// TestGetFeedDegradesToPopularity 候选池故障时走流行度兜底，不报错
func TestGetFeedDegradesToPopularity(t *testing.T) {
	broken := &stubCatalog{failure: fmt.Errorf("backend down")}
	hydrator := testCatalog(5)

	o := &Orchestrator{
		Candidates: broken,
		Engine:     rank.NewEngine(),
		Fallback: &recall.Popularity{
			Catalog: hydrator,
			IDs:     []string{"item:00", "item:01", "item:02"},
		},
		PageSize: 10,
	}

	rctx := &core.RecommendContext{UserID: "user:1"}
	page, err := o.GetFeed(context.Background(), rctx, core.CandidateFilter{}, 1)
	if err != nil {
		t.Fatalf("降级路径不应报错: %v", err)
	}
	if len(page.Items) != 3 {
		t.Fatalf("兜底应返回 3 条, got %d", len(page.Items))
	}
}

// TestGetFeedNoFallbackEmptyPage 候选池故障且无兜底时返回空页而非错误
func TestGetFeedNoFallbackEmptyPage(t *testing.T) {
	broken := &stubCatalog{failure: fmt.Errorf("backend down")}
	o := &Orchestrator{Candidates: broken, PageSize: 10}

	page, err := o.GetFeed(context.Background(), nil, core.CandidateFilter{}, 1)
	if err != nil {
		t.Fatalf("无兜底降级不应报错: %v", err)
	}
	if len(page.Items) != 0 {
		t.Errorf("应返回空页, got %d 条", len(page.Items))
	}
}

// TestGetFeedDegradeLogLevel 瞬时故障打 warn，永久故障打 error
func TestGetFeedDegradeLogLevel(t *testing.T) {
	tests := []struct {
		name      string
		failure   error
		wantLevel string
	}{
		{
			"瞬时故障",
			core.NewDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "redis down"),
			`"level":"warn"`,
		},
		{
			"永久故障",
			core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "bad filter"),
			`"level":"error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			o := &Orchestrator{
				Candidates: &stubCatalog{failure: tt.failure},
				Logger:     zerolog.New(&buf),
				PageSize:   10,
			}

			page, err := o.GetFeed(context.Background(), nil, core.CandidateFilter{}, 1)
			if err != nil {
				t.Fatalf("降级路径不应报错: %v", err)
			}
			if len(page.Items) != 0 {
				t.Errorf("无兜底应返回空页, got %d 条", len(page.Items))
			}
			if !strings.Contains(buf.String(), tt.wantLevel) {
				t.Errorf("日志级别错误, want %s, got %s", tt.wantLevel, buf.String())
			}
		})
	}
}

// TestGetFeedCacheHit 第二次请求命中页缓存，不再查候选池
func TestGetFeedCacheHit(t *testing.T) {
	catalog := testCatalog(30)
	memStore := store.NewMemoryStore()
	defer memStore.Close()

	o := &Orchestrator{
		Candidates: catalog,
		Engine:     rank.NewEngine(),
		Cache:      memStore,
		PageSize:   10,
	}

	rctx := &core.RecommendContext{UserID: "user:1"}
	first, err := o.GetFeed(context.Background(), rctx, core.CandidateFilter{}, 1)
	if err != nil {
		t.Fatalf("GetFeed 失败: %v", err)
	}
	queriesAfterFirst := catalog.queries

	second, err := o.GetFeed(context.Background(), rctx, core.CandidateFilter{}, 1)
	if err != nil {
		t.Fatalf("GetFeed 失败: %v", err)
	}
	if catalog.queries != queriesAfterFirst {
		t.Errorf("缓存命中后不应再查候选池: %d -> %d", queriesAfterFirst, catalog.queries)
	}
	if len(second.Items) != len(first.Items) {
		t.Fatalf("缓存页长度不一致: %d vs %d", len(second.Items), len(first.Items))
	}
	for i := range first.Items {
		if second.Items[i].ID != first.Items[i].ID {
			t.Errorf("缓存页内容不一致: 位置 %d %s vs %s", i, second.Items[i].ID, first.Items[i].ID)
		}
	}
}

// TestGetFeedCacheKeyPerFilter 不同过滤条件使用不同的缓存 key
func TestGetFeedCacheKeyPerFilter(t *testing.T) {
	catalog := testCatalog(30)
	memStore := store.NewMemoryStore()
	defer memStore.Close()

	o := &Orchestrator{
		Candidates: catalog,
		Engine:     rank.NewEngine(),
		Cache:      memStore,
		PageSize:   10,
	}

	rctx := &core.RecommendContext{UserID: "user:1"}
	_, _ = o.GetFeed(context.Background(), rctx, core.CandidateFilter{}, 1)
	queries := catalog.queries

	_, _ = o.GetFeed(context.Background(), rctx, core.CandidateFilter{Modules: []string{"music"}}, 1)
	if catalog.queries == queries {
		t.Error("过滤条件变化后应重新查候选池")
	}
}

// TestGetFeedPagination 第二页与第一页不重叠，越界页为空。
// 用单一分类构造候选：多类别时配额随页码缩放，跨页序并不保证一致。
func TestGetFeedPagination(t *testing.T) {
	catalog := &stubCatalog{}
	for i := 0; i < 30; i++ {
		catalog.items = append(catalog.items, freshItem(fmt.Sprintf("item:%02d", i), "music", int64(30-i)*10))
	}
	o := &Orchestrator{
		Candidates: catalog,
		Engine:     rank.NewEngine(),
		PageSize:   10,
	}

	rctx := &core.RecommendContext{UserID: "user:1"}
	page1, _ := o.GetFeed(context.Background(), rctx, core.CandidateFilter{}, 1)
	page2, _ := o.GetFeed(context.Background(), rctx, core.CandidateFilter{}, 2)

	seen := make(map[string]bool)
	for _, it := range page1.Items {
		seen[it.ID] = true
	}
	for _, it := range page2.Items {
		if seen[it.ID] {
			t.Errorf("第二页出现第一页内容 %s", it.ID)
		}
	}

	// 候选只有 30 条，第 100 页必然越界
	far, err := o.GetFeed(context.Background(), rctx, core.CandidateFilter{}, 100)
	if err != nil {
		t.Fatalf("越界页不应报错: %v", err)
	}
	if len(far.Items) != 0 {
		t.Errorf("越界页应为空, got %d 条", len(far.Items))
	}
}

// TestGetFeedSeenPenalty 已读内容被扣分后排到未读内容之后
func TestGetFeedSeenPenalty(t *testing.T) {
	// 两条除 ID 外完全相同的内容，其中一条已读
	catalog := &stubCatalog{items: []*core.Item{
		freshItem("item:a", "music", 500),
		freshItem("item:b", "music", 500),
	}}

	o := &Orchestrator{
		Candidates: catalog,
		Engine:     rank.NewEngine(),
		Seen:       seenList{"item:a"},
		PageSize:   10,
	}

	rctx := &core.RecommendContext{UserID: "user:1"}
	page, err := o.GetFeed(context.Background(), rctx, core.CandidateFilter{}, 1)
	if err != nil {
		t.Fatalf("GetFeed 失败: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("页长度 = %d, want 2", len(page.Items))
	}
	if page.Items[0].ID != "item:b" {
		t.Errorf("未读内容应排在已读内容前, got %s 居首", page.Items[0].ID)
	}
}

type seenList []string

func (s seenList) GetSeenItems(_ context.Context, _ string) ([]string, error) {
	return s, nil
}
