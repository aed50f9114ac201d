package recall

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pkg/utils"
)

// SimilarItems 是基于物品的共现召回（Item-CF 的工程化变体）。
//
// 核心思想："被同一批用户互动过的内容，相互相似"
//
// 算法流程：
//  1. 取与种子内容互动过的用户（上限 UserCap）
//  2. 有界并发取每个用户的互动向量
//  3. 统计其他内容被多少个不同用户共同互动（共现计数）
//  4. 按共现数降序取 TopN
//  5. 无人互动过种子内容 → 同曲风内容按互动量代理排序兜底
type SimilarItems struct {
	// Store 互动日志（必填）
	Store core.InteractionStore

	// Catalog 内容目录，水合结果与曲风兜底都需要（可选）
	Catalog core.CandidateStore

	// UserCap 参与共现统计的用户数上限，默认 200
	UserCap int

	// MaxParallel 向量拉取并发上限，默认 8
	MaxParallel int
}

func (r *SimilarItems) Name() string { return "recall.similar" }

func (r *SimilarItems) userCap() int {
	if r.UserCap > 0 {
		return r.UserCap
	}
	return 200
}

func (r *SimilarItems) maxParallel() int {
	if r.MaxParallel > 0 {
		return r.MaxParallel
	}
	return 8
}

// Similar 返回与种子内容最相似的 TopN 内容。
func (r *SimilarItems) Similar(ctx context.Context, itemID string, limit int) ([]*core.Item, error) {
	if limit <= 0 {
		limit = 20
	}

	users, err := r.Store.GetItemUsers(ctx, itemID)
	if err != nil || len(users) == 0 {
		return r.genreFallback(ctx, itemID, limit)
	}

	userIDs := make([]string, 0, len(users))
	for id := range users {
		userIDs = append(userIDs, id)
	}
	sort.Strings(userIDs)
	if len(userIDs) > r.userCap() {
		userIDs = userIDs[:r.userCap()]
	}

	// 共现计数：每个用户对每个内容最多贡献 1
	var mu sync.Mutex
	counts := make(map[string]int)

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.maxParallel())
	for _, userID := range userIDs {
		if gctx.Err() != nil {
			break
		}
		id := userID
		eg.Go(func() error {
			vec, err := r.Store.GetInteractions(gctx, id)
			if err != nil {
				return nil
			}
			mu.Lock()
			for coItemID := range vec {
				if coItemID != itemID {
					counts[coItemID]++
				}
			}
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	if len(counts) == 0 {
		return r.genreFallback(ctx, itemID, limit)
	}

	type coItem struct {
		itemID string
		count  int
	}
	ranked := make([]coItem, 0, len(counts))
	for id, c := range counts {
		ranked = append(ranked, coItem{itemID: id, count: c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count == ranked[j].count {
			return ranked[i].itemID < ranked[j].itemID
		}
		return ranked[i].count > ranked[j].count
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	ids := make([]string, 0, len(ranked))
	for _, c := range ranked {
		ids = append(ids, c.itemID)
	}

	out := r.hydrate(ctx, ids)
	for i, it := range out {
		it.Score = float64(ranked[i].count)
		it.PutLabel("recall_source", utils.Label{Value: "similar", Source: "recall"})
	}
	return out, nil
}

// genreFallback 冷内容兜底：同曲风（同分类）内容按互动量代理降序。
func (r *SimilarItems) genreFallback(ctx context.Context, itemID string, limit int) ([]*core.Item, error) {
	if r.Catalog == nil {
		return nil, nil
	}

	seeds, err := r.Catalog.GetItems(ctx, []string{itemID})
	if err != nil || len(seeds) == 0 {
		return nil, nil
	}
	seed := seeds[0]

	filter := core.CandidateFilter{}
	if seed.Module != "" {
		filter.Modules = []string{seed.Module}
	}
	pool, err := r.Catalog.QueryCandidates(ctx, filter, limit*3)
	if err != nil {
		return nil, nil
	}

	genre := seed.Genre()
	out := make([]*core.Item, 0, limit)
	for _, it := range pool {
		if it == nil || it.ID == itemID {
			continue
		}
		if genre != "" && it.Genre() != genre {
			continue
		}
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EngagementTotal() > out[j].EngagementTotal()
	})
	if len(out) > limit {
		out = out[:limit]
	}
	for _, it := range out {
		it.PutLabel("recall_source", utils.Label{Value: "similar_genre_fallback", Source: "recall"})
	}
	return out, nil
}

func (r *SimilarItems) hydrate(ctx context.Context, ids []string) []*core.Item {
	if r.Catalog != nil {
		items, err := r.Catalog.GetItems(ctx, ids)
		if err == nil && len(items) == len(ids) {
			return items
		}
	}
	out := make([]*core.Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, core.NewItem(id))
	}
	return out
}
