package recall

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/utils"
)

// Collaborative 是基于用户的协同过滤召回源（User-CF）。
//
// 核心思想："互动集合相似的用户，喜欢相似的内容"
//
// 算法流程：
//  1. 构建请求用户的互动向量（VectorBuilder，带缓存）
//  2. 空向量（新用户）→ 直接走流行度兜底
//  3. 取候选邻居：与用户互动过的内容有交集的用户，上限 CandidateCap
//  4. 有界并发构建候选向量，计算 Jaccard 相似度
//  5. 相似度 ≥ 阈值的按相似度降序保留 TopK 邻居；无人达标 → 兜底
//  6. 邻居向量里用户没见过的内容，按 weight×similarity 跨邻居累加
//  7. 累计分降序取 TopN
//
// 成本约束：CandidateCap 与 NeighborCap 是硬上限——该算法是
// O(候选数 × 向量均长)，不允许按请求扫全量用户。
type Collaborative struct {
	// Vectors 互动向量构建器（必填）
	Vectors *VectorBuilder

	// Fallback 流行度兜底（可选，nil 时空向量返回空结果）
	Fallback *Popularity

	// Catalog 可选；设置后把推荐的 ID 水合成完整内容
	Catalog core.CandidateStore

	// CandidateCap 候选邻居用户数上限，默认 200
	CandidateCap int

	// NeighborCap 相似度达标后保留的邻居数上限，默认 50
	NeighborCap int

	// SimilarityThreshold 邻居相似度阈值，默认 0.3
	SimilarityThreshold float64

	// MaxParallel 候选向量构建的并发上限，默认 8。
	// 不允许无界 fan-out 打垮互动日志后端。
	MaxParallel int

	// TopKItems 作为 Node/Source 使用时返回的内容数，默认 20
	TopKItems int
}

func (r *Collaborative) Name() string        { return "recall.cf" }
func (r *Collaborative) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *Collaborative) candidateCap() int {
	if r.CandidateCap > 0 {
		return r.CandidateCap
	}
	return 200
}

func (r *Collaborative) neighborCap() int {
	if r.NeighborCap > 0 {
		return r.NeighborCap
	}
	return 50
}

func (r *Collaborative) threshold() float64 {
	if r.SimilarityThreshold > 0 {
		return r.SimilarityThreshold
	}
	return 0.3
}

func (r *Collaborative) maxParallel() int {
	if r.MaxParallel > 0 {
		return r.MaxParallel
	}
	return 8
}

// Process 实现 Node 接口。
func (r *Collaborative) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口。
func (r *Collaborative) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if rctx == nil || rctx.UserID == "" {
		return r.fallbackItems(ctx, r.topK()), nil
	}
	return r.Recommend(ctx, rctx.UserID, r.topK())
}

func (r *Collaborative) topK() int {
	if r.TopKItems > 0 {
		return r.TopKItems
	}
	return 20
}

type neighbor struct {
	userID     string
	similarity float64
	vector     map[string]float64
}

// Recommend 返回给用户的 TopN 推荐，分数为跨邻居累加的 weight×similarity。
// 新用户与无邻居达标时走流行度兜底，从不报错给调用方。
func (r *Collaborative) Recommend(ctx context.Context, userID string, limit int) ([]*core.Item, error) {
	if r.Vectors == nil {
		return r.fallbackItems(ctx, limit), nil
	}
	if limit <= 0 {
		limit = r.topK()
	}

	vec, err := r.Vectors.Build(ctx, userID)
	if err != nil {
		return r.fallbackItems(ctx, limit), nil
	}
	if len(vec) == 0 {
		return r.fallbackItems(ctx, limit), nil
	}

	itemIDs := make([]string, 0, len(vec))
	for id := range vec {
		itemIDs = append(itemIDs, id)
	}
	sort.Strings(itemIDs) // 候选枚举顺序确定化

	candidates, err := r.Vectors.Store.GetUsersForItems(ctx, itemIDs, userID, r.candidateCap())
	if err != nil || len(candidates) == 0 {
		return r.fallbackItems(ctx, limit), nil
	}

	neighbors := r.findNeighbors(ctx, vec, candidates)
	if len(neighbors) == 0 {
		return r.fallbackItems(ctx, limit), nil
	}

	// 邻居信号聚合：加法满足交换律，邻居完成顺序不影响结果
	scores := make(map[string]float64)
	for _, nb := range neighbors {
		for itemID, weight := range nb.vector {
			if _, interacted := vec[itemID]; interacted {
				continue
			}
			scores[itemID] += weight * nb.similarity
		}
	}

	type scoredItem struct {
		itemID string
		score  float64
	}
	scored := make([]scoredItem, 0, len(scores))
	for itemID, score := range scores {
		scored = append(scored, scoredItem{itemID: itemID, score: score})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score == scored[j].score {
			return scored[i].itemID < scored[j].itemID
		}
		return scored[i].score > scored[j].score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}

	ids := make([]string, 0, len(scored))
	for _, s := range scored {
		ids = append(ids, s.itemID)
	}

	out := r.hydrate(ctx, ids)
	for i, it := range out {
		it.Score = scored[i].score
		it.PutLabel("recall_source", utils.Label{Value: "cf", Source: "recall"})
	}
	return out, nil
}

// findNeighbors 有界并发地构建候选向量并计算相似度。
// 请求取消时放弃未开始的候选；相似度累加与顺序无关，部分结果依然可用。
func (r *Collaborative) findNeighbors(
	ctx context.Context,
	vec map[string]float64,
	candidates []string,
) []neighbor {
	var (
		mu        sync.Mutex
		neighbors []neighbor
	)

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.maxParallel())

	threshold := r.threshold()
	for _, candidateID := range candidates {
		if gctx.Err() != nil {
			break
		}
		id := candidateID
		eg.Go(func() error {
			cvec, err := r.Vectors.Build(gctx, id)
			if err != nil || len(cvec) == 0 {
				// 单个候选失败不影响其余候选
				return nil
			}
			sim := Jaccard(vec, cvec)
			if sim < threshold {
				return nil
			}
			mu.Lock()
			neighbors = append(neighbors, neighbor{userID: id, similarity: sim, vector: cvec})
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].similarity == neighbors[j].similarity {
			return neighbors[i].userID < neighbors[j].userID
		}
		return neighbors[i].similarity > neighbors[j].similarity
	})
	if limit := r.neighborCap(); len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}
	return neighbors
}

func (r *Collaborative) hydrate(ctx context.Context, ids []string) []*core.Item {
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

func (r *Collaborative) fallbackItems(ctx context.Context, limit int) []*core.Item {
	if r.Fallback == nil {
		return nil
	}
	items, err := r.Fallback.Recall(ctx, nil)
	if err != nil {
		return nil
	}
	if len(items) > limit && limit > 0 {
		items = items[:limit]
	}
	for _, it := range items {
		it.PutLabel("recall_source", utils.Label{Value: "popularity_fallback", Source: "recall"})
	}
	return items
}
