package recall

import (
	"context"
	"encoding/json"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/utils"
)

// Popularity 是流行度召回源，也是冷启动/降级的统一兜底。
//   - 如果 Store 实现了 KeyValueStore，优先使用 ZRange（按累积互动权重降序）
//   - 否则从普通 key 读取 JSON 数组
//   - 如果 Store 为空或读取失败，使用内存中的 IDs 作为 fallback
//
// Popularity 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type Popularity struct {
	Store core.Store
	Key   string // 存储 key，例如 "feed:popular"

	// Catalog 可选；设置后会把 ID 列表水合成完整内容
	Catalog core.CandidateStore

	// IDs fallback 内存列表
	IDs []string

	// TopN 读取的榜单长度，默认 100
	TopN int64
}

func (r *Popularity) Name() string        { return "recall.popularity" }
func (r *Popularity) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall。
func (r *Popularity) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口。
func (r *Popularity) Recall(
	ctx context.Context,
	_ *core.RecommendContext,
) ([]*core.Item, error) {
	ids := r.RankedIDs(ctx)

	if r.Catalog != nil {
		items, err := r.Catalog.GetItems(ctx, ids)
		if err == nil && len(items) > 0 {
			for _, it := range items {
				it.PutLabel("recall_source", utils.Label{Value: "popularity", Source: "recall"})
			}
			return items, nil
		}
	}

	out := make([]*core.Item, 0, len(ids))
	for _, id := range ids {
		it := core.NewItem(id)
		it.PutLabel("recall_source", utils.Label{Value: "popularity", Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}

// RankedIDs 返回流行度降序的内容 ID 列表。任何失败都退回内存 IDs，不报错。
func (r *Popularity) RankedIDs(ctx context.Context) []string {
	topN := r.TopN
	if topN <= 0 {
		topN = 100
	}

	var ids []string
	if r.Store != nil && r.Key != "" {
		if kvStore, ok := r.Store.(core.KeyValueStore); ok {
			members, err := kvStore.ZRange(ctx, r.Key, 0, topN-1)
			if err == nil && len(members) > 0 {
				ids = members
			}
		} else {
			data, err := r.Store.Get(ctx, r.Key)
			if err == nil {
				var parsed []string
				if json.Unmarshal(data, &parsed) == nil {
					ids = parsed
				}
			}
		}
	}

	if len(ids) == 0 {
		ids = r.IDs
	}
	if int64(len(ids)) > topN {
		ids = ids[:topN]
	}
	return ids
}
