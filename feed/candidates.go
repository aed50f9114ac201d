package feed

import (
	"context"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/utils"
)

// CandidateRecall 是候选池召回源：按过滤条件从内容域拉取候选。
// 同时实现 Source 和 Node 接口，可单独用也可挂进 Pipeline。
type CandidateRecall struct {
	Store core.CandidateStore

	// Filter 查询条件
	Filter core.CandidateFilter

	// Limit 拉取上限，默认 100
	Limit int
}

func (r *CandidateRecall) Name() string        { return "recall.candidates" }
func (r *CandidateRecall) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口。
func (r *CandidateRecall) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口。
func (r *CandidateRecall) Recall(
	ctx context.Context,
	_ *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Store == nil {
		return nil, core.NewDomainError(core.ModuleRecall, core.ErrorCodeInvalidInput, "candidate store is nil")
	}

	limit := r.Limit
	if limit <= 0 {
		limit = 100
	}

	items, err := r.Store.QueryCandidates(ctx, r.Filter, limit)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if it != nil {
			it.PutLabel("recall_source", utils.Label{Value: "candidates", Source: "recall"})
		}
	}
	return items, nil
}
