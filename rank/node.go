package rank

import (
	"context"
	"sort"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/utils"
)

// VariantResolver 解析用户在排序实验中的变体名。
// experiment.Assigner 实现此接口；这里只依赖接口，避免 rank 反向依赖实验模块。
type VariantResolver interface {
	AssignName(ctx context.Context, subjectID string) string
}

// CompositeNode 是组合打分的排序 Node：
//   - 按实验变体解析权重集（未分流/未知变体回退基准权重）
//   - 更新 item.Score 并按分数降序稳定排序
//   - 写入 labels：rank_model / rank_variant
type CompositeNode struct {
	Engine *Engine

	// Weights 基准权重集，零值时用 DefaultWeights
	Weights WeightConfig

	// WeightSets 变体名 → 权重集；Resolver 给出变体名后在此查表
	WeightSets map[string]WeightConfig

	// Resolver 变体解析器，nil 时先查画像实验桶，再退基准权重
	Resolver VariantResolver

	// Experiment 实验名，用于画像桶查询与打标
	Experiment string
}

func (n *CompositeNode) Name() string        { return "rank.composite" }
func (n *CompositeNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *CompositeNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.Engine == nil || len(items) == 0 {
		return items, nil
	}

	variant, weights := n.resolveWeights(ctx, rctx)

	for _, it := range items {
		if it == nil {
			continue
		}
		it.Score = n.Engine.Score(it, rctx, weights)
		it.PutLabel("rank_model", utils.Label{Value: "composite", Source: "rank"})
		if variant != "" {
			it.PutLabel("rank_variant", utils.Label{Value: variant, Source: "rank"})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i] == nil {
			return false
		}
		if items[j] == nil {
			return true
		}
		return items[i].Score > items[j].Score
	})
	return items, nil
}

// resolveWeights 确定本次请求的变体与权重。
// 优先级：Resolver 分流 > 画像里已有的实验桶 > 基准权重。
func (n *CompositeNode) resolveWeights(ctx context.Context, rctx *core.RecommendContext) (string, WeightConfig) {
	base := n.Weights
	if base == (WeightConfig{}) {
		base = DefaultWeights()
	}

	variant := ""
	if n.Resolver != nil && rctx != nil && rctx.UserID != "" {
		variant = n.Resolver.AssignName(ctx, rctx.UserID)
	}
	if variant == "" && n.Experiment != "" {
		variant = rctx.Bucket(n.Experiment)
	}
	if variant == "" {
		return "", base
	}

	if n.WeightSets != nil {
		if w, ok := n.WeightSets[variant]; ok {
			return variant, w
		}
	}
	// 未知变体名：回退基准权重，变体标签仍然保留以便排查
	return variant, base
}
