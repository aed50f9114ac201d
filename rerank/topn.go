package rerank

import (
	"context"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
)

// TopNNode 是一个 Top-N 截断节点，用于在排序/重排后截取前 N 个内容。
//
// 使用场景：
//   - 排序后只返回 Top 10/20/50 个结果
//   - 控制返回结果数量，提升性能
//   - 配合多样性重排使用
type TopNNode struct {
	// N 要保留的内容数量（Top N）
	// 如果 N <= 0 或 N > len(items)，则返回所有内容（不截断）
	N int
}

func (n *TopNNode) Name() string        { return "rerank.topn" }
func (n *TopNNode) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *TopNNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.N <= 0 || len(items) <= n.N {
		return items, nil
	}
	return items[:n.N], nil
}
