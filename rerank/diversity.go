package rerank

import (
	"context"
	"math"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/utils"
)

// CategoryFn 从内容上取出用于多样性控制的类别。
type CategoryFn func(*core.Item) string

// ModuleCategory 默认类别取值：内容分类。
func ModuleCategory(it *core.Item) string {
	if it == nil {
		return ""
	}
	return it.Module
}

// Balancer 在排序结果上做真正的多样性重排（打分期的类别先验只是静态分）。
//
// 两个操作：
//   - BalanceByCategory：按目标占比给每个类别配额，防止单类别刷屏
//   - PreventClustering：防止连续 windowSize 条同类别内容扎堆
type Balancer struct {
	// Shares 类别 → 目标占比；未列出的类别用 DefaultShare
	Shares map[string]float64

	// DefaultShare 未配置类别的占比，默认 0.05
	DefaultShare float64
}

func (b *Balancer) share(category string) float64 {
	if b.Shares != nil {
		if s, ok := b.Shares[category]; ok {
			return s
		}
	}
	if b.DefaultShare > 0 {
		return b.DefaultShare
	}
	return 0.05
}

// BalanceByCategory 按目标占比重排：每个类别的配额是 ceil(share×limit)，
// 保持输入的分数序，超配额的内容顺延；配额用不满时用顺延内容回填，
// 保证尽量凑满 limit。
//
// 配额用 ceil 取整，单个类别最多超出目标占比一条（取整误差）。
func (b *Balancer) BalanceByCategory(items []*core.Item, categoryFn CategoryFn, limit int) []*core.Item {
	if len(items) == 0 || limit <= 0 {
		return nil
	}
	if categoryFn == nil {
		categoryFn = ModuleCategory
	}

	quota := make(map[string]int)
	used := make(map[string]int)
	out := make([]*core.Item, 0, limit)
	overflow := make([]*core.Item, 0)

	for _, it := range items {
		if it == nil {
			continue
		}
		if len(out) >= limit {
			break
		}
		cate := categoryFn(it)
		if _, ok := quota[cate]; !ok {
			quota[cate] = int(math.Ceil(b.share(cate) * float64(limit)))
		}
		if used[cate] < quota[cate] {
			used[cate]++
			out = append(out, it)
			continue
		}
		it.PutLabel("diversity_deferred", utils.Label{Value: cate, Source: "rerank"})
		overflow = append(overflow, it)
	}

	// 回填：类别分布不足以填满 limit 时，宁可超配额也不给用户空页
	for _, it := range overflow {
		if len(out) >= limit {
			break
		}
		out = append(out, it)
	}
	return out
}

// PreventClustering 防止连续 windowSize 条内容同类别：贪心扫描，
// 尾部快要凑满一个同类别窗口时，从后面找最近的异类内容交换。
// 找不到可交换的（剩余全是同类别）则按原序输出。
func (b *Balancer) PreventClustering(items []*core.Item, windowSize int) []*core.Item {
	if len(items) == 0 || windowSize <= 1 {
		return items
	}

	out := make([]*core.Item, len(items))
	copy(out, items)

	categoryFn := ModuleCategory
	for i := range out {
		if out[i] == nil {
			continue
		}
		run := 1
		for j := i - 1; j >= 0 && out[j] != nil && categoryFn(out[j]) == categoryFn(out[i]); j-- {
			run++
		}
		if run < windowSize {
			continue
		}
		// 从 i 之后找第一个异类内容换上来
		for j := i + 1; j < len(out); j++ {
			if out[j] != nil && categoryFn(out[j]) != categoryFn(out[i]) {
				out[i], out[j] = out[j], out[i]
				break
			}
		}
	}
	return out
}

// DiversityNode 是多样性重排 Node：先按类别占比配额，再防扎堆。
type DiversityNode struct {
	Balancer *Balancer

	// Limit 配额计算的目标长度，0 时用输入长度
	Limit int

	// WindowSize 防扎堆窗口，默认 3；<=1 时跳过防扎堆
	WindowSize int

	// CategoryFn 类别取值，nil 时用内容分类
	CategoryFn CategoryFn
}

func (n *DiversityNode) Name() string        { return "rerank.diversity" }
func (n *DiversityNode) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *DiversityNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	balancer := n.Balancer
	if balancer == nil {
		balancer = &Balancer{}
	}

	limit := n.Limit
	if limit <= 0 {
		limit = len(items)
	}

	out := balancer.BalanceByCategory(items, n.CategoryFn, limit)

	window := n.WindowSize
	if window == 0 {
		window = 3
	}
	if window > 1 {
		out = balancer.PreventClustering(out, window)
	}
	return out, nil
}
