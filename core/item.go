package core

import (
	"time"

	"github.com/rushteam/feedkit/pkg/utils"
)

// Item 是 Feed 流中的统一承载结构：内容元信息、互动计数、打分结果、标签。
// Score 是请求内的临时计算结果，不落库；Labels 用于解释与策略驱动。
type Item struct {
	ID        string
	Module    string // 内容分类：music / events / awards ...
	Type      string
	ActorID   string // 内容生产者
	ActorType string

	// PublishedAt 可能缺失；缺失时 Recency 走中性默认分，不惩罚。
	PublishedAt *time.Time

	Likes    int64
	Comments int64
	Shares   int64

	Tags   []string
	Region string

	Prestige   bool    // 获奖/里程碑内容，独立于热度的加权
	Aggregated bool    // 后端聚合的 rollup，打分时有小幅惩罚
	RankBoost  float64 // 运营配置的基础加权

	// Score 是本次请求计算出的排序分，每次请求重算。
	Score float64

	Meta   map[string]any
	Labels map[string]utils.Label
}

func NewItem(id string) *Item {
	return &Item{
		ID:     id,
		Meta:   make(map[string]any),
		Labels: make(map[string]utils.Label),
	}
}

// EngagementTotal 返回互动总量（likes+comments+shares）。
func (it *Item) EngagementTotal() int64 {
	return it.Likes + it.Comments + it.Shares
}

// HasTag 判断内容是否带有指定标签。
func (it *Item) HasTag(tag string) bool {
	for _, t := range it.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Genre 返回内容的曲风/题材（存于 Meta["genre"]），没有则为空串。
func (it *Item) Genre() string {
	if it.Meta == nil {
		return ""
	}
	if g, ok := it.Meta["genre"].(string); ok {
		return g
	}
	return ""
}

// Celebration 判断内容是否带庆祝标记（周年/纪念类内容的次级 Prestige 信号）。
func (it *Item) Celebration() bool {
	if it.Meta == nil {
		return false
	}
	if b, ok := it.Meta["celebration"].(bool); ok {
		return b
	}
	return false
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}
