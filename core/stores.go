package core

import (
	"context"
	"sort"
	"strconv"
	"strings"
)

// InteractionStore 提供用户-内容互动数据，是协同过滤召回的数据源。
//
// 约定：返回的权重均为非负的加权信号和（play/like/download/playlist_add
// 按配置权重聚合），同一内容的多个信号累加。
type InteractionStore interface {
	// GetInteractions 返回用户的加权互动向量 map[itemID]weight。
	// 无互动历史返回空 map，不是错误。
	GetInteractions(ctx context.Context, userID string) (map[string]float64, error)

	// GetItemUsers 返回与某内容互动过的用户及其权重 map[userID]weight。
	GetItemUsers(ctx context.Context, itemID string) (map[string]float64, error)

	// GetUsersForItems 返回与任一给定内容互动过的用户 ID（去重），
	// 不包含 exclude，数量不超过 limit。limit 是强制上限：协同过滤
	// 不允许按请求扫全量用户。
	GetUsersForItems(ctx context.Context, itemIDs []string, exclude string, limit int) ([]string, error)
}

// CandidateFilter 是候选池的查询条件。
type CandidateFilter struct {
	Modules       []string // 按内容分类过滤
	Types         []string // 按内容类型过滤
	ExcludeActors []string // 排除指定生产者
	Region        string   // 地域过滤
	PrestigeOnly  bool     // 只要 Prestige 内容
}

// Signature 返回过滤条件的稳定签名，用于 Feed 页缓存 key。
// 切片先排序再拼接，保证字段顺序无关。
func (f CandidateFilter) Signature() string {
	mods := append([]string(nil), f.Modules...)
	sort.Strings(mods)
	types := append([]string(nil), f.Types...)
	sort.Strings(types)
	excl := append([]string(nil), f.ExcludeActors...)
	sort.Strings(excl)

	var b strings.Builder
	b.WriteString("m=")
	b.WriteString(strings.Join(mods, ","))
	b.WriteString(";t=")
	b.WriteString(strings.Join(types, ","))
	b.WriteString(";x=")
	b.WriteString(strings.Join(excl, ","))
	b.WriteString(";r=")
	b.WriteString(f.Region)
	b.WriteString(";p=")
	b.WriteString(strconv.FormatBool(f.PrestigeOnly))
	return b.String()
}

// CandidateStore 提供待排序的候选池，由内容域实现。
type CandidateStore interface {
	// QueryCandidates 按过滤条件返回候选内容，数量不超过 limit。
	// Feed 编排会按页大小的 ~5 倍超量拉取，给多样性重排留余量。
	QueryCandidates(ctx context.Context, filter CandidateFilter, limit int) ([]*Item, error)

	// GetItems 按 ID 批量取回内容，结果保持入参顺序，缺失的 ID 跳过。
	GetItems(ctx context.Context, itemIDs []string) ([]*Item, error)
}

// StatsSink 是实验计数的上报出口，fire-and-forget：
// 调用方忽略返回的错误，上报失败不得影响推荐链路。
type StatsSink interface {
	IncrementExperimentCounter(ctx context.Context, experiment, variant, counter string) error
}

// NopStatsSink 是 StatsSink 的空实现，组合期未接入上报时使用。
type NopStatsSink struct{}

func (NopStatsSink) IncrementExperimentCounter(ctx context.Context, experiment, variant, counter string) error {
	return nil
}
