package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/rank"
	"github.com/rushteam/feedkit/recall"
	"github.com/rushteam/feedkit/rerank"
)

// 编排默认值。
const (
	DefaultPageSize        = 20
	DefaultOverfetchFactor = 5
	DefaultCacheTTL        = 300 // 秒，≈5 分钟
	DefaultClusterWindow   = 3
)

// SeenLister 提供用户已读内容列表，编排期一次性拉取后注入打分引擎。
// filter.SeenStore 满足此接口。
type SeenLister interface {
	GetSeenItems(ctx context.Context, userID string) ([]string, error)
}

// Orchestrator 是 Feed 编排器：候选拉取 → 组合打分 → 多样性重排 → 分页 → 缓存。
//
// 降级策略：编排永不向调用方报错。候选池不可用时退流行度兜底，
// 兜底也空时返回空页。瞬时故障（可重试）打 warn，永久故障打 error。
type Orchestrator struct {
	// Candidates 候选池，必填
	Candidates core.CandidateStore

	// Engine 打分引擎，nil 时用默认引擎
	Engine *rank.Engine

	// Weights 基准权重集，零值用 DefaultWeights
	Weights rank.WeightConfig

	// WeightSets 实验变体 → 权重集
	WeightSets map[string]rank.WeightConfig

	// Resolver 实验分流器（experiment.Assigner），nil 时不分流
	Resolver rank.VariantResolver

	// Experiment 排序实验名
	Experiment string

	// Balancer 多样性重排器，nil 时用默认占比
	Balancer *rerank.Balancer

	// Cache 页缓存，nil 时不缓存
	Cache core.Store

	// CacheTTL 页缓存有效期（秒），默认 300
	CacheTTL int

	// Fallback 流行度兜底，nil 时降级路径返回空页
	Fallback *recall.Popularity

	// Seen 已读列表来源，nil 时跳过已读扣分
	Seen SeenLister

	// Logger 降级与异常日志，零值时静默
	Logger zerolog.Logger

	// PageSize 页大小，默认 20
	PageSize int

	// OverfetchFactor 超量拉取倍数，默认 5：给过滤和多样性重排留余量
	OverfetchFactor int

	// ClusterWindow 防扎堆窗口，默认 3
	ClusterWindow int
}

// NewOrchestrator 创建使用默认参数的编排器。
func NewOrchestrator(candidates core.CandidateStore) *Orchestrator {
	return &Orchestrator{
		Candidates: candidates,
		Engine:     rank.NewEngine(),
		Logger:     zerolog.Nop(),
	}
}

func (o *Orchestrator) pageSize() int {
	if o.PageSize > 0 {
		return o.PageSize
	}
	return DefaultPageSize
}

func (o *Orchestrator) overfetch() int {
	if o.OverfetchFactor > 0 {
		return o.OverfetchFactor
	}
	return DefaultOverfetchFactor
}

// GetFeed 返回一页个性化 Feed。page 从 1 开始，非法页码按 1 处理。
// 返回的 error 恒为 nil，保留在签名里是为了和其他召回/排序入口保持一致。
func (o *Orchestrator) GetFeed(
	ctx context.Context,
	rctx *core.RecommendContext,
	filter core.CandidateFilter,
	page int,
) (*Page, error) {
	if rctx == nil {
		rctx = &core.RecommendContext{}
	}
	if page < 1 {
		page = 1
	}
	pageSize := o.pageSize()

	cacheKey := o.cacheKey(rctx.UserID, filter, page)
	if cached := o.fromCache(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	end := page * pageSize
	fetchLimit := end * o.overfetch()

	items, err := o.queryCandidates(ctx, filter, fetchLimit)
	if err != nil || len(items) == 0 {
		if err != nil {
			// 瞬时故障是常态降级，warn 即可；永久故障说明接入配置有问题
			evt := o.Logger.Warn()
			if !core.IsTransient(err) {
				evt = o.Logger.Error()
			}
			evt.Err(err).
				Str("user_id", rctx.UserID).
				Msg("candidate query failed, falling back to popularity")
		}
		items = o.popularityFallback(ctx, rctx)
	}

	items = o.score(ctx, rctx, items)
	items = o.diversify(items, end)

	result := o.paginate(items, page, pageSize)
	o.toCache(ctx, cacheKey, result)
	return result, nil
}

// queryCandidates 拉取候选池，panic 一律吞掉转为错误：
// 内容域实现不可控，候选层的崩溃不允许带垮整条 Feed。
func (o *Orchestrator) queryCandidates(
	ctx context.Context,
	filter core.CandidateFilter,
	limit int,
) (items []*core.Item, err error) {
	if o.Candidates == nil {
		return nil, core.NewDomainError(core.ModuleFeed, core.ErrorCodeInvalidInput, "candidate store is nil")
	}
	defer func() {
		if r := recover(); r != nil {
			items = nil
			err = core.NewDomainError(core.ModuleFeed, core.ErrorCodeInternalError, fmt.Sprintf("candidate store panic: %v", r))
		}
	}()
	return o.Candidates.QueryCandidates(ctx, filter, limit)
}

// popularityFallback 降级到流行度兜底，兜底失败返回空列表。
func (o *Orchestrator) popularityFallback(ctx context.Context, rctx *core.RecommendContext) []*core.Item {
	if o.Fallback == nil {
		return nil
	}
	items, err := o.Fallback.Recall(ctx, rctx)
	if err != nil {
		o.Logger.Warn().Err(err).Msg("popularity fallback failed, returning empty feed")
		return nil
	}
	return items
}

// score 组合打分并按分数降序排列，复用排序 Node 的变体解析逻辑。
func (o *Orchestrator) score(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) []*core.Item {
	if len(items) == 0 {
		return items
	}

	engine := o.Engine
	if engine == nil {
		engine = rank.NewEngine()
	}
	engine = o.withSeen(ctx, rctx, engine)

	node := &rank.CompositeNode{
		Engine:     engine,
		Weights:    o.Weights,
		WeightSets: o.WeightSets,
		Resolver:   o.Resolver,
		Experiment: o.Experiment,
	}
	out, err := node.Process(ctx, rctx, items)
	if err != nil {
		// 排序 Node 目前不会报错，防御未来实现变化
		o.Logger.Warn().Err(err).Msg("rank node failed, keeping recall order")
		return items
	}
	return out
}

// withSeen 把用户已读列表注入打分引擎。列表拉取失败时跳过已读扣分，
// Feed 照常出，只是可能重复推已看过的内容。
func (o *Orchestrator) withSeen(ctx context.Context, rctx *core.RecommendContext, engine *rank.Engine) *rank.Engine {
	if o.Seen == nil || rctx.UserID == "" {
		return engine
	}

	seenIDs, err := o.Seen.GetSeenItems(ctx, rctx.UserID)
	if err != nil {
		o.Logger.Warn().Err(err).Str("user_id", rctx.UserID).Msg("seen list unavailable, skipping seen penalty")
		return engine
	}
	if len(seenIDs) == 0 {
		return engine
	}

	seen := make(map[string]bool, len(seenIDs))
	for _, id := range seenIDs {
		seen[id] = true
	}

	scoped := *engine
	scoped.Seen = func(_, itemID string) bool { return seen[itemID] }
	return &scoped
}

// diversify 多样性重排：类别配额 + 防扎堆。
func (o *Orchestrator) diversify(items []*core.Item, limit int) []*core.Item {
	if len(items) == 0 {
		return items
	}

	balancer := o.Balancer
	if balancer == nil {
		balancer = &rerank.Balancer{Shares: rank.DefaultModuleShares()}
	}

	out := balancer.BalanceByCategory(items, rerank.ModuleCategory, limit)

	window := o.ClusterWindow
	if window == 0 {
		window = DefaultClusterWindow
	}
	if window > 1 {
		out = balancer.PreventClustering(out, window)
	}
	return out
}

// paginate 切出指定页，超出范围返回空页。
func (o *Orchestrator) paginate(items []*core.Item, page, pageSize int) *Page {
	start := (page - 1) * pageSize
	endIdx := start + pageSize

	var pageItems []*core.Item
	if start < len(items) {
		if endIdx > len(items) {
			endIdx = len(items)
		}
		pageItems = items[start:endIdx]
	}

	return &Page{
		Items:    pageItems,
		Page:     page,
		PageSize: pageSize,
		Total:    len(items),
	}
}

// cacheKey 页缓存 key：用户 + 过滤条件签名 + 页码。
func (o *Orchestrator) cacheKey(userID string, filter core.CandidateFilter, page int) string {
	return fmt.Sprintf("feed:%s:%s:%d", userID, filter.Signature(), page)
}

func (o *Orchestrator) fromCache(ctx context.Context, key string) *Page {
	if o.Cache == nil {
		return nil
	}
	data, err := o.Cache.Get(ctx, key)
	if err != nil {
		return nil
	}
	var page Page
	if json.Unmarshal(data, &page) != nil {
		return nil
	}
	return &page
}

func (o *Orchestrator) toCache(ctx context.Context, key string, page *Page) {
	if o.Cache == nil || page == nil {
		return
	}
	data, err := json.Marshal(page)
	if err != nil {
		return
	}
	ttl := o.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if err := o.Cache.Set(ctx, key, data, ttl); err != nil {
		o.Logger.Debug().Err(err).Str("key", key).Msg("feed page cache write failed")
	}
}
