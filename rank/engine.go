package rank

import (
	"math"
	"time"

	"github.com/rushteam/feedkit/core"
)

// ScoreConfig 是打分公式的常量配置。零值字段走默认值。
type ScoreConfig struct {
	// HalfLifeHours 新鲜度半衰期（小时），默认 24
	HalfLifeHours float64

	// MaxAgeDays 新鲜度硬截断（天），超龄直接 0 分而非继续衰减，默认 14
	MaxAgeDays int

	// 互动量阶梯阈值，默认 1000 / 500 / 100
	ViralThreshold    int64
	PopularThreshold  int64
	TrendingThreshold int64

	// ModuleShares 各内容分类在 Feed 中的目标占比（类别先验，
	// 真正的防聚集在 rerank 阶段做）。未列出的分类用 DefaultModuleShare。
	ModuleShares map[string]float64

	// DefaultModuleShare 未配置分类的占比，默认 0.05
	DefaultModuleShare float64

	// PrestigeModules 恒定带 Prestige 基础分的分类（如 awards）
	PrestigeModules map[string]bool

	// SeenPenalty 已看过内容的扣分，默认 30
	SeenPenalty float64

	// AggregatedPenalty 聚合 rollup 内容的扣分，默认 10
	AggregatedPenalty float64
}

// DefaultModuleShares 返回默认的分类占比先验。
func DefaultModuleShares() map[string]float64 {
	return map[string]float64{
		"music":     0.35,
		"events":    0.15,
		"awards":    0.15,
		"playlists": 0.10,
		"artists":   0.10,
	}
}

// SeenChecker 判断用户是否已看过某内容。纯函数形态注入，保持引擎无 I/O；
// 为 nil 时视为从未看过（源系统的曝光追踪即是这样打桩的）。
type SeenChecker func(userID, itemID string) bool

// Engine 是组合打分引擎：item + 用户上下文 + 权重 → 排序分。
//
// 公式：score = Σ(componentᵢ × weightᵢ) + rankBoost − penalties，
// 各分量先归一到 0-100 再加权，最终分数下限为 0。
//
// Engine 本身无 I/O、无共享可变状态，可在任意并发度下复用。
type Engine struct {
	Config ScoreConfig

	// Clock 取当前时间，nil 时用 time.Now（测试可注入固定时钟）
	Clock func() time.Time

	// Seen 已读判定，nil 时恒为未读
	Seen SeenChecker
}

// NewEngine 创建使用默认配置的打分引擎。
func NewEngine() *Engine {
	return &Engine{
		Config: ScoreConfig{
			ModuleShares:    DefaultModuleShares(),
			PrestigeModules: map[string]bool{"awards": true},
		},
	}
}

func (e *Engine) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

func (e *Engine) halfLifeHours() float64 {
	if e.Config.HalfLifeHours > 0 {
		return e.Config.HalfLifeHours
	}
	return 24
}

func (e *Engine) maxAgeHours() float64 {
	days := e.Config.MaxAgeDays
	if days <= 0 {
		days = 14
	}
	return float64(days) * 24
}

func (e *Engine) thresholds() (viral, popular, trending int64) {
	viral, popular, trending = e.Config.ViralThreshold, e.Config.PopularThreshold, e.Config.TrendingThreshold
	if viral <= 0 {
		viral = 1000
	}
	if popular <= 0 {
		popular = 500
	}
	if trending <= 0 {
		trending = 100
	}
	return
}

// Score 计算内容的排序分，恒 ≥ 0。
func (e *Engine) Score(item *core.Item, rctx *core.RecommendContext, w WeightConfig) float64 {
	if item == nil {
		return 0
	}
	profile := rctx.Profile()

	score := e.RecencyScore(item)*w.Recency +
		e.RelevanceScore(item, profile)*w.Relevance +
		e.EngagementScore(item)*w.Engagement +
		e.DiversityScore(item)*w.Diversity +
		e.PersonalizationScore(item, profile)*w.Personalization +
		e.PrestigeScore(item)*w.Prestige

	score += item.RankBoost
	score -= e.penalties(item, rctx)

	if score < 0 {
		return 0
	}
	return score
}

// RecencyScore 新鲜度：指数半衰 100×2^(−age/halfLife)，超过 MaxAgeDays 硬截断为 0。
// 缺失时间戳给中性的 50 分：没打时间戳不等于内容过期。
func (e *Engine) RecencyScore(item *core.Item) float64 {
	if item.PublishedAt == nil {
		return 50
	}
	ageHours := e.now().Sub(*item.PublishedAt).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	if ageHours > e.maxAgeHours() {
		return 0
	}
	return 100 * math.Exp2(-ageHours/e.halfLifeHours())
}

// RelevanceScore 相关性：匿名基础 30 分；关注生产者 +70；
// 每个重叠标签 +10；地域匹配 +15；上限 100。
func (e *Engine) RelevanceScore(item *core.Item, profile *core.UserProfile) float64 {
	score := 30.0
	if profile == nil {
		return score
	}

	if profile.FollowsActor(item.ActorID) {
		score += 70
	}
	for _, tag := range item.Tags {
		if profile.TagWeight(tag) > 0 {
			score += 10
		}
	}
	if item.Region != "" && item.Region == profile.Region {
		score += 15
	}

	return math.Min(score, 100)
}

// EngagementScore 互动量：阶梯函数，viral/popular/trending 阈值对应 100/70/40，
// 低于最低阈值时按 total/trending 线性缩放到 0-40。
func (e *Engine) EngagementScore(item *core.Item) float64 {
	viral, popular, trending := e.thresholds()
	total := item.EngagementTotal()

	switch {
	case total >= viral:
		return 100
	case total >= popular:
		return 70
	case total >= trending:
		return 40
	default:
		return math.Min(40, float64(total)/float64(trending)*40)
	}
}

// DiversityScore 类别先验：分类目标占比 ×100。这是打分期的静态先验，
// 不是实时多样性——防止同类扎堆在 rerank 阶段处理。
func (e *Engine) DiversityScore(item *core.Item) float64 {
	shares := e.Config.ModuleShares
	if shares == nil {
		shares = DefaultModuleShares()
	}
	if share, ok := shares[item.Module]; ok {
		return share * 100
	}
	def := e.Config.DefaultModuleShare
	if def <= 0 {
		def = 0.05
	}
	return def * 100
}

// PersonalizationScore 个性化：音乐内容的曲风偏好最高 50 分，
// 生产者亲和度最高 50 分；上限 100。
func (e *Engine) PersonalizationScore(item *core.Item, profile *core.UserProfile) float64 {
	if profile == nil {
		return 0
	}

	score := 0.0
	if item.Module == "music" {
		if genre := item.Genre(); genre != "" {
			score += 50 * clamp01(profile.GenreWeight(genre))
		}
	}
	score += 50 * clamp01(profile.ActorAffinity(item.ActorID))

	return math.Min(score, 100)
}

// PrestigeScore 声望：Prestige 内容 100；庆祝类 50；恒定声望分类基础 30；其余 0。
func (e *Engine) PrestigeScore(item *core.Item) float64 {
	switch {
	case item.Prestige:
		return 100
	case item.Celebration():
		return 50
	case e.Config.PrestigeModules[item.Module]:
		return 30
	default:
		return 0
	}
}

// penalties 扣分项：已看过 +30、聚合 rollup +10。直接从加权和里减，不做归一。
func (e *Engine) penalties(item *core.Item, rctx *core.RecommendContext) float64 {
	var p float64

	seenPenalty := e.Config.SeenPenalty
	if seenPenalty <= 0 {
		seenPenalty = 30
	}
	if e.Seen != nil && rctx != nil && rctx.UserID != "" && e.Seen(rctx.UserID, item.ID) {
		p += seenPenalty
	}

	aggPenalty := e.Config.AggregatedPenalty
	if aggPenalty <= 0 {
		aggPenalty = 10
	}
	if item.Aggregated {
		p += aggPenalty
	}

	return p
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
