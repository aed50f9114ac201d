package core

import "time"

// UserProfile 是用户画像的核心抽象，驱动 Relevance / Personalization 打分
// 与协同过滤召回。
//
// 维度说明：
//
//	维度          作用
//	关注关系      Relevance（+70）与 Actor 亲和度
//	标签偏好      Relevance 的标签重叠加分
//	曲风偏好      音乐内容的 Personalization 加分
//	地域          Region 匹配加分
//	实验桶        权重集切换（A/B）
type UserProfile struct {
	UserID string

	// Region 地理位置，用于地域匹配加分
	Region string

	// Follows 关注的 actor 集合（artistID / organizerID ...）
	Follows map[string]bool

	// PreferTags 标签偏好，key: tag，value: weight (0-1)
	PreferTags map[string]float64

	// Genres 曲风偏好，key: genre，value: weight (0-1)
	Genres map[string]float64

	// Buckets 实验桶，例如 {"feed_ranking": "recency_heavy"}
	Buckets map[string]string

	// UpdateTime 最后更新时间
	UpdateTime time.Time
}

// NewUserProfile 创建一个新的用户画像。
func NewUserProfile(userID string) *UserProfile {
	return &UserProfile{
		UserID:     userID,
		Follows:    make(map[string]bool),
		PreferTags: make(map[string]float64),
		Genres:     make(map[string]float64),
		Buckets:    make(map[string]string),
		UpdateTime: time.Now(),
	}
}

// FollowsActor 判断用户是否关注某个 actor。
func (p *UserProfile) FollowsActor(actorID string) bool {
	if p == nil || p.Follows == nil || actorID == "" {
		return false
	}
	return p.Follows[actorID]
}

// ActorAffinity 返回用户对 actor 的亲和度 [0,1]。
// 当前实现是二值的：关注即 1.0。后续可以接入互动频次等连续信号。
func (p *UserProfile) ActorAffinity(actorID string) float64 {
	if p.FollowsActor(actorID) {
		return 1.0
	}
	return 0
}

// GenreWeight 返回用户对曲风的偏好权重，没有则为 0。
func (p *UserProfile) GenreWeight(genre string) float64 {
	if p == nil || p.Genres == nil {
		return 0
	}
	return p.Genres[genre]
}

// TagWeight 返回用户对标签的偏好权重，没有则为 0。
func (p *UserProfile) TagWeight(tag string) float64 {
	if p == nil || p.PreferTags == nil {
		return 0
	}
	return p.PreferTags[tag]
}

// SetBucket 设置实验桶。
func (p *UserProfile) SetBucket(key, value string) {
	if p.Buckets == nil {
		p.Buckets = make(map[string]string)
	}
	p.Buckets[key] = value
}

// GetBucket 获取实验桶值，没有则为空串。
func (p *UserProfile) GetBucket(key string) string {
	if p == nil || p.Buckets == nil {
		return ""
	}
	return p.Buckets[key]
}
