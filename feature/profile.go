package feature

import (
	"context"
	"strings"
	"time"

	"github.com/rushteam/feedkit/core"
)

// 用户特征向量的 key 约定。
const (
	prefixFollows = "follows:" // follows:<actorID> -> 1 表示关注
	prefixTag     = "tag:"     // tag:<name> -> 偏好权重
	prefixGenre   = "genre:"   // genre:<name> -> 曲风偏好权重
)

// ProfileLoader 把特征服务的用户特征向量水合成 UserProfile。
// 特征取不到时返回匿名画像而不是报错，排序侧按冷启动处理。
type ProfileLoader struct {
	Service core.FeatureService

	// RegionFeature 地区特征名，值为 0 时不填地区。
	// 地区是字符串，走不了 float 向量，用 Regions 映射表转换。
	RegionFeature string
	// Regions 地区编码到地区名的映射，如 1 -> "US"
	Regions map[int]string
}

// NewProfileLoader 创建画像加载器。
func NewProfileLoader(service core.FeatureService) *ProfileLoader {
	return &ProfileLoader{Service: service}
}

// Load 加载用户画像。userID 为空或特征拉取失败时返回匿名画像。
func (l *ProfileLoader) Load(ctx context.Context, userID string) *core.UserProfile {
	profile := &core.UserProfile{
		UserID:     userID,
		Follows:    make(map[string]bool),
		PreferTags: make(map[string]float64),
		Genres:     make(map[string]float64),
		Buckets:    make(map[string]string),
		UpdateTime: time.Now(),
	}
	if userID == "" || l.Service == nil {
		return profile
	}

	features, err := l.Service.GetUserFeatures(ctx, userID)
	if err != nil {
		// 特征服务抖动时按匿名用户处理，不阻塞 Feed
		return profile
	}

	for key, val := range features {
		switch {
		case strings.HasPrefix(key, prefixFollows):
			if val > 0 {
				profile.Follows[key[len(prefixFollows):]] = true
			}
		case strings.HasPrefix(key, prefixTag):
			profile.PreferTags[key[len(prefixTag):]] = val
		case strings.HasPrefix(key, prefixGenre):
			profile.Genres[key[len(prefixGenre):]] = val
		case l.RegionFeature != "" && key == l.RegionFeature:
			if name, ok := l.Regions[int(val)]; ok {
				profile.Region = name
			}
		}
	}
	return profile
}
