package feature

import (
	"context"
	"sync"

	"github.com/rushteam/feedkit/core"
)

// StaticService 是内存特征服务，测试和原型阶段用。
// 并发安全，返回的 map 是拷贝。
type StaticService struct {
	mu    sync.RWMutex
	users map[string]map[string]float64
	items map[string]map[string]float64
}

// NewStaticService 创建内存特征服务。
func NewStaticService() *StaticService {
	return &StaticService{
		users: make(map[string]map[string]float64),
		items: make(map[string]map[string]float64),
	}
}

func (s *StaticService) Name() string { return "feature.static" }

// SetUserFeatures 设置用户特征（覆盖）。
func (s *StaticService) SetUserFeatures(userID string, features map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = copyFeatures(features)
}

// SetItemFeatures 设置物品特征（覆盖）。
func (s *StaticService) SetItemFeatures(itemID string, features map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[itemID] = copyFeatures(features)
}

func (s *StaticService) GetUserFeatures(_ context.Context, userID string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyFeatures(s.users[userID]), nil
}

func (s *StaticService) GetItemFeatures(_ context.Context, itemID string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyFeatures(s.items[itemID]), nil
}

func (s *StaticService) Close(_ context.Context) error { return nil }

func copyFeatures(src map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

var _ core.FeatureService = (*StaticService)(nil)
