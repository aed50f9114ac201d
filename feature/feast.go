package feature

import (
	"context"
	"fmt"
	"strconv"

	feastsdk "github.com/feast-dev/feast/sdk/go"

	"github.com/rushteam/feedkit/core"
)

// FeastService 是基于官方 Feast Go SDK 的特征服务实现。
//
// 设计原则（DDD）：
//   - 领域层：core.FeatureService 接口保持不变
//   - 基础设施层：FeastService 实现该接口
//   - 高内聚低耦合：通过接口抽象，可以替换实现
//
// 工程特征：
//   - 实时性：优秀（gRPC 低延迟）
//   - 性能：高（二进制协议、连接复用）
type FeastService struct {
	client *feastsdk.GrpcClient

	// Project Feast 项目名称
	Project string
	// UserFeatures 用户侧要拉取的特征名列表
	UserFeatures []string
	// ItemFeatures 物品侧要拉取的特征名列表
	ItemFeatures []string
	// UserEntity 用户实体 key，默认 "user_id"
	UserEntity string
	// ItemEntity 物品实体 key，默认 "item_id"
	ItemEntity string
}

// FeastOption 配置选项。
type FeastOption func(*FeastService)

// WithUserFeatures 设置用户侧特征名列表。
func WithUserFeatures(features ...string) FeastOption {
	return func(s *FeastService) { s.UserFeatures = features }
}

// WithItemFeatures 设置物品侧特征名列表。
func WithItemFeatures(features ...string) FeastOption {
	return func(s *FeastService) { s.ItemFeatures = features }
}

// WithEntityKeys 设置实体 key 名称。
func WithEntityKeys(userEntity, itemEntity string) FeastOption {
	return func(s *FeastService) {
		s.UserEntity = userEntity
		s.ItemEntity = itemEntity
	}
}

// NewFeastService 创建 Feast 特征服务。
//
// 参数：
//   - host: Feast Feature Server 主机地址
//   - port: gRPC 端口，0 取默认 6565
//   - project: 项目名称
func NewFeastService(host string, port int, project string, opts ...FeastOption) (*FeastService, error) {
	if port == 0 {
		port = 6565
	}

	client, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, core.NewDomainError(
			core.ModuleFeature,
			core.ErrorCodeUnavailable,
			fmt.Sprintf("connect feast %s:%d: %v", host, port, err),
		)
	}

	s := &FeastService{
		client:     client,
		Project:    project,
		UserEntity: "user_id",
		ItemEntity: "item_id",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *FeastService) Name() string { return "feature.feast" }

// GetUserFeatures 获取用户在线特征。
func (s *FeastService) GetUserFeatures(ctx context.Context, userID string) (map[string]float64, error) {
	return s.fetch(ctx, s.UserEntity, userID, s.UserFeatures)
}

// GetItemFeatures 获取物品在线特征。
func (s *FeastService) GetItemFeatures(ctx context.Context, itemID string) (map[string]float64, error) {
	return s.fetch(ctx, s.ItemEntity, itemID, s.ItemFeatures)
}

func (s *FeastService) fetch(ctx context.Context, entityKey, entityID string, features []string) (map[string]float64, error) {
	if len(features) == 0 {
		return map[string]float64{}, nil
	}
	if s.client == nil {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeUnavailable, "feast client closed")
	}

	req := &feastsdk.OnlineFeaturesRequest{
		Features: features,
		Entities: []feastsdk.Row{
			{entityKey: feastsdk.StrVal(entityID)},
		},
		Project: s.Project,
	}

	resp, err := s.client.GetOnlineFeatures(ctx, req)
	if err != nil {
		return nil, core.NewDomainError(
			core.ModuleFeature,
			core.ErrorCodeUnavailable,
			fmt.Sprintf("feast get online features: %v", err),
		)
	}

	rows := resp.Rows()
	if len(rows) == 0 {
		return map[string]float64{}, nil
	}

	out := make(map[string]float64, len(features))
	row := rows[0]
	for _, name := range features {
		val, ok := row[name]
		if !ok {
			continue
		}
		if f, ok := toFloat(val); ok {
			out[name] = f
		}
	}
	return out, nil
}

// Close 关闭特征服务。官方 SDK 没有显式 Close，连接由 gRPC 库管理。
func (s *FeastService) Close(_ context.Context) error {
	s.client = nil
	return nil
}

// toFloat 把 SDK 返回的特征值归一成 float64。
// SDK 的 Row 值是 *types.Value，辅助方法不全，
// 这里走 interface{} 兜底转换。
func toFloat(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case int:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, true
		}
		return 0, false
	default:
		strVal := fmt.Sprintf("%v", val)
		if f, err := strconv.ParseFloat(strVal, 64); err == nil {
			return f, true
		}
		return 0, false
	}
}

var _ core.FeatureService = (*FeastService)(nil)
