package core

import "context"

// FeatureService 是特征服务的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（feature）实现
//   - 领域层定义接口，基础设施层实现接口，避免循环依赖
//
// 使用场景：
//   - 用户画像水合：关注关系、标签/曲风偏好以特征向量形式下发，
//     key 约定为 "follows:<actorID>"、"tag:<name>"、"genre:<name>"
//   - 物品统计特征：实时互动率等
//
// 实现：
//   - feature.FeastService（Feast 在线特征，gRPC）
//   - feature.StaticService（内存实现，测试/原型用）
type FeatureService interface {
	// Name 返回特征服务名称（用于日志/监控）
	Name() string

	// GetUserFeatures 获取用户特征
	GetUserFeatures(ctx context.Context, userID string) (map[string]float64, error)

	// GetItemFeatures 获取物品特征
	GetItemFeatures(ctx context.Context, itemID string) (map[string]float64, error)

	// Close 关闭特征服务，释放资源
	Close(ctx context.Context) error
}
