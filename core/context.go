package core

import "github.com/rushteam/feedkit/pkg/utils"

// RecommendContext 承载用户/场景/实时信息，贯穿整个 Pipeline 透传。
// "当前用户"永远通过它显式传递，组件不读任何全局状态。
type RecommendContext struct {
	UserID   string // 空串表示匿名用户（走中性 Relevance 基础分）
	DeviceID string
	Scene    string // feed / similar / ...

	// User 是强类型用户画像；为空时按匿名处理。
	User *UserProfile

	// Labels 是用户级标签，可驱动整个 Pipeline 行为。
	Labels map[string]utils.Label

	// Params 请求级上下文参数：分页、过滤条件摘要、实时信号等。
	Params map[string]any
}

// Anonymous 判断是否匿名请求（无用户 ID 或无画像）。
func (rctx *RecommendContext) Anonymous() bool {
	return rctx == nil || rctx.UserID == "" || rctx.User == nil
}

// Profile 返回用户画像，匿名时返回 nil。
func (rctx *RecommendContext) Profile() *UserProfile {
	if rctx == nil {
		return nil
	}
	return rctx.User
}

// Bucket 返回用户在某个实验中的桶名，匿名或未分桶时为空串。
func (rctx *RecommendContext) Bucket(experiment string) string {
	if rctx == nil || rctx.User == nil {
		return ""
	}
	return rctx.User.GetBucket(experiment)
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
