package filter

import (
	"context"

	"github.com/rushteam/feedkit/core"
)

// SeenStore 是已读历史的存储接口，由曝光追踪域实现。
// 源系统的曝光追踪是可选能力：没接入时用 NopSeenStore，在组合期决定，
// 而不是在调用点做运行时探测。
type SeenStore interface {
	// GetSeenItems 获取用户已看过的内容 ID 列表
	GetSeenItems(ctx context.Context, userID string) ([]string, error)
}

// NopSeenStore 是 SeenStore 的空实现：恒为未读。
type NopSeenStore struct{}

func (NopSeenStore) GetSeenItems(ctx context.Context, userID string) ([]string, error) {
	return nil, nil
}

// SeenFilter 过滤掉用户已经看过的内容。
// Feed 主链路通常不整条过滤而是扣分（rank 的 SeenChecker），
// SeenFilter 用于推荐列表等需要硬去重的场景。
type SeenFilter struct {
	Store SeenStore
}

func (f *SeenFilter) Name() string { return "filter.seen" }

func (f *SeenFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || rctx == nil || rctx.UserID == "" || f.Store == nil {
		return false, nil
	}

	seenIDs, err := f.Store.GetSeenItems(ctx, rctx.UserID)
	if err != nil {
		// 已读数据拿不到时放行：漏掉去重好过整条失败
		return false, nil
	}
	for _, id := range seenIDs {
		if item.ID == id {
			return true, nil
		}
	}
	return false, nil
}
