package filter

import (
	"context"

	"github.com/rushteam/feedkit/core"
)

// ActorExcludeFilter 过滤掉指定生产者的内容（拉黑的 artist/organizer 等）。
// 支持内存列表与请求级排除（CandidateFilter.ExcludeActors 透传到 Params）。
type ActorExcludeFilter struct {
	// ActorIDs 是内存中的排除列表
	ActorIDs []string

	// ParamsKey 从 RecommendContext.Params 读请求级排除列表的 key，
	// 默认 "exclude_actors"（[]string）
	ParamsKey string
}

func (f *ActorExcludeFilter) Name() string { return "filter.actor_exclude" }

func (f *ActorExcludeFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || item.ActorID == "" {
		return false, nil
	}

	for _, id := range f.ActorIDs {
		if item.ActorID == id {
			return true, nil
		}
	}

	key := f.ParamsKey
	if key == "" {
		key = "exclude_actors"
	}
	if rctx != nil && rctx.Params != nil {
		if excluded, ok := rctx.Params[key].([]string); ok {
			for _, id := range excluded {
				if item.ActorID == id {
					return true, nil
				}
			}
		}
	}
	return false, nil
}
