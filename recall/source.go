package recall

import (
	"context"

	"github.com/rushteam/feedkit/core"
)

// Source 表示一个可复用的召回源（流行度/协同过滤/候选池/...）。
// 可以把它理解为"可并发 fan-out 的策略单元"。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}
