package filter

import (
	"context"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pkg/dsl"
)

// RuleFilter 按 CEL 规则表达式过滤内容：表达式为 true 的内容被移除。
// 规则由运营配置下发，例如 `item.module == "events" && item.engagement < 5.0`。
type RuleFilter struct {
	Rule *dsl.Rule
}

// NewRuleFilter 编译表达式并创建规则过滤器。
func NewRuleFilter(expr string) (*RuleFilter, error) {
	rule, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &RuleFilter{Rule: rule}, nil
}

func (f *RuleFilter) Name() string { return "filter.rule" }

func (f *RuleFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if f.Rule == nil || item == nil {
		return false, nil
	}
	return f.Rule.Match(item, rctx)
}
