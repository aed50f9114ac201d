package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/feedkit/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("user", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Rule 是一条编译好的 Feed 规则表达式（CEL 语法），线程安全，可跨请求复用。
//
// 可用变量：
//   - item: 内容字段（id / module / type / actor_id / region / prestige /
//     aggregated / score / engagement / genre）
//   - label: 链路标签（recall_source / rank_variant / ...）
//   - user: 用户上下文（id / region / anonymous）
//
// 示例：
//   - `item.module == "events" && item.engagement < 10.0`
//   - `label.recall_source.contains("popularity")`
//   - `user.anonymous && item.prestige == false`
type Rule struct {
	expr string
	prg  cel.Program
}

// Compile 编译规则表达式。编译一次，到处求值。
func Compile(expr string) (*Rule, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %v", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Rule{expr: expr, prg: prg}, nil
}

// String 返回规则的原始表达式。
func (r *Rule) String() string { return r.expr }

// Match 对单条内容求值，返回布尔结果。表达式结果非布尔时报错。
func (r *Rule) Match(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	out, _, err := r.prg.Eval(map[string]any{
		"item":  itemVars(item),
		"label": labelVars(item),
		"user":  userVars(rctx),
	})
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression %q did not evaluate to bool", r.expr)
	}
	return b, nil
}

func itemVars(item *core.Item) map[string]any {
	if item == nil {
		return map[string]any{}
	}
	return map[string]any{
		"id":         item.ID,
		"module":     item.Module,
		"type":       item.Type,
		"actor_id":   item.ActorID,
		"region":     item.Region,
		"prestige":   item.Prestige,
		"aggregated": item.Aggregated,
		"score":      item.Score,
		"engagement": float64(item.EngagementTotal()),
		"genre":      item.Genre(),
	}
}

func labelVars(item *core.Item) map[string]any {
	vars := map[string]any{}
	if item == nil {
		return vars
	}
	for k, lbl := range item.Labels {
		vars[k] = lbl.Value
	}
	return vars
}

func userVars(rctx *core.RecommendContext) map[string]any {
	if rctx == nil {
		return map[string]any{"id": "", "region": "", "anonymous": true}
	}
	region := ""
	if rctx.User != nil {
		region = rctx.User.Region
	}
	return map[string]any{
		"id":        rctx.UserID,
		"region":    region,
		"anonymous": rctx.Anonymous(),
	}
}
