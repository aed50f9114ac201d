package builders

import (
	"fmt"
	"time"

	"github.com/rushteam/feedkit/config"
	"github.com/rushteam/feedkit/filter"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/conv"
	"github.com/rushteam/feedkit/rank"
	"github.com/rushteam/feedkit/recall"
	"github.com/rushteam/feedkit/rerank"
)

func init() {
	config.Register("recall.popularity", BuildPopularityNode)
	config.Register("recall.fanout", BuildFanoutNode)
	config.Register("recall.cf", BuildCFNode)
	config.Register("rank.composite", BuildCompositeNode)
	config.Register("rerank.diversity", BuildDiversityNode)
	config.Register("rerank.topn", BuildTopNNode)
	config.Register("filter", BuildFilterNode)
}

func BuildPopularityNode(cfg map[string]interface{}) (pipeline.Node, error) {
	ids := conv.SliceAnyToString(cfg["ids"])
	if ids == nil {
		ids = []string{}
	}
	node := &recall.Popularity{
		Key: conv.ConfigGet(cfg, "key", ""),
		IDs: ids,
	}
	if n := conv.ConfigGetInt64(cfg, "top_n", 0); n > 0 {
		node.TopN = n
	}
	return node, nil
}

func BuildFanoutNode(cfg map[string]interface{}) (pipeline.Node, error) {
	sourcesConfig, ok := cfg["sources"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("sources not found or invalid")
	}
	sources := make([]recall.Source, 0, len(sourcesConfig))
	for _, sc := range sourcesConfig {
		sourceMap, ok := sc.(map[string]interface{})
		if !ok {
			continue
		}
		sourceType := conv.ConfigGet(sourceMap, "type", "")
		switch sourceType {
		case "popularity":
			ids := conv.SliceAnyToString(sourceMap["ids"])
			if ids == nil {
				ids = []string{}
			}
			sources = append(sources, &recall.Popularity{
				Key: conv.ConfigGet(sourceMap, "key", ""),
				IDs: ids,
			})
		case "cf":
			// CF 需 InteractionStore 等运行时依赖，暂未从配置构建
			return nil, fmt.Errorf("cf source requires runtime dependencies, assemble in code")
		default:
			return nil, fmt.Errorf("unknown source type: %s", sourceType)
		}
	}
	fanout := &recall.Fanout{
		Sources: sources,
		Dedup:   conv.ConfigGet(cfg, "dedup", true),
	}
	if sec := conv.ConfigGetInt64(cfg, "timeout", 0); sec > 0 {
		fanout.Timeout = time.Duration(sec) * time.Second
	}
	if n := conv.ConfigGetInt64(cfg, "max_concurrent", 0); n > 0 {
		fanout.MaxConcurrent = int(n)
	}
	fanout.MergeStrategy = conv.ConfigGet(cfg, "merge_strategy", "")
	return fanout, nil
}

func BuildCFNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return nil, fmt.Errorf("cf node requires runtime dependencies (interaction store), assemble in code (supported: %v)", config.SupportedTypes())
}

func BuildCompositeNode(cfg map[string]interface{}) (pipeline.Node, error) {
	node := &rank.CompositeNode{
		Engine:     rank.NewEngine(),
		Experiment: conv.ConfigGet(cfg, "experiment", ""),
	}

	if weightsMap, ok := cfg["weights"].(map[string]interface{}); ok {
		node.Weights = rank.WeightsFromMap(conv.MapToFloat64(weightsMap))
		if err := node.Weights.Validate(); err != nil {
			return nil, fmt.Errorf("invalid weights: %w", err)
		}
	}

	if setsMap, ok := cfg["weight_sets"].(map[string]interface{}); ok {
		sets := make(map[string]rank.WeightConfig, len(setsMap))
		for name, raw := range setsMap {
			m, ok := raw.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("weight set %q invalid", name)
			}
			w := rank.WeightsFromMap(conv.MapToFloat64(m))
			if err := w.Validate(); err != nil {
				return nil, fmt.Errorf("weight set %q: %w", name, err)
			}
			sets[name] = w
		}
		node.WeightSets = sets
	} else {
		node.WeightSets = rank.VariantWeightSets()
	}

	return node, nil
}

func BuildDiversityNode(cfg map[string]interface{}) (pipeline.Node, error) {
	balancer := &rerank.Balancer{
		DefaultShare: conv.ConfigGetFloat64(cfg, "default_share", 0),
	}
	if sharesMap, ok := cfg["shares"].(map[string]interface{}); ok {
		balancer.Shares = conv.MapToFloat64(sharesMap)
	}
	node := &rerank.DiversityNode{
		Balancer:   balancer,
		Limit:      int(conv.ConfigGetInt64(cfg, "limit", 0)),
		WindowSize: int(conv.ConfigGetInt64(cfg, "window_size", 0)),
	}
	return node, nil
}

func BuildTopNNode(cfg map[string]interface{}) (pipeline.Node, error) {
	n := conv.ConfigGetInt64(cfg, "n", 0)
	if n <= 0 {
		return nil, fmt.Errorf("n not found or invalid")
	}
	return &rerank.TopNNode{N: int(n)}, nil
}

func BuildFilterNode(cfg map[string]interface{}) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}
	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]interface{})
		if !ok {
			continue
		}
		filterType := conv.ConfigGet(filterMap, "type", "")
		switch filterType {
		case "actor_exclude":
			ids := conv.SliceAnyToString(filterMap["actor_ids"])
			if ids == nil {
				ids = []string{}
			}
			filters = append(filters, &filter.ActorExcludeFilter{ActorIDs: ids})
		case "rule":
			expr := conv.ConfigGet(filterMap, "expr", "")
			if expr == "" {
				return nil, fmt.Errorf("rule filter requires expr")
			}
			rf, err := filter.NewRuleFilter(expr)
			if err != nil {
				return nil, fmt.Errorf("compile rule %q: %w", expr, err)
			}
			filters = append(filters, rf)
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}
	return &filter.FilterNode{Filters: filters}, nil
}
