package recall

import (
	"context"
	"encoding/json"

	"github.com/rushteam/feedkit/core"
)

// StoreInteractionAdapter 是基于 core.Store 的互动日志适配器，
// 实现 core.InteractionStore。
//
// key 布局：
//
//	用户侧原始信号：{KeyPrefix}:user:{userID}  → map[itemID]map[signal]count
//	内容侧原始信号：{KeyPrefix}:item:{itemID}  → map[userID]map[signal]count
//
// 读取时按 Weights 聚合：weight = Σ signalWeight × count。
// 原始计数与权重分离存储，权重调整不需要回刷日志。
type StoreInteractionAdapter struct {
	store core.Store

	// KeyPrefix 存储 key 前缀，默认 "feed:signals"
	KeyPrefix string

	// Weights 信号权重，nil 时用 DefaultSignalWeights
	Weights SignalWeights
}

// NewStoreInteractionAdapter 创建一个基于 core.Store 的互动日志适配器。
func NewStoreInteractionAdapter(s core.Store, keyPrefix string) *StoreInteractionAdapter {
	if keyPrefix == "" {
		keyPrefix = "feed:signals"
	}
	return &StoreInteractionAdapter{
		store:     s,
		KeyPrefix: keyPrefix,
		Weights:   DefaultSignalWeights(),
	}
}

func (a *StoreInteractionAdapter) weights() SignalWeights {
	if a.Weights != nil {
		return a.Weights
	}
	return DefaultSignalWeights()
}

// aggregate 把原始信号计数聚合成加权值。未配置权重的信号忽略。
func (a *StoreInteractionAdapter) aggregate(signals map[string]map[string]float64) map[string]float64 {
	w := a.weights()
	out := make(map[string]float64, len(signals))
	for id, counts := range signals {
		var sum float64
		for signal, count := range counts {
			if weight, ok := w[signal]; ok {
				sum += weight * count
			}
		}
		if sum > 0 {
			out[id] = sum
		}
	}
	return out
}

func (a *StoreInteractionAdapter) loadSignals(ctx context.Context, key string) (map[string]map[string]float64, error) {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return map[string]map[string]float64{}, nil
		}
		return nil, err
	}
	var signals map[string]map[string]float64
	if err := json.Unmarshal(data, &signals); err != nil {
		return nil, err
	}
	return signals, nil
}

func (a *StoreInteractionAdapter) GetInteractions(ctx context.Context, userID string) (map[string]float64, error) {
	signals, err := a.loadSignals(ctx, a.KeyPrefix+":user:"+userID)
	if err != nil {
		return nil, err
	}
	return a.aggregate(signals), nil
}

func (a *StoreInteractionAdapter) GetItemUsers(ctx context.Context, itemID string) (map[string]float64, error) {
	signals, err := a.loadSignals(ctx, a.KeyPrefix+":item:"+itemID)
	if err != nil {
		return nil, err
	}
	return a.aggregate(signals), nil
}

func (a *StoreInteractionAdapter) GetUsersForItems(
	ctx context.Context,
	itemIDs []string,
	exclude string,
	limit int,
) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}

	seen := make(map[string]bool)
	out := make([]string, 0, limit)

	for _, itemID := range itemIDs {
		if len(out) >= limit {
			break
		}
		users, err := a.GetItemUsers(ctx, itemID)
		if err != nil {
			// 单个内容的倒排缺失/失败不影响其余候选
			continue
		}
		for userID := range users {
			if userID == exclude || seen[userID] {
				continue
			}
			seen[userID] = true
			out = append(out, userID)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

var _ core.InteractionStore = (*StoreInteractionAdapter)(nil)

// Interaction 是一条原始互动信号，RecordInteractions/测试数据构造用。
type Interaction struct {
	UserID string
	ItemID string
	Signal string // play / like / download / playlist_add
	Count  float64
}

// RecordInteractions 把一批互动信号写入正排与倒排两个索引，
// 并在 Store 支持有序集合时同步累积流行度 zset（popularityKey 非空时）。
// 测试与离线回灌共用此入口。
func (a *StoreInteractionAdapter) RecordInteractions(
	ctx context.Context,
	interactions []Interaction,
	popularityKey string,
) error {
	byUser := make(map[string]map[string]map[string]float64)
	byItem := make(map[string]map[string]map[string]float64)

	for _, in := range interactions {
		count := in.Count
		if count <= 0 {
			count = 1
		}
		if byUser[in.UserID] == nil {
			byUser[in.UserID] = make(map[string]map[string]float64)
		}
		if byUser[in.UserID][in.ItemID] == nil {
			byUser[in.UserID][in.ItemID] = make(map[string]float64)
		}
		byUser[in.UserID][in.ItemID][in.Signal] += count

		if byItem[in.ItemID] == nil {
			byItem[in.ItemID] = make(map[string]map[string]float64)
		}
		if byItem[in.ItemID][in.UserID] == nil {
			byItem[in.ItemID][in.UserID] = make(map[string]float64)
		}
		byItem[in.ItemID][in.UserID][in.Signal] += count
	}

	for userID, signals := range byUser {
		merged, err := a.mergeSignals(ctx, a.KeyPrefix+":user:"+userID, signals)
		if err != nil {
			return err
		}
		if err := a.saveSignals(ctx, a.KeyPrefix+":user:"+userID, merged); err != nil {
			return err
		}
	}
	for itemID, signals := range byItem {
		merged, err := a.mergeSignals(ctx, a.KeyPrefix+":item:"+itemID, signals)
		if err != nil {
			return err
		}
		if err := a.saveSignals(ctx, a.KeyPrefix+":item:"+itemID, merged); err != nil {
			return err
		}
	}

	if popularityKey != "" {
		if kv, ok := a.store.(core.KeyValueStore); ok {
			w := a.weights()
			for _, in := range interactions {
				weight, ok := w[in.Signal]
				if !ok {
					continue
				}
				count := in.Count
				if count <= 0 {
					count = 1
				}
				if err := kv.ZIncrBy(ctx, popularityKey, weight*count, in.ItemID); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (a *StoreInteractionAdapter) mergeSignals(
	ctx context.Context,
	key string,
	incoming map[string]map[string]float64,
) (map[string]map[string]float64, error) {
	existing, err := a.loadSignals(ctx, key)
	if err != nil {
		return nil, err
	}
	for id, counts := range incoming {
		if existing[id] == nil {
			existing[id] = make(map[string]float64)
		}
		for signal, count := range counts {
			existing[id][signal] += count
		}
	}
	return existing, nil
}

func (a *StoreInteractionAdapter) saveSignals(ctx context.Context, key string, signals map[string]map[string]float64) error {
	data, err := json.Marshal(signals)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, key, data)
}
