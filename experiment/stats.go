package experiment

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/feedkit/core"
)

// 实验事件类型。
const (
	EventAssignment = "assignment"
	EventView       = "view"
	EventClick      = "click"
	EventEngagement = "engagement"
)

// Tracker 在内存中累计各变体的实验指标，并异步上报到 Sink。
// 并发安全；Sink 上报失败不影响内存计数。
type Tracker struct {
	// Experiment 实验名称
	Experiment string
	// Sink 可选的持久化出口，nil 时只留内存
	Sink core.StatsSink

	mu    sync.Mutex
	stats map[string]*VariantStats
}

// NewTracker 创建指标跟踪器。
func NewTracker(experiment string, sink core.StatsSink) *Tracker {
	if sink == nil {
		sink = core.NopStatsSink{}
	}
	return &Tracker{
		Experiment: experiment,
		Sink:       sink,
		stats:      make(map[string]*VariantStats),
	}
}

// Record 记录一次实验事件。未知事件类型直接忽略。
func (t *Tracker) Record(ctx context.Context, variant, event string) {
	t.mu.Lock()
	s := t.variant(variant)
	switch event {
	case EventAssignment:
		s.Assignments++
	case EventView:
		s.Views++
	case EventClick:
		s.Clicks++
	case EventEngagement:
		s.Engagements++
	default:
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	// 持久化失败只丢这一次上报，内存里的计数还在
	_ = t.Sink.IncrementExperimentCounter(ctx, t.Experiment, variant, event)
}

// RecordSession 记录一次会话时长，用增量法维护平均值。
func (t *Tracker) RecordSession(_ context.Context, variant string, seconds float64) {
	if seconds < 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.variant(variant)
	s.Sessions++
	s.AvgSessionSecs += (seconds - s.AvgSessionSecs) / float64(s.Sessions)
}

// Snapshot 返回当前指标的拷贝，变体名字典序排列。
func (t *Tracker) Snapshot() []VariantStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.stats))
	for name := range t.stats {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]VariantStats, 0, len(names))
	for _, name := range names {
		out = append(out, *t.stats[name])
	}
	return out
}

// variant 取出或创建变体计数，调用方需持锁。
func (t *Tracker) variant(name string) *VariantStats {
	s, ok := t.stats[name]
	if !ok {
		s = &VariantStats{Name: name}
		t.stats[name] = s
	}
	return s
}

// StoreSink 把实验计数写进 core.Store，实现 core.StatsSink。
// 读-改-写方式更新 JSON 计数，实验指标只求最终一致，
// 偶发的并发覆盖丢一两个计数可以接受。
type StoreSink struct {
	Store core.Store
	// KeyPrefix 默认 "exp:stats"
	KeyPrefix string
}

func (s *StoreSink) IncrementExperimentCounter(
	ctx context.Context,
	experiment, variant, event string,
) error {
	if s.Store == nil {
		return nil
	}

	prefix := s.KeyPrefix
	if prefix == "" {
		prefix = "exp:stats"
	}
	key := fmt.Sprintf("%s:%s:%s", prefix, experiment, variant)

	counts := make(map[string]int64)
	if raw, err := s.Store.Get(ctx, key); err == nil {
		_ = json.Unmarshal(raw, &counts)
	}
	counts[event]++

	data, err := json.Marshal(counts)
	if err != nil {
		return err
	}
	return s.Store.Set(ctx, key, data)
}

var _ core.StatsSink = (*StoreSink)(nil)
