package store

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/feedkit/core"
)

// TestMemoryStoreGetSet 基本读写与 NotFound
func TestMemoryStoreGetSet(t *testing.T) {
	m := NewMemoryStore()
	defer m.Close()
	ctx := context.Background()

	if _, err := m.Get(ctx, "missing"); !core.IsStoreNotFound(err) {
		t.Errorf("不存在的 key 应返回 NotFound, got %v", err)
	}

	if err := m.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set 失败: %v", err)
	}
	got, err := m.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Errorf("Get = %q, %v; want v, nil", got, err)
	}

	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}
	if _, err := m.Get(ctx, "k"); !core.IsStoreNotFound(err) {
		t.Errorf("删除后应返回 NotFound, got %v", err)
	}
}

// TestMemoryStoreTTL 过期的 key 读不到
func TestMemoryStoreTTL(t *testing.T) {
	m := NewMemoryStore()
	defer m.Close()
	ctx := context.Background()

	if err := m.Set(ctx, "ephemeral", []byte("v"), 1); err != nil {
		t.Fatalf("Set 失败: %v", err)
	}
	if _, err := m.Get(ctx, "ephemeral"); err != nil {
		t.Fatalf("未过期时应可读: %v", err)
	}

	time.Sleep(1100 * time.Millisecond)
	if _, err := m.Get(ctx, "ephemeral"); !core.IsStoreNotFound(err) {
		t.Errorf("过期后应返回 NotFound, got %v", err)
	}
}

// TestMemoryStoreBatch 批量读写，过期与缺失的 key 跳过
func TestMemoryStoreBatch(t *testing.T) {
	m := NewMemoryStore()
	defer m.Close()
	ctx := context.Background()

	if err := m.BatchSet(ctx, map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
	}); err != nil {
		t.Fatalf("BatchSet 失败: %v", err)
	}

	got, err := m.BatchGet(ctx, []string{"a", "b", "missing"})
	if err != nil {
		t.Fatalf("BatchGet 失败: %v", err)
	}
	if len(got) != 2 || string(got["a"]) != "1" || string(got["b"]) != "2" {
		t.Errorf("BatchGet = %v", got)
	}
}

// TestMemoryStoreZSet 有序集合：降序、同分按 member 升序
func TestMemoryStoreZSet(t *testing.T) {
	m := NewMemoryStore()
	defer m.Close()
	ctx := context.Background()

	_ = m.ZAdd(ctx, "rank", 10, "c")
	_ = m.ZAdd(ctx, "rank", 30, "a")
	_ = m.ZAdd(ctx, "rank", 20, "b")
	_ = m.ZAdd(ctx, "rank", 20, "aa") // 与 b 同分

	got, err := m.ZRange(ctx, "rank", 0, -1)
	if err != nil {
		t.Fatalf("ZRange 失败: %v", err)
	}
	want := []string{"a", "aa", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("ZRange 长度 = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ZRange[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	// 区间截取
	top2, _ := m.ZRange(ctx, "rank", 0, 1)
	if len(top2) != 2 || top2[0] != "a" || top2[1] != "aa" {
		t.Errorf("ZRange(0,1) = %v, want [a aa]", top2)
	}
}

// TestMemoryStoreZIncrBy 增量累积与 ZScore
func TestMemoryStoreZIncrBy(t *testing.T) {
	m := NewMemoryStore()
	defer m.Close()
	ctx := context.Background()

	_ = m.ZIncrBy(ctx, "pop", 1.5, "song:1")
	_ = m.ZIncrBy(ctx, "pop", 2.5, "song:1")
	_ = m.ZIncrBy(ctx, "pop", 1.0, "song:2")

	score, err := m.ZScore(ctx, "pop", "song:1")
	if err != nil || score != 4.0 {
		t.Errorf("ZScore(song:1) = %v, %v; want 4.0", score, err)
	}

	got, _ := m.ZRange(ctx, "pop", 0, -1)
	if len(got) != 2 || got[0] != "song:1" {
		t.Errorf("ZRange = %v, want song:1 居首", got)
	}

	if _, err := m.ZScore(ctx, "pop", "missing"); !core.IsStoreNotFound(err) {
		t.Errorf("缺失 member 应返回 NotFound, got %v", err)
	}
}

// TestMemoryStoreHash 哈希字段读写
func TestMemoryStoreHash(t *testing.T) {
	m := NewMemoryStore()
	defer m.Close()
	ctx := context.Background()

	_ = m.HSet(ctx, "user:1", "name", []byte("alice"))
	_ = m.HSet(ctx, "user:1", "region", []byte("US"))

	got, err := m.HGet(ctx, "user:1", "name")
	if err != nil || string(got) != "alice" {
		t.Errorf("HGet = %q, %v", got, err)
	}

	all, err := m.HGetAll(ctx, "user:1")
	if err != nil || len(all) != 2 {
		t.Errorf("HGetAll = %v, %v", all, err)
	}

	if _, err := m.HGet(ctx, "user:1", "missing"); !core.IsStoreNotFound(err) {
		t.Errorf("缺失字段应返回 NotFound, got %v", err)
	}
}
