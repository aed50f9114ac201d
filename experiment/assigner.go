package experiment

import (
	"context"
	"fmt"
	"hash/crc32"
	"strconv"

	"github.com/rushteam/feedkit/core"
)

// DefaultAssignmentTTL 分桶缓存的默认有效期（30 天），单位秒。
const DefaultAssignmentTTL = 30 * 24 * 3600

// AssignVariant 计算实验分桶：对 "subjectID:experiment" 做 CRC32 后取模。
// 纯函数，同样的输入永远得到同样的桶号，不依赖任何外部状态。
// variantCount <= 0 时返回 0。
func AssignVariant(subjectID, experiment string, variantCount int) int {
	if variantCount <= 0 {
		return 0
	}
	sum := crc32.ChecksumIEEE([]byte(subjectID + ":" + experiment))
	return int(sum % uint32(variantCount))
}

// Assigner 负责把用户分配到某个实验的变体上。
// 分桶本身是确定性的哈希，Cache 只是记忆化：即使缓存读写失败，
// 重新计算得到的桶号也和缓存里的完全一致，所以缓存层永远不会改变分桶结果。
type Assigner struct {
	// Experiment 实验名称，如 "feed_ranking"
	Experiment string
	// Variants 变体名列表，桶号是该列表的下标
	Variants []string
	// Cache 可选的分桶记录存储（用于运营侧查询谁在哪个桶）
	Cache core.Store
	// TTL 缓存有效期（秒），0 取 DefaultAssignmentTTL
	TTL int
}

// NewAssigner 创建分桶器，variants 至少一个。
func NewAssigner(experiment string, variants []string) *Assigner {
	return &Assigner{
		Experiment: experiment,
		Variants:   variants,
	}
}

// Assign 返回 subjectID 在本实验中的桶号。
func (a *Assigner) Assign(ctx context.Context, subjectID string) int {
	idx := AssignVariant(subjectID, a.Experiment, len(a.Variants))
	a.remember(ctx, subjectID, idx)
	return idx
}

// AssignName 返回 subjectID 所在变体的名称，没有变体时返回空串。
// 实现 rank.VariantResolver。
func (a *Assigner) AssignName(ctx context.Context, subjectID string) string {
	if len(a.Variants) == 0 {
		return ""
	}
	return a.Variants[a.Assign(ctx, subjectID)]
}

// remember 把分桶结果写入缓存。写失败直接忽略：
// 下次重算的结果和这次一样，缓存只影响可观测性，不影响正确性。
func (a *Assigner) remember(ctx context.Context, subjectID string, idx int) {
	if a.Cache == nil {
		return
	}
	ttl := a.TTL
	if ttl <= 0 {
		ttl = DefaultAssignmentTTL
	}
	key := fmt.Sprintf("exp:%s:%s", a.Experiment, subjectID)
	_ = a.Cache.Set(ctx, key, []byte(strconv.Itoa(idx)), ttl)
}
