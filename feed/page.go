package feed

import (
	"github.com/rushteam/feedkit/core"
)

// Page 是一页 Feed 结果。
type Page struct {
	// Items 本页内容，已按排序分和多样性规则排列
	Items []*core.Item `json:"items"`

	// Page 页码，从 1 开始
	Page int `json:"page"`

	// PageSize 页大小
	PageSize int `json:"page_size"`

	// Total 本次编排产出的内容总数（重排后），不是候选池总量
	Total int `json:"total"`
}
