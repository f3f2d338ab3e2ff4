// Package repository 定义数据访问层接口
package repository

import (
	"context"
)

// CategoryRow 类目表中的一行原始条目
// 数值边界在查询阶段已用 COALESCE 补齐默认值
type CategoryRow struct {
	ItemNumber        string
	ServiceSummary    string
	Provider          string
	Location          string
	StartAge          float64
	EndAge            float64
	StartTime         float64
	EndTime           float64
	GenderRestriction int64
}

// CategoryRepository 类目数据仓储接口
type CategoryRepository interface {
	// ListCategories 列出库中存在的类目 ID
	ListCategories(ctx context.Context) ([]string, error)

	// CategoryRows 读取指定类目的全部条目
	CategoryRows(ctx context.Context, categoryID string) ([]CategoryRow, error)
}
