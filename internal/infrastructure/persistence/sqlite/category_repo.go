// Package sqlite 提供基于 SQLite 的类目数据访问实现
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"mbs-coding-api/internal/config"
	"mbs-coding-api/internal/domain/repository"
	"mbs-coding-api/pkg/errors"
	"mbs-coding-api/pkg/logger"
)

// CategoryRepo SQLite 类目仓储
type CategoryRepo struct {
	db *sql.DB
}

// NewCategoryRepo 打开数据库并返回类目仓储
func NewCategoryRepo(cfg config.SQLiteConfig) (*CategoryRepo, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	logger.Info(context.Background(), "SQLite 数据库连接成功", "path", cfg.Path)
	return &CategoryRepo{db: db}, nil
}

// Close 关闭数据库连接
func (r *CategoryRepo) Close() error {
	return r.db.Close()
}

// HealthCheck 检查数据库连接
func (r *CategoryRepo) HealthCheck(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListCategories 扫描 schema 中的类目表，返回类目 ID 列表
func (r *CategoryRepo) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE 'category_%'`)
	if err != nil {
		return nil, fmt.Errorf("failed to list category tables: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		// 排除序列表和元数据表
		if name == "sqlite_sequence" || strings.HasSuffix(name, "_meta") {
			continue
		}
		categories = append(categories, strings.TrimPrefix(name, "category_"))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category tables: %w", err)
	}
	return categories, nil
}

// CategoryRows 读取指定类目的全部条目
// 不同类目的表结构不同，在查询中统一列名与默认边界
func (r *CategoryRepo) CategoryRows(ctx context.Context, categoryID string) ([]repository.CategoryRow, error) {
	tableName, err := r.tableFor(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	var query string
	switch categoryID {
	case "1":
		query = fmt.Sprintf(`SELECT
			item_number,
			COALESCE(service_summary, ''),
			COALESCE(provider, ''),
			COALESCE(location, ''),
			COALESCE(start_age, 0),
			COALESCE(end_age, 200),
			COALESCE(start_time, 0),
			COALESCE(end_time, 10000),
			COALESCE(restrictions_gender_not_allowed, 0)
			FROM %s`, tableName)
	case "3":
		query = fmt.Sprintf(`SELECT
			item_num,
			TRIM(
				COALESCE(therapy_type || ' ', '') ||
				COALESCE(treatment_course || ' ', '') ||
				COALESCE(patient_eligibility, '')
			),
			COALESCE(provider, ''),
			COALESCE(treatment_location, ''),
			COALESCE(start_age, 0),
			COALESCE(end_age, 200),
			COALESCE(start_duration, 0),
			COALESCE(end_duration, 10000),
			0
			FROM %s`, tableName)
	default:
		return nil, errors.New(errors.CodeCategoryNotFound,
			fmt.Sprintf("category %s is not supported", categoryID))
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query category %s: %w", categoryID, err)
	}
	defer rows.Close()

	var result []repository.CategoryRow
	for rows.Next() {
		var row repository.CategoryRow
		if err := rows.Scan(
			&row.ItemNumber,
			&row.ServiceSummary,
			&row.Provider,
			&row.Location,
			&row.StartAge,
			&row.EndAge,
			&row.StartTime,
			&row.EndTime,
			&row.GenderRestriction,
		); err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category %s: %w", categoryID, err)
	}

	logger.Debug(ctx, "类目数据读取完成", "category_id", categoryID, "rows", len(result))
	return result, nil
}

// tableFor 校验类目表存在并返回表名
func (r *CategoryRepo) tableFor(ctx context.Context, categoryID string) (string, error) {
	tableName := "category_" + categoryID
	var name string
	err := r.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, tableName).Scan(&name)
	if err == sql.ErrNoRows {
		return "", errors.New(errors.CodeCategoryNotFound,
			fmt.Sprintf("category table %s does not exist", tableName))
	}
	if err != nil {
		return "", fmt.Errorf("failed to check category table: %w", err)
	}
	return tableName, nil
}
