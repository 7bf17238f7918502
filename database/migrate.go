package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// goose 的方言和文件系统是包级全局状态
var gooseMu sync.Mutex

// gooseDialect 数据库类型到 goose 方言
func gooseDialect(dbType string) (string, error) {
	switch dbType {
	case "sqlite", "sqlite3", "":
		return "sqlite3", nil
	case "postgres", "postgresql":
		return "postgres", nil
	default:
		return "", fmt.Errorf("no migration dialect for database type %q", dbType)
	}
}

func prepareGoose(dbType string) error {
	dialect, err := gooseDialect(dbType)
	if err != nil {
		return err
	}
	goose.SetBaseFS(migrationFiles)
	goose.SetLogger(goose.NopLogger())
	return goose.SetDialect(dialect)
}

// Migrate 执行内嵌的 SQL 迁移
func Migrate(ctx context.Context, db *sql.DB, dbType string) error {
	if db == nil {
		return nil
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := prepareGoose(dbType); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// MigrationVersion 返回当前迁移版本
func MigrationVersion(db *sql.DB, dbType string) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := prepareGoose(dbType); err != nil {
		return 0, err
	}
	return goose.GetDBVersion(db)
}
