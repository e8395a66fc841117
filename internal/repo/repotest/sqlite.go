// Package repotest 提供基于临时 sqlite 文件的 GormStore，给各层测试用
package repotest

import (
	"path/filepath"
	"testing"

	"needboard/internal/core/database"
	"needboard/internal/repo"
)

func NewStore(t testing.TB) *repo.GormStore {
	t.Helper()
	db, err := database.NewGorm(database.Opts{
		Driver:       "sqlite",
		DSN:          filepath.Join(t.TempDir(), "needboard.db") + "?_busy_timeout=5000",
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	st := repo.NewGormStore(db)
	if err := st.AutoMigrate(); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return st
}
