package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/idmap-backend/internal/platform/logger"
)

// SQLiteDSN turns a file path into a DSN with foreign keys enforced.
// ":memory:" maps to a shared-cache in-memory database.
func SQLiteDSN(path string) string {
	if path == "" || path == ":memory:" {
		return "file:idmap?mode=memory&cache=shared&_foreign_keys=on&_busy_timeout=5000"
	}
	if strings.Contains(path, "?") {
		return path
	}
	return "file:" + path + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"
}

func NewSQLiteService(logg *logger.Logger, path string) (*Service, error) {
	serviceLog := logg.With("service", "SQLiteService")
	db, err := OpenSQLite(SQLiteDSN(path), gormConfig())
	if err != nil {
		return nil, err
	}
	serviceLog.Info("Opened SQLite database", "path", path)
	return &Service{db: db, log: serviceLog, driver: "sqlite"}, nil
}

// OpenSQLite opens dsn with a single connection; SQLite allows one writer.
func OpenSQLite(dsn string, cfg *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	return db, nil
}
