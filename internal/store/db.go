package store

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open opens the single shared SQLite handle used by every store.
// The pool is capped at one connection; SQLite allows one writer at a time.
func Open(path string, log *zap.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(time.Hour)

	log.Info("sqlite opened", zap.String("path", path))
	return db, nil
}

// gate runs a table's create-if-absent step once; every caller waits on it.
type gate struct {
	once sync.Once
	err  error
}

func (g *gate) await(init func() error) error {
	g.once.Do(func() { g.err = init() })
	return g.err
}
