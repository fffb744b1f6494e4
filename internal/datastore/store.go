package datastore

import (
	"os"
	"path/filepath"

	"github.com/mangocats/wkmp/internal/conf"
	"github.com/mangocats/wkmp/internal/wkmperrors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Store wraps a gorm.DB opened against either dialect named in
// conf.Settings.Database.Dialect ("sqlite" or "mysql"), and implements the
// Store interfaces required by internal/playback/engine and internal/params.
type Store struct {
	DB *gorm.DB
}

// Open dials the configured dialect, runs idempotent auto-migration for
// every model of §3, and returns a ready Store. Mirrors the teacher's
// SQLiteStore/MySQLStore split, collapsed into one constructor since the
// dialect is a config value rather than two separate struct types here.
func Open(settings *conf.Settings) (*Store, error) {
	gormLog := newGormLogger()

	var dialector gorm.Dialector
	switch settings.Database.Dialect {
	case "mysql":
		dialector = mysql.Open(settings.Database.DSN)
	case "sqlite", "":
		if dir := filepath.Dir(settings.Database.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, wkmperrors.New(err).
					Component("datastore").
					Category(wkmperrors.CategoryInfrastructure).
					Context("operation", "mkdir-db-dir").
					Context("dir", dir).
					Build()
			}
		}
		dialector = sqlite.Open(settings.Database.DSN)
	default:
		return nil, wkmperrors.New(wkmperrors.NewStd("unknown database dialect")).
			Component("datastore").
			Category(wkmperrors.CategoryConfig).
			Context("dialect", settings.Database.Dialect).
			Build()
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, dbError(err, "open")
	}

	if err := db.AutoMigrate(&File{}, &Passage{}, &Song{}, &QueueEntry{}, &ImportSession{}, &Setting{}); err != nil {
		return nil, dbError(err, "auto-migrate")
	}

	return &Store{DB: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return dbError(err, "close")
	}
	return sqlDB.Close()
}
