package datastore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mangocats/wkmp/internal/logging"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultSlowQueryThreshold marks a query as slow for logging purposes.
const DefaultSlowQueryThreshold = 200 * time.Millisecond

// gormLogger adapts gorm's logger.Interface onto the service-wide slog
// logger, the same shape as the teacher's datastore GormLogger.
type gormLogger struct {
	log           *slog.Logger
	slowThreshold time.Duration
	level         logger.LogLevel
}

func newGormLogger() logger.Interface {
	return &gormLogger{
		log:           logging.ForService("datastore"),
		slowThreshold: DefaultSlowQueryThreshold,
		level:         logger.Warn,
	}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *gormLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= logger.Info {
		l.log.InfoContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= logger.Warn {
		l.log.WarnContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= logger.Error {
		l.log.ErrorContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && err != gorm.ErrRecordNotFound:
		l.log.ErrorContext(ctx, "query failed", "error", err, "sql", sql, "duration", elapsed, "rows", rows)
	case elapsed > l.slowThreshold && l.slowThreshold != 0:
		l.log.WarnContext(ctx, "slow query", "sql", sql, "duration", elapsed, "rows", rows)
	case l.level >= logger.Info:
		l.log.DebugContext(ctx, "query", "sql", sql, "duration", elapsed, "rows", rows)
	}
}
