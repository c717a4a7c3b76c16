package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/perfboard/pkg/logger"
)

// sqlLogger adapts logger.Logger to gorm's logger interface. Failed
// statements are logged as errors, slow ones as warnings and everything
// else at debug.
type sqlLogger struct {
	log       logger.Logger
	level     gormlogger.LogLevel
	slowQuery time.Duration
}

func newSQLLogger(l logger.Logger, slow time.Duration) *sqlLogger {
	return &sqlLogger{log: l, level: gormlogger.Info, slowQuery: slow}
}

func (l *sqlLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *l
	c.level = level
	return &c
}

func (l *sqlLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		l.log.Debug(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *sqlLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.log.Warn(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *sqlLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		l.log.Error(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *sqlLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		l.log.Error(ctx, "sql failed", logger.Error(err), logger.String("sql", sql),
			logger.Int64("rows", rows), logger.Duration("elapsed", elapsed))
	case l.slowQuery > 0 && elapsed > l.slowQuery && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.log.Warn(ctx, "slow sql", logger.String("sql", sql),
			logger.Int64("rows", rows), logger.Duration("elapsed", elapsed))
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.log.Debug(ctx, "sql", logger.String("sql", sql),
			logger.Int64("rows", rows), logger.Duration("elapsed", elapsed))
	}
}
