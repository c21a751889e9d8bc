package storage

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// slowQuery is the trace threshold for the warn path. The poller appends a
// sample once per second; a statement holding the single sqlite writer for
// half that budget is close to making ticks skip, so it is worth a warning
// even when the configured level would otherwise hide queries.
const slowQuery = 500 * time.Millisecond

// queryLogger routes GORM's query trace through the application zap.Logger
// instead of GORM's own stdout writer. It deliberately implements only
// what this module's storage layer needs from gormlogger.Interface: errors
// always, slow queries at warn, everything else only at Info level.
type queryLogger struct {
	log   *zap.Logger
	level gormlogger.LogLevel
}

// newQueryLogger returns a gormlogger.Interface backed by log. A zero
// level defaults to Warn.
func newQueryLogger(log *zap.Logger, level gormlogger.LogLevel) gormlogger.Interface {
	if level == 0 {
		level = gormlogger.Warn
	}
	return &queryLogger{log: log.Named("query"), level: level}
}

func (l *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.level = level
	return &next
}

func (l *queryLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.log.Sugar().Infof(msg, args...)
	}
}

func (l *queryLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.log.Sugar().Warnf(msg, args...)
	}
}

func (l *queryLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.log.Sugar().Errorf(msg, args...)
	}
}

// Trace logs one executed statement. The sql/rows closure is only invoked
// on the branches that will actually emit, so the steady-state tick path
// pays nothing for it. gorm.ErrRecordNotFound is not an error here: the
// repositories translate it to ErrNotFound and callers branch on that.
func (l *queryLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.log.Error("query failed",
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
	case elapsed >= slowQuery:
		sql, _ := fc()
		l.log.Warn("slow query",
			zap.String("sql", sql),
			zap.Duration("elapsed", elapsed))
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.log.Debug("query",
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed))
	}
}
