package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kbukum/datapipe/logger"
)

// queryLogger routes gorm's log output to the datapipe logger. Failed and
// slow statements are always reported; other statements only at info.
type queryLogger struct {
	log   *logger.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func newQueryLogger(log *logger.Logger, cfg Config) gormlogger.Interface {
	slow, _ := time.ParseDuration(cfg.SlowQueryThreshold)
	return &queryLogger{
		log:   log.WithFields(logger.Fields("driver", cfg.Driver)),
		level: queryLogLevel(cfg.LogLevel),
		slow:  slow,
	}
}

func queryLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

func (q *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *q
	c.level = level
	return &c
}

func (q *queryLogger) Info(_ context.Context, msg string, data ...any) {
	if q.level >= gormlogger.Info {
		q.log.Info(fmt.Sprintf(msg, data...))
	}
}

func (q *queryLogger) Warn(_ context.Context, msg string, data ...any) {
	if q.level >= gormlogger.Warn {
		q.log.Warn(fmt.Sprintf(msg, data...))
	}
}

func (q *queryLogger) Error(_ context.Context, msg string, data ...any) {
	if q.level >= gormlogger.Error {
		q.log.Error(fmt.Sprintf(msg, data...))
	}
}

func (q *queryLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := logger.Fields("sql", sql, logger.FieldDuration, elapsed.Milliseconds(), logger.FieldCount, rows)

	// A missing record is an ordinary lookup result.
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		q.log.Error("statement failed", logger.MergeWithError(fields, err))
		return
	}
	if q.slow > 0 && elapsed > q.slow {
		q.log.Warn("slow statement", fields)
		return
	}
	if q.level >= gormlogger.Info {
		q.log.Debug("statement", fields)
	}
}
