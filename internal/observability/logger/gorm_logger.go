package logger

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// SQLLoggerConfig controls which statements reach the log.
type SQLLoggerConfig struct {
	Level gormlogger.LogLevel
	// SlowQuery flags single statements. Bulk cycle writes get BulkSlowQuery.
	SlowQuery     time.Duration
	BulkSlowQuery time.Duration
}

// DefaultSQLLoggerConfig logs failures and slow statements only.
func DefaultSQLLoggerConfig() SQLLoggerConfig {
	return SQLLoggerConfig{
		Level:         gormlogger.Warn,
		SlowQuery:     200 * time.Millisecond,
		BulkSlowQuery: 2 * time.Second,
	}
}

// SQLLogger routes gorm output through zap. Bound parameters are never
// logged since they carry loan positions.
type SQLLogger struct {
	base *zap.Logger
	cfg  SQLLoggerConfig
}

// NewSQLLogger builds a gorm logger on top of base. A nil base falls back to
// the global logger at call time.
func NewSQLLogger(base *zap.Logger, cfg SQLLoggerConfig) *SQLLogger {
	return &SQLLogger{base: base, cfg: cfg}
}

func (l *SQLLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.cfg.Level = level
	return &next
}

func (l *SQLLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.cfg.Level >= gormlogger.Info {
		l.logger(ctx).Info(msg, zap.Int("args", len(data)))
	}
}

func (l *SQLLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.cfg.Level >= gormlogger.Warn {
		l.logger(ctx).Warn(msg, zap.Int("args", len(data)))
	}
}

func (l *SQLLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.cfg.Level >= gormlogger.Error {
		l.logger(ctx).Error(msg, zap.Int("args", len(data)))
	}
}

// Trace reports failed and slow statements. Not-found lookups are expected
// while resolving prior cycles and are dropped.
func (l *SQLLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.cfg.Level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound)

	if failed && l.cfg.Level >= gormlogger.Error {
		stmt := describe(fc)
		l.logger(ctx).Error("sql.failed", append(stmt.fields(elapsed), zap.Error(err))...)
		return
	}
	if l.cfg.Level < gormlogger.Warn {
		return
	}

	stmt := describe(fc)
	if limit := l.thresholdFor(stmt); limit > 0 && elapsed > limit {
		l.logger(ctx).Warn("sql.slow", append(stmt.fields(elapsed), zap.Duration("threshold", limit))...)
		return
	}
	if l.cfg.Level >= gormlogger.Info {
		l.logger(ctx).Debug("sql", stmt.fields(elapsed)...)
	}
}

// ParamsFilter keeps placeholders in the rendered SQL.
func (l *SQLLogger) ParamsFilter(_ context.Context, sql string, _ ...interface{}) (string, []interface{}) {
	return sql, nil
}

func (l *SQLLogger) thresholdFor(stmt statement) time.Duration {
	if stmt.bulk() && l.cfg.BulkSlowQuery > 0 {
		return l.cfg.BulkSlowQuery
	}
	return l.cfg.SlowQuery
}

func (l *SQLLogger) logger(ctx context.Context) *zap.Logger {
	base := l.base
	if base == nil {
		base = zap.L()
	}
	return WithContext(ctx, base).With(zap.String("component", "sql"))
}

type statement struct {
	verb  string
	table string
	rows  int64
	sql   string
}

var tablePattern = regexp.MustCompile(`(?i)\b(?:from|into|update)\s+["` + "`" + `]?([a-z_][a-z0-9_]*)`)

func describe(fc func() (string, int64)) statement {
	sql, rows := fc()
	sql = strings.TrimSpace(sql)
	stmt := statement{verb: "UNKNOWN", rows: rows, sql: sql}
	for _, tok := range strings.Fields(strings.ToUpper(sql)) {
		tok = strings.Trim(tok, "();")
		if tok == "WITH" {
			continue
		}
		switch tok {
		case "SELECT", "INSERT", "UPDATE", "DELETE":
			stmt.verb = tok
		}
		break
	}
	if m := tablePattern.FindStringSubmatch(sql); len(m) == 2 {
		stmt.table = strings.ToLower(m[1])
	}
	return stmt
}

// bulk reports writes against the per-loan cycle tables, which scale with
// the feed size rather than the request.
func (s statement) bulk() bool {
	if s.verb == "SELECT" || s.verb == "UNKNOWN" {
		return false
	}
	return s.table == "cycle_records" || s.table == "baseline_loans"
}

func (s statement) fields(elapsed time.Duration) []zap.Field {
	fields := []zap.Field{
		zap.String("operation", s.verb),
		zap.String("sql", s.sql),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if s.table != "" {
		fields = append(fields, zap.String("table", s.table))
	}
	if s.rows >= 0 {
		fields = append(fields, zap.Int64("rows_affected", s.rows))
	}
	return fields
}

var _ gormlogger.Interface = (*SQLLogger)(nil)
