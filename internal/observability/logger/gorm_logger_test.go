package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func observed(level gormlogger.LogLevel) (*SQLLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	cfg := DefaultSQLLoggerConfig()
	cfg.Level = level
	return NewSQLLogger(zap.New(core), cfg), logs
}

func stmt(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestSQLLoggerReportsFailures(t *testing.T) {
	l, logs := observed(gormlogger.Warn)

	l.Trace(context.Background(), time.Now(), stmt(`UPDATE "cycle_records" SET "total_interest_due"=$1`, 0), errors.New("boom"))

	entries := logs.FilterMessage("sql.failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "UPDATE", fields["operation"])
	assert.Equal(t, "cycle_records", fields["table"])
}

func TestSQLLoggerDropsNotFound(t *testing.T) {
	l, logs := observed(gormlogger.Warn)

	l.Trace(context.Background(), time.Now(), stmt(`SELECT * FROM "cycle_records"`, 0), gormlogger.ErrRecordNotFound)

	assert.Zero(t, logs.Len())
}

func TestSQLLoggerBulkThreshold(t *testing.T) {
	l, logs := observed(gormlogger.Warn)
	begin := time.Now().Add(-500 * time.Millisecond)

	// Bulk cycle writes tolerate more latency than point reads.
	l.Trace(context.Background(), begin, stmt(`INSERT INTO "cycle_records" ("loan_id") VALUES ($1)`, 300), nil)
	assert.Zero(t, logs.Len())

	l.Trace(context.Background(), begin, stmt(`SELECT * FROM "deals" WHERE id = $1`, 1), nil)
	entries := logs.FilterMessage("sql.slow").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "deals", entries[0].ContextMap()["table"])
}

func TestSQLLoggerSilent(t *testing.T) {
	l, logs := observed(gormlogger.Warn)
	silent := l.LogMode(gormlogger.Silent)

	silent.Trace(context.Background(), time.Now(), stmt("DELETE FROM deals", 1), errors.New("boom"))
	assert.Zero(t, logs.Len())
}

func TestDescribeSkipsCTE(t *testing.T) {
	s := describe(stmt("WITH latest AS (SELECT 1) SELECT * FROM monthly_cycle_statuses", 1))
	assert.Equal(t, "SELECT", s.verb)
	assert.False(t, s.bulk())
}
