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

func newObservedGormLogger(level gormlogger.LogLevel) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level), recorded
}

func traceQuery(rows int64) func() (string, int64) {
	return func() (string, int64) {
		return "SELECT id FROM orders WHERE status = $1", rows
	}
}

func TestGormLogger_LogMode(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Info)

	quieter := gl.LogMode(gormlogger.Error)

	clone, ok := quieter.(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Error, clone.level)
	// the original keeps its level
	assert.Equal(t, gormlogger.Info, gl.level)
}

func TestGormLogger_Levels(t *testing.T) {
	t.Run("info passes through with formatting", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Info)

		gl.Info(context.Background(), "replicas: %d", 3)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "replicas: 3", logs[0].Message)
	})

	t.Run("warn carries its level", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Warn)

		gl.Warn(context.Background(), "connection pool at %d", 25)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
	})

	t.Run("error carries its level", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Error)

		gl.Error(context.Background(), "prepare failed")

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
	})

	t.Run("silent suppresses everything", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Silent)

		gl.Info(context.Background(), "dropped")
		gl.Warn(context.Background(), "dropped")
		gl.Error(context.Background(), "dropped")

		assert.Empty(t, recorded.All())
	})
}

func TestGormLogger_Trace(t *testing.T) {
	t.Run("failed statement logs the error and the sql", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Error)

		gl.Trace(context.Background(), time.Now(), traceQuery(0), errors.New("deadlock detected"))

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "query failed", logs[0].Message)
		fields := logs[0].ContextMap()
		assert.Equal(t, "SELECT id FROM orders WHERE status = $1", fields["sql"])
	})

	t.Run("record not found stays quiet", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Error)

		gl.Trace(context.Background(), time.Now(), traceQuery(0), gormlogger.ErrRecordNotFound)

		assert.Empty(t, recorded.All())
	})

	t.Run("statement over the threshold warns", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Warn)

		gl.Trace(context.Background(), time.Now().Add(-time.Second), traceQuery(10), nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "slow query", logs[0].Message)
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
	})

	t.Run("ordinary statement traces at debug", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Info)

		gl.Trace(context.Background(), time.Now(), traceQuery(5), nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "query", logs[0].Message)
		assert.Equal(t, zapcore.DebugLevel, logs[0].Level)
	})

	t.Run("silent level traces nothing", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Silent)

		gl.Trace(context.Background(), time.Now(), traceQuery(5), nil)

		assert.Empty(t, recorded.All())
	})

	t.Run("request id rides along when the context carries one", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Info)
		ctx := context.WithValue(context.Background(), RequestIDKey, "req-42")

		gl.Trace(ctx, time.Now(), traceQuery(1), nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "req-42", logs[0].ContextMap()["request_id"])
	})
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"verbose", gormlogger.Warn},
		{"", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.level))
		})
	}
}
