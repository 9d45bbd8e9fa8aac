package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func performRequest(t *testing.T, target string, handler gin.HandlerFunc) *observer.ObservedLogs {
	t.Helper()
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(Logger(zap.New(core)))
	r.GET("/ping", handler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", target, nil))
	return logs
}

func TestLoggerIncludesQueryAndSize(t *testing.T) {
	logs := performRequest(t, "/ping?q=1", func(c *gin.Context) {
		c.String(200, "pong")
	})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.InfoLevel, entry.Level)

	fields := entry.ContextMap()
	assert.Equal(t, "/ping?q=1", fields["path"])
	assert.Equal(t, int64(200), fields["status"])
	assert.Equal(t, int64(len("pong")), fields["size"])
}

func TestLoggerServerErrorLogsAtErrorLevel(t *testing.T) {
	logs := performRequest(t, "/ping", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
		c.String(500, "boom")
	})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Contains(t, entry.ContextMap()["errors"], assert.AnError.Error())
}
