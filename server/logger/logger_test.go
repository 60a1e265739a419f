package logger_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutorlab/signaling/server/logger"
)

func TestLogger_disabledByDefault(t *testing.T) {
	var buf bytes.Buffer

	log := logger.New().WithWriter(&buf)

	_, err := log.Info("hello", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, buf.Len())
}

func TestLogger_levels(t *testing.T) {
	var buf bytes.Buffer

	log := logger.New().
		WithWriter(&buf).
		WithConfig(logger.LevelInfo)

	log.Debug("should not appear", nil)
	log.Info("should appear", nil)

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "should appear")
}

func TestLogger_namespaceConfig(t *testing.T) {
	var buf bytes.Buffer

	log := logger.New().
		WithWriter(&buf).
		WithConfig(logger.NewConfigMapFromString("ws:debug,router:error"))

	ws := log.WithNamespaceAppended("ws")
	router := log.WithNamespaceAppended("router")

	assert.True(t, ws.IsLevelEnabled(logger.LevelDebug))
	assert.False(t, router.IsLevelEnabled(logger.LevelInfo))
	assert.True(t, router.IsLevelEnabled(logger.LevelError))
}

func TestLogger_namespaceAppended(t *testing.T) {
	log := logger.New().
		WithNamespaceAppended("a").
		WithNamespaceAppended("b")

	assert.Equal(t, "a:b", log.Namespace())
}

func TestLogger_ctx(t *testing.T) {
	var buf bytes.Buffer

	log := logger.New().
		WithWriter(&buf).
		WithConfig(logger.LevelInfo).
		WithCtx(logger.Ctx{"room_id": "r1"})

	log.Info("joined", logger.Ctx{"user_id": "u1"})

	out := buf.String()
	assert.Contains(t, out, "room_id=r1")
	assert.Contains(t, out, "user_id=u1")
	assert.Contains(t, out, "joined")
}

func TestLogger_errorAnnotated(t *testing.T) {
	var buf bytes.Buffer

	log := logger.New().
		WithWriter(&buf).
		WithConfig(logger.LevelError)

	log.Error("oops", assert.AnError, nil)

	require.True(t, strings.Contains(buf.String(), "oops"))
	assert.Contains(t, buf.String(), assert.AnError.Error())
}

func TestConfigMap_lastSegmentFallback(t *testing.T) {
	cfg := logger.NewConfigMapFromString("ws:trace,:info")

	assert.Equal(t, logger.LevelTrace, cfg.LevelForNamespace("main:ws"))
	assert.Equal(t, logger.LevelInfo, cfg.LevelForNamespace("main:other"))
}

func TestLevelFromString(t *testing.T) {
	level, ok := logger.LevelFromString("warn")
	require.True(t, ok)
	assert.Equal(t, logger.LevelWarn, level)

	_, ok = logger.LevelFromString("bogus")
	assert.False(t, ok)
}
