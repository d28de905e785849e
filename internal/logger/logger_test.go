package logger_test

import (
	"bytes"
	"testing"

	"codeberg.org/mutker/tweakctl/internal/errors"
	"codeberg.org/mutker/tweakctl/internal/logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	level, ok := logger.ParseLevel("debug")
	assert.True(t, ok)
	assert.Equal(t, logger.DebugLevel, level)

	level, ok = logger.ParseLevel("warning")
	assert.True(t, ok)
	assert.Equal(t, logger.WarnLevel, level)

	_, ok = logger.ParseLevel("loud")
	assert.False(t, ok)
}

func TestErrorWithCode(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.WarnLevel) })

	var buf bytes.Buffer
	log := logger.New(&buf)

	log.ErrorWithCode(errors.New().New(errors.ErrSpawnFailed)).Msg("dispatch failed")

	out := buf.String()
	assert.Contains(t, out, `"error_code":"control_spawn_failed"`)
	assert.Contains(t, out, `"message":"dispatch failed"`)
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		logger.Nop().Debug().Str("path", "/sys").Msg("discarded")
	})
}
