package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewBuildsBothModes(t *testing.T) {
	t.Parallel()

	for _, development := range []bool{true, false} {
		logger, err := New(development)
		require.NoError(t, err)
		require.NotNil(t, logger)

		logger.Info("logger ready")
		_ = logger.Sync() //nolint:errcheck // best-effort flush
	}
}

func TestDevelopmentEnablesDebug(t *testing.T) {
	t.Parallel()

	dev, err := New(true)
	require.NoError(t, err)
	prod, err := New(false)
	require.NoError(t, err)

	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))
	assert.False(t, prod.Core().Enabled(zapcore.DebugLevel))
}
