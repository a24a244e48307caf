package logging_test

import (
	"testing"

	"github.com/jrsteele09/go-hr-admin/internal/logging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSetupLevels(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	logging.Setup("PROD", "warn")
	require.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	logging.Setup("DEV", "not-a-level")
	require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	logging.Setup("DEV", "")
	require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
