package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  log_level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, ":9985", cfg.App.HTTPAddr)
	assert.Equal(t, "http://localhost:5555/rpc", cfg.Bridge.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Bridge.Timeout())
	assert.Equal(t, 2, cfg.Loop.PollSeconds)
	assert.Equal(t, "data/signal_state.json", cfg.State.Path)
	assert.Equal(t, 4*time.Hour, cfg.State.Expiry())
	assert.Equal(t, "gpt-4o-mini", cfg.Advisory.Model)
	assert.Equal(t, "data/audit.db", cfg.Audit.Path)
}

func TestLoadStrategyOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
strategy:
  session_start: 8
  session_end: 20
  timezone: UTC
  max_spread: "0.5"
  reward_ratio: 3
`))
	require.NoError(t, err)

	eng := cfg.Strategy.Engine()
	assert.Equal(t, 8, eng.SessionStart)
	assert.Equal(t, 20, eng.SessionEnd)
	assert.Equal(t, "UTC", eng.Timezone)
	// weakly-typed input: quoted numbers still decode
	assert.Equal(t, 0.5, eng.MaxSpread)
	assert.Equal(t, 3.0, eng.RewardRatio)
	// untouched fields keep production defaults
	assert.Equal(t, 8.0, eng.MaxFeedLagSec)
	assert.Equal(t, 2.0, eng.SafeDistATRMult)
}

func TestLoadStructureOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
strategy:
  structure_window: 3
  structure_min_dev_atr: 0.4
  structure_epsilon_points: 3.5
`))
	require.NoError(t, err)

	st := cfg.Strategy.Structure()
	assert.Equal(t, 3, st.Window)
	assert.Equal(t, 0.4, st.MinDeviationFrac)
	assert.Equal(t, 3.5, st.EpsilonPoints)
}

func TestLoadRejectsBadInputs(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"advisory enabled without key", "advisory:\n  enabled: true\n", "api_key"},
		{"telegram without chat id", "notify:\n  telegram:\n    enabled: true\n    bot_token: x\n", "bot_token and chat_id"},
		{"inverted session", "strategy:\n  session_start: 20\n  session_end: 10\n", "session window invalid"},
		{"inverted safe distance", "strategy:\n  safe_dist_min: 5\n  safe_dist_max: 2\n", "safe_dist_min"},
		{"inverted stop band", "strategy:\n  min_stop_dist: 9\n  max_stop_dist: 2\n", "min_stop_dist"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	_, err = Load("  ")
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("AURUM_APP_LOG_LEVEL", "warn")
	cfg, err := Load(writeConfig(t, "app:\n  log_level: info\n"))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.App.LogLevel)
}
