package audit

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurum/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := newTestStore(t)

	contracts := []types.SignalContract{
		{ID: "a", Direction: types.DirectionWait, Reason: "warming up", CandleTime: 100},
		{ID: "b", Direction: types.DirectionSkip, Reason: "spread 0.50 exceeds cap 0.35",
			Metrics: types.Metrics{Spread: 0.50}, CandleTime: 160},
		{ID: "c", Direction: types.DirectionBuy, Reason: "bullish order-block retest with trend",
			Metrics: types.Metrics{
				Trend: "STRONG_BULLISH", ATR: 0.60, RSI: 68.4,
				SafeDistance: 1.19, LevelDistance: 9.25,
				Warnings: []string{"moderate feed lag 5.0s"},
			}, CandleTime: 220},
	}
	for _, c := range contracts {
		require.NoError(t, s.Record(c, 2000.7))
	}

	rows, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// newest first
	assert.Equal(t, "c", rows[0].SignalID)
	assert.Equal(t, "BUY", rows[0].Signal)
	assert.Equal(t, 0.60, rows[0].ATR)
	assert.Equal(t, "moderate feed lag 5.0s", rows[0].Warnings)
	assert.Contains(t, string(rows[0].Metrics), "STRONG_BULLISH")
	assert.Equal(t, "a", rows[2].SignalID)
	assert.Equal(t, 2000.7, rows[2].PriceClose)

	limited, err := s.Recent(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestNewStoreRejectsEmptyPath(t *testing.T) {
	_, err := NewStore("  ")
	assert.Error(t, err)
}
