package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurum/internal/audit"
	"aurum/internal/config"
	"aurum/internal/market"
	"aurum/internal/pkg/circuit"
	"aurum/internal/state"
	"aurum/internal/strategy"
	"aurum/internal/structure"
	httptransport "aurum/internal/transport/http"
	"aurum/internal/types"
)

type fakeSource struct {
	mu   sync.Mutex
	snap *market.Snapshot
	err  error
}

func (f *fakeSource) Fetch(ctx context.Context) (*market.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, f.err
}

func (f *fakeSource) set(snap *market.Snapshot, err error) {
	f.mu.Lock()
	f.snap = snap
	f.err = err
	f.mu.Unlock()
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingNotifier) SendText(text string) error {
	r.mu.Lock()
	r.msgs = append(r.msgs, text)
	r.mu.Unlock()
	return nil
}

func (r *recordingNotifier) containing(sub string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.msgs {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

// smallSnapshot is valid but too short for the engine, each tick lands on WAIT.
func smallSnapshot(candleTS int64) *market.Snapshot {
	mk := func(ts int64) market.Candle {
		return market.Candle{Time: ts, Open: 2000, High: 2000.4, Low: 1999.8, Close: 2000.2}
	}
	short := []market.Candle{mk(candleTS - 240), mk(candleTS - 180), mk(candleTS - 120), mk(candleTS - 60), mk(candleTS)}
	return &market.Snapshot{
		Tick: market.Tick{
			Bid: 2000.15, Ask: 2000.25, Point: 0.01, Digits: 2,
			FeedTimeMS: time.Now().UnixMilli(),
		},
		Short:  short,
		Medium: short,
		Hist:   market.History{PrevHigh: 2010, PrevLow: 1985},
	}
}

func newTestApp(t *testing.T, src market.Source) (*App, *recordingNotifier) {
	t.Helper()
	dir := t.TempDir()

	scfg := strategy.DefaultConfig()
	scfg.SessionStart, scfg.SessionEnd = 0, 24 // tests run at arbitrary hours
	engine, err := strategy.NewEngine(scfg, structure.Config{})
	require.NoError(t, err)

	auditStore, err := audit.NewStore(filepath.Join(dir, "audit.db"))
	require.NoError(t, err)
	stateStore := state.NewStore(filepath.Join(dir, "signal_state.json"), 4*time.Hour)
	rec := &recordingNotifier{}

	a := &App{
		cfg:     &config.Config{Loop: config.LoopConfig{PollSeconds: 1, BackoffSeconds: 5}},
		source:  src,
		stateSt: stateStore,
		auditSt: auditStore,
		judge:   nil, // advisory disabled, auto-approve
		notify:  rec,
		server:  httptransport.NewServer(":0", stateStore, auditStore),
		engine:  engine,
	}
	a.breaker = circuit.NewBreaker("bridge", 5, time.Minute)
	return a, rec
}

func TestTickEvaluatesOncePerCandle(t *testing.T) {
	base := time.Now().Add(-time.Minute).Unix()
	src := &fakeSource{snap: smallSnapshot(base)}
	a, _ := newTestApp(t, src)
	streak := 0

	a.tick(context.Background(), &streak)
	a.tick(context.Background(), &streak) // same candle, gated

	rows, err := a.auditSt.Recent(10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, "WAIT", rows[0].Signal)
	assert.Contains(t, rows[0].Reason, "warming up")

	src.set(smallSnapshot(base+60), nil)
	a.tick(context.Background(), &streak)

	rows, err = a.auditSt.Recent(10)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestTickBacksOffOnFetchFailure(t *testing.T) {
	src := &fakeSource{err: errors.New("bridge down")}
	a, _ := newTestApp(t, src)
	streak := 0

	wait := a.tick(context.Background(), &streak)
	assert.Equal(t, 5*time.Second, wait)

	rows, err := a.auditSt.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, rows, "failed fetch must not produce an audit row")
}

func TestTickResolvesPositionBeforeEvaluating(t *testing.T) {
	base := time.Now().Add(-time.Minute).Unix()
	snap := smallSnapshot(base)
	snap.Short[4].High = 2011 // candle sweeps through the target below
	src := &fakeSource{snap: snap}
	a, rec := newTestApp(t, src)
	streak := 0

	require.NoError(t, a.stateSt.Open(types.DirectionBuy, 2000, 1995, 2010, "test", base-3600))
	a.tick(context.Background(), &streak)

	st, _ := a.stateSt.Status(0, 0, 0, 0)
	assert.Equal(t, state.StatusNone, st, "resolved position must be cleared")
	assert.Eventually(t, func() bool { return rec.containing("TARGET_HIT") },
		2*time.Second, 10*time.Millisecond)
}

func TestGateAndOpenPersistsApprovedSignal(t *testing.T) {
	src := &fakeSource{}
	a, rec := newTestApp(t, src)

	c := types.SignalContract{
		ID:         "sig-1",
		Direction:  types.DirectionBuy,
		Reason:     "bullish order-block retest with trend",
		Setup:      &types.Setup{Entry: 2000.75, Stop: 1999.24, Target: 2003.77},
		CandleTime: 12345,
	}
	a.gateAndOpen(context.Background(), c)

	st, stored := a.stateSt.Status(2001, 2000, 2000.8, 2000.9)
	assert.Equal(t, state.StatusStillOpen, st)
	require.NotNil(t, stored)
	assert.Equal(t, "BUY", stored.Type)
	assert.Equal(t, 2000.75, stored.Entry)
	assert.Equal(t, int64(12345), stored.OpenedAtCandleTS)

	assert.Eventually(t, func() bool { return rec.containing("APPROVED") },
		2*time.Second, 10*time.Millisecond)
}

func TestGateAndOpenDropsContractWithoutSetup(t *testing.T) {
	src := &fakeSource{}
	a, _ := newTestApp(t, src)

	a.gateAndOpen(context.Background(), types.SignalContract{Direction: types.DirectionBuy})

	st, _ := a.stateSt.Status(0, 0, 0, 0)
	assert.Equal(t, state.StatusNone, st)
}

func TestTrackCriticalReasonsAlertsOnceOnStreak(t *testing.T) {
	src := &fakeSource{}
	a, rec := newTestApp(t, src)

	streak := 0
	critical := types.SignalContract{Reason: "critical feed lag 20.0s > 8.0s"}
	for i := 0; i < criticalStreakThreshold+3; i++ {
		a.trackCriticalReasons(critical, &streak)
	}
	assert.Eventually(t, func() bool { return rec.containing("PERSISTENT GUARD FAILURE") },
		2*time.Second, 10*time.Millisecond)

	// a healthy evaluation resets the streak
	a.trackCriticalReasons(types.SignalContract{Reason: "no qualifying order-block retest"}, &streak)
	assert.Zero(t, streak)

	rec.mu.Lock()
	alerts := 0
	for _, m := range rec.msgs {
		if strings.Contains(m, "PERSISTENT GUARD FAILURE") {
			alerts++
		}
	}
	rec.mu.Unlock()
	assert.Equal(t, 1, alerts)
}
