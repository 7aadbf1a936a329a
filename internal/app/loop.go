package app

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"aurum/internal/advisory"
	"aurum/internal/logger"
	"aurum/internal/market"
	"aurum/internal/notifier"
	"aurum/internal/state"
	"aurum/internal/types"
)

// 中文说明：
// 主循环。单线程顺序轮询：取快照 → 先清算已挂的仓位 → 新K线才评估 →
// 裁判放行才落状态、推通知。单次 tick 的任何失败都不允许杀死进程。

// criticalReasonMarkers flags WAIT reasons that deserve an operator alert
// when they persist, as opposed to ordinary no-setup ticks.
var criticalReasonMarkers = []string{"critical feed lag", "clock divergence", "feed timestamp missing"}

const criticalStreakThreshold = 5

// Run drives the poll loop and the status HTTP server until ctx ends.
func (a *App) Run(ctx context.Context) error {
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return a.server.Run(gctx) })
	group.Go(func() error { return a.pollLoop(gctx) })
	return group.Wait()
}

func (a *App) pollLoop(ctx context.Context) error {
	poll := time.Duration(a.cfg.Loop.PollSeconds) * time.Second
	backoff := time.Duration(a.cfg.Loop.BackoffSeconds) * time.Second
	logger.Infof("loop: polling every %s (backoff %s)", poll, backoff)

	criticalStreak := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		wait := a.tick(ctx, &criticalStreak)
		if wait <= 0 {
			wait = poll
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// tick runs one full poll iteration and returns the desired sleep before the
// next one. Recovers from programming errors so a single bad tick cannot
// terminate the loop.
func (a *App) tick(ctx context.Context, criticalStreak *int) (wait time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("loop: tick panic recovered: %v", r)
			wait = time.Duration(a.cfg.Loop.BackoffSeconds) * time.Second
		}
	}()

	if !a.breaker.Allow() {
		return time.Duration(a.cfg.Loop.BackoffSeconds) * time.Second
	}
	snap, err := a.source.Fetch(ctx)
	if err != nil || snap == nil {
		a.breaker.RecordFailure()
		logger.Warnf("loop: market fetch failed: %v", err)
		return time.Duration(a.cfg.Loop.BackoffSeconds) * time.Second
	}
	a.breaker.RecordSuccess()

	last := snap.LastShort()

	// 1. resolve any outstanding position before anything else
	status := a.reconcile(snap, last)

	// 2. candle gate: evaluate once per completed short-period candle
	if last.Time == a.lastCandleTS {
		return 0
	}
	a.lastCandleTS = last.Time

	contract := a.ruleEngine().Evaluate(snap)
	a.server.SetLastSignal(contract)
	if err := a.auditSt.Record(contract, last.Close); err != nil {
		logger.Warnf("loop: audit write failed: %v", err)
	}
	a.trackCriticalReasons(contract, criticalStreak)

	if !contract.Direction.Directional() {
		logger.Debugf("loop: %s (%s)", contract.Direction, contract.Reason)
		return 0
	}
	if status == state.StatusStillOpen {
		logger.Infof("loop: %s signal suppressed, position still open", contract.Direction)
		return 0
	}
	a.gateAndOpen(ctx, contract)
	return 0
}

// reconcile closes out a resolved position and reports the post-check status.
func (a *App) reconcile(snap *market.Snapshot, last market.Candle) state.Status {
	status, rec := a.stateSt.Status(last.High, last.Low, snap.Tick.Bid, snap.Tick.Ask)
	if !status.Resolved() {
		return status
	}
	a.push(notifier.PositionResolved(status, rec))
	if err := a.stateSt.Close(); err != nil {
		logger.Errorf("loop: state close failed: %v", err)
		a.push(notifier.CriticalAlert("STATE WRITE FAILURE", "closing resolved position failed: "+err.Error()))
		return state.StatusStillOpen
	}
	logger.Infof("loop: position resolved %s, state cleared", status)
	return state.StatusNone
}

// gateAndOpen runs the advisory gate and, on approval, persists the position.
func (a *App) gateAndOpen(ctx context.Context, c types.SignalContract) {
	verdict := a.askJudge(ctx, c)
	if !verdict.Approved() {
		logger.Infof("loop: judge rejected %s: %s", c.Direction, verdict.Reason)
		return
	}
	if c.Setup == nil {
		logger.Errorf("loop: directional contract without setup, dropping")
		return
	}
	err := a.stateSt.Open(c.Direction, c.Setup.Entry, c.Setup.Stop, c.Setup.Target, verdict.Reason, c.CandleTime)
	if err != nil {
		// not confirmed open: without a persisted stop the signal is dead
		logger.Errorf("loop: state open failed, signal dropped: %v", err)
		a.push(notifier.CriticalAlert("STATE WRITE FAILURE", "opening position failed: "+err.Error()))
		return
	}
	a.push(notifier.SignalApproved(c, verdict))
	logger.Infof("loop: %s opened entry=%.2f sl=%.2f tp=%.2f", c.Direction, c.Setup.Entry, c.Setup.Stop, c.Setup.Target)
}

func (a *App) askJudge(ctx context.Context, c types.SignalContract) advisory.Verdict {
	if a.judge == nil {
		return advisory.Verdict{Decision: "APPROVE", Reason: "advisory disabled"}
	}
	return a.judge.Decide(ctx, c.Direction, c.Reason, c.Metrics)
}

// trackCriticalReasons alerts operators when a critical guard failure
// persists across consecutive evaluations, instead of spamming each tick.
func (a *App) trackCriticalReasons(c types.SignalContract, streak *int) {
	critical := false
	for _, marker := range criticalReasonMarkers {
		if strings.Contains(c.Reason, marker) {
			critical = true
			break
		}
	}
	if !critical {
		*streak = 0
		return
	}
	*streak++
	if *streak == criticalStreakThreshold {
		a.push(notifier.CriticalAlert("PERSISTENT GUARD FAILURE", c.Reason))
	}
}

// push sends a notification without letting delivery failure touch the loop.
func (a *App) push(m notifier.Message) {
	go func() {
		if err := a.notify.SendText(m.Render()); err != nil {
			logger.Warnf("loop: notification failed: %v", err)
		}
	}()
}
