package strategy

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"aurum/internal/market"
	"aurum/internal/structure"
	"aurum/internal/types"
)

// 中文说明：
// 规则引擎。Evaluate 是纯计算（唯一外部依赖是读墙钟算喂价延迟），
// 任何坏输入都落到 WAIT + 原因，从不 panic / 抛错。
// 守卫链按固定顺序短路，顺序本身是行为契约的一部分。

type Engine struct {
	cfg  Config
	scfg structure.Config
	loc  *time.Location
	now  func() time.Time
}

func NewEngine(cfg Config, scfg structure.Config) (*Engine, error) {
	tz := cfg.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("loading strategy timezone %q: %w", tz, err)
	}
	return &Engine{cfg: cfg, scfg: scfg, loc: loc, now: time.Now}, nil
}

type eval struct {
	metrics    types.Metrics
	candleTime int64
}

func (ev *eval) contract(dir types.Direction, reason string, setup *types.Setup) types.SignalContract {
	return types.SignalContract{
		ID:         uuid.NewString(),
		Direction:  dir,
		Reason:     reason,
		Setup:      setup,
		Metrics:    ev.metrics,
		CandleTime: ev.candleTime,
	}
}

func (ev *eval) wait(format string, args ...any) types.SignalContract {
	return ev.contract(types.DirectionWait, fmt.Sprintf(format, args...), nil)
}

func (ev *eval) skip(format string, args ...any) types.SignalContract {
	return ev.contract(types.DirectionSkip, fmt.Sprintf(format, args...), nil)
}

func (ev *eval) warn(format string, args ...any) {
	ev.metrics.Warnings = append(ev.metrics.Warnings, fmt.Sprintf(format, args...))
}

// Evaluate runs the full guard chain and setup detection over one snapshot.
func (e *Engine) Evaluate(snap *market.Snapshot) types.SignalContract {
	ev := &eval{metrics: types.Metrics{Extra: map[string]any{}}}

	// 1+2. snapshot presence & price sanity
	if err := snap.Validate(); err != nil {
		return ev.wait("invalid snapshot: %v", err)
	}
	tick := snap.Tick
	last := snap.LastShort()
	ev.candleTime = last.Time
	ev.metrics.Spread = tick.SpreadPrice()
	ev.metrics.StopLevel = tick.StopLevel * tick.Point
	ev.metrics.FreezeLevel = tick.FreezeLevel * tick.Point
	ev.metrics.Extra["bid"] = tick.Bid
	ev.metrics.Extra["ask"] = tick.Ask
	ev.metrics.Extra["close"] = last.Close
	ev.metrics.Extra["pdh"] = snap.Hist.PrevHigh
	ev.metrics.Extra["pdl"] = snap.Hist.PrevLow

	// 2b. 历史极值缺失时关键位过滤完全失效，必须整体拒绝而不是放行。
	if snap.Hist.PrevHigh <= 0 || snap.Hist.PrevLow <= 0 {
		return ev.wait("prior-period levels missing (pdh=%.2f pdl=%.2f)",
			snap.Hist.PrevHigh, snap.Hist.PrevLow)
	}

	// 3. session window, from the candle's own timestamp. The machine clock
	// is NOT trusted here so that backtests replay identically.
	if !(e.cfg.SessionStart == 0 && e.cfg.SessionEnd == 24) {
		hour := time.Unix(last.Time, 0).In(e.loc).Hour()
		if hour < e.cfg.SessionStart || hour >= e.cfg.SessionEnd {
			return ev.wait("outside session window (%02d:00 %s)", hour, e.loc)
		}
	}

	// 4. feed staleness / clock drift, dual-clock check
	if !tick.HasFeedTime() {
		return ev.wait("feed timestamp missing, cannot verify freshness")
	}
	lag := float64(e.now().UnixMilli()-tick.FeedUnixMilli()) / 1000.0
	ev.metrics.FeedLagRaw = lag
	ev.metrics.FeedLagClamped = clamp(lag, 0, e.cfg.MaxFeedLagSec)
	switch {
	case lag < -e.cfg.FutureFatalSec:
		return ev.wait("severe clock divergence: feed is %.1fs in the future", -lag)
	case lag < -e.cfg.FutureWarnSec:
		ev.warn("clock drift: feed %.1fs ahead of local clock", -lag)
	case lag > e.cfg.MaxFeedLagSec:
		return ev.wait("critical feed lag %.1fs > %.1fs", lag, e.cfg.MaxFeedLagSec)
	case lag > e.cfg.ModerateLagSec:
		ev.warn("moderate feed lag %.1fs", lag)
	}

	// 5. spread ceiling, in price units
	if ev.metrics.Spread > e.cfg.MaxSpread {
		return ev.skip("spread %.2f exceeds cap %.2f", ev.metrics.Spread, e.cfg.MaxSpread)
	}

	// 6. broker distance sanity (erratic stop/freeze levels during news)
	if ev.metrics.StopLevel > e.cfg.MaxBrokerDistance || ev.metrics.FreezeLevel > e.cfg.MaxBrokerDistance {
		return ev.skip("abnormal broker distances (stop=%.2f freeze=%.2f cap=%.2f)",
			ev.metrics.StopLevel, ev.metrics.FreezeLevel, e.cfg.MaxBrokerDistance)
	}

	// 7. warm-up
	if len(snap.Short) < e.cfg.MinShortBars || len(snap.Medium) < e.cfg.MinMediumBars {
		return ev.wait("warming up: short=%d/%d medium=%d/%d bars",
			len(snap.Short), e.cfg.MinShortBars, len(snap.Medium), e.cfg.MinMediumBars)
	}
	ind := computeIndicators(snap.Short, snap.Medium, e.cfg)
	if !valid(ind.EMAFast) || !valid(ind.EMASlow) || !valid(ind.ATR) {
		return ev.wait("indicators not fully defined yet")
	}
	ev.metrics.ATR = ind.ATR
	ev.metrics.RSI = ind.RSI
	ev.metrics.ADX = ind.ADX

	// structure context from the medium series, scaled by its own volatility
	st := structure.Extract(snap.Medium, tick.Point, ind.ATRMedium, e.scfg)
	if st.OK {
		ev.metrics.Structure = st.Sequence
		ev.metrics.Pivots = st.Pivots
	} else {
		ev.warn("structure: %s", st.Status)
	}

	trend := e.classifyTrend(snap.Medium, ind, ev)
	ev.metrics.Trend = trend
	if trend == trendNeutral {
		return ev.wait("no strong trend (close=%.2f fast=%.2f slow=%.2f)",
			snap.Medium[len(snap.Medium)-1].Close, ind.EMAFast, ind.EMASlow)
	}

	bullish := trend == trendBullish
	z, found := findOrderBlock(snap.Short, ind.ATR, bullish, e.cfg)
	if !found || !retested(last, z, ind.ATR, bullish, e.cfg) {
		return ev.wait("no qualifying order-block retest")
	}
	if bullish && ind.RSI >= e.cfg.RSILongMax {
		return ev.skip("RSI %.1f overbought (>= %.1f)", ind.RSI, e.cfg.RSILongMax)
	}
	if !bullish && ind.RSI <= e.cfg.RSIShortMin {
		return ev.skip("RSI %.1f oversold (<= %.1f)", ind.RSI, e.cfg.RSIShortMin)
	}

	return e.buildBracket(snap, ind, z, bullish, ev)
}

const (
	trendBullish = "STRONG_BULLISH"
	trendBearish = "STRONG_BEARISH"
	trendNeutral = "NEUTRAL"
)

// classifyTrend applies the EMA stack plus optional ADX strengthening.
// Missing ADX is a soft warning unless the config insists on it.
func (e *Engine) classifyTrend(medium []market.Candle, ind indicatorSet, ev *eval) string {
	lastClose := medium[len(medium)-1].Close
	trend := trendNeutral
	if lastClose > ind.EMAFast && ind.EMAFast > ind.EMASlow {
		trend = trendBullish
	} else if lastClose < ind.EMAFast && ind.EMAFast < ind.EMASlow {
		trend = trendBearish
	}
	if trend == trendNeutral {
		return trend
	}
	if !valid(ind.ADX) {
		ev.warn("ADX unavailable")
		if e.cfg.RequireADX {
			return trendNeutral
		}
		return trend
	}
	if ind.ADX < e.cfg.MinADX {
		return trendNeutral
	}
	if trend == trendBullish && ind.PlusDI <= ind.MinusDI {
		return trendNeutral
	}
	if trend == trendBearish && ind.MinusDI <= ind.PlusDI {
		return trendNeutral
	}
	return trend
}

// buildBracket runs the distance-to-level filter and constructs entry/stop/
// target. A structurally-required stop wider than the cap rejects the setup
// outright, it is never silently widened.
func (e *Engine) buildBracket(snap *market.Snapshot, ind indicatorSet, z zone, bullish bool, ev *eval) types.SignalContract {
	tick := snap.Tick
	margin := clamp(e.cfg.SafeDistATRMult*ind.ATR, e.cfg.SafeDistMin, e.cfg.SafeDistMax)
	ev.metrics.SafeDistance = margin

	var entry, dist float64
	var level string
	if bullish {
		entry = tick.Ask
		dist = snap.Hist.PrevHigh - entry
		level = "PDH"
	} else {
		entry = tick.Bid
		dist = entry - snap.Hist.PrevLow
		level = "PDL"
	}
	ev.metrics.LevelDistance = dist
	if dist > 0 && dist < margin {
		return ev.skip("near %s: %.2f below safety margin %.2f", level, dist, margin)
	}

	buf := e.cfg.SweepBufferATR * ind.ATR
	var stopDist float64
	if bullish {
		stopDist = entry - (z.Bottom - buf)
	} else {
		stopDist = (z.Top + buf) - entry
	}
	if stopDist > e.cfg.MaxStopDist {
		return ev.skip("structural stop %.2f exceeds cap %.2f, setup does not fit risk profile",
			stopDist, e.cfg.MaxStopDist)
	}
	minStop := e.cfg.MinStopDist
	if floor := (tick.StopLevel + tick.Spread + e.cfg.StopBufferPoints) * tick.Point; floor > minStop {
		minStop = floor
	}
	if stopDist < minStop {
		stopDist = minStop
	}
	if ev.metrics.Spread > e.cfg.MaxSpreadStopFrac*stopDist {
		return ev.skip("spread %.2f consumes over %.0f%% of stop distance %.2f",
			ev.metrics.Spread, e.cfg.MaxSpreadStopFrac*100, stopDist)
	}
	targetDist := stopDist * e.cfg.RewardRatio
	if targetDist > e.cfg.MaxTargetDist {
		targetDist = e.cfg.MaxTargetDist
	}

	var stop, target float64
	dir := types.DirectionBuy
	reason := "bullish order-block retest with trend"
	if bullish {
		stop = entry - stopDist
		target = entry + targetDist
	} else {
		stop = entry + stopDist
		target = entry - targetDist
		dir = types.DirectionSell
		reason = "bearish order-block retest with trend"
	}
	setup := &types.Setup{
		Entry:  roundPrice(entry, tick.Digits),
		Stop:   roundPrice(stop, tick.Digits),
		Target: roundPrice(target, tick.Digits),
	}
	return ev.contract(dir, reason, setup)
}
