package strategy

import (
	"math"

	"github.com/markcheno/go-talib"

	"aurum/internal/market"
)

// indicatorSet 规则引擎一次评估用到的全部指标最新值。
// talib 输出的暖机前缀是 0/NaN，这里统一清洗后取最后有效值。
type indicatorSet struct {
	EMAFast float64
	EMASlow float64
	// ATR 短周期（守卫与括号单尺度），ATRMedium 中周期（结构提取尺度）。
	ATR       float64
	ATRMedium float64
	RSI       float64
	ADX       float64
	PlusDI    float64
	MinusDI   float64
}

// computeIndicators 各指标按自身 lookback 先检查长度：talib 在
// period 超过序列长度时会越界 panic，不能指望 warm-up 配置一定够长。
func computeIndicators(short, medium []market.Candle, cfg Config) indicatorSet {
	mc := market.Closes(medium)
	mh, ml := market.Highs(medium), market.Lows(medium)
	sh, sl, sc := market.Highs(short), market.Lows(short), market.Closes(short)

	var out indicatorSet
	if len(mc) > cfg.SlowEMA {
		out.EMAFast = lastValid(talib.Ema(mc, cfg.FastEMA))
		out.EMASlow = lastValid(talib.Ema(mc, cfg.SlowEMA))
	}
	if len(sc) > cfg.ATRPeriod {
		out.ATR = lastValid(talib.Atr(sh, sl, sc, cfg.ATRPeriod))
	}
	if len(mc) > cfg.ATRPeriod {
		out.ATRMedium = lastValid(talib.Atr(mh, ml, mc, cfg.ATRPeriod))
	}
	if len(sc) > cfg.RSIPeriod {
		out.RSI = lastValid(talib.Rsi(sc, cfg.RSIPeriod))
	}
	// ADX needs roughly twice its period before the first defined sample
	if len(mc) > 2*cfg.ADXPeriod {
		out.ADX = lastValid(talib.Adx(mh, ml, mc, cfg.ADXPeriod))
		out.PlusDI = lastValid(talib.PlusDI(mh, ml, mc, cfg.ADXPeriod))
		out.MinusDI = lastValid(talib.MinusDI(mh, ml, mc, cfg.ADXPeriod))
	}
	return out
}

// lastValid returns the most recent finite, non-zero sample of a series.
func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		v := series[i]
		if v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v
		}
	}
	return 0
}

func valid(v float64) bool {
	return v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
