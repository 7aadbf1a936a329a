package structure

import (
	"fmt"
	"math"
	"strings"

	"aurum/internal/market"
)

// 中文说明：
// 结构提取器：从中周期K线中找出交替的摆动高低点（pivot），
// 标注 HH/LH/HL/LL，并渲染成紧凑的结构串，供趋势过滤与 judge 参考。
// outside bar 压缩视作潜在 liquidity sweep，参数均可调，非严格保证。

// Kind pivot 类型。
type Kind int

const (
	KindHigh Kind = iota
	KindLow
)

func (k Kind) String() string {
	if k == KindHigh {
		return "H"
	}
	return "L"
}

// Pivot 一个已确认的摆动极值点。
type Pivot struct {
	Position  int     `json:"position"`
	Kind      Kind    `json:"kind"`
	Price     float64 `json:"price"`
	Label     string  `json:"label"`
	LegSigned float64 `json:"leg_signed"`
	IsOutside bool    `json:"is_outside"`
}

// Config 提取参数。零值字段回落到默认。
type Config struct {
	// Window 对称窗口半径（每侧的bar数）。
	Window int
	// EpsilonPoints 候选判定容差，单位为品种 point 数。
	EpsilonPoints float64
	// MinDeviationFrac 交替确认的最小位移，占 ATR 的比例。
	MinDeviationFrac float64
	// MaxPivots 渲染序列串时保留的最近 pivot 数。
	MaxPivots int
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = 5
	}
	if c.EpsilonPoints <= 0 {
		c.EpsilonPoints = 2
	}
	if c.MinDeviationFrac <= 0 {
		c.MinDeviationFrac = 0.5
	}
	if c.MaxPivots <= 0 {
		c.MaxPivots = 5
	}
	return c
}

// Result 提取输出。OK=false 时 Status 给出原因，Pivots 为空。
type Result struct {
	Pivots   []Pivot `json:"pivots"`
	Sequence string  `json:"sequence"`
	OK       bool    `json:"ok"`
	Status   string  `json:"status"`
}

// Extract confirms swing pivots over the series. point scales the candidate
// epsilon, atr scales the minimum-deviation threshold for alternation.
func Extract(candles []market.Candle, point, atr float64, cfg Config) Result {
	cfg = cfg.withDefaults()
	minBars := 2*cfg.Window + 10
	if len(candles) < minBars {
		return Result{Status: fmt.Sprintf("insufficient data: %d bars, need %d", len(candles), minBars)}
	}
	if point <= 0 {
		point = 0.01
	}
	// degenerate volatility must not poison the deviation threshold
	if atr <= 0 || math.IsNaN(atr) || math.IsInf(atr, 0) {
		atr = 0
	}
	eps := cfg.EpsilonPoints * point
	minDev := cfg.MinDeviationFrac * atr
	if minDev < 1.0 {
		minDev = 1.0
	}

	var pivots []Pivot
	w := cfg.Window
	for i := w; i < len(candles)-w; i++ {
		hi, lo := windowExtremes(candles, i, w)
		// 两个条件独立判定（if/if 而非 if/else）：平坦或长针bar可能同时
		// 触发高低两种候选，各自走一遍链式更新。
		if candles[i].High >= hi-eps {
			pivots = confirm(pivots, Pivot{Position: i, Kind: KindHigh, Price: candles[i].High}, minDev)
		}
		if candles[i].Low <= lo+eps {
			pivots = confirm(pivots, Pivot{Position: i, Kind: KindLow, Price: candles[i].Low}, minDev)
		}
	}

	label(pivots, eps)
	return Result{
		Pivots:   tail(pivots, cfg.MaxPivots),
		Sequence: render(tail(pivots, cfg.MaxPivots)),
		OK:       true,
		Status:   "ok",
	}
}

func windowExtremes(candles []market.Candle, i, w int) (hi, lo float64) {
	hi = math.Inf(-1)
	lo = math.Inf(1)
	for j := i - w; j <= i+w; j++ {
		if candles[j].High > hi {
			hi = candles[j].High
		}
		if candles[j].Low < lo {
			lo = candles[j].Low
		}
	}
	return hi, lo
}

// confirm folds a new candidate into the confirmed chain. Three rules, in
// order: outside-bar compression, same-kind extension, alternation.
// Candidates matching none are noise.
func confirm(pivots []Pivot, cand Pivot, minDev float64) []Pivot {
	n := len(pivots)
	if n == 0 {
		return append(pivots, cand)
	}
	last := pivots[n-1]

	// outside-bar compression: the same bar produced the opposite-kind pivot.
	// Only compress when last itself alternated against the pivot before it,
	// so the sweep overwrites a freshly confirmed swing, not an extension.
	if cand.Position == last.Position && cand.Kind != last.Kind {
		if n >= 2 && pivots[n-2].Kind != last.Kind {
			cand.IsOutside = true
			cand.LegSigned = cand.Price - pivots[n-2].Price
			pivots[n-1] = cand
		}
		return pivots
	}

	// same-kind extension: the swing has not reversed, it stretched
	if cand.Kind == last.Kind {
		extended := (cand.Kind == KindHigh && cand.Price > last.Price) ||
			(cand.Kind == KindLow && cand.Price < last.Price)
		if extended {
			if n >= 2 {
				cand.LegSigned = cand.Price - pivots[n-2].Price
			}
			pivots[n-1] = cand
		}
		return pivots
	}

	// alternation: opposite kind with enough displacement to count
	if math.Abs(cand.Price-last.Price) >= minDev {
		cand.LegSigned = cand.Price - last.Price
		return append(pivots, cand)
	}
	return pivots
}

// label tags each pivot against the previous confirmed pivot of the same kind.
func label(pivots []Pivot, eps float64) {
	for i := range pivots {
		prev := -1
		for j := i - 1; j >= 0; j-- {
			if pivots[j].Kind == pivots[i].Kind {
				prev = j
				break
			}
		}
		if prev < 0 {
			pivots[i].Label = pivots[i].Kind.String()
			continue
		}
		diff := pivots[i].Price - pivots[prev].Price
		switch {
		case math.Abs(diff) <= eps:
			pivots[i].Label = "Eq" + pivots[i].Kind.String()
		case pivots[i].Kind == KindHigh && diff > 0:
			pivots[i].Label = "HH"
		case pivots[i].Kind == KindHigh:
			pivots[i].Label = "LH"
		case diff > 0:
			pivots[i].Label = "HL"
		default:
			pivots[i].Label = "LL"
		}
	}
}

func tail(pivots []Pivot, n int) []Pivot {
	if len(pivots) <= n {
		return pivots
	}
	return pivots[len(pivots)-n:]
}

func render(pivots []Pivot) string {
	if len(pivots) == 0 {
		return ""
	}
	parts := make([]string, len(pivots))
	for i, p := range pivots {
		parts[i] = fmt.Sprintf("%s(%s)", p.Kind, p.Label)
	}
	return strings.Join(parts, "->")
}
