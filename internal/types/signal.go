package types

import "aurum/internal/structure"

// Direction 信号方向。WAIT 表示无事可做，SKIP 表示有形态但条件不合格。
type Direction string

const (
	DirectionWait Direction = "WAIT"
	DirectionSkip Direction = "SKIP"
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// Directional reports whether the signal proposes an actual trade.
func (d Direction) Directional() bool {
	return d == DirectionBuy || d == DirectionSell
}

// Setup is the proposed bracket order for a directional signal.
type Setup struct {
	Entry  float64 `json:"entry"`
	Stop   float64 `json:"stop"`
	Target float64 `json:"target"`
}

// Metrics carries the supporting numbers for one evaluation. They feed the
// advisory judge and the audit log, never control flow downstream.
type Metrics struct {
	Trend     string  `json:"trend"`
	ATR       float64 `json:"atr"`
	RSI       float64 `json:"rsi"`
	ADX       float64 `json:"adx"`
	Structure string  `json:"structure"`
	// Pivots 结构串对应的原始 pivot 列表（位置/标签/腿长），供 judge 与审计。
	Pivots         []structure.Pivot `json:"pivots,omitempty"`
	Spread         float64           `json:"spread"`
	FeedLagRaw     float64           `json:"feed_lag_raw"`
	FeedLagClamped float64           `json:"feed_lag_clamped"`
	SafeDistance   float64           `json:"safe_distance"`
	LevelDistance  float64           `json:"level_distance"`
	StopLevel      float64           `json:"stop_level"`
	FreezeLevel    float64           `json:"freeze_level"`
	Warnings       []string          `json:"warnings,omitempty"`

	// Extra 留给 judge 的开放扩展字段（不参与规则判断）。
	Extra map[string]any `json:"extra,omitempty"`
}

// SignalContract 规则引擎的单次评估输出，构造后不可变。
type SignalContract struct {
	ID         string    `json:"id"`
	Direction  Direction `json:"direction"`
	Reason     string    `json:"reason"`
	Setup      *Setup    `json:"setup,omitempty"`
	Metrics    Metrics   `json:"metrics"`
	CandleTime int64     `json:"candle_time"`
}
