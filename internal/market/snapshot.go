package market

import "fmt"

// Tick 终端桥返回的最新报价与品种元数据。stop/freeze 为券商原始 points。
type Tick struct {
	Bid         float64 `json:"bid"`
	Ask         float64 `json:"ask"`
	Spread      float64 `json:"spread"`
	Point       float64 `json:"point"`
	Digits      int     `json:"digits"`
	StopLevel   float64 `json:"stop_level"`
	FreezeLevel float64 `json:"freeze_level"`
	// FeedTimeSec/FeedTimeMS 数据源自己的时钟。毫秒字段优先。
	FeedTimeSec int64 `json:"feed_time_s"`
	FeedTimeMS  int64 `json:"feed_time_ms"`
}

// HasFeedTime reports whether the source stamped the tick at all.
func (t Tick) HasFeedTime() bool {
	return t.FeedTimeMS > 0 || t.FeedTimeSec > 0
}

// FeedUnixMilli returns the feed timestamp in milliseconds, preferring the
// millisecond field when both are present.
func (t Tick) FeedUnixMilli() int64 {
	if t.FeedTimeMS > 0 {
		return t.FeedTimeMS
	}
	return t.FeedTimeSec * 1000
}

// SpreadPrice spread 以价格单位表示（跨券商 digits 约定可比）。
func (t Tick) SpreadPrice() float64 {
	return t.Ask - t.Bid
}

// History 上一交易日极值，作为关键支撑/阻力。
type History struct {
	PrevHigh float64 `json:"prior_period_high"`
	PrevLow  float64 `json:"prior_period_low"`
}

// Snapshot 一次行情快照：tick + 两个时间级别的K线窗口 + 历史极值。
type Snapshot struct {
	Tick   Tick     `json:"tick"`
	Short  []Candle `json:"short_series"`
	Medium []Candle `json:"medium_series"`
	Hist   History  `json:"history"`
}

// Validate checks the hard invariants of a snapshot. A snapshot failing this
// must short-circuit evaluation, never feed the rule engine.
func (s *Snapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("snapshot is nil")
	}
	if s.Tick.Bid <= 0 || s.Tick.Ask <= 0 {
		return fmt.Errorf("tick has non-positive price (bid=%.5f ask=%.5f)", s.Tick.Bid, s.Tick.Ask)
	}
	if s.Tick.Point <= 0 {
		return fmt.Errorf("tick point must be positive, got %.8f", s.Tick.Point)
	}
	if s.Tick.Digits < 0 {
		return fmt.Errorf("tick digits must be >= 0, got %d", s.Tick.Digits)
	}
	if len(s.Short) == 0 || len(s.Medium) == 0 {
		return fmt.Errorf("candle series empty (short=%d medium=%d)", len(s.Short), len(s.Medium))
	}
	return nil
}

// LastShort returns the most recent completed short-period candle.
func (s *Snapshot) LastShort() Candle {
	return s.Short[len(s.Short)-1]
}
