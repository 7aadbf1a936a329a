package strategy

// Config 规则引擎的全部阈值。来源迭代里这些数值反复摇摆过
// （35 points / $0.50 / $0.35 ...），这里统一按价格单位配置，不写死。
type Config struct {
	// 会话窗口：按K线自身时间戳换算到 Timezone 后的小时区间 [Start, End)。
	// Start=0 且 End=24 表示不限制。
	SessionStart int
	SessionEnd   int
	Timezone     string

	// 喂价新鲜度（秒）。
	MaxFeedLagSec      float64
	ModerateLagSec     float64
	FutureFatalSec     float64
	FutureWarnSec      float64

	// 点差上限（价格单位）与券商距离异常上限（价格单位）。
	MaxSpread         float64
	MaxBrokerDistance float64

	// 预热长度。
	MinShortBars  int
	MinMediumBars int

	// 趋势与指标周期。
	FastEMA    int
	SlowEMA    int
	ATRPeriod  int
	RSIPeriod  int
	ADXPeriod  int
	MinADX     float64
	RequireADX bool

	// RSI 过热过滤。
	RSILongMax  float64
	RSIShortMin float64

	// order block 识别与 retest 判定（均以 ATR 为尺度）。
	OrderBlockLookback int
	MinBodyATR         float64
	SweepBufferATR     float64
	MaxChaseATR        float64

	// 距离关键位的自适应安全边际（价格单位钳制区间）。
	SafeDistATRMult float64
	SafeDistMin     float64
	SafeDistMax     float64

	// 括号单构造。
	MinStopDist       float64
	MaxStopDist       float64
	StopBufferPoints  float64
	RewardRatio       float64
	MaxTargetDist     float64
	MaxSpreadStopFrac float64
}

// DefaultConfig 生产默认值（XAUUSD 口径）。
func DefaultConfig() Config {
	return Config{
		SessionStart: 14,
		SessionEnd:   23,
		Timezone:     "Asia/Jakarta",

		MaxFeedLagSec:  8,
		ModerateLagSec: 3,
		FutureFatalSec: 10,
		FutureWarnSec:  2,

		MaxSpread:         0.35,
		MaxBrokerDistance: 5.0,

		MinShortBars:  60,
		MinMediumBars: 210,

		FastEMA:    50,
		SlowEMA:    200,
		ATRPeriod:  14,
		RSIPeriod:  14,
		ADXPeriod:  14,
		MinADX:     20,
		RequireADX: false,

		RSILongMax:  70,
		RSIShortMin: 30,

		OrderBlockLookback: 20,
		MinBodyATR:         0.8,
		SweepBufferATR:     0.1,
		MaxChaseATR:        0.2,

		SafeDistATRMult: 2.0,
		SafeDistMin:     1.0,
		SafeDistMax:     4.0,

		MinStopDist:       0.5,
		MaxStopDist:       8.0,
		StopBufferPoints:  10,
		RewardRatio:       2.0,
		MaxTargetDist:     20.0,
		MaxSpreadStopFrac: 0.15,
	}
}
