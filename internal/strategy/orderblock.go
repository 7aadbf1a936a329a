package strategy

import "aurum/internal/market"

// 中文说明：
// quality order block：一根反转bar紧跟一根实体超过 MinBodyATR*ATR 的
// 反向动能bar。retest 判定区分「回踩」与「击穿」，并带反追价约束。

type zone struct {
	Top    float64
	Bottom float64
	Index  int
}

// findOrderBlock scans backward from the freshest completed bars for the most
// recent qualifying block. The confirmation bar must itself be completed
// before the retest bar, hence the scan ends at len-3.
func findOrderBlock(candles []market.Candle, atr float64, bullish bool, cfg Config) (zone, bool) {
	n := len(candles)
	if n < 3 || atr <= 0 {
		return zone{}, false
	}
	minBody := cfg.MinBodyATR * atr
	stop := n - 3 - cfg.OrderBlockLookback
	if stop < 0 {
		stop = 0
	}
	for j := n - 3; j >= stop; j-- {
		block, impulse := candles[j], candles[j+1]
		if bullish {
			if block.Close < block.Open && impulse.Close > impulse.Open && impulse.Close-impulse.Open > minBody {
				return zone{Top: block.High, Bottom: block.Low, Index: j}, true
			}
		} else {
			if block.Close > block.Open && impulse.Close < impulse.Open && impulse.Open-impulse.Close > minBody {
				return zone{Top: block.High, Bottom: block.Low, Index: j}, true
			}
		}
	}
	return zone{}, false
}

// retested checks the latest completed bar against the block zone:
// touch into the zone, no close beyond the far edge past the sweep buffer,
// close back outside on the entry side, and not already chasing away from it.
func retested(last market.Candle, z zone, atr float64, bullish bool, cfg Config) bool {
	buf := cfg.SweepBufferATR * atr
	chase := cfg.MaxChaseATR * atr
	if bullish {
		touched := last.Low <= z.Top
		held := last.Close >= z.Bottom-buf
		rejected := last.Close > z.Top
		near := last.Close-z.Top <= chase
		return touched && held && rejected && near
	}
	touched := last.High >= z.Bottom
	held := last.Close <= z.Top+buf
	rejected := last.Close < z.Bottom
	near := z.Bottom-last.Close <= chase
	return touched && held && rejected && near
}
