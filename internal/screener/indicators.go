package screener

import (
	"errors"
	"fmt"
)

// Indicator parameters of the screening system.
const (
	emaShort    = 10
	emaLong     = 20
	emaMid      = 50
	emaLongTerm = 200

	volumeAvgWindow  = 20
	yearlyHighWindow = 252

	volumeBreakoutMultiplier = 1.5
	breakoutGainThreshold    = 0.03
	breakoutLookback         = 5
	highDistanceThreshold    = 15.0
	pullbackThreshold        = 2.0

	buyScoreThreshold   = 3
	avoidScoreThreshold = 1
)

// ErrInsufficientHistory is returned when a symbol has too few bars to
// compute the indicator set.
var ErrInsufficientHistory = errors.New("insufficient price history")

// Analysis is the indicator snapshot for a symbol's latest bar. Score counts
// how many of the four checks passed (0-4).
type Analysis struct {
	Symbol            string  `json:"symbol"`
	Close             float64 `json:"close"`
	Score             int     `json:"score"`
	Signal            string  `json:"signal"`
	TrendOK           bool    `json:"trend_ok"`
	RecentBreakout    bool    `json:"recent_breakout"`
	NearHigh          bool    `json:"near_high"`
	Pullback          bool    `json:"pullback"`
	DistanceToHighPct float64 `json:"distance_to_high_pct"`
	EMA10             float64 `json:"ema10"`
	EMA20             float64 `json:"ema20"`
	EMA50             float64 `json:"ema50"`
	EMA200            float64 `json:"ema200"`
	AvgVolume20       float64 `json:"avg_volume_20"`
}

// Analyze computes the indicator snapshot from daily candles, oldest first.
func Analyze(symbol string, candles []Candle) (*Analysis, error) {
	if len(candles) < volumeAvgWindow+1 {
		return nil, fmt.Errorf("%w: %s has %d bars, need at least %d",
			ErrInsufficientHistory, symbol, len(candles), volumeAvgWindow+1)
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	latest := candles[len(candles)-1]
	a := &Analysis{
		Symbol: symbol,
		Close:  latest.Close,
		EMA10:  ema(closes, emaShort),
		EMA20:  ema(closes, emaLong),
		EMA50:  ema(closes, emaMid),
		EMA200: ema(closes, emaLongTerm),
	}

	a.AvgVolume20 = avgVolume(candles, volumeAvgWindow)
	high := yearlyHigh(candles, yearlyHighWindow)
	a.DistanceToHighPct = (high - a.Close) / a.Close * 100

	a.TrendOK = a.EMA10 > a.EMA20 && a.Close > a.EMA10 && a.Close > a.EMA20
	a.RecentBreakout = recentBreakout(candles, a.AvgVolume20)
	a.NearHigh = a.DistanceToHighPct <= highDistanceThreshold
	a.Pullback = pctDistance(a.Close, a.EMA10) <= pullbackThreshold ||
		pctDistance(a.Close, a.EMA20) <= pullbackThreshold

	for _, passed := range []bool{a.TrendOK, a.RecentBreakout, a.NearHigh, a.Pullback} {
		if passed {
			a.Score++
		}
	}

	switch {
	case a.Score >= buyScoreThreshold:
		a.Signal = "BUY"
	case a.Score <= avoidScoreThreshold:
		a.Signal = "AVOID"
	default:
		a.Signal = "HOLD"
	}

	return a, nil
}

// ema computes an exponential moving average over the full series, seeded
// with the first value. Series shorter than the period still produce a
// value; the caller gates on minimum history.
func ema(values []float64, period int) float64 {
	k := 2.0 / float64(period+1)
	result := values[0]
	for _, v := range values[1:] {
		result = v*k + result*(1-k)
	}
	return result
}

// avgVolume averages volume over the last window bars.
func avgVolume(candles []Candle, window int) float64 {
	if window > len(candles) {
		window = len(candles)
	}
	var sum float64
	for _, c := range candles[len(candles)-window:] {
		sum += c.Volume
	}
	return sum / float64(window)
}

// yearlyHigh is the highest high over the last window bars.
func yearlyHigh(candles []Candle, window int) float64 {
	if window > len(candles) {
		window = len(candles)
	}
	high := candles[len(candles)-window].High
	for _, c := range candles[len(candles)-window:] {
		if c.High > high {
			high = c.High
		}
	}
	return high
}

// recentBreakout reports whether any of the last bars shows both a volume
// spike above the 20-day average and a strong single-day gain.
func recentBreakout(candles []Candle, avgVol float64) bool {
	start := max(len(candles)-breakoutLookback, 1)
	for i := start; i < len(candles); i++ {
		prevClose := candles[i-1].Close
		if prevClose <= 0 {
			continue
		}
		gain := (candles[i].Close - prevClose) / prevClose
		if candles[i].Volume > avgVol*volumeBreakoutMultiplier && gain > breakoutGainThreshold {
			return true
		}
	}
	return false
}

// pctDistance is the absolute distance between price and reference as a
// percentage of the reference.
func pctDistance(price, ref float64) float64 {
	if ref == 0 {
		return 100
	}
	d := (price - ref) / ref * 100
	if d < 0 {
		d = -d
	}
	return d
}
