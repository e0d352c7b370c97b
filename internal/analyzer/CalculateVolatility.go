package analyzer

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/elys-network/vault-valuator/internal/types"
)

// ErrInsufficientData indicates that not enough data points were provided
// to calculate volatility (need at least 2 points for 1 return).
var ErrInsufficientData = errors.New("insufficient data points to calculate volatility")

const secondsPerYear = 365 * 24 * 60 * 60

// CalculateVolatility calculates the annualized historical volatility from a series of price data.
// The input is not modified; a sorted copy is used.
// It uses logarithmic returns and standard deviation.
// The annualizationFactor should match the frequency of the data (e.g., 8760 for hourly, 365 for daily).
func CalculateVolatility(prices []types.PriceData, annualizationFactor float64) (float64, error) {
	n := len(prices)

	// --- Input Validation ---
	if n < 2 {
		return 0, ErrInsufficientData // Need at least two points to calculate one return
	}
	if annualizationFactor <= 0 || math.IsNaN(annualizationFactor) || math.IsInf(annualizationFactor, 0) {
		return 0, errors.New("annualization factor must be positive and finite")
	}

	sorted := make([]types.PriceData, n)
	copy(sorted, prices)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	// --- Calculate Logarithmic Returns ---
	logReturns := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		currentPrice := sorted[i].Price
		previousPrice := sorted[i-1].Price

		// Non-positive prices would break math.Log
		if previousPrice <= 0 || currentPrice <= 0 {
			continue
		}

		logReturns = append(logReturns, math.Log(currentPrice/previousPrice))
	}

	numReturns := len(logReturns)
	if numReturns == 0 {
		return 0, ErrInsufficientData
	}

	// --- Standard Deviation of Log Returns (population, N) ---
	var sum float64
	for _, r := range logReturns {
		sum += r
	}
	mean := sum / float64(numReturns)

	var sumSqDiff float64
	for _, r := range logReturns {
		sumSqDiff += math.Pow(r-mean, 2)
	}
	stdDev := math.Sqrt(sumSqDiff / float64(numReturns))

	// Multiply by the square root of the number of periods in a year
	return stdDev * math.Sqrt(annualizationFactor), nil
}

// SeriesVolatility is the annualized volatility of the LP price behind a PI series.
// PI is the LP price scaled by a constant, so its log returns are the LP price's log returns.
// The annualization factor is derived from the average spacing of the series.
func SeriesVolatility(series []types.PerformanceIndexPoint) (float64, error) {
	if len(series) < 2 {
		return 0, ErrInsufficientData
	}

	prices := make([]types.PriceData, 0, len(series))
	first, last := series[0].Time, series[0].Time
	for _, p := range series {
		prices = append(prices, types.PriceData{Timestamp: time.Unix(p.Time, 0).UTC(), Price: p.PI()})
		first = min(first, p.Time)
		last = max(last, p.Time)
	}

	span := last - first
	if span <= 0 {
		return 0, ErrInsufficientData
	}
	interval := float64(span) / float64(len(series)-1)

	return CalculateVolatility(prices, secondsPerYear/interval)
}

// MaxDrawdown is the largest peak to trough fall of PI, as a fraction of the peak.
// Series are expected in time order, as returned by the performance indexer.
func MaxDrawdown(series []types.PerformanceIndexPoint) float64 {
	var peak, drawdown float64
	for _, p := range series {
		pi := p.PI()
		if pi > peak {
			peak = pi
			continue
		}
		if peak > 0 {
			drawdown = max(drawdown, (peak-pi)/peak)
		}
	}
	return drawdown
}
