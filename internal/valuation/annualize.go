package valuation

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// SecondsPerYear uses a 365 day year.
const SecondsPerYear = 365 * 24 * 60 * 60

var (
	ErrZeroPeriod       = errors.New("annualization period must be positive")
	ErrNonPositiveRatio = errors.New("annualization ratio must be positive")
	ErrNotFinite        = errors.New("annualized value is not finite")
)

// Annualize compounds a growth ratio observed over period to a yearly percentage:
// (ratio^(secondsPerYear/period) - 1) * 100.
func Annualize(ratio float64, period time.Duration) (float64, error) {
	seconds := period.Seconds()
	if seconds <= 0 {
		return 0, fmt.Errorf("%w: got %s", ErrZeroPeriod, period)
	}
	if math.IsNaN(ratio) || ratio <= 0 {
		return 0, fmt.Errorf("%w: got %f", ErrNonPositiveRatio, ratio)
	}

	apy := (math.Pow(ratio, SecondsPerYear/seconds) - 1) * 100
	if math.IsNaN(apy) || math.IsInf(apy, 0) {
		return 0, fmt.Errorf("%w: ratio %f over %s", ErrNotFinite, ratio, period)
	}
	return apy, nil
}
