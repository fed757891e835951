package calculator

import (
	"errors"
	"math"

	"InvestLogic/internal/model"
)

// SeriesRange returns the highest and lowest close over the most recent
// lookback points. A non-positive lookback scans the whole series.
func SeriesRange(series []model.PricePoint, lookback int) (high, low float64, err error) {
	if len(series) == 0 {
		return 0, 0, errors.New("no price points provided")
	}
	n := len(series)
	start := 0
	if lookback > 0 && n > lookback {
		start = n - lookback
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < n; i++ {
		if series[i].Close > high {
			high = series[i].Close
		}
		if series[i].Close < low {
			low = series[i].Close
		}
	}
	return high, low, nil
}

// PeakClose returns the highest close of the series.
func PeakClose(series []model.PricePoint) (float64, error) {
	high, _, err := SeriesRange(series, 0)
	return high, err
}

// RangePosition returns where current sits within [low, high] (0.0~1.0).
func RangePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}
