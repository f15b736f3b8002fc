package currency

import (
	"errors"
	"time"
)

var (
	ErrRateNotFound = errors.New("exchange rate not found")
	// ErrConversionUnavailable means no rate could be resolved at all, even
	// with fallback. Callers in this core treat it as non-fatal and degrade
	// to the original amount.
	ErrConversionUnavailable = errors.New("currency conversion unavailable")
)

// Rate is one historical exchange rate quote.
type Rate struct {
	From string
	To   string
	Rate float64
	Date time.Time
}

// Conversion is the outcome of converting an amount into a target currency.
type Conversion struct {
	ConvertedAmount float64
	ExchangeRate    float64
	// Fallback is true when the exact-date rate was missing and the nearest
	// available rate was used instead.
	Fallback       bool
	DaysDifference int
}
