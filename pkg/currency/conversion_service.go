package currency

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

type ConversionService interface {
	// Convert converts amount from one currency to another using the rate
	// effective on asOf. When allowFallback is set and no exact-date rate
	// exists, the nearest available rate (in either direction) is used and
	// reported via Conversion.Fallback.
	Convert(ctx context.Context, amount float64, from, to string, asOf time.Time, allowFallback bool) (Conversion, error)
	// ConvertLatest converts using the most recent known rate. Used where no
	// meaningful date exists, e.g. funding source amounts.
	ConvertLatest(ctx context.Context, amount float64, from, to string) (Conversion, error)
}

type ConversionServiceImpl struct {
	rateRepo RateRepo
	// maxFallbackDays limits how stale a fallback rate may be; 0 disables the limit.
	maxFallbackDays int
}

func NewConversionService(rateRepo RateRepo, maxFallbackDays int) *ConversionServiceImpl {
	return &ConversionServiceImpl{rateRepo: rateRepo, maxFallbackDays: maxFallbackDays}
}

func (s *ConversionServiceImpl) Convert(ctx context.Context, amount float64, from, to string, asOf time.Time, allowFallback bool) (Conversion, error) {
	if from == to {
		return Conversion{ConvertedAmount: amount, ExchangeRate: 1}, nil
	}

	rate, err := s.rateRepo.FindRate(ctx, from, to, asOf)
	if err == nil {
		return Conversion{ConvertedAmount: amount * rate.Rate, ExchangeRate: rate.Rate}, nil
	}
	if !errors.Is(err, ErrRateNotFound) {
		return Conversion{}, fmt.Errorf("failed to look up %s/%s rate: %w", from, to, err)
	}
	if !allowFallback {
		return Conversion{}, fmt.Errorf("no %s/%s rate on %s: %w", from, to, asOf.Format("2006-01-02"), ErrConversionUnavailable)
	}

	nearest, daysDifference, err := s.rateRepo.FindNearestRate(ctx, from, to, asOf)
	if errors.Is(err, ErrRateNotFound) {
		return Conversion{}, fmt.Errorf("no %s/%s rate available: %w", from, to, ErrConversionUnavailable)
	} else if err != nil {
		return Conversion{}, fmt.Errorf("failed to look up nearest %s/%s rate: %w", from, to, err)
	}
	if s.maxFallbackDays > 0 && daysDifference > s.maxFallbackDays {
		return Conversion{}, fmt.Errorf("nearest %s/%s rate is %d days away (limit %d): %w",
			from, to, daysDifference, s.maxFallbackDays, ErrConversionUnavailable)
	}

	log.Debugf("using fallback %s/%s rate from %s (%d days from requested %s)",
		from, to, nearest.Date.Format("2006-01-02"), daysDifference, asOf.Format("2006-01-02"))
	return Conversion{
		ConvertedAmount: amount * nearest.Rate,
		ExchangeRate:    nearest.Rate,
		Fallback:        true,
		DaysDifference:  daysDifference,
	}, nil
}

func (s *ConversionServiceImpl) ConvertLatest(ctx context.Context, amount float64, from, to string) (Conversion, error) {
	if from == to {
		return Conversion{ConvertedAmount: amount, ExchangeRate: 1}, nil
	}

	rate, err := s.rateRepo.FindLatestRate(ctx, from, to)
	if errors.Is(err, ErrRateNotFound) {
		return Conversion{}, fmt.Errorf("no %s/%s rate available: %w", from, to, ErrConversionUnavailable)
	} else if err != nil {
		return Conversion{}, fmt.Errorf("failed to look up latest %s/%s rate: %w", from, to, err)
	}
	return Conversion{ConvertedAmount: amount * rate.Rate, ExchangeRate: rate.Rate}, nil
}
