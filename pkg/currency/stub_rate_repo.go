package currency

import (
	"context"
	"math"
	"time"
)

type StubRateRepo struct {
	rates []Rate
}

func NewStubRateRepo() *StubRateRepo {
	return &StubRateRepo{}
}

func (s *StubRateRepo) AddRate(from, to string, rate float64, date time.Time) {
	s.rates = append(s.rates, Rate{From: from, To: to, Rate: rate, Date: date})
}

func (s *StubRateRepo) FindRate(ctx context.Context, from, to string, date time.Time) (Rate, error) {
	for _, rate := range s.rates {
		if rate.From == from && rate.To == to && sameDay(rate.Date, date) {
			return rate, nil
		}
	}
	return Rate{}, ErrRateNotFound
}

func (s *StubRateRepo) FindNearestRate(ctx context.Context, from, to string, date time.Time) (Rate, int, error) {
	var nearest Rate
	bestDays := -1
	for _, rate := range s.rates {
		if rate.From != from || rate.To != to {
			continue
		}
		days := int(math.Abs(rate.Date.Sub(date).Hours()) / 24)
		if bestDays == -1 || days < bestDays {
			nearest = rate
			bestDays = days
		}
	}
	if bestDays == -1 {
		return Rate{}, 0, ErrRateNotFound
	}
	return nearest, bestDays, nil
}

func (s *StubRateRepo) FindLatestRate(ctx context.Context, from, to string) (Rate, error) {
	var latest Rate
	found := false
	for _, rate := range s.rates {
		if rate.From != from || rate.To != to {
			continue
		}
		if !found || rate.Date.After(latest.Date) {
			latest = rate
			found = true
		}
	}
	if !found {
		return Rate{}, ErrRateNotFound
	}
	return latest, nil
}

func (s *StubRateRepo) Cleanup() {
	s.rates = nil
}

func sameDay(date1, date2 time.Time) bool {
	year1, month1, day1 := date1.Date()
	year2, month2, day2 := date2.Date()
	return year1 == year2 && month1 == month2 && day1 == day2
}
