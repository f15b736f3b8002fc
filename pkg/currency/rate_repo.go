package currency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type RateRepo interface {
	// FindRate returns the rate effective exactly on the given date.
	FindRate(ctx context.Context, from, to string, date time.Time) (Rate, error)
	// FindNearestRate returns the rate whose date is closest to the given
	// date, in either direction, plus the distance in days.
	FindNearestRate(ctx context.Context, from, to string, date time.Time) (Rate, int, error)
	// FindLatestRate returns the most recent rate, regardless of date.
	FindLatestRate(ctx context.Context, from, to string) (Rate, error)
}

type RateRepoImpl struct {
	db *pgxpool.Pool
}

func NewRateRepo(db *pgxpool.Pool) *RateRepoImpl {
	return &RateRepoImpl{db: db}
}

func (r *RateRepoImpl) FindRate(ctx context.Context, from, to string, date time.Time) (Rate, error) {
	query := `SELECT from_currency, to_currency, rate, rate_date FROM exchange_rate
			WHERE from_currency = $1 AND to_currency = $2 AND rate_date = $3`
	var rate Rate
	err := r.db.QueryRow(ctx, query, from, to, date.Format("2006-01-02")).
		Scan(&rate.From, &rate.To, &rate.Rate, &rate.Date)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rate{}, ErrRateNotFound
	} else if err != nil {
		log.Errorf("failed to query exchange rate %s/%s on %s: %v", from, to, date.Format("2006-01-02"), err)
		return Rate{}, err
	}
	return rate, nil
}

func (r *RateRepoImpl) FindNearestRate(ctx context.Context, from, to string, date time.Time) (Rate, int, error) {
	query := `SELECT from_currency, to_currency, rate, rate_date,
				ABS(rate_date - $3::date) AS days_difference
			FROM exchange_rate
			WHERE from_currency = $1 AND to_currency = $2
			ORDER BY days_difference, rate_date
			LIMIT 1`
	var rate Rate
	var daysDifference int
	err := r.db.QueryRow(ctx, query, from, to, date.Format("2006-01-02")).
		Scan(&rate.From, &rate.To, &rate.Rate, &rate.Date, &daysDifference)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rate{}, 0, ErrRateNotFound
	} else if err != nil {
		log.Errorf("failed to query nearest exchange rate %s/%s around %s: %v", from, to, date.Format("2006-01-02"), err)
		return Rate{}, 0, err
	}
	return rate, daysDifference, nil
}

func (r *RateRepoImpl) FindLatestRate(ctx context.Context, from, to string) (Rate, error) {
	query := `SELECT from_currency, to_currency, rate, rate_date FROM exchange_rate
			WHERE from_currency = $1 AND to_currency = $2
			ORDER BY rate_date DESC
			LIMIT 1`
	var rate Rate
	err := r.db.QueryRow(ctx, query, from, to).
		Scan(&rate.From, &rate.To, &rate.Rate, &rate.Date)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rate{}, ErrRateNotFound
	} else if err != nil {
		log.Errorf("failed to query latest exchange rate %s/%s: %v", from, to, err)
		return Rate{}, err
	}
	return rate, nil
}
