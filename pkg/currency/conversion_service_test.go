package currency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

var rateRepoStub = NewStubRateRepo()

func setup(t *testing.T, maxFallbackDays int) (ConversionService, func()) {
	service := NewConversionService(rateRepoStub, maxFallbackDays)
	return service, func() {
		t.Log("Teardown after test")
		rateRepoStub.Cleanup()
	}
}

func TestConversionServiceImpl_Convert(t *testing.T) {
	asOf := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

	t.Run("should convert identically for same currency without any lookup", func(t *testing.T) {
		service, teardown := setup(t, 0)
		defer teardown()

		// when
		conversion, err := service.Convert(ctx, 250, "ILS", "ILS", asOf, false)

		// then
		require.NoError(t, err)
		assert.Equal(t, 250.0, conversion.ConvertedAmount)
		assert.Equal(t, 1.0, conversion.ExchangeRate)
		assert.False(t, conversion.Fallback)
		assert.Equal(t, 0, conversion.DaysDifference)
	})

	t.Run("should use the exact-date rate when present", func(t *testing.T) {
		service, teardown := setup(t, 0)
		defer teardown()

		// given
		rateRepoStub.AddRate("USD", "ILS", 3.6, asOf)

		// when
		conversion, err := service.Convert(ctx, 100, "USD", "ILS", asOf, false)

		// then
		require.NoError(t, err)
		assert.Equal(t, 360.0, conversion.ConvertedAmount)
		assert.Equal(t, 3.6, conversion.ExchangeRate)
		assert.False(t, conversion.Fallback)
	})

	t.Run("should fall back to the nearest rate and report the distance", func(t *testing.T) {
		service, teardown := setup(t, 0)
		defer teardown()

		// given: no rate on the requested date, one 3 days prior
		rateRepoStub.AddRate("USD", "ILS", 3.5, asOf.AddDate(0, 0, -3))

		// when
		conversion, err := service.Convert(ctx, 100, "USD", "ILS", asOf, true)

		// then
		require.NoError(t, err)
		assert.True(t, conversion.Fallback)
		assert.Equal(t, 3, conversion.DaysDifference)
		assert.Equal(t, 350.0, conversion.ConvertedAmount)
	})

	t.Run("should prefer the closer rate regardless of direction", func(t *testing.T) {
		service, teardown := setup(t, 0)
		defer teardown()

		// given
		rateRepoStub.AddRate("USD", "ILS", 3.5, asOf.AddDate(0, 0, -5))
		rateRepoStub.AddRate("USD", "ILS", 3.7, asOf.AddDate(0, 0, 2))

		// when
		conversion, err := service.Convert(ctx, 100, "USD", "ILS", asOf, true)

		// then
		require.NoError(t, err)
		assert.Equal(t, 2, conversion.DaysDifference)
		assert.Equal(t, 370.0, conversion.ConvertedAmount)
	})

	t.Run("should fail without fallback when exact-date rate is missing", func(t *testing.T) {
		service, teardown := setup(t, 0)
		defer teardown()

		// given
		rateRepoStub.AddRate("USD", "ILS", 3.5, asOf.AddDate(0, 0, -3))

		// when
		_, err := service.Convert(ctx, 100, "USD", "ILS", asOf, false)

		// then
		assert.ErrorIs(t, err, ErrConversionUnavailable)
	})

	t.Run("should fail when no rate exists at all", func(t *testing.T) {
		service, teardown := setup(t, 0)
		defer teardown()

		// when
		_, err := service.Convert(ctx, 100, "USD", "ILS", asOf, true)

		// then
		assert.ErrorIs(t, err, ErrConversionUnavailable)
	})

	t.Run("should reject fallback rates beyond the configured limit", func(t *testing.T) {
		service, teardown := setup(t, 7)
		defer teardown()

		// given: nearest rate is 10 days away, limit is 7
		rateRepoStub.AddRate("USD", "ILS", 3.5, asOf.AddDate(0, 0, -10))

		// when
		_, err := service.Convert(ctx, 100, "USD", "ILS", asOf, true)

		// then
		assert.ErrorIs(t, err, ErrConversionUnavailable)
	})
}

func TestConversionServiceImpl_ConvertLatest(t *testing.T) {
	t.Run("should use the most recent rate", func(t *testing.T) {
		service, teardown := setup(t, 0)
		defer teardown()

		// given
		rateRepoStub.AddRate("EUR", "ILS", 3.9, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
		rateRepoStub.AddRate("EUR", "ILS", 4.1, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))

		// when
		conversion, err := service.ConvertLatest(ctx, 10, "EUR", "ILS")

		// then
		require.NoError(t, err)
		assert.Equal(t, 41.0, conversion.ConvertedAmount)
	})

	t.Run("should be an identity for same currency", func(t *testing.T) {
		service, teardown := setup(t, 0)
		defer teardown()

		// when
		conversion, err := service.ConvertLatest(ctx, 10, "ILS", "ILS")

		// then
		require.NoError(t, err)
		assert.Equal(t, 10.0, conversion.ConvertedAmount)
	})

	t.Run("should fail when no rate is known", func(t *testing.T) {
		service, teardown := setup(t, 0)
		defer teardown()

		// when
		_, err := service.ConvertLatest(ctx, 10, "EUR", "ILS")

		// then
		assert.ErrorIs(t, err, ErrConversionUnavailable)
	})
}
