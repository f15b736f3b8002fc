package expense

import (
	"context"
	"testing"
	"time"

	"github.com/moneymap/moneymap/pkg/currency"
	"github.com/moneymap/moneymap/pkg/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

var rateRepoStub = currency.NewStubRateRepo()

func setup(t *testing.T) (*Grouper, func()) {
	grouper := NewGrouper(currency.NewConversionService(rateRepoStub, 0))
	return grouper, func() {
		t.Log("Teardown after test")
		rateRepoStub.Cleanup()
	}
}

func installmentTx(id string, amount float64, identifier string, originalAmount float64) transaction.Transaction {
	return transaction.Transaction{
		ID:            id,
		Amount:        amount,
		Currency:      "ILS",
		ProcessedDate: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		Installment: &transaction.InstallmentInfo{
			Identifier:     identifier,
			OriginalAmount: originalAmount,
		},
	}
}

func TestGrouper_Group(t *testing.T) {
	t.Run("should fold visible installment postings into one group expense", func(t *testing.T) {
		grouper, teardown := setup(t)
		defer teardown()

		// given: a 3-part series of which only A and B are visible
		a := installmentTx("A", -100, "I", 300)
		b := installmentTx("B", -100, "I", 300)

		// when
		expenses := grouper.Group(ctx, []transaction.Transaction{a, b}, "ILS")

		// then
		require.Len(t, expenses, 1)
		group := expenses[0]
		assert.Equal(t, KindGroup, group.Kind)
		assert.Equal(t, "installment-group-I--300", group.ID)
		assert.Equal(t, 2, group.InstallmentCount)
		assert.Equal(t, 200.0, group.ConvertedAmount)
	})

	t.Run("should keep a lone member of a series as a single expense", func(t *testing.T) {
		grouper, teardown := setup(t)
		defer teardown()

		// given
		a := installmentTx("A", -100, "I", 300)

		// when
		expenses := grouper.Group(ctx, []transaction.Transaction{a}, "ILS")

		// then
		require.Len(t, expenses, 1)
		assert.Equal(t, KindSingle, expenses[0].Kind)
		assert.Equal(t, "A", expenses[0].ID)
		assert.Equal(t, 1, expenses[0].InstallmentCount)
	})

	t.Run("should keep different series apart", func(t *testing.T) {
		grouper, teardown := setup(t)
		defer teardown()

		// given: same identifier but different original amounts
		a := installmentTx("A", -100, "I", 300)
		b := installmentTx("B", -100, "I", 300)
		c := installmentTx("C", -50, "I", 150)

		// when
		expenses := grouper.Group(ctx, []transaction.Transaction{a, b, c}, "ILS")

		// then
		require.Len(t, expenses, 2)
		kinds := map[string]Kind{}
		for _, exp := range expenses {
			kinds[exp.ID] = exp.Kind
		}
		assert.Equal(t, KindGroup, kinds["installment-group-I--300"])
		assert.Equal(t, KindSingle, kinds["C"])
	})

	t.Run("should pass plain transactions through as singles", func(t *testing.T) {
		grouper, teardown := setup(t)
		defer teardown()

		// given
		tx := transaction.Transaction{
			ID:            "tx-1",
			Amount:        -80,
			Currency:      "ILS",
			ProcessedDate: time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
		}

		// when
		expenses := grouper.Group(ctx, []transaction.Transaction{tx}, "ILS")

		// then
		require.Len(t, expenses, 1)
		assert.Equal(t, KindSingle, expenses[0].Kind)
		assert.Equal(t, 80.0, expenses[0].ConvertedAmount)
	})

	t.Run("should convert members into the target currency", func(t *testing.T) {
		grouper, teardown := setup(t)
		defer teardown()

		// given
		rateRepoStub.AddRate("USD", "ILS", 3.5, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
		a := installmentTx("A", -100, "I", 300)
		a.Currency = "USD"
		b := installmentTx("B", -100, "I", 300)
		b.Currency = "USD"

		// when
		expenses := grouper.Group(ctx, []transaction.Transaction{a, b}, "ILS")

		// then
		require.Len(t, expenses, 1)
		assert.Equal(t, 700.0, expenses[0].ConvertedAmount)
	})

	t.Run("should degrade to the original amount when no rate resolves", func(t *testing.T) {
		grouper, teardown := setup(t)
		defer teardown()

		// given: USD transaction but no USD/ILS rate at all
		tx := transaction.Transaction{
			ID:            "tx-1",
			Amount:        -100,
			Currency:      "USD",
			ProcessedDate: time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
		}

		// when
		expenses := grouper.Group(ctx, []transaction.Transaction{tx}, "ILS")

		// then
		require.Len(t, expenses, 1)
		assert.Equal(t, 100.0, expenses[0].ConvertedAmount)
		assert.True(t, expenses[0].ConversionDegraded)
	})
}

func TestFindRelated(t *testing.T) {
	t.Run("should return members of the same series minus exclusions", func(t *testing.T) {
		a := installmentTx("A", -100, "I", 300)
		b := installmentTx("B", -100, "I", 300)
		c := installmentTx("C", -100, "I", 300)
		other := installmentTx("D", -50, "J", 150)

		related := FindRelated(a, []transaction.Transaction{a, b, c, other}, []string{"A"})

		require.Len(t, related, 2)
		assert.Equal(t, "B", related[0].ID)
		assert.Equal(t, "C", related[1].ID)
	})

	t.Run("should return nothing for a non-installment transaction", func(t *testing.T) {
		plain := transaction.Transaction{ID: "tx-1", Amount: -100}
		related := FindRelated(plain, []transaction.Transaction{installmentTx("A", -100, "I", 300)}, nil)
		assert.Empty(t, related)
	})
}
