package projectbudget

import (
	"testing"
	"time"

	"github.com/moneymap/moneymap/pkg/currency"
	"github.com/moneymap/moneymap/pkg/expense"
	"github.com/moneymap/moneymap/pkg/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRecommendation(t *testing.T) (RecommendationService, func()) {
	converter := currency.NewConversionService(rateRepoStub, 0)
	service := NewRecommendationService(converter)
	return service, func() {
		t.Log("Teardown after test")
		rateRepoStub.Cleanup()
	}
}

func TestRecommendationServiceImpl_Recommend(t *testing.T) {
	march10 := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

	project := func() *ProjectBudget {
		return &ProjectBudget{
			ID:       "project-1",
			OwnerID:  1,
			Currency: "ILS",
			CategoryBudgets: []CategoryBudget{
				{CategoryID: "travel", SubCategoryID: "flights", BudgetedAmount: 2000, Currency: "ILS"},
				{CategoryID: "travel", SubCategoryID: "hotels", BudgetedAmount: 3000, Currency: "ILS"},
			},
		}
	}

	t.Run("should score a matching sub-category as a high-confidence exact match", func(t *testing.T) {
		service, teardown := setupRecommendation(t)
		defer teardown()

		// given
		exp := expense.Expense{CategoryID: "travel", SubCategoryID: "flights", ConvertedAmount: 200}

		// when
		recommendations := service.Recommend(ctx, project(), exp, nil)

		// then
		require.Len(t, recommendations, 1)
		assert.Equal(t, "flights", recommendations[0].SubCategoryID)
		assert.Equal(t, 95, recommendations[0].Confidence)
		assert.Equal(t, ConfidenceHigh, recommendations[0].ConfidenceLevel)
		assert.Equal(t, 2000.0, recommendations[0].BudgetedAmount)
		assert.Equal(t, 0.0, recommendations[0].CurrentActualAmount)
		assert.Equal(t, 200.0, recommendations[0].NewActualAmount)
		assert.False(t, recommendations[0].WouldExceedBudget)
	})

	t.Run("should sum allocated transactions into the current actual amount", func(t *testing.T) {
		service, teardown := setupRecommendation(t)
		defer teardown()

		// given: 600 ILS plus 100 USD already allocated to flights
		rateRepoStub.AddRate("USD", "ILS", 3.5, march10)
		p := project()
		p.CategoryBudgets[0].AllocatedTransactions = []string{"tx-1", "tx-2"}
		candidates := []transaction.Transaction{
			{ID: "tx-1", Amount: -600, Currency: "ILS", ProcessedDate: march10},
			{ID: "tx-2", Amount: -100, Currency: "USD", ProcessedDate: march10},
		}
		exp := expense.Expense{CategoryID: "travel", SubCategoryID: "flights", ConvertedAmount: 200}

		// when
		recommendations := service.Recommend(ctx, p, exp, candidates)

		// then
		require.Len(t, recommendations, 1)
		assert.Equal(t, 950.0, recommendations[0].CurrentActualAmount)
		assert.Equal(t, 1150.0, recommendations[0].NewActualAmount)
	})

	t.Run("should flag a recommendation that would exceed the budget", func(t *testing.T) {
		service, teardown := setupRecommendation(t)
		defer teardown()

		// given
		p := project()
		p.CategoryBudgets[0].AllocatedTransactions = []string{"tx-1"}
		candidates := []transaction.Transaction{
			{ID: "tx-1", Amount: -1900, Currency: "ILS", ProcessedDate: march10},
		}
		exp := expense.Expense{CategoryID: "travel", SubCategoryID: "flights", ConvertedAmount: 200}

		// when
		recommendations := service.Recommend(ctx, p, exp, candidates)

		// then
		require.Len(t, recommendations, 1)
		assert.Equal(t, 2100.0, recommendations[0].NewActualAmount)
		assert.True(t, recommendations[0].WouldExceedBudget)
	})

	t.Run("should degrade to the original amount when an allocated conversion fails", func(t *testing.T) {
		service, teardown := setupRecommendation(t)
		defer teardown()

		// given: no USD/ILS rate loaded
		p := project()
		p.CategoryBudgets[0].AllocatedTransactions = []string{"tx-1"}
		candidates := []transaction.Transaction{
			{ID: "tx-1", Amount: -100, Currency: "USD", ProcessedDate: march10},
		}
		exp := expense.Expense{CategoryID: "travel", SubCategoryID: "flights", ConvertedAmount: 200}

		// when
		recommendations := service.Recommend(ctx, p, exp, candidates)

		// then
		require.Len(t, recommendations, 1)
		assert.Equal(t, 100.0, recommendations[0].CurrentActualAmount)
	})

	t.Run("should skip allocated transactions no longer tagged to the project", func(t *testing.T) {
		service, teardown := setupRecommendation(t)
		defer teardown()

		// given: tx-gone is allocated but absent from the candidates
		p := project()
		p.CategoryBudgets[0].AllocatedTransactions = []string{"tx-gone"}
		exp := expense.Expense{CategoryID: "travel", SubCategoryID: "flights", ConvertedAmount: 200}

		// when
		recommendations := service.Recommend(ctx, p, exp, nil)

		// then
		require.Len(t, recommendations, 1)
		assert.Equal(t, 0.0, recommendations[0].CurrentActualAmount)
	})

	t.Run("should return nothing when no sub-category matches", func(t *testing.T) {
		service, teardown := setupRecommendation(t)
		defer teardown()

		// given
		exp := expense.Expense{CategoryID: "food", SubCategoryID: "restaurants", ConvertedAmount: 200}

		// when
		recommendations := service.Recommend(ctx, project(), exp, nil)

		// then
		assert.Empty(t, recommendations)
	})

	t.Run("should return nothing for an expense without category data", func(t *testing.T) {
		service, teardown := setupRecommendation(t)
		defer teardown()

		// when
		recommendations := service.Recommend(ctx, project(), expense.Expense{ConvertedAmount: 200}, nil)

		// then
		assert.Empty(t, recommendations)
	})
}
