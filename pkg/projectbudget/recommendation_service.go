package projectbudget

import (
	"context"
	"math"
	"sort"

	"github.com/moneymap/moneymap/pkg/currency"
	"github.com/moneymap/moneymap/pkg/expense"
	"github.com/moneymap/moneymap/pkg/transaction"
	log "github.com/sirupsen/logrus"
)

// Confidence scoring for category budget recommendations. A single
// exact-match tier is scored; candidates at or below the floor are dropped.
const (
	exactMatchConfidence = 95
	confidenceFloor      = 30
	highConfidenceMin    = 80
	mediumConfidenceMin  = 60
)

type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// Recommendation is one scored category-budget candidate for an unplanned
// expense.
type Recommendation struct {
	CategoryID          string
	SubCategoryID       string
	Confidence          int
	ConfidenceLevel     ConfidenceLevel
	BudgetedAmount      float64
	CurrentActualAmount float64
	NewActualAmount     float64
	WouldExceedBudget   bool
}

type RecommendationService interface {
	// Recommend scores each category budget as a destination for the given
	// unplanned expense. Candidates are the project-tagged transactions used
	// to resolve current allocations.
	Recommend(ctx context.Context, project *ProjectBudget, exp expense.Expense, candidates []transaction.Transaction) []Recommendation
}

type RecommendationServiceImpl struct {
	converter currency.ConversionService
}

func NewRecommendationService(converter currency.ConversionService) *RecommendationServiceImpl {
	return &RecommendationServiceImpl{converter: converter}
}

func (s *RecommendationServiceImpl) Recommend(ctx context.Context, project *ProjectBudget, exp expense.Expense, candidates []transaction.Transaction) []Recommendation {
	if exp.CategoryID == "" || exp.SubCategoryID == "" {
		return []Recommendation{}
	}

	transactionsByID := make(map[string]transaction.Transaction, len(candidates))
	for _, tx := range candidates {
		transactionsByID[tx.ID] = tx
	}

	recommendations := make([]Recommendation, 0, len(project.CategoryBudgets))
	for _, budget := range project.CategoryBudgets {
		confidence := 0
		if budget.SubCategoryID == exp.SubCategoryID {
			confidence = exactMatchConfidence
		}
		if confidence <= confidenceFloor {
			continue
		}

		currentActual := s.allocatedTotal(ctx, project, budget, transactionsByID)
		newActual := currentActual + exp.ConvertedAmount
		recommendations = append(recommendations, Recommendation{
			CategoryID:          budget.CategoryID,
			SubCategoryID:       budget.SubCategoryID,
			Confidence:          confidence,
			ConfidenceLevel:     levelOf(confidence),
			BudgetedAmount:      budget.BudgetedAmount,
			CurrentActualAmount: currentActual,
			NewActualAmount:     newActual,
			WouldExceedBudget:   newActual > budget.BudgetedAmount,
		})
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].Confidence > recommendations[j].Confidence
	})
	return recommendations
}

// allocatedTotal sums the budget's allocated transactions converted into the
// project currency. Unresolvable references and failed conversions degrade
// per transaction.
func (s *RecommendationServiceImpl) allocatedTotal(ctx context.Context, project *ProjectBudget, budget CategoryBudget, transactionsByID map[string]transaction.Transaction) float64 {
	total := 0.0
	for _, transactionID := range budget.AllocatedTransactions {
		tx, ok := transactionsByID[transactionID]
		if !ok {
			log.Debugf("allocated transaction %s not among project-tagged transactions, skipping", transactionID)
			continue
		}
		amount := math.Abs(tx.Amount)
		conversion, err := s.converter.Convert(ctx, amount, tx.Currency, project.Currency, tx.ProcessedDate, true)
		if err != nil {
			log.Warnf("conversion of allocated transaction %s degraded to original amount: %v", transactionID, err)
			total += amount
			continue
		}
		total += conversion.ConvertedAmount
	}
	return total
}

func levelOf(confidence int) ConfidenceLevel {
	switch {
	case confidence >= highConfidenceMin:
		return ConfidenceHigh
	case confidence >= mediumConfidenceMin:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
