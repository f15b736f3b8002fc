package projectbudget

import (
	"context"
	"fmt"
	"math"

	"github.com/moneymap/moneymap/internal/utils"
	"github.com/moneymap/moneymap/pkg/category"
	"github.com/moneymap/moneymap/pkg/currency"
	"github.com/moneymap/moneymap/pkg/expense"
	"github.com/moneymap/moneymap/pkg/transaction"
	"github.com/moneymap/moneymap/pkg/user"
	log "github.com/sirupsen/logrus"
)

type BudgetStatus string

const (
	BudgetStatusOver  BudgetStatus = "over"
	BudgetStatusUnder BudgetStatus = "under"
	BudgetStatusExact BudgetStatus = "exact"
)

// CategoryBudgetOverview is the derived status of one category budget. None
// of it is persisted.
type CategoryBudgetOverview struct {
	CategoryID         string
	CategoryName       string
	SubCategoryID      string
	SubCategoryName    string
	BudgetedAmount     float64
	Currency           string
	ActualAmount       float64
	Variance           float64
	VariancePercentage float64
	Status             BudgetStatus
	Expenses           []expense.Expense
}

// UnplannedExpense pairs an unallocated expense with its scored
// category-budget candidates.
type UnplannedExpense struct {
	Expense         expense.Expense
	Recommendations []Recommendation
}

type FundingSourceOverview struct {
	FundingSource
	ConvertedExpected  float64
	ConvertedAvailable float64
	ConversionDegraded bool
}

type ProjectOverview struct {
	ProjectID         string
	Name              string
	Currency          string
	CategoryBudgets   []CategoryBudgetOverview
	UnplannedExpenses []UnplannedExpense
	// IsActive is true between the project's start and end dates. Projects
	// without an end date stay active indefinitely.
	IsActive           bool
	DaysRemaining      int
	TotalBudget        float64
	TotalPlannedPaid   float64
	TotalUnplannedPaid float64
	TotalPaid          float64
	RemainingBudget    float64
	// Progress is TotalPaid over TotalBudget in whole percent, clamped to 100.
	Progress       int
	IsOverBudget   bool
	FundingSources []FundingSourceOverview
	TotalFunding   float64
	// TotalAvailableFunding sums what the funding sources actually hold now.
	TotalAvailableFunding float64
}

type OverviewService interface {
	GetOverview(ctx context.Context, projectID string) (ProjectOverview, error)
}

type OverviewServiceImpl struct {
	projectRepo     Repo
	txRepo          transaction.Repo
	grouper         *expense.Grouper
	converter       currency.ConversionService
	recommender     RecommendationService
	categoryService category.Service
	clock           utils.Clock
}

func NewOverviewService(
	projectRepo Repo,
	txRepo transaction.Repo,
	grouper *expense.Grouper,
	converter currency.ConversionService,
	recommender RecommendationService,
	categoryService category.Service,
	clock utils.Clock,
) *OverviewServiceImpl {
	return &OverviewServiceImpl{
		projectRepo:     projectRepo,
		txRepo:          txRepo,
		grouper:         grouper,
		converter:       converter,
		recommender:     recommender,
		categoryService: categoryService,
		clock:           clock,
	}
}

func (s *OverviewServiceImpl) GetOverview(ctx context.Context, projectID string) (ProjectOverview, error) {
	userID, err := user.CurrentId(ctx)
	if err != nil {
		return ProjectOverview{}, fmt.Errorf("failed to get current user: %w", err)
	}
	project, err := s.projectRepo.GetByID(ctx, userID, projectID)
	if err != nil {
		return ProjectOverview{}, err
	}
	tagged, err := s.txRepo.FindByTag(ctx, userID, project.ProjectTag)
	if err != nil {
		return ProjectOverview{}, err
	}

	var planned, unplanned []transaction.Transaction
	for _, tx := range tagged {
		if project.BudgetForTransaction(tx.ID) != nil {
			planned = append(planned, tx)
		} else {
			unplanned = append(unplanned, tx)
		}
	}

	plannedExpenses := s.grouper.Group(ctx, planned, project.Currency)
	unplannedExpenses := s.grouper.Group(ctx, unplanned, project.Currency)

	overview := ProjectOverview{
		ProjectID: project.ID,
		Name:      project.Name,
		Currency:  project.Currency,
	}

	now := s.clock.Now()
	overview.IsActive = !now.Before(project.StartDate) &&
		(project.EndDate.IsZero() || !now.After(project.EndDate))
	if !project.EndDate.IsZero() && now.Before(project.EndDate) {
		overview.DaysRemaining = int(project.EndDate.Sub(now).Hours() / 24)
	}

	expensesByBudget := map[string][]expense.Expense{}
	for _, exp := range plannedExpenses {
		budget := owningBudget(&project, exp)
		if budget == nil {
			// Group members allocated to different budgets have no single
			// owning budget; count the expense as unplanned rather than
			// attributing it to one of them.
			log.Warnf("expense %s spans multiple category budgets, treating as unplanned", exp.ID)
			unplannedExpenses = append(unplannedExpenses, exp)
			continue
		}
		budgetKey := budget.CategoryID + "/" + budget.SubCategoryID
		expensesByBudget[budgetKey] = append(expensesByBudget[budgetKey], exp)
	}

	for _, budget := range project.CategoryBudgets {
		expenses := expensesByBudget[budget.CategoryID+"/"+budget.SubCategoryID]
		actual := 0.0
		for _, exp := range expenses {
			actual += exp.ConvertedAmount
		}
		variance := actual - budget.BudgetedAmount
		variancePercentage := 0.0
		if budget.BudgetedAmount > 0 {
			variancePercentage = variance / budget.BudgetedAmount * 100
		}
		status := BudgetStatusExact
		if variance > 0 {
			status = BudgetStatusOver
		} else if variance < 0 {
			status = BudgetStatusUnder
		}

		overview.CategoryBudgets = append(overview.CategoryBudgets, CategoryBudgetOverview{
			CategoryID:         budget.CategoryID,
			CategoryName:       s.categoryService.CategoryName(ctx, budget.CategoryID),
			SubCategoryID:      budget.SubCategoryID,
			SubCategoryName:    s.categoryService.SubCategoryName(ctx, budget.SubCategoryID),
			BudgetedAmount:     budget.BudgetedAmount,
			Currency:           budget.Currency,
			ActualAmount:       actual,
			Variance:           variance,
			VariancePercentage: variancePercentage,
			Status:             status,
			Expenses:           expenses,
		})
		overview.TotalPlannedPaid += actual
		overview.TotalBudget += s.convertBudgeted(ctx, budget, project.Currency)
	}

	for _, exp := range unplannedExpenses {
		overview.UnplannedExpenses = append(overview.UnplannedExpenses, UnplannedExpense{
			Expense:         exp,
			Recommendations: s.recommender.Recommend(ctx, &project, exp, tagged),
		})
		overview.TotalUnplannedPaid += exp.ConvertedAmount
	}

	overview.TotalPaid = overview.TotalPlannedPaid + overview.TotalUnplannedPaid
	overview.RemainingBudget = math.Max(overview.TotalBudget-overview.TotalPaid, 0)
	if overview.TotalBudget > 0 {
		progress := int(math.Round(overview.TotalPaid / overview.TotalBudget * 100))
		overview.Progress = min(progress, 100)
	}
	overview.IsOverBudget = overview.TotalPaid > overview.TotalBudget

	for _, source := range project.FundingSources {
		sourceOverview := s.convertFundingSource(ctx, source, project.Currency)
		overview.FundingSources = append(overview.FundingSources, sourceOverview)
		overview.TotalFunding += sourceOverview.ConvertedExpected
		overview.TotalAvailableFunding += sourceOverview.ConvertedAvailable
	}

	return overview, nil
}

// owningBudget resolves the single category budget all of an expense's
// transactions are allocated to, or nil when they span more than one.
func owningBudget(project *ProjectBudget, exp expense.Expense) *CategoryBudget {
	budget := project.BudgetForTransaction(exp.Transactions[0].ID)
	for _, tx := range exp.Transactions[1:] {
		if project.BudgetForTransaction(tx.ID) != budget {
			return nil
		}
	}
	return budget
}

// convertBudgeted converts a budgeted amount into the project currency,
// degrading to the stated amount when no rate resolves.
func (s *OverviewServiceImpl) convertBudgeted(ctx context.Context, budget CategoryBudget, projectCurrency string) float64 {
	conversion, err := s.converter.ConvertLatest(ctx, budget.BudgetedAmount, budget.Currency, projectCurrency)
	if err != nil {
		log.Warnf("conversion of budget %s/%s degraded to stated amount: %v", budget.CategoryID, budget.SubCategoryID, err)
		return budget.BudgetedAmount
	}
	return conversion.ConvertedAmount
}

func (s *OverviewServiceImpl) convertFundingSource(ctx context.Context, source FundingSource, projectCurrency string) FundingSourceOverview {
	overview := FundingSourceOverview{FundingSource: source}

	expected, err := s.converter.ConvertLatest(ctx, source.ExpectedAmount, source.Currency, projectCurrency)
	if err != nil {
		log.Warnf("conversion of funding source %q degraded to stated amount: %v", source.Description, err)
		overview.ConvertedExpected = source.ExpectedAmount
		overview.ConversionDegraded = true
	} else {
		overview.ConvertedExpected = expected.ConvertedAmount
	}

	available, err := s.converter.ConvertLatest(ctx, source.AvailableAmount, source.Currency, projectCurrency)
	if err != nil {
		overview.ConvertedAvailable = source.AvailableAmount
		overview.ConversionDegraded = true
	} else {
		overview.ConvertedAvailable = available.ConvertedAmount
	}
	return overview
}
