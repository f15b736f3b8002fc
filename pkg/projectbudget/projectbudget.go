package projectbudget

import (
	"errors"
	"slices"
	"time"
)

var (
	ErrProjectNotFound = errors.New("project budget not found")
	// ErrTargetBudgetNotFound means the project has no category budget for
	// the requested (category, sub-category) pair.
	ErrTargetBudgetNotFound = errors.New("target category budget not found")
	// ErrVersionConflict signals a lost optimistic-concurrency race; callers
	// re-read the project and retry.
	ErrVersionConflict = errors.New("project budget version conflict")
)

type FundingSourceType string

const (
	FundingSavings FundingSourceType = "savings"
	FundingIncome  FundingSourceType = "income"
	FundingLoan    FundingSourceType = "loan"
	FundingOther   FundingSourceType = "other"
)

type FundingSource struct {
	Type            FundingSourceType
	Description     string
	ExpectedAmount  float64
	AvailableAmount float64
	Currency        string
}

// CategoryBudget is a budgeted amount for one category/sub-category pair.
// AllocatedTransactions holds ids of transactions allocated to this budget;
// they are weak references, the transactions themselves live in the
// transaction store.
type CategoryBudget struct {
	CategoryID            string
	SubCategoryID         string
	BudgetedAmount        float64
	Currency              string
	AllocatedTransactions []string
}

func (b *CategoryBudget) IsAllocated(transactionID string) bool {
	return slices.Contains(b.AllocatedTransactions, transactionID)
}

// Allocate appends the transaction id if absent. Idempotent.
func (b *CategoryBudget) Allocate(transactionID string) {
	if !b.IsAllocated(transactionID) {
		b.AllocatedTransactions = append(b.AllocatedTransactions, transactionID)
	}
}

func (b *CategoryBudget) Deallocate(transactionID string) {
	b.AllocatedTransactions = slices.DeleteFunc(b.AllocatedTransactions, func(id string) bool {
		return id == transactionID
	})
}

// ProjectBudget is a time-bounded spending plan. Transactions join a project
// by carrying its ProjectTag; a tagged transaction is planned once some
// category budget allocates it, unplanned otherwise.
type ProjectBudget struct {
	ID       string
	OwnerID  int
	Name     string
	Currency string
	// ProjectTag references the tag entity marking this project's transactions.
	ProjectTag      string
	StartDate       time.Time
	EndDate         time.Time
	FundingSources  []FundingSource
	CategoryBudgets []CategoryBudget
	// Version guards concurrent read-modify-write of category budget
	// allocations. Bumped on every update.
	Version int
}

// FindCategoryBudget returns the budget for the given pair, or nil.
// Category budgets are unique per (categoryId, subCategoryId).
func (p *ProjectBudget) FindCategoryBudget(categoryID, subCategoryID string) *CategoryBudget {
	for i := range p.CategoryBudgets {
		if p.CategoryBudgets[i].CategoryID == categoryID && p.CategoryBudgets[i].SubCategoryID == subCategoryID {
			return &p.CategoryBudgets[i]
		}
	}
	return nil
}

// BudgetForTransaction returns the category budget that allocated the
// transaction, or nil when the transaction is unplanned.
func (p *ProjectBudget) BudgetForTransaction(transactionID string) *CategoryBudget {
	for i := range p.CategoryBudgets {
		if p.CategoryBudgets[i].IsAllocated(transactionID) {
			return &p.CategoryBudgets[i]
		}
	}
	return nil
}
