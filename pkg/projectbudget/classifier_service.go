package projectbudget

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/moneymap/moneymap/pkg/currency"
	"github.com/moneymap/moneymap/pkg/expense"
	"github.com/moneymap/moneymap/pkg/transaction"
	"github.com/moneymap/moneymap/pkg/user"
	log "github.com/sirupsen/logrus"
)

// updateRetries bounds the optimistic-concurrency retry loop on project saves.
const updateRetries = 3

// Classification says whether a project-tagged transaction is planned, and
// under which category budget.
type Classification struct {
	Planned        bool
	CategoryBudget *CategoryBudget
}

// MoveResult reports one transaction moved to a category budget.
type MoveResult struct {
	TransactionID      string
	ConvertedAmount    float64
	ConversionFallback bool
	ConversionDegraded bool
}

// ItemResult is the per-item outcome of a batch operation. Batches never
// abort: failed items carry their error message, successes stay applied.
type ItemResult struct {
	TransactionID   string  `json:"transactionId"`
	Succeeded       bool    `json:"succeeded"`
	Error           string  `json:"error,omitempty"`
	ConvertedAmount float64 `json:"convertedAmount,omitempty"`
}

// GroupMoveResult reports a group move: per-member outcomes plus the
// aggregate converted amount of the members that succeeded.
type GroupMoveResult struct {
	GroupID        string
	Results        []ItemResult
	TotalConverted float64
	SucceededCount int
}

type ClassifierService interface {
	Classify(project *ProjectBudget, tx transaction.Transaction) Classification
	MoveToPlanned(ctx context.Context, projectID, transactionID, categoryID, subCategoryID string) (MoveResult, error)
	MoveGroupToPlanned(ctx context.Context, projectID string, key expense.GroupKey, categoryID, subCategoryID string) (GroupMoveResult, error)
	Untag(ctx context.Context, projectID, transactionID string) error
	TagTransactions(ctx context.Context, projectID string, transactionIDs []string) ([]ItemResult, error)
}

type ClassifierServiceImpl struct {
	projectRepo Repo
	txRepo      transaction.Repo
	converter   currency.ConversionService
}

func NewClassifierService(projectRepo Repo, txRepo transaction.Repo, converter currency.ConversionService) *ClassifierServiceImpl {
	return &ClassifierServiceImpl{
		projectRepo: projectRepo,
		txRepo:      txRepo,
		converter:   converter,
	}
}

// Classify treats a project-tagged transaction as unplanned unless some
// category budget allocated it.
func (s *ClassifierServiceImpl) Classify(project *ProjectBudget, tx transaction.Transaction) Classification {
	if budget := project.BudgetForTransaction(tx.ID); budget != nil {
		return Classification{Planned: true, CategoryBudget: budget}
	}
	return Classification{}
}

// MoveToPlanned allocates a project-tagged transaction to the category budget
// matching the given pair, re-labelling the transaction's own category along
// the way. Calling it twice with the same arguments leaves a single
// allocation entry.
func (s *ClassifierServiceImpl) MoveToPlanned(ctx context.Context, projectID, transactionID, categoryID, subCategoryID string) (MoveResult, error) {
	userID, err := user.CurrentId(ctx)
	if err != nil {
		return MoveResult{}, fmt.Errorf("failed to get current user: %w", err)
	}

	var result MoveResult
	for attempt := 0; attempt < updateRetries; attempt++ {
		project, err := s.projectRepo.GetByID(ctx, userID, projectID)
		if err != nil {
			return MoveResult{}, err
		}
		tx, err := s.txRepo.FindByID(ctx, userID, transactionID)
		if err != nil {
			return MoveResult{}, err
		}
		if !tx.HasTag(project.ProjectTag) {
			return MoveResult{}, fmt.Errorf("transaction %s is not tagged to project %s: %w",
				transactionID, projectID, transaction.ErrTransactionNotFound)
		}
		target := project.FindCategoryBudget(categoryID, subCategoryID)
		if target == nil {
			return MoveResult{}, fmt.Errorf("no budget for category %s/%s on project %s: %w",
				categoryID, subCategoryID, projectID, ErrTargetBudgetNotFound)
		}

		// Conversion resolves fully before any mutation is applied.
		result = MoveResult{TransactionID: transactionID}
		amount := math.Abs(tx.Amount)
		conversion, err := s.converter.Convert(ctx, amount, tx.Currency, project.Currency, tx.ProcessedDate, true)
		if err != nil {
			log.Warnf("conversion for transaction %s degraded to original amount: %v", transactionID, err)
			result.ConvertedAmount = amount
			result.ConversionDegraded = true
		} else {
			result.ConvertedAmount = conversion.ConvertedAmount
			result.ConversionFallback = conversion.Fallback
		}

		if err := s.txRepo.UpdateCategory(ctx, userID, transactionID, categoryID, subCategoryID); err != nil {
			return MoveResult{}, fmt.Errorf("failed to re-label transaction %s: %w", transactionID, err)
		}

		target.Allocate(transactionID)
		err = s.projectRepo.Update(ctx, project)
		if errors.Is(err, ErrVersionConflict) {
			log.Debugf("version conflict on project %s, retrying move of %s", projectID, transactionID)
			continue
		}
		if err != nil {
			return MoveResult{}, err
		}
		return result, nil
	}
	return MoveResult{}, fmt.Errorf("failed to move transaction %s after %d attempts: %w",
		transactionID, updateRetries, ErrVersionConflict)
}

// MoveGroupToPlanned moves every visible member of an installment group
// independently. A failing member is recorded but does not abort its
// siblings.
func (s *ClassifierServiceImpl) MoveGroupToPlanned(ctx context.Context, projectID string, key expense.GroupKey, categoryID, subCategoryID string) (GroupMoveResult, error) {
	userID, err := user.CurrentId(ctx)
	if err != nil {
		return GroupMoveResult{}, fmt.Errorf("failed to get current user: %w", err)
	}
	project, err := s.projectRepo.GetByID(ctx, userID, projectID)
	if err != nil {
		return GroupMoveResult{}, err
	}
	tagged, err := s.txRepo.FindByTag(ctx, userID, project.ProjectTag)
	if err != nil {
		return GroupMoveResult{}, err
	}
	members := expense.MembersOf(key, tagged)
	if len(members) == 0 {
		return GroupMoveResult{}, fmt.Errorf("no transactions of group %s tagged to project %s: %w",
			expense.FormatGroupID(key), projectID, transaction.ErrTransactionNotFound)
	}

	result := GroupMoveResult{GroupID: expense.FormatGroupID(key)}
	for _, member := range members {
		moved, err := s.MoveToPlanned(ctx, projectID, member.ID, categoryID, subCategoryID)
		if err != nil {
			log.Warnf("failed to move group member %s: %v", member.ID, err)
			result.Results = append(result.Results, ItemResult{TransactionID: member.ID, Error: err.Error()})
			continue
		}
		result.Results = append(result.Results, ItemResult{
			TransactionID:   member.ID,
			Succeeded:       true,
			ConvertedAmount: moved.ConvertedAmount,
		})
		result.TotalConverted += moved.ConvertedAmount
		result.SucceededCount++
	}
	return result, nil
}

// Untag removes the project tag from a transaction and drops its allocation
// if it had one. It does not restore the category the transaction carried
// before a prior move. The tag is removed exactly once; only the project
// deallocation repeats on a version conflict.
func (s *ClassifierServiceImpl) Untag(ctx context.Context, projectID, transactionID string) error {
	userID, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}

	project, err := s.projectRepo.GetByID(ctx, userID, projectID)
	if err != nil {
		return err
	}
	tx, err := s.txRepo.FindByID(ctx, userID, transactionID)
	if err != nil {
		return err
	}
	if !tx.HasTag(project.ProjectTag) {
		return fmt.Errorf("transaction %s is not tagged to project %s: %w",
			transactionID, projectID, transaction.ErrTransactionNotFound)
	}

	if err := s.txRepo.RemoveTags(ctx, userID, transactionID, []string{project.ProjectTag}); err != nil {
		return fmt.Errorf("failed to untag transaction %s: %w", transactionID, err)
	}

	for attempt := 0; attempt < updateRetries; attempt++ {
		budget := project.BudgetForTransaction(transactionID)
		if budget == nil {
			return nil
		}
		budget.Deallocate(transactionID)
		err = s.projectRepo.Update(ctx, project)
		if errors.Is(err, ErrVersionConflict) {
			log.Debugf("version conflict on project %s, retrying deallocation of %s", projectID, transactionID)
			project, err = s.projectRepo.GetByID(ctx, userID, projectID)
			if err != nil {
				return err
			}
			continue
		}
		return err
	}
	return fmt.Errorf("failed to untag transaction %s after %d attempts: %w",
		transactionID, updateRetries, ErrVersionConflict)
}

// TagTransactions adds the project tag to each given transaction. Items are
// processed independently; the batch always reports per-item outcomes.
func (s *ClassifierServiceImpl) TagTransactions(ctx context.Context, projectID string, transactionIDs []string) ([]ItemResult, error) {
	userID, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	project, err := s.projectRepo.GetByID(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	results := make([]ItemResult, 0, len(transactionIDs))
	for _, transactionID := range transactionIDs {
		if err := s.txRepo.AddTags(ctx, userID, transactionID, []string{project.ProjectTag}); err != nil {
			log.Warnf("failed to tag transaction %s with project %s: %v", transactionID, projectID, err)
			results = append(results, ItemResult{TransactionID: transactionID, Error: err.Error()})
			continue
		}
		results = append(results, ItemResult{TransactionID: transactionID, Succeeded: true})
	}
	return results, nil
}
