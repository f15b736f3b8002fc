package projectbudget

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/moneymap/moneymap/pkg/user"
	log "github.com/sirupsen/logrus"
)

var ErrDuplicateCategoryBudget = errors.New("duplicate category budget pair")

type Service interface {
	Get(ctx context.Context, projectID string) (ProjectBudget, error)
	GetAll(ctx context.Context) ([]ProjectBudget, error)
	Create(ctx context.Context, project ProjectBudget) (ProjectBudget, error)
	Delete(ctx context.Context, projectID string) (bool, error)
}

type ServiceImpl struct {
	repo Repo
}

func NewService(repo Repo) *ServiceImpl {
	return &ServiceImpl{repo: repo}
}

func (s *ServiceImpl) Get(ctx context.Context, projectID string) (ProjectBudget, error) {
	userID, err := user.CurrentId(ctx)
	if err != nil {
		return ProjectBudget{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.GetByID(ctx, userID, projectID)
}

func (s *ServiceImpl) GetAll(ctx context.Context) ([]ProjectBudget, error) {
	userID, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.GetAllForUser(ctx, userID)
}

func (s *ServiceImpl) Create(ctx context.Context, project ProjectBudget) (ProjectBudget, error) {
	userID, err := user.CurrentId(ctx)
	if err != nil {
		return ProjectBudget{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if err := validate(project); err != nil {
		return ProjectBudget{}, err
	}

	project.OwnerID = userID
	project.ID = uuid.NewString()
	project.Version = 0
	id, err := s.repo.Store(ctx, project)
	if err != nil {
		return ProjectBudget{}, err
	}
	project.ID = id
	return project, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, projectID string) (bool, error) {
	userID, err := user.CurrentId(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get current user: %w", err)
	}
	deleted, err := s.repo.Delete(ctx, userID, projectID)
	if err != nil {
		return false, err
	}
	if !deleted {
		log.Warnf("project budget not deleted, probably because it does not exist (%s) or the user (%d) is not the owner", projectID, userID)
	}
	return deleted, nil
}

func validate(project ProjectBudget) error {
	seen := map[string]struct{}{}
	for _, budget := range project.CategoryBudgets {
		if budget.BudgetedAmount < 0 {
			return fmt.Errorf("budgeted amount for %s/%s must not be negative", budget.CategoryID, budget.SubCategoryID)
		}
		key := budget.CategoryID + "/" + budget.SubCategoryID
		if _, ok := seen[key]; ok {
			return fmt.Errorf("category budget %s appears twice: %w", key, ErrDuplicateCategoryBudget)
		}
		seen[key] = struct{}{}
	}
	return nil
}
