package projectbudget

import (
	"context"
	"sort"

	"github.com/google/uuid"
)

type StubRepo struct {
	data map[string]ProjectBudget
	// FailUpdates makes the next n Update calls return ErrVersionConflict,
	// for exercising the optimistic retry path.
	FailUpdates int
}

func NewStubRepo() *StubRepo {
	return &StubRepo{data: map[string]ProjectBudget{}}
}

func (s *StubRepo) GetByID(ctx context.Context, ownerID int, id string) (ProjectBudget, error) {
	project, ok := s.data[id]
	if !ok || project.OwnerID != ownerID {
		return ProjectBudget{}, ErrProjectNotFound
	}
	return clone(project), nil
}

func (s *StubRepo) GetAllForUser(ctx context.Context, ownerID int) ([]ProjectBudget, error) {
	var projects []ProjectBudget
	for _, project := range s.data {
		if project.OwnerID == ownerID {
			projects = append(projects, clone(project))
		}
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })
	return projects, nil
}

func (s *StubRepo) Store(ctx context.Context, project ProjectBudget) (string, error) {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	project.Version = 0
	s.data[project.ID] = clone(project)
	return project.ID, nil
}

func (s *StubRepo) Update(ctx context.Context, project ProjectBudget) error {
	stored, ok := s.data[project.ID]
	if !ok || stored.OwnerID != project.OwnerID {
		return ErrProjectNotFound
	}
	if s.FailUpdates > 0 {
		s.FailUpdates--
		return ErrVersionConflict
	}
	if stored.Version != project.Version {
		return ErrVersionConflict
	}
	project.Version++
	s.data[project.ID] = clone(project)
	return nil
}

func (s *StubRepo) Delete(ctx context.Context, ownerID int, id string) (bool, error) {
	project, ok := s.data[id]
	if !ok || project.OwnerID != ownerID {
		return false, nil
	}
	delete(s.data, id)
	return true, nil
}

func (s *StubRepo) Cleanup() {
	s.data = map[string]ProjectBudget{}
	s.FailUpdates = 0
}

func clone(project ProjectBudget) ProjectBudget {
	copied := project
	copied.FundingSources = append([]FundingSource(nil), project.FundingSources...)
	copied.CategoryBudgets = make([]CategoryBudget, len(project.CategoryBudgets))
	for i, budget := range project.CategoryBudgets {
		copied.CategoryBudgets[i] = budget
		copied.CategoryBudgets[i].AllocatedTransactions = append([]string(nil), budget.AllocatedTransactions...)
	}
	return copied
}
