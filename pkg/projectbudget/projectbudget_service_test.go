package projectbudget

import (
	"context"
	"testing"

	"github.com/moneymap/moneymap/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) (Service, func()) {
	service := NewService(projectRepoStub)
	return service, func() {
		t.Log("Teardown after test")
		projectRepoStub.Cleanup()
	}
}

func TestServiceImpl_Create(t *testing.T) {
	t.Run("should store the project for the current user", func(t *testing.T) {
		service, teardown := setupService(t)
		defer teardown()

		// given
		project := ProjectBudget{
			Name:       "Rome Vacation",
			Currency:   "ILS",
			ProjectTag: "tag-rome",
			CategoryBudgets: []CategoryBudget{
				{CategoryID: "travel", SubCategoryID: "flights", BudgetedAmount: 2000, Currency: "ILS"},
			},
		}

		// when
		created, err := service.Create(ctx, project)

		// then
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, 1, created.OwnerID)

		stored, err := projectRepoStub.GetByID(ctx, 1, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Rome Vacation", stored.Name)
	})

	t.Run("should reject a duplicate category budget pair", func(t *testing.T) {
		service, teardown := setupService(t)
		defer teardown()

		// given
		project := ProjectBudget{
			Name: "Rome Vacation",
			CategoryBudgets: []CategoryBudget{
				{CategoryID: "travel", SubCategoryID: "flights", BudgetedAmount: 2000},
				{CategoryID: "travel", SubCategoryID: "flights", BudgetedAmount: 500},
			},
		}

		// when
		_, err := service.Create(ctx, project)

		// then
		assert.ErrorIs(t, err, ErrDuplicateCategoryBudget)
	})

	t.Run("should reject a negative budgeted amount", func(t *testing.T) {
		service, teardown := setupService(t)
		defer teardown()

		// given
		project := ProjectBudget{
			Name: "Rome Vacation",
			CategoryBudgets: []CategoryBudget{
				{CategoryID: "travel", SubCategoryID: "flights", BudgetedAmount: -1},
			},
		}

		// when
		_, err := service.Create(ctx, project)

		// then
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "must not be negative")
	})

	t.Run("should fail without a user in context", func(t *testing.T) {
		service, teardown := setupService(t)
		defer teardown()

		// when
		_, err := service.Create(context.Background(), ProjectBudget{Name: "Rome Vacation"})

		// then
		assert.ErrorIs(t, err, user.ErrNoUser)
	})
}

func TestServiceImpl_Get(t *testing.T) {
	t.Run("should not return another user's project", func(t *testing.T) {
		service, teardown := setupService(t)
		defer teardown()

		// given
		created, err := service.Create(ctx, ProjectBudget{Name: "Rome Vacation"})
		require.NoError(t, err)

		// when
		otherCtx := user.WithUserId(context.Background(), 2)
		_, err = service.Get(otherCtx, created.ID)

		// then
		assert.ErrorIs(t, err, ErrProjectNotFound)
	})
}

func TestServiceImpl_GetAll(t *testing.T) {
	t.Run("should list only the current user's projects", func(t *testing.T) {
		service, teardown := setupService(t)
		defer teardown()

		// given
		_, err := service.Create(ctx, ProjectBudget{Name: "Rome Vacation"})
		require.NoError(t, err)
		otherCtx := user.WithUserId(context.Background(), 2)
		_, err = service.Create(otherCtx, ProjectBudget{Name: "Kitchen Remodel"})
		require.NoError(t, err)

		// when
		projects, err := service.GetAll(ctx)

		// then
		require.NoError(t, err)
		require.Len(t, projects, 1)
		assert.Equal(t, "Rome Vacation", projects[0].Name)
	})
}

func TestServiceImpl_Delete(t *testing.T) {
	t.Run("should delete an owned project", func(t *testing.T) {
		service, teardown := setupService(t)
		defer teardown()

		// given
		created, err := service.Create(ctx, ProjectBudget{Name: "Rome Vacation"})
		require.NoError(t, err)

		// when
		deleted, err := service.Delete(ctx, created.ID)

		// then
		require.NoError(t, err)
		assert.True(t, deleted)
	})

	t.Run("should report false for an unknown project", func(t *testing.T) {
		service, teardown := setupService(t)
		defer teardown()

		// when
		deleted, err := service.Delete(ctx, "missing-project")

		// then
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}
