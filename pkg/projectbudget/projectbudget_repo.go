package projectbudget

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type Repo interface {
	GetByID(ctx context.Context, ownerID int, id string) (ProjectBudget, error)
	GetAllForUser(ctx context.Context, ownerID int) ([]ProjectBudget, error)
	Store(ctx context.Context, project ProjectBudget) (string, error)
	// Update writes the whole project aggregate. It succeeds only when the
	// stored version still matches project.Version and bumps it by one;
	// otherwise it returns ErrVersionConflict.
	Update(ctx context.Context, project ProjectBudget) error
	Delete(ctx context.Context, ownerID int, id string) (bool, error)
}

type RepoImpl struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *RepoImpl {
	return &RepoImpl{db: db}
}

func (r *RepoImpl) GetByID(ctx context.Context, ownerID int, id string) (ProjectBudget, error) {
	query := `SELECT id, owner_id, name, currency, project_tag, start_date, end_date, version
			FROM project_budget WHERE id = $1 AND owner_id = $2`
	var project ProjectBudget
	err := r.db.QueryRow(ctx, query, id, ownerID).Scan(
		&project.ID,
		&project.OwnerID,
		&project.Name,
		&project.Currency,
		&project.ProjectTag,
		&project.StartDate,
		&project.EndDate,
		&project.Version,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProjectBudget{}, ErrProjectNotFound
	} else if err != nil {
		log.Errorf("failed to get project budget %s: %v", id, err)
		return ProjectBudget{}, err
	}

	if err := r.loadChildren(ctx, &project); err != nil {
		return ProjectBudget{}, err
	}
	return project, nil
}

func (r *RepoImpl) GetAllForUser(ctx context.Context, ownerID int) ([]ProjectBudget, error) {
	query := `SELECT id, owner_id, name, currency, project_tag, start_date, end_date, version
			FROM project_budget WHERE owner_id = $1 ORDER BY start_date, name`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		log.Errorf("failed to query project budgets for user %d: %v", ownerID, err)
		return nil, err
	}
	defer rows.Close()

	var projects []ProjectBudget
	for rows.Next() {
		var project ProjectBudget
		if err := rows.Scan(
			&project.ID,
			&project.OwnerID,
			&project.Name,
			&project.Currency,
			&project.ProjectTag,
			&project.StartDate,
			&project.EndDate,
			&project.Version,
		); err != nil {
			log.Errorf("failed to scan project budget: %v", err)
			return nil, err
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		log.Errorf("error iterating over project budgets: %v", err)
		return nil, err
	}

	for i := range projects {
		if err := r.loadChildren(ctx, &projects[i]); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

func (r *RepoImpl) Store(ctx context.Context, project ProjectBudget) (string, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO project_budget (id, owner_id, name, currency, project_tag, start_date, end_date, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 0)`
	_, err = tx.Exec(ctx, query,
		project.ID,
		project.OwnerID,
		project.Name,
		project.Currency,
		project.ProjectTag,
		project.StartDate,
		project.EndDate,
	)
	if err != nil {
		log.Errorf("failed to store project budget: %v", err)
		return "", err
	}
	if err := r.storeChildren(ctx, tx, project); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit project budget: %w", err)
	}
	return project.ID, nil
}

func (r *RepoImpl) Update(ctx context.Context, project ProjectBudget) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `UPDATE project_budget SET name = $1, currency = $2, project_tag = $3, start_date = $4, end_date = $5,
				version = version + 1
			WHERE id = $6 AND owner_id = $7 AND version = $8`
	tag, err := tx.Exec(ctx, query,
		project.Name,
		project.Currency,
		project.ProjectTag,
		project.StartDate,
		project.EndDate,
		project.ID,
		project.OwnerID,
		project.Version,
	)
	if err != nil {
		log.Errorf("failed to update project budget %s: %v", project.ID, err)
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either the project is gone or someone updated it first.
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM project_budget WHERE id = $1 AND owner_id = $2)`,
			project.ID, project.OwnerID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrProjectNotFound
		}
		return ErrVersionConflict
	}

	if _, err := tx.Exec(ctx, `DELETE FROM category_budget WHERE project_id = $1`, project.ID); err != nil {
		log.Errorf("failed to clear category budgets of project %s: %v", project.ID, err)
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM funding_source WHERE project_id = $1`, project.ID); err != nil {
		log.Errorf("failed to clear funding sources of project %s: %v", project.ID, err)
		return err
	}
	if err := r.storeChildren(ctx, tx, project); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit project budget update: %w", err)
	}
	return nil
}

func (r *RepoImpl) Delete(ctx context.Context, ownerID int, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM project_budget WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		log.Errorf("failed to delete project budget %s: %v", id, err)
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RepoImpl) loadChildren(ctx context.Context, project *ProjectBudget) error {
	budgetQuery := `SELECT cb.category_id, cb.sub_category_id, cb.budgeted_amount, cb.currency,
				COALESCE(array_agg(a.transaction_id ORDER BY a.position) FILTER (WHERE a.transaction_id IS NOT NULL), '{}')
			FROM category_budget cb
			LEFT JOIN category_budget_allocation a
				ON a.project_id = cb.project_id AND a.category_id = cb.category_id AND a.sub_category_id = cb.sub_category_id
			WHERE cb.project_id = $1
			GROUP BY cb.category_id, cb.sub_category_id, cb.budgeted_amount, cb.currency
			ORDER BY cb.category_id, cb.sub_category_id`
	rows, err := r.db.Query(ctx, budgetQuery, project.ID)
	if err != nil {
		log.Errorf("failed to query category budgets of project %s: %v", project.ID, err)
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var budget CategoryBudget
		if err := rows.Scan(
			&budget.CategoryID,
			&budget.SubCategoryID,
			&budget.BudgetedAmount,
			&budget.Currency,
			&budget.AllocatedTransactions,
		); err != nil {
			log.Errorf("failed to scan category budget: %v", err)
			return err
		}
		project.CategoryBudgets = append(project.CategoryBudgets, budget)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	fundingQuery := `SELECT type, description, expected_amount, available_amount, currency
			FROM funding_source WHERE project_id = $1 ORDER BY position`
	fundingRows, err := r.db.Query(ctx, fundingQuery, project.ID)
	if err != nil {
		log.Errorf("failed to query funding sources of project %s: %v", project.ID, err)
		return err
	}
	defer fundingRows.Close()
	for fundingRows.Next() {
		var source FundingSource
		if err := fundingRows.Scan(
			&source.Type,
			&source.Description,
			&source.ExpectedAmount,
			&source.AvailableAmount,
			&source.Currency,
		); err != nil {
			log.Errorf("failed to scan funding source: %v", err)
			return err
		}
		project.FundingSources = append(project.FundingSources, source)
	}
	return fundingRows.Err()
}

func (r *RepoImpl) storeChildren(ctx context.Context, tx pgx.Tx, project ProjectBudget) error {
	budgetQuery := `INSERT INTO category_budget (project_id, category_id, sub_category_id, budgeted_amount, currency)
			VALUES ($1, $2, $3, $4, $5)`
	allocationQuery := `INSERT INTO category_budget_allocation (project_id, category_id, sub_category_id, transaction_id, position)
			VALUES ($1, $2, $3, $4, $5)`
	for _, budget := range project.CategoryBudgets {
		if _, err := tx.Exec(ctx, budgetQuery,
			project.ID,
			budget.CategoryID,
			budget.SubCategoryID,
			budget.BudgetedAmount,
			budget.Currency,
		); err != nil {
			log.Errorf("failed to store category budget: %v", err)
			return err
		}
		for position, transactionID := range budget.AllocatedTransactions {
			if _, err := tx.Exec(ctx, allocationQuery,
				project.ID,
				budget.CategoryID,
				budget.SubCategoryID,
				transactionID,
				position,
			); err != nil {
				log.Errorf("failed to store allocation: %v", err)
				return err
			}
		}
	}

	fundingQuery := `INSERT INTO funding_source (project_id, position, type, description, expected_amount, available_amount, currency)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for position, source := range project.FundingSources {
		if _, err := tx.Exec(ctx, fundingQuery,
			project.ID,
			position,
			source.Type,
			source.Description,
			source.ExpectedAmount,
			source.AvailableAmount,
			source.Currency,
		); err != nil {
			log.Errorf("failed to store funding source: %v", err)
			return err
		}
	}
	return nil
}
