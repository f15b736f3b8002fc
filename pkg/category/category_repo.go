package category

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrCategoryNotFound = errors.New("category not found")

// Repo is read-only: categories are managed elsewhere, this core only needs
// display names.
type Repo interface {
	GetCategory(ctx context.Context, id string) (Category, error)
	GetSubCategory(ctx context.Context, id string) (SubCategory, error)
}

type RepoImpl struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *RepoImpl {
	return &RepoImpl{db: db}
}

func (r *RepoImpl) GetCategory(ctx context.Context, id string) (Category, error) {
	query := `SELECT id, name FROM category WHERE id = $1`
	var category Category
	err := r.db.QueryRow(ctx, query, id).Scan(&category.ID, &category.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, ErrCategoryNotFound
	} else if err != nil {
		log.Errorf("failed to get category %s: %v", id, err)
		return Category{}, err
	}
	return category, nil
}

func (r *RepoImpl) GetSubCategory(ctx context.Context, id string) (SubCategory, error) {
	query := `SELECT id, category_id, name FROM sub_category WHERE id = $1`
	var subCategory SubCategory
	err := r.db.QueryRow(ctx, query, id).Scan(&subCategory.ID, &subCategory.CategoryID, &subCategory.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return SubCategory{}, ErrCategoryNotFound
	} else if err != nil {
		log.Errorf("failed to get sub-category %s: %v", id, err)
		return SubCategory{}, err
	}
	return subCategory, nil
}
