package category

import (
	"context"
	"time"

	"github.com/moneymap/moneymap/internal/cache"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	// CategoryName resolves a category's display name. Lookup failures
	// degrade to an empty name, they never fail the caller.
	CategoryName(ctx context.Context, id string) string
	SubCategoryName(ctx context.Context, id string) string
}

type ServiceImpl struct {
	repo          Repo
	categories    cache.Cache[string]
	subCategories cache.Cache[string]
}

func NewService(repo Repo) *ServiceImpl {
	return &ServiceImpl{
		repo:          repo,
		categories:    cache.NewLRU[string](512, 15*time.Minute),
		subCategories: cache.NewLRU[string](2048, 15*time.Minute),
	}
}

func (s *ServiceImpl) CategoryName(ctx context.Context, id string) string {
	if id == "" {
		return ""
	}
	if name, ok := s.categories.Get(id); ok {
		return name
	}
	category, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		log.Debugf("category name lookup for %s failed: %v", id, err)
		return ""
	}
	s.categories.Set(id, category.Name)
	return category.Name
}

func (s *ServiceImpl) SubCategoryName(ctx context.Context, id string) string {
	if id == "" {
		return ""
	}
	if name, ok := s.subCategories.Get(id); ok {
		return name
	}
	subCategory, err := s.repo.GetSubCategory(ctx, id)
	if err != nil {
		log.Debugf("sub-category name lookup for %s failed: %v", id, err)
		return ""
	}
	s.subCategories.Set(id, subCategory.Name)
	return subCategory.Name
}
