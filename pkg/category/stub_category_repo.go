package category

import "context"

type StubRepo struct {
	categories    map[string]Category
	subCategories map[string]SubCategory
	// Lookups counts repo hits so tests can assert read-through caching.
	Lookups int
}

func NewStubRepo() *StubRepo {
	return &StubRepo{
		categories:    map[string]Category{},
		subCategories: map[string]SubCategory{},
	}
}

func (s *StubRepo) AddCategory(category Category) {
	s.categories[category.ID] = category
}

func (s *StubRepo) AddSubCategory(subCategory SubCategory) {
	s.subCategories[subCategory.ID] = subCategory
}

func (s *StubRepo) GetCategory(ctx context.Context, id string) (Category, error) {
	s.Lookups++
	category, ok := s.categories[id]
	if !ok {
		return Category{}, ErrCategoryNotFound
	}
	return category, nil
}

func (s *StubRepo) GetSubCategory(ctx context.Context, id string) (SubCategory, error) {
	s.Lookups++
	subCategory, ok := s.subCategories[id]
	if !ok {
		return SubCategory{}, ErrCategoryNotFound
	}
	return subCategory, nil
}

func (s *StubRepo) Cleanup() {
	s.categories = map[string]Category{}
	s.subCategories = map[string]SubCategory{}
	s.Lookups = 0
}
