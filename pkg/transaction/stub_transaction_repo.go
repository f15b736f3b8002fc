package transaction

import (
	"context"
	"slices"
	"sort"
)

type StubRepo struct {
	data map[string]Transaction
	// Failures maps transaction ids to an error returned by mutating calls,
	// for exercising partial-failure paths.
	Failures map[string]error
}

func NewStubRepo() *StubRepo {
	return &StubRepo{data: map[string]Transaction{}, Failures: map[string]error{}}
}

// Add seeds the stub with a transaction, replacing any previous one with the same id.
func (s *StubRepo) Add(tx Transaction) {
	s.data[tx.ID] = tx
}

func (s *StubRepo) Get(id string) (Transaction, bool) {
	tx, ok := s.data[id]
	return tx, ok
}

func (s *StubRepo) FindByID(ctx context.Context, ownerID int, id string) (Transaction, error) {
	tx, ok := s.data[id]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	return tx, nil
}

func (s *StubRepo) FindByTag(ctx context.Context, ownerID int, tagID string) ([]Transaction, error) {
	var transactions []Transaction
	for _, tx := range s.data {
		if tx.HasTag(tagID) {
			transactions = append(transactions, tx)
		}
	}
	sort.Slice(transactions, func(i, j int) bool {
		if transactions[i].ProcessedDate.Equal(transactions[j].ProcessedDate) {
			return transactions[i].ID < transactions[j].ID
		}
		return transactions[i].ProcessedDate.Before(transactions[j].ProcessedDate)
	})
	return transactions, nil
}

func (s *StubRepo) UpdateCategory(ctx context.Context, ownerID int, id string, categoryID, subCategoryID string) error {
	if err := s.Failures[id]; err != nil {
		return err
	}
	tx, ok := s.data[id]
	if !ok {
		return ErrTransactionNotFound
	}
	tx.CategoryID = categoryID
	tx.SubCategoryID = subCategoryID
	s.data[id] = tx
	return nil
}

func (s *StubRepo) AddTags(ctx context.Context, ownerID int, id string, tagIDs []string) error {
	if err := s.Failures[id]; err != nil {
		return err
	}
	tx, ok := s.data[id]
	if !ok {
		return ErrTransactionNotFound
	}
	for _, tagID := range tagIDs {
		if !tx.HasTag(tagID) {
			tx.Tags = append(tx.Tags, tagID)
		}
	}
	s.data[id] = tx
	return nil
}

func (s *StubRepo) RemoveTags(ctx context.Context, ownerID int, id string, tagIDs []string) error {
	tx, ok := s.data[id]
	if !ok {
		return ErrTransactionNotFound
	}
	tx.Tags = slices.DeleteFunc(slices.Clone(tx.Tags), func(tag string) bool {
		return slices.Contains(tagIDs, tag)
	})
	s.data[id] = tx
	return nil
}

func (s *StubRepo) Cleanup() {
	s.data = map[string]Transaction{}
	s.Failures = map[string]error{}
}
