package transaction

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrTransactionNotFound = errors.New("transaction not found")

type Repo interface {
	FindByID(ctx context.Context, ownerID int, id string) (Transaction, error)
	FindByTag(ctx context.Context, ownerID int, tagID string) ([]Transaction, error)
	// UpdateCategory re-labels the transaction's category pair.
	UpdateCategory(ctx context.Context, ownerID int, id string, categoryID, subCategoryID string) error
	AddTags(ctx context.Context, ownerID int, id string, tagIDs []string) error
	RemoveTags(ctx context.Context, ownerID int, id string, tagIDs []string) error
}

type RepoImpl struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *RepoImpl {
	return &RepoImpl{db: db}
}

func (r *RepoImpl) FindByID(ctx context.Context, ownerID int, id string) (Transaction, error) {
	query := `SELECT t.id, t.amount, t.currency, t.processed_date, t.category_id, t.sub_category_id,
				COALESCE(array_agg(tt.tag_id) FILTER (WHERE tt.tag_id IS NOT NULL), '{}'),
				t.installment_identifier, t.installment_original_amount, t.installment_number, t.installment_total
			FROM transactions t
			LEFT JOIN transaction_tags tt ON tt.transaction_id = t.id
			WHERE t.id = $1 AND t.owner_id = $2
			GROUP BY t.id`
	row := r.db.QueryRow(ctx, query, id, ownerID)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrTransactionNotFound
	} else if err != nil {
		log.Errorf("failed to get transaction %s: %v", id, err)
		return Transaction{}, err
	}
	return tx, nil
}

func (r *RepoImpl) FindByTag(ctx context.Context, ownerID int, tagID string) ([]Transaction, error) {
	query := `SELECT t.id, t.amount, t.currency, t.processed_date, t.category_id, t.sub_category_id,
				COALESCE(array_agg(tt.tag_id) FILTER (WHERE tt.tag_id IS NOT NULL), '{}'),
				t.installment_identifier, t.installment_original_amount, t.installment_number, t.installment_total
			FROM transactions t
			JOIN transaction_tags tagged ON tagged.transaction_id = t.id AND tagged.tag_id = $1
			LEFT JOIN transaction_tags tt ON tt.transaction_id = t.id
			WHERE t.owner_id = $2
			GROUP BY t.id
			ORDER BY t.processed_date`
	rows, err := r.db.Query(ctx, query, tagID, ownerID)
	if err != nil {
		log.Errorf("failed to query transactions by tag %s: %v", tagID, err)
		return nil, err
	}
	defer rows.Close()

	var transactions []Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			log.Errorf("failed to scan transaction: %v", err)
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		log.Errorf("error iterating over transactions: %v", err)
		return nil, err
	}
	return transactions, nil
}

func (r *RepoImpl) UpdateCategory(ctx context.Context, ownerID int, id string, categoryID, subCategoryID string) error {
	query := `UPDATE transactions SET category_id = $1, sub_category_id = $2 WHERE id = $3 AND owner_id = $4`
	tag, err := r.db.Exec(ctx, query, categoryID, subCategoryID, id, ownerID)
	if err != nil {
		log.Errorf("failed to update category of transaction %s: %v", id, err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *RepoImpl) AddTags(ctx context.Context, ownerID int, id string, tagIDs []string) error {
	// Ownership check first so a foreign transaction id reports not-found
	// instead of silently inserting tags.
	if _, err := r.FindByID(ctx, ownerID, id); err != nil {
		return err
	}
	query := `INSERT INTO transaction_tags (transaction_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, tagID := range tagIDs {
		if _, err := r.db.Exec(ctx, query, id, tagID); err != nil {
			log.Errorf("failed to tag transaction %s with %s: %v", id, tagID, err)
			return err
		}
	}
	return nil
}

func (r *RepoImpl) RemoveTags(ctx context.Context, ownerID int, id string, tagIDs []string) error {
	if _, err := r.FindByID(ctx, ownerID, id); err != nil {
		return err
	}
	query := `DELETE FROM transaction_tags WHERE transaction_id = $1 AND tag_id = $2`
	for _, tagID := range tagIDs {
		if _, err := r.db.Exec(ctx, query, id, tagID); err != nil {
			log.Errorf("failed to untag transaction %s from %s: %v", id, tagID, err)
			return err
		}
	}
	return nil
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var tx Transaction
	var instIdentifier *string
	var instOriginalAmount *float64
	var instNumber, instTotal *int
	err := row.Scan(
		&tx.ID,
		&tx.Amount,
		&tx.Currency,
		&tx.ProcessedDate,
		&tx.CategoryID,
		&tx.SubCategoryID,
		&tx.Tags,
		&instIdentifier,
		&instOriginalAmount,
		&instNumber,
		&instTotal,
	)
	if err != nil {
		return Transaction{}, err
	}
	if instIdentifier != nil && instOriginalAmount != nil {
		info := &InstallmentInfo{
			Identifier:     *instIdentifier,
			OriginalAmount: *instOriginalAmount,
		}
		if instNumber != nil {
			info.Number = *instNumber
		}
		if instTotal != nil {
			info.Total = *instTotal
		}
		tx.Installment = info
	}
	return tx, nil
}
