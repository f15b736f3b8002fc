package transaction

import (
	"slices"
	"time"
)

// InstallmentInfo marks a transaction as one posting of a charge that was
// split by the card issuer into multiple installments.
type InstallmentInfo struct {
	// Identifier is shared by every posting of the same original charge.
	Identifier string
	// OriginalAmount is the amount of the original charge, before splitting.
	OriginalAmount float64
	Number         int
	Total          int
}

// Transaction is owned by the transaction store. This core reads transactions,
// re-labels their category, and adds/removes tags; it never creates or
// deletes them.
type Transaction struct {
	ID            string
	Amount        float64
	Currency      string
	ProcessedDate time.Time
	CategoryID    string
	SubCategoryID string
	Tags          []string
	Installment   *InstallmentInfo
}

func (t Transaction) HasTag(tagID string) bool {
	return slices.Contains(t.Tags, tagID)
}

func (t Transaction) IsInstallment() bool {
	return t.Installment != nil
}
