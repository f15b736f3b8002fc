package expense

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/moneymap/moneymap/pkg/transaction"
)

type Kind string

const (
	KindSingle Kind = "single"
	KindGroup  Kind = "group"
)

var ErrInvalidGroupID = errors.New("invalid installment group identifier")

// groupIDPattern is the wire format accepted from and produced for HTTP
// clients. Internally expenses are addressed through Ref / GroupKey.
var groupIDPattern = regexp.MustCompile(`^installment-group-(.+?)--([0-9.-]+)$`)

// GroupKey identifies one original charge across its installment postings.
// OriginalAmount is always kept as an absolute value.
type GroupKey struct {
	Identifier     string
	OriginalAmount float64
}

// Ref addresses either a single transaction or an installment group. Exactly
// one of TransactionID and Group is set.
type Ref struct {
	TransactionID string
	Group         *GroupKey
}

func SingleRef(transactionID string) Ref {
	return Ref{TransactionID: transactionID}
}

func GroupRef(key GroupKey) Ref {
	return Ref{Group: &key}
}

// Expense is a derived view over one or more transactions, never persisted.
type Expense struct {
	ID     string
	Kind   Kind
	Amount float64
	// Currency is the currency the underlying transactions were charged in.
	Currency string
	// ConvertedAmount is Amount expressed in the requested target currency.
	ConvertedAmount    float64
	ExchangeRate       float64
	ConversionFallback bool
	// ConversionDegraded is set when no rate could be resolved and the
	// original amount was carried over unconverted.
	ConversionDegraded bool
	CategoryID         string
	SubCategoryID      string
	Date               time.Time
	InstallmentCount   int
	Transactions       []transaction.Transaction
}

// KeyOf extracts the group key of an installment transaction.
func KeyOf(tx transaction.Transaction) (GroupKey, bool) {
	if tx.Installment == nil {
		return GroupKey{}, false
	}
	return GroupKey{
		Identifier:     tx.Installment.Identifier,
		OriginalAmount: math.Abs(tx.Installment.OriginalAmount),
	}, true
}

// FormatGroupID renders the group key in its string wire format:
// installment-group-<identifier>--<abs(originalAmount)>.
func FormatGroupID(key GroupKey) string {
	return fmt.Sprintf("installment-group-%s--%s",
		key.Identifier, strconv.FormatFloat(math.Abs(key.OriginalAmount), 'f', -1, 64))
}

// ParseGroupID reconstructs a group key from its string wire format.
func ParseGroupID(id string) (GroupKey, error) {
	match := groupIDPattern.FindStringSubmatch(id)
	if match == nil {
		return GroupKey{}, fmt.Errorf("%w: %q", ErrInvalidGroupID, id)
	}
	amount, err := strconv.ParseFloat(match[2], 64)
	if err != nil {
		return GroupKey{}, fmt.Errorf("%w: %q", ErrInvalidGroupID, id)
	}
	return GroupKey{Identifier: match[1], OriginalAmount: math.Abs(amount)}, nil
}
