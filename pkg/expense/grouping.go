package expense

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/moneymap/moneymap/pkg/currency"
	"github.com/moneymap/moneymap/pkg/transaction"
	log "github.com/sirupsen/logrus"
)

// Grouper folds installment postings of the same original charge into one
// logical expense. Transactions without installment data pass through as
// single expenses.
type Grouper struct {
	converter currency.ConversionService
}

func NewGrouper(converter currency.ConversionService) *Grouper {
	return &Grouper{converter: converter}
}

// FindRelated returns all candidates sharing tx's installment group key,
// minus any whose id appears in excludedIDs. Returns nil when tx is not an
// installment.
func FindRelated(tx transaction.Transaction, candidates []transaction.Transaction, excludedIDs []string) []transaction.Transaction {
	key, ok := KeyOf(tx)
	if !ok {
		return nil
	}
	var related []transaction.Transaction
	for _, candidate := range candidates {
		if slices.Contains(excludedIDs, candidate.ID) {
			continue
		}
		candidateKey, ok := KeyOf(candidate)
		if ok && candidateKey == key {
			related = append(related, candidate)
		}
	}
	return related
}

// MembersOf returns the transactions belonging to the given group key.
func MembersOf(key GroupKey, candidates []transaction.Transaction) []transaction.Transaction {
	var members []transaction.Transaction
	for _, candidate := range candidates {
		candidateKey, ok := KeyOf(candidate)
		if ok && candidateKey == key {
			members = append(members, candidate)
		}
	}
	return members
}

// Group partitions transactions into expenses and converts each into
// targetCurrency. Installment postings sharing a group key collapse into one
// group expense; a series with only one visible member stays single. A failed
// conversion degrades that expense to its unconverted amount, it never fails
// the whole batch.
func (g *Grouper) Group(ctx context.Context, transactions []transaction.Transaction, targetCurrency string) []Expense {
	var singles []transaction.Transaction
	groups := map[GroupKey][]transaction.Transaction{}
	var groupOrder []GroupKey

	for _, tx := range transactions {
		key, ok := KeyOf(tx)
		if !ok {
			singles = append(singles, tx)
			continue
		}
		if _, seen := groups[key]; !seen {
			groupOrder = append(groupOrder, key)
		}
		groups[key] = append(groups[key], tx)
	}

	expenses := make([]Expense, 0, len(singles)+len(groupOrder))
	for _, tx := range singles {
		expenses = append(expenses, g.singleExpense(ctx, tx, targetCurrency))
	}
	for _, key := range groupOrder {
		members := groups[key]
		if len(members) == 1 {
			// The rest of the series is not visible here (e.g. untagged);
			// treat the lone posting as a single expense.
			expenses = append(expenses, g.singleExpense(ctx, members[0], targetCurrency))
			continue
		}
		expenses = append(expenses, g.groupExpense(ctx, key, members, targetCurrency))
	}
	return expenses
}

func (g *Grouper) singleExpense(ctx context.Context, tx transaction.Transaction, targetCurrency string) Expense {
	amount := math.Abs(tx.Amount)
	conversion := g.convertDegraded(ctx, amount, tx.Currency, targetCurrency, tx.ProcessedDate)
	return Expense{
		ID:                 tx.ID,
		Kind:               KindSingle,
		Amount:             amount,
		Currency:           tx.Currency,
		ConvertedAmount:    conversion.ConvertedAmount,
		ExchangeRate:       conversion.ExchangeRate,
		ConversionFallback: conversion.Fallback,
		ConversionDegraded: conversion.degraded,
		CategoryID:         tx.CategoryID,
		SubCategoryID:      tx.SubCategoryID,
		Date:               tx.ProcessedDate,
		InstallmentCount:   1,
		Transactions:       []transaction.Transaction{tx},
	}
}

func (g *Grouper) groupExpense(ctx context.Context, key GroupKey, members []transaction.Transaction, targetCurrency string) Expense {
	totalAmount := 0.0
	totalConverted := 0.0
	fallback := false
	degraded := false
	date := members[0].ProcessedDate
	for _, member := range members {
		amount := math.Abs(member.Amount)
		conversion := g.convertDegraded(ctx, amount, member.Currency, targetCurrency, member.ProcessedDate)
		totalAmount += amount
		totalConverted += conversion.ConvertedAmount
		fallback = fallback || conversion.Fallback
		degraded = degraded || conversion.degraded
		if member.ProcessedDate.Before(date) {
			date = member.ProcessedDate
		}
	}
	return Expense{
		ID:                 FormatGroupID(key),
		Kind:               KindGroup,
		Amount:             totalAmount,
		Currency:           members[0].Currency,
		ConvertedAmount:    totalConverted,
		ConversionFallback: fallback,
		ConversionDegraded: degraded,
		CategoryID:         members[0].CategoryID,
		SubCategoryID:      members[0].SubCategoryID,
		Date:               date,
		InstallmentCount:   len(members),
		Transactions:       members,
	}
}

type degradedConversion struct {
	currency.Conversion
	degraded bool
}

// convertDegraded never fails: when no rate resolves, the original amount is
// treated as if already in the target currency so aggregates stay computable.
func (g *Grouper) convertDegraded(ctx context.Context, amount float64, from, to string, asOf time.Time) degradedConversion {
	conversion, err := g.converter.Convert(ctx, amount, from, to, asOf, true)
	if err != nil {
		log.Warnf("conversion of %.2f %s to %s degraded to original amount: %v", amount, from, to, err)
		return degradedConversion{
			Conversion: currency.Conversion{ConvertedAmount: amount, ExchangeRate: 1},
			degraded:   true,
		}
	}
	return degradedConversion{Conversion: conversion}
}
