package ledger

import (
	"copraledger/internal/model"

	"github.com/shopspring/decimal"
)

const (
	// idealTransactionCycle is the transaction count at which the count
	// sub-score saturates at 100.
	idealTransactionCycle = 10

	// starterScore is the fixed score granted after a single completed
	// transaction, enough history to open a small credit line.
	starterScore = 20
)

var (
	hundred = decimal.NewFromInt(100)

	// creditPercentage is the fixed share of the average transaction value a
	// supplier may borrow. Policy: flat 40% for every score band.
	creditPercentage = decimal.NewFromFloat(0.40)
)

// ScoreCard is the result of scoring a supplier's completed transaction history.
type ScoreCard struct {
	Score                  int
	TransactionConsistency decimal.Decimal
	TotalSupplyScore       decimal.Decimal
	TransactionCountScore  decimal.Decimal
	EligibleAmount         decimal.Decimal
	TransactionCount       int
	CreditPercentage       decimal.Decimal
	AverageTransaction     decimal.Decimal
}

// Eligible reports whether the supplier qualifies for a loan at all.
// Any completed transaction history qualifies; the size limit comes from
// EligibleAmount.
func (c ScoreCard) Eligible() bool {
	return c.TransactionCount > 0
}

// ScoreSupplier derives a credit score card from a supplier's completed
// transactions. The input must already exclude cancelled, voided, and
// soft-deleted transactions. The function is pure: identical input always
// yields an identical card.
func ScoreSupplier(transactions []model.Transaction) ScoreCard {
	count := len(transactions)
	if count == 0 {
		return ScoreCard{
			TransactionConsistency: decimal.Zero,
			TotalSupplyScore:       decimal.Zero,
			TransactionCountScore:  decimal.Zero,
			EligibleAmount:         decimal.Zero,
			CreditPercentage:       decimal.Zero,
			AverageTransaction:     decimal.Zero,
		}
	}

	if count == 1 {
		amount := transactions[0].TotalAmount
		return ScoreCard{
			Score:                  starterScore,
			TransactionConsistency: hundred,
			TotalSupplyScore:       hundred,
			TransactionCountScore:  decimal.NewFromInt(10),
			EligibleAmount:         amount.Mul(creditPercentage).Round(0),
			TransactionCount:       1,
			CreditPercentage:       creditPercentage,
			AverageTransaction:     amount,
		}
	}

	min := transactions[0].TotalAmount
	max := transactions[0].TotalAmount
	sum := decimal.Zero
	for _, txn := range transactions {
		amount := txn.TotalAmount
		if amount.LessThan(min) {
			min = amount
		}
		if amount.GreaterThan(max) {
			max = amount
		}
		sum = sum.Add(amount)
	}

	countDec := decimal.NewFromInt(int64(count))

	consistency := hundred.Mul(min).Div(max)
	supply := hundred.Mul(sum).Div(max.Mul(countDec))

	countScore := hundred.Mul(countDec).Div(decimal.NewFromInt(idealTransactionCycle))
	if countScore.GreaterThan(hundred) {
		countScore = hundred
	}

	average := sum.Div(countDec)
	score := consistency.Add(supply).Add(countScore).Div(decimal.NewFromInt(3)).Round(0)

	return ScoreCard{
		Score:                  int(score.IntPart()),
		TransactionConsistency: consistency,
		TotalSupplyScore:       supply,
		TransactionCountScore:  countScore,
		EligibleAmount:         average.Mul(creditPercentage).Round(0),
		TransactionCount:       count,
		CreditPercentage:       creditPercentage,
		AverageTransaction:     average,
	}
}
