package ledger

import (
	"time"

	"copraledger/internal/model"

	"github.com/shopspring/decimal"
)

// PaymentSplit describes how one payment was divided between interest and
// principal. Amount is the applied amount after clamping at the loan's
// remaining balance, so Amount == InterestPortion + PrincipalPortion.
type PaymentSplit struct {
	Amount           decimal.Decimal
	InterestPortion  decimal.Decimal
	PrincipalPortion decimal.Decimal
	LoanPaid         bool
}

// ApplyPayment allocates a payment against a loan, interest first, and updates
// the loan's cumulative totals in place. The applied amount is clamped at the
// remaining balance so TotalPaid can never exceed TotalAmountWithInterest.
// The loan flips to PAID, stamped with the payment date, once fully covered.
//
// The caller is responsible for persisting the loan and the matching
// LoanPayment row inside one database transaction.
func ApplyPayment(loan *model.Loan, amount decimal.Decimal, paymentDate time.Time) (PaymentSplit, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return PaymentSplit{}, ErrInvalidAmount
	}
	if loan.Status != model.LoanStatusApproved {
		return PaymentSplit{}, ErrInvalidLoanState
	}

	remaining := loan.RemainingBalance()
	if remaining.LessThanOrEqual(decimal.Zero) {
		return PaymentSplit{}, ErrInvalidLoanState
	}

	applied := amount
	if applied.GreaterThan(remaining) {
		applied = remaining
	}

	// Interest is charged flat on the principal and retired before any
	// principal paydown.
	interestRemaining := loan.TotalAmountWithInterest.Sub(loan.Amount).Sub(loan.InterestPaid)
	if interestRemaining.IsNegative() {
		interestRemaining = decimal.Zero
	}

	interestPortion := applied
	if interestPortion.GreaterThan(interestRemaining) {
		interestPortion = interestRemaining
	}
	principalPortion := applied.Sub(interestPortion)

	loan.TotalPaid = loan.TotalPaid.Add(applied)
	loan.InterestPaid = loan.InterestPaid.Add(interestPortion)
	loan.PrincipalPaid = loan.PrincipalPaid.Add(principalPortion)

	split := PaymentSplit{
		Amount:           applied,
		InterestPortion:  interestPortion,
		PrincipalPortion: principalPortion,
	}

	if loan.TotalPaid.GreaterThanOrEqual(loan.TotalAmountWithInterest) {
		loan.Status = model.LoanStatusPaid
		completed := paymentDate
		loan.CompletedAt = &completed
		split.LoanPaid = true
	}

	return split, nil
}
