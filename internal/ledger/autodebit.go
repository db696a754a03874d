package ledger

import (
	"fmt"
	"sort"

	"copraledger/internal/model"

	"github.com/shopspring/decimal"
)

// autoDebitCeilingRate caps how much of a transaction's proceeds may be
// withheld for loan repayment, protecting the supplier's cash flow.
var autoDebitCeilingRate = decimal.NewFromFloat(0.40)

// Deduction is one auto-debit applied against a single loan.
type Deduction struct {
	Loan    *model.Loan
	Amount  decimal.Decimal
	Split   PaymentSplit
	Payment model.LoanPayment
}

// AllocationResult is the outcome of auto-debiting a completed transaction.
type AllocationResult struct {
	TotalDeduction       decimal.Decimal
	Deductions           []Deduction
	AmountAfterDeduction decimal.Decimal
}

// AllocateAutoDebit walks a supplier's outstanding loans oldest-first and
// retires them from the transaction's proceeds, capped at 40% of the
// transaction total. Loans are mutated in place via ApplyPayment; each
// deduction carries a ready-to-persist LoanPayment row whose reference number
// embeds the transaction id.
//
// Returns ErrAlreadyAllocated if the transaction already carries loan
// payments — allocation must run exactly once per completion.
func AllocateAutoDebit(txn *model.Transaction, loans []*model.Loan) (AllocationResult, error) {
	if len(txn.LoanPayments) > 0 {
		return AllocationResult{}, ErrAlreadyAllocated
	}

	// FIFO: oldest debt is retired first.
	ordered := make([]*model.Loan, len(loans))
	copy(ordered, loans)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	budget := txn.TotalAmount.Mul(autoDebitCeilingRate)
	result := AllocationResult{
		TotalDeduction:       decimal.Zero,
		AmountAfterDeduction: txn.TotalAmount,
	}

	for _, loan := range ordered {
		if budget.LessThanOrEqual(decimal.Zero) {
			break
		}
		if loan.SupplierID != txn.SupplierID || loan.Status != model.LoanStatusApproved {
			continue
		}
		remaining := loan.RemainingBalance()
		if remaining.LessThanOrEqual(decimal.Zero) {
			continue
		}

		amount := budget
		if amount.GreaterThan(remaining) {
			amount = remaining
		}

		split, err := ApplyPayment(loan, amount, txn.TransactionDate)
		if err != nil {
			return AllocationResult{}, fmt.Errorf("auto-debit against loan %s: %w", loan.ID, err)
		}

		txnID := txn.ID
		payment := model.LoanPayment{
			LoanID:           loan.ID,
			TransactionID:    &txnID,
			Amount:           split.Amount,
			InterestPortion:  split.InterestPortion,
			PrincipalPortion: split.PrincipalPortion,
			PaymentMethod:    model.PaymentMethodAutoDebit,
			PaymentDate:      txn.TransactionDate,
			ReferenceNumber:  fmt.Sprintf("AD-%s-%d", txn.ID, len(result.Deductions)+1),
		}

		result.Deductions = append(result.Deductions, Deduction{
			Loan:    loan,
			Amount:  split.Amount,
			Split:   split,
			Payment: payment,
		})
		result.TotalDeduction = result.TotalDeduction.Add(split.Amount)
		budget = budget.Sub(split.Amount)
	}

	result.AmountAfterDeduction = txn.TotalAmount.Sub(result.TotalDeduction)
	return result, nil
}
