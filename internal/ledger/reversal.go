package ledger

import "copraledger/internal/model"

// ReversePayment undoes one recorded loan payment against its loan, using the
// interest/principal split stored on the payment row rather than recomputing
// from current aggregates — this is what makes a cancel/void an exact inverse
// of the original allocation.
//
// A PAID loan whose total falls back under TotalAmountWithInterest reverts to
// APPROVED and loses its completion stamp. The caller deletes the payment row
// and persists the loan in the same database transaction.
func ReversePayment(loan *model.Loan, payment *model.LoanPayment) error {
	if payment.LoanID != loan.ID {
		return ErrPaymentMismatch
	}

	loan.TotalPaid = loan.TotalPaid.Sub(payment.Amount)
	loan.InterestPaid = loan.InterestPaid.Sub(payment.InterestPortion)
	loan.PrincipalPaid = loan.PrincipalPaid.Sub(payment.PrincipalPortion)

	if loan.Status == model.LoanStatusPaid && loan.TotalPaid.LessThan(loan.TotalAmountWithInterest) {
		loan.Status = model.LoanStatusApproved
		loan.CompletedAt = nil
	}

	return nil
}
