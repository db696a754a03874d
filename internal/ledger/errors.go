package ledger

import "errors"

var (
	// ErrInvalidAmount is returned when a payment or deduction amount is not positive.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrInvalidLoanState is returned when a payment targets a loan that is not APPROVED
	// or has no remaining balance.
	ErrInvalidLoanState = errors.New("loan is not in a payable state")

	// ErrNotEligible is returned when a loan request exceeds the supplier's
	// computed eligible amount or the supplier has no transaction history.
	ErrNotEligible = errors.New("supplier is not eligible for the requested loan amount")

	// ErrInvalidTransition is returned when a status change is not legal for
	// the entity's current status.
	ErrInvalidTransition = errors.New("operation not allowed for current status")

	// ErrAlreadyAllocated guards auto-debit idempotency: a transaction that
	// already carries loan payments must not be allocated again.
	ErrAlreadyAllocated = errors.New("transaction already has loan deductions allocated")

	// ErrOrphanedPaymentRef is returned when a reversal cannot resolve a loan
	// recorded on one of the transaction's payments.
	ErrOrphanedPaymentRef = errors.New("recorded loan payment references a missing loan")

	// ErrPaymentMismatch is returned when a payment row does not belong to the
	// loan it is being reversed against.
	ErrPaymentMismatch = errors.New("payment does not belong to loan")
)
