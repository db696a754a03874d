package service

import (
	"context"
	"fmt"

	"copraledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceAggregator is the single writer of Supplier.CurrentBalance. Every
// loan or payment mutation recomputes the balance through here — no other
// component writes the field.
type BalanceAggregator interface {
	// Recalculate recomputes sum(loan.amount - loan.total_paid) over the
	// supplier's APPROVED loans, persists it, and returns the new balance.
	// Safe to call redundantly.
	Recalculate(ctx context.Context, supplierID uuid.UUID) (decimal.Decimal, error)
}

type balanceAggregator struct {
	loanRepo     repository.LoanRepository
	supplierRepo repository.SupplierRepository
}

func NewBalanceAggregator(loanRepo repository.LoanRepository, supplierRepo repository.SupplierRepository) BalanceAggregator {
	return &balanceAggregator{loanRepo: loanRepo, supplierRepo: supplierRepo}
}

func (a *balanceAggregator) Recalculate(ctx context.Context, supplierID uuid.UUID) (decimal.Decimal, error) {
	balance, err := a.loanRepo.SumOutstandingPrincipal(ctx, supplierID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum outstanding loans: %w", err)
	}
	if err := a.supplierRepo.UpdateBalance(ctx, supplierID, balance); err != nil {
		return decimal.Zero, fmt.Errorf("failed to write supplier balance: %w", err)
	}
	return balance, nil
}
