package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"copraledger/internal/ledger"
	"copraledger/internal/model"

	"github.com/shopspring/decimal"
)

func TestCreateTransactionAutoDebit(t *testing.T) {
	store := newFakeStore()
	supplier := store.seedSupplier(true)
	loan := store.seedLoan(supplier.ID, "1000", "10", model.LoanStatusApproved, time.Now().Add(-time.Hour))

	svc := newTestTransactionService(store)

	resp, err := svc.CreateTransaction(context.Background(), "", CreateTransactionRequest{
		SupplierID: supplier.ID.String(),
		Quantity:   "200",
		UnitPrice:  "10",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	if resp.Status != model.TxStatusCompleted {
		t.Errorf("Status = %s, want COMPLETED", resp.Status)
	}
	if resp.TotalAmount != "2000.0000" {
		t.Errorf("TotalAmount = %s, want 2000.0000", resp.TotalAmount)
	}
	// Auto-debit ceiling: 40% of 2000 = 800.
	if resp.LoanDeduction != "800.0000" {
		t.Errorf("LoanDeduction = %s, want 800.0000", resp.LoanDeduction)
	}
	if resp.AmountAfterDeduction != "1200.0000" {
		t.Errorf("AmountAfterDeduction = %s, want 1200.0000", resp.AmountAfterDeduction)
	}
	if resp.PaidAmount != "1200.0000" {
		t.Errorf("PaidAmount = %s, want 1200.0000", resp.PaidAmount)
	}
	if resp.CreditScoreStale {
		t.Error("CreditScoreStale = true, want false")
	}

	if len(resp.LoanPayments) != 1 {
		t.Fatalf("LoanPayments = %d, want 1", len(resp.LoanPayments))
	}
	deduction := resp.LoanPayments[0]
	if deduction.InterestPortion != "100.0000" || deduction.PrincipalPortion != "700.0000" {
		t.Errorf("split = %s/%s, want 100.0000/700.0000", deduction.InterestPortion, deduction.PrincipalPortion)
	}

	stored := store.loans[loan.ID]
	if !stored.TotalPaid.Equal(decimal.NewFromInt(800)) {
		t.Errorf("loan TotalPaid = %s, want 800", stored.TotalPaid)
	}

	// Balance tracks amount minus total paid on the open loan: 1000 - 800.
	balance := store.suppliers[supplier.ID].CurrentBalance
	if !balance.Equal(decimal.NewFromInt(200)) {
		t.Errorf("supplier balance = %s, want 200", balance)
	}

	if len(store.scores) != 1 {
		t.Errorf("score rows = %d, want 1 (post-commit refresh)", len(store.scores))
	}
	if store.lastAuditAction() != model.ActionCreateTransaction {
		t.Errorf("audit action = %s, want CREATE_TRANSACTION", store.lastAuditAction())
	}
}

func TestCreateTransactionNoOutstandingLoans(t *testing.T) {
	store := newFakeStore()
	supplier := store.seedSupplier(true)

	svc := newTestTransactionService(store)

	resp, err := svc.CreateTransaction(context.Background(), "", CreateTransactionRequest{
		SupplierID: supplier.ID.String(),
		Quantity:   "100",
		LessKilo:   "5",
		UnitPrice:  "12",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	if resp.TotalKilo != "95.0000" {
		t.Errorf("TotalKilo = %s, want 95.0000", resp.TotalKilo)
	}
	if resp.TotalAmount != "1140.0000" {
		t.Errorf("TotalAmount = %s, want 1140.0000", resp.TotalAmount)
	}
	if resp.LoanDeduction != "0.0000" {
		t.Errorf("LoanDeduction = %s, want 0.0000", resp.LoanDeduction)
	}
	if resp.PaidAmount != resp.TotalAmount {
		t.Errorf("PaidAmount = %s, want full total %s", resp.PaidAmount, resp.TotalAmount)
	}
	if len(resp.LoanPayments) != 0 {
		t.Errorf("LoanPayments = %d, want 0", len(resp.LoanPayments))
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	store := newFakeStore()
	active := store.seedSupplier(true)
	inactive := store.seedSupplier(false)

	svc := newTestTransactionService(store)

	tests := []struct {
		name string
		req  CreateTransactionRequest
	}{
		{"zero quantity", CreateTransactionRequest{SupplierID: active.ID.String(), Quantity: "0", UnitPrice: "10"}},
		{"negative unit price", CreateTransactionRequest{SupplierID: active.ID.String(), Quantity: "10", UnitPrice: "-1"}},
		{"less kilo exceeds quantity", CreateTransactionRequest{SupplierID: active.ID.String(), Quantity: "10", LessKilo: "10", UnitPrice: "5"}},
		{"inactive supplier", CreateTransactionRequest{SupplierID: inactive.ID.String(), Quantity: "10", UnitPrice: "5"}},
		{"unknown supplier", CreateTransactionRequest{SupplierID: "7f1c29d4-0000-0000-0000-000000000000", Quantity: "10", UnitPrice: "5"}},
		{"malformed quantity", CreateTransactionRequest{SupplierID: active.ID.String(), Quantity: "ten", UnitPrice: "5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateTransaction(context.Background(), "", tt.req); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	if len(store.transactions) != 0 {
		t.Errorf("transactions persisted = %d, want 0", len(store.transactions))
	}
}

func TestCancelTransactionRestoresLedger(t *testing.T) {
	store := newFakeStore()
	supplier := store.seedSupplier(true)
	loan := store.seedLoan(supplier.ID, "1000", "10", model.LoanStatusApproved, time.Now().Add(-time.Hour))

	svc := newTestTransactionService(store)

	created, err := svc.CreateTransaction(context.Background(), "", CreateTransactionRequest{
		SupplierID: supplier.ID.String(),
		Quantity:   "200",
		UnitPrice:  "10",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	cancelled, err := svc.CancelTransaction(context.Background(), "", created.ID)
	if err != nil {
		t.Fatalf("CancelTransaction: %v", err)
	}

	if cancelled.Status != model.TxStatusCancelled {
		t.Errorf("Status = %s, want CANCELLED", cancelled.Status)
	}
	if cancelled.LoanDeduction != "0.0000" {
		t.Errorf("LoanDeduction = %s, want 0.0000", cancelled.LoanDeduction)
	}
	if len(cancelled.OrphanedLoanRefs) != 0 {
		t.Errorf("OrphanedLoanRefs = %v, want none", cancelled.OrphanedLoanRefs)
	}

	stored := store.loans[loan.ID]
	if !stored.TotalPaid.IsZero() {
		t.Errorf("loan TotalPaid = %s, want 0 after reversal", stored.TotalPaid)
	}
	if !stored.InterestPaid.IsZero() || !stored.PrincipalPaid.IsZero() {
		t.Errorf("loan splits not reset: interest %s, principal %s", stored.InterestPaid, stored.PrincipalPaid)
	}

	balance := store.suppliers[supplier.ID].CurrentBalance
	if !balance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("supplier balance = %s, want 1000 restored", balance)
	}

	if len(store.payments) != 0 {
		t.Errorf("payment rows remaining = %d, want 0", len(store.payments))
	}
	if store.lastAuditAction() != model.ActionCancelTransaction {
		t.Errorf("audit action = %s, want CANCEL_TRANSACTION", store.lastAuditAction())
	}
}

func TestCancelTransactionRevertsPaidLoan(t *testing.T) {
	store := newFakeStore()
	supplier := store.seedSupplier(true)
	loan := store.seedLoan(supplier.ID, "500", "0", model.LoanStatusApproved, time.Now().Add(-time.Hour))

	svc := newTestTransactionService(store)

	// Budget 800 fully retires the 500 loan.
	created, err := svc.CreateTransaction(context.Background(), "", CreateTransactionRequest{
		SupplierID: supplier.ID.String(),
		Quantity:   "200",
		UnitPrice:  "10",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if store.loans[loan.ID].Status != model.LoanStatusPaid {
		t.Fatalf("setup: loan status = %s, want PAID", store.loans[loan.ID].Status)
	}

	if _, err := svc.CancelTransaction(context.Background(), "", created.ID); err != nil {
		t.Fatalf("CancelTransaction: %v", err)
	}

	stored := store.loans[loan.ID]
	if stored.Status != model.LoanStatusApproved {
		t.Errorf("loan status = %s, want APPROVED after reversal", stored.Status)
	}
	if stored.CompletedAt != nil {
		t.Error("loan CompletedAt must be cleared")
	}
}

func TestCancelTransactionOrphanedLoan(t *testing.T) {
	store := newFakeStore()
	supplier := store.seedSupplier(true)
	loan := store.seedLoan(supplier.ID, "1000", "10", model.LoanStatusApproved, time.Now().Add(-time.Hour))

	svc := newTestTransactionService(store)

	created, err := svc.CreateTransaction(context.Background(), "", CreateTransactionRequest{
		SupplierID: supplier.ID.String(),
		Quantity:   "200",
		UnitPrice:  "10",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	// Simulate a loan row that disappeared out from under its payment.
	delete(store.loans, loan.ID)

	cancelled, err := svc.CancelTransaction(context.Background(), "", created.ID)
	if err != nil {
		t.Fatalf("CancelTransaction: %v", err)
	}

	if cancelled.Status != model.TxStatusCancelled {
		t.Errorf("Status = %s, want CANCELLED despite orphaned ref", cancelled.Status)
	}
	if len(cancelled.OrphanedLoanRefs) != 1 || cancelled.OrphanedLoanRefs[0] != loan.ID.String() {
		t.Errorf("OrphanedLoanRefs = %v, want [%s]", cancelled.OrphanedLoanRefs, loan.ID)
	}
}

func TestCancelTransactionInvalidStatus(t *testing.T) {
	store := newFakeStore()
	supplier := store.seedSupplier(true)

	svc := newTestTransactionService(store)

	created, err := svc.CreateTransaction(context.Background(), "", CreateTransactionRequest{
		SupplierID: supplier.ID.String(),
		Quantity:   "10",
		UnitPrice:  "10",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	if _, err := svc.CancelTransaction(context.Background(), "", created.ID); err != nil {
		t.Fatalf("first cancel: %v", err)
	}

	if _, err := svc.CancelTransaction(context.Background(), "", created.ID); !errors.Is(err, ledger.ErrInvalidTransition) {
		t.Errorf("second cancel err = %v, want ErrInvalidTransition", err)
	}
}

func TestVoidTransaction(t *testing.T) {
	store := newFakeStore()
	supplier := store.seedSupplier(true)

	svc := newTestTransactionService(store)

	created, err := svc.CreateTransaction(context.Background(), "", CreateTransactionRequest{
		SupplierID: supplier.ID.String(),
		Quantity:   "10",
		UnitPrice:  "10",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	voided, err := svc.VoidTransaction(context.Background(), "", created.ID)
	if err != nil {
		t.Fatalf("VoidTransaction: %v", err)
	}

	if voided.Status != model.TxStatusVoided {
		t.Errorf("Status = %s, want VOIDED", voided.Status)
	}
	if store.lastAuditAction() != model.ActionVoidTransaction {
		t.Errorf("audit action = %s, want VOID_TRANSACTION", store.lastAuditAction())
	}
}

func TestCreateTransactionScoreRefreshFailure(t *testing.T) {
	store := newFakeStore()
	supplier := store.seedSupplier(true)
	store.failScoreCreate = true

	svc := newTestTransactionService(store)

	resp, err := svc.CreateTransaction(context.Background(), "", CreateTransactionRequest{
		SupplierID: supplier.ID.String(),
		Quantity:   "10",
		UnitPrice:  "10",
	})
	if err != nil {
		t.Fatalf("CreateTransaction must not fail on score refresh: %v", err)
	}

	if resp.Status != model.TxStatusCompleted {
		t.Errorf("Status = %s, want COMPLETED", resp.Status)
	}
	if !resp.CreditScoreStale {
		t.Error("CreditScoreStale = false, want true")
	}
}
