package ledger

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"copraledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func purchase(supplierID uuid.UUID, total string) *model.Transaction {
	return &model.Transaction{
		ID:              uuid.New(),
		SupplierID:      supplierID,
		TotalAmount:     decimal.RequireFromString(total),
		Status:          model.TxStatusCompleted,
		TransactionDate: time.Now(),
	}
}

func supplierLoan(supplierID uuid.UUID, amount, rate string, createdAt time.Time) *model.Loan {
	loan := approvedLoan(amount, rate)
	loan.ID = uuid.New()
	loan.SupplierID = supplierID
	loan.CreatedAt = createdAt
	return loan
}

func TestAllocateAutoDebitSingleLoan(t *testing.T) {
	supplierID := uuid.New()
	txn := purchase(supplierID, "2000")
	loan := supplierLoan(supplierID, "1000", "10", time.Now()) // owes 1100

	result, err := AllocateAutoDebit(txn, []*model.Loan{loan})
	if err != nil {
		t.Fatalf("AllocateAutoDebit: %v", err)
	}

	// Ceiling: 40% of 2000 = 800.
	if !result.TotalDeduction.Equal(decimal.NewFromInt(800)) {
		t.Errorf("TotalDeduction = %s, want 800", result.TotalDeduction)
	}
	if !result.AmountAfterDeduction.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("AmountAfterDeduction = %s, want 1200", result.AmountAfterDeduction)
	}
	if len(result.Deductions) != 1 {
		t.Fatalf("Deductions = %d, want 1", len(result.Deductions))
	}

	d := result.Deductions[0]
	if !d.Split.InterestPortion.Equal(decimal.NewFromInt(100)) {
		t.Errorf("InterestPortion = %s, want 100", d.Split.InterestPortion)
	}
	if !d.Split.PrincipalPortion.Equal(decimal.NewFromInt(700)) {
		t.Errorf("PrincipalPortion = %s, want 700", d.Split.PrincipalPortion)
	}
	if !loan.RemainingBalance().Equal(decimal.NewFromInt(300)) {
		t.Errorf("loan remaining = %s, want 300", loan.RemainingBalance())
	}

	payment := d.Payment
	if payment.PaymentMethod != model.PaymentMethodAutoDebit {
		t.Errorf("PaymentMethod = %s, want AUTO_DEBIT", payment.PaymentMethod)
	}
	if payment.TransactionID == nil || *payment.TransactionID != txn.ID {
		t.Error("payment must reference the originating transaction")
	}
	wantRef := fmt.Sprintf("AD-%s-1", txn.ID)
	if payment.ReferenceNumber != wantRef {
		t.Errorf("ReferenceNumber = %s, want %s", payment.ReferenceNumber, wantRef)
	}
}

func TestAllocateAutoDebitFIFO(t *testing.T) {
	supplierID := uuid.New()
	txn := purchase(supplierID, "2000") // budget 800

	base := time.Now()
	older := supplierLoan(supplierID, "500", "0", base.Add(-48*time.Hour))
	newer := supplierLoan(supplierID, "1000", "0", base)

	// Deliberately out of order; allocation must still hit the oldest first.
	result, err := AllocateAutoDebit(txn, []*model.Loan{newer, older})
	if err != nil {
		t.Fatalf("AllocateAutoDebit: %v", err)
	}

	if len(result.Deductions) != 2 {
		t.Fatalf("Deductions = %d, want 2", len(result.Deductions))
	}
	if result.Deductions[0].Loan.ID != older.ID {
		t.Error("oldest loan must be debited first")
	}
	if !result.Deductions[0].Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("older deduction = %s, want 500 (full retirement)", result.Deductions[0].Amount)
	}
	if older.Status != model.LoanStatusPaid {
		t.Errorf("older loan status = %s, want PAID", older.Status)
	}
	if !result.Deductions[1].Amount.Equal(decimal.NewFromInt(300)) {
		t.Errorf("newer deduction = %s, want 300 (remaining budget)", result.Deductions[1].Amount)
	}
	if newer.Status != model.LoanStatusApproved {
		t.Errorf("newer loan status = %s, want APPROVED", newer.Status)
	}
	if !result.TotalDeduction.Equal(decimal.NewFromInt(800)) {
		t.Errorf("TotalDeduction = %s, want 800", result.TotalDeduction)
	}
}

func TestAllocateAutoDebitStopsAtOutstandingDebt(t *testing.T) {
	supplierID := uuid.New()
	txn := purchase(supplierID, "10000") // budget 4000, far above the debt
	loan := supplierLoan(supplierID, "500", "0", time.Now())

	result, err := AllocateAutoDebit(txn, []*model.Loan{loan})
	if err != nil {
		t.Fatalf("AllocateAutoDebit: %v", err)
	}

	if !result.TotalDeduction.Equal(decimal.NewFromInt(500)) {
		t.Errorf("TotalDeduction = %s, want 500 (never more than owed)", result.TotalDeduction)
	}
	if !result.AmountAfterDeduction.Equal(decimal.NewFromInt(9500)) {
		t.Errorf("AmountAfterDeduction = %s, want 9500", result.AmountAfterDeduction)
	}
}

func TestAllocateAutoDebitSkipsIneligibleLoans(t *testing.T) {
	supplierID := uuid.New()
	txn := purchase(supplierID, "2000")

	pending := supplierLoan(supplierID, "400", "0", time.Now())
	pending.Status = model.LoanStatusPending

	foreign := supplierLoan(uuid.New(), "400", "0", time.Now())

	settled := supplierLoan(supplierID, "400", "0", time.Now())
	settled.TotalPaid = settled.TotalAmountWithInterest
	settled.Status = model.LoanStatusPaid

	result, err := AllocateAutoDebit(txn, []*model.Loan{pending, foreign, settled})
	if err != nil {
		t.Fatalf("AllocateAutoDebit: %v", err)
	}

	if len(result.Deductions) != 0 {
		t.Errorf("Deductions = %d, want 0", len(result.Deductions))
	}
	if !result.TotalDeduction.IsZero() {
		t.Errorf("TotalDeduction = %s, want 0", result.TotalDeduction)
	}
	if !result.AmountAfterDeduction.Equal(txn.TotalAmount) {
		t.Errorf("AmountAfterDeduction = %s, want full total", result.AmountAfterDeduction)
	}
}

func TestAllocateAutoDebitRunsOnce(t *testing.T) {
	supplierID := uuid.New()
	txn := purchase(supplierID, "2000")
	txn.LoanPayments = []model.LoanPayment{{ReferenceNumber: "AD-existing-1"}}

	_, err := AllocateAutoDebit(txn, nil)
	if !errors.Is(err, ErrAlreadyAllocated) {
		t.Errorf("err = %v, want ErrAlreadyAllocated", err)
	}
}

func TestAllocateAutoDebitConservation(t *testing.T) {
	supplierID := uuid.New()
	txn := purchase(supplierID, "3333.33")

	base := time.Now()
	loans := []*model.Loan{
		supplierLoan(supplierID, "200", "5", base.Add(-3*time.Hour)),
		supplierLoan(supplierID, "700.50", "10", base.Add(-2*time.Hour)),
		supplierLoan(supplierID, "1500", "0", base.Add(-time.Hour)),
	}

	result, err := AllocateAutoDebit(txn, loans)
	if err != nil {
		t.Fatalf("AllocateAutoDebit: %v", err)
	}

	sum := decimal.Zero
	for _, d := range result.Deductions {
		sum = sum.Add(d.Amount)
		if !d.Amount.Equal(d.Split.InterestPortion.Add(d.Split.PrincipalPortion)) {
			t.Errorf("deduction %s: split does not add up", d.Payment.ReferenceNumber)
		}
	}
	if !sum.Equal(result.TotalDeduction) {
		t.Errorf("sum of deductions %s != TotalDeduction %s", sum, result.TotalDeduction)
	}
	if !result.AmountAfterDeduction.Add(result.TotalDeduction).Equal(txn.TotalAmount) {
		t.Errorf("deduction %s + net %s != total %s", result.TotalDeduction, result.AmountAfterDeduction, txn.TotalAmount)
	}

	ceiling := txn.TotalAmount.Mul(decimal.RequireFromString("0.40"))
	if result.TotalDeduction.GreaterThan(ceiling) {
		t.Errorf("TotalDeduction %s exceeds ceiling %s", result.TotalDeduction, ceiling)
	}
}
