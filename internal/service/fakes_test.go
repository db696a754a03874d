package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"copraledger/internal/model"
	"copraledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// fakeStore is a shared in-memory backing store for the repository fakes.
// Reads hand out copies so mutations only persist through Update, matching
// how the real repositories behave against the database.
type fakeStore struct {
	suppliers    map[uuid.UUID]*model.Supplier
	transactions map[uuid.UUID]*model.Transaction
	loans        map[uuid.UUID]*model.Loan
	payments     map[uuid.UUID]*model.LoanPayment
	scores       []model.CreditScore
	audits       []model.AuditLog

	failScoreCreate bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		suppliers:    make(map[uuid.UUID]*model.Supplier),
		transactions: make(map[uuid.UUID]*model.Transaction),
		loans:        make(map[uuid.UUID]*model.Loan),
		payments:     make(map[uuid.UUID]*model.LoanPayment),
	}
}

func (s *fakeStore) seedSupplier(active bool) *model.Supplier {
	supplier := &model.Supplier{
		ID:             uuid.New(),
		Name:           "Test Supplier",
		CurrentBalance: decimal.Zero,
		IsActive:       active,
	}
	s.suppliers[supplier.ID] = supplier
	return supplier
}

func (s *fakeStore) seedLoan(supplierID uuid.UUID, amount, rate string, status string, createdAt time.Time) *model.Loan {
	principal := decimal.RequireFromString(amount)
	ratePercent := decimal.RequireFromString(rate)
	loan := &model.Loan{
		ID:                      uuid.New(),
		SupplierID:              supplierID,
		Amount:                  principal,
		InterestRate:            ratePercent,
		TotalAmountWithInterest: model.TotalWithInterest(principal, ratePercent),
		TotalPaid:               decimal.Zero,
		PrincipalPaid:           decimal.Zero,
		InterestPaid:            decimal.Zero,
		Status:                  status,
		CreatedAt:               createdAt,
	}
	if status == model.LoanStatusApproved {
		approved := createdAt
		loan.ApprovedAt = &approved
	}
	s.loans[loan.ID] = loan
	return loan
}

func (s *fakeStore) seedCompletedTransaction(supplierID uuid.UUID, total string, when time.Time) *model.Transaction {
	amount := decimal.RequireFromString(total)
	txn := &model.Transaction{
		ID:                   uuid.New(),
		SupplierID:           supplierID,
		TotalAmount:          amount,
		AmountAfterDeduction: amount,
		PaidAmount:           amount,
		Status:               model.TxStatusCompleted,
		TransactionDate:      when,
		CreatedAt:            when,
	}
	s.transactions[txn.ID] = txn
	return txn
}

// --- TransactionManager ---

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// --- SupplierRepository ---

type fakeSupplierRepo struct{ store *fakeStore }

func (r *fakeSupplierRepo) Create(_ context.Context, supplier *model.Supplier) error {
	if supplier.ID == uuid.Nil {
		supplier.ID = uuid.New()
	}
	cp := *supplier
	r.store.suppliers[supplier.ID] = &cp
	return nil
}

func (r *fakeSupplierRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Supplier, error) {
	supplier, ok := r.store.suppliers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *supplier
	return &cp, nil
}

func (r *fakeSupplierRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Supplier, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeSupplierRepo) List(_ context.Context, activeOnly bool, _, _ int) ([]model.Supplier, int64, error) {
	var out []model.Supplier
	for _, supplier := range r.store.suppliers {
		if activeOnly && !supplier.IsActive {
			continue
		}
		out = append(out, *supplier)
	}
	return out, int64(len(out)), nil
}

func (r *fakeSupplierRepo) Update(_ context.Context, supplier *model.Supplier) error {
	if _, ok := r.store.suppliers[supplier.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *supplier
	r.store.suppliers[supplier.ID] = &cp
	return nil
}

func (r *fakeSupplierRepo) UpdateBalance(_ context.Context, id uuid.UUID, balance decimal.Decimal) error {
	supplier, ok := r.store.suppliers[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	supplier.CurrentBalance = balance
	return nil
}

func (r *fakeSupplierRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	supplier, ok := r.store.suppliers[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	supplier.IsActive = false
	return nil
}

// --- TransactionRepository ---

type fakeTransactionRepo struct{ store *fakeStore }

func (r *fakeTransactionRepo) Create(_ context.Context, txn *model.Transaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}
	cp := *txn
	r.store.transactions[txn.ID] = &cp
	return nil
}

func (r *fakeTransactionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Transaction, error) {
	txn, ok := r.store.transactions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *txn
	return &cp, nil
}

func (r *fakeTransactionRepo) FindByIDWithPayments(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	txn, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, payment := range r.store.payments {
		if payment.TransactionID != nil && *payment.TransactionID == id {
			txn.LoanPayments = append(txn.LoanPayments, *payment)
		}
	}
	sort.Slice(txn.LoanPayments, func(i, j int) bool {
		return txn.LoanPayments[i].ReferenceNumber < txn.LoanPayments[j].ReferenceNumber
	})
	return txn, nil
}

func (r *fakeTransactionRepo) FindCompletedBySupplier(_ context.Context, supplierID uuid.UUID) ([]model.Transaction, error) {
	var out []model.Transaction
	for _, txn := range r.store.transactions {
		if txn.SupplierID == supplierID && txn.Status == model.TxStatusCompleted {
			out = append(out, *txn)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TransactionDate.Before(out[j].TransactionDate)
	})
	return out, nil
}

func (r *fakeTransactionRepo) List(_ context.Context, filter repository.TransactionListFilter) ([]model.Transaction, int64, error) {
	var out []model.Transaction
	for _, txn := range r.store.transactions {
		if filter.SupplierID != "" && txn.SupplierID.String() != filter.SupplierID {
			continue
		}
		if filter.Status != "" && txn.Status != filter.Status {
			continue
		}
		out = append(out, *txn)
	}
	return out, int64(len(out)), nil
}

func (r *fakeTransactionRepo) Update(_ context.Context, txn *model.Transaction) error {
	if _, ok := r.store.transactions[txn.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *txn
	cp.LoanPayments = nil // association rows live in the payment store
	r.store.transactions[txn.ID] = &cp
	return nil
}

// --- LoanRepository ---

type fakeLoanRepo struct{ store *fakeStore }

func (r *fakeLoanRepo) Create(_ context.Context, loan *model.Loan) error {
	if loan.ID == uuid.Nil {
		loan.ID = uuid.New()
	}
	if loan.CreatedAt.IsZero() {
		loan.CreatedAt = time.Now()
	}
	cp := *loan
	r.store.loans[loan.ID] = &cp
	return nil
}

func (r *fakeLoanRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Loan, error) {
	loan, ok := r.store.loans[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *loan
	return &cp, nil
}

func (r *fakeLoanRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Loan, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeLoanRepo) FindOutstandingBySupplierForUpdate(_ context.Context, supplierID uuid.UUID) ([]*model.Loan, error) {
	var out []*model.Loan
	for _, loan := range r.store.loans {
		if loan.SupplierID != supplierID || loan.Status != model.LoanStatusApproved {
			continue
		}
		if loan.TotalPaid.GreaterThanOrEqual(loan.TotalAmountWithInterest) {
			continue
		}
		cp := *loan
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *fakeLoanRepo) List(_ context.Context, filter repository.LoanListFilter) ([]model.Loan, int64, error) {
	var out []model.Loan
	for _, loan := range r.store.loans {
		if filter.SupplierID != "" && loan.SupplierID.String() != filter.SupplierID {
			continue
		}
		if filter.Status != "" && loan.Status != filter.Status {
			continue
		}
		out = append(out, *loan)
	}
	return out, int64(len(out)), nil
}

func (r *fakeLoanRepo) Update(_ context.Context, loan *model.Loan) error {
	if _, ok := r.store.loans[loan.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *loan
	r.store.loans[loan.ID] = &cp
	return nil
}

func (r *fakeLoanRepo) SumOutstandingPrincipal(_ context.Context, supplierID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, loan := range r.store.loans {
		if loan.SupplierID == supplierID && loan.Status == model.LoanStatusApproved {
			sum = sum.Add(loan.Amount.Sub(loan.TotalPaid))
		}
	}
	return sum, nil
}

// --- LoanPaymentRepository ---

type fakePaymentRepo struct{ store *fakeStore }

func (r *fakePaymentRepo) Create(_ context.Context, payment *model.LoanPayment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	cp := *payment
	r.store.payments[payment.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) FindByTransaction(_ context.Context, transactionID uuid.UUID) ([]model.LoanPayment, error) {
	var out []model.LoanPayment
	for _, payment := range r.store.payments {
		if payment.TransactionID != nil && *payment.TransactionID == transactionID {
			out = append(out, *payment)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) FindByLoan(_ context.Context, loanID uuid.UUID) ([]model.LoanPayment, error) {
	var out []model.LoanPayment
	for _, payment := range r.store.payments {
		if payment.LoanID == loanID {
			out = append(out, *payment)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ReferenceNumber < out[j].ReferenceNumber
	})
	return out, nil
}

func (r *fakePaymentRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.store.payments[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.store.payments, id)
	return nil
}

func (r *fakePaymentRepo) CountByReferencePrefix(_ context.Context, prefix string) (int64, error) {
	var count int64
	for _, payment := range r.store.payments {
		if strings.HasPrefix(payment.ReferenceNumber, prefix) {
			count++
		}
	}
	return count, nil
}

// --- CreditScoreRepository ---

type fakeScoreRepo struct{ store *fakeStore }

func (r *fakeScoreRepo) Create(_ context.Context, score *model.CreditScore) error {
	if r.store.failScoreCreate {
		return errors.New("score store unavailable")
	}
	if score.ID == uuid.Nil {
		score.ID = uuid.New()
	}
	r.store.scores = append(r.store.scores, *score)
	return nil
}

func (r *fakeScoreRepo) FindLatestBySupplier(_ context.Context, supplierID uuid.UUID) (*model.CreditScore, error) {
	for i := len(r.store.scores) - 1; i >= 0; i-- {
		if r.store.scores[i].SupplierID == supplierID {
			cp := r.store.scores[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeScoreRepo) ListBySupplier(_ context.Context, supplierID uuid.UUID, _, _ int) ([]model.CreditScore, int64, error) {
	var out []model.CreditScore
	for i := len(r.store.scores) - 1; i >= 0; i-- {
		if r.store.scores[i].SupplierID == supplierID {
			out = append(out, r.store.scores[i])
		}
	}
	return out, int64(len(out)), nil
}

// --- AuditRepository ---

type fakeAuditRepo struct{ store *fakeStore }

func (r *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.store.audits = append(r.store.audits, *entry)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, _, _ int) ([]model.AuditLog, int64, error) {
	out := make([]model.AuditLog, len(r.store.audits))
	copy(out, r.store.audits)
	return out, int64(len(out)), nil
}

// --- Wiring helpers ---

func (s *fakeStore) lastAuditAction() string {
	if len(s.audits) == 0 {
		return ""
	}
	return s.audits[len(s.audits)-1].Action
}

func newTestTransactionService(store *fakeStore) TransactionService {
	loanRepo := &fakeLoanRepo{store}
	supplierRepo := &fakeSupplierRepo{store}
	transactionRepo := &fakeTransactionRepo{store}
	balance := NewBalanceAggregator(loanRepo, supplierRepo)
	scores := NewCreditScoreService(&fakeScoreRepo{store}, transactionRepo, supplierRepo)
	return NewTransactionService(
		transactionRepo,
		loanRepo,
		&fakePaymentRepo{store},
		supplierRepo,
		&fakeAuditRepo{store},
		fakeTxManager{},
		balance,
		scores,
		nil,
	)
}

func newTestLoanService(store *fakeStore) LoanService {
	loanRepo := &fakeLoanRepo{store}
	supplierRepo := &fakeSupplierRepo{store}
	transactionRepo := &fakeTransactionRepo{store}
	balance := NewBalanceAggregator(loanRepo, supplierRepo)
	scores := NewCreditScoreService(&fakeScoreRepo{store}, transactionRepo, supplierRepo)
	return NewLoanService(
		loanRepo,
		&fakePaymentRepo{store},
		transactionRepo,
		supplierRepo,
		&fakeAuditRepo{store},
		fakeTxManager{},
		balance,
		scores,
		nil,
	)
}

func newTestCreditScoreService(store *fakeStore) CreditScoreService {
	return NewCreditScoreService(&fakeScoreRepo{store}, &fakeTransactionRepo{store}, &fakeSupplierRepo{store})
}
