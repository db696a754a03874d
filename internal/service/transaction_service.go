package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"copraledger/internal/ledger"
	"copraledger/internal/model"
	"copraledger/internal/repository"
	ws "copraledger/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateTransactionRequest struct {
	SupplierID      string `json:"supplier_id" binding:"required"`
	Quantity        string `json:"quantity" binding:"required"`
	LessKilo        string `json:"less_kilo"` // optional, defaults to 0
	UnitPrice       string `json:"unit_price" binding:"required"`
	TransactionDate string `json:"transaction_date"` // RFC3339 or YYYY-MM-DD, defaults to now
}

type TransactionFilter struct {
	SupplierID string
	Status     string
	Page       int
	Limit      int
}

type LoanDeductionResponse struct {
	LoanID           string `json:"loan_id"`
	Amount           string `json:"amount"`
	InterestPortion  string `json:"interest_portion"`
	PrincipalPortion string `json:"principal_portion"`
	ReferenceNumber  string `json:"reference_number"`
}

type TransactionResponse struct {
	ID                   string                  `json:"id"`
	SupplierID           string                  `json:"supplier_id"`
	Quantity             string                  `json:"quantity"`
	LessKilo             string                  `json:"less_kilo"`
	UnitPrice            string                  `json:"unit_price"`
	TotalKilo            string                  `json:"total_kilo"`
	TotalAmount          string                  `json:"total_amount"`
	Status               string                  `json:"status"`
	LoanDeduction        string                  `json:"loan_deduction"`
	AmountAfterDeduction string                  `json:"amount_after_deduction"`
	PaidAmount           string                  `json:"paid_amount"`
	LoanPayments         []LoanDeductionResponse `json:"loan_payments,omitempty"`
	TransactionDate      string                  `json:"transaction_date"`
	CreatedAt            string                  `json:"created_at"`
	// CreditScoreStale is set when the post-commit score refresh failed;
	// the primary mutation is committed and the stale score will be caught
	// up by the next refresh.
	CreditScoreStale bool `json:"credit_score_stale,omitempty"`
	// OrphanedLoanRefs lists loan ids recorded on payments that could not be
	// resolved during a reversal. The reversal completed for all other loans.
	OrphanedLoanRefs []string `json:"orphaned_loan_refs,omitempty"`
}

// --- Interface ---

// TransactionService is the atomic entry point for purchase transactions: a
// create runs auto-debit allocation, balance aggregation, and score refresh;
// cancel/void reverse those effects exactly.
type TransactionService interface {
	CreateTransaction(ctx context.Context, userID string, req CreateTransactionRequest) (TransactionResponse, error)
	CancelTransaction(ctx context.Context, userID string, id string) (TransactionResponse, error)
	VoidTransaction(ctx context.Context, userID string, id string) (TransactionResponse, error)
	GetTransaction(ctx context.Context, id string) (TransactionResponse, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]TransactionResponse, int64, error)
}

type transactionService struct {
	transactionRepo repository.TransactionRepository
	loanRepo        repository.LoanRepository
	paymentRepo     repository.LoanPaymentRepository
	supplierRepo    repository.SupplierRepository
	auditRepo       repository.AuditRepository
	txManager       repository.TransactionManager
	balance         BalanceAggregator
	scores          CreditScoreService
	hub             *ws.Hub
}

func NewTransactionService(
	transactionRepo repository.TransactionRepository,
	loanRepo repository.LoanRepository,
	paymentRepo repository.LoanPaymentRepository,
	supplierRepo repository.SupplierRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	balance BalanceAggregator,
	scores CreditScoreService,
	hub *ws.Hub,
) TransactionService {
	return &transactionService{
		transactionRepo: transactionRepo,
		loanRepo:        loanRepo,
		paymentRepo:     paymentRepo,
		supplierRepo:    supplierRepo,
		auditRepo:       auditRepo,
		txManager:       txManager,
		balance:         balance,
		scores:          scores,
		hub:             hub,
	}
}

// --- Implementation ---

func (s *transactionService) CreateTransaction(ctx context.Context, userID string, req CreateTransactionRequest) (TransactionResponse, error) {
	supplierID, err := uuid.Parse(req.SupplierID)
	if err != nil {
		return TransactionResponse{}, fmt.Errorf("invalid supplier id: %w", err)
	}

	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		return TransactionResponse{}, fmt.Errorf("invalid quantity: %w", err)
	}
	unitPrice, err := decimal.NewFromString(req.UnitPrice)
	if err != nil {
		return TransactionResponse{}, fmt.Errorf("invalid unit_price: %w", err)
	}
	lessKilo := decimal.Zero
	if req.LessKilo != "" {
		lessKilo, err = decimal.NewFromString(req.LessKilo)
		if err != nil {
			return TransactionResponse{}, fmt.Errorf("invalid less_kilo: %w", err)
		}
	}

	if quantity.LessThanOrEqual(decimal.Zero) {
		return TransactionResponse{}, fmt.Errorf("quantity: %w", ledger.ErrInvalidAmount)
	}
	if unitPrice.LessThanOrEqual(decimal.Zero) {
		return TransactionResponse{}, fmt.Errorf("unit_price: %w", ledger.ErrInvalidAmount)
	}
	if lessKilo.IsNegative() || lessKilo.GreaterThanOrEqual(quantity) {
		return TransactionResponse{}, fmt.Errorf("less_kilo must be between 0 and quantity: %w", ledger.ErrInvalidAmount)
	}

	transactionDate, err := parseDate(req.TransactionDate)
	if err != nil {
		return TransactionResponse{}, fmt.Errorf("invalid transaction_date: %w", err)
	}

	totalKilo := quantity.Sub(lessKilo)
	totalAmount := totalKilo.Mul(unitPrice)

	txn := &model.Transaction{
		SupplierID:           supplierID,
		Quantity:             quantity,
		LessKilo:             lessKilo,
		UnitPrice:            unitPrice,
		TotalKilo:            totalKilo,
		TotalAmount:          totalAmount,
		Status:               model.TxStatusPending,
		LoanDeduction:        decimal.Zero,
		AmountAfterDeduction: totalAmount,
		PaidAmount:           decimal.Zero,
		TransactionDate:      transactionDate,
	}

	var deductions []LoanDeductionResponse

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Supplier row lock serializes concurrent ledger operations for the
		// same supplier — two transactions can never double-allocate against
		// the same loan balance.
		supplier, lockErr := s.supplierRepo.FindByIDForUpdate(txCtx, supplierID)
		if lockErr != nil {
			return fmt.Errorf("supplier not found: %w", lockErr)
		}
		if !supplier.IsActive {
			return fmt.Errorf("supplier %s is deactivated", supplier.Name)
		}

		if createErr := s.transactionRepo.Create(txCtx, txn); createErr != nil {
			return fmt.Errorf("failed to create transaction: %w", createErr)
		}

		loans, loadErr := s.loanRepo.FindOutstandingBySupplierForUpdate(txCtx, supplierID)
		if loadErr != nil {
			return fmt.Errorf("failed to load outstanding loans: %w", loadErr)
		}

		allocation, allocErr := ledger.AllocateAutoDebit(txn, loans)
		if allocErr != nil {
			return allocErr
		}

		for _, d := range allocation.Deductions {
			if updateErr := s.loanRepo.Update(txCtx, d.Loan); updateErr != nil {
				return fmt.Errorf("failed to update loan %s: %w", d.Loan.ID, updateErr)
			}
			payment := d.Payment
			if payErr := s.paymentRepo.Create(txCtx, &payment); payErr != nil {
				return fmt.Errorf("failed to record auto-debit payment: %w", payErr)
			}
			deductions = append(deductions, LoanDeductionResponse{
				LoanID:           d.Loan.ID.String(),
				Amount:           d.Amount.StringFixed(4),
				InterestPortion:  d.Split.InterestPortion.StringFixed(4),
				PrincipalPortion: d.Split.PrincipalPortion.StringFixed(4),
				ReferenceNumber:  payment.ReferenceNumber,
			})
		}

		txn.LoanDeduction = allocation.TotalDeduction
		txn.AmountAfterDeduction = allocation.AmountAfterDeduction
		txn.PaidAmount = allocation.AmountAfterDeduction
		txn.Status = model.TxStatusCompleted
		if updateErr := s.transactionRepo.Update(txCtx, txn); updateErr != nil {
			return fmt.Errorf("failed to finalize transaction: %w", updateErr)
		}

		if _, balErr := s.balance.Recalculate(txCtx, supplierID); balErr != nil {
			return balErr
		}

		return s.writeAudit(txCtx, userID, model.ActionCreateTransaction, txn.ID.String(), supplier.Name, map[string]interface{}{
			"total_amount":   txn.TotalAmount.StringFixed(4),
			"loan_deduction": txn.LoanDeduction.StringFixed(4),
			"paid_amount":    txn.PaidAmount.StringFixed(4),
		})
	})
	if err != nil {
		return TransactionResponse{}, err
	}

	resp := toTransactionResponse(txn)
	resp.LoanPayments = deductions

	// Score refresh is best-effort once the ledger mutation has committed:
	// a failure here must not fail the purchase.
	if _, scoreErr := s.scores.Refresh(ctx, supplierID); scoreErr != nil {
		log.Printf("credit score refresh failed for supplier %s: %v", supplierID, scoreErr)
		resp.CreditScoreStale = true
	}

	broadcastEvent(s.hub, EventTransactionCompleted, map[string]interface{}{
		"transaction_id": txn.ID.String(),
		"supplier_id":    supplierID.String(),
		"total_amount":   txn.TotalAmount.StringFixed(4),
		"loan_deduction": txn.LoanDeduction.StringFixed(4),
	})

	return resp, nil
}

func (s *transactionService) CancelTransaction(ctx context.Context, userID string, id string) (TransactionResponse, error) {
	return s.reverse(ctx, userID, id, model.TxStatusCancelled, model.ActionCancelTransaction, EventTransactionCancelled)
}

func (s *transactionService) VoidTransaction(ctx context.Context, userID string, id string) (TransactionResponse, error) {
	return s.reverse(ctx, userID, id, model.TxStatusVoided, model.ActionVoidTransaction, EventTransactionVoided)
}

// reverse undoes a completed transaction's auto-debit effects and moves it to
// a terminal status. Every recorded payment is unwound from its stored
// interest/principal split; payments whose loan no longer resolves are logged
// and reported back, without blocking the rest of the reversal.
func (s *transactionService) reverse(ctx context.Context, userID string, id string, targetStatus string, action string, event string) (TransactionResponse, error) {
	txnID, err := uuid.Parse(id)
	if err != nil {
		return TransactionResponse{}, fmt.Errorf("invalid transaction id: %w", err)
	}

	var txn *model.Transaction
	var orphaned []string

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		head, findErr := s.transactionRepo.FindByID(txCtx, txnID)
		if findErr != nil {
			return fmt.Errorf("transaction not found: %w", findErr)
		}

		// Lock the supplier before touching loans, same order as create.
		if _, lockErr := s.supplierRepo.FindByIDForUpdate(txCtx, head.SupplierID); lockErr != nil {
			return fmt.Errorf("supplier not found: %w", lockErr)
		}

		var reloadErr error
		txn, reloadErr = s.transactionRepo.FindByIDWithPayments(txCtx, txnID)
		if reloadErr != nil {
			return fmt.Errorf("transaction not found: %w", reloadErr)
		}

		if txn.Status != model.TxStatusCompleted {
			return fmt.Errorf("transaction is %s: %w", txn.Status, ledger.ErrInvalidTransition)
		}

		for i := range txn.LoanPayments {
			payment := txn.LoanPayments[i]
			loan, loanErr := s.loanRepo.FindByIDForUpdate(txCtx, payment.LoanID)
			if errors.Is(loanErr, gorm.ErrRecordNotFound) {
				log.Printf("reversal of transaction %s: %v: loan %s", txn.ID, ledger.ErrOrphanedPaymentRef, payment.LoanID)
				orphaned = append(orphaned, payment.LoanID.String())
				continue
			}
			if loanErr != nil {
				return fmt.Errorf("failed to load loan %s: %w", payment.LoanID, loanErr)
			}

			if revErr := ledger.ReversePayment(loan, &payment); revErr != nil {
				return revErr
			}
			if delErr := s.paymentRepo.Delete(txCtx, payment.ID); delErr != nil {
				return fmt.Errorf("failed to delete payment %s: %w", payment.ID, delErr)
			}
			if updateErr := s.loanRepo.Update(txCtx, loan); updateErr != nil {
				return fmt.Errorf("failed to update loan %s: %w", loan.ID, updateErr)
			}
		}

		txn.LoanDeduction = decimal.Zero
		txn.AmountAfterDeduction = decimal.Zero
		txn.PaidAmount = decimal.Zero
		txn.LoanPayments = nil
		txn.Status = targetStatus
		if updateErr := s.transactionRepo.Update(txCtx, txn); updateErr != nil {
			return fmt.Errorf("failed to update transaction: %w", updateErr)
		}

		if _, balErr := s.balance.Recalculate(txCtx, txn.SupplierID); balErr != nil {
			return balErr
		}

		return s.writeAudit(txCtx, userID, action, txn.ID.String(), "", map[string]interface{}{
			"total_amount": txn.TotalAmount.StringFixed(4),
			"orphaned":     orphaned,
		})
	})
	if err != nil {
		return TransactionResponse{}, err
	}

	resp := toTransactionResponse(txn)
	resp.OrphanedLoanRefs = orphaned

	// The transaction set behind the score changed, so refresh it here too.
	if _, scoreErr := s.scores.Refresh(ctx, txn.SupplierID); scoreErr != nil {
		log.Printf("credit score refresh failed for supplier %s: %v", txn.SupplierID, scoreErr)
		resp.CreditScoreStale = true
	}

	broadcastEvent(s.hub, event, map[string]interface{}{
		"transaction_id": txn.ID.String(),
		"supplier_id":    txn.SupplierID.String(),
	})

	return resp, nil
}

func (s *transactionService) GetTransaction(ctx context.Context, id string) (TransactionResponse, error) {
	txnID, err := uuid.Parse(id)
	if err != nil {
		return TransactionResponse{}, fmt.Errorf("invalid transaction id: %w", err)
	}

	txn, err := s.transactionRepo.FindByIDWithPayments(ctx, txnID)
	if err != nil {
		return TransactionResponse{}, fmt.Errorf("transaction not found: %w", err)
	}

	resp := toTransactionResponse(txn)
	for _, payment := range txn.LoanPayments {
		resp.LoanPayments = append(resp.LoanPayments, LoanDeductionResponse{
			LoanID:           payment.LoanID.String(),
			Amount:           payment.Amount.StringFixed(4),
			InterestPortion:  payment.InterestPortion.StringFixed(4),
			PrincipalPortion: payment.PrincipalPortion.StringFixed(4),
			ReferenceNumber:  payment.ReferenceNumber,
		})
	}
	return resp, nil
}

func (s *transactionService) ListTransactions(ctx context.Context, filter TransactionFilter) ([]TransactionResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	txns, total, err := s.transactionRepo.List(ctx, repository.TransactionListFilter{
		SupplierID: filter.SupplierID,
		Status:     filter.Status,
		Page:       filter.Page,
		Limit:      filter.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	result := make([]TransactionResponse, 0, len(txns))
	for i := range txns {
		result = append(result, toTransactionResponse(&txns[i]))
	}
	return result, total, nil
}

// --- Helpers ---

func (s *transactionService) writeAudit(ctx context.Context, userID string, action, entityID, entityName string, details map[string]interface{}) error {
	entry := &model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
	}
	if parsed, err := uuid.Parse(userID); err == nil {
		entry.UserID = &parsed
	}
	if payload, err := json.Marshal(details); err == nil {
		entry.Details = string(payload)
	}
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

func toTransactionResponse(txn *model.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:                   txn.ID.String(),
		SupplierID:           txn.SupplierID.String(),
		Quantity:             txn.Quantity.StringFixed(4),
		LessKilo:             txn.LessKilo.StringFixed(4),
		UnitPrice:            txn.UnitPrice.StringFixed(4),
		TotalKilo:            txn.TotalKilo.StringFixed(4),
		TotalAmount:          txn.TotalAmount.StringFixed(4),
		Status:               txn.Status,
		LoanDeduction:        txn.LoanDeduction.StringFixed(4),
		AmountAfterDeduction: txn.AmountAfterDeduction.StringFixed(4),
		PaidAmount:           txn.PaidAmount.StringFixed(4),
		TransactionDate:      txn.TransactionDate.Format(time.RFC3339),
		CreatedAt:            txn.CreatedAt.Format(time.RFC3339),
	}
}
