package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"copraledger/internal/ledger"
	"copraledger/internal/model"
	"copraledger/internal/repository"
	ws "copraledger/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateLoanRequest struct {
	SupplierID   string `json:"supplier_id" binding:"required"`
	Amount       string `json:"amount" binding:"required"`
	InterestRate string `json:"interest_rate" binding:"required"`
	DueDate      string `json:"due_date" binding:"required"` // YYYY-MM-DD
}

type RecordPaymentRequest struct {
	Amount        string `json:"amount" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required,oneof=MANUAL BANK_TRANSFER CASH"`
	PaymentDate   string `json:"payment_date"` // optional, defaults to now
}

type LoanFilter struct {
	SupplierID string
	Status     string
	Page       int
	Limit      int
}

type LoanResponse struct {
	ID                      string  `json:"id"`
	SupplierID              string  `json:"supplier_id"`
	Amount                  string  `json:"amount"`
	InterestRate            string  `json:"interest_rate"`
	TotalAmountWithInterest string  `json:"total_amount_with_interest"`
	TotalPaid               string  `json:"total_paid"`
	PrincipalPaid           string  `json:"principal_paid"`
	InterestPaid            string  `json:"interest_paid"`
	RemainingBalance        string  `json:"remaining_balance"`
	Status                  string  `json:"status"`
	DueDate                 string  `json:"due_date"`
	ApprovedAt              *string `json:"approved_at"`
	CompletedAt             *string `json:"completed_at"`
	CreatedAt               string  `json:"created_at"`
}

type LoanPaymentResponse struct {
	ID               string `json:"id"`
	LoanID           string `json:"loan_id"`
	Amount           string `json:"amount"`
	InterestPortion  string `json:"interest_portion"`
	PrincipalPortion string `json:"principal_portion"`
	PaymentMethod    string `json:"payment_method"`
	PaymentDate      string `json:"payment_date"`
	ReferenceNumber  string `json:"reference_number"`
	LoanPaid         bool   `json:"loan_paid"`
	CreditScoreStale bool   `json:"credit_score_stale,omitempty"`
}

// --- Interface ---

type LoanService interface {
	// CreateLoan scores the supplier's transaction history first and rejects
	// requests above the computed eligible amount.
	CreateLoan(ctx context.Context, userID string, req CreateLoanRequest) (LoanResponse, error)
	ApproveLoan(ctx context.Context, userID string, id string) (LoanResponse, error)
	RejectLoan(ctx context.Context, userID string, id string) (LoanResponse, error)
	CancelLoan(ctx context.Context, userID string, id string) (LoanResponse, error)
	RecordManualPayment(ctx context.Context, userID string, loanID string, req RecordPaymentRequest) (LoanPaymentResponse, error)
	GetLoan(ctx context.Context, id string) (LoanResponse, error)
	ListLoans(ctx context.Context, filter LoanFilter) ([]LoanResponse, int64, error)
	ListLoanPayments(ctx context.Context, loanID string) ([]LoanPaymentResponse, error)
}

type loanService struct {
	loanRepo        repository.LoanRepository
	paymentRepo     repository.LoanPaymentRepository
	transactionRepo repository.TransactionRepository
	supplierRepo    repository.SupplierRepository
	auditRepo       repository.AuditRepository
	txManager       repository.TransactionManager
	balance         BalanceAggregator
	scores          CreditScoreService
	hub             *ws.Hub
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	paymentRepo repository.LoanPaymentRepository,
	transactionRepo repository.TransactionRepository,
	supplierRepo repository.SupplierRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	balance BalanceAggregator,
	scores CreditScoreService,
	hub *ws.Hub,
) LoanService {
	return &loanService{
		loanRepo:        loanRepo,
		paymentRepo:     paymentRepo,
		transactionRepo: transactionRepo,
		supplierRepo:    supplierRepo,
		auditRepo:       auditRepo,
		txManager:       txManager,
		balance:         balance,
		scores:          scores,
		hub:             hub,
	}
}

// --- Implementation ---

func (s *loanService) CreateLoan(ctx context.Context, userID string, req CreateLoanRequest) (LoanResponse, error) {
	supplierID, err := uuid.Parse(req.SupplierID)
	if err != nil {
		return LoanResponse{}, fmt.Errorf("invalid supplier id: %w", err)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return LoanResponse{}, fmt.Errorf("invalid amount: %w", err)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return LoanResponse{}, fmt.Errorf("amount: %w", ledger.ErrInvalidAmount)
	}

	interestRate, err := decimal.NewFromString(req.InterestRate)
	if err != nil {
		return LoanResponse{}, fmt.Errorf("invalid interest_rate: %w", err)
	}
	if interestRate.IsNegative() {
		return LoanResponse{}, fmt.Errorf("interest_rate: %w", ledger.ErrInvalidAmount)
	}

	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		return LoanResponse{}, fmt.Errorf("invalid due_date: %w", err)
	}

	supplier, err := s.supplierRepo.FindByID(ctx, supplierID)
	if err != nil {
		return LoanResponse{}, fmt.Errorf("supplier not found: %w", err)
	}
	if !supplier.IsActive {
		return LoanResponse{}, fmt.Errorf("supplier %s is deactivated", supplier.Name)
	}

	// Eligibility comes from the supplier's completed transaction history.
	transactions, err := s.transactionRepo.FindCompletedBySupplier(ctx, supplierID)
	if err != nil {
		return LoanResponse{}, fmt.Errorf("failed to load transaction history: %w", err)
	}
	card := ledger.ScoreSupplier(transactions)
	if !card.Eligible() || card.EligibleAmount.LessThanOrEqual(decimal.Zero) {
		return LoanResponse{}, fmt.Errorf("supplier has no qualifying transaction history: %w", ledger.ErrNotEligible)
	}
	if amount.GreaterThan(card.EligibleAmount) {
		return LoanResponse{}, fmt.Errorf("requested %s exceeds eligible amount %s: %w",
			amount.StringFixed(4), card.EligibleAmount.StringFixed(4), ledger.ErrNotEligible)
	}

	loan := &model.Loan{
		SupplierID:              supplierID,
		Amount:                  amount,
		InterestRate:            interestRate,
		TotalAmountWithInterest: model.TotalWithInterest(amount, interestRate),
		TotalPaid:               decimal.Zero,
		PrincipalPaid:           decimal.Zero,
		InterestPaid:            decimal.Zero,
		Status:                  model.LoanStatusPending,
		DueDate:                 dueDate,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.loanRepo.Create(txCtx, loan); createErr != nil {
			return fmt.Errorf("failed to create loan: %w", createErr)
		}
		return s.writeAudit(txCtx, userID, model.ActionCreateLoan, loan.ID.String(), supplier.Name, map[string]interface{}{
			"amount":          amount.StringFixed(4),
			"interest_rate":   interestRate.StringFixed(4),
			"eligible_amount": card.EligibleAmount.StringFixed(4),
		})
	})
	if err != nil {
		return LoanResponse{}, err
	}

	return toLoanResponse(loan), nil
}

func (s *loanService) ApproveLoan(ctx context.Context, userID string, id string) (LoanResponse, error) {
	loanID, err := uuid.Parse(id)
	if err != nil {
		return LoanResponse{}, fmt.Errorf("invalid loan id: %w", err)
	}

	var loan *model.Loan
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		loan, findErr = s.loanRepo.FindByIDForUpdate(txCtx, loanID)
		if findErr != nil {
			return fmt.Errorf("loan not found: %w", findErr)
		}

		if loan.Status != model.LoanStatusPending {
			return fmt.Errorf("loan is %s: %w", loan.Status, ledger.ErrInvalidTransition)
		}

		now := time.Now()
		loan.Status = model.LoanStatusApproved
		loan.ApprovedAt = &now
		if updateErr := s.loanRepo.Update(txCtx, loan); updateErr != nil {
			return fmt.Errorf("failed to update loan: %w", updateErr)
		}

		if _, balErr := s.balance.Recalculate(txCtx, loan.SupplierID); balErr != nil {
			return balErr
		}

		return s.writeAudit(txCtx, userID, model.ActionApproveLoan, loan.ID.String(), "", map[string]interface{}{
			"amount": loan.Amount.StringFixed(4),
		})
	})
	if err != nil {
		return LoanResponse{}, err
	}

	broadcastEvent(s.hub, EventLoanApproved, map[string]interface{}{
		"loan_id":     loan.ID.String(),
		"supplier_id": loan.SupplierID.String(),
		"amount":      loan.Amount.StringFixed(4),
	})

	return toLoanResponse(loan), nil
}

func (s *loanService) RejectLoan(ctx context.Context, userID string, id string) (LoanResponse, error) {
	loanID, err := uuid.Parse(id)
	if err != nil {
		return LoanResponse{}, fmt.Errorf("invalid loan id: %w", err)
	}

	var loan *model.Loan
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		loan, findErr = s.loanRepo.FindByIDForUpdate(txCtx, loanID)
		if findErr != nil {
			return fmt.Errorf("loan not found: %w", findErr)
		}

		if loan.Status != model.LoanStatusPending {
			return fmt.Errorf("loan is %s: %w", loan.Status, ledger.ErrInvalidTransition)
		}

		loan.Status = model.LoanStatusRejected
		if updateErr := s.loanRepo.Update(txCtx, loan); updateErr != nil {
			return fmt.Errorf("failed to update loan: %w", updateErr)
		}

		return s.writeAudit(txCtx, userID, model.ActionRejectLoan, loan.ID.String(), "", nil)
	})
	if err != nil {
		return LoanResponse{}, err
	}

	return toLoanResponse(loan), nil
}

// CancelLoan withdraws a PENDING loan or an APPROVED loan with no payments
// against it yet. Loans with payment history must be unwound through
// transaction reversal instead.
func (s *loanService) CancelLoan(ctx context.Context, userID string, id string) (LoanResponse, error) {
	loanID, err := uuid.Parse(id)
	if err != nil {
		return LoanResponse{}, fmt.Errorf("invalid loan id: %w", err)
	}

	var loan *model.Loan
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		loan, findErr = s.loanRepo.FindByIDForUpdate(txCtx, loanID)
		if findErr != nil {
			return fmt.Errorf("loan not found: %w", findErr)
		}

		switch loan.Status {
		case model.LoanStatusPending:
		case model.LoanStatusApproved:
			if loan.TotalPaid.GreaterThan(decimal.Zero) {
				return fmt.Errorf("loan has payment history: %w", ledger.ErrInvalidTransition)
			}
		default:
			return fmt.Errorf("loan is %s: %w", loan.Status, ledger.ErrInvalidTransition)
		}

		wasApproved := loan.Status == model.LoanStatusApproved
		now := time.Now()
		loan.Status = model.LoanStatusCancelled
		loan.CancelledAt = &now
		if updateErr := s.loanRepo.Update(txCtx, loan); updateErr != nil {
			return fmt.Errorf("failed to update loan: %w", updateErr)
		}

		if wasApproved {
			if _, balErr := s.balance.Recalculate(txCtx, loan.SupplierID); balErr != nil {
				return balErr
			}
		}

		return s.writeAudit(txCtx, userID, model.ActionCancelLoan, loan.ID.String(), "", nil)
	})
	if err != nil {
		return LoanResponse{}, err
	}

	return toLoanResponse(loan), nil
}

func (s *loanService) RecordManualPayment(ctx context.Context, userID string, loanID string, req RecordPaymentRequest) (LoanPaymentResponse, error) {
	id, err := uuid.Parse(loanID)
	if err != nil {
		return LoanPaymentResponse{}, fmt.Errorf("invalid loan id: %w", err)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return LoanPaymentResponse{}, fmt.Errorf("invalid amount: %w", err)
	}

	if req.PaymentMethod == model.PaymentMethodAutoDebit {
		return LoanPaymentResponse{}, fmt.Errorf("AUTO_DEBIT is reserved for transaction deductions: %w", ledger.ErrInvalidAmount)
	}

	paymentDate, err := parseDate(req.PaymentDate)
	if err != nil {
		return LoanPaymentResponse{}, fmt.Errorf("invalid payment_date: %w", err)
	}

	var loan *model.Loan
	var payment *model.LoanPayment
	var split ledger.PaymentSplit

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		head, findErr := s.loanRepo.FindByID(txCtx, id)
		if findErr != nil {
			return fmt.Errorf("loan not found: %w", findErr)
		}

		// Same lock order as the orchestrator: supplier first, then loan.
		if _, lockErr := s.supplierRepo.FindByIDForUpdate(txCtx, head.SupplierID); lockErr != nil {
			return fmt.Errorf("supplier not found: %w", lockErr)
		}

		var reloadErr error
		loan, reloadErr = s.loanRepo.FindByIDForUpdate(txCtx, id)
		if reloadErr != nil {
			return fmt.Errorf("loan not found: %w", reloadErr)
		}

		var applyErr error
		split, applyErr = ledger.ApplyPayment(loan, amount, paymentDate)
		if applyErr != nil {
			return applyErr
		}

		reference, refErr := s.generateReferenceNumber(txCtx, paymentDate)
		if refErr != nil {
			return fmt.Errorf("failed to generate reference number: %w", refErr)
		}

		payment = &model.LoanPayment{
			LoanID:           loan.ID,
			Amount:           split.Amount,
			InterestPortion:  split.InterestPortion,
			PrincipalPortion: split.PrincipalPortion,
			PaymentMethod:    req.PaymentMethod,
			PaymentDate:      paymentDate,
			ReferenceNumber:  reference,
		}

		// Loan update and payment insert commit or fail together.
		if updateErr := s.loanRepo.Update(txCtx, loan); updateErr != nil {
			return fmt.Errorf("failed to update loan: %w", updateErr)
		}
		if payErr := s.paymentRepo.Create(txCtx, payment); payErr != nil {
			return fmt.Errorf("failed to record payment: %w", payErr)
		}

		if _, balErr := s.balance.Recalculate(txCtx, loan.SupplierID); balErr != nil {
			return balErr
		}

		return s.writeAudit(txCtx, userID, model.ActionRecordLoanPayment, loan.ID.String(), "", map[string]interface{}{
			"amount":            split.Amount.StringFixed(4),
			"interest_portion":  split.InterestPortion.StringFixed(4),
			"principal_portion": split.PrincipalPortion.StringFixed(4),
			"payment_method":    req.PaymentMethod,
		})
	})
	if err != nil {
		return LoanPaymentResponse{}, err
	}

	resp := toLoanPaymentResponse(payment)
	resp.LoanPaid = split.LoanPaid

	if _, scoreErr := s.scores.Refresh(ctx, loan.SupplierID); scoreErr != nil {
		log.Printf("credit score refresh failed for supplier %s: %v", loan.SupplierID, scoreErr)
		resp.CreditScoreStale = true
	}

	event := EventLoanPaymentRecorded
	if split.LoanPaid {
		event = EventLoanPaid
	}
	broadcastEvent(s.hub, event, map[string]interface{}{
		"loan_id":     loan.ID.String(),
		"supplier_id": loan.SupplierID.String(),
		"amount":      split.Amount.StringFixed(4),
	})

	return resp, nil
}

func (s *loanService) GetLoan(ctx context.Context, id string) (LoanResponse, error) {
	loanID, err := uuid.Parse(id)
	if err != nil {
		return LoanResponse{}, fmt.Errorf("invalid loan id: %w", err)
	}

	loan, err := s.loanRepo.FindByID(ctx, loanID)
	if err != nil {
		return LoanResponse{}, fmt.Errorf("loan not found: %w", err)
	}
	return toLoanResponse(loan), nil
}

func (s *loanService) ListLoans(ctx context.Context, filter LoanFilter) ([]LoanResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	loans, total, err := s.loanRepo.List(ctx, repository.LoanListFilter{
		SupplierID: filter.SupplierID,
		Status:     filter.Status,
		Page:       filter.Page,
		Limit:      filter.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch loans: %w", err)
	}

	result := make([]LoanResponse, 0, len(loans))
	for i := range loans {
		result = append(result, toLoanResponse(&loans[i]))
	}
	return result, total, nil
}

func (s *loanService) ListLoanPayments(ctx context.Context, loanID string) ([]LoanPaymentResponse, error) {
	id, err := uuid.Parse(loanID)
	if err != nil {
		return nil, fmt.Errorf("invalid loan id: %w", err)
	}

	payments, err := s.paymentRepo.FindByLoan(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payments: %w", err)
	}

	result := make([]LoanPaymentResponse, 0, len(payments))
	for i := range payments {
		result = append(result, toLoanPaymentResponse(&payments[i]))
	}
	return result, nil
}

// --- Helpers ---

func (s *loanService) generateReferenceNumber(ctx context.Context, paymentDate time.Time) (string, error) {
	prefix := "LP-" + paymentDate.Format("20060102") + "-"
	count, err := s.paymentRepo.CountByReferencePrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

func (s *loanService) writeAudit(ctx context.Context, userID string, action, entityID, entityName string, details map[string]interface{}) error {
	entry := &model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
	}
	if parsed, err := uuid.Parse(userID); err == nil {
		entry.UserID = &parsed
	}
	if details != nil {
		if payload, err := json.Marshal(details); err == nil {
			entry.Details = string(payload)
		}
	}
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func toLoanResponse(loan *model.Loan) LoanResponse {
	resp := LoanResponse{
		ID:                      loan.ID.String(),
		SupplierID:              loan.SupplierID.String(),
		Amount:                  loan.Amount.StringFixed(4),
		InterestRate:            loan.InterestRate.StringFixed(4),
		TotalAmountWithInterest: loan.TotalAmountWithInterest.StringFixed(4),
		TotalPaid:               loan.TotalPaid.StringFixed(4),
		PrincipalPaid:           loan.PrincipalPaid.StringFixed(4),
		InterestPaid:            loan.InterestPaid.StringFixed(4),
		RemainingBalance:        loan.RemainingBalance().StringFixed(4),
		Status:                  loan.Status,
		DueDate:                 loan.DueDate.Format("2006-01-02"),
		CreatedAt:               loan.CreatedAt.Format(time.RFC3339),
	}
	if loan.ApprovedAt != nil {
		s := loan.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &s
	}
	if loan.CompletedAt != nil {
		s := loan.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	return resp
}

func toLoanPaymentResponse(payment *model.LoanPayment) LoanPaymentResponse {
	return LoanPaymentResponse{
		ID:               payment.ID.String(),
		LoanID:           payment.LoanID.String(),
		Amount:           payment.Amount.StringFixed(4),
		InterestPortion:  payment.InterestPortion.StringFixed(4),
		PrincipalPortion: payment.PrincipalPortion.StringFixed(4),
		PaymentMethod:    payment.PaymentMethod,
		PaymentDate:      payment.PaymentDate.Format(time.RFC3339),
		ReferenceNumber:  payment.ReferenceNumber,
	}
}
