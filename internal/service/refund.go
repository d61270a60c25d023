package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/webagency/backend/internal/events"
	"github.com/webagency/backend/internal/metrics"
	"github.com/webagency/backend/internal/model"
	"github.com/webagency/backend/internal/repository"
	"go.uber.org/zap"
)

type RefundService struct {
	repo      repository.Store
	walletSvc *WalletService
	ticketSvc *TicketService
	adminSvc  *AdminService
	publisher events.Publisher
	notifier  Notifier
	logger    *zap.Logger
	now       func() time.Time
}

func NewRefundService(repo repository.Store, walletSvc *WalletService, ticketSvc *TicketService, logger *zap.Logger) *RefundService {
	return &RefundService{
		repo:      repo,
		walletSvc: walletSvc,
		ticketSvc: ticketSvc,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetAdminService sets the audit log used for decisions
func (s *RefundService) SetAdminService(adminSvc *AdminService) {
	s.adminSvc = adminSvc
}

// SetPublisher sets where refund events go
func (s *RefundService) SetPublisher(publisher events.Publisher) {
	s.publisher = publisher
}

// SetNotifier sets where new refund requests are announced
func (s *RefundService) SetNotifier(notifier Notifier) {
	s.notifier = notifier
}

type SubmitRefundInput struct {
	UserID     string
	OrderID    string
	Amount     decimal.Decimal
	Reason     string
	ItemType   *string
	ItemName   *string
	OpenTicket bool
}

// Submit files a pending refund request against a completed purchase of the user.
func (s *RefundService) Submit(ctx context.Context, in SubmitRefundInput) (*model.RefundRequest, error) {
	if !validAmount(in.Amount) {
		return nil, ErrInvalidAmount
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, ErrMissingReason
	}

	refund := &model.RefundRequest{
		ID:          uuid.New(),
		UserID:      in.UserID,
		OrderID:     in.OrderID,
		ItemType:    in.ItemType,
		ItemName:    in.ItemName,
		Amount:      in.Amount,
		Reason:      strings.TrimSpace(in.Reason),
		Status:      model.RefundStatusPending,
		RequestDate: s.now(),
	}

	err := s.repo.InTx(ctx, func(store repository.Store) error {
		purchase, err := store.FindPurchase(ctx, in.UserID, in.OrderID)
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}

		// serialises submissions of one user
		if _, err := store.LockAccount(ctx, in.UserID); err != nil {
			return err
		}
		pending, err := store.HasPendingRefund(ctx, in.UserID, in.OrderID)
		if err != nil {
			return err
		}
		if pending {
			return ErrDuplicateRefund
		}

		previous, err := store.ListRefunds(ctx, model.RefundFilter{UserID: in.UserID, OrderID: in.OrderID})
		if err != nil {
			return err
		}
		remaining := purchase.Amount.Sub(committedRefunds(previous))
		if in.Amount.GreaterThan(remaining) {
			return fmt.Errorf("%w: only %s of the order total %s is still refundable",
				ErrInvalidAmount, decimal.Max(remaining, decimal.Zero).StringFixed(2), purchase.Amount.StringFixed(2))
		}
		return store.CreateRefund(ctx, refund)
	})
	if err != nil {
		return nil, err
	}

	if in.OpenTicket {
		s.openTicket(ctx, refund)
	}
	if s.notifier != nil {
		if err := s.notifier.SendRefundRequested(refund); err != nil {
			s.logger.Warn("failed to announce refund request", zap.String("refundId", refund.ID.String()), zap.Error(err))
		}
	}
	return refund, nil
}

// openTicket never fails the submission; errors are only logged.
func (s *RefundService) openTicket(ctx context.Context, refund *model.RefundRequest) {
	if s.ticketSvc == nil {
		return
	}
	subject := "Refund request for order " + refund.OrderID
	if refund.ItemName != nil && *refund.ItemName != "" {
		subject = "Refund request: " + *refund.ItemName
	}
	_, err := s.ticketSvc.Create(ctx, TicketInput{
		UserID:          refund.UserID,
		Subject:         subject,
		Message:         refund.Reason,
		Category:        model.TicketCategoryRefund,
		Priority:        model.TicketPriorityHigh,
		RelatedRefundID: &refund.ID,
	})
	if err != nil {
		s.logger.Error("failed to open refund ticket", zap.String("refundId", refund.ID.String()), zap.Error(err))
	}
}

// Approve marks a pending refund approved and credits the wallet in the same
// database transaction.
func (s *RefundService) Approve(ctx context.Context, refundID uuid.UUID, adminID string, notes *string) (*model.RefundRequest, error) {
	var refund *model.RefundRequest
	err := s.repo.InTx(ctx, func(store repository.Store) error {
		var err error
		refund, err = store.LockRefund(ctx, refundID)
		if err != nil {
			return err
		}
		if !refund.IsPending() {
			return ErrAlreadyProcessed
		}

		s.markProcessed(refund, model.RefundStatusApproved, adminID, notes)
		if err := store.UpdateRefund(ctx, refund); err != nil {
			return err
		}
		if _, err := s.walletSvc.ApplyRefundCredit(ctx, store, refund.UserID, refund.Amount, refund.CreditDescription(), &refund.ID); err != nil {
			return err
		}
		return s.logDecision(ctx, store, adminID, model.AdminActionApproveRefund, refund)
	})
	if err != nil {
		return nil, s.decisionError(err)
	}

	metrics.RefundDecisions.WithLabelValues(string(model.RefundStatusApproved)).Inc()
	s.publish(ctx, events.RefundApproved, refund)
	return refund, nil
}

// Reject closes a pending refund without touching the wallet. notes is required.
func (s *RefundService) Reject(ctx context.Context, refundID uuid.UUID, adminID, notes string) (*model.RefundRequest, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, ErrMissingReason
	}

	var refund *model.RefundRequest
	err := s.repo.InTx(ctx, func(store repository.Store) error {
		var err error
		refund, err = store.LockRefund(ctx, refundID)
		if err != nil {
			return err
		}
		if !refund.IsPending() {
			return ErrAlreadyProcessed
		}

		s.markProcessed(refund, model.RefundStatusRejected, adminID, &notes)
		if err := store.UpdateRefund(ctx, refund); err != nil {
			return err
		}
		return s.logDecision(ctx, store, adminID, model.AdminActionRejectRefund, refund)
	})
	if err != nil {
		return nil, s.decisionError(err)
	}

	metrics.RefundDecisions.WithLabelValues(string(model.RefundStatusRejected)).Inc()
	s.publish(ctx, events.RefundRejected, refund)
	return refund, nil
}

// Decide dispatches to Approve or Reject by the target status.
func (s *RefundService) Decide(ctx context.Context, refundID uuid.UUID, status model.RefundStatus, adminID, notes string) (*model.RefundRequest, error) {
	switch status {
	case model.RefundStatusApproved:
		var n *string
		if strings.TrimSpace(notes) != "" {
			n = &notes
		}
		return s.Approve(ctx, refundID, adminID, n)
	case model.RefundStatusRejected:
		return s.Reject(ctx, refundID, adminID, notes)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
}

// RequestMoreInfo asks the customer for details through a support ticket.
// The refund stays pending.
func (s *RefundService) RequestMoreInfo(ctx context.Context, refundID uuid.UUID, adminID, message string) (*model.SupportTicket, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrMissingReason
	}

	refund, err := s.repo.GetRefund(ctx, refundID)
	if err != nil {
		return nil, err
	}

	var ticket *model.SupportTicket
	err = s.repo.InTx(ctx, func(store repository.Store) error {
		var err error
		ticket, err = s.ticketSvc.create(ctx, store, TicketInput{
			UserID:          refund.UserID,
			Subject:         "Additional information needed for your refund request",
			Message:         message,
			Category:        model.TicketCategoryRefund,
			Priority:        model.TicketPriorityHigh,
			RelatedRefundID: &refund.ID,
		})
		if err != nil {
			return err
		}
		return s.logDecision(ctx, store, adminID, model.AdminActionRequestRefundInfo, refund)
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// Cancel lets the user withdraw a request that is still pending.
func (s *RefundService) Cancel(ctx context.Context, userID string, refundID uuid.UUID) error {
	return s.repo.InTx(ctx, func(store repository.Store) error {
		refund, err := store.LockRefund(ctx, refundID)
		if err != nil {
			return err
		}
		if refund.UserID != userID {
			return repository.ErrRefundNotFound
		}
		if !refund.IsPending() {
			return ErrAlreadyProcessed
		}
		return store.DeleteRefund(ctx, refundID)
	})
}

// RefundableItems lists the user's completed purchases that can still be
// refunded. Orders with a pending request are left out until it is decided.
func (s *RefundService) RefundableItems(ctx context.Context, userID string) ([]model.RefundableItem, error) {
	purchases, err := s.repo.ListTransactions(ctx, model.TransactionFilter{
		UserID: userID,
		Type:   model.TransactionTypePurchase,
		Status: model.TransactionStatusCompleted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load purchases: %w", err)
	}
	refunds, err := s.repo.ListRefunds(ctx, model.RefundFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to load refunds: %w", err)
	}

	byOrder := make(map[string][]model.RefundRequest)
	for _, r := range refunds {
		byOrder[r.OrderID] = append(byOrder[r.OrderID], r)
	}

	items := []model.RefundableItem{}
	seen := make(map[string]bool)
	for _, p := range purchases {
		// newest purchase per order wins, as in Submit
		if p.OrderID == nil || seen[*p.OrderID] {
			continue
		}
		seen[*p.OrderID] = true

		orderRefunds := byOrder[*p.OrderID]
		if hasPending(orderRefunds) {
			continue
		}
		refunded := committedRefunds(orderRefunds)
		remaining := p.Amount.Sub(refunded)
		if !remaining.IsPositive() {
			continue
		}
		items = append(items, model.RefundableItem{
			OrderID:     *p.OrderID,
			Description: p.Description,
			Paid:        p.Amount,
			Refunded:    refunded,
			Refundable:  remaining,
			PurchasedAt: p.CreatedAt,
		})
	}
	return items, nil
}

// committedRefunds sums the requests that are approved or still pending.
func committedRefunds(refunds []model.RefundRequest) decimal.Decimal {
	total := decimal.Zero
	for _, r := range refunds {
		if r.Status == model.RefundStatusApproved || r.Status == model.RefundStatusPending {
			total = total.Add(r.Amount)
		}
	}
	return total
}

func hasPending(refunds []model.RefundRequest) bool {
	for i := range refunds {
		if refunds[i].IsPending() {
			return true
		}
	}
	return false
}

func (s *RefundService) Get(ctx context.Context, refundID uuid.UUID) (*model.RefundRequest, error) {
	return s.repo.GetRefund(ctx, refundID)
}

// List returns refund requests, newest first
func (s *RefundService) List(ctx context.Context, filter model.RefundFilter) ([]model.RefundRequest, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, filter.Status)
	}
	return s.repo.ListRefunds(ctx, filter)
}

func (s *RefundService) markProcessed(refund *model.RefundRequest, status model.RefundStatus, adminID string, notes *string) {
	now := s.now()
	refund.Status = status
	refund.ProcessedDate = &now
	refund.ProcessedBy = &adminID
	if notes != nil {
		n := strings.TrimSpace(*notes)
		refund.AdminNotes = &n
	}
}

func (s *RefundService) logDecision(ctx context.Context, store repository.Store, adminID, action string, refund *model.RefundRequest) error {
	if s.adminSvc == nil {
		return nil
	}
	return s.adminSvc.LogAction(ctx, store, adminID, action, &refund.UserID, map[string]interface{}{
		"refundId": refund.ID,
		"orderId":  refund.OrderID,
		"amount":   refund.Amount,
	})
}

func (s *RefundService) decisionError(err error) error {
	if errors.Is(err, ErrAlreadyProcessed) || errors.Is(err, repository.ErrRefundNotFound) {
		return err
	}
	s.logger.Error("refund decision rolled back", zap.Error(err))
	return fmt.Errorf("failed to process refund: %w", err)
}

func (s *RefundService) publish(ctx context.Context, eventType string, refund *model.RefundRequest) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, events.Event{
		Type:       eventType,
		Key:        refund.UserID,
		OccurredAt: s.now(),
		Payload:    refund,
	})
	if err != nil {
		s.logger.Warn("failed to publish refund event", zap.String("type", eventType), zap.Error(err))
	}
}
