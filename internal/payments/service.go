package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soko-labs/sokolist-backend/internal/notifications"
	"github.com/soko-labs/sokolist-backend/pkg/db/models"
	"github.com/soko-labs/sokolist-backend/pkg/enums"
	"github.com/soko-labs/sokolist-backend/pkg/errors"
	"github.com/soko-labs/sokolist-backend/pkg/gateway"
	"github.com/soko-labs/sokolist-backend/pkg/logger"
	"github.com/soko-labs/sokolist-backend/pkg/metrics"
)

// txRunner runs a function inside a database transaction. *db.Client
// satisfies it; tests substitute a pass-through.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type subscriptionManager interface {
	PrepareForCheckout(ctx context.Context, tx *gorm.DB, userID, planID uuid.UUID) (*models.Subscription, error)
	Activate(ctx context.Context, tx *gorm.DB, subID uuid.UUID, paidAt time.Time) (*models.Subscription, error)
	MarkPastDue(ctx context.Context, tx *gorm.DB, subID uuid.UUID) (*models.Subscription, error)
	Cancel(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Subscription, error)
}

type listingPublisher interface {
	ResumeUpToQuota(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, quota int) (int, error)
	PauseAll(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) (int64, error)
}

type planResolver interface {
	ResolvePlan(ctx context.Context, id uuid.UUID, slug string) (*models.Plan, error)
}

// Service orchestrates checkout and payment reconciliation. Reconcile is the
// single entry point for every payment signal: webhooks, the browser return
// redirect, and manual status queries all converge here.
type Service struct {
	tx       txRunner
	ledger   Ledger
	subs     subscriptionManager
	listings listingPublisher
	plans    planResolver
	gateway  gateway.Client
	notifier notifications.Notifier
	metrics  *metrics.PaymentMetrics
	logg     *logger.Logger
	now      func() time.Time
}

type ServiceParams struct {
	Tx       txRunner
	Ledger   Ledger
	Subs     subscriptionManager
	Listings listingPublisher
	Plans    planResolver
	Gateway  gateway.Client
	Notifier notifications.Notifier
	Metrics  *metrics.PaymentMetrics
	Logger   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Tx == nil || params.Ledger == nil || params.Subs == nil ||
		params.Plans == nil || params.Gateway == nil || params.Logger == nil {
		return nil, errors.New(errors.CodeInternal, "payments service missing dependencies")
	}
	return &Service{
		tx:       params.Tx,
		ledger:   params.Ledger,
		subs:     params.Subs,
		listings: params.Listings,
		plans:    params.Plans,
		gateway:  params.Gateway,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

// CheckoutParams identifies the plan a user wants to pay for. Either PlanID
// or PlanSlug must be set.
type CheckoutParams struct {
	UserID   uuid.UUID
	PlanID   uuid.UUID
	PlanSlug string
}

type CheckoutResult struct {
	PaymentURL string
	Reference  string
	IsDemo     bool
}

// Checkout prepares a subscription, records a pending transaction, and asks
// the gateway for a hosted payment page. A reference collision is retried
// once with a fresh timestamp before giving up.
func (s *Service) Checkout(ctx context.Context, params CheckoutParams) (*CheckoutResult, error) {
	plan, err := s.plans.ResolvePlan(ctx, params.PlanID, params.PlanSlug)
	if err != nil {
		return nil, err
	}

	var txn *models.Transaction
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		sub, err := s.subs.PrepareForCheckout(ctx, tx, params.UserID, plan.ID)
		if err != nil {
			return err
		}

		led := s.ledger.WithTx(tx)
		for attempt := 0; ; attempt++ {
			candidate := &models.Transaction{
				ID:             uuid.New(),
				UserID:         params.UserID,
				SubscriptionID: &sub.ID,
				PlanID:         plan.ID,
				Reference:      NewReference(params.UserID, plan.ID, s.now()),
				AmountCents:    plan.MonthlyPriceCents,
				CurrencyCode:   plan.CurrencyCode,
				Status:         enums.TransactionStatusPending,
			}
			err := led.Create(ctx, candidate)
			if err == nil {
				txn = candidate
				return nil
			}
			if !errors.IsCode(err, errors.CodeConflict) || attempt > 0 {
				return err
			}
		}
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithReference(ctx, txn.Reference)

	initiation, err := s.gateway.InitiatePayment(ctx, gateway.InitiatePaymentParams{
		UserID:      params.UserID,
		PlanID:      plan.ID,
		AmountCents: plan.MonthlyPriceCents,
		Currency:    plan.CurrencyCode,
		Reference:   txn.Reference,
		Description: plan.Name + " subscription",
	})
	if err != nil {
		// The row stays pending: the gateway may have created the session
		// before failing, and a later webhook must still be able to settle it.
		s.logg.Error(ctx, "gateway initiation failed, transaction left pending", err)
		return nil, err
	}

	s.metrics.IncCheckout()
	s.logg.Info(s.logg.WithField(ctx, "plan", plan.Slug), "checkout initiated")

	return &CheckoutResult{
		PaymentURL: initiation.PaymentURL,
		Reference:  txn.Reference,
		IsDemo:     initiation.Demo,
	}, nil
}

// ReconcileResult reports what a reconciliation pass did.
type ReconcileResult struct {
	Outcome           enums.PaymentOutcome
	AlreadyProcessed  bool
	Activated         bool
	ListingsPublished int
}

// Reconcile settles a payment reference against the gateway's authoritative
// status. The hint is trusted only in Demo Mode; a live deployment always
// re-queries the gateway, so a forged redirect or webhook body cannot mark a
// payment as paid. Safe to call any number of times: only the first caller
// to move the transaction out of pending performs side effects.
func (s *Service) Reconcile(ctx context.Context, reference, source string, hint *gateway.PaymentStatus) (*ReconcileResult, error) {
	ctx = s.logg.WithReference(ctx, reference)

	txn, err := s.ledger.FindByReference(ctx, reference)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "loading transaction")
	}
	if txn == nil {
		return nil, errors.New(errors.CodeNotFound, "unknown payment reference")
	}
	if txn.Status.IsTerminal() {
		return &ReconcileResult{
			Outcome:          outcomeFor(txn.Status),
			AlreadyProcessed: true,
		}, nil
	}

	status := hint
	if status == nil || !s.gateway.DemoMode() {
		status, err = s.gateway.QueryStatus(ctx, reference)
		if err != nil {
			return nil, err
		}
	}

	if !status.Outcome.IsTerminal() {
		s.logg.Info(s.logg.WithField(ctx, "outcome", string(status.Outcome)), "payment not settled yet")
		s.metrics.IncReconciled(string(status.Outcome), source)
		return &ReconcileResult{Outcome: status.Outcome}, nil
	}

	outcome := TerminalOutcome{Status: enums.TransactionStatusFailed}
	if status.Outcome == enums.OutcomePaid {
		paidAt := s.now().UTC()
		if status.PaidAt != nil {
			paidAt = status.PaidAt.UTC()
		}
		outcome.Status = enums.TransactionStatusPaid
		outcome.PaidAt = &paidAt
	}
	if status.ProviderTransactionID != "" {
		outcome.ProviderTransactionID = &status.ProviderTransactionID
	}

	result := &ReconcileResult{Outcome: status.Outcome}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		won, stored, err := s.ledger.WithTx(tx).TransitionToTerminal(ctx, reference, outcome)
		if err != nil {
			return err
		}
		if !won {
			result.AlreadyProcessed = true
			result.Outcome = outcomeFor(stored.Status)
			return nil
		}
		return s.settle(ctx, tx, stored, outcome, result)
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyProcessed {
		s.metrics.IncReconciled(string(result.Outcome), source)
		s.notify(ctx, txn, result)
	}
	return result, nil
}

// CancelSubscription terminates the caller's active subscription and pauses
// every published listing in the same transaction.
func (s *Service) CancelSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub *models.Subscription
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		sub, err = s.subs.Cancel(ctx, tx, userID)
		if err != nil {
			return err
		}
		if s.listings == nil {
			return nil
		}
		paused, err := s.listings.PauseAll(ctx, tx, userID)
		if err != nil {
			return err
		}
		s.logg.Info(s.logg.WithField(ctx, "listings_paused", paused), "subscription cancelled")
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.SubscriptionCancelled(ctx, userID)
	}
	return sub, nil
}

// settle applies the subscription and listing side effects of a terminal
// transition. Runs in the same transaction as the ledger write so a crash
// cannot leave a paid transaction with an inactive subscription.
func (s *Service) settle(ctx context.Context, tx *gorm.DB, txn *models.Transaction, outcome TerminalOutcome, result *ReconcileResult) error {
	if txn.SubscriptionID == nil {
		s.logg.Warn(ctx, "transaction has no subscription, skipping side effects")
		return nil
	}

	if outcome.Status != enums.TransactionStatusPaid {
		if _, err := s.subs.MarkPastDue(ctx, tx, *txn.SubscriptionID); err != nil {
			return err
		}
		return nil
	}

	paidAt := s.now().UTC()
	if outcome.PaidAt != nil {
		paidAt = *outcome.PaidAt
	}
	if _, err := s.subs.Activate(ctx, tx, *txn.SubscriptionID, paidAt); err != nil {
		return err
	}
	result.Activated = true

	if s.listings == nil {
		return nil
	}
	plan, err := s.plans.ResolvePlan(ctx, txn.PlanID, "")
	if err != nil {
		return err
	}
	published, err := s.listings.ResumeUpToQuota(ctx, tx, txn.UserID, plan.MaxActiveListings)
	if err != nil {
		// Listing publication is best effort; the payment already settled.
		s.logg.Error(ctx, "republishing listings", err)
	}
	result.ListingsPublished = published
	return nil
}

func (s *Service) notify(ctx context.Context, txn *models.Transaction, result *ReconcileResult) {
	if s.notifier == nil {
		return
	}
	switch result.Outcome {
	case enums.OutcomePaid:
		s.notifier.SubscriptionActivated(ctx, txn.UserID, txn.Reference)
	case enums.OutcomeFailed, enums.OutcomeCancelled:
		s.notifier.PaymentFailed(ctx, txn.UserID, txn.Reference)
	}
}

func outcomeFor(status enums.TransactionStatus) enums.PaymentOutcome {
	switch status {
	case enums.TransactionStatusPaid:
		return enums.OutcomePaid
	case enums.TransactionStatusFailed:
		return enums.OutcomeFailed
	default:
		return enums.OutcomePending
	}
}
