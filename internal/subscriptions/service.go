package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soko-labs/sokolist-backend/pkg/db/models"
	"github.com/soko-labs/sokolist-backend/pkg/enums"
	"github.com/soko-labs/sokolist-backend/pkg/errors"
	"github.com/soko-labs/sokolist-backend/pkg/logger"
)

// Service owns subscription state transitions. Every mutating call issues a
// single write so concurrent reconcilers cannot interleave partial updates.
type Service struct {
	repo Repository
	logg *logger.Logger

	// period overrides the billing cycle length. Zero means one calendar month.
	period time.Duration
}

// NewService builds the subscription service. period is usually zero; tests
// pass a short duration to exercise expiry handling.
func NewService(repo Repository, logg *logger.Logger, period time.Duration) *Service {
	return &Service{repo: repo, logg: logg, period: period}
}

// PrepareForCheckout returns the subscription row a new checkout should bill
// against. An active subscription blocks checkout. A pending, past_due, or
// paused row is reused with the plan updated; otherwise a fresh pending row
// is created.
func (s *Service) PrepareForCheckout(ctx context.Context, tx *gorm.DB, userID, planID uuid.UUID) (*models.Subscription, error) {
	repo := s.repo.WithTx(tx)

	active, err := repo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "checking active subscription")
	}
	if active != nil {
		return nil, errors.New(errors.CodeConflict, "an active subscription already exists")
	}

	reusable, err := repo.FindReusableByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "checking reusable subscription")
	}
	if reusable != nil {
		reusable.PlanID = planID
		reusable.Status = enums.SubscriptionStatusPending
		if err := repo.Update(ctx, reusable); err != nil {
			return nil, errors.Wrap(errors.CodeInternal, err, "reusing subscription")
		}
		return reusable, nil
	}

	sub := &models.Subscription{
		ID:     uuid.New(),
		UserID: userID,
		PlanID: planID,
		Status: enums.SubscriptionStatusPending,
	}
	if err := repo.Create(ctx, sub); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "creating subscription")
	}
	return sub, nil
}

// Activate moves a subscription to active and opens a new billing period
// anchored at paidAt. Idempotent on the status value: activating an already
// active subscription still refreshes the period, which is what a late
// duplicate payment should do anyway.
func (s *Service) Activate(ctx context.Context, tx *gorm.DB, subID uuid.UUID, paidAt time.Time) (*models.Subscription, error) {
	repo := s.repo.WithTx(tx)

	sub, err := repo.FindByID(ctx, subID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "loading subscription")
	}
	if sub == nil {
		return nil, errors.New(errors.CodeNotFound, "subscription not found")
	}

	start := paidAt.UTC()
	end := s.periodEnd(start)

	sub.Status = enums.SubscriptionStatusActive
	sub.CurrentPeriodStart = &start
	sub.CurrentPeriodEnd = &end
	sub.NextPaymentDue = &end
	sub.GraceUntil = nil

	if err := repo.Update(ctx, sub); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "activating subscription")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"subscription_id": sub.ID.String(),
		"period_end":      end.Format(time.RFC3339),
	}), "subscription activated")
	return sub, nil
}

// MarkPastDue records a failed or cancelled payment. Period fields are left
// untouched so an earlier paid-up window keeps its original boundaries.
func (s *Service) MarkPastDue(ctx context.Context, tx *gorm.DB, subID uuid.UUID) (*models.Subscription, error) {
	repo := s.repo.WithTx(tx)

	sub, err := repo.FindByID(ctx, subID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "loading subscription")
	}
	if sub == nil {
		return nil, errors.New(errors.CodeNotFound, "subscription not found")
	}
	if sub.Status == enums.SubscriptionStatusActive {
		// A failed retry for a reference that predates the current paid
		// period must not demote a live subscription.
		return sub, nil
	}

	sub.Status = enums.SubscriptionStatusPastDue
	if err := repo.Update(ctx, sub); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "marking subscription past due")
	}
	return sub, nil
}

// Cancel terminates a subscription explicitly. Only the owner-facing cancel
// endpoint reaches this; payment failures go through MarkPastDue instead.
func (s *Service) Cancel(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Subscription, error) {
	repo := s.repo.WithTx(tx)

	sub, err := repo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "loading subscription")
	}
	if sub == nil {
		return nil, errors.New(errors.CodeNotFound, "no active subscription")
	}

	sub.Status = enums.SubscriptionStatusCanceled
	sub.NextPaymentDue = nil
	if err := repo.Update(ctx, sub); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "cancelling subscription")
	}

	s.logg.Info(s.logg.WithField(ctx, "subscription_id", sub.ID.String()), "subscription cancelled")
	return sub, nil
}

// Current returns the most relevant subscription for a user: the active one
// if present, otherwise the latest reusable row, otherwise nil.
func (s *Service) Current(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "loading subscription")
	}
	if sub != nil {
		return sub, nil
	}
	sub, err = s.repo.FindReusableByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "loading subscription")
	}
	return sub, nil
}

func (s *Service) periodEnd(start time.Time) time.Time {
	if s.period > 0 {
		return start.Add(s.period)
	}
	return start.AddDate(0, 1, 0)
}
