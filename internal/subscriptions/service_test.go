package subscriptions

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/soko-labs/sokolist-backend/pkg/db/models"
	"github.com/soko-labs/sokolist-backend/pkg/enums"
	"github.com/soko-labs/sokolist-backend/pkg/errors"
	"github.com/soko-labs/sokolist-backend/pkg/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Subscription{}); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM subscriptions")
	})
	return db
}

func testService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testDB(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewService(NewRepository(db), logg, 0), db
}

func TestPrepareForCheckoutCreatesPending(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	userID, planID := uuid.New(), uuid.New()

	sub, err := svc.PrepareForCheckout(ctx, nil, userID, planID)
	if err != nil {
		t.Fatalf("PrepareForCheckout: %v", err)
	}
	if sub.Status != enums.SubscriptionStatusPending {
		t.Fatalf("status = %s, want pending", sub.Status)
	}
	if sub.UserID != userID || sub.PlanID != planID {
		t.Fatalf("unexpected ownership: %+v", sub)
	}
}

func TestPrepareForCheckoutRejectsActive(t *testing.T) {
	svc, db := testService(t)
	ctx := context.Background()
	userID := uuid.New()

	existing := &models.Subscription{
		ID:     uuid.New(),
		UserID: userID,
		PlanID: uuid.New(),
		Status: enums.SubscriptionStatusActive,
	}
	if err := db.Create(existing).Error; err != nil {
		t.Fatalf("seeding: %v", err)
	}

	_, err := svc.PrepareForCheckout(ctx, nil, userID, uuid.New())
	if !errors.IsCode(err, errors.CodeConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestPrepareForCheckoutReusesRow(t *testing.T) {
	svc, db := testService(t)
	ctx := context.Background()
	userID := uuid.New()

	for _, status := range []enums.SubscriptionStatus{
		enums.SubscriptionStatusPending,
		enums.SubscriptionStatusPastDue,
		enums.SubscriptionStatusPaused,
	} {
		t.Run(string(status), func(t *testing.T) {
			existing := &models.Subscription{
				ID:     uuid.New(),
				UserID: userID,
				PlanID: uuid.New(),
				Status: status,
			}
			if err := db.Create(existing).Error; err != nil {
				t.Fatalf("seeding: %v", err)
			}

			newPlan := uuid.New()
			sub, err := svc.PrepareForCheckout(ctx, nil, userID, newPlan)
			if err != nil {
				t.Fatalf("PrepareForCheckout: %v", err)
			}
			if sub.ID != existing.ID {
				t.Fatalf("created a new row instead of reusing %s", existing.ID)
			}
			if sub.PlanID != newPlan {
				t.Fatalf("plan not updated")
			}
			if sub.Status != enums.SubscriptionStatusPending {
				t.Fatalf("status = %s, want pending", sub.Status)
			}

			db.Exec("DELETE FROM subscriptions")
		})
	}
}

func TestActivateOpensPeriod(t *testing.T) {
	svc, db := testService(t)
	ctx := context.Background()

	sub := &models.Subscription{
		ID:     uuid.New(),
		UserID: uuid.New(),
		PlanID: uuid.New(),
		Status: enums.SubscriptionStatusPending,
	}
	grace := time.Now().Add(72 * time.Hour)
	sub.GraceUntil = &grace
	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("seeding: %v", err)
	}

	paidAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	got, err := svc.Activate(ctx, nil, sub.ID, paidAt)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if got.Status != enums.SubscriptionStatusActive {
		t.Fatalf("status = %s, want active", got.Status)
	}
	if got.CurrentPeriodStart == nil || !got.CurrentPeriodStart.Equal(paidAt) {
		t.Fatalf("period start = %v, want %v", got.CurrentPeriodStart, paidAt)
	}
	wantEnd := paidAt.AddDate(0, 1, 0)
	if got.CurrentPeriodEnd == nil || !got.CurrentPeriodEnd.Equal(wantEnd) {
		t.Fatalf("period end = %v, want %v", got.CurrentPeriodEnd, wantEnd)
	}
	if got.NextPaymentDue == nil || !got.NextPaymentDue.Equal(wantEnd) {
		t.Fatalf("next payment due = %v, want %v", got.NextPaymentDue, wantEnd)
	}
	if got.GraceUntil != nil {
		t.Fatalf("grace not cleared")
	}
}

func TestActivateNotFound(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.Activate(context.Background(), nil, uuid.New(), time.Now())
	if !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestMarkPastDueLeavesActiveAlone(t *testing.T) {
	svc, db := testService(t)
	ctx := context.Background()

	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	sub := &models.Subscription{
		ID:                 uuid.New(),
		UserID:             uuid.New(),
		PlanID:             uuid.New(),
		Status:             enums.SubscriptionStatusActive,
		CurrentPeriodStart: &start,
		CurrentPeriodEnd:   &end,
	}
	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("seeding: %v", err)
	}

	got, err := svc.MarkPastDue(ctx, nil, sub.ID)
	if err != nil {
		t.Fatalf("MarkPastDue: %v", err)
	}
	if got.Status != enums.SubscriptionStatusActive {
		t.Fatalf("active subscription demoted to %s", got.Status)
	}
}

func TestMarkPastDueFromPending(t *testing.T) {
	svc, db := testService(t)
	ctx := context.Background()

	sub := &models.Subscription{
		ID:     uuid.New(),
		UserID: uuid.New(),
		PlanID: uuid.New(),
		Status: enums.SubscriptionStatusPending,
	}
	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("seeding: %v", err)
	}

	got, err := svc.MarkPastDue(ctx, nil, sub.ID)
	if err != nil {
		t.Fatalf("MarkPastDue: %v", err)
	}
	if got.Status != enums.SubscriptionStatusPastDue {
		t.Fatalf("status = %s, want past_due", got.Status)
	}
}

func TestCancelActive(t *testing.T) {
	svc, db := testService(t)
	ctx := context.Background()
	userID := uuid.New()

	due := time.Now().AddDate(0, 1, 0)
	sub := &models.Subscription{
		ID:             uuid.New(),
		UserID:         userID,
		PlanID:         uuid.New(),
		Status:         enums.SubscriptionStatusActive,
		NextPaymentDue: &due,
	}
	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("seeding: %v", err)
	}

	got, err := svc.Cancel(ctx, nil, userID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got.Status != enums.SubscriptionStatusCanceled {
		t.Fatalf("status = %s, want canceled", got.Status)
	}
	if got.NextPaymentDue != nil {
		t.Fatalf("next payment due not cleared")
	}
}

func TestCancelWithoutActive(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.Cancel(context.Background(), nil, uuid.New())
	if !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}
