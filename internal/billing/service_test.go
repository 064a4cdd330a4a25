package billing_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soko-labs/sokolist-backend/internal/billing"
	"github.com/soko-labs/sokolist-backend/pkg/db/models"
	pkgerrors "github.com/soko-labs/sokolist-backend/pkg/errors"
)

// stubPlanRepo keeps plans in memory; the Plan model carries a pq.StringArray
// column, so these tests stay off sqlite.
type stubPlanRepo struct {
	plans   []models.Plan
	listErr error
	findErr error
}

func (s *stubPlanRepo) WithTx(tx *gorm.DB) billing.Repository { return s }

func (s *stubPlanRepo) ListPlans(ctx context.Context) ([]models.Plan, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.plans, nil
}

func (s *stubPlanRepo) FindPlanByID(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for i := range s.plans {
		if s.plans[i].ID == id {
			return &s.plans[i], nil
		}
	}
	return nil, nil
}

func (s *stubPlanRepo) FindPlanBySlug(ctx context.Context, slug string) (*models.Plan, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for i := range s.plans {
		if s.plans[i].Slug == slug {
			return &s.plans[i], nil
		}
	}
	return nil, nil
}

func newBillingService(t *testing.T, repo billing.Repository) *billing.Service {
	t.Helper()

	svc, err := billing.NewService(billing.ServiceParams{Repo: repo})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func assertCode(t *testing.T, err error, want pkgerrors.Code) {
	t.Helper()

	if !pkgerrors.IsCode(err, want) {
		t.Fatalf("error = %v, want code %s", err, want)
	}
}

func TestListPlans(t *testing.T) {
	repo := &stubPlanRepo{plans: []models.Plan{
		{ID: uuid.New(), Slug: "starter", MonthlyPriceCents: 0},
		{ID: uuid.New(), Slug: "growth", MonthlyPriceCents: 19900},
	}}
	svc := newBillingService(t, repo)

	plans, err := svc.ListPlans(context.Background())
	if err != nil {
		t.Fatalf("list plans: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("len(plans) = %d, want 2", len(plans))
	}
}

func TestListPlansWrapsRepoError(t *testing.T) {
	svc := newBillingService(t, &stubPlanRepo{listErr: stderrors.New("connection refused")})

	_, err := svc.ListPlans(context.Background())
	assertCode(t, err, pkgerrors.CodeDependency)
}

func TestResolvePlanPrefersID(t *testing.T) {
	byID := models.Plan{ID: uuid.New(), Slug: "growth"}
	bySlug := models.Plan{ID: uuid.New(), Slug: "starter"}
	svc := newBillingService(t, &stubPlanRepo{plans: []models.Plan{byID, bySlug}})

	plan, err := svc.ResolvePlan(context.Background(), byID.ID, "starter")
	if err != nil {
		t.Fatalf("resolve plan: %v", err)
	}
	if plan.ID != byID.ID {
		t.Fatalf("resolved plan %s, want the one matched by id", plan.Slug)
	}
}

func TestResolvePlanBySlug(t *testing.T) {
	want := models.Plan{ID: uuid.New(), Slug: "growth"}
	svc := newBillingService(t, &stubPlanRepo{plans: []models.Plan{want}})

	plan, err := svc.ResolvePlan(context.Background(), uuid.Nil, "growth")
	if err != nil {
		t.Fatalf("resolve plan: %v", err)
	}
	if plan.ID != want.ID {
		t.Fatalf("resolved plan %s, want growth", plan.Slug)
	}
}

func TestResolvePlanRequiresIDOrSlug(t *testing.T) {
	svc := newBillingService(t, &stubPlanRepo{})

	_, err := svc.ResolvePlan(context.Background(), uuid.Nil, "")
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestResolvePlanUnknown(t *testing.T) {
	svc := newBillingService(t, &stubPlanRepo{})

	_, err := svc.ResolvePlan(context.Background(), uuid.Nil, "enterprise")
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestResolvePlanWrapsRepoError(t *testing.T) {
	svc := newBillingService(t, &stubPlanRepo{findErr: stderrors.New("timeout")})

	_, err := svc.ResolvePlan(context.Background(), uuid.New(), "")
	assertCode(t, err, pkgerrors.CodeDependency)
}
