package billing

import (
	"context"

	"github.com/google/uuid"

	"github.com/soko-labs/sokolist-backend/pkg/db/models"
	pkgerrors "github.com/soko-labs/sokolist-backend/pkg/errors"
)

// Service exposes the plan catalog.
type Service struct {
	repo Repository
}

type ServiceParams struct {
	Repo Repository
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plan repo required")
	}
	return &Service{repo: params.Repo}, nil
}

func (s *Service) ListPlans(ctx context.Context) ([]models.Plan, error) {
	plans, err := s.repo.ListPlans(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list plans")
	}
	return plans, nil
}

// ResolvePlan finds a plan by id or slug, preferring the id when both are set.
func (s *Service) ResolvePlan(ctx context.Context, id uuid.UUID, slug string) (*models.Plan, error) {
	if id == uuid.Nil && slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id or slug required")
	}

	var (
		plan *models.Plan
		err  error
	)
	if id != uuid.Nil {
		plan, err = s.repo.FindPlanByID(ctx, id)
	} else {
		plan, err = s.repo.FindPlanBySlug(ctx, slug)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	return plan, nil
}
