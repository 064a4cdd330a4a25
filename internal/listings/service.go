package listings

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/soko-labs/sokolist-backend/pkg/enums"
	pkgerrors "github.com/soko-labs/sokolist-backend/pkg/errors"
	"github.com/soko-labs/sokolist-backend/pkg/logger"
)

// Service applies the plan quota to a seller's listings.
type Service struct {
	repo   Repository
	logger *logger.Logger
}

type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "listing repo required")
	}
	return &Service{repo: params.Repo, logger: params.Logger}, nil
}

// ResumeUpToQuota publishes up to quota paused listings for the owner, most
// recently updated first. An owner with fewer paused listings than the quota
// gets all of them published. The bulk update is best effort: publication is
// idempotent, so a partially applied batch is retried by the next
// reconciliation event rather than rolled back.
func (s *Service) ResumeUpToQuota(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, quota int) (int, error) {
	if quota <= 0 {
		return 0, nil
	}
	repo := s.repo.WithTx(tx)

	paused, err := repo.ListPausedByOwner(ctx, ownerID, quota)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list paused listings")
	}

	published := 0
	var failures error
	for _, listing := range paused {
		if err := repo.UpdateStatus(ctx, listing.ID, enums.ListingStatusPublished); err != nil {
			failures = multierr.Append(failures, err)
			continue
		}
		published++
	}

	if failures != nil && s.logger != nil {
		s.logger.Warn(s.logger.WithFields(ctx, map[string]any{
			"owner_id":  ownerID.String(),
			"published": published,
			"errors":    failures.Error(),
		}), "listing resume partially applied")
	}

	return published, nil
}

// PauseAll pauses every published listing the owner has. Used when a
// subscription leaves the active state for good.
func (s *Service) PauseAll(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) (int64, error) {
	paused, err := s.repo.WithTx(tx).PauseAllByOwner(ctx, ownerID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "pause listings")
	}
	return paused, nil
}
