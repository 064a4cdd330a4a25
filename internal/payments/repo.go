package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soko-labs/sokolist-backend/pkg/db"
	"github.com/soko-labs/sokolist-backend/pkg/db/models"
	"github.com/soko-labs/sokolist-backend/pkg/enums"
	"github.com/soko-labs/sokolist-backend/pkg/errors"
)

// TerminalOutcome carries the fields a winning terminal transition writes.
type TerminalOutcome struct {
	Status                enums.TransactionStatus
	ProviderTransactionID *string
	PaidAt                *time.Time
}

// Ledger persists transactions. Terminal transitions are conditional writes:
// only one caller ever observes won=true for a given reference.
type Ledger interface {
	WithTx(tx *gorm.DB) Ledger
	Create(ctx context.Context, txn *models.Transaction) error
	FindByReference(ctx context.Context, reference string) (*models.Transaction, error)
	TransitionToTerminal(ctx context.Context, reference string, outcome TerminalOutcome) (won bool, txn *models.Transaction, err error)
}

type ledger struct {
	db *gorm.DB
}

func NewLedger(gdb *gorm.DB) Ledger {
	return &ledger{db: gdb}
}

func (l *ledger) WithTx(tx *gorm.DB) Ledger {
	if tx == nil {
		return l
	}
	return &ledger{db: tx}
}

func (l *ledger) Create(ctx context.Context, txn *models.Transaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	err := l.db.WithContext(ctx).Create(txn).Error
	if err != nil && db.IsUniqueViolation(err, "uq_transactions_reference") {
		return errors.New(errors.CodeConflict, "payment reference already exists")
	}
	return err
}

func (l *ledger) FindByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	var txn models.Transaction
	if err := l.db.WithContext(ctx).
		Where("reference = ?", reference).
		First(&txn).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// TransitionToTerminal applies a pending -> terminal transition guarded by the
// current status. When the row is already terminal the write is a no-op and
// the caller must skip side effects; the stored row is returned either way.
func (l *ledger) TransitionToTerminal(ctx context.Context, reference string, outcome TerminalOutcome) (bool, *models.Transaction, error) {
	if !outcome.Status.IsTerminal() {
		return false, nil, errors.New(errors.CodeInternal, "transition target must be terminal")
	}

	updates := map[string]any{
		"status":     outcome.Status,
		"updated_at": time.Now().UTC(),
	}
	if outcome.ProviderTransactionID != nil {
		updates["provider_transaction_id"] = *outcome.ProviderTransactionID
	}
	if outcome.PaidAt != nil {
		updates["paid_at"] = *outcome.PaidAt
	}

	res := l.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("reference = ? AND status = ?", reference, enums.TransactionStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, nil, res.Error
	}

	txn, err := l.FindByReference(ctx, reference)
	if err != nil {
		return false, nil, err
	}
	if txn == nil {
		return false, nil, errors.New(errors.CodeNotFound, "transaction not found")
	}

	if res.RowsAffected == 0 {
		if txn.Status.IsTerminal() {
			return false, txn, nil
		}
		// Lost the race to another pending write, or the row is stuck.
		return false, txn, errors.New(errors.CodeStateConflict, "transaction is not pending")
	}
	return true, txn, nil
}
