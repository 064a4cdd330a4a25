package notifications

import (
	"context"

	"github.com/google/uuid"

	"github.com/soko-labs/sokolist-backend/pkg/logger"
)

// Notifier delivers billing lifecycle messages to users. Delivery is best
// effort; reconciliation never fails on a notification error.
type Notifier interface {
	SubscriptionActivated(ctx context.Context, userID uuid.UUID, reference string)
	PaymentFailed(ctx context.Context, userID uuid.UUID, reference string)
	SubscriptionCancelled(ctx context.Context, userID uuid.UUID)
}

// LogNotifier writes notifications to the structured log. It stands in for a
// real email or push channel in environments without one configured.
type LogNotifier struct {
	logg *logger.Logger
}

func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) SubscriptionActivated(ctx context.Context, userID uuid.UUID, reference string) {
	n.emit(ctx, "subscription activated", userID, reference)
}

func (n *LogNotifier) PaymentFailed(ctx context.Context, userID uuid.UUID, reference string) {
	n.emit(ctx, "payment failed", userID, reference)
}

func (n *LogNotifier) SubscriptionCancelled(ctx context.Context, userID uuid.UUID) {
	n.emit(ctx, "subscription cancelled", userID, "")
}

func (n *LogNotifier) emit(ctx context.Context, event string, userID uuid.UUID, reference string) {
	if n.logg == nil {
		return
	}
	fields := map[string]any{
		"notification": event,
		"user_id":      userID.String(),
	}
	if reference != "" {
		fields["reference"] = reference
	}
	n.logg.Info(n.logg.WithFields(ctx, fields), "notification sent")
}
