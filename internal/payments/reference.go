package payments

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const referencePrefix = "SOKO"

// NewReference builds a client-facing payment reference. The shape is
// SOKO-{user prefix}-{plan prefix}-{base36 unix nanos}, upper-cased. The
// timestamp segment makes collisions between retries of the same user/plan
// pair implausible; the unique index on transactions.reference is the actual
// guarantee.
func NewReference(userID, planID uuid.UUID, now time.Time) string {
	ref := fmt.Sprintf("%s-%s-%s-%s",
		referencePrefix,
		shortID(userID),
		shortID(planID),
		strconv.FormatInt(now.UnixNano(), 36),
	)
	return strings.ToUpper(ref)
}

func shortID(id uuid.UUID) string {
	s := strings.ReplaceAll(id.String(), "-", "")
	return s[:8]
}
