package enums

// PaymentOutcome is the internal view of the gateway's payment status
// vocabulary. Unrecognized provider values map to OutcomeUnknown, which
// callers must treat as "not yet actionable", never as success or failure.
type PaymentOutcome string

const (
	OutcomePending   PaymentOutcome = "pending"
	OutcomePaid      PaymentOutcome = "paid"
	OutcomeFailed    PaymentOutcome = "failed"
	OutcomeCancelled PaymentOutcome = "cancelled"
	OutcomeUnknown   PaymentOutcome = "unknown"
)

// String implements fmt.Stringer.
func (o PaymentOutcome) String() string {
	return string(o)
}

// IsTerminal reports whether the outcome settles the payment attempt.
func (o PaymentOutcome) IsTerminal() bool {
	switch o {
	case OutcomePaid, OutcomeFailed, OutcomeCancelled:
		return true
	default:
		return false
	}
}
