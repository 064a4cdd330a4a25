package enums

import "fmt"

// TransactionStatus tracks the lifecycle of a payment attempt. Transitions are
// monotonic: pending may move to paid or failed, terminal states never change.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusPaid    TransactionStatus = "paid"
	TransactionStatusFailed  TransactionStatus = "failed"
)

var validTransactionStatuses = []TransactionStatus{
	TransactionStatusPending,
	TransactionStatusPaid,
	TransactionStatusFailed,
}

// String implements fmt.Stringer.
func (t TransactionStatus) String() string {
	return string(t)
}

// IsValid reports whether the value is known.
func (t TransactionStatus) IsValid() bool {
	for _, candidate := range validTransactionStatuses {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (t TransactionStatus) IsTerminal() bool {
	return t == TransactionStatusPaid || t == TransactionStatusFailed
}

// ParseTransactionStatus converts raw input into a TransactionStatus.
func ParseTransactionStatus(value string) (TransactionStatus, error) {
	for _, candidate := range validTransactionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction status %q", value)
}
