package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records reconciliation activity.
type PaymentMetrics struct {
	reconciled        *prometheus.CounterVec
	signatureFailures prometheus.Counter
	checkouts         prometheus.Counter
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	reconciled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_reconciliations_total",
		Help: "Reconciliation attempts by outcome and entry point.",
	}, []string{"outcome", "source"})
	signatureFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_signature_failures_total",
		Help: "Webhook notifications rejected for invalid signatures.",
	})
	checkouts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_initiations_total",
		Help: "Checkout initiations handed to the gateway.",
	})
	reg.MustRegister(reconciled, signatureFailures, checkouts)
	return &PaymentMetrics{
		reconciled:        reconciled,
		signatureFailures: signatureFailures,
		checkouts:         checkouts,
	}
}

// IncReconciled counts one reconciliation attempt.
func (m *PaymentMetrics) IncReconciled(outcome, source string) {
	if m == nil || m.reconciled == nil {
		return
	}
	m.reconciled.WithLabelValues(outcome, source).Inc()
}

// IncSignatureFailure counts one rejected webhook signature.
func (m *PaymentMetrics) IncSignatureFailure() {
	if m == nil || m.signatureFailures == nil {
		return
	}
	m.signatureFailures.Inc()
}

// IncCheckout counts one checkout initiation.
func (m *PaymentMetrics) IncCheckout() {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.Inc()
}
