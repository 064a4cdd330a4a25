package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soko-labs/sokolist-backend/internal/payments"
	whgateway "github.com/soko-labs/sokolist-backend/internal/webhooks/gateway"
	"github.com/soko-labs/sokolist-backend/pkg/db/models"
	"github.com/soko-labs/sokolist-backend/pkg/enums"
	pkgerrors "github.com/soko-labs/sokolist-backend/pkg/errors"
	"github.com/soko-labs/sokolist-backend/pkg/gateway"
	"github.com/soko-labs/sokolist-backend/pkg/logger"
)

type passTx struct{}

func (passTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type memLedger struct {
	rows map[string]*models.Transaction
}

func (l *memLedger) WithTx(tx *gorm.DB) payments.Ledger { return l }

func (l *memLedger) Create(ctx context.Context, txn *models.Transaction) error {
	l.rows[txn.Reference] = txn
	return nil
}

func (l *memLedger) FindByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	return l.rows[reference], nil
}

func (l *memLedger) TransitionToTerminal(ctx context.Context, reference string, outcome payments.TerminalOutcome) (bool, *models.Transaction, error) {
	txn := l.rows[reference]
	if txn == nil {
		return false, nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	if txn.Status.IsTerminal() {
		return false, txn, nil
	}
	txn.Status = outcome.Status
	return true, txn, nil
}

type noopSubs struct{}

func (noopSubs) PrepareForCheckout(ctx context.Context, tx *gorm.DB, userID, planID uuid.UUID) (*models.Subscription, error) {
	return &models.Subscription{ID: uuid.New()}, nil
}

func (noopSubs) Activate(ctx context.Context, tx *gorm.DB, subID uuid.UUID, paidAt time.Time) (*models.Subscription, error) {
	return &models.Subscription{ID: subID, Status: enums.SubscriptionStatusActive}, nil
}

func (noopSubs) MarkPastDue(ctx context.Context, tx *gorm.DB, subID uuid.UUID) (*models.Subscription, error) {
	return &models.Subscription{ID: subID, Status: enums.SubscriptionStatusPastDue}, nil
}

func (noopSubs) Cancel(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Subscription, error) {
	return &models.Subscription{Status: enums.SubscriptionStatusCanceled}, nil
}

type noopPlans struct{}

func (noopPlans) ResolvePlan(ctx context.Context, id uuid.UUID, slug string) (*models.Plan, error) {
	return &models.Plan{ID: id, MaxActiveListings: 5}, nil
}

type paidGateway struct {
	outcome enums.PaymentOutcome
}

func (g paidGateway) InitiatePayment(ctx context.Context, params gateway.InitiatePaymentParams) (*gateway.PaymentInitiation, error) {
	return &gateway.PaymentInitiation{PaymentURL: "https://pay.example", Reference: params.Reference}, nil
}

func (g paidGateway) QueryStatus(ctx context.Context, reference string) (*gateway.PaymentStatus, error) {
	return &gateway.PaymentStatus{Outcome: g.outcome}, nil
}

func (g paidGateway) DemoMode() bool { return false }

func (g paidGateway) Codec() *gateway.SignatureCodec { return gateway.NewSignatureCodec("") }

func newWebhookService(t *testing.T, ledger *memLedger, outcome enums.PaymentOutcome) *payments.Service {
	t.Helper()
	svc, err := payments.NewService(payments.ServiceParams{
		Tx:      passTx{},
		Ledger:  ledger,
		Subs:    noopSubs{},
		Plans:   noopPlans{},
		Gateway: paidGateway{outcome: outcome},
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func signedRequest(t *testing.T, codec *gateway.SignatureCodec, body []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, GatewayWebhookPath, bytes.NewReader(body))
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set(gateway.TimestampHeader, ts)
	req.Header.Set(gateway.SignatureHeader, codec.Sign(http.MethodPost, GatewayWebhookPath, ts, body))
	return req
}

func eventBody(t *testing.T, reference, status string) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]string{"reference": reference, "status": status})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestGatewayWebhookSettlesPayment(t *testing.T) {
	ledger := &memLedger{rows: map[string]*models.Transaction{}}
	subID := uuid.New()
	ledger.rows["SOKO-WH-1"] = &models.Transaction{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		SubscriptionID: &subID,
		PlanID:         uuid.New(),
		Reference:      "SOKO-WH-1",
		Status:         enums.TransactionStatusPending,
	}

	codec := gateway.NewSignatureCodec("whsec")
	handler := Gateway(newWebhookService(t, ledger, enums.OutcomePaid), codec, nil, nil, testLogger())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, signedRequest(t, codec, eventBody(t, "SOKO-WH-1", "SUCCESSFUL")))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var ack map[string]bool
	if err := json.NewDecoder(w.Body).Decode(&ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if !ack["received"] {
		t.Fatalf("ack = %v", ack)
	}
	if ledger.rows["SOKO-WH-1"].Status != enums.TransactionStatusPaid {
		t.Fatalf("transaction not settled: %s", ledger.rows["SOKO-WH-1"].Status)
	}
}

func TestGatewayWebhookRejectsBadSignature(t *testing.T) {
	ledger := &memLedger{rows: map[string]*models.Transaction{}}
	codec := gateway.NewSignatureCodec("whsec")
	handler := Gateway(newWebhookService(t, ledger, enums.OutcomePaid), codec, nil, nil, testLogger())

	body := eventBody(t, "SOKO-WH-2", "SUCCESSFUL")
	req := httptest.NewRequest(http.MethodPost, GatewayWebhookPath, bytes.NewReader(body))
	req.Header.Set(gateway.TimestampHeader, "1700000000")
	req.Header.Set(gateway.SignatureHeader, "deadbeef")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestGatewayWebhookRejectsMissingReference(t *testing.T) {
	ledger := &memLedger{rows: map[string]*models.Transaction{}}
	codec := gateway.NewSignatureCodec("whsec")
	handler := Gateway(newWebhookService(t, ledger, enums.OutcomePaid), codec, nil, nil, testLogger())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, signedRequest(t, codec, eventBody(t, "", "SUCCESSFUL")))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGatewayWebhookUnknownReference(t *testing.T) {
	ledger := &memLedger{rows: map[string]*models.Transaction{}}
	codec := gateway.NewSignatureCodec("whsec")
	handler := Gateway(newWebhookService(t, ledger, enums.OutcomePaid), codec, nil, nil, testLogger())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, signedRequest(t, codec, eventBody(t, "SOKO-NOPE", "SUCCESSFUL")))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGatewayWebhookRedeliveryAcknowledged(t *testing.T) {
	ledger := &memLedger{rows: map[string]*models.Transaction{}}
	subID := uuid.New()
	ledger.rows["SOKO-WH-3"] = &models.Transaction{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		SubscriptionID: &subID,
		Reference:      "SOKO-WH-3",
		Status:         enums.TransactionStatusPending,
	}

	codec := gateway.NewSignatureCodec("whsec")
	store := &fakeStore{}
	guard := whgateway.NewIdempotencyGuard(store, time.Hour, nil)
	handler := Gateway(newWebhookService(t, ledger, enums.OutcomePaid), codec, guard, nil, testLogger())

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, signedRequest(t, codec, eventBody(t, "SOKO-WH-3", "SUCCESSFUL")))
		if w.Code != http.StatusOK {
			t.Fatalf("delivery %d status = %d", i, w.Code)
		}
	}
	if ledger.rows["SOKO-WH-3"].Status != enums.TransactionStatusPaid {
		t.Fatalf("transaction not settled")
	}
}

type fakeStore struct {
	keys map[string]bool
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.keys == nil {
		f.keys = map[string]bool{}
	}
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func (f *fakeStore) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.keys, k)
	}
	return nil
}
