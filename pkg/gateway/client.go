package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soko-labs/sokolist-backend/pkg/config"
	"github.com/soko-labs/sokolist-backend/pkg/enums"
	pkgerrors "github.com/soko-labs/sokolist-backend/pkg/errors"
	"github.com/soko-labs/sokolist-backend/pkg/logger"
)

const (
	initiatePath = "/api/v1/collections/initiate"
	statusPath   = "/api/v1/collections/status"
)

// InitiatePaymentParams describes one outbound payment request.
type InitiatePaymentParams struct {
	UserID      uuid.UUID
	PlanID      uuid.UUID
	AmountCents int64
	Currency    string
	Reference   string
	Description string
	Metadata    map[string]string
}

// PaymentInitiation is the gateway's answer to an initiation request.
type PaymentInitiation struct {
	PaymentURL string
	Reference  string
	Demo       bool
}

// PaymentStatus is the authoritative payment state as reported by the gateway.
type PaymentStatus struct {
	Outcome               enums.PaymentOutcome
	ProviderTransactionID string
	PaidAt                *time.Time
}

// Client is the capability set handlers depend on. The live HTTP client and
// any alternate provider implement the same surface, so tests substitute a
// fake without touching configuration.
type Client interface {
	InitiatePayment(ctx context.Context, params InitiatePaymentParams) (*PaymentInitiation, error)
	QueryStatus(ctx context.Context, reference string) (*PaymentStatus, error)
	DemoMode() bool
	Codec() *SignatureCodec
}

// HTTPClient talks to the live gateway, or simulates it deterministically in
// Demo Mode when no credentials are configured.
type HTTPClient struct {
	cfg    config.GatewayConfig
	codec  *SignatureCodec
	http   *http.Client
	logger *logger.Logger
}

var _ Client = (*HTTPClient)(nil)

func NewClient(ctx context.Context, cfg config.GatewayConfig, logg *logger.Logger) (*HTTPClient, error) {
	if logg == nil {
		return nil, errors.New("gateway logger is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &HTTPClient{
		cfg:    cfg,
		codec:  NewSignatureCodec(cfg.WebhookSecret),
		http:   &http.Client{Timeout: timeout},
		logger: logg,
	}
	mode := "live"
	if c.DemoMode() {
		mode = "demo"
	}
	logg.Info(logg.WithField(ctx, "gateway_mode", mode), "gateway client initialized")
	return c, nil
}

// DemoMode reports whether the client simulates the gateway.
func (c *HTTPClient) DemoMode() bool {
	return c.cfg.DemoMode()
}

// Codec returns the signature codec shared with the webhook controller.
func (c *HTTPClient) Codec() *SignatureCodec {
	return c.codec
}

// InitiatePayment starts a collection and returns the redirect URL the buyer's
// browser should be sent to. In Demo Mode the redirect points straight back at
// the return endpoint so the whole flow runs without a live gateway.
func (c *HTTPClient) InitiatePayment(ctx context.Context, params InitiatePaymentParams) (*PaymentInitiation, error) {
	if params.Reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}

	if c.DemoMode() {
		redirect, err := c.demoRedirectURL(params.Reference)
		if err != nil {
			return nil, err
		}
		c.log(ctx, "response", "initiate_payment", map[string]any{"reference": params.Reference, "demo": true})
		return &PaymentInitiation{PaymentURL: redirect, Reference: params.Reference, Demo: true}, nil
	}

	body, err := json.Marshal(map[string]any{
		"amount":       params.AmountCents,
		"currency":     params.Currency,
		"reference":    params.Reference,
		"description":  params.Description,
		"callback_url": c.cfg.CallbackURL,
		"metadata":     params.Metadata,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode initiation request")
	}

	c.log(ctx, "request", "initiate_payment", map[string]any{"reference": params.Reference, "amount": params.AmountCents})

	var payload struct {
		PaymentURL string `json:"payment_url"`
		Reference  string `json:"reference"`
	}
	if err := c.do(ctx, http.MethodPost, initiatePath, "", body, &payload); err != nil {
		c.log(ctx, "error", "initiate_payment", map[string]any{"reference": params.Reference, "error": err.Error()})
		return nil, err
	}
	if payload.PaymentURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway returned no payment url")
	}

	c.log(ctx, "response", "initiate_payment", map[string]any{"reference": params.Reference})
	return &PaymentInitiation{PaymentURL: payload.PaymentURL, Reference: params.Reference}, nil
}

// QueryStatus fetches the authoritative state of a collection. Status queries
// are safe to repeat; a timeout surfaces as a dependency error and callers
// treat the payment as not yet actionable.
func (c *HTTPClient) QueryStatus(ctx context.Context, reference string) (*PaymentStatus, error) {
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}

	if c.DemoMode() {
		now := time.Now().UTC()
		return &PaymentStatus{
			Outcome:               enums.OutcomePaid,
			ProviderTransactionID: "demo-" + uuid.NewString(),
			PaidAt:                &now,
		}, nil
	}

	query := "reference=" + url.QueryEscape(reference)
	c.log(ctx, "request", "query_status", map[string]any{"reference": reference})

	var payload struct {
		Status        string `json:"status"`
		TransactionID string `json:"transaction_id"`
		PaidAt        string `json:"paid_at"`
	}
	if err := c.do(ctx, http.MethodGet, statusPath, query, nil, &payload); err != nil {
		c.log(ctx, "error", "query_status", map[string]any{"reference": reference, "error": err.Error()})
		return nil, err
	}

	status := &PaymentStatus{
		Outcome:               mapProviderStatus(payload.Status),
		ProviderTransactionID: payload.TransactionID,
	}
	if payload.PaidAt != "" {
		if ts, err := time.Parse(time.RFC3339, payload.PaidAt); err == nil {
			status.PaidAt = &ts
		}
	}

	c.log(ctx, "response", "query_status", map[string]any{"reference": reference, "outcome": status.Outcome.String()})
	return status, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path, rawQuery string, body []byte, dest any) error {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path
	if rawQuery != "" {
		endpoint += "?" + rawQuery
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build gateway request")
	}

	timestamp := strconv.FormatInt(time.Now().UTC().Unix(), 10)
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(TimestampHeader, timestamp)
	if c.codec.Configured() {
		req.Header.Set(SignatureHeader, c.codec.Sign(method, path, timestamp, body))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read gateway response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("gateway returned status %d", resp.StatusCode)).
			WithDetails(map[string]any{"status": resp.StatusCode})
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode gateway response")
	}
	return nil
}

func (c *HTTPClient) demoRedirectURL(reference string) (string, error) {
	parsed, err := url.Parse(c.cfg.CallbackURL)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse callback url")
	}
	q := parsed.Query()
	q.Set("reference", reference)
	q.Set("status", "paid")
	q.Set("demo", "true")
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

// mapProviderStatus folds the provider's status vocabulary onto the internal
// outcome enum. Anything unrecognized is unknown, never success or failure.
func mapProviderStatus(raw string) enums.PaymentOutcome {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SUCCESSFUL", "SUCCESS", "PAID":
		return enums.OutcomePaid
	case "PENDING", "PROCESSING":
		return enums.OutcomePending
	case "FAILED":
		return enums.OutcomeFailed
	case "CANCELLED", "CANCELED":
		return enums.OutcomeCancelled
	default:
		return enums.OutcomeUnknown
	}
}

func (c *HTTPClient) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("gateway %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("gateway %s", phase))
	}
}
