// Package types holds the wire envelopes shared by the JSON API. The webhook
// acknowledgement and the checkout response use provider-dictated shapes and
// bypass these.
package types

// SuccessEnvelope wraps every successful API payload under a "data" key.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the client-facing error body. Code mirrors the pkg/errors code
// vocabulary; Details carries field-level validation output only when the
// code's metadata allows exposing it.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
