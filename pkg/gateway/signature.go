package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// Header names the gateway uses on notifications. Lookup is case-insensitive.
const (
	SignatureHeader = "X-Gateway-Signature"
	TimestampHeader = "X-Gateway-Timestamp"
)

// SignatureCodec computes and verifies HMAC-SHA256 signatures over the
// canonical payload method ∥ path ∥ timestamp ∥ raw body (exact concatenation,
// body un-parsed). It is the trust boundary between this service and the
// gateway.
type SignatureCodec struct {
	secret []byte
}

func NewSignatureCodec(secret string) *SignatureCodec {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return &SignatureCodec{}
	}
	return &SignatureCodec{secret: []byte(secret)}
}

// Configured reports whether a signing secret is present. Without one the
// codec runs in the relaxed Demo Mode posture: Verify passes unconditionally.
func (c *SignatureCodec) Configured() bool {
	return c != nil && len(c.secret) > 0
}

// Sign returns the hex HMAC-SHA256 over the canonical payload.
func (c *SignatureCodec) Sign(method, path, timestamp string, body []byte) string {
	if !c.Configured() {
		return ""
	}
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(method))
	mac.Write([]byte(path))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the expected signature for the fixed notification path and
// compares it to the signature header in constant time. Malformed input yields
// false, never an error. With no secret configured it returns true; callers
// opt into that relaxation by running without gateway credentials.
func (c *SignatureCodec) Verify(method, path string, header http.Header, body []byte) bool {
	if !c.Configured() {
		return true
	}
	signature := strings.TrimSpace(header.Get(SignatureHeader))
	timestamp := strings.TrimSpace(header.Get(TimestampHeader))
	if signature == "" || timestamp == "" {
		return false
	}
	expected := c.Sign(method, path, timestamp, body)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
