package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"
)

const (
	HeaderSignature = "X-Transit-Signature"
	HeaderDate      = "X-Transit-Date"
	HeaderNonce     = "X-Transit-Nonce"
)

var (
	ErrMissingSignature = errors.New("missing signature headers")
	ErrStaleSignature   = errors.New("signature date outside allowed window")
)

func ComputeBodyHash(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// ComputeSignature signs the canonical request: session id, method, path,
// query, body hash, date and nonce joined by newlines.
func ComputeSignature(secret string, sessionID string, method string, path string, query string, bodyHash string, date string, nonce string) string {
	data := strings.Join([]string{
		sessionID,
		strings.ToUpper(method),
		path,
		query,
		bodyHash,
		date,
		nonce,
	}, "\n")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

type SignedRequest struct {
	Date      string
	Nonce     string
	Signature string
}

func ExtractSignatureHeaders(r *http.Request) (SignedRequest, error) {
	req := SignedRequest{
		Date:      r.Header.Get(HeaderDate),
		Nonce:     r.Header.Get(HeaderNonce),
		Signature: r.Header.Get(HeaderSignature),
	}
	if req.Date == "" || req.Nonce == "" || req.Signature == "" {
		return SignedRequest{}, ErrMissingSignature
	}
	return req, nil
}

// CheckDate accepts RFC 3339 dates within skew of now.
func (s SignedRequest) CheckDate(now time.Time, skew time.Duration) error {
	ts, err := time.Parse(time.RFC3339, s.Date)
	if err != nil {
		return ErrStaleSignature
	}
	if ts.Before(now.Add(-skew)) || ts.After(now.Add(skew)) {
		return ErrStaleSignature
	}
	return nil
}

func (s SignedRequest) Valid(secret string, sessionID string, r *http.Request, body []byte) bool {
	expected := ComputeSignature(secret, sessionID, r.Method, r.URL.Path, r.URL.RawQuery, ComputeBodyHash(body), s.Date, s.Nonce)
	return hmac.Equal([]byte(s.Signature), []byte(expected))
}
