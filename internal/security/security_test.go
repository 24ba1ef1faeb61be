package security

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHasher(t *testing.T) {
	hasher := NewPasswordHasher(Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1})

	encoded, err := hasher.Hash("admin123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$"))

	ok, err := hasher.Verify("admin123", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Verify("admin124", encoded)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = hasher.Verify("admin123", "plaintext")
	assert.ErrorIs(t, err, ErrMalformedHash)
}

func TestTokenIssuerRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", "transit-admin", time.Hour)
	now := time.Now()

	token, err := issuer.Issue("admin1", "sess1", "admin", "", now)
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "admin1", claims.UserID)
	assert.Equal(t, "sess1", claims.SessionID)
	assert.Equal(t, "admin", claims.Role)

	_, err = NewTokenIssuer("other", "transit-admin", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := issuer.Issue("admin1", "sess1", "admin", "", now.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = issuer.Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignedRequest(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	body := []byte(`{"reason":"blurry"}`)
	r := httptest.NewRequest("POST", "/api/v1/verifications/v1/reject?x=1", nil)
	sig := ComputeSignature("secret", "sess1", "POST", "/api/v1/verifications/v1/reject", "x=1", ComputeBodyHash(body), now.Format(time.RFC3339), "n1")
	r.Header.Set(HeaderDate, now.Format(time.RFC3339))
	r.Header.Set(HeaderNonce, "n1")
	r.Header.Set(HeaderSignature, sig)

	req, err := ExtractSignatureHeaders(r)
	require.NoError(t, err)
	assert.NoError(t, req.CheckDate(now.Add(time.Minute), 5*time.Minute))
	assert.ErrorIs(t, req.CheckDate(now.Add(time.Hour), 5*time.Minute), ErrStaleSignature)
	assert.True(t, req.Valid("secret", "sess1", r, body))
	assert.False(t, req.Valid("secret", "sess2", r, body))
	assert.False(t, req.Valid("secret", "sess1", r, []byte(`{}`)))

	_, err = ExtractSignatureHeaders(httptest.NewRequest("GET", "/", nil))
	assert.ErrorIs(t, err, ErrMissingSignature)
}
