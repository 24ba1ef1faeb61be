package middleware

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"transitadmin/internal/config"
	"transitadmin/internal/security"
)

// Signature verifies the HMAC request signature on mutating admin calls and
// rejects replayed nonces. It runs after Auth because the signature is bound
// to the session id.
func Signature(cfg config.SecurityConfig, redisClient *redis.Client, log zerolog.Logger) gin.HandlerFunc {
	skew := cfg.SignatureSkew
	if skew <= 0 {
		skew = 5 * time.Minute
	}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		session, ok := CurrentSession(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		signed, err := security.ExtractSignatureHeaders(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "signature_required"})
			return
		}
		if err := signed.CheckDate(time.Now(), skew); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "request_expired"})
			return
		}

		rawBody, err := c.GetRawData()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(rawBody))

		if !signed.Valid(cfg.SignatureSecret, session.SessionID, c.Request, rawBody) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_signature"})
			return
		}

		nonceKey := "sig:" + session.SessionID + ":" + signed.Nonce
		fresh, err := redisClient.SetNX(c.Request.Context(), nonceKey, "1", 2*skew).Result()
		if err != nil {
			log.Error().Err(err).Msg("nonce check failed")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "signature_unavailable"})
			return
		}
		if !fresh {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "replay_detected"})
			return
		}

		c.Next()
	}
}
