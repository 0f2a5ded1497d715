// Package auth issues and verifies the short-lived guest tokens that gate
// the payment endpoints. There are no user accounts; the token only proves
// the caller came through the site, which keeps drive-by abuse off the paid
// gateway API.
package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	errors "github.com/gracechapel/church-backend/internal"
	"github.com/gracechapel/church-backend/internal/transport"
)

type GuestClaims struct {
	jwt.RegisteredClaims
}

// GenerateGuestToken mints an HS256 token valid for ttl.
func GenerateGuestToken(secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := GuestClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "guest",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyGuestToken parses and validates a guest token.
func VerifyGuestToken(secret, tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &GuestClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return errors.ErrInvalidToken
	}
	return nil
}

// GuestMiddleware rejects requests without a valid guest bearer token:
// 401 when the token is missing, 403 when it fails verification.
func GuestMiddleware(secret string, logger *slog.Logger) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := base.ExtractTokenFromHeader(r)
			if tokenString == "" {
				writeAuthFailure(base, w, errors.ErrMissingToken)
				return
			}

			if err := VerifyGuestToken(secret, tokenString); err != nil {
				logger.Warn("guest token rejected", "error", err, "remote_addr", r.RemoteAddr)
				writeAuthFailure(base, w, errors.ErrInvalidToken)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeAuthFailure renders an auth AppError in this API's failure shape.
func writeAuthFailure(base *transport.BaseHandler, w http.ResponseWriter, appErr *errors.AppError) {
	base.WriteJSON(w, appErr.StatusCode, map[string]interface{}{
		"success": false,
		"message": appErr.Message,
	})
}

// Handler serves guest token issuance.
type Handler struct {
	transport.BaseHandler
	Secret string
	TTL    time.Duration
	Logger *slog.Logger
}

func NewHandler(secret string, ttl time.Duration, logger *slog.Logger) *Handler {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Handler{
		BaseHandler: *transport.NewBaseHandler(logger),
		Secret:      secret,
		TTL:         ttl,
		Logger:      logger,
	}
}

// GuestToken handles GET /api/auth/guest-token
func (h *Handler) GuestToken(w http.ResponseWriter, r *http.Request) {
	token, err := GenerateGuestToken(h.Secret, h.TTL)
	if err != nil {
		h.Logger.Error("failed to generate guest token", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_in": int64(h.TTL.Seconds()),
	})
}
