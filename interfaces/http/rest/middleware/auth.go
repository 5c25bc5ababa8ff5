package middleware

import (
	"net/http"
	"strings"

	"crm-backend/pkg/auth"
	"crm-backend/pkg/common"

	"go.uber.org/zap"
)

// Authenticator validates bearer tokens and installs the user context
type Authenticator struct {
	validator   *auth.JWTValidator
	userLimiter *auth.TokenBucketLimiter
	ipLimiter   *auth.TokenBucketLimiter
	logger      *zap.Logger
}

// NewAuthenticator creates the authentication middleware
func NewAuthenticator(validator *auth.JWTValidator, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		validator:   validator,
		userLimiter: auth.NewUserRateLimiter(120),
		ipLimiter:   auth.NewIPRateLimiter(300),
		logger:      logger,
	}
}

// Authenticate rejects requests without a valid bearer token and puts
// the authenticated user into the request context
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, err := a.ipLimiter.Allow(r.Context(), clientIP(r))
		if err == nil && !allowed {
			common.RespondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
			return
		}

		token := bearerToken(r)
		if token == "" {
			common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}

		claims, err := a.validator.ValidateToken(token)
		if err != nil {
			a.logger.Debug("token rejected", zap.Error(err))
			common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
			return
		}

		user := &auth.UserContext{
			UserID: claims.UserID,
			Email:  claims.Email,
			Roles:  claims.Roles,
		}

		allowed, err = a.userLimiter.Allow(r.Context(), user.UserID)
		if err == nil && !allowed {
			common.RespondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
			return
		}

		ctx := auth.SetUserInContext(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.IndexByte(forwarded, ','); idx > 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return strings.TrimSpace(forwarded)
	}
	host := r.RemoteAddr
	if idx := strings.LastIndexByte(host, ':'); idx > 0 {
		host = host[:idx]
	}
	return host
}
