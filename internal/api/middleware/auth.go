package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/hugh/prompthub/internal/api/dto"
	"github.com/hugh/prompthub/internal/apperr"
	"github.com/hugh/prompthub/internal/auth"
	"github.com/hugh/prompthub/internal/database/models"
)

type contextKey string

const (
	AccountIDKey contextKey = "account_id"
	AccountKey   contextKey = "account"
)

// RoleChecker is the slice of the permission engine RequireRole uses.
type RoleChecker interface {
	HasAnyRole(ctx context.Context, accountID uuid.UUID, roles ...string) (bool, error)
}

// Auth resolves the request token to an active account. Requests without a
// usable token get a 401 and a stale session cookie is cleared on the way
// out. Lookup failures get a 500 and leave the cookie alone.
func Auth(authn *auth.Authenticator, secureCookie bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, fromCookie := authn.TokenFromRequest(r)

			account, err := authn.ResolveActiveAccount(r.Context(), token)
			if err != nil {
				if !apperr.IsKind(err, apperr.KindUnauthenticated) {
					logger.Error("resolving account", "error", err)
					writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
					return
				}
				if fromCookie {
					ClearSessionCookie(w, authn.CookieName(), secureCookie)
				}
				writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), AccountIDKey, account.ID)
			ctx = context.WithValue(ctx, AccountKey, account)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SetSessionCookie stores an api token in an HTTP-only cookie.
func SetSessionCookie(w http.ResponseWriter, name string, secure bool, session *auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func GetAccountID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(AccountIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

func GetAccount(ctx context.Context) *models.Account {
	if account, ok := ctx.Value(AccountKey).(*models.Account); ok {
		return account
	}
	return nil
}

// RequireRole lets the request through when the account holds any of roles.
func RequireRole(checker RoleChecker, logger *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID := GetAccountID(r.Context())
			if accountID == uuid.Nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
				return
			}

			ok, err := checker.HasAnyRole(r.Context(), accountID, roles...)
			if err != nil {
				logger.Error("checking roles", "account_id", accountID, "error", err)
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
				return
			}
			if !ok {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "missing required permission")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: message, Code: code})
}
