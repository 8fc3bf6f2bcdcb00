package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hugh/prompthub/internal/apperr"
	"github.com/hugh/prompthub/internal/database/models"
	"github.com/hugh/prompthub/internal/store"
	"github.com/hugh/prompthub/pkg/metrics"
)

var (
	ErrUnauthenticated = apperr.Unauthenticated("UNAUTHENTICATED", "authentication required")
	ErrWrongTokenType  = apperr.Unauthenticated("WRONG_TOKEN_TYPE", "token cannot be used for this operation")
	ErrAccountState    = apperr.Unauthenticated("ACCOUNT_STATE", "account is not in the required activation state")
)

// Authenticator turns a bearer token into an account. Every failure it
// returns matches ErrUnauthenticated with errors.Is; the specific cause
// (ErrTokenExpired, ErrAccountState, ...) is also in the chain.
type Authenticator struct {
	tokens     *JWTService
	accounts   AccountFinder
	cookieName string
}

func NewAuthenticator(tokens *JWTService, accounts AccountFinder, cookieName string) *Authenticator {
	if cookieName == "" {
		cookieName = "token"
	}
	return &Authenticator{
		tokens:     tokens,
		accounts:   accounts,
		cookieName: cookieName,
	}
}

func (a *Authenticator) CookieName() string {
	return a.cookieName
}

// TokenFromRequest extracts the bearer token. The Authorization header wins
// over the session cookie; fromCookie tells the caller whether a stale
// cookie should be cleared on failure.
func (a *Authenticator) TokenFromRequest(r *http.Request) (token string, fromCookie bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, value, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value), false
		}
	}
	if cookie, err := r.Cookie(a.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	return "", false
}

// ResolveActiveAccount accepts only api tokens belonging to active accounts.
func (a *Authenticator) ResolveActiveAccount(ctx context.Context, token string) (*models.Account, error) {
	account, _, err := a.resolve(ctx, token, TokenTypeAPI, models.ActivationActive)
	return account, err
}

// ResolvePendingAccount accepts only activation tokens belonging to pending
// accounts. The verified claims are returned for the activation flow.
func (a *Authenticator) ResolvePendingAccount(ctx context.Context, token string) (*models.Account, *Claims, error) {
	return a.resolve(ctx, token, TokenTypeActivation, models.ActivationPending)
}

func (a *Authenticator) resolve(ctx context.Context, token string, typ TokenType, state models.ActivationState) (*models.Account, *Claims, error) {
	if token == "" {
		return nil, nil, ErrUnauthenticated
	}

	claims, err := a.tokens.Verify(token, "")
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			metrics.RecordTokenVerification(metrics.ResultExpired)
		} else {
			metrics.RecordTokenVerification(metrics.ResultInvalid)
		}
		return nil, nil, unauthenticated(err)
	}
	if claims.Type != typ {
		metrics.RecordTokenVerification(metrics.ResultInvalid)
		return nil, nil, unauthenticated(ErrWrongTokenType)
	}

	accountID, err := claims.AccountID()
	if err != nil {
		metrics.RecordTokenVerification(metrics.ResultInvalid)
		return nil, nil, unauthenticated(ErrInvalidToken)
	}

	account, err := a.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.RecordTokenVerification(metrics.ResultInvalid)
			return nil, nil, ErrUnauthenticated
		}
		return nil, nil, fmt.Errorf("loading account: %w", err)
	}
	if account.ActivationState != state {
		metrics.RecordTokenVerification(metrics.ResultInvalid)
		return nil, nil, unauthenticated(ErrAccountState)
	}

	metrics.RecordTokenVerification(metrics.ResultSuccess)
	return account, claims, nil
}

func unauthenticated(cause error) error {
	return fmt.Errorf("%w: %w", ErrUnauthenticated, cause)
}
