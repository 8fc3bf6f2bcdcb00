package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/prompthub/internal/apperr"
	"github.com/hugh/prompthub/internal/credential"
	"github.com/hugh/prompthub/internal/database/models"
	"github.com/hugh/prompthub/internal/mail"
	"github.com/hugh/prompthub/internal/store"
	"github.com/hugh/prompthub/pkg/metrics"
)

// Role names granted at signup. They mirror permission.RoleUser and
// permission.RoleContract; auth does not import the permission package.
const (
	signupRoleUser     = "user"
	signupRoleContract = "contract"
)

var (
	ErrDuplicateEmail     = apperr.Duplicate("account").WithDetails(map[string]string{"field": "email"})
	ErrInvalidCredentials = apperr.Unauthenticated("INVALID_CREDENTIALS", "email or password is incorrect")
	ErrIncorrectPassword  = apperr.Unauthenticated("INCORRECT_PASSWORD", "current password is incorrect")
	ErrAlreadyActive      = apperr.New(apperr.KindConflict, "ALREADY_ACTIVE", "account is already active")
	ErrAccountNotFound    = apperr.NotFound("account")
	ErrConflictingSignup  = apperr.BadArgument("CONFLICTING_SIGNUP", "contract_id and create_contract are mutually exclusive")
	ErrInviterRequired    = apperr.Forbidden("INVITER_REQUIRED", "joining a contract requires its owner or an admin")
)

type ServiceConfig struct {
	// BaseURL prefixes activation links, e.g. "https://prompthub.example".
	BaseURL     string
	PhoneRegion string
}

// ServiceDeps are the collaborators of the account lifecycle. Roles and
// Memberships may be nil when signup never grants roles or joins tenants.
type ServiceDeps struct {
	Store         *store.Store
	Tokens        *JWTService
	Authenticator *Authenticator
	Roles         RoleGranter
	Memberships   MembershipWriter
	Mailer        Mailer
	Logger        *slog.Logger
}

type Service struct {
	store       *store.Store
	tokens      *JWTService
	authn       *Authenticator
	roles       RoleGranter
	memberships MembershipWriter
	mailer      Mailer
	cfg         ServiceConfig
	logger      *slog.Logger
}

func NewService(deps ServiceDeps, cfg ServiceConfig) *Service {
	if cfg.PhoneRegion == "" {
		cfg.PhoneRegion = credential.DefaultPhoneRegion
	}
	return &Service{
		store:       deps.Store,
		tokens:      deps.Tokens,
		authn:       deps.Authenticator,
		roles:       deps.Roles,
		memberships: deps.Memberships,
		mailer:      deps.Mailer,
		cfg:         cfg,
		logger:      deps.Logger,
	}
}

type SignupInput struct {
	Email    string
	Password string
	Name     string
	Phone    string

	// ContractID joins the new account to an existing tenant. InvitedBy
	// must then own that contract or hold the admin role.
	ContractID *uuid.UUID
	InvitedBy  *uuid.UUID
	// CreateContract makes the new account a tenant admin owning a fresh
	// contract.
	CreateContract bool
}

type SignupResult struct {
	Account  *models.Account
	Contract *models.Contract
	// ActivationExpiresAt is when the emailed activation link stops working.
	ActivationExpiresAt time.Time
}

// Signup creates a pending account and emails an activation link. Account,
// role grants and any contract or membership rows commit together. Joining
// an existing contract is only allowed for an authorized InvitedBy.
func (s *Service) Signup(ctx context.Context, input SignupInput) (*SignupResult, error) {
	email, err := credential.ParseEmail(input.Email)
	if err != nil {
		return nil, err
	}
	password, err := credential.ParsePassword(input.Password)
	if err != nil {
		return nil, err
	}
	name, err := credential.ParseName(input.Name)
	if err != nil {
		return nil, err
	}
	phone, err := credential.ParsePhone(input.Phone, s.cfg.PhoneRegion)
	if err != nil {
		return nil, err
	}
	if input.CreateContract && input.ContractID != nil {
		return nil, ErrConflictingSignup
	}
	if input.ContractID != nil {
		if err := s.authorizeInviter(ctx, input); err != nil {
			return nil, err
		}
	}

	hash, err := HashPassword(password.Reveal())
	if err != nil {
		return nil, apperr.Internal("hashing password", err)
	}

	account := &models.Account{
		Email:           email.String(),
		PasswordHash:    hash,
		Name:            name,
		Phone:           phone,
		ActivationState: models.ActivationPending,
	}
	result := &SignupResult{Account: account}

	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		if _, err := tx.Accounts.FindByEmail(ctx, account.Email, ""); err == nil {
			return ErrDuplicateEmail
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("checking email: %w", err)
		}

		if err := tx.Accounts.Create(ctx, account); err != nil {
			if store.IsDuplicate(err) {
				return ErrDuplicateEmail
			}
			return fmt.Errorf("creating account: %w", err)
		}

		roles := []string{signupRoleUser}
		switch {
		case input.CreateContract:
			if s.memberships == nil {
				return apperr.Internal("contract creation is not configured", nil)
			}
			contract, err := s.memberships.CreateContractTx(ctx, tx, account.ID)
			if err != nil {
				return err
			}
			result.Contract = contract
			roles = append(roles, signupRoleContract)
		case input.ContractID != nil:
			if s.memberships == nil {
				return apperr.Internal("contract membership is not configured", nil)
			}
			if _, err := s.memberships.AddMemberTx(ctx, tx, *input.ContractID, account.ID); err != nil {
				return err
			}
		}

		if s.roles != nil {
			if err := s.roles.GrantTx(ctx, tx, account.ID, roles...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account signed up",
		"account_id", account.ID,
		"contract_created", result.Contract != nil,
		"joined_contract", input.ContractID != nil,
	)

	issued, err := s.tokens.Issue(account.ID, TokenTypeActivation, s.tokens.DefaultLifetime(TokenTypeActivation), "")
	if err != nil {
		return nil, apperr.Internal("issuing activation token", err)
	}
	result.ActivationExpiresAt = issued.ExpiresAt

	s.sendActivation(ctx, account, issued)
	return result, nil
}

func (s *Service) authorizeInviter(ctx context.Context, input SignupInput) error {
	if input.InvitedBy == nil {
		return ErrInviterRequired
	}
	if s.memberships == nil {
		return apperr.Internal("contract membership is not configured", nil)
	}
	if _, err := s.memberships.Authorize(ctx, *input.InvitedBy, *input.ContractID); err != nil {
		return err
	}
	return nil
}

func (s *Service) sendActivation(ctx context.Context, account *models.Account, issued *IssuedToken) {
	if s.mailer == nil {
		s.logger.Warn("no mailer configured, activation mail skipped", "account_id", account.ID)
		return
	}

	msg := mail.Message{
		To:            account.Email,
		Template:      mail.TemplateActivation,
		ActivationURL: s.activationURL(issued.Token),
		ExpiresAt:     issued.ExpiresAt,
		Lifetime:      HumanReadableLifetime(issued.Lifetime),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("activation mail not sent", "account_id", account.ID, "error", err)
	}
}

func (s *Service) activationURL(token string) string {
	return s.cfg.BaseURL + "/api/v1/auth/activate?token=" + url.QueryEscape(token)
}

// Activate flips the account behind an activation token from pending to
// active. A token for an account that is already active fails with
// ErrAlreadyActive and changes nothing.
func (s *Service) Activate(ctx context.Context, token string) (*models.Account, error) {
	account, claims, err := s.authn.ResolvePendingAccount(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, ErrAccountState):
			return nil, ErrAlreadyActive
		case errors.Is(err, ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, ErrUnauthenticated):
			return nil, err
		}
		return nil, fmt.Errorf("resolving activation token: %w", err)
	}

	now := s.tokens.Now()
	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}

	activated, err := s.store.Accounts.Activate(ctx, account.ID, now)
	if err != nil {
		return nil, fmt.Errorf("activating account: %w", err)
	}
	if !activated {
		return nil, ErrAlreadyActive
	}

	s.logger.Info("account activated", "account_id", account.ID)
	return s.store.Accounts.FindByID(ctx, account.ID)
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	AccountID uuid.UUID
	ExpiresAt time.Time
	// Lifetime is the display form of the token lifetime, e.g. "2 weeks".
	Lifetime string
}

// Login exchanges credentials of an active account for an api token. Every
// mismatch returns ErrInvalidCredentials so callers cannot tell which half
// was wrong.
func (s *Service) Login(ctx context.Context, rawEmail, rawPassword string) (*Session, error) {
	email, err := credential.ParseEmail(rawEmail)
	if err != nil || rawPassword == "" {
		metrics.RecordLogin(metrics.ResultFailure)
		return nil, ErrInvalidCredentials
	}

	account, err := s.store.Accounts.FindByEmail(ctx, email.String(), models.ActivationActive)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("finding account: %w", err)
		}
		burnPasswordCheck(rawPassword)
		metrics.RecordLogin(metrics.ResultFailure)
		s.logger.Warn("login failed")
		return nil, ErrInvalidCredentials
	}

	if !CheckPassword(rawPassword, account.PasswordHash) {
		metrics.RecordLogin(metrics.ResultFailure)
		s.logger.Warn("login failed", "account_id", account.ID)
		return nil, ErrInvalidCredentials
	}

	issued, err := s.tokens.Issue(account.ID, TokenTypeAPI, s.tokens.DefaultLifetime(TokenTypeAPI), "")
	if err != nil {
		return nil, apperr.Internal("issuing api token", err)
	}

	metrics.RecordLogin(metrics.ResultSuccess)
	s.logger.Info("login succeeded", "account_id", account.ID)

	return &Session{
		Token:     issued.Token,
		AccountID: account.ID,
		ExpiresAt: issued.ExpiresAt,
		Lifetime:  HumanReadableLifetime(issued.Lifetime),
	}, nil
}

// ChangePassword replaces the password hash after verifying the current
// password. Nothing is written when verification fails.
func (s *Service) ChangePassword(ctx context.Context, accountID uuid.UUID, currentPassword, newPassword string) error {
	next, err := credential.ParsePassword(newPassword)
	if err != nil {
		return err
	}
	if currentPassword == "" {
		return credential.ErrPasswordMissing
	}

	account, err := s.store.Accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("finding account: %w", err)
	}

	if !CheckPassword(currentPassword, account.PasswordHash) {
		s.logger.Warn("password change rejected", "account_id", accountID)
		return ErrIncorrectPassword
	}

	hash, err := HashPassword(next.Reveal())
	if err != nil {
		return apperr.Internal("hashing password", err)
	}
	if err := s.store.Accounts.UpdatePasswordHash(ctx, accountID, hash); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	s.logger.Info("password changed", "account_id", accountID)
	return nil
}

// UpdateProfile replaces the display name and phone number.
func (s *Service) UpdateProfile(ctx context.Context, accountID uuid.UUID, rawName, rawPhone string) (*models.Account, error) {
	name, err := credential.ParseName(rawName)
	if err != nil {
		return nil, err
	}
	phone, err := credential.ParsePhone(rawPhone, s.cfg.PhoneRegion)
	if err != nil {
		return nil, err
	}

	if err := s.store.Accounts.UpdateProfile(ctx, accountID, name, phone); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	return s.GetAccount(ctx, accountID)
}

func (s *Service) GetAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	account, err := s.store.Accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("finding account: %w", err)
	}
	return account, nil
}
