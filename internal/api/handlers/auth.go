package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/hugh/prompthub/internal/api/dto"
	"github.com/hugh/prompthub/internal/api/middleware"
	"github.com/hugh/prompthub/internal/auth"
)

// CookieSettings names the session cookie and whether it is Secure.
type CookieSettings struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	authService *auth.Service
	cookie      CookieSettings
	logger      *slog.Logger
}

func NewAuthHandler(authService *auth.Service, cookie CookieSettings, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, cookie: cookie, logger: logger}
}

// Signup is public. A contract_id is refused with 403 because joining a
// tenant needs its owner; see SignupMember.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	input := auth.SignupInput{
		Email:          req.Email,
		Password:       req.Password,
		Name:           req.Name,
		Phone:          req.Phone,
		CreateContract: req.CreateContract,
	}
	if req.ContractID != "" {
		contractID, err := uuid.Parse(req.ContractID)
		if err != nil {
			writeError(w, h.logger, errInvalidID.WithDetails(map[string]string{"field": "contract_id"}))
			return
		}
		input.ContractID = &contractID
	}

	result, err := h.authService.Signup(r.Context(), input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.SignupResponse{
		Account:             dto.NewAccountDTO(result.Account),
		Contract:            dto.NewContractDTO(result.Contract),
		ActivationExpiresAt: result.ActivationExpiresAt,
	})
}

// SignupMember creates an account as a member of the contract in the path.
// The caller must own that contract or hold the admin role.
func (h *AuthHandler) SignupMember(w http.ResponseWriter, r *http.Request) {
	contractID, ok := pathUUID(w, r, h.logger, "id")
	if !ok {
		return
	}
	var req dto.MemberSignupRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	callerID := middleware.GetAccountID(r.Context())
	result, err := h.authService.Signup(r.Context(), auth.SignupInput{
		Email:      req.Email,
		Password:   req.Password,
		Name:       req.Name,
		Phone:      req.Phone,
		ContractID: &contractID,
		InvitedBy:  &callerID,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.SignupResponse{
		Account:             dto.NewAccountDTO(result.Account),
		ActivationExpiresAt: result.ActivationExpiresAt,
	})
}

// Activate accepts the token as a query parameter (the emailed link) or as
// a JSON body.
func (h *AuthHandler) Activate(w http.ResponseWriter, r *http.Request) {
	req := dto.ActivateRequest{Token: r.URL.Query().Get("token")}
	if r.Method == http.MethodPost {
		if !decodeJSON(w, r, h.logger, &req) {
			return
		}
	} else if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "token is required", Code: "MISSING_REQUIRED"})
		return
	}

	account, err := h.authService.Activate(r.Context(), req.Token)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewAccountDTO(account))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	session, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	middleware.SetSessionCookie(w, h.cookie.Name, h.cookie.Secure, session)

	writeJSON(w, http.StatusOK, dto.SessionResponse{
		Token:     session.Token,
		AccountID: session.AccountID.String(),
		ExpiresAt: session.ExpiresAt,
		Lifetime:  session.Lifetime,
	})
}

// Logout only clears the cookie; the token stays valid until it expires.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearSessionCookie(w, h.cookie.Name, h.cookie.Secure)
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Logged out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, err := h.authService.GetAccount(r.Context(), middleware.GetAccountID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewAccountDTO(account))
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangePasswordRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	err := h.authService.ChangePassword(r.Context(), middleware.GetAccountID(r.Context()), req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Password updated"})
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateProfileRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	account, err := h.authService.UpdateProfile(r.Context(), middleware.GetAccountID(r.Context()), req.Name, req.Phone)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewAccountDTO(account))
}
