package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/hugh/prompthub/internal/database/models"
)

// SignupRequest only checks shape; email and password rules live in the
// credential package.
type SignupRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	Name           string `json:"name,omitempty"`
	Phone          string `json:"phone,omitempty"`
	ContractID     string `json:"contract_id,omitempty"`
	CreateContract bool   `json:"create_contract,omitempty"`
}

func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required.Error("email is required")),
		validation.Field(&r.Password, validation.Required.Error("password is required")),
		validation.Field(&r.ContractID, is.UUID),
	)
}

// MemberSignupRequest creates an account directly inside a contract. The
// contract comes from the path.
type MemberSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

func (r MemberSignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required.Error("email is required")),
		validation.Field(&r.Password, validation.Required.Error("password is required")),
	)
}

type ActivateRequest struct {
	Token string `json:"token"`
}

func (r ActivateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required.Error("token is required")),
	)
}

// LoginRequest is not validated here: every malformed login is reported as
// invalid credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.NewPassword, validation.Required.Error("new password is required")),
	)
}

type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type SessionResponse struct {
	Token     string    `json:"token"`
	AccountID string    `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Lifetime  string    `json:"lifetime"`
}

type SignupResponse struct {
	Account             AccountDTO   `json:"account"`
	Contract            *ContractDTO `json:"contract,omitempty"`
	ActivationExpiresAt time.Time    `json:"activation_expires_at"`
}

type AccountDTO struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	ActivationState string     `json:"activation_state"`
	ActivatedAt     *time.Time `json:"activated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func NewAccountDTO(a *models.Account) AccountDTO {
	return AccountDTO{
		ID:              a.ID.String(),
		Email:           a.Email,
		Name:            a.Name,
		Phone:           a.Phone,
		ActivationState: string(a.ActivationState),
		ActivatedAt:     a.ActivatedAt,
		CreatedAt:       a.CreatedAt,
	}
}

func NewAccountDTOs(accounts []models.Account) []AccountDTO {
	out := make([]AccountDTO, 0, len(accounts))
	for i := range accounts {
		out = append(out, NewAccountDTO(&accounts[i]))
	}
	return out
}
