package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/hugh/prompthub/internal/database/models"
)

// CreateContractRequest leaves MaxMemberCount zero to use the default cap.
type CreateContractRequest struct {
	MaxMemberCount int `json:"max_member_count,omitempty"`
}

func (r CreateContractRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.MaxMemberCount, validation.Min(0)),
	)
}

type UpdateContractRequest struct {
	MaxMemberCount int `json:"max_member_count"`
}

func (r UpdateContractRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.MaxMemberCount, validation.Required, validation.Min(1)),
	)
}

type AddMemberRequest struct {
	AccountID string `json:"account_id"`
}

func (r AddMemberRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AccountID, validation.Required, is.UUID),
	)
}

type ContractDTO struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	MaxMemberCount int       `json:"max_member_count"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewContractDTO(c *models.Contract) *ContractDTO {
	if c == nil {
		return nil
	}
	return &ContractDTO{
		ID:             c.ID.String(),
		OwnerID:        c.OwnerID.String(),
		MaxMemberCount: c.MaxMemberCount,
		CreatedAt:      c.CreatedAt,
	}
}

type MembershipDTO struct {
	AccountID  string    `json:"account_id"`
	ContractID string    `json:"contract_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewMembershipDTO(m *models.ContractMembership) MembershipDTO {
	return MembershipDTO{
		AccountID:  m.AccountID.String(),
		ContractID: m.ContractID.String(),
		CreatedAt:  m.CreatedAt,
	}
}
