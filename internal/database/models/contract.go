package models

import (
	"time"

	"github.com/google/uuid"
)

const DefaultMaxMemberCount = 5

// Contract is the tenant unit. Each account owns at most one.
type Contract struct {
	Base
	OwnerID        uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"owner_id"`
	MaxMemberCount int       `gorm:"not null;default:5" json:"max_member_count"`

	// Relationships
	Owner       *Account             `gorm:"foreignKey:OwnerID" json:"-"`
	Memberships []ContractMembership `gorm:"foreignKey:ContractID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Contract) TableName() string {
	return "contracts"
}

type ContractMembership struct {
	AccountID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"account_id"`
	ContractID uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"contract_id"`
	CreatedAt  time.Time `json:"created_at"`

	Account *Account `gorm:"foreignKey:AccountID" json:"-"`
}

func (ContractMembership) TableName() string {
	return "contract_memberships"
}
