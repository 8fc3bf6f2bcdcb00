package models

import "time"

type ActivationState string

const (
	ActivationPending ActivationState = "pending"
	ActivationActive  ActivationState = "active"
)

type Account struct {
	Base
	Email           string          `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash    string          `gorm:"not null" json:"-"`
	Name            string          `json:"name,omitempty"`
	Phone           string          `json:"phone,omitempty"`
	ActivationState ActivationState `gorm:"not null;index;default:'pending'" json:"activation_state"`
	ActivatedAt     *time.Time      `json:"activated_at,omitempty"`
}

func (Account) TableName() string {
	return "accounts"
}

func (a *Account) IsActive() bool {
	return a.ActivationState == ActivationActive
}

func (a *Account) IsPending() bool {
	return a.ActivationState == ActivationPending
}
