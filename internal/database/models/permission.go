package models

import (
	"time"

	"github.com/google/uuid"
)

// Resource is a named capability. Rows are static reference data.
type Resource struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (Resource) TableName() string {
	return "resources"
}

// Permission grants a Resource to an Account.
type Permission struct {
	AccountID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"account_id"`
	ResourceID uint      `gorm:"primaryKey;index" json:"resource_id"`
	CreatedAt  time.Time `json:"created_at"`

	Resource *Resource `gorm:"foreignKey:ResourceID" json:"resource,omitempty"`
}

func (Permission) TableName() string {
	return "permissions"
}
