package models

import (
	"time"

	"github.com/google/uuid"
)

type Prompt struct {
	Base
	AuthorID       uuid.UUID `gorm:"type:uuid;index;not null" json:"author_id"`
	Title          string    `gorm:"not null" json:"title"`
	Body           string    `gorm:"type:text;not null" json:"body"`
	LikesCount     int       `gorm:"not null;default:0" json:"likes_count"`
	BookmarksCount int       `gorm:"not null;default:0" json:"bookmarks_count"`

	Author *Account `gorm:"foreignKey:AuthorID" json:"-"`
}

func (Prompt) TableName() string {
	return "prompts"
}

type PromptLike struct {
	AccountID uuid.UUID `gorm:"type:uuid;primaryKey"`
	PromptID  uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time
}

func (PromptLike) TableName() string {
	return "prompt_likes"
}

type PromptBookmark struct {
	AccountID uuid.UUID `gorm:"type:uuid;primaryKey"`
	PromptID  uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time
}

func (PromptBookmark) TableName() string {
	return "prompt_bookmarks"
}
