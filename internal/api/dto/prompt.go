package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/hugh/prompthub/internal/database/models"
)

type PromptRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (r PromptRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.RuneLength(1, 100)),
		validation.Field(&r.Body, validation.Required),
	)
}

type PromptDTO struct {
	ID             string    `json:"id"`
	AuthorID       string    `json:"author_id"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	LikesCount     int       `json:"likes_count"`
	BookmarksCount int       `json:"bookmarks_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func NewPromptDTO(p *models.Prompt) PromptDTO {
	return PromptDTO{
		ID:             p.ID.String(),
		AuthorID:       p.AuthorID.String(),
		Title:          p.Title,
		Body:           p.Body,
		LikesCount:     p.LikesCount,
		BookmarksCount: p.BookmarksCount,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func NewPromptDTOs(prompts []models.Prompt) []PromptDTO {
	out := make([]PromptDTO, 0, len(prompts))
	for i := range prompts {
		out = append(out, NewPromptDTO(&prompts[i]))
	}
	return out
}
