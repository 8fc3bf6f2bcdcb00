// Package prompt is the prompt catalog. Every operation is gated by one of
// the *_prompt roles; like and bookmark counters move in the same
// transaction as their join rows.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hugh/prompthub/internal/apperr"
	"github.com/hugh/prompthub/internal/database/models"
	"github.com/hugh/prompthub/internal/permission"
	"github.com/hugh/prompthub/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const MaxTitleLength = 100

var (
	ErrPromptNotFound    = apperr.NotFound("prompt")
	ErrTitleInvalid      = apperr.InvalidFormat("INVALID_TITLE", "title must be between 1 and 100 characters")
	ErrBodyMissing       = apperr.BadArgument("MISSING_REQUIRED", "body is required")
	ErrNotAuthor         = apperr.Forbidden("NOT_AUTHOR", "only the author or an admin may change this prompt")
	ErrAlreadyLiked      = apperr.Duplicate("like")
	ErrNotLiked          = apperr.NotFound("like")
	ErrAlreadyBookmarked = apperr.Duplicate("bookmark")
	ErrNotBookmarked     = apperr.NotFound("bookmark")
)

// Gate is the slice of the permission engine this package uses.
type Gate interface {
	Require(ctx context.Context, accountID uuid.UUID, roles ...string) error
	HasRole(ctx context.Context, accountID uuid.UUID, role string) (bool, error)
}

var _ Gate = (*permission.Engine)(nil)

type Service struct {
	db     *gorm.DB
	gate   Gate
	logger *slog.Logger
}

func NewService(db *gorm.DB, gate Gate, logger *slog.Logger) *Service {
	return &Service{db: db, gate: gate, logger: logger}
}

type Input struct {
	Title string
	Body  string
}

func (in Input) normalize() (Input, error) {
	in.Title = strings.TrimSpace(in.Title)
	if n := utf8.RuneCountInString(in.Title); n == 0 || n > MaxTitleLength {
		return in, ErrTitleInvalid
	}
	if strings.TrimSpace(in.Body) == "" {
		return in, ErrBodyMissing
	}
	return in, nil
}

func (s *Service) Create(ctx context.Context, callerID uuid.UUID, input Input) (*models.Prompt, error) {
	if err := s.gate.Require(ctx, callerID, permission.RoleCreatePrompt); err != nil {
		return nil, err
	}
	input, err := input.normalize()
	if err != nil {
		return nil, err
	}

	p := &models.Prompt{AuthorID: callerID, Title: input.Title, Body: input.Body}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, fmt.Errorf("creating prompt: %w", err)
	}

	s.logger.Info("prompt created", "prompt_id", p.ID, "author_id", callerID)
	return p, nil
}

type ListParams struct {
	Offset   int
	Limit    int
	AuthorID *uuid.UUID
}

func (s *Service) List(ctx context.Context, callerID uuid.UUID, params ListParams) ([]models.Prompt, int64, error) {
	if err := s.gate.Require(ctx, callerID, permission.RoleReadPrompt); err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Model(&models.Prompt{})
	if params.AuthorID != nil {
		query = query.Where("author_id = ?", *params.AuthorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting prompts: %w", err)
	}

	var prompts []models.Prompt
	if err := query.Order("created_at DESC").Offset(params.Offset).Limit(params.Limit).Find(&prompts).Error; err != nil {
		return nil, 0, fmt.Errorf("listing prompts: %w", err)
	}
	return prompts, total, nil
}

func (s *Service) Get(ctx context.Context, callerID, promptID uuid.UUID) (*models.Prompt, error) {
	if err := s.gate.Require(ctx, callerID, permission.RoleReadPrompt); err != nil {
		return nil, err
	}
	return find(ctx, s.db, promptID)
}

func (s *Service) Update(ctx context.Context, callerID, promptID uuid.UUID, input Input) (*models.Prompt, error) {
	if err := s.gate.Require(ctx, callerID, permission.RoleUpdatePrompt); err != nil {
		return nil, err
	}
	input, err := input.normalize()
	if err != nil {
		return nil, err
	}

	p, err := s.authored(ctx, callerID, promptID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(p).Updates(map[string]interface{}{
		"title": input.Title,
		"body":  input.Body,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("updating prompt: %w", err)
	}
	p.Title, p.Body = input.Title, input.Body
	return p, nil
}

func (s *Service) Delete(ctx context.Context, callerID, promptID uuid.UUID) error {
	if err := s.gate.Require(ctx, callerID, permission.RoleDestroyPrompt); err != nil {
		return err
	}
	p, err := s.authored(ctx, callerID, promptID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("prompt_id = ?", p.ID).Delete(&models.PromptLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("prompt_id = ?", p.ID).Delete(&models.PromptBookmark{}).Error; err != nil {
			return err
		}
		return tx.Delete(p).Error
	})
	if err != nil {
		return fmt.Errorf("deleting prompt: %w", err)
	}

	s.logger.Info("prompt deleted", "prompt_id", p.ID, "caller_id", callerID)
	return nil
}

// authored loads the prompt and checks the caller wrote it or is an admin.
func (s *Service) authored(ctx context.Context, callerID, promptID uuid.UUID) (*models.Prompt, error) {
	p, err := find(ctx, s.db, promptID)
	if err != nil {
		return nil, err
	}
	if p.AuthorID == callerID {
		return p, nil
	}
	isAdmin, err := s.gate.HasRole(ctx, callerID, permission.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, ErrNotAuthor
	}
	return p, nil
}

func (s *Service) Like(ctx context.Context, callerID, promptID uuid.UUID) (*models.Prompt, error) {
	return s.react(ctx, promptID, "likes_count", 1, func(tx *gorm.DB) error {
		err := tx.Create(&models.PromptLike{AccountID: callerID, PromptID: promptID}).Error
		if store.IsDuplicate(err) {
			return ErrAlreadyLiked
		}
		return err
	})
}

func (s *Service) Unlike(ctx context.Context, callerID, promptID uuid.UUID) (*models.Prompt, error) {
	return s.react(ctx, promptID, "likes_count", -1, func(tx *gorm.DB) error {
		return deleteReaction(tx, &models.PromptLike{}, callerID, promptID, ErrNotLiked)
	})
}

func (s *Service) Bookmark(ctx context.Context, callerID, promptID uuid.UUID) (*models.Prompt, error) {
	return s.react(ctx, promptID, "bookmarks_count", 1, func(tx *gorm.DB) error {
		err := tx.Create(&models.PromptBookmark{AccountID: callerID, PromptID: promptID}).Error
		if store.IsDuplicate(err) {
			return ErrAlreadyBookmarked
		}
		return err
	})
}

func (s *Service) Unbookmark(ctx context.Context, callerID, promptID uuid.UUID) (*models.Prompt, error) {
	return s.react(ctx, promptID, "bookmarks_count", -1, func(tx *gorm.DB) error {
		return deleteReaction(tx, &models.PromptBookmark{}, callerID, promptID, ErrNotBookmarked)
	})
}

// react locks the prompt, applies change to the join table and moves the
// counter column by delta, all in one transaction.
func (s *Service) react(ctx context.Context, promptID uuid.UUID, column string, delta int, change func(tx *gorm.DB) error) (*models.Prompt, error) {
	var p *models.Prompt
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked models.Prompt
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, "id = ?", promptID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPromptNotFound
		}
		if err != nil {
			return err
		}

		if err := change(tx); err != nil {
			return err
		}

		err = tx.Model(&models.Prompt{}).
			Where("id = ?", promptID).
			UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
		if err != nil {
			return err
		}

		p, err = find(ctx, tx, promptID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func deleteReaction(tx *gorm.DB, model interface{}, accountID, promptID uuid.UUID, notFound error) error {
	result := tx.Where("account_id = ? AND prompt_id = ?", accountID, promptID).Delete(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound
	}
	return nil
}

func find(ctx context.Context, db *gorm.DB, promptID uuid.UUID) (*models.Prompt, error) {
	var p models.Prompt
	err := db.WithContext(ctx).First(&p, "id = ?", promptID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPromptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding prompt: %w", err)
	}
	return &p, nil
}
