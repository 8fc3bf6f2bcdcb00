package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/hugh/prompthub/internal/api/dto"
	"github.com/hugh/prompthub/internal/api/middleware"
	"github.com/hugh/prompthub/internal/api/validation"
	"github.com/hugh/prompthub/internal/database/models"
	"github.com/hugh/prompthub/internal/prompt"
)

type PromptHandler struct {
	prompts *prompt.Service
	logger  *slog.Logger
}

func NewPromptHandler(prompts *prompt.Service, logger *slog.Logger) *PromptHandler {
	return &PromptHandler{prompts: prompts, logger: logger}
}

type reaction func(ctx context.Context, callerID, promptID uuid.UUID) (*models.Prompt, error)

func (h *PromptHandler) List(w http.ResponseWriter, r *http.Request) {
	page := paginationFromQuery(r)
	params := prompt.ListParams{Offset: page.Offset(), Limit: page.PerPage}

	if author := r.URL.Query().Get("author_id"); author != "" {
		authorID, err := uuid.Parse(author)
		if err != nil {
			writeError(w, h.logger, errInvalidID.WithDetails(map[string]string{"param": "author_id"}))
			return
		}
		params.AuthorID = &authorID
	}

	prompts, total, err := h.prompts.List(r.Context(), middleware.GetAccountID(r.Context()), params)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.NewPaginatedResponse(dto.NewPromptDTOs(prompts), total, page))
}

func (h *PromptHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.PromptRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	p, err := h.prompts.Create(r.Context(), middleware.GetAccountID(r.Context()), input(req))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.NewPromptDTO(p))
}

func (h *PromptHandler) Get(w http.ResponseWriter, r *http.Request) {
	promptID, ok := pathUUID(w, r, h.logger, "id")
	if !ok {
		return
	}

	p, err := h.prompts.Get(r.Context(), middleware.GetAccountID(r.Context()), promptID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewPromptDTO(p))
}

func (h *PromptHandler) Update(w http.ResponseWriter, r *http.Request) {
	promptID, ok := pathUUID(w, r, h.logger, "id")
	if !ok {
		return
	}
	var req dto.PromptRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	p, err := h.prompts.Update(r.Context(), middleware.GetAccountID(r.Context()), promptID, input(req))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewPromptDTO(p))
}

func (h *PromptHandler) Delete(w http.ResponseWriter, r *http.Request) {
	promptID, ok := pathUUID(w, r, h.logger, "id")
	if !ok {
		return
	}

	if err := h.prompts.Delete(r.Context(), middleware.GetAccountID(r.Context()), promptID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Prompt deleted"})
}

func (h *PromptHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.react(w, r, h.prompts.Like)
}

func (h *PromptHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.react(w, r, h.prompts.Unlike)
}

func (h *PromptHandler) Bookmark(w http.ResponseWriter, r *http.Request) {
	h.react(w, r, h.prompts.Bookmark)
}

func (h *PromptHandler) Unbookmark(w http.ResponseWriter, r *http.Request) {
	h.react(w, r, h.prompts.Unbookmark)
}

func (h *PromptHandler) react(w http.ResponseWriter, r *http.Request, apply reaction) {
	promptID, ok := pathUUID(w, r, h.logger, "id")
	if !ok {
		return
	}

	p, err := apply(r.Context(), middleware.GetAccountID(r.Context()), promptID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewPromptDTO(p))
}

func input(req dto.PromptRequest) prompt.Input {
	return prompt.Input{
		Title: validation.SanitizeString(req.Title),
		Body:  validation.SanitizeString(req.Body),
	}
}
