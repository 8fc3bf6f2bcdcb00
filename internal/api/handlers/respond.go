package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/prompthub/internal/api/dto"
	"github.com/hugh/prompthub/internal/api/validation"
	"github.com/hugh/prompthub/internal/apperr"
)

const maxBodyBytes = 1 << 20

var (
	errInvalidBody = apperr.BadArgument("INVALID_BODY", "invalid request body")
	errInvalidID   = apperr.BadArgument("INVALID_ID", "invalid id")
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindBadArgument, apperr.KindInvalidFormat:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindDuplicate, apperr.KindConflict, apperr.KindCapacityExceeded:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as an ErrorResponse. Unstructured and internal
// errors are logged and reported without their cause.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind == apperr.KindInternal {
		logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	writeJSON(w, statusFor(appErr.Kind), dto.ErrorResponse{
		Error:   appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	})
}

// decodeJSON reads the body into v and runs its validation rules when it
// has any. It writes the error response itself and reports whether the
// handler should continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, logger *slog.Logger, v interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, logger, errInvalidBody)
		return false
	}

	if validatable, ok := v.(validation.Validatable); ok {
		if err := validatable.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
				Error:   "validation failed",
				Code:    "VALIDATION_FAILED",
				Details: validation.Details(err),
			})
			return false
		}
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request, logger *slog.Logger, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, logger, errInvalidID.WithDetails(map[string]string{"param": name}))
		return uuid.Nil, false
	}
	return id, true
}

func paginationFromQuery(r *http.Request) dto.PaginationParams {
	p := dto.PaginationParams{}
	if page := r.URL.Query().Get("page"); page != "" {
		p.Page, _ = strconv.Atoi(page)
	}
	if perPage := r.URL.Query().Get("per_page"); perPage != "" {
		p.PerPage, _ = strconv.Atoi(perPage)
	}
	p.Normalize()
	return p
}
