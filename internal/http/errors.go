package api

import (
	"errors"
	"net/http"

	"votetally/internal/domain/generation"
	"votetally/internal/domain/option"
	"votetally/internal/domain/vote"
	"votetally/internal/platform/apperr"
	"votetally/internal/repository/sqlite"
)

func errorResponse(w http.ResponseWriter, err error) {
	appErr := mapError(err)
	if appErr.StatusCode() >= http.StatusInternalServerError {
		slogLogger.Error("request failed", "error", appErr.Code, "cause", appErr.Err)
	}
	writeJSON(w, appErr.StatusCode(), map[string]string{
		"error":   appErr.Code,
		"message": appErr.Message,
	})
}

func mapError(err error) *apperr.AppError {
	if err == nil {
		return apperr.Internal("internal server error", nil)
	}

	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, option.ErrTextRequired), errors.Is(err, vote.ErrOptionRequired):
		return apperr.BadRequest("Option is required", err)
	case errors.Is(err, option.ErrConflict):
		return apperr.Conflict("Option already exists", err)
	case errors.Is(err, option.ErrNotFound), errors.Is(err, vote.ErrOptionNotFound):
		return apperr.NotFound("Option not found", err)
	case generation.IsFatal(err):
		return apperr.Internal("Failed to reset database", err)
	case errors.Is(err, generation.ErrNotInitialized):
		return apperr.Internal("Database not initialized", err)
	case errors.Is(err, sqlite.ErrClosed):
		return apperr.Unavailable("Database unavailable", err)
	default:
		return apperr.Internal(http.StatusText(http.StatusInternalServerError), err)
	}
}
