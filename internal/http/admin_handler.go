package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"votetally/internal/domain/generation"
	"votetally/internal/platform/apperr"
	jwtpkg "votetally/internal/platform/jwt"
)

type optionRequest struct {
	Option string `json:"option"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type resetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Backup  string `json:"backup"`
}

// @Summary     Exchange the admin key for a session token
// @Tags        admin
// @Security    AdminKey
// @Produce     json
// @Success     201  {object}  sessionResponse
// @Failure     401  {object}  map[string]string  "unauthorized"
// @Router      /api/admin/session [post]
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if h.jwtMgr == nil {
		errorResponse(w, apperr.Unavailable("sessions disabled", nil))
		return
	}
	token, exp, err := h.jwtMgr.Generate("admin", jwtpkg.ScopeAdmin, h.tokenTTL)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, ExpiresAt: exp})
}

// @Summary     Add an option
// @Tags        admin
// @Security    AdminKey
// @Accept      json
// @Produce     json
// @Param       request  body      optionRequest  true  "Option text"
// @Success     201      {object}  successResponse
// @Failure     400      {object}  map[string]string  "option missing"
// @Failure     401      {object}  map[string]string  "unauthorized"
// @Failure     409      {object}  map[string]string  "option exists"
// @Router      /api/admin/options [post]
func (h *Handler) handleAddOption(w http.ResponseWriter, r *http.Request) {
	var req optionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid body", err))
		return
	}

	if _, err := h.optionSvc.Add(r.Context(), req.Option); err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, successResponse{Success: true, Message: "Option added successfully"})
}

// @Summary     Retire an option
// @Description Hides the option from the tally. Votes already cast are kept.
// @Tags        admin
// @Security    AdminKey
// @Produce     json
// @Param       option  path      string  true  "Option text"
// @Success     200     {object}  successResponse
// @Failure     401     {object}  map[string]string  "unauthorized"
// @Failure     404     {object}  map[string]string  "option not found"
// @Router      /api/admin/options/{option} [delete]
func (h *Handler) handleDeleteOption(w http.ResponseWriter, r *http.Request) {
	text := chi.URLParam(r, "option")
	if r.URL.RawPath != "" {
		// chi matched against the escaped path.
		if unescaped, err := url.PathUnescape(text); err == nil {
			text = unescaped
		}
	}
	if err := h.optionSvc.Delete(r.Context(), text); err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Option deleted successfully"})
}

// @Summary     Reset the store
// @Description Retires the current database into a timestamped backup and starts empty. A failure midway terminates the server.
// @Tags        admin
// @Security    AdminKey
// @Produce     json
// @Success     200  {object}  resetResponse
// @Failure     401  {object}  map[string]string  "unauthorized"
// @Failure     500  {object}  map[string]string  "reset failed"
// @Router      /api/admin/reset [post]
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	backup, err := h.genSvc.Reset(r.Context())
	if err != nil {
		errorResponse(w, err)
		if generation.IsFatal(err) {
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			h.genSvc.Fatal(err)
		}
		return
	}
	writeJSON(w, http.StatusOK, resetResponse{
		Success: true,
		Message: "Database reset successfully",
		Backup:  filepath.Base(backup),
	})
}

// @Summary     List backups
// @Tags        admin
// @Security    AdminKey
// @Produce     json
// @Success     200  {array}   generation.Backup
// @Failure     401  {object}  map[string]string  "unauthorized"
// @Router      /api/admin/backups [get]
func (h *Handler) handleListBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := h.genSvc.Backups()
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, backups)
}
