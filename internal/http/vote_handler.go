package api

import (
	"encoding/json"
	"net/http"

	"votetally/internal/domain/vote"
	"votetally/internal/platform/apperr"
	"votetally/internal/worker"
)

type voteRequest struct {
	Option *string `json:"option"`
	Email  string  `json:"email,omitempty"`
	Name   string  `json:"name,omitempty"`
}

type voteResponse struct {
	Success bool   `json:"success"`
	ID      int64  `json:"id"`
	Text    string `json:"text"`
}

// @Summary     Current tally
// @Tags        options
// @Produce     json
// @Success     200  {array}   option.Count
// @Failure     500  {object}  map[string]string  "server error"
// @Router      /api/options [get]
func (h *Handler) handleListOptions(w http.ResponseWriter, r *http.Request) {
	counts, err := h.optionSvc.Tally(r.Context())
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// @Summary     Vote for an option
// @Tags        votes
// @Accept      json
// @Produce     json
// @Param       request  body      voteRequest   true  "Vote payload"
// @Success     200      {object}  voteResponse
// @Failure     400      {object}  map[string]string  "option missing"
// @Failure     404      {object}  map[string]string  "option not found"
// @Failure     429      {object}  map[string]string  "rate limited"
// @Failure     500      {object}  map[string]string  "server error"
// @Router      /api/vote [post]
func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid body", err))
		return
	}
	if req.Option == nil {
		errorResponse(w, vote.ErrOptionRequired)
		return
	}

	rcpt, err := h.voteSvc.Cast(r.Context(), vote.Ballot{
		Option: *req.Option,
		Email:  req.Email,
		Name:   req.Name,
	})
	if err != nil {
		errorResponse(w, err)
		return
	}

	worker.Publish(h.voteCh, worker.VoteEvent{VoteID: rcpt.ID, OptionID: rcpt.OptionID, Option: rcpt.Text})

	writeJSON(w, http.StatusOK, voteResponse{Success: true, ID: rcpt.ID, Text: rcpt.Text})
}
