package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"votetally/internal/broadcast"
	"votetally/internal/domain/generation"
	"votetally/internal/domain/option"
	"votetally/internal/domain/vote"
	"votetally/internal/frontend"
	jwtpkg "votetally/internal/platform/jwt"
	"votetally/internal/worker"
)

// Pinger reports whether the store can serve requests.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps is everything the router needs. Hub, Store, VoteCh and Frontend may be nil.
type Deps struct {
	Options    *option.Service
	Votes      *vote.Service
	Generation *generation.Service
	Hub        *broadcast.Hub
	Store      Pinger
	JWT        *jwtpkg.Manager
	VoteCh     chan<- worker.VoteEvent

	AdminKey      string
	AdminTokenTTL time.Duration

	// VotesPerMinute limits POST /api/vote per client IP. Zero disables it.
	VotesPerMinute int
	VoteBurst      int

	Frontend http.Handler
}

type Handler struct {
	optionSvc *option.Service
	voteSvc   *vote.Service
	genSvc    *generation.Service
	hub       *broadcast.Hub
	store     Pinger
	jwtMgr    *jwtpkg.Manager
	voteCh    chan<- worker.VoteEvent
	tokenTTL  time.Duration
}

func NewRouter(d Deps) http.Handler {
	h := &Handler{
		optionSvc: d.Options,
		voteSvc:   d.Votes,
		genSvc:    d.Generation,
		hub:       d.Hub,
		store:     d.Store,
		jwtMgr:    d.JWT,
		voteCh:    d.VoteCh,
		tokenTTL:  d.AdminTokenTTL,
	}
	if h.tokenTTL <= 0 {
		h.tokenTTL = 12 * time.Hour
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(RequestLogger)
	r.Use(CORSMiddleware)

	r.Get("/ws", h.handleWS)

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(60 * time.Second))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Get("/ready", h.handleReady)
		r.Get("/swagger/*", httpSwagger.WrapHandler)
		r.Get("/metrics", promhttp.Handler().ServeHTTP)

		r.Route("/api", func(r chi.Router) {
			r.Get("/options", h.handleListOptions)

			voteRoute := r.With()
			if d.VotesPerMinute > 0 {
				voteRoute = r.With(RateLimitVotes(rate.Every(time.Minute/time.Duration(d.VotesPerMinute)), d.VoteBurst))
			}
			voteRoute.Post("/vote", h.handleVote)

			r.Route("/admin", func(r chi.Router) {
				r.Use(AdminAuth(d.AdminKey, d.JWT))
				r.Post("/session", h.handleCreateSession)
				r.Post("/options", h.handleAddOption)
				r.Delete("/options/{option}", h.handleDeleteOption)
				r.Post("/reset", h.handleReset)
				r.Get("/backups", h.handleListBackups)
			})

			r.NotFound(frontend.NotFoundAPI)
			r.MethodNotAllowed(frontend.NotFoundAPI)
		})
	})

	if d.Frontend != nil {
		r.NotFound(d.Frontend.ServeHTTP)
	}

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// @Summary     Readiness probe
// @Tags        health
// @Produce     json
// @Success     200  {object}  map[string]string
// @Failure     503  {object}  map[string]string  "store unavailable"
// @Router      /ready [get]
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "store_unavailable",
			"message": "store not configured",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "store_unavailable",
			"message": "store not ready",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// @Summary     Live tally channel
// @Description Upgrades to a websocket. The server sends {"type":"options","data":[...]} on connect and after every change.
// @Tags        options
// @Success     101
// @Failure     503  {object}  map[string]string  "broadcast disabled"
// @Router      /ws [get]
func (h *Handler) handleWS(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "unavailable",
			"message": "live updates disabled",
		})
		return
	}
	broadcast.Handler(h.hub, broadcast.NewUpgrader())(w, r)
}
