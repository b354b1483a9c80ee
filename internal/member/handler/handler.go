package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"roster/internal/member/models"
	"roster/internal/platform/metrics"
	"roster/internal/platform/middleware"
	dErrors "roster/pkg/domain-errors"
	"roster/pkg/platform/httputil"
	"roster/pkg/platform/middleware/requesttime"
)

// Service defines the member operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, req *models.RegisterRequest) (string, error)
	GetByID(ctx context.Context, id string) (*models.Member, error)
	ListAll(ctx context.Context) ([]*models.Member, error)
	Search(ctx context.Context, req models.SearchRequest) ([]*models.Member, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

// Handler handles member endpoints.
type Handler struct {
	logger  *slog.Logger
	members Service
	metrics *metrics.Metrics
	timeout time.Duration
}

// New creates a new member Handler.
func New(members Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		logger:  logger,
		members: members,
		metrics: metrics,
		timeout: 30 * time.Second,
	}
}

// Register registers the member routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(requesttime.Middleware)
		r.Use(middleware.Operator)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(h.timeout))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.LatencyMiddleware(h.metrics))

		r.Post("/members", h.handleRegister)
		r.Get("/members", h.handleList)
		r.Get("/members/stats", h.handleStats)
		r.Get("/members/search", h.handleSearchQuery)
		r.Post("/members/search", h.handleSearch)
		r.Get("/members/{personId}", h.handleGet)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid register request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	id, err := h.members.Register(ctx, &req)
	if err != nil {
		h.logFailure(ctx, "failed to register member", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, registerResponse{PersonID: id})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	member, err := h.members.GetByID(ctx, chi.URLParam(r, "personId"))
	if err != nil {
		h.logFailure(ctx, "failed to get member", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, member)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	members, err := h.members.ListAll(ctx)
	if err != nil {
		h.logFailure(ctx, "failed to list members", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newListResponse(members))
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.search(w, r, req)
}

func (h *Handler) handleSearchQuery(w http.ResponseWriter, r *http.Request) {
	req, err := searchRequestFromQuery(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.search(w, r, req)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request, req models.SearchRequest) {
	ctx := r.Context()
	members, err := h.members.Search(ctx, req)
	if err != nil {
		h.logFailure(ctx, "search failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newListResponse(members))
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.members.Stats(ctx)
	if err != nil {
		h.logFailure(ctx, "failed to load stats", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// logFailure logs client errors at warn and everything else at error.
func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	attrs := []any{
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	}
	if httputil.StatusFor(dErrors.CodeOf(err)) < http.StatusInternalServerError {
		h.logger.WarnContext(ctx, msg, attrs...)
		return
	}
	h.logger.ErrorContext(ctx, msg, attrs...)
}
