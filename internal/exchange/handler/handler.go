package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"giftexchange/internal/exchange/service"
	"giftexchange/internal/pairing/models"
	id "giftexchange/pkg/domain"
	"giftexchange/pkg/platform/httputil"
	"giftexchange/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the exchange operations the handler needs.
type Service interface {
	Generate(ctx context.Context, req service.GenerateRequest) (*service.GenerateResult, error)
	ListCycles(ctx context.Context) ([]models.Cycle, error)
	GetCycle(ctx context.Context, key id.CycleKey) (*models.Cycle, error)
	Overview(ctx context.Context) (*service.Overview, error)
}

// Handler wires cycle generation and history endpoints to the exchange service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts exchange endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/gift-exchange", h.HandleGenerate)
	r.Get("/gift_exchange", h.HandleGenerate)
	r.Get("/cycles", h.HandleListCycles)
	r.Get("/cycles/{key}", h.HandleGetCycle)
	r.Get("/overview", h.HandleOverview)
}

// HandleGenerate handles POST /gift-exchange and its GET /gift_exchange alias.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req := &GenerateRequest{}
	if r.Method == http.MethodPost {
		var ok bool
		req, ok = httputil.DecodeOptionalAndPrepare[GenerateRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
	}
	if err := req.applyQuery(r.URL.Query()); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Generate(ctx, req.toService())
	if err != nil {
		h.logger.WarnContext(ctx, "cycle generation rejected",
			"request_id", requestID,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "cycle drawn",
		"request_id", requestID,
		"cycle_key", result.Cycle.Key,
		"members", result.RosterSize,
		"attempts", result.Attempts,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	status := http.StatusCreated
	if result.DryRun {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, FromGenerated(result))
}

// HandleListCycles handles GET /cycles.
func (h *Handler) HandleListCycles(w http.ResponseWriter, r *http.Request) {
	cycles, err := h.service.ListCycles(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCycles(cycles))
}

// HandleGetCycle handles GET /cycles/{key}.
func (h *Handler) HandleGetCycle(w http.ResponseWriter, r *http.Request) {
	key, err := id.ParseCycleKey(chi.URLParam(r, "key"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.GetCycle(r.Context(), key)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCycle(c))
}

// HandleOverview handles GET /overview.
func (h *Handler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ov, err := h.service.Overview(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load overview",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromOverview(ov))
}
