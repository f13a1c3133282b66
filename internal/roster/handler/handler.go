package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"giftexchange/internal/roster/models"
	"giftexchange/internal/roster/service"
	id "giftexchange/pkg/domain"
	"giftexchange/pkg/platform/httputil"
	"giftexchange/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the roster operations the handler needs.
type Service interface {
	List(ctx context.Context) ([]*models.Member, error)
	Get(ctx context.Context, memberID id.MemberID) (*models.Member, error)
	Create(ctx context.Context, name string) (*models.Member, error)
	Rename(ctx context.Context, memberID id.MemberID, name string) (*service.RenameResult, error)
	Delete(ctx context.Context, memberID id.MemberID) (*models.Member, error)
}

// Handler wires roster endpoints to the roster service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts roster endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/members", h.HandleList)
	r.Post("/members", h.HandleCreate)
	r.Get("/members/{id}", h.HandleGet)
	r.Put("/members/{id}", h.HandleRename)
	r.Delete("/members/{id}", h.HandleDelete)
}

// HandleList handles GET /members.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	members, err := h.service.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list members",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromMembers(members))
}

// HandleGet handles GET /members/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	memberID, ok := h.memberID(w, r)
	if !ok {
		return
	}
	m, err := h.service.Get(ctx, memberID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromMember(m))
}

// HandleCreate handles POST /members.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[MemberRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	m, err := h.service.Create(ctx, req.Name)
	if err != nil {
		h.logger.WarnContext(ctx, "member creation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "member added",
		"request_id", requestID,
		"member_id", m.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromMember(m))
}

// HandleRename handles PUT /members/{id}.
func (h *Handler) HandleRename(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	memberID, ok := h.memberID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[MemberRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Rename(ctx, memberID, req.Name)
	if err != nil {
		h.logger.WarnContext(ctx, "member rename failed",
			"request_id", requestID,
			"member_id", memberID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRename(result))
}

// HandleDelete handles DELETE /members/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	memberID, ok := h.memberID(w, r)
	if !ok {
		return
	}
	m, err := h.service.Delete(ctx, memberID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDeleted(m))
}

func (h *Handler) memberID(w http.ResponseWriter, r *http.Request) (id.MemberID, bool) {
	memberID, err := id.ParseMemberID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.MemberID{}, false
	}
	return memberID, true
}
