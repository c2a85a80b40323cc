package worknotice

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/oncallhq/incident-deck/internal/pkg/httputil"
)

// Handler handles HTTP requests for the work-notice module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new work-notice handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers work-notice routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/work-notices", func(r chi.Router) {
		r.Get("/", h.ListNotices)
		r.Post("/", h.CreateNotice)
		r.Get("/{id}", h.GetNotice)
	})
}

// CreateNoticeRequest represents the request body for creating a work
// notice. Field rules mirror the submission form.
type CreateNoticeRequest struct {
	Title    string    `json:"title" validate:"required,min=2"`
	StartAt  time.Time `json:"start_at" validate:"required"`
	EndAt    time.Time `json:"end_at" validate:"required,gtfield=StartAt"`
	Worker   string    `json:"worker" validate:"required"`
	Verifier string    `json:"verifier" validate:"required"`
	Target   string    `json:"target" validate:"required"`
	Client   string    `json:"client" validate:"required"`
	Content  string    `json:"content" validate:"required,min=10"`
}

// CreateNotice handles POST /work-notices.
func (h *Handler) CreateNotice(w http.ResponseWriter, r *http.Request) {
	var req CreateNoticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	notice, err := h.service.CreateNotice(r.Context(), CreateNoticeInput{
		Title:    req.Title,
		StartAt:  req.StartAt,
		EndAt:    req.EndAt,
		Worker:   req.Worker,
		Verifier: req.Verifier,
		Target:   req.Target,
		Client:   req.Client,
		Content:  req.Content,
	}, httputil.GetUserName(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusCreated, notice)
}

// GetNotice handles GET /work-notices/{id}.
func (h *Handler) GetNotice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid work notice id")
		return
	}

	notice, err := h.service.GetNotice(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, notice)
}

// ListNotices handles GET /work-notices.
func (h *Handler) ListNotices(w http.ResponseWriter, r *http.Request) {
	notices, err := h.service.ListNotices(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, notices)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
		{Error: ErrNoticeNotFound, Status: http.StatusNotFound},
		{Error: ErrInvalidPeriod, Status: http.StatusBadRequest},
	})
}
