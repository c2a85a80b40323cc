package incidents

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/oncallhq/incident-deck/internal/domain"
	"github.com/oncallhq/incident-deck/internal/pkg/httputil"
)

// Handler handles HTTP requests for the incidents module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new incidents handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers routes available to any authenticated user.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/incidents", func(r chi.Router) {
		r.Get("/", h.ListIncidents)
		r.Get("/stats", h.GetStats)
		r.Get("/{id}", h.GetIncident)
		r.Post("/{id}/responses", h.FileResponse)
		r.Post("/{id}/resolve", h.MarkResolved)
	})
}

// RegisterOperatorRoutes registers routes that require operator role.
func (h *Handler) RegisterOperatorRoutes(r chi.Router) {
	r.Post("/incidents", h.CreateIncident)
	r.Put("/incidents/{id}/status", h.SetStatus)
	r.Post("/incidents/{id}/close", h.CloseIncident)
	r.Post("/incidents/{id}/relations", h.AddRelation)
}

// CreateIncidentRequest represents the request body for creating an incident.
type CreateIncidentRequest struct {
	OccurredAt time.Time `json:"occurred_at"`
	Judgment   string    `json:"judgment" validate:"required,oneof=requires_action observe"`
	Content    string    `json:"content" validate:"required"`
	Priority   string    `json:"priority" validate:"required,oneof=high medium low"`
	FromEmail  string    `json:"from_email" validate:"omitempty,email"`
	ToEmail    string    `json:"to_email" validate:"omitempty,email"`
	Subject    string    `json:"subject" validate:"max=200"`
}

// CreateIncident handles POST /incidents.
func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	var req CreateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.CreateIncident(r.Context(), CreateIncidentInput{
		OccurredAt: req.OccurredAt,
		Judgment:   domain.Judgment(req.Judgment),
		Content:    req.Content,
		Priority:   domain.Priority(req.Priority),
		FromEmail:  req.FromEmail,
		ToEmail:    req.ToEmail,
		Subject:    req.Subject,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusCreated, incident)
}

// ListIncidents handles GET /incidents. Filter criteria come from query
// parameters; absent or empty parameters impose no constraint.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.ListIncidents(r.Context(), filter)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, result)
}

// GetIncident handles GET /incidents/{id}.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	incident, err := h.service.GetIncident(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// GetStats handles GET /incidents/stats.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.StatusCounts(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, counts)
}

// FileResponseRequest represents the request body for filing a response.
type FileResponseRequest struct {
	Content string `json:"content" validate:"required"`
}

// FileResponse handles POST /incidents/{id}/responses. The responder is
// the authenticated user.
func (h *Handler) FileResponse(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req FileResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.FileResponse(r.Context(), id, req.Content, httputil.GetUserName(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// MarkResolved handles POST /incidents/{id}/resolve.
func (h *Handler) MarkResolved(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	incident, err := h.service.MarkResolved(r.Context(), id, httputil.GetUserName(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// SetStatusRequest represents the request body for the manual override.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=unhandled investigating resolved closed"`
}

// SetStatus handles PUT /incidents/{id}/status, the administrative
// override distinct from the audited transitions.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.SetStatus(r.Context(), id, domain.IncidentStatus(req.Status))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// CloseIncident handles POST /incidents/{id}/close.
func (h *Handler) CloseIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	incident, err := h.service.CloseIncident(r.Context(), id, httputil.GetUserName(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// AddRelationRequest represents the request body for relating incidents.
type AddRelationRequest struct {
	RelatedIncidentID int64 `json:"related_incident_id" validate:"required"`
}

// AddRelation handles POST /incidents/{id}/relations.
func (h *Handler) AddRelation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req AddRelationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.AddRelation(r.Context(), id, req.RelatedIncidentID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid incident id")
		return 0, false
	}
	return id, true
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
		{Error: ErrIncidentNotFound, Status: http.StatusNotFound},
		{Error: ErrInvalidStatus, Status: http.StatusBadRequest},
		{Error: ErrInvalidJudgment, Status: http.StatusBadRequest},
		{Error: ErrInvalidPriority, Status: http.StatusBadRequest},
		{Error: ErrNotResolved, Status: http.StatusConflict},
		{Error: ErrSelfRelation, Status: http.StatusBadRequest},
	})
}

// parseFilter builds a Filter from query parameters. Malformed or missing
// criteria are interpreted as no constraint, except dates, which must
// parse when present.
func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	filter := Filter{SearchText: q.Get("q")}

	for _, v := range splitMulti(q["status"]) {
		filter.Statuses = append(filter.Statuses, domain.IncidentStatus(v))
	}
	for _, v := range splitMulti(q["judgment"]) {
		filter.Judgments = append(filter.Judgments, domain.Judgment(v))
	}
	// An explicitly empty assignee value selects unassigned incidents,
	// so empty parameters survive here unlike the other facets.
	for _, v := range q["assignee"] {
		if v == "" {
			filter.Assignees = append(filter.Assignees, "")
			continue
		}
		filter.Assignees = append(filter.Assignees, splitMulti([]string{v})...)
	}

	from, err := parseDate(q.Get("from"))
	if err != nil {
		return Filter{}, err
	}
	to, err := parseDate(q.Get("to"))
	if err != nil {
		return Filter{}, err
	}
	if from != nil || to != nil {
		filter.DateRange = &DateRange{From: from, To: to}
	}

	return filter, nil
}

// splitMulti accepts both repeated parameters and comma-separated values.
func splitMulti(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD or RFC3339", s)
		}
	}
	return &t, nil
}
