package audithttp

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/workforce-hr/workforce/internal/audit"
	"github.com/workforce-hr/workforce/internal/platform/httpx"
	"github.com/workforce-hr/workforce/internal/rbac"
	"github.com/workforce-hr/workforce/internal/shared"
)

const (
	defaultDateRange  = 7 * 24 * time.Hour
	maxDateRangeHours = 24 * 90
)

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
	Export(ctx context.Context, filters audit.TimelineFilters) ([]shared.AuditLog, error)
}

// Handler serves a tenant's audit trail.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler builds the audit handler.
func NewHandler(logger *slog.Logger, service TimelineService, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, now: time.Now}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, ok := h.filters(w, r)
	if !ok {
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.respondError(w, "load audit timeline", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, ok := h.filters(w, r)
	if !ok {
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.respondError(w, "export audit timeline", err)
		return
	}
	var buf bytes.Buffer
	if err := audit.WriteCSV(&buf, rows); err != nil {
		h.respondError(w, "encode csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"audit-trail.csv\"")
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

// filters scopes the query to the principal's tenant and parses the query
// string, writing the error response itself when it returns false.
func (h *Handler) filters(w http.ResponseWriter, r *http.Request) (audit.TimelineFilters, bool) {
	p, ok := rbac.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return audit.TimelineFilters{}, false
	}
	if p.TenantID == 0 {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", rbac.ErrNoTenant.Error())
		return audit.TimelineFilters{}, false
	}
	filters, err := h.parseFilters(r)
	if err != nil {
		var v validationError
		if errors.As(err, &v) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid "+v.field)
			return audit.TimelineFilters{}, false
		}
		h.respondError(w, "validate filters", err)
		return audit.TimelineFilters{}, false
	}
	filters.TenantID = p.TenantID
	return filters, true
}

func (h *Handler) parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	q := r.URL.Query()
	now := h.now().UTC()
	toStr := strings.TrimSpace(q.Get("to"))
	if toStr == "" {
		toStr = now.Format("2006-01-02")
	}
	toTime, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return audit.TimelineFilters{}, validationError{field: "to"}
	}
	fromStr := strings.TrimSpace(q.Get("from"))
	if fromStr == "" {
		fromStr = toTime.Add(-defaultDateRange).Format("2006-01-02")
	}
	fromTime, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return audit.TimelineFilters{}, validationError{field: "from"}
	}
	if fromTime.After(toTime) {
		return audit.TimelineFilters{}, validationError{field: "range"}
	}
	if toTime.Sub(fromTime) > maxDateRangeHours*time.Hour {
		return audit.TimelineFilters{}, validationError{field: "range"}
	}

	page := 1
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return audit.TimelineFilters{}, validationError{field: "page"}
		}
		page = parsed
	}
	pageSize := 0
	if v := strings.TrimSpace(q.Get("page_size")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return audit.TimelineFilters{}, validationError{field: "page_size"}
		}
		pageSize = parsed
	}
	var actorID int64
	if v := strings.TrimSpace(q.Get("actor_id")); v != "" {
		actorID, err = strconv.ParseInt(v, 10, 64)
		if err != nil || actorID <= 0 {
			return audit.TimelineFilters{}, validationError{field: "actor_id"}
		}
	}

	return audit.TimelineFilters{
		From:     fromTime,
		To:       toTime.Add(24 * time.Hour),
		ActorID:  actorID,
		Entity:   strings.TrimSpace(q.Get("entity")),
		Action:   strings.TrimSpace(q.Get("action")),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (h *Handler) respondError(w http.ResponseWriter, message string, err error) {
	if errors.Is(err, audit.ErrTenantRequired) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
		return
	}
	h.logger.Error(message, slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

type validationError struct {
	field string
}

func (validationError) Error() string {
	return "validation failed"
}
