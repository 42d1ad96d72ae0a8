package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/workforce-hr/workforce/internal/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
	// MaxExportRows bounds a single CSV export.
	MaxExportRows = 10000
)

// ErrTenantRequired is returned when no tenant scopes the query.
var ErrTenantRequired = errors.New("audit: tenant required")

// Repository reads audit entries.
type Repository interface {
	Window(ctx context.Context, filters TimelineFilters, offset, limit int) ([]shared.AuditLog, error)
}

// Service coordinates audit trail reads.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of the tenant's trail, newest first.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	if filters.TenantID == 0 {
		return Result{}, ErrTenantRequired
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	rows, err := s.repo.Window(ctx, filters, (page-1)*pageSize, pageSize+1)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	if rows == nil {
		rows = []shared.AuditLog{}
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export returns the filtered trail without paging, up to MaxExportRows.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]shared.AuditLog, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	if filters.TenantID == 0 {
		return nil, ErrTenantRequired
	}
	return s.repo.Window(ctx, filters, 0, MaxExportRows)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Window reads limit entries starting at offset.
func (r *PGRepository) Window(ctx context.Context, filters TimelineFilters, offset, limit int) ([]shared.AuditLog, error) {
	query, args := windowQuery(filters, offset, limit)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []shared.AuditLog
	for rows.Next() {
		entry := shared.AuditLog{TenantID: filters.TenantID}
		var meta map[string]any
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.Action, &entry.Entity, &entry.EntityID, &meta, &entry.At); err != nil {
			return nil, err
		}
		entry.Meta = meta
		out = append(out, entry)
	}
	return out, rows.Err()
}

func windowQuery(filters TimelineFilters, offset, limit int) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT id, actor_id, action, entity, entity_id, meta, occurred_at FROM audit_logs WHERE tenant_id = $1`)
	args := []any{filters.TenantID}
	add := func(clause string, value any) {
		args = append(args, value)
		fmt.Fprintf(&b, " AND "+clause, len(args))
	}
	if !filters.From.IsZero() {
		add("occurred_at >= $%d", filters.From)
	}
	if !filters.To.IsZero() {
		add("occurred_at < $%d", filters.To)
	}
	if filters.ActorID != 0 {
		add("actor_id = $%d", filters.ActorID)
	}
	if entity := strings.TrimSpace(filters.Entity); entity != "" {
		add("entity = $%d", entity)
	}
	if action := strings.TrimSpace(filters.Action); action != "" {
		add("action = $%d", action)
	}
	args = append(args, limit, offset)
	fmt.Fprintf(&b, " ORDER BY occurred_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return b.String(), args
}

var _ Repository = (*PGRepository)(nil)
