package audit

import (
	"time"

	"github.com/workforce-hr/workforce/internal/shared"
)

// TimelineFilters narrows a tenant's audit trail. Zero values do not filter.
type TimelineFilters struct {
	TenantID int64
	From     time.Time
	To       time.Time
	ActorID  int64
	Entity   string
	Action   string
	Page     int
	PageSize int
}

// PagingInfo is cursor-less paging metadata.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result wraps one timeline page.
type Result struct {
	Rows   []shared.AuditLog `json:"entries"`
	Paging PagingInfo        `json:"paging"`
}
