package model

// Page is the list envelope returned by every collection endpoint.
type Page[T any] struct {
	Data        []T `json:"data"`
	Total       int `json:"total"`
	PerPage     int `json:"per_page"`
	LastPage    int `json:"last_page"`
	CurrentPage int `json:"current_page"`
}

// PageRequest is a normalised page/per_page pair.
type PageRequest struct {
	Page    int
	PerPage int
}

const (
	DefaultPerPage = 15
	MaxPerPage     = 100
)

// NewPageRequest clamps raw query values to sane bounds.
func NewPageRequest(page, perPage int) PageRequest {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return PageRequest{Page: page, PerPage: perPage}
}

// Offset is the row offset for LIMIT/OFFSET queries.
func (p PageRequest) Offset() int { return (p.Page - 1) * p.PerPage }

// NewPage wraps one page of rows. A nil slice is replaced by an empty one so
// clients always receive an array.
func NewPage[T any](rows []T, total int, req PageRequest) Page[T] {
	if rows == nil {
		rows = []T{}
	}
	last := 1
	if total > 0 {
		last = (total + req.PerPage - 1) / req.PerPage
	}
	return Page[T]{Data: rows, Total: total, PerPage: req.PerPage, LastPage: last, CurrentPage: req.Page}
}
