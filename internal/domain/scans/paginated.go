package scans

// PaginatedResult is one page of scans, newest first, with the totals a
// client needs to walk the rest.
type PaginatedResult struct {
	Data       []*Scan `json:"data"`
	Page       int     `json:"page"`
	PageSize   int     `json:"pageSize"`
	Total      int64   `json:"totalItems"`
	TotalPages int     `json:"totalPages"`
}

// HasNext reports whether a page follows this one.
func (p PaginatedResult) HasNext() bool { return p.Page < p.TotalPages }
