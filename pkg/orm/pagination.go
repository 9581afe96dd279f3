package orm

// Pagination is the metadata returned next to a page of rows.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// GetWithPagination counts the rows matched by q, then loads page into dest.
// page is 1-based; out-of-range values are clamped.
func (q *Query) GetWithPagination(dest interface{}, page, limit int) (Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	total, err := q.Count()
	if err != nil {
		return Pagination{}, err
	}

	if err := q.Offset((page - 1) * limit).Limit(limit).Get(dest); err != nil {
		return Pagination{}, err
	}

	pages := int(total) / limit
	if int(total)%limit != 0 {
		pages++
	}

	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}, nil
}
