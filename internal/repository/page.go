package repository

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type OffsetPage[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// Paginate slices items for a 1-based page, clamping page and size to sane bounds.
func Paginate[T any](items []T, page, pageSize int) OffsetPage[T] {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	total := len(items)
	totalPages := total / pageSize
	if total%pageSize > 0 {
		totalPages++
	}

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	out := make([]T, end-start)
	copy(out, items[start:end])

	return OffsetPage[T]{
		Items:      out,
		Total:      int64(total),
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
