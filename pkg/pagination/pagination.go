package pagination

const (
	// DefaultPageSize is used when a request omits the page size.
	DefaultPageSize = 12
	// MaxPageSize caps how many rows one page may request.
	MaxPageSize = 100
)

// Params is a 1-indexed page request after normalization.
type Params struct {
	Page     int
	PageSize int
}

// Normalize clamps page to >= 1 and page size to [1, MaxPageSize], using
// DefaultPageSize when pageSize is not positive.
func Normalize(page, pageSize int) Params {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Params{Page: page, PageSize: pageSize}
}

// Offset is the number of rows skipped before this page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// TotalPages returns ceil(total / pageSize).
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
