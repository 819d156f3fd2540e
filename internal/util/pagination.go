package util

// PageSize is the fixed page size used across every paginated listing.
const PageSize = 6

// Paginate maps a zero-based page number to an SQL offset/limit pair.
func Paginate(page int) (offset, limit int) {
	if page < 0 {
		page = 0
	}
	return page * PageSize, PageSize
}

// TotalPages rounds a row count up to whole pages.
func TotalPages(total int64) int64 {
	return (total + PageSize - 1) / PageSize
}
