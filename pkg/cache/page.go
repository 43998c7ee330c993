package cache

// PageNumber returns the 1-based page holding the element at index.
func PageNumber(index, pageSize int) int {
	return index/pageSize + 1
}

// OffsetInPage returns the position of index inside its page.
func OffsetInPage(index, pageSize int) int {
	return index % pageSize
}

// PageRange returns the half-open index range [start, end) covered by a page.
func PageRange(pageNumber, pageSize int) (start, end int) {
	start = (pageNumber - 1) * pageSize
	return start, start + pageSize
}
