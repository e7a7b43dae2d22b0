// Package utils provides small shared helpers with no project dependencies.
package utils

import "strconv"

// AtoiDefault parses s as a base-10 integer, falling back to def on any
// parse failure.
func AtoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// TotalPages returns the number of pages needed for count items at pageSize
// per page. A zero count yields zero pages.
func TotalPages(count int64, pageSize int) int {
	if count <= 0 || pageSize <= 0 {
		return 0
	}
	return int((count + int64(pageSize) - 1) / int64(pageSize))
}

// ClampPage pins page into [1, totalPages]. When totalPages is zero the
// result is page 1, the only page an empty listing can show.
func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		return 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}
