package service

import "math"

// DefaultPageSize is used when no positive page size is configured.
const DefaultPageSize = 2

// PageWindow is the slice of an ordered collection that one page covers.
type PageWindow struct {
	Skip  int
	Limit int
}

// Window computes the window for page with the given size. Pages below 1 count as page 1.
// Skip saturates at the largest multiple of size that fits in an int.
func Window(page, size int) PageWindow {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	if page-1 > math.MaxInt/size {
		page = math.MaxInt/size + 1
	}
	return PageWindow{Skip: (page - 1) * size, Limit: size}
}

// PagePolicy fixes the page size for feed listings.
type PagePolicy struct {
	size int
}

// NewPagePolicy returns a policy with the given page size.
func NewPagePolicy(size int) PagePolicy {
	if size <= 0 {
		size = DefaultPageSize
	}
	return PagePolicy{size: size}
}

// Size returns the configured page size.
func (p PagePolicy) Size() int {
	if p.size <= 0 {
		return DefaultPageSize
	}
	return p.size
}

// Window computes the window for page.
func (p PagePolicy) Window(page int) PageWindow {
	return Window(page, p.Size())
}
