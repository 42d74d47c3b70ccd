// Package listview filters an in-memory list by a search query and exposes
// it page by page, growing the visible prefix as the reader scrolls.
package listview

import (
	"strings"
	"sync"
)

// DefaultPageSize matches the inventory screen.
const DefaultPageSize = 10

// List is safe for concurrent use.
type List[T any] struct {
	mu       sync.Mutex
	items    []T
	filtered []T
	fields   func(T) []string
	pageSize int
	page     int
	query    string
	// lastEnd is the visible length at the last accepted end-of-list event.
	lastEnd int
}

// New builds a list showing the first page of items. fields returns the
// searchable text of an item.
func New[T any](items []T, pageSize int, fields func(T) []string) *List[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	l := &List[T]{fields: fields, pageSize: pageSize, page: 1, lastEnd: -1}
	l.items = items
	l.filtered = l.filter()
	return l
}

func (l *List[T]) filter() []T {
	q := strings.ToLower(l.query)
	if q == "" {
		return l.items
	}
	var out []T
	for _, it := range l.items {
		for _, f := range l.fields(it) {
			if strings.Contains(strings.ToLower(f), q) {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

func (l *List[T]) Query() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.query
}

// SetQuery changes the filter. A different query goes back to page 1.
func (l *List[T]) SetQuery(q string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if q == l.query {
		return
	}
	l.query = q
	l.page = 1
	l.lastEnd = -1
	l.filtered = l.filter()
}

// SetItems replaces the source list and keeps the current page.
func (l *List[T]) SetItems(items []T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = items
	l.filtered = l.filter()
	l.lastEnd = -1
}

func (l *List[T]) Page() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.page
}

// Len is the number of items matching the query.
func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.filtered)
}

func (l *List[T]) visibleLen() int {
	return min(l.page*l.pageSize, len(l.filtered))
}

// Visible returns the first page*pageSize matching items.
func (l *List[T]) Visible() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]T, l.visibleLen())
	copy(out, l.filtered)
	return out
}

func (l *List[T]) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.visibleLen() < len(l.filtered)
}

// LoadMore shows one more page. It reports false when nothing remains.
func (l *List[T]) LoadMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadMore()
}

func (l *List[T]) loadMore() bool {
	if l.visibleLen() >= len(l.filtered) {
		return false
	}
	l.page++
	return true
}

// EndReached handles an end-of-list signal from a scrolling view that has
// rendered seen items. Repeated signals for the same length are ignored.
func (l *List[T]) EndReached(seen int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if seen == l.lastEnd {
		return false
	}
	l.lastEnd = seen
	return l.loadMore()
}

// SetPage jumps to page n, clamped to the pages that exist.
func (l *List[T]) SetPage(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pages := max(1, (len(l.filtered)+l.pageSize-1)/l.pageSize)
	l.page = min(max(1, n), pages)
}
