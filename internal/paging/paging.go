// Package paging splits ordered result sets into fixed-size, 1-based pages.
package paging

import (
	"errors"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Window locates one page inside an ordered result set of Total items.
type Window struct {
	Number   int `json:"page"`
	Size     int `json:"page_size"`
	Total    int `json:"total"`
	NumPages int `json:"num_pages"`
}

// NewWindow resolves the requested page number against total items.
//
// An absent or non-numeric request yields page 1. A number past the last
// page, or below 1, yields the last page. With no items the window is page
// 1 of 0.
func NewWindow(total, size int, requested string) Window {
	size = lo.Max([]int{size, 1})
	total = lo.Max([]int{total, 0})
	w := Window{Size: size, Total: total, NumPages: (total + size - 1) / size}

	n, ok := ParseNumber(requested)
	switch {
	case !ok:
		w.Number = 1
	case n < 1 || n > w.NumPages:
		w.Number = w.NumPages
	default:
		w.Number = n
	}
	w.Number = lo.Max([]int{w.Number, 1})
	return w
}

// ParseNumber parses a raw page parameter. ok is false when raw is empty
// or not an integer. An integer too large for int is clamped to the int
// range.
func ParseNumber(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	switch {
	case err == nil:
		return n, true
	case errors.Is(err, strconv.ErrRange):
		// Atoi saturates to the nearest bound, which still lands past the
		// last page or below 1.
		return n, true
	}
	return 0, false
}

// Offset is the index of the first item of the page.
func (w Window) Offset() int { return (w.Number - 1) * w.Size }

// Limit is the number of items the page can hold.
func (w Window) Limit() int { return w.Size }

func (w Window) HasPrevious() bool { return w.Number > 1 }

func (w Window) HasNext() bool { return w.Number < w.NumPages }

func (w Window) HasOtherPages() bool { return w.HasPrevious() || w.HasNext() }

func (w Window) PreviousNumber() int { return lo.Max([]int{w.Number - 1, 1}) }

func (w Window) NextNumber() int { return lo.Min([]int{w.Number + 1, lo.Max([]int{w.NumPages, 1})}) }

// Page is one window plus the items it holds.
type Page[T any] struct {
	Window
	Items []T `json:"items"`
}

// Len reports the number of items on the page.
func (p Page[T]) Len() int { return len(p.Items) }

// Paginate slices an already ordered sequence.
func Paginate[T any](items []T, size int, requested string) Page[T] {
	w := NewWindow(len(items), size, requested)
	start := lo.Min([]int{w.Offset(), len(items)})
	end := lo.Min([]int{start + w.Size, len(items)})
	return FromWindow(w, items[start:end])
}

// FromWindow pairs a window with the items a store returned for it.
func FromWindow[T any](w Window, items []T) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Window: w, Items: items}
}
