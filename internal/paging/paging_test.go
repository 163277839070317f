package paging

import (
	"strconv"
	"testing"

	"github.com/samber/lo"
)

func TestPaginate_TotalsAcrossPages(t *testing.T) {
	for _, size := range []int{1, 3, 10} {
		for _, n := range []int{0, 1, 9, 10, 11, 13, 30} {
			items := lo.Range(n)
			first := Paginate(items, size, "")
			want := (n + size - 1) / size
			if first.NumPages != want {
				t.Fatalf("n=%d size=%d: num pages %d want %d", n, size, first.NumPages, want)
			}
			sum := 0
			for p := 1; p <= lo.Max([]int{first.NumPages, 1}); p++ {
				page := Paginate(items, size, strconv.Itoa(p))
				sum += page.Len()
			}
			if sum != n {
				t.Fatalf("n=%d size=%d: summed %d items", n, size, sum)
			}
		}
	}
}

func TestPaginate_SlicesInOrder(t *testing.T) {
	items := lo.Range(13)

	p1 := Paginate(items, 10, "1")
	if p1.Len() != 10 || p1.Items[0] != 0 || p1.Items[9] != 9 {
		t.Fatalf("page 1 = %v", p1.Items)
	}
	if p1.HasPrevious() || !p1.HasNext() {
		t.Fatalf("page 1 flags prev=%v next=%v", p1.HasPrevious(), p1.HasNext())
	}

	p2 := Paginate(items, 10, "2")
	if p2.Len() != 3 || p2.Items[0] != 10 {
		t.Fatalf("page 2 = %v", p2.Items)
	}
	if !p2.HasPrevious() || p2.HasNext() {
		t.Fatalf("page 2 flags prev=%v next=%v", p2.HasPrevious(), p2.HasNext())
	}
	if p2.Total != 13 || p2.NumPages != 2 {
		t.Fatalf("total=%d pages=%d", p2.Total, p2.NumPages)
	}
}

func TestNewWindow_RequestedNumber(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"", 1},
		{"abc", 1},
		{"2.0", 1},
		{" 2 ", 2},
		{"3", 3},
		{"99", 3},
		{"0", 3},
		{"-4", 3},
		{"99999999999999999999", 3},
		{"-99999999999999999999", 3},
	}
	for _, tc := range cases {
		w := NewWindow(25, 10, tc.raw)
		if w.Number != tc.want {
			t.Fatalf("raw=%q: page %d want %d", tc.raw, w.Number, tc.want)
		}
	}
}

func TestNewWindow_Empty(t *testing.T) {
	for _, raw := range []string{"", "1", "5", "-1", "x"} {
		p := Paginate([]string{}, 10, raw)
		if p.Number != 1 || p.Len() != 0 || p.NumPages != 0 {
			t.Fatalf("raw=%q: %+v", raw, p)
		}
		if p.HasNext() || p.HasPrevious() {
			t.Fatalf("raw=%q: empty page must not have neighbours", raw)
		}
		if p.Items == nil {
			t.Fatalf("items should be an empty slice")
		}
	}
}

func TestWindow_OffsetAndNeighbours(t *testing.T) {
	w := NewWindow(45, 10, "3")
	if w.Offset() != 20 || w.Limit() != 10 {
		t.Fatalf("offset=%d limit=%d", w.Offset(), w.Limit())
	}
	if w.PreviousNumber() != 2 || w.NextNumber() != 4 {
		t.Fatalf("prev=%d next=%d", w.PreviousNumber(), w.NextNumber())
	}
	last := NewWindow(45, 10, "5")
	if last.NextNumber() != 5 || last.HasNext() {
		t.Fatalf("last page next=%d", last.NextNumber())
	}
}
