package kit

import (
	"github.com/gofiber/fiber/v2"

	"fiber-ent-blog/internal/paging"
)

// PageMeta contains pagination metadata for API responses and the
// paginator template.
type PageMeta struct {
	Page         int  `json:"page"`
	PageSize     int  `json:"page_size"`
	Count        int  `json:"count"`
	Total        int  `json:"total"`
	NumPages     int  `json:"num_pages"`
	HasNext      bool `json:"has_next"`
	HasPrevious  bool `json:"has_previous"`
	NextPage     int  `json:"next_page,omitempty"`
	PreviousPage int  `json:"previous_page,omitempty"`
}

// NewPageMeta describes p.
func NewPageMeta[T any](p paging.Page[T]) PageMeta {
	m := PageMeta{
		Page:        p.Number,
		PageSize:    p.Size,
		Count:       p.Len(),
		Total:       p.Total,
		NumPages:    p.NumPages,
		HasNext:     p.HasNext(),
		HasPrevious: p.HasPrevious(),
	}
	if m.HasNext {
		m.NextPage = p.NextNumber()
	}
	if m.HasPrevious {
		m.PreviousPage = p.PreviousNumber()
	}
	return m
}

// PageParam returns the raw ?page= value. Resolution happens in paging.
func PageParam(c *fiber.Ctx) string {
	return c.Query("page")
}
