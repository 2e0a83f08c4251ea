// Package pagination applies optional limit/offset windows to list endpoints.
// Lists stay bare JSON arrays; the unwindowed size is reported in the
// X-Total-Count header.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	MaxLimit = 500

	TotalCountHeader = "X-Total-Count"
)

// Params holds pagination parameters extracted from a request. A zero Limit
// means no limit.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads ?limit= and ?offset=. Missing or invalid values leave
// the list unwindowed.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 0 {
		limit = 0
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// IsZero reports whether the request asked for the whole list.
func (p Params) IsZero() bool {
	return p.Limit == 0 && p.Offset == 0
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Limit > 0 && p.Offset+p.Limit < total
}

// Window returns the slice of items selected by p.
func Window[T any](items []T, p Params) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if p.Limit > 0 && p.Offset+p.Limit < end {
		end = p.Offset + p.Limit
	}
	return items[p.Offset:end]
}

// JSON writes the requested window of items as a JSON array and sets the
// total count header.
func JSON[T any](c echo.Context, status int, items []T) error {
	p := FromContext(c)
	c.Response().Header().Set(TotalCountHeader, strconv.Itoa(len(items)))
	if p.IsZero() {
		return c.JSON(status, items)
	}
	return c.JSON(status, Window(items, p))
}
