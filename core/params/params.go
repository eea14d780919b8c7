package params

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// QueryParams carries common pagination/ordering query parameters.
type QueryParams struct {
	PageNumber     int
	PageSize       int
	OrderBy        string
	OrderDirection string
}

// FromContext parses paging params from the request with sane bounds.
func FromContext(c echo.Context) QueryParams {
	p := QueryParams{
		PageNumber:     1,
		PageSize:       20,
		OrderBy:        c.QueryParam("orderBy"),
		OrderDirection: c.QueryParam("orderDirection"),
	}

	if n, err := strconv.Atoi(c.QueryParam("page")); err == nil && n > 0 {
		p.PageNumber = n
	}
	if n, err := strconv.Atoi(c.QueryParam("pageSize")); err == nil && n > 0 && n <= 100 {
		p.PageSize = n
	}
	return p
}
