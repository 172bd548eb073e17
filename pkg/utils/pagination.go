package utils

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const maxLimit = 100

// ListParams are the limit/offset query parameters shared by the listing
// endpoints.
type ListParams struct {
	Limit  int
	Offset int
}

// GetListParams parses limit/offset from the query string. Missing or
// malformed values fall back to defaultLimit and offset 0; a defaultLimit of
// 0 means unbounded. Requested limits are capped at 100.
func GetListParams(c echo.Context, defaultLimit int) ListParams {
	limit := defaultLimit
	if v := c.QueryParam("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
			if limit > maxLimit {
				limit = maxLimit
			}
		}
	}

	offset := 0
	if v := c.QueryParam("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	return ListParams{Limit: limit, Offset: offset}
}
