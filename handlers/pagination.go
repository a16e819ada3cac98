package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const maxPageSize = 100

// paginationParams reads page and limit from the query string. Bad values
// fall back to page 1 and defaultLimit; limit is capped at maxPageSize.
func paginationParams(c *gin.Context, defaultLimit int) (page, limit int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// newPagination builds the pagination block; totalKey names the count field
// (total_products, total_orders, ...).
func newPagination(page, limit int, total int64, totalKey string) gin.H {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return gin.H{
		"current_page": page,
		"total_pages":  totalPages,
		totalKey:       total,
		"has_next":     page < totalPages,
		"has_prev":     page > 1,
	}
}
