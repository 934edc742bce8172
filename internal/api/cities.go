package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ListCities returns the cities matching the q parameter, all of them when
// it is absent
func (h *Handler) ListCities(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	cities := h.market.Cities(query)

	c.JSON(http.StatusOK, gin.H{
		"count":  len(cities),
		"cities": cities,
	})
}
