package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"

	"nadlan/server/config"
	"nadlan/server/internal/aggregator"
	"nadlan/server/internal/models"
	"nadlan/server/internal/service"
)

// Market is the set of operations served over HTTP
type Market interface {
	Search(ctx context.Context, criteria models.SearchCriteria) (aggregator.SearchResult, error)
	Statistics(ctx context.Context, criteria models.SearchCriteria) (service.StatisticsResult, error)
	ComputeStatistics(transactions []models.Transaction) models.MarketStatistics
	Cities(query string) []config.City
	GeoJSON(ctx context.Context, criteria models.SearchCriteria) (*geojson.FeatureCollection, error)
}

type Handler struct {
	market Market
	logger *logrus.Logger
}

type ComputeRequest struct {
	Transactions []models.Transaction `json:"transactions" binding:"required"`
}

func NewHandler(market Market, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		market: market,
		logger: logger,
	}
}

// bindCriteria reads the search criteria from the request body. An empty
// body means no constraints.
func (h *Handler) bindCriteria(c *gin.Context) (models.SearchCriteria, bool) {
	var criteria models.SearchCriteria
	if c.Request.ContentLength == 0 {
		return criteria, true
	}
	if err := c.ShouldBindJSON(&criteria); err != nil {
		h.logger.WithError(err).Warn("Invalid search criteria")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid search criteria"})
		return criteria, false
	}
	return criteria, true
}

func (h *Handler) SearchTransactions(c *gin.Context) {
	criteria, ok := h.bindCriteria(c)
	if !ok {
		return
	}

	result, err := h.market.Search(c.Request.Context(), criteria)
	if err != nil {
		h.logger.WithError(err).Error("Failed to search transactions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search transactions"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetTransactionsGeoJSON(c *gin.Context) {
	criteria, ok := h.bindCriteria(c)
	if !ok {
		return
	}

	fc, err := h.market.GeoJSON(c.Request.Context(), criteria)
	if err != nil {
		h.logger.WithError(err).Error("Failed to build transaction map")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build transaction map"})
		return
	}

	c.JSON(http.StatusOK, fc)
}

func (h *Handler) GetStatistics(c *gin.Context) {
	criteria, ok := h.bindCriteria(c)
	if !ok {
		return
	}

	result, err := h.market.Statistics(c.Request.Context(), criteria)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get market statistics")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get market statistics"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ComputeStatistics returns the statistics of the transactions in the body
func (h *Handler) ComputeStatistics(c *gin.Context) {
	var req ComputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("Invalid statistics request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	c.JSON(http.StatusOK, h.market.ComputeStatistics(req.Transactions))
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
