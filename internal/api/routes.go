package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"nadlan/server/internal/metrics"
)

// NewRouter builds the gin engine with middleware and all routes
func NewRouter(market Market, allowedOrigins []string, m *metrics.Metrics, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(m.GinMiddleware())
	router.Use(cors.New(corsConfig(allowedOrigins)))

	SetupRoutes(router, market, logger)
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}
	return router
}

func SetupRoutes(router *gin.Engine, market Market, logger *logrus.Logger) {
	handler := NewHandler(market, logger)

	api := router.Group("/api")
	{
		api.GET("/health", handler.Health)
		api.GET("/cities", handler.ListCities)
		api.POST("/transactions/search", handler.SearchTransactions)
		api.POST("/transactions/geojson", handler.GetTransactionsGeoJSON)
		api.POST("/statistics", handler.GetStatistics)
		api.POST("/statistics/compute", handler.ComputeStatistics)
	}
}

func corsConfig(allowedOrigins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowedOrigins
	}
	return cfg
}
