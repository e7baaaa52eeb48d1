package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/mention-index/model"
)

// GetAnalyticsHandler handles the request to get query analytics
func (api *API) GetAnalyticsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, api.analytics.Summary())
}

// MetricsHandler returns the request loop metrics
func (api *API) MetricsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, api.engine.Metrics())
}

// StatsHandler returns a snapshot of the candidate store
func (api *API) StatsHandler(c *gin.Context) {
	api.dispatch(c, model.Request{Type: model.MessageTypeStats})
}

// HealthCheckHandler provides a simple health check endpoint
func (api *API) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "mention-index",
		"uptime":    time.Since(api.startTime).Round(time.Second).String(),
		"timestamp": fmt.Sprintf("%d", time.Now().Unix()),
	})
}
