package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/gcbaptista/mention-index/internal/analytics"
	"github.com/gcbaptista/mention-index/internal/engine"
	internalErrors "github.com/gcbaptista/mention-index/internal/errors"
	"github.com/gcbaptista/mention-index/internal/logging"
	"github.com/gcbaptista/mention-index/internal/protocol"
	"github.com/gcbaptista/mention-index/model"
)

// Engine is what the HTTP layer needs from the request loop.
type Engine interface {
	Submit(ctx context.Context, req model.Request) (model.Response, bool, error)
	Metrics() engine.MetricsData
}

// API holds dependencies for API handlers.
type API struct {
	engine    Engine
	analytics *analytics.Service
	log       *logrus.Entry
	startTime time.Time
}

// NewAPI creates a new API handler structure.
func NewAPI(eng Engine, analyticsService *analytics.Service, log *logrus.Entry) *API {
	if analyticsService == nil {
		analyticsService = analytics.NewService()
	}
	if log == nil {
		log = logging.Discard()
	}
	return &API{
		engine:    eng,
		analytics: analyticsService,
		log:       log,
		startTime: time.Now(),
	}
}

// SetupRoutes defines all the API routes of the mention index.
func SetupRoutes(router *gin.Engine, eng Engine, analyticsService *analytics.Service, log *logrus.Entry) {
	apiHandler := NewAPI(eng, analyticsService, log)

	// Status routes
	router.GET("/health", apiHandler.HealthCheckHandler)
	router.GET("/stats", apiHandler.StatsHandler)
	router.GET("/metrics", apiHandler.MetricsHandler)
	router.GET("/analytics", apiHandler.GetAnalyticsHandler)

	// Candidate set routes
	candidateRoutes := router.Group("/candidates")
	{
		candidateRoutes.POST("/_load", apiHandler.LoadCandidatesHandler)   // Replace the whole candidate set
		candidateRoutes.POST("/_patch", apiHandler.PatchCandidatesHandler) // Incremental add/remove batch
	}

	// Query routes
	router.POST("/_query", apiHandler.QueryHandler)
	router.GET("/_query", apiHandler.QueryParamsHandler)

	// Raw message route, same envelope as the stdio transport
	router.POST("/messages", apiHandler.MessageHandler)
}

// NewRouter builds a gin engine with the middleware stack and all routes.
func NewRouter(eng Engine, analyticsService *analytics.Service, maxBodyBytes int64, log *logrus.Entry) *gin.Engine {
	if log == nil {
		log = logging.Discard()
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		RequestIDMiddleware(),
		LoggingMiddleware(log),
		CORSMiddleware(),
		RequestSizeLimitMiddleware(maxBodyBytes),
	)
	SetupRoutes(router, eng, analyticsService, log)
	return router
}

// dispatch submits req and writes the encoded response. Requests without an id get the
// HTTP request id so responses can be correlated with access logs.
func (api *API) dispatch(c *gin.Context, req model.Request) {
	if req.ID == "" {
		req.ID = c.GetString(requestIDKey)
	}

	resp, ok, err := api.engine.Submit(c.Request.Context(), req)
	if err != nil {
		api.sendEngineError(c, req.Type, err)
		return
	}
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}

	data, err := protocol.Encode(resp)
	if err != nil {
		SendInternalError(c, "encode "+string(resp.Type)+" response", err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (api *API) sendEngineError(c *gin.Context, messageType model.MessageType, err error) {
	switch {
	case errors.Is(err, internalErrors.ErrEngineStopped):
		SendEngineUnavailableError(c)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		api.log.Debugf("Client gave up on %s message: %v", messageType, err)
		SendError(c, http.StatusServiceUnavailable, ErrorCodeRequestCancelled, "Request was cancelled before it was processed")
	default:
		SendInternalError(c, string(messageType), err)
	}
}

// readBody reads the request body, reporting oversized and unreadable bodies.
// It returns false when an error response has already been sent.
func (api *API) readBody(c *gin.Context) ([]byte, bool) {
	data, err := c.GetRawData()
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			SendError(c, http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge, "Request body is too large")
			return nil, false
		}
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest, "Failed to read request body: "+err.Error())
		return nil, false
	}
	return data, true
}
