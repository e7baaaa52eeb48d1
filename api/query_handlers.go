package api

import (
	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/mention-index/internal/protocol"
	"github.com/gcbaptista/mention-index/model"
)

// QueryHandler ranks candidates against a query.
// Request Body: {"q": "...", "limit": 30}
func (api *API) QueryHandler(c *gin.Context) {
	body, ok := api.readBody(c)
	if !ok {
		return
	}

	req, err := protocol.DecodeAs(model.MessageTypeQuery, body)
	if err != nil {
		SendStructuredValidationError(c, ValidationResultFromError(err))
		return
	}

	api.dispatch(c, req)
}

// QueryParamsHandler is the GET form of QueryHandler: /_query?q=...&limit=...
func (api *API) QueryParamsHandler(c *gin.Context) {
	limit, result := ValidateLimitParam(c.Query("limit"))
	if result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	api.dispatch(c, model.Request{
		Type:  model.MessageTypeQuery,
		ID:    c.Query("id"),
		Query: c.Query("q"),
		Limit: limit,
	})
}

// MessageHandler accepts a raw message envelope, as sent over the stdio transport.
// Messages of unknown type are acknowledged with 204 and no body.
func (api *API) MessageHandler(c *gin.Context) {
	body, ok := api.readBody(c)
	if !ok {
		return
	}

	req, err := protocol.Decode(body)
	if err != nil {
		SendStructuredValidationError(c, ValidationResultFromError(err))
		return
	}

	api.dispatch(c, req)
}
