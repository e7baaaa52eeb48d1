package api

import (
	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/mention-index/internal/protocol"
	"github.com/gcbaptista/mention-index/model"
)

// LoadCandidatesHandler replaces the whole candidate set.
// Request Body: {"candidates": [{"rel": "...", "isDir": false}, ...]}
//
// A body whose candidates field is not an array is accepted and leaves the store empty in
// the failed state, exactly like a malformed load message.
func (api *API) LoadCandidatesHandler(c *gin.Context) {
	body, ok := api.readBody(c)
	if !ok {
		return
	}

	req, err := protocol.DecodeAs(model.MessageTypeLoad, body)
	if err != nil {
		SendStructuredValidationError(c, ValidationResultFromError(err))
		return
	}
	if req.Malformed {
		api.log.Warnf("Load request %s has no candidate array", c.GetString(requestIDKey))
	}

	api.dispatch(c, req)
}

// PatchCandidatesHandler applies an incremental add/remove batch.
// Request Body: {"adds": [...], "removes": [...]}
func (api *API) PatchCandidatesHandler(c *gin.Context) {
	body, ok := api.readBody(c)
	if !ok {
		return
	}

	req, err := protocol.DecodeAs(model.MessageTypePatch, body)
	if err != nil {
		SendStructuredValidationError(c, ValidationResultFromError(err))
		return
	}

	api.dispatch(c, req)
}
