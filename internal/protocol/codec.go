// Package protocol converts between JSON messages and engine requests.
//
// Decoding is lenient: a message from the host is never rejected for a badly typed field.
// Unusable items are skipped and unusable scalars fall back to their zero value, which the
// engine then treats as "use the default". Only a payload that is not a JSON object with a
// string type is an error.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	internalErrors "github.com/gcbaptista/mention-index/internal/errors"
	"github.com/gcbaptista/mention-index/model"
)

// envelope holds the raw fields of a message; each one is interpreted by its own helper.
type envelope struct {
	Type       json.RawMessage `json:"type"`
	ID         json.RawMessage `json:"id"`
	Candidates json.RawMessage `json:"candidates"`
	Adds       json.RawMessage `json:"adds"`
	Removes    json.RawMessage `json:"removes"`
	Query      json.RawMessage `json:"q"`
	Limit      json.RawMessage `json:"limit"`
}

// Decode parses one message. The returned request may carry an unknown type; callers
// decide what to do with it.
func Decode(data []byte) (model.Request, error) {
	env, err := parseEnvelope(data)
	if err != nil {
		return model.Request{}, err
	}

	var messageType string
	if err := json.Unmarshal(env.Type, &messageType); err != nil || strings.TrimSpace(messageType) == "" {
		return model.Request{}, internalErrors.NewValidationError("type", "must be a non-empty string")
	}

	return decodePayload(model.MessageType(messageType), env), nil
}

// DecodeAs parses a message body whose type is implied by the caller, as on typed HTTP
// routes. A type field in data is ignored.
func DecodeAs(messageType model.MessageType, data []byte) (model.Request, error) {
	env, err := parseEnvelope(data)
	if err != nil {
		return model.Request{}, err
	}
	return decodePayload(messageType, env), nil
}

func parseEnvelope(data []byte) (envelope, error) {
	var env envelope
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return env, internalErrors.NewValidationError("", "message must be a JSON object")
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return env, internalErrors.NewValidationError("", fmt.Sprintf("malformed message: %v", err))
	}
	return env, nil
}

func decodePayload(messageType model.MessageType, env envelope) model.Request {
	req := model.Request{
		Type: messageType,
		ID:   decodeID(env.ID),
	}

	switch req.Type {
	case model.MessageTypeLoad:
		candidates, ok := decodeCandidates(env.Candidates)
		req.Candidates = candidates
		req.Malformed = !ok
	case model.MessageTypePatch:
		req.Adds, _ = decodeCandidates(env.Adds)
		req.Removes, _ = decodeCandidates(env.Removes)
	case model.MessageTypeQuery:
		req.Query = decodeString(env.Query)
		req.Limit = decodeLimit(env.Limit)
	}

	return req
}

// decodeCandidates reads an array of {rel, isDir} objects. ok is false when raw is not an
// array. Items that are not objects or lack a non-empty string rel are skipped.
func decodeCandidates(raw json.RawMessage) (candidates []model.Candidate, ok bool) {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil || items == nil {
		return []model.Candidate{}, false
	}

	candidates = make([]model.Candidate, 0, len(items))
	for _, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			continue
		}
		rel := decodeString(fields["rel"])
		if rel == "" {
			continue
		}
		var isDir bool
		if err := json.Unmarshal(fields["isDir"], &isDir); err != nil {
			isDir = false
		}
		candidates = append(candidates, model.Candidate{Rel: rel, IsDir: isDir})
	}
	return candidates, true
}

func decodeString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// decodeID accepts a string or a number so hosts can correlate with either.
func decodeID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	if s := decodeString(raw); s != "" {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

// decodeLimit returns 0 (the default) for anything that is not a positive number.
// Fractions are truncated; the ranker caps large values.
func decodeLimit(raw json.RawMessage) int {
	var v float64
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return 0
	}
	if math.IsNaN(v) || v < 1 {
		return 0
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}

type loadMessage struct {
	model.Response
	model.LoadResult
}

type patchMessage struct {
	model.Response
	model.PatchResult
}

type queryMessage struct {
	model.Response
	model.QueryResult
}

type statsMessage struct {
	model.Response
	model.StoreStats
}

// Encode serializes a response as a single JSON object.
func Encode(resp model.Response) ([]byte, error) {
	switch resp.Type {
	case model.MessageTypeLoad:
		if resp.LoadResult == nil {
			return nil, fmt.Errorf("load response without result")
		}
		return json.Marshal(loadMessage{Response: resp, LoadResult: *resp.LoadResult})
	case model.MessageTypePatch:
		if resp.PatchResult == nil {
			return nil, fmt.Errorf("patch response without result")
		}
		return json.Marshal(patchMessage{Response: resp, PatchResult: *resp.PatchResult})
	case model.MessageTypeQuery:
		if resp.QueryResult == nil {
			return nil, fmt.Errorf("query response without result")
		}
		result := *resp.QueryResult
		if result.Items == nil {
			result.Items = []model.RankedResult{}
		}
		return json.Marshal(queryMessage{Response: resp, QueryResult: result})
	case model.MessageTypeStats:
		if resp.StoreStats == nil {
			return nil, fmt.Errorf("stats response without result")
		}
		return json.Marshal(statsMessage{Response: resp, StoreStats: *resp.StoreStats})
	default:
		return nil, internalErrors.NewUnknownMessageTypeError(string(resp.Type))
	}
}
