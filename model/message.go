package model

// MessageType is the kind of a request or response on the message channel.
type MessageType string

const (
	MessageTypeLoad  MessageType = "load"
	MessageTypePatch MessageType = "patch"
	MessageTypeQuery MessageType = "query"
	MessageTypeStats MessageType = "stats"
)

// Known reports whether the engine handles messages of this type.
func (t MessageType) Known() bool {
	switch t {
	case MessageTypeLoad, MessageTypePatch, MessageTypeQuery, MessageTypeStats:
		return true
	}
	return false
}

// Request is a decoded message addressed to the engine.
// Only the fields relevant to Type are read.
type Request struct {
	Type MessageType
	ID   string

	// load
	Candidates []Candidate
	Malformed  bool // load payload could not be interpreted; the store is reset to a failed state

	// patch
	Adds    []Candidate
	Removes []Candidate

	// query
	Query string
	Limit int
}

// Response is the engine's answer to a Request. Fields are populated according to Type.
type Response struct {
	Type MessageType `json:"type"`
	ID   string      `json:"id,omitempty"`

	LoadResult  *LoadResult  `json:"-"`
	PatchResult *PatchResult `json:"-"`
	QueryResult *QueryResult `json:"-"`
	StoreStats  *StoreStats  `json:"-"`
}

// LoadResult is the outcome of replacing the whole candidate set.
type LoadResult struct {
	Total int `json:"total"`
}

// PatchResult is the outcome of an incremental add/remove batch.
type PatchResult struct {
	AddsApplied    int `json:"addsApplied"`
	RemovesApplied int `json:"removesApplied"`
	Total          int `json:"total"`
}

// QueryResult echoes the query string so callers can drop responses to superseded queries.
type QueryResult struct {
	Query string         `json:"q"`
	Items []RankedResult `json:"items"`
}
