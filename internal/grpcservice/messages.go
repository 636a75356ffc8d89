package grpcservice

import "go.klb.dev/recall/internal/transport"

// HistoryRequest selects history for List and Search. Start and End are
// milliseconds since the epoch and must be given together. A nil Limit
// selects the server default.
type HistoryRequest struct {
	Query string `json:"query,omitempty"`
	Start *int64 `json:"start,omitempty"`
	End   *int64 `json:"end,omitempty"`
	Limit *int   `json:"limit,omitempty"`
}

type HistoryResponse struct {
	Items []transport.Item `json:"items"`
}

type RestoreRequest struct {
	ID int64 `json:"id"`
}

type RestoreResponse struct{}

type StatusRequest struct{}

type StatusResponse struct {
	Version     string `json:"version"`
	Items       int64  `json:"items"`
	Subscribers int    `json:"subscribers"`
	Strategy    string `json:"strategy,omitempty"`
	Clipboard   string `json:"clipboard,omitempty"`
	Database    string `json:"database,omitempty"`
	// StartedAt is the daemon start time in epoch milliseconds.
	StartedAt int64 `json:"startedAt,omitempty"`
}

type WatchRequest struct{}

// WatchEvent is sent once per stored record.
type WatchEvent struct {
	Event string `json:"event"`
	// Time is when the server relayed the event, in epoch milliseconds.
	Time int64 `json:"time"`
}
