// Package events contains the change feed contracts pushed to browsers over
// WebSocket.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeDatasetChanged tells watchers to re-run filter and plot.
	MessageTypeDatasetChanged MessageType = "dataset_changed"

	// MessageTypeSessionClosed is sent when a session is deleted or expires.
	MessageTypeSessionClosed MessageType = "session_closed"

	// MessageTypeConnect is the first message on every connection.
	MessageTypeConnect MessageType = "connect"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	SessionID string      `json:"session_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// DatasetChanged is the payload of a dataset_changed message. Revision
// increases by one per mutating command within a session.
type DatasetChanged struct {
	Command  string `json:"command"`
	Message  string `json:"message"`
	Rows     int    `json:"rows"`
	Revision uint64 `json:"revision"`
}
