// Package protocol defines the WebSocket message types exchanged between
// landmark detectors, the mirrormind server and dashboard clients.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/go-mirrormind/pkg/affect"
	"github.com/teslashibe/go-mirrormind/pkg/face"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Detector → Server messages
	TypeLandmarks    MessageType = "landmarks"     // One analysed video frame
	TypeSessionBegin MessageType = "session_begin" // Reset smoothing state
	TypeSessionEnd   MessageType = "session_end"   // Discard smoothing state

	// Server → Client messages
	TypeResult   MessageType = "result"   // Smoothed detection result
	TypeAnnounce MessageType = "announce" // Phrase to speak
	TypeError    MessageType = "error"    // Rejected message

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// Time returns the message timestamp, or the zero time when unset.
func (m *Message) Time() time.Time {
	if m.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(m.Timestamp)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Detector → Server Message Types
// =============================================================================

// LandmarksData is the detector output for one video frame.
type LandmarksData struct {
	FrameID uint64     `json:"frame_id,omitempty"`
	Width   int        `json:"width"`
	Height  int        `json:"height"`
	Faces   []FaceData `json:"faces"`

	// Optional brightness sources. Luma wins when both are set.
	Luma      *float64 `json:"luma,omitempty"`      // Mean (r+g+b)/3, 0-255
	Thumbnail string   `json:"thumbnail,omitempty"` // base64 JPEG
}

// FaceData is one detected face.
type FaceData struct {
	Landmarks   []face.Point    `json:"landmarks"`
	Blendshapes []face.Category `json:"blendshapes,omitempty"`
	Confidence  float64         `json:"confidence"` // 0.0 to 1.0
}

// SessionData names the session a control message applies to. An empty
// SessionID means the sender's own connection.
type SessionData struct {
	SessionID string `json:"session_id,omitempty"`
}

// =============================================================================
// Server → Client Message Types
// =============================================================================

// ResultData carries one smoothed result.
type ResultData struct {
	SessionID string        `json:"session_id"`
	FrameID   uint64        `json:"frame_id,omitempty"`
	Result    affect.Result `json:"result"`
}

// AnnounceData is a phrase for the client's speech engine.
type AnnounceData struct {
	SessionID string       `json:"session_id,omitempty"`
	Kind      string       `json:"kind"` // "state" or "emotion"
	Text      string       `json:"text"`
	State     affect.State `json:"state"`
}

// ErrorData explains why a message was rejected.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrCodeBadMessage  = "bad_message"
	ErrCodeUnsupported = "unsupported"
	ErrCodeSession     = "session"
)

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
