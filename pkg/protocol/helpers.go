package protocol

import (
	"encoding/base64"
	"time"

	"github.com/teslashibe/go-mirrormind/pkg/affect"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewLandmarksMessage creates a landmarks message
func NewLandmarksMessage(data LandmarksData) (*Message, error) {
	return NewMessage(TypeLandmarks, data)
}

// NewSessionBeginMessage creates a session begin message
func NewSessionBeginMessage(sessionID string) (*Message, error) {
	return NewMessage(TypeSessionBegin, SessionData{SessionID: sessionID})
}

// NewSessionEndMessage creates a session end message
func NewSessionEndMessage(sessionID string) (*Message, error) {
	return NewMessage(TypeSessionEnd, SessionData{SessionID: sessionID})
}

// NewResultMessage creates a result message
func NewResultMessage(sessionID string, frameID uint64, res affect.Result) (*Message, error) {
	return NewMessage(TypeResult, ResultData{
		SessionID: sessionID,
		FrameID:   frameID,
		Result:    res,
	})
}

// NewAnnounceMessage creates an announce message
func NewAnnounceMessage(sessionID, kind, text string, state affect.State) (*Message, error) {
	return NewMessage(TypeAnnounce, AnnounceData{
		SessionID: sessionID,
		Kind:      kind,
		Text:      text,
		State:     state,
	})
}

// NewErrorMessage creates an error message
func NewErrorMessage(code, message string) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Code: code, Message: message})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetLandmarksData extracts landmarks data from a message
func (m *Message) GetLandmarksData() (*LandmarksData, error) {
	var data LandmarksData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeThumbnail decodes the base64 JPEG thumbnail. It returns nil when
// no thumbnail was sent.
func (l *LandmarksData) DecodeThumbnail() ([]byte, error) {
	if l.Thumbnail == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(l.Thumbnail)
}

// GetSessionData extracts session control data from a message
func (m *Message) GetSessionData() (*SessionData, error) {
	var data SessionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetResultData extracts result data from a message
func (m *Message) GetResultData() (*ResultData, error) {
	var data ResultData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetAnnounceData extracts announce data from a message
func (m *Message) GetAnnounceData() (*AnnounceData, error) {
	var data AnnounceData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetErrorData extracts error data from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
