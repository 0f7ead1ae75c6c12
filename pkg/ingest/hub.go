// Package ingest provides the WebSocket hub that landmark detectors
// stream frames into. Each connection owns one pipeline session.
package ingest

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-mirrormind/internal/log"
	"github.com/teslashibe/go-mirrormind/pkg/affect"
	"github.com/teslashibe/go-mirrormind/pkg/pipeline"
	"github.com/teslashibe/go-mirrormind/pkg/protocol"
)

// DefaultMinInterval caps analysis at about 15 frames per second.
const DefaultMinInterval = 66 * time.Millisecond

// Detector is one connected landmark source.
type Detector struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time

	mu           sync.Mutex
	writeMu      sync.Mutex
	session      *pipeline.Session
	lastSeen     time.Time
	due          time.Time // next cadence slot
	frames       uint64
	dropped      uint64
}

// admit reports whether a frame arriving at now fits the cadence and books
// the next slot. Frames may land up to half an interval before their slot;
// the long-run rate stays at one per interval. Callers hold d.mu.
func (d *Detector) admit(now time.Time, interval time.Duration) bool {
	if interval <= 0 {
		return true
	}
	if !d.due.IsZero() && now.Before(d.due.Add(-interval/2)) {
		return false
	}
	if now.After(d.due) {
		d.due = now
	}
	d.due = d.due.Add(interval)
	return true
}

// Send sends a message to the detector
func (d *Detector) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	return d.Conn.WriteMessage(websocket.TextMessage, data)
}

// Session returns the detector's current pipeline session.
func (d *Detector) Session() *pipeline.Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session
}

// ResultHandler receives every smoothed result.
type ResultHandler func(detectorID string, frameID uint64, res affect.Result)

// SessionHandler is told when a detector session begins or ends.
type SessionHandler func(detectorID string, active bool)

// Hub manages WebSocket connections from detectors
type Hub struct {
	mu          sync.RWMutex
	detectors   map[string]*Detector
	pipeline    atomic.Pointer[pipeline.Pipeline]
	minInterval time.Duration
	logger      *slog.Logger
	now         func() time.Time

	// Callbacks
	onResult  ResultHandler
	onSession SessionHandler

	// Stats
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	framesReceived   atomic.Uint64
	framesDropped    atomic.Uint64
	framesProcessed  atomic.Uint64
}

// NewHub creates a detector hub analysing frames with p. Each detector
// gets at most one frame per minInterval, with half an interval of arrival
// jitter tolerated; faster frames are dropped. Zero disables throttling. A nil logger uses the "ingest" component logger.
func NewHub(p *pipeline.Pipeline, minInterval time.Duration, logger *slog.Logger) *Hub {
	h := &Hub{
		detectors:   make(map[string]*Detector),
		minInterval: minInterval,
		logger:      log.Or(logger, "ingest"),
		now:         time.Now,
	}
	h.pipeline.Store(p)
	return h
}

// Pipeline returns the pipeline used for new sessions.
func (h *Hub) Pipeline() *pipeline.Pipeline {
	return h.pipeline.Load()
}

// SetPipeline replaces the pipeline for sessions begun from now on.
// Running sessions keep their current tuning until their next begin.
func (h *Hub) SetPipeline(p *pipeline.Pipeline) {
	h.pipeline.Store(p)
}

// OnResult sets the callback for smoothed results
func (h *Hub) OnResult(callback ResultHandler) {
	h.mu.Lock()
	h.onResult = callback
	h.mu.Unlock()
}

// OnSession sets the callback for session begin and end
func (h *Hub) OnSession(callback SessionHandler) {
	h.mu.Lock()
	h.onSession = callback
	h.mu.Unlock()
}

// RegisterRoutes registers WebSocket routes on a Fiber app
func (h *Hub) RegisterRoutes(app *fiber.App) {
	// WebSocket upgrade middleware
	app.Use("/ws/detector", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// Detector connection endpoint
	app.Get("/ws/detector", websocket.New(h.handleDetector))
	app.Get("/ws/detector/:id", websocket.New(h.handleDetector))
}

// handleDetector handles a detector WebSocket connection
func (h *Hub) handleDetector(c *websocket.Conn) {
	// Get detector ID from path or generate one
	id := c.Params("id")
	if id == "" {
		id = generateDetectorID()
	}

	now := h.now()
	d := &Detector{
		ID:        id,
		Conn:      c,
		Connected: now,
		lastSeen:  now,
		session:   h.Pipeline().NewSession(id),
	}

	// Register detector
	h.mu.Lock()
	if old, ok := h.detectors[id]; ok {
		old.Session().End()
	}
	h.detectors[id] = d
	count := len(h.detectors)
	h.mu.Unlock()

	h.logger.Info("detector connected", "detector", id, "total", count)
	h.notifySession(id, true)

	defer func() {
		h.mu.Lock()
		if h.detectors[id] == d {
			delete(h.detectors, id)
		}
		count := len(h.detectors)
		h.mu.Unlock()

		d.Session().End()
		h.notifySession(id, false)
		h.logger.Info("detector disconnected", "detector", id, "total", count)
	}()

	// Read loop
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("detector read error", "detector", id, "error", err)
			}
			return
		}

		d.mu.Lock()
		d.lastSeen = h.now()
		d.mu.Unlock()

		h.messagesReceived.Add(1)
		h.handleMessage(d, data)
	}
}

// handleMessage processes an incoming message from a detector
func (h *Hub) handleMessage(d *Detector, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		h.logger.Warn("parse error", "detector", d.ID, "error", err)
		h.sendError(d, protocol.ErrCodeBadMessage, err.Error())
		return
	}

	switch msg.Type {
	case protocol.TypeLandmarks:
		h.framesReceived.Add(1)
		lm, err := msg.GetLandmarksData()
		if err != nil {
			h.sendError(d, protocol.ErrCodeBadMessage, err.Error())
			return
		}
		h.handleLandmarks(d, lm, msg.Time())

	case protocol.TypeSessionBegin:
		if err := h.BeginSession(d.ID); err != nil {
			h.sendError(d, protocol.ErrCodeSession, err.Error())
		}

	case protocol.TypeSessionEnd:
		if err := h.EndSession(d.ID); err != nil {
			h.sendError(d, protocol.ErrCodeSession, err.Error())
		}

	case protocol.TypePing:
		// Respond with pong
		ping, err := msg.GetPingData()
		if err != nil || ping.Timestamp == 0 {
			ping = &protocol.PingData{Timestamp: msg.Timestamp}
		}
		h.SendPong(d.ID, ping.ID, ping.Timestamp)

	default:
		h.sendError(d, protocol.ErrCodeUnsupported, "unsupported message type "+string(msg.Type))
	}
}

// handleLandmarks throttles, analyses and answers one frame.
func (h *Hub) handleLandmarks(d *Detector, lm *protocol.LandmarksData, ts time.Time) {
	now := h.now()

	d.mu.Lock()
	if !d.admit(now, h.minInterval) {
		d.dropped++
		d.mu.Unlock()
		h.framesDropped.Add(1)
		return
	}
	d.frames++
	session := d.session
	d.mu.Unlock()

	res, err := session.Process(toFrame(lm, ts, h.logger))
	if err != nil {
		if errors.Is(err, pipeline.ErrSessionEnded) {
			h.sendError(d, protocol.ErrCodeSession, err.Error())
			return
		}
		h.logger.Error("process failed", "detector", d.ID, "error", err)
		return
	}
	h.framesProcessed.Add(1)

	if msg, err := protocol.NewResultMessage(d.ID, lm.FrameID, res); err == nil {
		h.messagesSent.Add(1)
		if err := d.Send(msg); err != nil {
			h.logger.Warn("result write failed", "detector", d.ID, "error", err)
		}
	}

	h.mu.RLock()
	cb := h.onResult
	h.mu.RUnlock()
	if cb != nil {
		cb(d.ID, lm.FrameID, res)
	}
}

// BeginSession resets a detector's smoothing state. When the tuning was
// replaced since the session started, a fresh session uses the new one.
func (h *Hub) BeginSession(id string) error {
	d := h.GetDetector(id)
	if d == nil {
		return ErrSessionNotFound
	}

	p := h.Pipeline()
	d.mu.Lock()
	if d.session.Pipeline() == p {
		d.session.Begin()
	} else {
		d.session.End()
		d.session = p.NewSession(id)
	}
	d.due = time.Time{}
	d.mu.Unlock()

	h.notifySession(id, true)
	return nil
}

// EndSession discards a detector's smoothing state. Frames are rejected
// until the next BeginSession.
func (h *Hub) EndSession(id string) error {
	d := h.GetDetector(id)
	if d == nil {
		return ErrSessionNotFound
	}
	d.Session().End()
	h.notifySession(id, false)
	return nil
}

func (h *Hub) notifySession(id string, active bool) {
	h.mu.RLock()
	cb := h.onSession
	h.mu.RUnlock()
	if cb != nil {
		cb(id, active)
	}
}

// SendPong sends a pong response to a detector
func (h *Hub) SendPong(id, pingID string, pingTS int64) error {
	msg, err := protocol.NewPongMessage(pingID, pingTS, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	return h.sendToDetector(id, msg)
}

func (h *Hub) sendError(d *Detector, code, text string) {
	msg, err := protocol.NewErrorMessage(code, text)
	if err != nil {
		return
	}
	h.messagesSent.Add(1)
	if err := d.Send(msg); err != nil {
		h.logger.Warn("error write failed", "detector", d.ID, "error", err)
	}
}

// sendToDetector sends a message to a specific detector
func (h *Hub) sendToDetector(id string, msg *protocol.Message) error {
	d := h.GetDetector(id)
	if d == nil {
		return ErrSessionNotFound
	}

	h.messagesSent.Add(1)
	return d.Send(msg)
}

// Broadcast sends a message to all connected detectors
func (h *Hub) Broadcast(msg *protocol.Message) {
	for _, d := range h.GetDetectors() {
		h.messagesSent.Add(1)
		if err := d.Send(msg); err != nil {
			h.logger.Warn("broadcast error", "detector", d.ID, "error", err)
		}
	}
}

// GetDetector returns a detector connection by ID
func (h *Hub) GetDetector(id string) *Detector {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.detectors[id]
}

// GetDetectors returns all connected detectors
func (h *Hub) GetDetectors() []*Detector {
	h.mu.RLock()
	defer h.mu.RUnlock()

	detectors := make([]*Detector, 0, len(h.detectors))
	for _, d := range h.detectors {
		detectors = append(detectors, d)
	}
	return detectors
}

// DetectorCount returns the number of connected detectors
func (h *Hub) DetectorCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.detectors)
}

// Stats contains hub statistics
type Stats struct {
	DetectorCount    int    `json:"detector_count"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	FramesReceived   uint64 `json:"frames_received"`
	FramesDropped    uint64 `json:"frames_dropped"`
	FramesProcessed  uint64 `json:"frames_processed"`
}

// GetStats returns hub statistics
func (h *Hub) GetStats() Stats {
	return Stats{
		DetectorCount:    h.DetectorCount(),
		MessagesReceived: h.messagesReceived.Load(),
		MessagesSent:     h.messagesSent.Load(),
		FramesReceived:   h.framesReceived.Load(),
		FramesDropped:    h.framesDropped.Load(),
		FramesProcessed:  h.framesProcessed.Load(),
	}
}

// DetectorInfo contains info about a connected detector
type DetectorInfo struct {
	ID            string        `json:"id"`
	Connected     time.Time     `json:"connected"`
	LastSeen      time.Time     `json:"last_seen"`
	Frames        uint64        `json:"frames"`
	Dropped       uint64        `json:"dropped"`
	SessionActive bool          `json:"session_active"`
	FramesInState int           `json:"frames_in_state"`
	State         affect.State  `json:"state"`
	Last          affect.Result `json:"last"`
}

// GetDetectorInfos returns info about all connected detectors
func (h *Hub) GetDetectorInfos() []DetectorInfo {
	detectors := h.GetDetectors()

	infos := make([]DetectorInfo, 0, len(detectors))
	for _, d := range detectors {
		d.mu.Lock()
		info := DetectorInfo{
			ID:        d.ID,
			Connected: d.Connected,
			LastSeen:  d.lastSeen,
			Frames:    d.frames,
			Dropped:   d.dropped,
		}
		s := d.session
		d.mu.Unlock()

		info.SessionActive = !s.Ended()
		info.FramesInState = s.FramesInState()
		info.Last = s.Last()
		info.State = info.Last.State
		infos = append(infos, info)
	}
	return infos
}

// RegisterAPIRoutes registers API routes for detector and session control
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	detectors := api.Group("/detectors")

	// List connected detectors
	detectors.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"detectors": h.GetDetectorInfos(),
			"count":     h.DetectorCount(),
		})
	})

	// Get hub stats
	detectors.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})

	sessions := api.Group("/sessions")

	sessions.Post("/:id/begin", func(c *fiber.Ctx) error {
		if err := h.BeginSession(c.Params("id")); err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "begun"})
	})

	sessions.Post("/:id/end", func(c *fiber.Ctx) error {
		if err := h.EndSession(c.Params("id")); err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "ended"})
	})
}

// generateDetectorID generates a unique detector ID
func generateDetectorID() string {
	return uuid.NewString()
}
