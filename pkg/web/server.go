// Package web serves the MirrorMind dashboard: REST endpoints over the
// session timeline and tuning, and websocket feeds of results and spoken
// announcements.
package web

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-mirrormind/internal/log"
	"github.com/teslashibe/go-mirrormind/pkg/affect"
	"github.com/teslashibe/go-mirrormind/pkg/announce"
	"github.com/teslashibe/go-mirrormind/pkg/hub"
	"github.com/teslashibe/go-mirrormind/pkg/ingest"
	"github.com/teslashibe/go-mirrormind/pkg/protocol"
	"github.com/teslashibe/go-mirrormind/pkg/timeline"
)

// Options configures optional server features.
type Options struct {
	// StaticDir is served at / when set.
	StaticDir string
	// TuningFile receives tuning saved through PUT /api/tuning.
	TuningFile string
	// Version is reported by /health.
	Version string
}

// Latest is the most recent result and where it came from.
type Latest struct {
	Detector    string        `json:"detector,omitempty"`
	FrameID     uint64        `json:"frame_id,omitempty"`
	Result      affect.Result `json:"result"`
	Description string        `json:"description,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Server is the web dashboard server
type Server struct {
	app    *fiber.App
	addr   string
	opts   Options
	logger *slog.Logger

	ingest    *ingest.Hub
	timeline  *timeline.Recorder
	announcer *announce.Announcer

	// Hubs for websocket broadcast
	resultHub   *hub.Hub
	announceHub *hub.Hub

	mu      sync.RWMutex
	latest  Latest
	results uint64
	spoken  uint64
}

// NewServer creates the dashboard server and subscribes it to the ingest
// hub's results and session events.
func NewServer(addr string, in *ingest.Hub, rec *timeline.Recorder, ann *announce.Announcer, opts Options, logger *slog.Logger) *Server {
	logger = log.Or(logger, "web")
	s := &Server{
		addr:        addr,
		opts:        opts,
		logger:      logger,
		ingest:      in,
		timeline:    rec,
		announcer:   ann,
		resultHub:   hub.New("results", logger, hub.WithRetain()),
		announceHub: hub.New("announcements", logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "MirrorMind",
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	app.Get("/health", s.handleHealth)
	app.Get("/metrics", s.handleMetrics)

	// Detector ingest
	in.RegisterRoutes(app)

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/timeline", s.handleTimeline)
	api.Delete("/timeline", s.handleClearTimeline)
	api.Get("/summary", s.handleSummary)
	api.Get("/export", s.handleExport)
	api.Get("/tuning", s.handleGetTuning)
	api.Put("/tuning", s.handlePutTuning)
	api.Get("/presets", s.handleListPresets)
	api.Post("/presets/:name", s.handleApplyPreset)
	api.Get("/announce", s.handleGetAnnounce)
	api.Put("/announce", s.handlePutAnnounce)
	in.RegisterAPIRoutes(api)

	// WebSocket upgrade middleware
	app.Use("/ws/results", upgradeOnly)
	app.Use("/ws/announcements", upgradeOnly)

	// WebSocket routes
	app.Get("/ws/results", websocket.New(s.handleResultsWS))
	app.Get("/ws/announcements", websocket.New(s.handleAnnouncementsWS))

	// Static files
	if opts.StaticDir != "" {
		app.Static("/", opts.StaticDir)
	}

	in.OnResult(s.HandleResult)
	in.OnSession(s.HandleSession)

	s.app = app
	return s
}

func upgradeOnly(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the broadcast hubs and serves until Shutdown. The hubs stop
// when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("dashboard listening", "addr", s.addr)

	go s.resultHub.Run(ctx)
	go s.announceHub.Run(ctx)

	return s.app.Listen(s.addr)
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// HandleResult records a smoothed result, broadcasts it, and broadcasts
// any announcement it triggers.
func (s *Server) HandleResult(detectorID string, frameID uint64, res affect.Result) {
	latest := Latest{
		Detector:    detectorID,
		FrameID:     frameID,
		Result:      res,
		Description: describe(res),
		UpdatedAt:   time.Now(),
	}

	s.mu.Lock()
	s.latest = latest
	s.results++
	s.mu.Unlock()

	s.timeline.Add(res)

	if msg, err := protocol.NewResultMessage(detectorID, frameID, res); err == nil {
		s.resultHub.BroadcastMessage(msg)
	}

	ann, ok := s.announcer.Observe(res)
	if !ok {
		return
	}
	s.mu.Lock()
	s.spoken++
	s.mu.Unlock()

	s.logger.Debug("announce", "detector", detectorID, "kind", ann.Kind, "text", ann.Text)
	if msg, err := protocol.NewAnnounceMessage(detectorID, string(ann.Kind), ann.Text, ann.State); err == nil {
		s.announceHub.BroadcastMessage(msg)
	}
}

// HandleSession starts a fresh timeline and announcer when a detector
// session begins.
func (s *Server) HandleSession(detectorID string, active bool) {
	if !active {
		return
	}
	s.timeline.Start()
	s.announcer.Reset()
	s.logger.Info("timeline started", "detector", detectorID)
}

// Latest returns the most recent result.
func (s *Server) Latest() Latest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l := s.latest
	l.Result = l.Result.Clone()
	return l
}
