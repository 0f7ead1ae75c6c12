package web

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-mirrormind/pkg/affect"
	"github.com/teslashibe/go-mirrormind/pkg/emotions"
	"github.com/teslashibe/go-mirrormind/pkg/hub"
	"github.com/teslashibe/go-mirrormind/pkg/timeline"
	"github.com/teslashibe/go-mirrormind/pkg/tuning"
)

func describe(res affect.Result) string {
	return emotions.Describe(res.TopEmotion(), res.Expressions)
}

// Status is the dashboard's summary of the running system.
type Status struct {
	Latest      Latest `json:"latest"`
	Results     uint64 `json:"results"`
	Spoken      uint64 `json:"announcements"`
	Detectors   int    `json:"detectors"`
	Subscribers int    `json:"subscribers"`
	Entries     int    `json:"timeline_entries"`
}

// handleHealth is the liveness probe
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"version":   s.opts.Version,
		"detectors": s.ingest.DetectorCount(),
	})
}

// handleMetrics exposes counters in the Prometheus text format
func (s *Server) handleMetrics(c *fiber.Ctx) error {
	stats := s.ingest.GetStats()
	s.mu.RLock()
	spoken := s.spoken
	s.mu.RUnlock()

	return c.SendString(fmt.Sprintf(`# HELP mirrormind_detectors Connected detector count
# TYPE mirrormind_detectors gauge
mirrormind_detectors %d

# HELP mirrormind_frames_received Total landmark frames received
# TYPE mirrormind_frames_received counter
mirrormind_frames_received %d

# HELP mirrormind_frames_processed Total frames analysed
# TYPE mirrormind_frames_processed counter
mirrormind_frames_processed %d

# HELP mirrormind_frames_dropped Frames dropped by the cadence limit
# TYPE mirrormind_frames_dropped counter
mirrormind_frames_dropped %d

# HELP mirrormind_announcements Total spoken announcements
# TYPE mirrormind_announcements counter
mirrormind_announcements %d

# HELP mirrormind_broadcasts_dropped Dashboard broadcasts dropped on a full queue
# TYPE mirrormind_broadcasts_dropped counter
mirrormind_broadcasts_dropped %d
`, stats.DetectorCount, stats.FramesReceived, stats.FramesProcessed, stats.FramesDropped,
		spoken, s.resultHub.Dropped()+s.announceHub.Dropped()))
}

// handleStatus returns the latest result and counters
func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.mu.RLock()
	st := Status{
		Latest:  s.latest,
		Results: s.results,
		Spoken:  s.spoken,
	}
	s.mu.RUnlock()

	st.Detectors = s.ingest.DetectorCount()
	st.Subscribers = s.resultHub.ClientCount() + s.announceHub.ClientCount()
	st.Entries = len(s.timeline.Entries())
	return c.JSON(st)
}

// handleTimeline returns the recorded history, oldest first
func (s *Server) handleTimeline(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"entries": s.timeline.Entries(),
	})
}

// handleClearTimeline starts a new timeline
func (s *Server) handleClearTimeline(c *fiber.Ctx) error {
	s.timeline.Start()
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleSummary(c *fiber.Ctx) error {
	sum, err := s.timeline.Summary()
	if err != nil {
		return emptySession(c, err)
	}
	return c.JSON(sum)
}

// handleExport downloads the session report
func (s *Server) handleExport(c *fiber.Ctx) error {
	data, err := s.timeline.Export()
	if err != nil {
		return emptySession(c, err)
	}

	name := fmt.Sprintf("mirrormind-session-%s.json", time.Now().Format("2006-01-02"))
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Send(data)
}

func emptySession(c *fiber.Ctx, err error) error {
	if errors.Is(err, timeline.ErrEmptySession) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

// handleGetTuning returns the configuration new sessions use
func (s *Server) handleGetTuning(c *fiber.Ctx) error {
	return c.JSON(s.ingest.Pipeline().Config())
}

// handlePutTuning replaces the tuning for new sessions. The body is YAML
// or JSON; omitted fields keep their defaults.
func (s *Server) handlePutTuning(c *fiber.Ctx) error {
	cfg, err := tuning.Parse(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return s.applyTuning(c, cfg, "custom")
}

// handleListPresets returns the named tuning presets
func (s *Server) handleListPresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"presets": tuning.PresetNames()})
}

// handleApplyPreset switches new sessions to a named preset
func (s *Server) handleApplyPreset(c *fiber.Ctx) error {
	name := c.Params("name")
	cfg, err := tuning.Preset(name)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return s.applyTuning(c, cfg, name)
}

func (s *Server) applyTuning(c *fiber.Ctx, cfg tuning.Config, source string) error {
	p, err := s.ingest.Pipeline().WithConfig(cfg)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	persisted := false
	if s.opts.TuningFile != "" {
		if err := tuning.Save(s.opts.TuningFile, cfg); err != nil {
			s.logger.Error("tuning save failed", "file", s.opts.TuningFile, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		persisted = true
	}

	s.ingest.SetPipeline(p)
	s.logger.Info("tuning updated", "source", source, "persisted", persisted)

	return c.JSON(fiber.Map{
		"status":    "applied",
		"source":    source,
		"persisted": persisted,
		"tuning":    cfg,
	})
}

// handleGetAnnounce returns the voice settings
func (s *Server) handleGetAnnounce(c *fiber.Ctx) error {
	return c.JSON(s.announcer.Settings())
}

// handlePutAnnounce replaces the voice settings. Omitted fields keep
// their current values.
func (s *Server) handlePutAnnounce(c *fiber.Ctx) error {
	settings := s.announcer.Settings()
	if err := c.BodyParser(&settings); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if problems := settings.Validate(); len(problems) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": strings.Join(problems, "; "),
		})
	}

	s.announcer.SetSettings(settings)
	return c.JSON(settings)
}

// handleResultsWS streams every smoothed result
func (s *Server) handleResultsWS(c *websocket.Conn) {
	hub.NewClient(s.resultHub, c).Run()
}

// handleAnnouncementsWS streams phrases for a speech engine
func (s *Server) handleAnnouncementsWS(c *websocket.Conn) {
	hub.NewClient(s.announceHub, c).Run()
}
