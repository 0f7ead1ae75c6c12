package pipeline

import (
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-mirrormind/pkg/affect"
	"github.com/teslashibe/go-mirrormind/pkg/smoothing"
)

// Session is one viewer's stream of frames. It owns the smoothing state,
// so results from different sessions never influence each other.
type Session struct {
	ID string

	p      *Pipeline
	logger *slog.Logger

	mu      sync.Mutex
	engine  *smoothing.Engine
	ended   bool
	frames  uint64
	started time.Time
	raw     Analysis
	last    affect.Result
}

// NewSession creates a session. It is ready to Process immediately.
func (p *Pipeline) NewSession(id string) *Session {
	return &Session{
		ID:      id,
		p:       p,
		logger:  p.logger.With("session", id),
		engine:  smoothing.New(p.cfg.Smoothing),
		started: p.now(),
	}
}

// Pipeline returns the pipeline the session was created from.
func (s *Session) Pipeline() *Pipeline {
	return s.p
}

// Begin clears the smoothing state and (re)opens the session.
func (s *Session) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.Reset()
	s.ended = false
	s.frames = 0
	s.started = s.p.now()
	s.raw = Analysis{}
	s.last = affect.Result{}
	s.logger.Info("session begin")
}

// End discards the smoothing state. Further frames return ErrSessionEnded
// until Begin is called again.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return
	}
	s.engine.Reset()
	s.ended = true
	s.logger.Info("session end", "frames", s.frames, "duration", s.p.now().Sub(s.started).Round(time.Millisecond))
}

// Ended reports whether End has been called since the last Begin.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// Process analyzes one frame and returns the smoothed result.
func (s *Session) Process(f Frame) (affect.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return affect.Result{}, ErrSessionEnded
	}

	ts := f.Timestamp
	if ts.IsZero() {
		ts = s.p.now()
	}

	a := s.p.Analyze(f)
	prev := s.engine.Locked()

	res := s.engine.Update(smoothing.Input{
		Expressions:  a.Expressions,
		Emotions:     a.Emotions,
		State:        a.State,
		StateReason:  a.StateReason,
		QualityScore: a.QualityScore,
		Timestamp:    ts,
	})

	s.frames++
	if s.frames > 1 && res.State != prev {
		s.logger.Info("state changed", "from", prev, "to", res.State, "reason", res.StateReason)
	}
	s.logger.Debug("frame",
		"path", a.Path,
		"raw_state", a.State,
		"expressions", len(res.Expressions),
		"quality", a.QualityScore)

	s.raw = a
	s.last = res
	return res.Clone(), nil
}

// Raw returns the unsmoothed analysis of the last processed frame.
func (s *Session) Raw() Analysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw
}

// Last returns the most recent smoothed result.
func (s *Session) Last() affect.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last.Clone()
}

// Frames returns how many frames were processed since Begin.
func (s *Session) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// FramesInState returns frames since the reported state last changed.
func (s *Session) FramesInState() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.FramesInState()
}
