// Package pipeline runs the per-frame analysis: expression scoring,
// conflict detection, quality assessment and emotion mapping, followed by
// per-session smoothing.
package pipeline

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teslashibe/go-mirrormind/internal/log"
	"github.com/teslashibe/go-mirrormind/pkg/affect"
	"github.com/teslashibe/go-mirrormind/pkg/emotions"
	"github.com/teslashibe/go-mirrormind/pkg/expression"
	"github.com/teslashibe/go-mirrormind/pkg/face"
	"github.com/teslashibe/go-mirrormind/pkg/lighting"
	"github.com/teslashibe/go-mirrormind/pkg/quality"
	"github.com/teslashibe/go-mirrormind/pkg/tuning"
)

// Frame is one detector output for the primary face.
type Frame struct {
	Landmarks   face.Landmarks
	Blendshapes face.Blendshapes
	Width       int
	Height      int
	Brightness  *lighting.Sample // optional
	Timestamp   time.Time        // zero means "now"
}

// Analysis is the unsmoothed outcome of one frame.
type Analysis struct {
	Path         string               `json:"path"` // blendshape, geometric or none
	Expressions  []affect.Expression  `json:"expressions"`
	Emotions     []affect.Emotion     `json:"emotions"`
	Conflict     *expression.Conflict `json:"conflict,omitempty"`
	Quality      quality.Assessment   `json:"quality"`
	State        affect.State         `json:"state"`
	StateReason  string               `json:"state_reason"`
	QualityScore float64              `json:"quality_score"`
}

// Pipeline holds the stateless stages built from one tuning config.
// It is safe for concurrent use; per-session state lives in Session.
type Pipeline struct {
	cfg      tuning.Config
	scorer   *expression.Scorer
	mapper   *emotions.Mapper
	assessor *quality.Assessor
	logger   *slog.Logger
	now      func() time.Time
}

// New validates cfg and builds the stages. A nil logger uses the global
// "pipeline" component logger.
func New(cfg tuning.Config, logger *slog.Logger) (*Pipeline, error) {
	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	cfg = cfg.Clone()
	return &Pipeline{
		cfg:      cfg,
		scorer:   expression.NewScorer(cfg),
		mapper:   emotions.NewMapper(cfg),
		assessor: quality.NewAssessor(cfg),
		logger:   log.Or(logger, "pipeline"),
		now:      time.Now,
	}, nil
}

// WithConfig builds a pipeline for cfg that logs where p does.
func (p *Pipeline) WithConfig(cfg tuning.Config) (*Pipeline, error) {
	return New(cfg, p.logger)
}

// Config returns a copy of the tuning config the pipeline was built with.
func (p *Pipeline) Config() tuning.Config {
	return p.cfg.Clone()
}

// Analyze runs every stateless stage over one frame.
func (p *Pipeline) Analyze(f Frame) Analysis {
	if len(f.Landmarks) == 0 {
		return Analysis{
			Path:        expression.Path(nil),
			State:       affect.StateLow,
			StateReason: quality.ReasonNoFace,
		}
	}

	in, ok := expression.InputFor(f.Blendshapes, f.Landmarks)
	var exprs []affect.Expression
	if ok {
		exprs = p.scorer.Score(in)
	}

	q := p.assessor.Assess(quality.Input{
		Landmarks:  f.Landmarks,
		Width:      f.Width,
		Height:     f.Height,
		Brightness: f.Brightness,
	})

	a := Analysis{
		Path:         expression.Path(in),
		Expressions:  exprs,
		Quality:      q,
		State:        q.State,
		StateReason:  q.Reason,
		QualityScore: q.Score,
	}

	if c, found := expression.DetectConflicts(exprs, p.cfg.ConflictThreshold); found {
		a.Conflict = &c
		if q.State == affect.StateClear {
			a.State, a.StateReason = affect.StateMixed, c.Reason
		}
	}

	if !ok {
		a.State = affect.StateLow
		if q.State != affect.StateLow {
			a.StateReason = quality.ReasonIncomplete
		}
	}

	a.Emotions = p.mapper.Map(exprs)
	return a
}
