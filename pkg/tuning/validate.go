package tuning

import (
	"fmt"

	"github.com/teslashibe/go-mirrormind/pkg/affect"
)

// Validate checks the configuration and returns a list of problems.
// An empty list means the configuration is usable.
func (c Config) Validate() []string {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Version != SchemaVersion {
		add("version %d is not supported (want %d)", c.Version, SchemaVersion)
	}

	for _, id := range affect.BlendshapeExpressions() {
		r, ok := c.Expressions.Rules[id]
		if !ok {
			add("expressions.rules: missing rule for %q", id)
			continue
		}
		if r.Threshold < 0 || r.Threshold >= 1 {
			add("expressions.rules.%s.threshold %v must be in [0,1)", id, r.Threshold)
		}
		if r.Scale <= 0 {
			add("expressions.rules.%s.scale must be positive", id)
		}
	}
	if w := c.Expressions.DroopLidWeight + c.Expressions.DroopSquintWeight; w <= 0 {
		add("expressions: droop weights must sum to a positive value")
	}

	g := c.Geometry
	if g.CornerAngleBaseline <= 0 || g.CornerAngleBaseline > 180 {
		add("geometry.corner_angle_baseline %v must be in (0,180]", g.CornerAngleBaseline)
	}
	if g.JawFullOpen <= 0 {
		add("geometry.jaw_full_open must be positive")
	}
	if g.BrowEyeBaseline <= 0 {
		add("geometry.brow_eye_baseline must be positive")
	}

	if c.ConflictThreshold < 0 || c.ConflictThreshold > 100 {
		add("conflict_threshold %v must be in [0,100]", c.ConflictThreshold)
	}

	e := c.Emotions
	if len(e.Weights) == 0 {
		add("emotions.weights is empty")
	}
	for emotion, weights := range e.Weights {
		for id, w := range weights {
			if w < 0 {
				add("emotions.weights.%s.%s is negative", emotion, id)
			}
		}
	}
	if e.MaxResults < 1 {
		add("emotions.max_results must be at least 1")
	}
	if e.SuppressFloor < 0 || e.SuppressFloor > 1 {
		add("emotions.suppress_floor %v must be in [0,1]", e.SuppressFloor)
	}
	if e.WeakSuppressFactor < 0 || e.WeakSuppressFactor > 1 {
		add("emotions.weak_suppress_factor %v must be in [0,1]", e.WeakSuppressFactor)
	}
	if e.BoostFactor < 1 {
		add("emotions.boost_factor %v must be >= 1", e.BoostFactor)
	}
	if e.NeutralConfidence <= 0 || e.NeutralConfidence > 100 {
		add("emotions.neutral_confidence %v must be in (0,100]", e.NeutralConfidence)
	}

	q := c.Quality
	if q.CenterMin >= q.CenterMax {
		add("quality.center_min must be below center_max")
	}
	if q.NoseMin >= q.NoseMax {
		add("quality.nose_min must be below nose_max")
	}
	if q.MinorScore > q.ClearScore {
		add("quality.minor_score must not exceed clear_score")
	}
	if q.DepthSamples < 1 {
		add("quality.depth_samples must be at least 1")
	}

	s := c.Smoothing
	if s.Alpha <= 0 || s.Alpha > 1 {
		add("smoothing.alpha %v must be in (0,1]", s.Alpha)
	}
	if s.StabilityFrames < 1 {
		add("smoothing.stability_frames must be at least 1")
	}
	if s.NeutralConfidence <= 0 || s.NeutralConfidence > 100 {
		add("smoothing.neutral_confidence %v must be in (0,100]", s.NeutralConfidence)
	}

	return problems
}
