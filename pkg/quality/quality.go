// Package quality scores how usable a frame is for reading expressions:
// face size, framing, head rotation and lighting.
package quality

import (
	"strings"

	"github.com/teslashibe/go-mirrormind/pkg/affect"
	"github.com/teslashibe/go-mirrormind/pkg/face"
	"github.com/teslashibe/go-mirrormind/pkg/lighting"
	"github.com/teslashibe/go-mirrormind/pkg/tuning"
)

// Reasons reported without penalty arithmetic.
const (
	ReasonNoFace     = "No face detected"
	ReasonIncomplete = "Face landmarks incomplete"
	ReasonGood       = "Good visibility"
	ReasonAcceptable = "Acceptable visibility"
)

// Input is one frame's data for assessment. Brightness is optional; when
// nil the lighting penalties are skipped.
type Input struct {
	Landmarks  face.Landmarks
	Width      int
	Height     int
	Brightness *lighting.Sample
}

// Assessment is the usability verdict for one frame.
type Assessment struct {
	Score  float64      `json:"score"` // 0-100
	State  affect.State `json:"state"`
	Reason string       `json:"reason"`
	Issues []string     `json:"issues,omitempty"`
}

// Assessor applies the configured penalties.
type Assessor struct {
	cfg tuning.QualityConfig
}

// NewAssessor creates an assessor from the quality section of cfg.
func NewAssessor(cfg tuning.Config) *Assessor {
	return &Assessor{cfg: cfg.Quality}
}

// Assess scores a frame. Starting from 100, each triggered condition
// subtracts its penalty; the score floors at 0.
func (a *Assessor) Assess(in Input) Assessment {
	l := in.Landmarks
	if len(l) == 0 {
		return Assessment{Score: 0, State: affect.StateLow, Reason: ReasonNoFace}
	}
	if !l.HasOutline() {
		return Assessment{Score: 0, State: affect.StateLow, Reason: ReasonIncomplete}
	}

	c := a.cfg
	score := 100.0
	var issues []string
	penalize := func(amount float64, issue string) {
		score -= amount
		issues = append(issues, issue)
	}

	left, right := l[face.LeftCheek], l[face.RightCheek]
	width := right.X - left.X
	if width < 0 {
		width = -width
	}
	switch {
	case width < c.FarWidth:
		penalize(c.FarPenalty, "face too far")
	case width < c.SmallWidth:
		penalize(c.SmallPenalty, "face small")
	}

	if cx := (left.X + right.X) / 2; cx < c.CenterMin || cx > c.CenterMax {
		penalize(c.HorizontalPenalty, "face off-center")
	}

	if cy := (l[face.Chin].Y + l[face.Forehead].Y) / 2; cy < c.CenterMin || cy > c.CenterMax {
		penalize(c.VerticalPenalty, "face too high/low")
	}

	if width > 0 {
		if nose := (l[face.NoseTip].X - left.X) / width; nose < c.NoseMin || nose > c.NoseMax {
			penalize(c.RotationPenalty, "head turned too much")
		}
	}

	if depthVariance(l, c.DepthSamples) > c.DepthVarianceMax {
		penalize(c.DepthPenalty, "lighting may be uneven")
	}

	if b := in.Brightness; b != nil {
		switch {
		case b.Luma < c.DarkLuma:
			penalize(c.DarkPenalty, "very dark")
		case b.Luma < c.DimLuma:
			penalize(c.DimPenalty, "dim lighting")
		case b.Luma > c.BrightLuma:
			penalize(c.BrightPenalty, "very bright/overexposed")
		}
	}

	if score < 0 {
		score = 0
	}

	out := Assessment{Score: score, Issues: issues}
	switch {
	case score >= c.ClearScore:
		out.State, out.Reason = affect.StateClear, ReasonGood
	case score >= c.MinorScore:
		out.State = affect.StateClear
		if len(issues) > 0 {
			out.Reason = "Minor issues: " + strings.Join(issues, ", ")
		} else {
			out.Reason = ReasonAcceptable
		}
	default:
		out.State = affect.StateLow
		out.Reason = "Low visibility: " + strings.Join(issues, ", ")
	}
	return out
}

// depthVariance is the population variance of z over the first n points.
func depthVariance(l face.Landmarks, n int) float64 {
	if n > len(l) {
		n = len(l)
	}
	if n == 0 {
		return 0
	}
	var mean float64
	for _, p := range l[:n] {
		mean += p.Z
	}
	mean /= float64(n)

	var v float64
	for _, p := range l[:n] {
		d := p.Z - mean
		v += d * d
	}
	return v / float64(n)
}
