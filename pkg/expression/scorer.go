package expression

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/teslashibe/go-mirrormind/pkg/affect"
	"github.com/teslashibe/go-mirrormind/pkg/face"
	"github.com/teslashibe/go-mirrormind/pkg/tuning"
)

// Scorer maps one frame's input to expressions. It holds no history.
type Scorer struct {
	rules    tuning.ExpressionConfig
	geometry tuning.GeometryConfig
}

// NewScorer creates a scorer from the expression and geometry sections of cfg.
func NewScorer(cfg tuning.Config) *Scorer {
	c := cfg.Clone()
	return &Scorer{rules: c.Expressions, geometry: c.Geometry}
}

// Score returns expressions above their activation threshold, strongest first.
func (s *Scorer) Score(in Input) []affect.Expression {
	var out []affect.Expression
	switch v := in.(type) {
	case BlendshapeInput:
		out = s.scoreBlendshapes(v.Scores)
	case GeometricInput:
		out = s.scoreGeometry(v.Features)
	default:
		return nil
	}
	Sort(out)
	return out
}

// Sort orders expressions by strength descending, then by ID.
func Sort(exprs []affect.Expression) {
	slices.SortStableFunc(exprs, func(a, b affect.Expression) int {
		if c := cmp.Compare(b.Strength, a.Strength); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func (s *Scorer) scoreBlendshapes(bs face.Blendshapes) []affect.Expression {
	var out []affect.Expression

	// emit scores a single averaged or max signal against its rule.
	emit := func(id string, signal float64, evidence string) {
		r, ok := s.rules.Rules[id]
		if !ok || signal <= r.Threshold {
			return
		}
		out = append(out, newExpression(id, signal*r.Scale, fmt.Sprintf(evidence, pct(signal))))
	}

	smileL, smileR := bs.Get("mouthSmileLeft"), bs.Get("mouthSmileRight")
	emit(affect.Smile, (smileL+smileR)/2, "Mouth corners lifted (%d%%)")

	if r, ok := s.rules.Rules[affect.Smirk]; ok {
		diff := math.Abs(smileL - smileR)
		if diff > r.Threshold && (smileL > s.rules.SmirkSideMin || smileR > s.rules.SmirkSideMin) {
			side := "right"
			if smileL > smileR {
				side = "left"
			}
			out = append(out, newExpression(affect.Smirk, diff*r.Scale,
				fmt.Sprintf("Asymmetrical smile - %s corner higher", side)))
		}
	}

	emit(affect.Frown, bs.Mean("mouthFrownLeft", "mouthFrownRight"), "Mouth corners down (%d%%)")
	emit(affect.MouthOpen, bs.Get("jawOpen"), "Jaw dropped (%d%%)")
	emit(affect.LipPress, bs.Mean("mouthPressLeft", "mouthPressRight"), "Lips pressed together (%d%%)")
	emit(affect.LipStretch, bs.Mean("mouthStretchLeft", "mouthStretchRight"), "Lips stretched tightly (%d%%)")
	emit(affect.InnerBrowRaise, bs.Get("browInnerUp"),
		"Inner eyebrows raised (%d%%) - often signals sadness or concern")

	if r, ok := s.rules.Rules[affect.DroopingEyelids]; ok {
		squint := bs.Mean("eyeSquintLeft", "eyeSquintRight")
		lid := 1 - bs.Mean("eyeWideLeft", "eyeWideRight")
		droop := lid*s.rules.DroopLidWeight + squint*s.rules.DroopSquintWeight
		if droop > r.Threshold && squint > s.rules.DroopSquintMin {
			out = append(out, newExpression(affect.DroopingEyelids, droop*r.Scale,
				fmt.Sprintf("Eyelids lowered/heavy (%d%%) - may indicate sadness or fatigue", pct(droop))))
		}
	}

	emit(affect.MouthTension, bs.Mean("mouthDimpleLeft", "mouthDimpleRight"),
		"Mouth corners pulled inward (%d%%) - may indicate suppressed emotion")
	emit(affect.LipPurse, bs.Get("mouthPucker"), "Lips puckered (%d%%)")
	emit(affect.BrowRaise, bs.Mean("browOuterUpLeft", "browOuterUpRight", "browInnerUp"), "Brows elevated (%d%%)")
	emit(affect.BrowFurrow, bs.Max("browDownLeft", "browDownRight"), "Brows drawn together (%d%%)")
	emit(affect.Squint, bs.Mean("eyeSquintLeft", "eyeSquintRight"), "Eyes narrowed (%d%%)")
	emit(affect.WideEyes, bs.Mean("eyeWideLeft", "eyeWideRight"), "Eyes widened (%d%%)")
	emit(affect.NoseWrinkle, bs.Max("noseSneerLeft", "noseSneerRight"), "Nose scrunched (%d%%)")

	return out
}

func (s *Scorer) scoreGeometry(f face.Features) []affect.Expression {
	g := s.geometry
	var out []affect.Expression

	if f.MouthCornerAngle < g.CornerAngleBaseline-g.SmileMargin {
		diff := g.CornerAngleBaseline - f.MouthCornerAngle
		out = append(out, newExpression(affect.Smile, diff*g.SmileScale, "Mouth corners lifted"))
	}

	if f.Symmetry < g.SymmetryMin {
		out = append(out, newExpression(affect.Smirk, (1-f.Symmetry)*g.SmirkScale, "Asymmetrical mouth position"))
	}

	if f.JawOpenness > g.JawBaseline*g.JawFactor {
		out = append(out, newExpression(affect.MouthOpen, f.JawOpenness/g.JawFullOpen*100, "Jaw dropped"))
	}

	if f.BrowToEyeDistance > g.BrowEyeBaseline*g.BrowRaiseFactor {
		rise := (f.BrowToEyeDistance - g.BrowEyeBaseline) / g.BrowEyeBaseline
		out = append(out, newExpression(affect.BrowRaise, rise*g.BrowScale, "Brows elevated"))
	}

	if tilt := math.Abs(f.HeadTilt); tilt > g.TiltMin {
		direction := "left"
		if f.HeadTilt > 0 {
			direction = "right"
		}
		out = append(out, newExpression(affect.HeadTilt, tilt*g.TiltScale, "Head tilted "+direction))
	}

	return out
}

func newExpression(id string, strength float64, evidence string) affect.Expression {
	return affect.Expression{
		ID:       id,
		Name:     affect.ExpressionName(id),
		Strength: affect.Clamp(strength),
		Evidence: evidence,
	}
}

// pct renders a 0-1 activation as a whole percentage.
func pct(v float64) int {
	return int(math.Round(v * 100))
}
