// Package tuning holds every threshold, weight and penalty the detection
// pipeline uses, as one versioned configuration.
package tuning

import (
	"fmt"

	"github.com/teslashibe/go-mirrormind/pkg/affect"
)

// SchemaVersion is the configuration layout version this build understands.
const SchemaVersion = 1

// Config holds all tunable parameters for the detection pipeline.
type Config struct {
	Version int `yaml:"version" json:"version"`

	Expressions       ExpressionConfig `yaml:"expressions" json:"expressions"`
	Geometry          GeometryConfig   `yaml:"geometry" json:"geometry"`
	ConflictThreshold float64          `yaml:"conflict_threshold" json:"conflict_threshold"` // expressions must exceed this to conflict
	Emotions          EmotionConfig    `yaml:"emotions" json:"emotions"`
	Quality           QualityConfig    `yaml:"quality" json:"quality"`
	Smoothing         SmoothingConfig  `yaml:"smoothing" json:"smoothing"`
}

// Rule is an activation threshold (0-1) and the factor mapping it to 0-100.
type Rule struct {
	Threshold float64 `yaml:"threshold" json:"threshold"`
	Scale     float64 `yaml:"scale" json:"scale"`
}

// ExpressionConfig parameterizes blendshape scoring.
type ExpressionConfig struct {
	Rules map[string]Rule `yaml:"rules" json:"rules"`

	SmirkSideMin      float64 `yaml:"smirk_side_min" json:"smirk_side_min"`           // one corner must exceed this
	DroopLidWeight    float64 `yaml:"droop_lid_weight" json:"droop_lid_weight"`       // weight of (1 - eye wide)
	DroopSquintWeight float64 `yaml:"droop_squint_weight" json:"droop_squint_weight"` // weight of squint
	DroopSquintMin    float64 `yaml:"droop_squint_min" json:"droop_squint_min"`
}

// GeometryConfig holds the neutral-face baselines for the landmark fallback.
type GeometryConfig struct {
	CornerAngleBaseline float64 `yaml:"corner_angle_baseline" json:"corner_angle_baseline"` // degrees
	SmileMargin         float64 `yaml:"smile_margin" json:"smile_margin"`                   // degrees below baseline
	SmileScale          float64 `yaml:"smile_scale" json:"smile_scale"`

	SymmetryMin float64 `yaml:"symmetry_min" json:"symmetry_min"`
	SmirkScale  float64 `yaml:"smirk_scale" json:"smirk_scale"`

	JawBaseline float64 `yaml:"jaw_baseline" json:"jaw_baseline"`
	JawFactor   float64 `yaml:"jaw_factor" json:"jaw_factor"`       // open when jaw > baseline * factor
	JawFullOpen float64 `yaml:"jaw_full_open" json:"jaw_full_open"` // jaw ratio that scores 100

	BrowEyeBaseline float64 `yaml:"brow_eye_baseline" json:"brow_eye_baseline"`
	BrowRaiseFactor float64 `yaml:"brow_raise_factor" json:"brow_raise_factor"`
	BrowScale       float64 `yaml:"brow_scale" json:"brow_scale"`

	TiltMin   float64 `yaml:"tilt_min" json:"tilt_min"` // degrees
	TiltScale float64 `yaml:"tilt_scale" json:"tilt_scale"`
}

// EmotionConfig parameterizes the expression-to-emotion mapping.
type EmotionConfig struct {
	// Weights maps emotion name to expression ID to weight.
	Weights map[string]map[string]float64 `yaml:"weights" json:"weights"`

	SadIndicators []string `yaml:"sad_indicators" json:"sad_indicators"`
	IndicatorMin  float64  `yaml:"indicator_min" json:"indicator_min"` // indicator counts when strength exceeds this

	StrongSuppressCount  int     `yaml:"strong_suppress_count" json:"strong_suppress_count"`
	StrongSuppressSmile  float64 `yaml:"strong_suppress_smile" json:"strong_suppress_smile"` // smile below this is suppressible
	SuppressPerIndicator float64 `yaml:"suppress_per_indicator" json:"suppress_per_indicator"`
	SuppressFloor        float64 `yaml:"suppress_floor" json:"suppress_floor"`

	WeakSuppressCount  int     `yaml:"weak_suppress_count" json:"weak_suppress_count"`
	WeakSuppressSmile  float64 `yaml:"weak_suppress_smile" json:"weak_suppress_smile"`
	WeakSuppressFactor float64 `yaml:"weak_suppress_factor" json:"weak_suppress_factor"`

	BoostCount  int     `yaml:"boost_count" json:"boost_count"`
	BoostFactor float64 `yaml:"boost_factor" json:"boost_factor"`

	MinConfidence     float64 `yaml:"min_confidence" json:"min_confidence"`
	MaxResults        int     `yaml:"max_results" json:"max_results"`
	NeutralConfidence float64 `yaml:"neutral_confidence" json:"neutral_confidence"`
}

// QualityConfig holds frame usability penalties. Widths and positions are
// fractions of the frame; luma is 0-255.
type QualityConfig struct {
	FarWidth     float64 `yaml:"far_width" json:"far_width"`
	FarPenalty   float64 `yaml:"far_penalty" json:"far_penalty"`
	SmallWidth   float64 `yaml:"small_width" json:"small_width"`
	SmallPenalty float64 `yaml:"small_penalty" json:"small_penalty"`

	CenterMin         float64 `yaml:"center_min" json:"center_min"`
	CenterMax         float64 `yaml:"center_max" json:"center_max"`
	HorizontalPenalty float64 `yaml:"horizontal_penalty" json:"horizontal_penalty"`
	VerticalPenalty   float64 `yaml:"vertical_penalty" json:"vertical_penalty"`

	NoseMin         float64 `yaml:"nose_min" json:"nose_min"`
	NoseMax         float64 `yaml:"nose_max" json:"nose_max"`
	RotationPenalty float64 `yaml:"rotation_penalty" json:"rotation_penalty"`

	DepthSamples     int     `yaml:"depth_samples" json:"depth_samples"`
	DepthVarianceMax float64 `yaml:"depth_variance_max" json:"depth_variance_max"`
	DepthPenalty     float64 `yaml:"depth_penalty" json:"depth_penalty"`

	DarkLuma      float64 `yaml:"dark_luma" json:"dark_luma"`
	DarkPenalty   float64 `yaml:"dark_penalty" json:"dark_penalty"`
	DimLuma       float64 `yaml:"dim_luma" json:"dim_luma"`
	DimPenalty    float64 `yaml:"dim_penalty" json:"dim_penalty"`
	BrightLuma    float64 `yaml:"bright_luma" json:"bright_luma"`
	BrightPenalty float64 `yaml:"bright_penalty" json:"bright_penalty"`

	ClearScore float64 `yaml:"clear_score" json:"clear_score"` // at or above: good visibility
	MinorScore float64 `yaml:"minor_score" json:"minor_score"` // at or above: usable with issues
}

// SmoothingConfig parameterizes the per-session EMA and state lock.
type SmoothingConfig struct {
	Alpha           float64 `yaml:"alpha" json:"alpha"`
	StabilityFrames int     `yaml:"stability_frames" json:"stability_frames"`
	ChangeDelta     float64 `yaml:"change_delta" json:"change_delta"`

	ExpressionFloor  float64 `yaml:"expression_floor" json:"expression_floor"`
	EmotionFloor     float64 `yaml:"emotion_floor" json:"emotion_floor"`
	ExpressionMinRaw float64 `yaml:"expression_min_raw" json:"expression_min_raw"`
	EmotionMinRaw    float64 `yaml:"emotion_min_raw" json:"emotion_min_raw"`
	DisplayFloor     float64 `yaml:"display_floor" json:"display_floor"`

	NeutralConfidence float64 `yaml:"neutral_confidence" json:"neutral_confidence"`
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() Config {
	return Config{
		Version: SchemaVersion,

		Expressions: ExpressionConfig{
			Rules: map[string]Rule{
				affect.Smile:           {Threshold: 0.10, Scale: 150},
				affect.Smirk:           {Threshold: 0.15, Scale: 200},
				affect.Frown:           {Threshold: 0.10, Scale: 150},
				affect.MouthOpen:       {Threshold: 0.15, Scale: 120},
				affect.LipPress:        {Threshold: 0.15, Scale: 130},
				affect.LipStretch:      {Threshold: 0.15, Scale: 140},
				affect.InnerBrowRaise:  {Threshold: 0.12, Scale: 150},
				affect.DroopingEyelids: {Threshold: 0.35, Scale: 120},
				affect.MouthTension:    {Threshold: 0.15, Scale: 140},
				affect.LipPurse:        {Threshold: 0.20, Scale: 130},
				affect.BrowRaise:       {Threshold: 0.15, Scale: 150},
				affect.BrowFurrow:      {Threshold: 0.15, Scale: 150},
				affect.Squint:          {Threshold: 0.20, Scale: 130},
				affect.WideEyes:        {Threshold: 0.15, Scale: 150},
				affect.NoseWrinkle:     {Threshold: 0.15, Scale: 150},
			},
			SmirkSideMin:      0.2,
			DroopLidWeight:    0.4,
			DroopSquintWeight: 0.6,
			DroopSquintMin:    0.15,
		},

		Geometry: GeometryConfig{
			CornerAngleBaseline: 160,
			SmileMargin:         5,
			SmileScale:          5,
			SymmetryMin:         0.85,
			SmirkScale:          200,
			JawBaseline:         0.05,
			JawFactor:           2,
			JawFullOpen:         0.2,
			BrowEyeBaseline:     0.04,
			BrowRaiseFactor:     1.2,
			BrowScale:           200,
			TiltMin:             5,
			TiltScale:           3,
		},

		ConflictThreshold: 40,

		Emotions: EmotionConfig{
			Weights: map[string]map[string]float64{
				affect.Happy: {
					affect.Smile:  0.7,
					affect.Squint: 0.3,
				},
				affect.Surprised: {
					affect.BrowRaise: 0.35,
					affect.WideEyes:  0.35,
					affect.MouthOpen: 0.30,
				},
				affect.Sad: {
					affect.InnerBrowRaise:  0.25,
					affect.DroopingEyelids: 0.20,
					affect.Frown:           0.20,
					affect.LipPress:        0.10,
					affect.LipStretch:      0.10,
					affect.MouthTension:    0.10,
					affect.BrowFurrow:      0.05,
				},
			},
			SadIndicators: []string{
				affect.InnerBrowRaise, affect.DroopingEyelids, affect.Frown, affect.LipPress,
				affect.LipStretch, affect.MouthTension, affect.BrowFurrow,
			},
			IndicatorMin:         10,
			StrongSuppressCount:  2,
			StrongSuppressSmile:  60,
			SuppressPerIndicator: 0.25,
			SuppressFloor:        0.1,
			WeakSuppressCount:    1,
			WeakSuppressSmile:    35,
			WeakSuppressFactor:   0.4,
			BoostCount:           3,
			BoostFactor:          1.3,
			MinConfidence:        25,
			MaxResults:           3,
			NeutralConfidence:    60,
		},

		Quality: QualityConfig{
			FarWidth:          0.15,
			FarPenalty:        30,
			SmallWidth:        0.25,
			SmallPenalty:      15,
			CenterMin:         0.2,
			CenterMax:         0.8,
			HorizontalPenalty: 20,
			VerticalPenalty:   15,
			NoseMin:           0.3,
			NoseMax:           0.7,
			RotationPenalty:   25,
			DepthSamples:      50,
			DepthVarianceMax:  0.01,
			DepthPenalty:      10,
			DarkLuma:          50,
			DarkPenalty:       25,
			DimLuma:           80,
			DimPenalty:        10,
			BrightLuma:        220,
			BrightPenalty:     15,
			ClearScore:        70,
			MinorScore:        40,
		},

		Smoothing: SmoothingConfig{
			Alpha:             0.15, // lower = smoother, less flicker
			StabilityFrames:   8,
			ChangeDelta:       8,
			ExpressionFloor:   5,
			EmotionFloor:      10,
			ExpressionMinRaw:  15,
			EmotionMinRaw:     20,
			DisplayFloor:      20,
			NeutralConfidence: 50,
		},
	}
}

// CalmConfig returns a configuration that favours a steady readout over
// reaction speed.
func CalmConfig() Config {
	cfg := DefaultConfig()
	cfg.Smoothing.Alpha = 0.10
	cfg.Smoothing.StabilityFrames = 12
	cfg.ConflictThreshold = 50
	return cfg
}

// ResponsiveConfig returns a configuration that tracks changes quickly.
// Expect more flicker.
func ResponsiveConfig() Config {
	cfg := DefaultConfig()
	cfg.Smoothing.Alpha = 0.30
	cfg.Smoothing.StabilityFrames = 4
	cfg.Smoothing.ChangeDelta = 12
	return cfg
}

var presets = map[string]func() Config{
	"default":    DefaultConfig,
	"calm":       CalmConfig,
	"responsive": ResponsiveConfig,
}

// Preset returns a named preset: "default", "calm" or "responsive".
func Preset(name string) (Config, error) {
	fn, ok := presets[name]
	if !ok {
		return Config{}, fmt.Errorf("%w: unknown preset %q", ErrInvalid, name)
	}
	return fn(), nil
}

// PresetNames lists the available presets.
func PresetNames() []string {
	return []string{"default", "calm", "responsive"}
}

// Clone returns a deep copy so callers can modify maps without aliasing.
func (c Config) Clone() Config {
	out := c

	out.Expressions.Rules = make(map[string]Rule, len(c.Expressions.Rules))
	for k, v := range c.Expressions.Rules {
		out.Expressions.Rules[k] = v
	}

	out.Emotions.Weights = make(map[string]map[string]float64, len(c.Emotions.Weights))
	for emotion, weights := range c.Emotions.Weights {
		inner := make(map[string]float64, len(weights))
		for k, v := range weights {
			inner[k] = v
		}
		out.Emotions.Weights[emotion] = inner
	}

	out.Emotions.SadIndicators = append([]string(nil), c.Emotions.SadIndicators...)
	return out
}
