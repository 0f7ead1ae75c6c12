// Package expression scores named facial expressions from one frame's
// blendshape activations or landmark geometry, and flags contradictory
// combinations.
package expression

import "github.com/teslashibe/go-mirrormind/pkg/face"

// Input is the per-frame scoring source. It is either a BlendshapeInput
// or a GeometricInput; no other implementations exist.
type Input interface {
	scoringPath() string
}

// BlendshapeInput scores from detector blendshape activations.
type BlendshapeInput struct {
	Scores face.Blendshapes
}

// GeometricInput scores from landmark-derived ratios.
type GeometricInput struct {
	Features face.Features
}

func (BlendshapeInput) scoringPath() string { return "blendshape" }
func (GeometricInput) scoringPath() string  { return "geometric" }

// Path names the scoring path an input selects, for logging.
func Path(in Input) string {
	if in == nil {
		return "none"
	}
	return in.scoringPath()
}

// InputFor selects the scoring path for a frame: blendshapes when any are
// present, otherwise geometry extracted from landmarks. It returns false
// when neither source is usable.
func InputFor(scores face.Blendshapes, landmarks face.Landmarks) (Input, bool) {
	if len(scores) > 0 {
		return BlendshapeInput{Scores: scores}, true
	}
	f, err := face.Extract(landmarks)
	if err != nil {
		return nil, false
	}
	return GeometricInput{Features: f}, true
}
