package expression

import (
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/teslashibe/go-mirrormind/pkg/affect"
	"github.com/teslashibe/go-mirrormind/pkg/face"
	"github.com/teslashibe/go-mirrormind/pkg/face/facetest"
	"github.com/teslashibe/go-mirrormind/pkg/tuning"
)

func approxEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func find(exprs []affect.Expression, id string) (affect.Expression, bool) {
	for _, e := range exprs {
		if e.ID == id {
			return e, true
		}
	}
	return affect.Expression{}, false
}

func newTestScorer() *Scorer {
	return NewScorer(tuning.DefaultConfig())
}

func TestInputFor(t *testing.T) {
	bs := facetest.Blendshapes("mouthSmileLeft", 0.5)

	in, ok := InputFor(bs, facetest.Neutral())
	if !ok {
		t.Fatal("InputFor with blendshapes returned false")
	}
	if _, isBlend := in.(BlendshapeInput); !isBlend {
		t.Errorf("blendshapes present: got %T, want BlendshapeInput", in)
	}

	in, ok = InputFor(nil, facetest.Neutral())
	if !ok {
		t.Fatal("InputFor with landmarks returned false")
	}
	if _, isGeo := in.(GeometricInput); !isGeo {
		t.Errorf("no blendshapes: got %T, want GeometricInput", in)
	}
	if Path(in) != "geometric" {
		t.Errorf("Path = %q", Path(in))
	}

	if _, ok := InputFor(nil, facetest.Neutral()[:100]); ok {
		t.Error("InputFor should fail with neither source usable")
	}
	if Path(nil) != "none" {
		t.Error("Path(nil) should be none")
	}
}

func TestScore_SmileOnly(t *testing.T) {
	s := newTestScorer()
	got := s.Score(BlendshapeInput{Scores: facetest.Blendshapes(
		"mouthSmileLeft", 0.6,
		"mouthSmileRight", 0.6,
		"eyeSquintLeft", 0.1,
		"eyeSquintRight", 0.1,
	)})

	if len(got) != 1 {
		t.Fatalf("got %d expressions, want 1: %+v", len(got), got)
	}
	if got[0].ID != affect.Smile || got[0].Name != "Smile" {
		t.Errorf("got %+v, want Smile", got[0])
	}
	if !approxEqual(got[0].Strength, 90, 1e-9) {
		t.Errorf("Strength = %v, want 90", got[0].Strength)
	}
	if got[0].Evidence != "Mouth corners lifted (60%)" {
		t.Errorf("Evidence = %q", got[0].Evidence)
	}
}

func TestScore_BlendshapeRules(t *testing.T) {
	tests := []struct {
		name     string
		scores   face.Blendshapes
		id       string
		strength float64
		evidence string
	}{
		{
			name:     "smirk left",
			scores:   facetest.Blendshapes("mouthSmileLeft", 0.4, "mouthSmileRight", 0.1),
			id:       affect.Smirk,
			strength: 60,
			evidence: "Asymmetrical smile - left corner higher",
		},
		{
			name:     "frown",
			scores:   facetest.Blendshapes("mouthFrownLeft", 0.4, "mouthFrownRight", 0.4),
			id:       affect.Frown,
			strength: 60,
			evidence: "Mouth corners down (40%)",
		},
		{
			name:     "mouth open",
			scores:   facetest.Blendshapes("jawOpen", 0.5),
			id:       affect.MouthOpen,
			strength: 60,
		},
		{
			name:     "inner brow",
			scores:   facetest.Blendshapes("browInnerUp", 0.2),
			id:       affect.InnerBrowRaise,
			strength: 30,
		},
		{
			name:     "brow furrow uses stronger side",
			scores:   facetest.Blendshapes("browDownLeft", 0.1, "browDownRight", 0.4),
			id:       affect.BrowFurrow,
			strength: 60,
		},
		{
			name:     "wide eyes clamps",
			scores:   facetest.Blendshapes("eyeWideLeft", 0.9, "eyeWideRight", 0.9),
			id:       affect.WideEyes,
			strength: 100,
		},
		{
			name:     "drooping eyelids",
			scores:   facetest.Blendshapes("eyeSquintLeft", 0.3, "eyeSquintRight", 0.3),
			id:       affect.DroopingEyelids,
			strength: (0.4*1 + 0.6*0.3) * 120,
		},
		{
			name:     "brow raise averages three",
			scores:   facetest.Blendshapes("browOuterUpLeft", 0.3, "browOuterUpRight", 0.3, "browInnerUp", 0.3),
			id:       affect.BrowRaise,
			strength: 45,
		},
	}

	s := newTestScorer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Score(BlendshapeInput{Scores: tt.scores})
			e, ok := find(got, tt.id)
			if !ok {
				t.Fatalf("%s missing from %+v", tt.id, got)
			}
			if !approxEqual(e.Strength, tt.strength, 1e-6) {
				t.Errorf("Strength = %v, want %v", e.Strength, tt.strength)
			}
			if tt.evidence != "" && e.Evidence != tt.evidence {
				t.Errorf("Evidence = %q, want %q", e.Evidence, tt.evidence)
			}
		})
	}
}

func TestScore_BelowThresholdOmitted(t *testing.T) {
	s := newTestScorer()
	got := s.Score(BlendshapeInput{Scores: facetest.Blendshapes(
		"mouthSmileLeft", 0.1,
		"mouthSmileRight", 0.1,
		"jawOpen", 0.15,
		"mouthPucker", 0.2,
		"eyeWideLeft", 1.0,
		"eyeWideRight", 1.0,
	)})
	for _, e := range got {
		if e.ID != affect.WideEyes {
			t.Errorf("unexpected expression at threshold: %+v", e)
		}
	}
}

func TestScore_SortedDescending(t *testing.T) {
	s := newTestScorer()
	got := s.Score(BlendshapeInput{Scores: facetest.Blendshapes(
		"mouthSmileLeft", 0.3,
		"mouthSmileRight", 0.3,
		"jawOpen", 0.8,
		"browInnerUp", 0.5,
	)})
	if len(got) < 3 {
		t.Fatalf("got %d expressions", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Strength > got[i-1].Strength {
			t.Errorf("not sorted at %d: %v > %v", i, got[i].Strength, got[i-1].Strength)
		}
	}
}

func TestScore_Geometric(t *testing.T) {
	s := newTestScorer()

	neutral, _ := InputFor(nil, facetest.Neutral())
	if got := s.Score(neutral); len(got) != 0 {
		t.Errorf("neutral face scored %+v, want none", got)
	}

	smiling, _ := InputFor(nil, facetest.Smiling())
	got := s.Score(smiling)
	e, ok := find(got, affect.Smile)
	if !ok {
		t.Fatalf("smile missing from %+v", got)
	}
	angle := 180 - 2*math.Atan(0.02/0.08)*180/math.Pi
	if !approxEqual(e.Strength, (160-angle)*5, 1e-6) {
		t.Errorf("Strength = %v, want %v", e.Strength, (160-angle)*5)
	}
	if e.Evidence != "Mouth corners lifted" {
		t.Errorf("Evidence = %q", e.Evidence)
	}
}

func TestScore_GeometricHeadTilt(t *testing.T) {
	s := newTestScorer()
	got := s.Score(GeometricInput{Features: face.Features{
		MouthCornerAngle: 180,
		Symmetry:         1,
		HeadTilt:         -10,
	}})
	e, ok := find(got, affect.HeadTilt)
	if !ok {
		t.Fatalf("head tilt missing from %+v", got)
	}
	if e.Strength != 30 || !strings.HasSuffix(e.Evidence, "left") {
		t.Errorf("got %+v, want strength 30 tilted left", e)
	}
}

func TestScore_NilInput(t *testing.T) {
	if got := newTestScorer().Score(nil); got != nil {
		t.Errorf("Score(nil) = %+v, want nil", got)
	}
}

func TestScore_RangeProperty(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	s := newTestScorer()

	names := []string{
		"mouthSmileLeft", "mouthSmileRight", "mouthFrownLeft", "mouthFrownRight",
		"jawOpen", "mouthPressLeft", "mouthPressRight", "mouthStretchLeft",
		"mouthStretchRight", "browInnerUp", "eyeWideLeft", "eyeWideRight",
		"eyeSquintLeft", "eyeSquintRight", "mouthDimpleLeft", "mouthDimpleRight",
		"mouthPucker", "browOuterUpLeft", "browOuterUpRight", "browDownLeft",
		"browDownRight", "noseSneerLeft", "noseSneerRight",
	}

	for i := 0; i < 500; i++ {
		bs := make(face.Blendshapes, len(names))
		for _, n := range names {
			bs[n] = rng.Float64()
		}
		for _, e := range s.Score(BlendshapeInput{Scores: bs}) {
			if e.Strength < 0 || e.Strength > 100 {
				t.Fatalf("blendshape iteration %d: %s strength %v out of range", i, e.ID, e.Strength)
			}
		}

		l := make(face.Landmarks, facetest.MeshSize)
		for j := range l {
			l[j] = face.Point{X: rng.Float64(), Y: rng.Float64(), Z: rng.Float64() - 0.5}
		}
		in, ok := InputFor(nil, l)
		if !ok {
			t.Fatal("InputFor failed on a full mesh")
		}
		for _, e := range s.Score(in) {
			if e.Strength < 0 || e.Strength > 100 || math.IsNaN(e.Strength) {
				t.Fatalf("geometric iteration %d: %s strength %v out of range", i, e.ID, e.Strength)
			}
		}
	}
}
