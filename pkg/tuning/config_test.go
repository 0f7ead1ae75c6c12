package tuning

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/teslashibe/go-mirrormind/pkg/affect"
)

func TestDefaultConfig_Valid(t *testing.T) {
	if problems := DefaultConfig().Validate(); len(problems) > 0 {
		t.Errorf("DefaultConfig invalid: %v", problems)
	}
}

func TestPresets_Valid(t *testing.T) {
	for _, name := range PresetNames() {
		t.Run(name, func(t *testing.T) {
			cfg, err := Preset(name)
			if err != nil {
				t.Fatalf("Preset(%q): %v", name, err)
			}
			if problems := cfg.Validate(); len(problems) > 0 {
				t.Errorf("%s invalid: %v", name, problems)
			}
		})
	}

	if _, err := Preset("jittery"); !errors.Is(err, ErrInvalid) {
		t.Errorf("unknown preset err = %v, want ErrInvalid", err)
	}
}

func TestPresets_Ordering(t *testing.T) {
	def := DefaultConfig()
	calm := CalmConfig()
	fast := ResponsiveConfig()

	if !(calm.Smoothing.Alpha < def.Smoothing.Alpha && def.Smoothing.Alpha < fast.Smoothing.Alpha) {
		t.Errorf("alpha ordering calm<default<responsive violated: %v %v %v",
			calm.Smoothing.Alpha, def.Smoothing.Alpha, fast.Smoothing.Alpha)
	}
	if !(calm.Smoothing.StabilityFrames > def.Smoothing.StabilityFrames &&
		def.Smoothing.StabilityFrames > fast.Smoothing.StabilityFrames) {
		t.Error("stability frame ordering calm>default>responsive violated")
	}
}

func TestDefaultConfig_Constants(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Smoothing.Alpha != 0.15 {
		t.Errorf("Alpha = %v, want 0.15", cfg.Smoothing.Alpha)
	}
	if cfg.Smoothing.StabilityFrames != 8 {
		t.Errorf("StabilityFrames = %v, want 8", cfg.Smoothing.StabilityFrames)
	}
	if cfg.ConflictThreshold != 40 {
		t.Errorf("ConflictThreshold = %v, want 40", cfg.ConflictThreshold)
	}
	if r := cfg.Expressions.Rules[affect.Smile]; r.Threshold != 0.1 || r.Scale != 150 {
		t.Errorf("smile rule = %+v", r)
	}
	if got := cfg.Emotions.Weights[affect.Surprised][affect.MouthOpen]; got != 0.30 {
		t.Errorf("surprised/mouth_open weight = %v", got)
	}
	if len(cfg.Emotions.SadIndicators) != 7 {
		t.Errorf("SadIndicators = %d, want 7", len(cfg.Emotions.SadIndicators))
	}
}

func TestValidate_ReportsProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Smoothing.Alpha = 0
	cfg.Emotions.MaxResults = 0
	delete(cfg.Expressions.Rules, affect.Squint)

	problems := cfg.Validate()
	if len(problems) != 3 {
		t.Fatalf("got %d problems, want 3: %v", len(problems), problems)
	}
	joined := strings.Join(problems, "\n")
	for _, want := range []string{"smoothing.alpha", "max_results", `"squint"`} {
		if !strings.Contains(joined, want) {
			t.Errorf("problems missing %q: %v", want, problems)
		}
	}
}

func TestClone_NoAliasing(t *testing.T) {
	a := DefaultConfig()
	b := a.Clone()

	b.Expressions.Rules[affect.Smile] = Rule{Threshold: 0.5, Scale: 1}
	b.Emotions.Weights[affect.Happy][affect.Smile] = 0
	b.Emotions.SadIndicators[0] = "x"

	if a.Expressions.Rules[affect.Smile].Scale != 150 {
		t.Error("Rules aliased")
	}
	if a.Emotions.Weights[affect.Happy][affect.Smile] != 0.7 {
		t.Error("Weights aliased")
	}
	if a.Emotions.SadIndicators[0] == "x" {
		t.Error("SadIndicators aliased")
	}
}

func TestParse_PartialOverride(t *testing.T) {
	data := []byte(`
smoothing:
  alpha: 0.25
expressions:
  rules:
    smile:
      threshold: 0.2
      scale: 100
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Version != SchemaVersion {
		t.Errorf("Version = %d, want %d", cfg.Version, SchemaVersion)
	}
	if cfg.Smoothing.Alpha != 0.25 {
		t.Errorf("Alpha = %v, want 0.25", cfg.Smoothing.Alpha)
	}
	if cfg.Smoothing.StabilityFrames != 8 {
		t.Errorf("StabilityFrames = %v, want default 8", cfg.Smoothing.StabilityFrames)
	}
	if r := cfg.Expressions.Rules[affect.Smile]; r.Threshold != 0.2 || r.Scale != 100 {
		t.Errorf("smile rule = %+v", r)
	}
	if _, ok := cfg.Expressions.Rules[affect.Frown]; !ok {
		t.Error("untouched rules should keep their defaults")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"future version", "version: 99\n", ErrVersionMismatch},
		{"invalid value", "smoothing:\n  alpha: 2\n", ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := Parse([]byte("smoothing: [")); err == nil {
		t.Error("expected YAML syntax error")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")

	want := CalmConfig()
	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Smoothing != want.Smoothing {
		t.Errorf("Smoothing = %+v, want %+v", got.Smoothing, want.Smoothing)
	}
	if got.ConflictThreshold != want.ConflictThreshold {
		t.Errorf("ConflictThreshold = %v, want %v", got.ConflictThreshold, want.ConflictThreshold)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v", err)
	}
}
