package timeline

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-mirrormind/pkg/affect"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestRecorder(capacity int) (*Recorder, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	r := NewRecorder(capacity)
	r.now = clock.now
	r.Start()
	return r, clock
}

func smiling(strength, happy float64) affect.Result {
	return affect.Result{
		Expressions: []affect.Expression{{ID: affect.Smile, Name: "Smile", Strength: strength}},
		Emotions:    []affect.Emotion{{Name: affect.Happy, Confidence: happy}},
		State:       affect.StateClear,
	}
}

func TestAdd_SkipsUneventfulClearFrames(t *testing.T) {
	r, _ := newTestRecorder(0)

	if _, ok := r.Add(affect.Result{State: affect.StateClear}); ok {
		t.Error("empty clear frame should not be recorded")
	}
	if _, ok := r.Add(affect.Result{State: affect.StateLow}); !ok {
		t.Error("low frame should be recorded")
	}
	if _, ok := r.Add(smiling(60, 40)); !ok {
		t.Error("frame with expressions should be recorded")
	}

	if got := len(r.Entries()); got != 2 {
		t.Errorf("Entries = %d, want 2", got)
	}
	s, err := r.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.TotalFrames != 3 {
		t.Errorf("TotalFrames = %d, want 3 (skipped frames still count)", s.TotalFrames)
	}
}

func TestAdd_EntryDefaults(t *testing.T) {
	r, clock := newTestRecorder(0)

	e, ok := r.Add(affect.Result{State: affect.StateLow})
	if !ok {
		t.Fatal("not recorded")
	}
	if _, err := uuid.Parse(e.ID); err != nil {
		t.Errorf("ID %q is not a uuid: %v", e.ID, err)
	}
	if e.TopExpression.Name != affect.Neutral || e.TopExpression.Strength != 50 {
		t.Errorf("TopExpression = %+v, want Neutral 50", e.TopExpression)
	}
	if e.TopEmotion != (affect.Emotion{Name: affect.Neutral, Confidence: 50}) {
		t.Errorf("TopEmotion = %+v, want Neutral 50", e.TopEmotion)
	}
	if !e.Timestamp.Equal(clock.t) {
		t.Errorf("Timestamp = %v, want %v", e.Timestamp, clock.t)
	}
}

func TestAdd_Bounded(t *testing.T) {
	r, _ := newTestRecorder(5)
	var last Entry
	for i := 0; i < 12; i++ {
		last, _ = r.Add(affect.Result{State: affect.StateMixed})
	}

	entries := r.Entries()
	if len(entries) != 5 {
		t.Fatalf("Entries = %d, want 5", len(entries))
	}
	if entries[4].ID != last.ID {
		t.Error("newest entry should be last")
	}
}

func TestSummary_Empty(t *testing.T) {
	r, _ := newTestRecorder(0)
	if _, err := r.Summary(); !errors.Is(err, ErrEmptySession) {
		t.Errorf("Summary err = %v, want ErrEmptySession", err)
	}
	if _, err := r.Export(); !errors.Is(err, ErrEmptySession) {
		t.Errorf("Export err = %v, want ErrEmptySession", err)
	}
}

func TestSummary_Percentages(t *testing.T) {
	r, clock := newTestRecorder(0)

	r.Add(smiling(60, 80))
	r.Add(smiling(70, 70))
	r.Add(affect.Result{State: affect.StateMixed, Emotions: []affect.Emotion{{Name: affect.Neutral, Confidence: 50}}})
	r.Add(affect.Result{State: affect.StateLow})
	clock.advance(95 * time.Second)

	s, err := r.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.ClearPercentage != 50 || s.MixedPercentage != 25 || s.LowPercentage != 25 {
		t.Errorf("percentages = %d/%d/%d", s.ClearPercentage, s.MixedPercentage, s.LowPercentage)
	}
	// (80 + 70 + 50 + 0) / 4
	if s.AverageConfidence != 50 {
		t.Errorf("AverageConfidence = %d, want 50", s.AverageConfidence)
	}
	if s.ExpressionCounts["Smile"] != 2 {
		t.Errorf("ExpressionCounts = %v", s.ExpressionCounts)
	}
	if s.Duration != 95*time.Second {
		t.Errorf("Duration = %v", s.Duration)
	}
}

func TestExport(t *testing.T) {
	r, clock := newTestRecorder(0)
	for i := 0; i < 3; i++ {
		r.Add(smiling(60, 60))
	}
	r.Add(affect.Result{
		Expressions: []affect.Expression{{ID: affect.Frown, Name: "Frown", Strength: 40}},
		State:       affect.StateClear,
	})
	clock.advance(75 * time.Second)

	data, err := r.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rep.Title != "MirrorMind Session Summary" {
		t.Errorf("Title = %q", rep.Title)
	}
	if rep.Note != "No images or biometric data stored - aggregated statistics only" {
		t.Errorf("Note = %q", rep.Note)
	}
	if rep.Summary.DurationFormatted != "1m 15s" || rep.Summary.DurationSeconds != 75 {
		t.Errorf("Summary = %+v", rep.Summary)
	}
	if rep.Summary.TotalFramesAnalyzed != 4 {
		t.Errorf("TotalFramesAnalyzed = %d", rep.Summary.TotalFramesAnalyzed)
	}
	if rep.Visibility.ClearPercentage != 100 {
		t.Errorf("Visibility = %+v", rep.Visibility)
	}

	want := []ExpressionCount{
		{Expression: "Smile", Occurrences: 3, Percentage: 75},
		{Expression: "Frown", Occurrences: 1, Percentage: 25},
	}
	if len(rep.ExpressionsDetected) != len(want) {
		t.Fatalf("ExpressionsDetected = %+v", rep.ExpressionsDetected)
	}
	for i := range want {
		if rep.ExpressionsDetected[i] != want[i] {
			t.Errorf("ExpressionsDetected[%d] = %+v, want %+v", i, rep.ExpressionsDetected[i], want[i])
		}
	}
	// (60*3 + 0) / 4
	if rep.AverageEmotionConfidence != 45 {
		t.Errorf("AverageEmotionConfidence = %d", rep.AverageEmotionConfidence)
	}
}

func TestStart_Resets(t *testing.T) {
	r, _ := newTestRecorder(0)
	r.Add(affect.Result{State: affect.StateLow})
	r.Start()

	if len(r.Entries()) != 0 {
		t.Error("entries survived Start")
	}
	if _, err := r.Summary(); !errors.Is(err, ErrEmptySession) {
		t.Errorf("Summary err = %v", err)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0m 0s"},
		{59 * time.Second, "0m 59s"},
		{61500 * time.Millisecond, "1m 1s"},
		{10 * time.Minute, "10m 0s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
