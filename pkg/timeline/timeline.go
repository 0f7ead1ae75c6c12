// Package timeline keeps a bounded history of notable results and the
// aggregate statistics of the current session. Nothing image-derived is
// stored.
package timeline

import (
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-mirrormind/pkg/affect"
)

// DefaultCapacity is about a minute of history at two entries per second.
const DefaultCapacity = 120

// Entry is one recorded moment.
type Entry struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	TopExpression affect.Expression `json:"top_expression"`
	TopEmotion    affect.Emotion    `json:"top_emotion"`
	State         affect.State      `json:"state"`
}

// Summary aggregates every frame seen since Start.
type Summary struct {
	Duration          time.Duration  `json:"-"`
	DurationSeconds   float64        `json:"duration_seconds"`
	ExpressionCounts  map[string]int `json:"expression_counts"`
	ClearPercentage   int            `json:"clear_percentage"`
	MixedPercentage   int            `json:"mixed_percentage"`
	LowPercentage     int            `json:"low_visibility_percentage"`
	AverageConfidence int            `json:"average_confidence"`
	TotalFrames       int            `json:"total_frames"`
}

// Recorder is the session history. It is safe for concurrent use.
type Recorder struct {
	capacity int
	now      func() time.Time

	mu              sync.RWMutex
	started         time.Time
	entries         []Entry
	expressionCount map[string]int
	stateCount      map[affect.State]int
	totalConfidence float64
	frames          int
}

// NewRecorder creates a recorder holding at most capacity entries. A
// non-positive capacity uses DefaultCapacity.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	r := &Recorder{capacity: capacity, now: time.Now}
	r.Start()
	return r
}

// Start discards the history and begins a new session.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.started = r.now()
	r.entries = nil
	r.expressionCount = make(map[string]int)
	r.stateCount = make(map[affect.State]int)
	r.totalConfidence = 0
	r.frames = 0
}

// Add counts a result and records it as an entry unless it is an
// uneventful clear frame. It reports whether an entry was recorded.
func (r *Recorder) Add(res affect.Result) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frames++
	r.stateCount[res.State]++
	if len(res.Emotions) > 0 {
		r.totalConfidence += res.Emotions[0].Confidence
	}
	for _, e := range res.Expressions {
		r.expressionCount[e.Name]++
	}

	if len(res.Expressions) == 0 && res.State == affect.StateClear {
		return Entry{}, false
	}

	top, ok := res.TopExpression()
	if !ok {
		top = affect.Expression{Name: affect.Neutral, Strength: 50}
	}
	ts := res.Timestamp
	if ts.IsZero() {
		ts = r.now()
	}

	entry := Entry{
		ID:            uuid.NewString(),
		Timestamp:     ts,
		TopExpression: top,
		TopEmotion:    res.TopEmotion(),
		State:         res.State,
	}
	r.entries = append(r.entries, entry)
	if over := len(r.entries) - r.capacity; over > 0 {
		r.entries = slices.Delete(r.entries, 0, over)
	}
	return entry, true
}

// Entries returns the recorded history, oldest first.
func (r *Recorder) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.entries)
}

// Summary aggregates the session so far.
func (r *Recorder) Summary() (Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.frames == 0 {
		return Summary{}, ErrEmptySession
	}

	d := r.now().Sub(r.started)
	total := float64(r.frames)
	pct := func(s affect.State) int {
		return int(math.Round(float64(r.stateCount[s]) / total * 100))
	}

	counts := make(map[string]int, len(r.expressionCount))
	for k, v := range r.expressionCount {
		counts[k] = v
	}

	return Summary{
		Duration:          d,
		DurationSeconds:   d.Seconds(),
		ExpressionCounts:  counts,
		ClearPercentage:   pct(affect.StateClear),
		MixedPercentage:   pct(affect.StateMixed),
		LowPercentage:     pct(affect.StateLow),
		AverageConfidence: int(math.Round(r.totalConfidence / total)),
		TotalFrames:       r.frames,
	}, nil
}

// Report is the shareable session export.
type Report struct {
	Title       string    `json:"title"`
	GeneratedAt time.Time `json:"generatedAt"`
	Note        string    `json:"note"`
	Summary     struct {
		DurationSeconds     int    `json:"durationSeconds"`
		DurationFormatted   string `json:"durationFormatted"`
		TotalFramesAnalyzed int    `json:"totalFramesAnalyzed"`
	} `json:"summary"`
	Visibility struct {
		ClearPercentage         int `json:"clearPercentage"`
		MixedSignalsPercentage  int `json:"mixedSignalsPercentage"`
		LowVisibilityPercentage int `json:"lowVisibilityPercentage"`
	} `json:"visibility"`
	ExpressionsDetected      []ExpressionCount `json:"expressionsDetected"`
	AverageEmotionConfidence int               `json:"averageEmotionConfidence"`
}

// ExpressionCount is one row of Report.ExpressionsDetected.
type ExpressionCount struct {
	Expression  string `json:"expression"`
	Occurrences int    `json:"occurrences"`
	Percentage  int    `json:"percentage"`
}

// Report builds the export for the session so far.
func (r *Recorder) Report() (Report, error) {
	s, err := r.Summary()
	if err != nil {
		return Report{}, err
	}

	var rep Report
	rep.Title = "MirrorMind Session Summary"
	rep.GeneratedAt = r.now().UTC()
	rep.Note = "No images or biometric data stored - aggregated statistics only"
	rep.Summary.DurationSeconds = int(math.Round(s.DurationSeconds))
	rep.Summary.DurationFormatted = FormatDuration(s.Duration)
	rep.Summary.TotalFramesAnalyzed = s.TotalFrames
	rep.Visibility.ClearPercentage = s.ClearPercentage
	rep.Visibility.MixedSignalsPercentage = s.MixedPercentage
	rep.Visibility.LowVisibilityPercentage = s.LowPercentage
	rep.AverageEmotionConfidence = s.AverageConfidence

	rep.ExpressionsDetected = make([]ExpressionCount, 0, len(s.ExpressionCounts))
	for name, n := range s.ExpressionCounts {
		rep.ExpressionsDetected = append(rep.ExpressionsDetected, ExpressionCount{
			Expression:  name,
			Occurrences: n,
			Percentage:  int(math.Round(float64(n) / float64(s.TotalFrames) * 100)),
		})
	}
	slices.SortFunc(rep.ExpressionsDetected, func(a, b ExpressionCount) int {
		if c := cmp.Compare(b.Occurrences, a.Occurrences); c != 0 {
			return c
		}
		return cmp.Compare(a.Expression, b.Expression)
	})
	return rep, nil
}

// Export renders Report as indented JSON.
func (r *Recorder) Export() ([]byte, error) {
	rep, err := r.Report()
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("timeline: encode report: %w", err)
	}
	return data, nil
}

// FormatDuration renders d as "Xm Ys".
func FormatDuration(d time.Duration) string {
	secs := int(d.Seconds())
	return fmt.Sprintf("%dm %ds", secs/60, secs%60)
}
