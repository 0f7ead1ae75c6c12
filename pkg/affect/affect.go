// Package affect defines the values that flow out of the detection pipeline:
// expressions, emotion guesses, the visibility state and the per-frame result.
package affect

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// State is the overall classification of a frame.
type State int

const (
	// StateClear means the frame is usable and the signals agree.
	StateClear State = iota
	// StateMixed means the expressions contradict each other.
	StateMixed
	// StateLow means no face, or the frame is too poor to read.
	StateLow
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateClear:
		return "clear"
	case StateMixed:
		return "mixed"
	case StateLow:
		return "low"
	default:
		return "unknown"
	}
}

// ParseState parses "clear", "mixed" or "low".
func ParseState(s string) (State, error) {
	switch s {
	case "clear":
		return StateClear, nil
	case "mixed":
		return StateMixed, nil
	case "low":
		return StateLow, nil
	}
	return StateClear, fmt.Errorf("affect: unknown state %q", s)
}

// MarshalJSON encodes the state as its name.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a state name.
func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseState(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Expression is one scored facial expression.
type Expression struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Strength float64 `json:"strength"` // 0-100
	Evidence string  `json:"evidence"`
}

// Emotion is a coarse emotion guess.
type Emotion struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"` // 0-100
}

// Neutral is the emotion name used when nothing else is detected.
const Neutral = "Neutral"

// Result is the output of one pipeline run. Producers never retain or
// modify the slices after handing a Result out.
type Result struct {
	Expressions  []Expression `json:"expressions"`
	Emotions     []Emotion    `json:"emotions"`
	State        State        `json:"state"`
	StateReason  string       `json:"state_reason"`
	Timestamp    time.Time    `json:"timestamp"`
	QualityScore float64      `json:"quality_score"`
}

// TopExpression returns the strongest expression, if any.
func (r Result) TopExpression() (Expression, bool) {
	if len(r.Expressions) == 0 {
		return Expression{}, false
	}
	return r.Expressions[0], true
}

// TopEmotion returns the leading emotion, or Neutral at 50 when the list is empty.
func (r Result) TopEmotion() Emotion {
	if len(r.Emotions) == 0 {
		return Emotion{Name: Neutral, Confidence: 50}
	}
	return r.Emotions[0]
}

// Clone returns a deep copy.
func (r Result) Clone() Result {
	out := r
	if r.Expressions != nil {
		out.Expressions = append([]Expression(nil), r.Expressions...)
	}
	if r.Emotions != nil {
		out.Emotions = append([]Emotion(nil), r.Emotions...)
	}
	return out
}

// Clamp restricts v to [0,100]. NaN maps to 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
