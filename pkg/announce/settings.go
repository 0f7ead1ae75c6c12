package announce

import (
	"fmt"
	"slices"
	"time"
)

// Verbosity controls how much detail spoken text carries.
type Verbosity string

const (
	VerbosityMinimal  Verbosity = "minimal"
	VerbosityNormal   Verbosity = "normal"
	VerbosityDetailed Verbosity = "detailed"
)

// Mode selects the phrasing style.
type Mode string

const (
	// ModeConversation uses warm, full sentences.
	ModeConversation Mode = "conversation"
	// ModeSports uses terse "Name. Level." callouts.
	ModeSports Mode = "sports"
)

// Interval is how often the leading emotion is spoken unprompted.
type Interval string

const (
	IntervalOff   Interval = "off"
	Interval10s   Interval = "10s"
	Interval30s   Interval = "30s"
	Interval1min  Interval = "1min"
	Interval5min  Interval = "5min"
	IntervalShift Interval = "shift" // only when the leading emotion changes
)

// Period returns the timed period. ok is false for off and shift.
// Unknown values use 30 seconds.
func (i Interval) Period() (d time.Duration, ok bool) {
	switch i {
	case IntervalOff, IntervalShift:
		return 0, false
	case Interval10s:
		return 10 * time.Second, true
	case Interval1min:
		return time.Minute, true
	case Interval5min:
		return 5 * time.Minute, true
	default:
		return 30 * time.Second, true
	}
}

// Settings are the user's voice preferences.
type Settings struct {
	Verbosity        Verbosity `json:"verbosity" yaml:"verbosity"`
	Mode             Mode      `json:"mode" yaml:"mode"`
	ExpressionsFirst bool      `json:"expressions_first" yaml:"expressions_first"`
	IncludeEmotion   bool      `json:"include_emotion" yaml:"include_emotion"`
	Interval         Interval  `json:"interval" yaml:"interval"`
}

// DefaultSettings returns normal-verbosity conversation phrasing that
// speaks the leading emotion every 30 seconds.
func DefaultSettings() Settings {
	return Settings{
		Verbosity:        VerbosityNormal,
		Mode:             ModeConversation,
		ExpressionsFirst: true,
		Interval:         Interval30s,
	}
}

// Validate returns a list of problems; empty means usable.
func (s Settings) Validate() []string {
	var problems []string
	if !slices.Contains([]Verbosity{VerbosityMinimal, VerbosityNormal, VerbosityDetailed}, s.Verbosity) {
		problems = append(problems, fmt.Sprintf("unknown verbosity %q", s.Verbosity))
	}
	if s.Mode != ModeConversation && s.Mode != ModeSports {
		problems = append(problems, fmt.Sprintf("unknown mode %q", s.Mode))
	}
	if !slices.Contains([]Interval{IntervalOff, Interval10s, Interval30s, Interval1min, Interval5min, IntervalShift}, s.Interval) {
		problems = append(problems, fmt.Sprintf("unknown interval %q", s.Interval))
	}
	return problems
}
