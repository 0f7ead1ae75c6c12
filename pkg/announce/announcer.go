package announce

import (
	"sync"
	"time"

	"github.com/teslashibe/go-mirrormind/pkg/affect"
)

const (
	// MinSpeakInterval is the shortest gap between two utterances.
	MinSpeakInterval = 2 * time.Second
	// RepeatWindow suppresses saying the same text twice in a row.
	RepeatWindow = 2 * MinSpeakInterval
	// StateChangeGap is the quiet time required before announcing a
	// degraded state.
	StateChangeGap = 3 * time.Second
)

// Kind says why an announcement was made.
type Kind string

const (
	KindState   Kind = "state"
	KindEmotion Kind = "emotion"
)

// Announcement is a phrase ready for a speech engine.
type Announcement struct {
	Kind      Kind         `json:"kind"`
	Text      string       `json:"text"`
	State     affect.State `json:"state"`
	Emotion   string       `json:"emotion,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Announcer watches the result stream and decides what to say. It is safe
// for concurrent use.
type Announcer struct {
	now func() time.Time

	mu       sync.Mutex
	settings Settings

	// decision bookkeeping
	lastSpeak        time.Time
	lastEmotionSpeak time.Time
	lastEmotion      string
	lastState        affect.State

	// utterance gate
	lastSpokenText string
	lastSpokenAt   time.Time
}

// NewAnnouncer creates an announcer with the given settings.
func NewAnnouncer(s Settings) *Announcer {
	return &Announcer{
		now:         time.Now,
		settings:    s,
		lastEmotion: affect.Neutral,
		lastState:   affect.StateClear,
	}
}

// Settings returns the current settings.
func (a *Announcer) Settings() Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings
}

// SetSettings replaces the settings without resetting timers.
func (a *Announcer) SetSettings(s Settings) {
	a.mu.Lock()
	a.settings = s
	a.mu.Unlock()
}

// Reset forgets what has been said.
func (a *Announcer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastSpeak = time.Time{}
	a.lastEmotionSpeak = time.Time{}
	a.lastEmotion = affect.Neutral
	a.lastState = affect.StateClear
	a.lastSpokenText = ""
	a.lastSpokenAt = time.Time{}
}

// Observe feeds one smoothed result and returns the announcement to speak,
// if any. A degraded state that has not been announced yet takes priority
// over the periodic emotion phrase.
func (a *Announcer) Observe(res affect.Result) (Announcement, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	emotion := res.TopEmotion().Name

	if res.State != affect.StateClear && res.State != a.lastState && a.since(a.lastSpeak, now) > StateChangeGap {
		txt := PhraseLowMinimal
		if res.State == affect.StateMixed {
			txt = PhraseMixedShort
		}
		a.lastSpeak = now
		a.lastState = res.State
		return a.utter(Announcement{Kind: KindState, Text: txt, State: res.State, Timestamp: now})
	}

	if !a.emotionDue(emotion, now) {
		return Announcement{}, false
	}

	txt := text(res, a.settings, true)
	a.lastSpeak = now
	a.lastEmotionSpeak = now
	a.lastEmotion = emotion
	a.lastState = res.State
	return a.utter(Announcement{Kind: KindEmotion, Text: txt, State: res.State, Emotion: emotion, Timestamp: now})
}

func (a *Announcer) emotionDue(emotion string, now time.Time) bool {
	if a.settings.Interval == IntervalShift {
		return emotion != a.lastEmotion
	}
	period, ok := a.settings.Interval.Period()
	if !ok {
		return false
	}
	return a.since(a.lastEmotionSpeak, now) > period
}

// utter applies the speech gate: nothing within MinSpeakInterval of the
// previous utterance, and no repeat of the same text within RepeatWindow.
func (a *Announcer) utter(ann Announcement) (Announcement, bool) {
	if ann.Text == a.lastSpokenText && a.since(a.lastSpokenAt, ann.Timestamp) < RepeatWindow {
		return Announcement{}, false
	}
	if a.since(a.lastSpokenAt, ann.Timestamp) < MinSpeakInterval {
		return Announcement{}, false
	}
	a.lastSpokenText = ann.Text
	a.lastSpokenAt = ann.Timestamp
	return ann, true
}

// since treats a zero time as infinitely long ago.
func (a *Announcer) since(t, now time.Time) time.Duration {
	if t.IsZero() {
		return 1<<63 - 1
	}
	return now.Sub(t)
}
