// Package smoothing damps frame-to-frame noise in a session's expression and
// emotion readings and holds the reported visibility state steady until a
// new state has persisted for several frames.
package smoothing

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/teslashibe/go-mirrormind/pkg/affect"
	"github.com/teslashibe/go-mirrormind/pkg/tuning"
)

// Input is one frame's raw, unsmoothed analysis.
type Input struct {
	Expressions  []affect.Expression
	Emotions     []affect.Emotion
	State        affect.State
	StateReason  string
	QualityScore float64
	Timestamp    time.Time
}

// entry is one tracked EMA value.
type entry struct {
	name         string
	evidence     string
	value        float64
	framesStable int
}

// Engine is the smoothing state of one session. It is not safe for
// concurrent use; the owning session serializes calls.
type Engine struct {
	cfg tuning.SmoothingConfig

	expressions map[string]*entry // keyed by expression ID
	emotions    map[string]*entry // keyed by emotion name

	started       bool
	locked        affect.State
	lockedReason  string
	disagree      int
	framesInState int
}

// New creates an empty engine.
func New(cfg tuning.SmoothingConfig) *Engine {
	e := &Engine{cfg: cfg}
	e.Reset()
	return e
}

// Reset discards all tracked values and the state lock.
func (e *Engine) Reset() {
	e.expressions = make(map[string]*entry)
	e.emotions = make(map[string]*entry)
	e.started = false
	e.locked = affect.StateClear
	e.lockedReason = ""
	e.disagree = 0
	e.framesInState = 0
}

// FramesInState returns how many frames have passed since the locked state
// last changed.
func (e *Engine) FramesInState() int {
	return e.framesInState
}

// Locked returns the currently reported state.
func (e *Engine) Locked() affect.State {
	return e.locked
}

// Update folds one raw frame into the session and returns the smoothed result.
func (e *Engine) Update(in Input) affect.Result {
	exprs := make([]sample, 0, len(in.Expressions))
	for _, x := range in.Expressions {
		exprs = append(exprs, sample{key: x.ID, name: x.Name, evidence: x.Evidence, value: x.Strength})
	}
	e.track(e.expressions, exprs, e.cfg.ExpressionFloor, e.cfg.ExpressionMinRaw)

	emos := make([]sample, 0, len(in.Emotions))
	for _, m := range in.Emotions {
		emos = append(emos, sample{key: m.Name, name: m.Name, value: m.Confidence})
	}
	e.track(e.emotions, emos, e.cfg.EmotionFloor, e.cfg.EmotionMinRaw)

	state, reason := e.lock(in.State, in.StateReason)

	return affect.Result{
		Expressions:  e.emitExpressions(),
		Emotions:     e.emitEmotions(),
		State:        state,
		StateReason:  reason,
		Timestamp:    in.Timestamp,
		QualityScore: affect.Clamp(in.QualityScore),
	}
}

// sample is one raw reading keyed the same way as its tracked entry.
type sample struct {
	key      string
	name     string
	evidence string
	value    float64
}

// track applies one EMA step to m. Tracked keys missing from raw decay and
// are pruned below floor; new keys start tracking once above minRaw.
func (e *Engine) track(m map[string]*entry, raw []sample, floor, minRaw float64) {
	alpha := e.cfg.Alpha

	current := make(map[string]sample, len(raw))
	for _, s := range raw {
		current[s.key] = s
	}

	for key, ent := range m {
		s, ok := current[key]
		if !ok {
			ent.value *= 1 - alpha
			ent.framesStable = 0
			if ent.value < floor {
				delete(m, key)
			}
			continue
		}

		prev := ent.value
		ent.value = prev*(1-alpha) + affect.Clamp(s.value)*alpha
		if math.Abs(ent.value-prev) > e.cfg.ChangeDelta {
			ent.framesStable = 0
		} else {
			ent.framesStable++
		}
		ent.name, ent.evidence = s.name, s.evidence
	}

	for _, s := range raw {
		if _, ok := m[s.key]; ok {
			continue
		}
		if v := affect.Clamp(s.value); v > minRaw {
			m[s.key] = &entry{name: s.name, evidence: s.evidence, value: v * alpha}
		}
	}
}

// lock runs the hysteresis state machine and returns the state and reason
// to report.
func (e *Engine) lock(raw affect.State, reason string) (affect.State, string) {
	if !e.started {
		e.started = true
		e.locked, e.lockedReason = raw, reason
		return e.locked, e.lockedReason
	}

	e.framesInState++
	if raw == e.locked {
		e.disagree = 0
		e.lockedReason = reason
		return e.locked, e.lockedReason
	}

	e.disagree++
	if e.disagree >= e.cfg.StabilityFrames {
		e.locked, e.lockedReason = raw, reason
		e.disagree = 0
		e.framesInState = 0
	}
	return e.locked, e.lockedReason
}

func (e *Engine) emitExpressions() []affect.Expression {
	out := make([]affect.Expression, 0, len(e.expressions))
	for id, ent := range e.expressions {
		if ent.value <= e.cfg.DisplayFloor {
			continue
		}
		out = append(out, affect.Expression{
			ID:       id,
			Name:     ent.name,
			Strength: affect.Clamp(math.Round(ent.value)),
			Evidence: ent.evidence,
		})
	}
	slices.SortFunc(out, func(a, b affect.Expression) int {
		if c := cmp.Compare(b.Strength, a.Strength); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (e *Engine) emitEmotions() []affect.Emotion {
	out := make([]affect.Emotion, 0, len(e.emotions))
	for name, ent := range e.emotions {
		if ent.value <= e.cfg.DisplayFloor {
			continue
		}
		out = append(out, affect.Emotion{Name: name, Confidence: affect.Clamp(math.Round(ent.value))})
	}
	if len(out) == 0 {
		return []affect.Emotion{{Name: affect.Neutral, Confidence: e.cfg.NeutralConfidence}}
	}
	slices.SortFunc(out, func(a, b affect.Emotion) int {
		if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}
