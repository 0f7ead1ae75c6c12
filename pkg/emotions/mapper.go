// Package emotions aggregates a frame's expression strengths into coarse
// emotion guesses (Happy, Sad, Surprised, falling back to Neutral).
package emotions

import (
	"cmp"
	"math"
	"slices"

	"github.com/teslashibe/go-mirrormind/pkg/affect"
	"github.com/teslashibe/go-mirrormind/pkg/tuning"
)

// Mapper turns expressions into emotions using weighted sums plus
// cross-signal suppression and boost rules.
type Mapper struct {
	cfg     tuning.EmotionConfig
	emotion []string // weight table keys, sorted for deterministic ties
	terms   map[string][]term
}

// term is one expression's weight in an emotion's sum.
type term struct {
	id     string
	weight float64
}

// NewMapper creates a mapper from the emotion section of cfg.
func NewMapper(cfg tuning.Config) *Mapper {
	c := cfg.Clone().Emotions
	names := make([]string, 0, len(c.Weights))
	for name := range c.Weights {
		names = append(names, name)
	}
	slices.Sort(names)

	// Sums run in id order so float rounding is the same on every call.
	terms := make(map[string][]term, len(names))
	for _, name := range names {
		ts := make([]term, 0, len(c.Weights[name]))
		for id, w := range c.Weights[name] {
			ts = append(ts, term{id: id, weight: w})
		}
		slices.SortFunc(ts, func(a, b term) int { return cmp.Compare(a.id, b.id) })
		terms[name] = ts
	}
	return &Mapper{cfg: c, emotion: names, terms: terms}
}

// Map scores the current frame's expressions. The result is never empty:
// when no emotion reaches the minimum confidence it is a single Neutral entry.
func (m *Mapper) Map(exprs []affect.Expression) []affect.Emotion {
	strength := make(map[string]float64, len(exprs))
	for _, e := range exprs {
		strength[e.ID] = e.Strength
	}
	get := func(id string) float64 { return strength[id] }

	scores := make(map[string]float64, len(m.emotion))
	for _, name := range m.emotion {
		sum := 0.0
		for _, t := range m.terms[name] {
			sum += get(t.id) * t.weight
		}
		scores[name] = sum
	}

	active := 0
	for _, id := range m.cfg.SadIndicators {
		if get(id) > m.cfg.IndicatorMin {
			active++
		}
	}

	smile := get(affect.Smile)
	if happy, ok := scores[affect.Happy]; ok {
		switch {
		case active >= m.cfg.StrongSuppressCount && smile < m.cfg.StrongSuppressSmile:
			factor := math.Max(m.cfg.SuppressFloor, 1-float64(active)*m.cfg.SuppressPerIndicator)
			scores[affect.Happy] = happy * factor
		case active >= m.cfg.WeakSuppressCount && smile < m.cfg.WeakSuppressSmile:
			scores[affect.Happy] = happy * m.cfg.WeakSuppressFactor
		}
	}

	if sad, ok := scores[affect.Sad]; ok && active >= m.cfg.BoostCount {
		scores[affect.Sad] = math.Min(100, sad*m.cfg.BoostFactor)
	}

	var out []affect.Emotion
	for _, name := range m.emotion {
		if s := scores[name]; s >= m.cfg.MinConfidence {
			out = append(out, affect.Emotion{Name: name, Confidence: s})
		}
	}
	if len(out) == 0 {
		return []affect.Emotion{{Name: affect.Neutral, Confidence: m.cfg.NeutralConfidence}}
	}

	slices.SortStableFunc(out, func(a, b affect.Emotion) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})
	if len(out) > m.cfg.MaxResults {
		out = out[:m.cfg.MaxResults]
	}
	for i := range out {
		out[i].Confidence = affect.Clamp(math.Round(out[i].Confidence))
	}
	return out
}

// ActiveSadIndicators counts sadness indicators above the activation floor.
func (m *Mapper) ActiveSadIndicators(exprs []affect.Expression) int {
	n := 0
	for _, e := range exprs {
		if e.Strength > m.cfg.IndicatorMin && slices.Contains(m.cfg.SadIndicators, e.ID) {
			n++
		}
	}
	return n
}
