package expression

import (
	"fmt"
	"math"

	"github.com/teslashibe/go-mirrormind/pkg/affect"
)

// Conflict names a contradictory expression combination.
type Conflict struct {
	Rule   string `json:"rule"`
	Reason string `json:"reason"`
}

// Conflict rule names, in priority order.
const (
	RulePoliteSmile = "polite_smile"
	RuleSuppressed  = "suppressed_emotion"
	RuleSkepticism  = "skepticism"
	RuleMixedMouth  = "mixed_mouth"
)

// DetectConflicts checks the current frame's expressions for known
// contradictions. Only expressions stronger than threshold take part.
// Rules are checked in priority order and the first match wins.
func DetectConflicts(exprs []affect.Expression, threshold float64) (Conflict, bool) {
	strong := make(map[string]float64, len(exprs))
	for _, e := range exprs {
		if e.Strength > threshold {
			strong[e.ID] = e.Strength
		}
	}
	has := func(id string) bool {
		_, ok := strong[id]
		return ok
	}

	switch {
	case has(affect.Smile) && has(affect.BrowFurrow):
		return Conflict{
			Rule: RulePoliteSmile,
			Reason: fmt.Sprintf("Smile (%.0f) + Brow furrow (%.0f) - could be polite/nervous smile",
				math.Round(strong[affect.Smile]), math.Round(strong[affect.BrowFurrow])),
		}, true

	case has(affect.Smile) && has(affect.LipPress):
		return Conflict{
			Rule: RuleSuppressed,
			Reason: fmt.Sprintf("Smile (%.0f) + Lip press (%.0f) - may be suppressing emotion",
				math.Round(strong[affect.Smile]), math.Round(strong[affect.LipPress])),
		}, true

	case has(affect.Squint) && has(affect.LipPress) && has(affect.BrowRaise):
		return Conflict{
			Rule:   RuleSkepticism,
			Reason: "Squint + Lip press + Brow raise - possible sarcasm or skepticism",
		}, true

	case has(affect.Smile) && has(affect.Frown):
		return Conflict{
			Rule:   RuleMixedMouth,
			Reason: "Mixed mouth signals - smile and frown detected",
		}, true
	}

	return Conflict{}, false
}
