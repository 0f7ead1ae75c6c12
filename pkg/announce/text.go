// Package announce turns results into short spoken phrases and decides
// when a phrase is worth saying.
package announce

import (
	"fmt"
	"strings"

	"github.com/teslashibe/go-mirrormind/pkg/affect"
)

// Fixed phrases.
const (
	PhraseLowMinimal   = "Low visibility"
	PhraseLow          = "It looks like visibility is low right now. Try adjusting the lighting or facing the camera more directly."
	PhraseMixedShort   = "Mixed signals"
	PhraseMixedMinimal = "I'm noticing some mixed signals"
	PhraseNeutral      = "Neutral"
	PhraseCalm         = "Things look calm and neutral right now - no strong signals to report."
)

const maxSpoken = 3

// Text builds the phrase for a result.
func Text(res affect.Result, s Settings) string {
	return text(res, s, s.IncludeEmotion)
}

func text(res affect.Result, s Settings, includeEmotion bool) string {
	if res.State == affect.StateLow {
		if s.Verbosity == VerbosityMinimal {
			return PhraseLowMinimal
		}
		return PhraseLow
	}

	top := res.Expressions
	if len(top) > maxSpoken {
		top = top[:maxSpoken]
	}

	if s.Mode == ModeSports {
		if len(top) == 0 {
			return PhraseNeutral
		}
		if res.State == affect.StateMixed {
			return PhraseMixedShort
		}
		return fmt.Sprintf("%s. %s.", top[0].Name, level(top[0].Strength))
	}

	if res.State == affect.StateMixed {
		if s.Verbosity == VerbosityMinimal {
			return PhraseMixedMinimal
		}
		return fmt.Sprintf("I'm picking up mixed signals: %s. That's completely normal - expressions can be complex.", res.StateReason)
	}

	if len(top) == 0 {
		if s.Verbosity == VerbosityMinimal {
			return PhraseNeutral
		}
		return PhraseCalm
	}

	emo := res.TopEmotion()
	emoName := strings.ToLower(emo.Name)
	conf := emo.Confidence
	if conf == 0 {
		conf = 50
	}

	if s.ExpressionsFirst {
		switch s.Verbosity {
		case VerbosityMinimal:
			return top[0].Name
		case VerbosityDetailed:
			details := make([]string, len(top))
			for i, e := range top {
				details[i] = fmt.Sprintf("%s at %.0f%%", strings.ToLower(e.Name), e.Strength)
			}
			out := fmt.Sprintf("I can see %s. %s. ", strings.Join(details, ", "), top[0].Evidence)
			if includeEmotion {
				out += fmt.Sprintf("This pattern often suggests %s - about %.0f%% likely.", emoName, conf)
			}
			return out
		default:
			out := fmt.Sprintf("I'm noticing %s.", names(top))
			if includeEmotion {
				out += fmt.Sprintf(" This often goes with feeling %s.", emoName)
			}
			return out
		}
	}

	if !includeEmotion {
		if s.Verbosity == VerbosityMinimal {
			return top[0].Name
		}
		return fmt.Sprintf("I'm noticing %s.", names(top))
	}

	switch s.Verbosity {
	case VerbosityMinimal:
		return emo.Name
	case VerbosityDetailed:
		return fmt.Sprintf("The overall feeling seems %s - about %.0f%% confident. This is based on %s.",
			emoName, conf, names(top))
	default:
		return fmt.Sprintf("It looks like %s. I'm seeing %s.", emoName, strings.ToLower(top[0].Name))
	}
}

// level buckets a strength for sports callouts.
func level(strength float64) string {
	switch {
	case strength > 70:
		return "High"
	case strength > 40:
		return "Medium"
	default:
		return "Low"
	}
}

func names(exprs []affect.Expression) string {
	out := make([]string, len(exprs))
	for i, e := range exprs {
		out[i] = strings.ToLower(e.Name)
	}
	return strings.Join(out, ", ")
}
