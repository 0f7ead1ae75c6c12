package emotions

import (
	"strings"

	"github.com/teslashibe/go-mirrormind/pkg/affect"
)

// Describe explains an emotion guess in plain language, citing up to three
// of the expressions behind it.
func Describe(e affect.Emotion, exprs []affect.Expression) string {
	top := exprs
	if len(top) > 3 {
		top = top[:3]
	}
	names := make([]string, len(top))
	for i, x := range top {
		names[i] = strings.ToLower(x.Name)
	}
	list := strings.Join(names, ", ")

	switch strings.ToLower(e.Name) {
	case "happy":
		return "Based on " + list + ", suggests a positive emotional state"
	case "surprised":
		return "Open features (" + list + ") indicate surprise or interest"
	case "sad":
		return "Facial tension and brow position suggest sadness or emotional distress"
	case "neutral":
		return "Relaxed features with no strong emotional signals"
	default:
		return "Expression pattern suggests " + strings.ToLower(e.Name)
	}
}
