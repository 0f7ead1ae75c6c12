package affect

// Expression IDs.
const (
	Smile           = "smile"
	Smirk           = "smirk"
	Frown           = "frown"
	MouthOpen       = "mouth_open"
	LipPress        = "lip_press"
	LipStretch      = "lip_stretch"
	InnerBrowRaise  = "inner_brow_raise"
	DroopingEyelids = "drooping_eyelids"
	MouthTension    = "mouth_dimple"
	LipPurse        = "lip_purse"
	BrowRaise       = "brow_raise"
	BrowFurrow      = "brow_furrow"
	Squint          = "squint"
	WideEyes        = "wide_eyes"
	NoseWrinkle     = "nose_wrinkle"
	HeadTilt        = "head_tilt"
)

// Emotion names.
const (
	Happy     = "Happy"
	Sad       = "Sad"
	Surprised = "Surprised"
)

var expressionNames = map[string]string{
	Smile:           "Smile",
	Smirk:           "Smirk",
	Frown:           "Frown",
	MouthOpen:       "Mouth Open",
	LipPress:        "Lip Press",
	LipStretch:      "Lip Stretch",
	InnerBrowRaise:  "Inner Brow Raise",
	DroopingEyelids: "Drooping Eyelids",
	MouthTension:    "Mouth Tension",
	LipPurse:        "Lip Purse",
	BrowRaise:       "Eyebrows Raised",
	BrowFurrow:      "Brow Furrow",
	Squint:          "Squint",
	WideEyes:        "Wide Eyes",
	NoseWrinkle:     "Nose Wrinkle",
	HeadTilt:        "Head Tilt",
}

// ExpressionName returns the display name for an expression ID.
// Unknown IDs are returned unchanged.
func ExpressionName(id string) string {
	if n, ok := expressionNames[id]; ok {
		return n
	}
	return id
}

// BlendshapeExpressions lists the IDs scored from blendshape activations.
func BlendshapeExpressions() []string {
	return []string{
		Smile, Smirk, Frown, MouthOpen, LipPress, LipStretch, InnerBrowRaise,
		DroopingEyelids, MouthTension, LipPurse, BrowRaise, BrowFurrow,
		Squint, WideEyes, NoseWrinkle,
	}
}
