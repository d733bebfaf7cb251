// Package emotion defines the closed set of moods that drive recommendations
// and the genre weight table associated with each of them.
package emotion

import (
	"strings"

	"github.com/cinemood/cinemood-server/internal/errors"
)

// Emotion is a mood label. Only the constants below are valid.
type Emotion string

// Supported emotions.
const (
	Happy     Emotion = "happy"
	Sad       Emotion = "sad"
	Angry     Emotion = "angry"
	Surprised Emotion = "surprised"
	Neutral   Emotion = "neutral"
)

var all = []Emotion{Happy, Sad, Angry, Surprised, Neutral}

// All returns every supported emotion in display order.
func All() []Emotion {
	out := make([]Emotion, len(all))
	copy(out, all)
	return out
}

// Valid reports whether e is one of the supported emotions.
func (e Emotion) Valid() bool {
	switch e {
	case Happy, Sad, Angry, Surprised, Neutral:
		return true
	}
	return false
}

func (e Emotion) String() string {
	return string(e)
}

// Parse reads an emotion name, ignoring case and surrounding space.
// Unknown names are an invalid argument; there is no default.
func Parse(raw string) (Emotion, error) {
	e := Emotion(strings.ToLower(strings.TrimSpace(raw)))
	if !e.Valid() {
		return "", unknown(raw)
	}
	return e, nil
}

// Check reports an invalid argument unless e is exactly one of the supported
// emotions. Unlike Parse it does not normalise case or space.
func Check(e Emotion) error {
	if !e.Valid() {
		return unknown(string(e))
	}
	return nil
}

func unknown(raw string) error {
	return errors.InvalidArgumentf("unknown emotion %q", raw).
		WithDetails(map[string]any{"allowed": Names()})
}

// Names returns the supported emotion names.
func Names() []string {
	names := make([]string, len(all))
	for i, e := range all {
		names[i] = string(e)
	}
	return names
}

// detectorLabels maps classifier vocabulary onto the supported set.
var detectorLabels = map[string]Emotion{
	"happy":     Happy,
	"happiness": Happy,
	"sad":       Sad,
	"sadness":   Sad,
	"fear":      Sad,
	"angry":     Angry,
	"anger":     Angry,
	"disgust":   Angry,
	"surprise":  Surprised,
	"surprised": Surprised,
	"neutral":   Neutral,
}

// FromDetectorLabel maps a raw classifier label to an Emotion.
// Unmapped labels return Neutral with ok set to false.
func FromDetectorLabel(label string) (e Emotion, ok bool) {
	e, ok = detectorLabels[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return Neutral, false
	}
	return e, true
}

// Badge is the display metadata for an emotion.
type Badge struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

var badges = map[Emotion]Badge{
	Happy:     {Label: "Happy", Color: "green"},
	Sad:       {Label: "Sad", Color: "blue"},
	Angry:     {Label: "Angry", Color: "red"},
	Surprised: {Label: "Surprised", Color: "purple"},
	Neutral:   {Label: "Neutral", Color: "gray"},
}

// Describe returns the badge for e. Invalid emotions get the neutral badge.
func Describe(e Emotion) Badge {
	if b, ok := badges[e]; ok {
		return b
	}
	return badges[Neutral]
}
