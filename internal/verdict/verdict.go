// Package verdict reduces a 48-hour shovel forecast to a single recommendation.
package verdict

import (
	"encoding/json"
	"fmt"
)

// Verdict is the categorical shovel recommendation for a forecast window.
type Verdict string

const (
	No            Verdict = "no"
	IfYouWantTo   Verdict = "if_you_want_to"
	MaybeTomorrow Verdict = "maybe_tomorrow"
	Likely        Verdict = "likely"
	Absolutely    Verdict = "absolutely"
	Unknown       Verdict = "unknown"
)

// AbsolutelyDepthMM is the final snow depth at or above which a persistent
// shovel forecast becomes Absolutely instead of Likely.
const AbsolutelyDepthMM = 25.0

var messages = map[Verdict]string{
	No:            "Nope. No shoveling needed in the next 48 hours.",
	IfYouWantTo:   "Only if you want to. It should let up by tomorrow.",
	MaybeTomorrow: "Not today, but maybe tomorrow.",
	Likely:        "Likely. The snow is sticking around.",
	Absolutely:    "Absolutely. Grab the shovel.",
	Unknown:       "Unknown. We couldn't make sense of the forecast.",
}

// All returns every verdict in display order.
func All() []Verdict {
	return []Verdict{No, IfYouWantTo, MaybeTomorrow, Likely, Absolutely, Unknown}
}

// Message returns the sentence shown to the user for v.
func (v Verdict) Message() string {
	if m, ok := messages[v]; ok {
		return m
	}
	return messages[Unknown]
}

// Valid reports whether v is one of the known labels.
func (v Verdict) Valid() bool {
	_, ok := messages[v]
	return ok
}

// UnmarshalJSON accepts only the known labels.
func (v *Verdict) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed := Verdict(s)
	if !parsed.Valid() {
		return fmt.Errorf("unknown verdict %q", s)
	}
	*v = parsed
	return nil
}
