// Package catalog holds the static reference data the planner falls back on:
// the station directory with its fuzzy text matcher, and the precomputed
// route plans keyed by normalized (start, destination) pairs.
package catalog

import (
	"strings"

	"github.com/antzucaro/matchr"

	"metrovoice/pkg/plan"
)

// StationDescriptor describes one station in the directory.
type StationDescriptor struct {
	ID       string           `yaml:"id"`
	Name     string           `yaml:"name"`
	Landmark string           `yaml:"landmark"`
	Phonetic string           `yaml:"phonetic"`
	Lines    []plan.LineColor `yaml:"lines"`
}

const (
	// phoneticThreshold is the minimum Jaro-Winkler score for a
	// Double-Metaphone candidate to be accepted in the phonetic pass.
	phoneticThreshold = 0.70
)

// Stations is an ordered, read-only station directory. Safe for concurrent
// use after construction.
type Stations struct {
	entries []StationDescriptor
}

// NewStations builds a directory from the given ordered descriptors.
func NewStations(entries []StationDescriptor) *Stations {
	out := make([]StationDescriptor, len(entries))
	copy(out, entries)
	return &Stations{entries: out}
}

// DefaultStations returns the shipped six-station metro directory.
func DefaultStations() *Stations {
	return NewStations([]StationDescriptor{
		{ID: "1", Name: "Central", Landmark: "Main City Hub 🏙️", Phonetic: "Cen-tral", Lines: []plan.LineColor{plan.LineBlue, plan.LineGreen}},
		{ID: "2", Name: "Park Street", Landmark: "City Mall Area 🛍️", Phonetic: "Park Street", Lines: []plan.LineColor{plan.LineBlue}},
		{ID: "3", Name: "Riverside", Landmark: "River View 🌊", Phonetic: "River-side", Lines: []plan.LineColor{plan.LinePurple}},
		{ID: "4", Name: "Junction Station", Landmark: "Change Trains 🔁", Phonetic: "Junc-tion", Lines: []plan.LineColor{plan.LineBlue, plan.LinePurple}},
		{ID: "5", Name: "Downtown", Landmark: "Business District 💼", Phonetic: "Down-town", Lines: []plan.LineColor{plan.LineGreen}},
		{ID: "6", Name: "Airport", Landmark: "Flights ✈️", Phonetic: "Air-port", Lines: []plan.LineColor{plan.LineGreen}},
	})
}

// All returns the stations in catalog order. The returned slice is a copy.
func (s *Stations) All() []StationDescriptor {
	out := make([]StationDescriptor, len(s.entries))
	copy(out, s.entries)
	return out
}

// Names returns the canonical station names in catalog order.
func (s *Stations) Names() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Name
	}
	return out
}

// FindByFuzzyText matches free-form text against the directory.
//
// Phase 1 is bidirectional case-insensitive containment: the first station in
// catalog order whose name contains the input, or is contained in the input,
// wins. Phase 2, entered only when containment finds nothing, handles
// misheard speech: Double Metaphone codes narrow the candidates and
// Jaro-Winkler similarity ranks them, so "sentral" still lands on Central.
//
// Returns (nil, false) when no station matches either pass.
func (s *Stations) FindByFuzzyText(text string) (*StationDescriptor, bool) {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return nil, false
	}

	for i := range s.entries {
		name := strings.ToLower(s.entries[i].Name)
		if strings.Contains(needle, name) || strings.Contains(name, needle) {
			st := s.entries[i]
			return &st, true
		}
	}

	return s.phoneticMatch(needle)
}

// phoneticMatch ranks stations whose Double Metaphone codes overlap the
// input's by Jaro-Winkler similarity on the full strings.
func (s *Stations) phoneticMatch(needle string) (*StationDescriptor, bool) {
	inputCodes := metaphoneCodes(strings.Fields(needle))

	var (
		best      *StationDescriptor
		bestScore float64
	)
	for i := range s.entries {
		name := strings.ToLower(s.entries[i].Name)
		nameCodes := metaphoneCodes(strings.Fields(name))
		if !codesOverlap(inputCodes, nameCodes) {
			continue
		}
		if score := matchr.JaroWinkler(needle, name, false); score >= phoneticThreshold && score > bestScore {
			st := s.entries[i]
			best, bestScore = &st, score
		}
	}
	return best, best != nil
}

// metaphoneCodes returns the union of Double Metaphone codes for the tokens,
// excluding empty codes.
func metaphoneCodes(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, sec := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if sec != "" {
			codes[sec] = struct{}{}
		}
	}
	return codes
}

// codesOverlap reports whether the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}
