package importer

import "sort"

// Warning kinds recorded in Summary.Warnings.
const (
	KindConflictingMetadata = "ConflictingMetadata"
	KindEmptySeries         = "EmptySeries"
	KindDuplicateColumn     = "DuplicateColumn"
	KindBadTimestamp        = "BadTimestamp"
	KindBadRow              = "BadRow"
	KindWeather             = "WeatherUnavailable"
)

// Drop reasons recorded in Summary.Dropped.
const (
	ReasonInvalidBuilding = "InvalidBuilding"
	ReasonMalformedSource = "MalformedSource"
	ReasonSchemaMismatch  = "SchemaMismatch"
)

// Warning is a non-fatal issue attached to a building (or a source path when
// no building is known).
type Warning struct {
	Building string `json:"building"`
	Type     string `json:"type"`
	Kind     string `json:"kind"`
	Detail   string `json:"detail"`
}

// Drop records a building or source excluded from the dataset.
type Drop struct {
	Building string `json:"building"`
	Reason   string `json:"reason"`
	Detail   string `json:"detail,omitempty"`
}

// Summary is the observable side channel of an import job.
type Summary struct {
	Imported int       `json:"imported"`
	Dropped  []Drop    `json:"dropped"`
	Warnings []Warning `json:"warnings"`
}

func newSummary() Summary {
	return Summary{Dropped: []Drop{}, Warnings: []Warning{}}
}

// Count returns the number of warnings of the given kind.
func (s Summary) Count(kind string) int {
	n := 0
	for _, w := range s.Warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}

// WarningsByKind tallies warnings per kind.
func (s Summary) WarningsByKind() map[string]int {
	out := make(map[string]int)
	for _, w := range s.Warnings {
		out[w.Kind]++
	}
	return out
}

// DroppedBuildings returns the distinct names in Dropped, sorted.
func (s Summary) DroppedBuildings() []string {
	seen := make(map[string]bool, len(s.Dropped))
	names := make([]string, 0, len(s.Dropped))
	for _, d := range s.Dropped {
		if !seen[d.Building] {
			seen[d.Building] = true
			names = append(names, d.Building)
		}
	}
	sort.Strings(names)
	return names
}
