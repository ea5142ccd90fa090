package dataset

import (
	"fmt"
	"sort"
)

// Sensor describes one logical measurement source of a building.
// Identity is the (Type, Desc) pair.
type Sensor struct {
	Type string `json:"type"`
	Desc string `json:"desc"`
	Unit string `json:"unit"`
}

// Key returns the identity of the sensor.
func (s Sensor) Key() SensorKey {
	return SensorKey{Type: s.Type, Desc: s.Desc}
}

// SensorKey is the (type, description) identity of a sensor within a building.
type SensorKey struct {
	Type string
	Desc string
}

// String renders the key for logs and warnings.
func (k SensorKey) String() string {
	if k.Desc == "" {
		return k.Type
	}
	return k.Type + " (" + k.Desc + ")"
}

// Building is the canonical record of one building.
//
// Invariants (checked by Validate):
//   - every Dataframe key has exactly one Sensor with that Type
//   - Sensors holds no duplicate (Type, Desc) pair
//   - Dataframe is non-empty
type Building struct {
	Name      string                `json:"name"`
	Sensors   []Sensor              `json:"sensors"`
	Dataframe map[string]TimeSeries `json:"dataframe"`
}

// Validate checks the structural invariants of the building.
func (b *Building) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidBuilding)
	}
	if len(b.Dataframe) == 0 {
		return fmt.Errorf("%w: %s has no series", ErrInvalidBuilding, b.Name)
	}

	keys := make(map[SensorKey]bool, len(b.Sensors))
	byType := make(map[string]int, len(b.Sensors))
	for _, s := range b.Sensors {
		if keys[s.Key()] {
			return fmt.Errorf("%w: %s lists sensor %s twice", ErrInvalidBuilding, b.Name, s.Key())
		}
		keys[s.Key()] = true
		byType[s.Type]++
	}

	for typ, series := range b.Dataframe {
		if byType[typ] != 1 {
			return fmt.Errorf("%w: %s series %q has %d sensors", ErrInvalidBuilding, b.Name, typ, byType[typ])
		}
		if series.Len() == 0 {
			return fmt.Errorf("%w: %s series %q is empty", ErrInvalidBuilding, b.Name, typ)
		}
	}
	return nil
}

// Sensor returns the descriptor for a sensor type.
func (b *Building) Sensor(typ string) (Sensor, bool) {
	for _, s := range b.Sensors {
		if s.Type == typ {
			return s, true
		}
	}
	return Sensor{}, false
}

// Types returns the dataframe sensor types in ascending order.
func (b *Building) Types() []string {
	types := make([]string, 0, len(b.Dataframe))
	for typ := range b.Dataframe {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// Timestamps returns the union of all series timestamps in ascending order.
func (b *Building) Timestamps() []int64 {
	seen := make(map[int64]bool)
	for _, series := range b.Dataframe {
		for _, t := range series.Timestamps() {
			seen[t] = true
		}
	}
	out := make([]int64, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Bounds returns the earliest and latest timestamp across all series.
func (b *Building) Bounds() (first, last int64, ok bool) {
	for _, series := range b.Dataframe {
		f, l, has := series.Bounds()
		if !has {
			continue
		}
		if !ok || f < first {
			first = f
		}
		if !ok || l > last {
			last = l
		}
		ok = true
	}
	return first, last, ok
}

// Slice returns the selected sensor series restricted to [from, to].
//
// Returns ErrSensorNotFound if any requested type has no series.
func (b *Building) Slice(types []string, from, to int64) (map[string]TimeSeries, error) {
	out := make(map[string]TimeSeries, len(types))
	for _, typ := range types {
		series, ok := b.Dataframe[typ]
		if !ok {
			return nil, fmt.Errorf("%w: %q in %s", ErrSensorNotFound, typ, b.Name)
		}
		out[typ] = series.Range(from, to)
	}
	return out, nil
}

// Clone returns a deep copy of the building.
func (b *Building) Clone() *Building {
	c := &Building{
		Name:      b.Name,
		Sensors:   append([]Sensor(nil), b.Sensors...),
		Dataframe: make(map[string]TimeSeries, len(b.Dataframe)),
	}
	for typ, series := range b.Dataframe {
		c.Dataframe[typ] = TimeSeries{points: clonePoints(series.points)}
	}
	return c
}
