package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Point is a single reading in a TimeSeries.
// A nil Value is an explicit missing reading.
type Point struct {
	Timestamp int64
	Value     *float64
}

// TimeSeries is an ordered mapping from epoch-millisecond timestamp to value.
//
// Timestamps are strictly increasing. The zero value is an empty series.
// A TimeSeries is immutable once built; accessors return copies.
type TimeSeries struct {
	points []Point
}

// NewTimeSeries builds a series from points that are already in strictly
// increasing timestamp order.
//
// Returns ErrUnorderedSeries if the order invariant does not hold.
func NewTimeSeries(points []Point) (TimeSeries, error) {
	for i := 1; i < len(points); i++ {
		if points[i].Timestamp <= points[i-1].Timestamp {
			return TimeSeries{}, fmt.Errorf("%w: %d after %d",
				ErrUnorderedSeries, points[i].Timestamp, points[i-1].Timestamp)
		}
	}
	return TimeSeries{points: clonePoints(points)}, nil
}

// Len returns the number of timestamps in the series.
func (ts TimeSeries) Len() int {
	return len(ts.points)
}

// Points returns a copy of the series points in timestamp order.
func (ts TimeSeries) Points() []Point {
	return clonePoints(ts.points)
}

// Timestamps returns the series timestamps in ascending order.
func (ts TimeSeries) Timestamps() []int64 {
	out := make([]int64, len(ts.points))
	for i, p := range ts.points {
		out[i] = p.Timestamp
	}
	return out
}

// Values returns the series values in timestamp order.
func (ts TimeSeries) Values() []*float64 {
	out := make([]*float64, len(ts.points))
	for i, p := range ts.points {
		out[i] = cloneValue(p.Value)
	}
	return out
}

// Get returns the value at timestamp t.
// The boolean is false when t is not present in the series.
func (ts TimeSeries) Get(t int64) (*float64, bool) {
	i := sort.Search(len(ts.points), func(i int) bool { return ts.points[i].Timestamp >= t })
	if i < len(ts.points) && ts.points[i].Timestamp == t {
		return cloneValue(ts.points[i].Value), true
	}
	return nil, false
}

// Bounds returns the first and last timestamp.
// The boolean is false for an empty series.
func (ts TimeSeries) Bounds() (first, last int64, ok bool) {
	if len(ts.points) == 0 {
		return 0, 0, false
	}
	return ts.points[0].Timestamp, ts.points[len(ts.points)-1].Timestamp, true
}

// Range returns the sub-series with from <= timestamp <= to.
func (ts TimeSeries) Range(from, to int64) TimeSeries {
	lo := sort.Search(len(ts.points), func(i int) bool { return ts.points[i].Timestamp >= from })
	hi := sort.Search(len(ts.points), func(i int) bool { return ts.points[i].Timestamp > to })
	if lo >= hi {
		return TimeSeries{}
	}
	return TimeSeries{points: clonePoints(ts.points[lo:hi])}
}

// Equal reports whether two series hold the same timestamps and values.
func (ts TimeSeries) Equal(other TimeSeries) bool {
	if len(ts.points) != len(other.points) {
		return false
	}
	for i, p := range ts.points {
		q := other.points[i]
		if p.Timestamp != q.Timestamp {
			return false
		}
		if (p.Value == nil) != (q.Value == nil) {
			return false
		}
		if p.Value != nil && *p.Value != *q.Value {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the series as an object keyed by stringified
// epoch-millisecond timestamps, in ascending order.
func (ts TimeSeries) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range ts.points {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strconv.FormatInt(p.Timestamp, 10))
		buf.WriteString(`":`)
		if p.Value == nil {
			buf.WriteString("null")
			continue
		}
		v, err := json.Marshal(*p.Value)
		if err != nil {
			return nil, fmt.Errorf("encoding value at %d: %w", p.Timestamp, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the object form produced by MarshalJSON.
// Key order in the input does not matter; the result is sorted.
func (ts *TimeSeries) UnmarshalJSON(data []byte) error {
	var raw map[string]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding series: %w", err)
	}

	points := make([]Point, 0, len(raw))
	for key, v := range raw {
		t, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidTimestamp, key)
		}
		points = append(points, Point{Timestamp: t, Value: v})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })

	ts.points = points
	return nil
}

func clonePoints(points []Point) []Point {
	if len(points) == 0 {
		return nil
	}
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{Timestamp: p.Timestamp, Value: cloneValue(p.Value)}
	}
	return out
}

func cloneValue(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Float returns a pointer to v. Convenience for building points.
func Float(v float64) *float64 {
	return &v
}
