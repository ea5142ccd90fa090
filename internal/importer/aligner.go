package importer

import (
	"fmt"
	"slices"

	"github.com/nerrad567/building-data/internal/dataset"
)

// Align turns the raw rows of one (building, type) pair into a TimeSeries.
//
// Rows are grouped by timestamp. A timestamp with one non-null value keeps it;
// several non-null values are collapsed by policy; a timestamp whose values are
// all null keeps an explicit null. The result is sorted ascending and no gaps
// are filled.
//
// Returns ErrEmptySeries when no timestamp holds a non-null value.
func Align(rows []RawRow, policy Policy) (dataset.TimeSeries, error) {
	if policy == nil {
		policy = Average
	}

	groups := make(map[int64][]float64, len(rows))
	for _, row := range rows {
		vals := groups[row.Timestamp]
		if row.Value != nil {
			vals = append(vals, *row.Value)
		}
		groups[row.Timestamp] = vals
	}

	timestamps := make([]int64, 0, len(groups))
	for ts := range groups {
		timestamps = append(timestamps, ts)
	}
	slices.Sort(timestamps)

	points := make([]dataset.Point, 0, len(timestamps))
	numeric := 0
	for _, ts := range timestamps {
		vals := groups[ts]
		var value *float64
		switch len(vals) {
		case 0:
		case 1:
			value = dataset.Float(vals[0])
		default:
			slices.Sort(vals)
			value = dataset.Float(policy(vals))
		}
		if value != nil {
			numeric++
		}
		points = append(points, dataset.Point{Timestamp: ts, Value: value})
	}

	if numeric == 0 {
		return dataset.TimeSeries{}, fmt.Errorf("%w: %d rows, no numeric reading", ErrEmptySeries, len(rows))
	}
	return dataset.NewTimeSeries(points)
}
