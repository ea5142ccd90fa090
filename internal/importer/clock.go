package importer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone data for hosts without /usr/share/zoneinfo
)

// Clock selects how wall-clock timestamps in source files are interpreted.
type Clock string

const (
	// ClockUTC reads wall-clock timestamps as UTC.
	ClockUTC Clock = "utc"

	// ClockStandard reads wall-clock timestamps in a local zone and removes
	// daylight saving time, so a whole series is in standard time. The
	// corrected wall clock is then read as UTC.
	//
	// Readings taken in the repeated autumn hour are read as standard time.
	ClockStandard Clock = "standard"
)

// wallLayouts are the accepted wall-clock formats, tried in order.
var wallLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
}

// errBadTimestamp marks a cell that is not a timestamp.
var errBadTimestamp = errors.New("unparseable timestamp")

// TimestampParser converts timestamp cells into epoch milliseconds.
type TimestampParser struct {
	clock Clock
	loc   *time.Location
}

// NewTimestampParser creates a parser for the given clock mode.
// loc is required for ClockStandard and ignored for ClockUTC.
func NewTimestampParser(clock Clock, loc *time.Location) (TimestampParser, error) {
	switch clock {
	case "", ClockUTC:
		return TimestampParser{clock: ClockUTC, loc: time.UTC}, nil
	case ClockStandard:
		if loc == nil {
			return TimestampParser{}, fmt.Errorf("%w: clock %q needs a location", ErrInvalidOptions, clock)
		}
		return TimestampParser{clock: ClockStandard, loc: loc}, nil
	default:
		return TimestampParser{}, fmt.Errorf("%w: unknown clock %q", ErrInvalidOptions, clock)
	}
}

// Parse converts a cell to epoch milliseconds.
//
// An all-digit cell is already epoch milliseconds. RFC 3339 values carry
// their own offset. Anything else must match one of the wall-clock layouts.
func (p TimestampParser) Parse(cell string) (int64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, errBadTimestamp
	}
	if ms, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return ms, nil
	}
	if t, err := time.Parse(time.RFC3339, cell); err == nil {
		return t.UnixMilli(), nil
	}
	for _, layout := range wallLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return p.FromWall(t), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", errBadTimestamp, cell)
}

// FromWall converts a wall-clock time (its fields, not its zone) to epoch
// milliseconds according to the clock mode.
func (p TimestampParser) FromWall(t time.Time) int64 {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	if p.clock != ClockStandard {
		return wall.UnixMilli()
	}

	std := standardOffset(p.loc, wall.Year())
	// Read the wall clock as standard time. If the zone is not on standard
	// time at that instant, the reading was taken during daylight saving.
	_, off := time.Unix(wall.Unix()-int64(std), 0).In(p.loc).Zone()
	if off > std {
		wall = wall.Add(-time.Duration(off-std) * time.Second)
	}
	return wall.UnixMilli()
}

// standardOffset returns the zone's standard UTC offset in seconds for a year,
// taken as the smaller of the January and July offsets.
func standardOffset(loc *time.Location, year int) int {
	_, jan := time.Date(year, time.January, 1, 12, 0, 0, 0, loc).Zone()
	_, jul := time.Date(year, time.July, 1, 12, 0, 0, 0, loc).Zone()
	return min(jan, jul)
}
