package importer

import (
	"fmt"
	"os"
	"strings"

	"github.com/nerrad567/building-data/internal/codec"
	"github.com/nerrad567/building-data/internal/dataset"
)

// WeatherSensor describes the outdoor temperature series joined into every
// building.
var WeatherSensor = dataset.Sensor{Type: "Temperatur", Desc: "Wetterstation", Unit: "°C"}

var (
	weatherTimeColumns  = []string{"timestamp", "time", "datetime", "date", "zeitstempel", "messdatum"}
	weatherValueColumns = []string{"temperature", "temperatur", "temp", "tt_tu", "value"}
)

// Weather station exports without a recognised header hold the timestamp and
// temperature in these columns.
const (
	weatherTimeFallback  = 2
	weatherValueFallback = 3
)

// ReadWeather reads a weather CSV into a series of temperature readings.
// Duplicate timestamps are averaged.
func ReadWeather(path string, times TimestampParser) (dataset.TimeSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataset.TimeSeries{}, fmt.Errorf("opening weather file: %w", err)
	}
	defer f.Close()

	dec, err := codec.NewReader(f, path)
	if err != nil {
		return dataset.TimeSeries{}, fmt.Errorf("opening weather file: %w", err)
	}
	defer dec.Close()

	data, err := readAllLimited(dec, DefaultMaxSourceBytes)
	if err != nil {
		return dataset.TimeSeries{}, fmt.Errorf("reading weather file: %w", err)
	}
	records, err := readCSV(data)
	if err != nil {
		return dataset.TimeSeries{}, fmt.Errorf("parsing weather file: %w", err)
	}

	header := normaliseHeader(records[0])
	tcol := findAny(header, weatherTimeColumns)
	vcol := findAny(header, weatherValueColumns)
	if tcol < 0 || vcol < 0 {
		if len(header) <= weatherValueFallback {
			return dataset.TimeSeries{}, fmt.Errorf("%w: weather file has no timestamp/temperature columns", ErrSchemaMismatch)
		}
		tcol, vcol = weatherTimeFallback, weatherValueFallback
	}

	rows := make([]RawRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		if tcol >= len(rec) || vcol >= len(rec) {
			continue
		}
		ts, err := times.Parse(rec[tcol])
		if err != nil {
			continue
		}
		rows = append(rows, RawRow{Type: WeatherSensor.Type, Timestamp: ts, Value: parseValue(rec[vcol])})
	}
	return Align(rows, Average)
}

// JoinWeather adds the weather series to every building, keeping only the
// building's own timestamps. A timestamp the weather series lacks gets a null
// reading. Buildings that already have the weather type, or whose timestamps
// never meet the weather series, are left unchanged and reported in the
// returned warnings.
func JoinWeather(d dataset.Dataset, weather dataset.TimeSeries) []Warning {
	var warnings []Warning
	for _, name := range d.Names() {
		b := d[name]
		if _, exists := b.Dataframe[WeatherSensor.Type]; exists {
			warnings = append(warnings, Warning{
				Building: name,
				Type:     WeatherSensor.Type,
				Kind:     KindConflictingMetadata,
				Detail:   "building already has a series of the weather type",
			})
			continue
		}

		timestamps := b.Timestamps()
		points := make([]dataset.Point, len(timestamps))
		matched := 0
		for i, ts := range timestamps {
			v, _ := weather.Get(ts)
			if v != nil {
				matched++
			}
			points[i] = dataset.Point{Timestamp: ts, Value: v}
		}
		if matched == 0 {
			warnings = append(warnings, Warning{
				Building: name,
				Type:     WeatherSensor.Type,
				Kind:     KindEmptySeries,
				Detail:   "no weather reading at any building timestamp",
			})
			continue
		}

		series, err := dataset.NewTimeSeries(points)
		if err != nil {
			continue
		}
		b.Sensors = append(b.Sensors, WeatherSensor)
		b.Dataframe[WeatherSensor.Type] = series
	}
	return warnings
}

func findAny(header []string, names []string) int {
	for i, h := range header {
		for _, name := range names {
			if h == name || strings.HasPrefix(h, name+" ") || strings.HasPrefix(h, name+"(") {
				return i
			}
		}
	}
	return -1
}
