package importer

import (
	"fmt"

	"github.com/nerrad567/building-data/internal/dataset"
)

// BuildRegistry derives the distinct sensors of one building.
//
// Sensors are grouped by (type, description) and returned in first-seen
// order. When rows disagree on the unit of a sensor, the first-seen unit is
// kept and a ConflictingMetadata warning is recorded for each other unit.
func BuildRegistry(building string, rows []RawRow) ([]dataset.Sensor, []Warning) {
	var (
		sensors  []dataset.Sensor
		warnings []Warning
	)
	index := make(map[dataset.SensorKey]int)
	reported := make(map[dataset.SensorKey]map[string]bool)

	for _, row := range rows {
		key := row.Key()
		i, ok := index[key]
		if !ok {
			index[key] = len(sensors)
			sensors = append(sensors, dataset.Sensor{Type: row.Type, Desc: row.Description, Unit: row.Unit})
			continue
		}

		kept := sensors[i].Unit
		if row.Unit == kept || reported[key][row.Unit] {
			continue
		}
		if reported[key] == nil {
			reported[key] = make(map[string]bool)
		}
		reported[key][row.Unit] = true
		warnings = append(warnings, Warning{
			Building: building,
			Type:     row.Type,
			Kind:     KindConflictingMetadata,
			Detail:   fmt.Sprintf("sensor %s has unit %q, keeping first-seen %q", key, row.Unit, kept),
		})
	}
	return sensors, warnings
}
