package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/building-data/internal/dataset"
)

// Measurement is the InfluxDB measurement canonical readings are written to.
const Measurement = "building_data"

// Points converts a dataset into InfluxDB points, one per non-null reading.
// Buildings, sensors and timestamps are visited in ascending order.
//
// Tags:
//   - building: building name
//   - sensor: sensor type (the dataframe column)
//   - description, unit: sensor metadata, omitted when empty
//   - run: import run ID, omitted when empty
func Points(d dataset.Dataset, runID string) []*write.Point {
	var points []*write.Point
	for _, name := range d.Names() {
		b := d[name]
		for _, typ := range b.Types() {
			tags := map[string]string{
				"building": name,
				"sensor":   typ,
			}
			if s, ok := b.Sensor(typ); ok {
				if s.Desc != "" {
					tags["description"] = s.Desc
				}
				if s.Unit != "" {
					tags["unit"] = s.Unit
				}
			}
			if runID != "" {
				tags["run"] = runID
			}

			for _, p := range b.Dataframe[typ].Points() {
				if p.Value == nil {
					continue
				}
				points = append(points, write.NewPoint(
					Measurement,
					tags,
					map[string]any{"value": *p.Value},
					time.UnixMilli(p.Timestamp),
				))
			}
		}
	}
	return points
}

// WriteDataset queues every non-null reading of d and flushes the batch.
// It returns the number of points written; 0 when not connected.
// Write failures are reported through the SetOnError callback.
func (c *Client) WriteDataset(d dataset.Dataset, runID string) int {
	if !c.IsConnected() {
		return 0
	}

	points := Points(d, runID)
	for _, p := range points {
		c.writeAPI.WritePoint(p)
	}
	c.writeAPI.Flush()
	return len(points)
}
