// Package handoff delivers the result of a successful import to downstream
// consumers.
//
// Three sinks are supported, each optional:
//   - MQTT: the retained import summary and building list
//   - InfluxDB: every non-null reading as a point
//   - Snapshot: the canonical dataset written to a file, compressed by
//     extension (.gz, .zst, .lz4)
//
// Hand-off never fails an import. Sink errors are logged, counted in the
// metrics and returned in the Report for the caller to inspect.
package handoff
