// Package pipeline runs import jobs end to end.
//
// One job is: import the source directory, record the run in the history,
// update the metrics, swap the served dataset and hand the result off to
// MQTT, InfluxDB and the snapshot file. An aborted import is recorded but
// leaves the served dataset untouched.
//
// Only one job runs at a time. Jobs start from the API, from an MQTT
// request, on startup or on the configured interval.
package pipeline
