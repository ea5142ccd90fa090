// Package api implements the HTTP read API of the building data service.
//
// This package provides:
//   - Read endpoints over the served dataset (buildings, sensors, series
//     values, timestamps, time slices, the whole canonical dataset)
//   - Import history endpoints and a POST endpoint that runs an import
//   - A status endpoint and the Prometheus /metrics endpoint
//   - Middleware stack (request ID, logging, recovery, metrics, body limit)
//
// # Architecture
//
// Handlers read the dataset from a dataset.Store, which swaps whole datasets
// after each successful import. A request therefore always sees one
// consistent dataset, even while an import is running.
//
// Errors use a structured body:
//
//	{"status": 404, "code": "not_found", "message": "Building not found"}
package api
