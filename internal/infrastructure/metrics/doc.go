// Package metrics exposes Prometheus metrics for imports and the read API.
//
// All collectors live under the "buildingdata" namespace and are registered
// on the Registerer passed to New, so tests can use a private registry.
//
//	m := metrics.New(prometheus.DefaultRegisterer)
//	m.RecordImport(metrics.ImportStats{Status: metrics.StatusOK, ...})
//	router.Handle("/metrics", promhttp.Handler())
package metrics
