// Package influxdb hands canonical datasets to InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched writes and health monitoring. After each import the
// hand-off writes every non-null reading of the dataset as one point:
//
//	building_data,building=EF\ 40a,sensor=Elektrizität,description=P\ Summe,unit=kW value=1.5355268051 1642809600000
//
// Null readings are skipped; InfluxDB has no representation for them.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	n := client.WriteDataset(ds, runID)
//
// # Error Handling
//
// Writes are non-blocking; batch errors are delivered to the callback set
// with SetOnError. Connection and health check errors are returned directly.
package influxdb
