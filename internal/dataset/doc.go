// Package dataset defines the canonical building dataset.
//
// A Dataset maps building names to Building records. Each Building carries
// its ordered sensor list and a dataframe: one TimeSeries per sensor type,
// keyed by epoch-millisecond timestamps.
//
// # Wire Format
//
// The JSON encoding is the interchange contract with the preprocessing and
// feature-engineering services and must not change shape:
//
//	{
//	  "buildingA": {
//	    "name": "buildingA",
//	    "sensors": [{"type": "Elektrizität", "desc": "P Summe", "unit": "kW"}],
//	    "dataframe": {
//	      "Elektrizität": {"1642809600000": 1.5355268051, "1642810500000": 0.5147979489}
//	    }
//	  }
//	}
//
// Buildings, sensor types and timestamps are emitted in ascending order, so
// encoding the same Dataset twice yields identical bytes. Missing readings
// are encoded as null.
//
// # Ownership
//
// A Dataset returned by the importer is owned by the caller. Store provides
// an atomically swappable holder for services that replace the dataset on
// re-import while readers are active.
package dataset
