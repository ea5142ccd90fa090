// Package importer reads raw building-instrumentation files and canonicalises
// them into a dataset.Dataset.
//
// # Pipeline
//
// One import job flows leaf to root:
//
//	Reader          file bytes -> RawRow (per source, parallel)
//	BuildRegistry   RawRow -> []dataset.Sensor, unit conflicts as warnings
//	Align           RawRow of one (building, type) -> dataset.TimeSeries (parallel)
//	Assembler       contributions of one building -> *dataset.Building
//	Canonicalizer   all buildings -> dataset.Dataset + Summary
//
// # Source Formats
//
//   - csv: long ("building,timestamp,type,description,unit,value") or wide,
//     detected from the header
//   - csv-long, wide-csv: force one layout
//   - xlsx: wide export as a workbook (first sheet)
//
// The wide layout is the building-management export: the first column holds
// timestamps, header cells are sensor types, data rows 3 and 4 carry the
// description and unit, readings start at data row 5, and the building name
// is the file name. Any source may be compressed (.gz, .zst, .lz4).
//
// # Duplicate Resolution
//
// Readings at the same timestamp, from one file or several, are collapsed by
// a Policy. Null readings only survive when nothing else was read at that
// timestamp. Contributions are merged in source-path order and duplicate
// values are sorted before the policy sees them, so a job's output does not
// depend on file order.
//
// # Errors
//
// Import returns an error only when the job as a whole has nothing to work
// with (ErrImportAborted) or its context ends. Unreadable files, dropped
// sensors and dropped buildings are reported in the Summary.
//
// # Usage
//
//	im, err := importer.New(importer.Options{SourceDir: "data"}, logger)
//	if err != nil {
//	    return err
//	}
//	res, err := im.ImportDir(ctx)
//	if err != nil {
//	    return err
//	}
//	_ = res.Dataset.Encode(w)
package importer
