package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Registered format names.
const (
	FormatCSV     = "csv"      // long or wide, detected from the header
	FormatLongCSV = "csv-long" // one reading per row
	FormatWideCSV = "wide-csv" // building-management export, one sensor per column
	FormatXLSX    = "xlsx"     // building-management export as a workbook
)

// Wide exports carry sensor metadata in fixed data rows below the header.
const (
	wideDescRow      = 3
	wideUnitRow      = 4
	wideFirstDataRow = 5
)

// maxExcelSerial separates spreadsheet serial dates from epoch milliseconds.
const maxExcelSerial = 1e6

type csvLayout int

const (
	layoutAuto csvLayout = iota
	layoutLong
	layoutWide
)

// Long-format column names, lower-cased. The first entry is canonical.
var longColumns = map[string][]string{
	"building":    {"building", "gebaeude", "gebäude"},
	"timestamp":   {"timestamp", "time", "datetime", "zeitstempel"},
	"type":        {"type", "sensor"},
	"description": {"description", "desc"},
	"unit":        {"unit", "einheit"},
	"value":       {"value", "wert"},
}

type csvFormat struct {
	layout csvLayout
}

func (f csvFormat) Decode(data []byte, src SourceInfo) (*RowSet, error) {
	records, err := readCSV(data)
	if err != nil {
		return nil, err
	}

	set := &RowSet{}
	header := normaliseHeader(records[0])
	layout := f.layout
	if layout == layoutAuto {
		layout = layoutWide
		if _, ok := lookupColumn(header, "value"); ok {
			layout = layoutLong
		}
	}

	if layout == layoutLong {
		return decodeLong(set, records, src)
	}
	return decodeWide(set, records, src, src.Times.Parse)
}

// readCSV parses delimited text, sniffing the delimiter from the first line.
func readCSV(data []byte) ([][]string, error) {
	data, err := textRecords(data)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSource, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records", ErrMalformedSource)
	}
	if len(records[0]) < 2 {
		return nil, fmt.Errorf("%w: header has a single column (delimiter %q)", ErrMalformedSource, r.Comma)
	}
	return records, nil
}

// sniffDelimiter picks the most frequent of ',', ';' and tab in the first line.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func normaliseHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}

// lookupColumn returns the last header index matching any alias of name.
func lookupColumn(header []string, name string) (int, bool) {
	idx, ok := -1, false
	for i, h := range header {
		for _, alias := range longColumns[name] {
			if h == alias {
				idx, ok = i, true
			}
		}
	}
	return idx, ok
}

// warnDuplicates records a DuplicateColumn warning for every repeated
// non-empty header cell. Callers resolve duplicates to the later column.
func warnDuplicates(set *RowSet, header []string, src SourceInfo, canonical func(string) string) {
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		key := canonical(h)
		if key == "" {
			continue
		}
		if seen[key] {
			set.warn(src.Path, key, KindDuplicateColumn, fmt.Sprintf("column %q appears more than once; the later column wins", h))
		}
		seen[key] = true
	}
}

func canonicalLongColumn(h string) string {
	for name, aliases := range longColumns {
		for _, alias := range aliases {
			if h == alias {
				return name
			}
		}
	}
	return ""
}

func decodeLong(set *RowSet, records [][]string, src SourceInfo) (*RowSet, error) {
	header := normaliseHeader(records[0])
	warnDuplicates(set, header, src, canonicalLongColumn)

	cols := make(map[string]int, len(longColumns))
	for name := range longColumns {
		if i, ok := lookupColumn(header, name); ok {
			cols[name] = i
		}
	}
	for _, required := range []string{"building", "timestamp", "type", "value"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: missing %s column", ErrSchemaMismatch, required)
		}
	}

	cell := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	badTimes, badRows := 0, 0
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		building, typ := cell(rec, "building"), cell(rec, "type")
		if building == "" || typ == "" {
			badRows++
			continue
		}
		ts, err := src.Times.Parse(cell(rec, "timestamp"))
		if err != nil {
			badTimes++
			continue
		}
		set.rows = append(set.rows, newRawRow(building, typ,
			cell(rec, "description"), cell(rec, "unit"), ts, parseValue(cell(rec, "value"))))
	}

	if badRows > 0 {
		set.warn(src.Path, "", KindBadRow, fmt.Sprintf("%d rows without building or type skipped", badRows))
	}
	if badTimes > 0 {
		set.warn(src.Path, "", KindBadTimestamp, fmt.Sprintf("%d rows with unparseable timestamp skipped", badTimes))
	}
	return set, nil
}

// decodeWide reads a building-management export: column 0 holds timestamps,
// every other header cell names a sensor type, data rows wideDescRow and
// wideUnitRow carry description and unit, readings start at wideFirstDataRow.
func decodeWide(set *RowSet, records [][]string, src SourceInfo, parseTime func(string) (int64, error)) (*RowSet, error) {
	header := records[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: no sensor columns", ErrSchemaMismatch)
	}
	if len(records) <= 1+wideUnitRow {
		return nil, fmt.Errorf("%w: missing description and unit rows", ErrSchemaMismatch)
	}

	trimmed := func(h string) string { return strings.TrimSpace(h) }
	warnDuplicates(set, header[1:], src, trimmed)

	// Later duplicate columns win.
	column := make(map[string]int, len(header))
	var types []string
	for i := 1; i < len(header); i++ {
		typ := strings.TrimSpace(header[i])
		if typ == "" {
			continue
		}
		if _, dup := column[typ]; !dup {
			types = append(types, typ)
		}
		column[typ] = i
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("%w: no sensor columns", ErrSchemaMismatch)
	}

	at := func(row, col int) string {
		rec := records[1+row]
		if col >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[col])
	}

	data := records[1+wideFirstDataRow:]
	parsed, badTimes := 0, 0
	for _, rec := range data {
		if isBlank(rec) {
			continue
		}
		ts, err := parseTime(rec[0])
		if err != nil {
			badTimes++
			continue
		}
		parsed++
		for _, typ := range types {
			col := column[typ]
			var raw string
			if col < len(rec) {
				raw = rec[col]
			}
			set.rows = append(set.rows, newRawRow(src.Building, typ,
				at(wideDescRow, col), at(wideUnitRow, col), ts, parseValue(raw)))
		}
	}

	if parsed == 0 && badTimes > 0 {
		return nil, fmt.Errorf("%w: first column holds no timestamps", ErrSchemaMismatch)
	}
	if badTimes > 0 {
		set.warn(src.Building, "", KindBadTimestamp, fmt.Sprintf("%d rows with unparseable timestamp skipped", badTimes))
	}
	return set, nil
}

type xlsxFormat struct{}

func (xlsxFormat) Decode(data []byte, src SourceInfo) (*RowSet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSource, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformedSource)
	}
	records, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSource, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: first sheet is empty", ErrMalformedSource)
	}

	parseTime := func(cell string) (int64, error) {
		if v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err == nil && v > 0 && v < maxExcelSerial {
			t, err := excelize.ExcelDateToTime(v, false)
			if err != nil {
				return 0, err
			}
			return src.Times.FromWall(t), nil
		}
		return src.Times.Parse(cell)
	}
	return decodeWide(&RowSet{}, records, src, parseTime)
}

// parseValue converts a value cell. Non-numeric cells become nil.
// A decimal comma is accepted ("1,5" or "1.234,5").
func parseValue(cell string) *float64 {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}
	s, ok := normaliseDecimal(s)
	if !ok {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// normaliseDecimal rewrites a number written with a decimal comma or with
// grouping separators into ParseFloat syntax. When both "," and "." appear the
// last one is the decimal separator. A lone comma followed by exactly three
// digits could be either and is rejected.
func normaliseDecimal(s string) (string, bool) {
	comma := strings.LastIndexByte(s, ',')
	if comma < 0 {
		return s, true
	}
	dot := strings.LastIndexByte(s, '.')
	switch {
	case dot > comma:
		return strings.ReplaceAll(s, ",", ""), true
	case dot >= 0:
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1), true
	case strings.Count(s, ",") > 1:
		return "", false
	case len(s)-comma-1 == 3:
		return "", false
	default:
		return strings.Replace(s, ",", ".", 1), true
	}
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
