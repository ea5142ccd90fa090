package importer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/nerrad567/building-data/internal/codec"
	"github.com/nerrad567/building-data/internal/dataset"
)

// DefaultMaxSourceBytes caps the decompressed size of one source file.
const DefaultMaxSourceBytes = 256 << 20

// RawRow is one reading as found in a source file, before alignment.
type RawRow struct {
	Building    string
	SensorKey   string
	Type        string
	Description string
	Unit        string
	Timestamp   int64 // epoch milliseconds
	Value       *float64
}

// Key returns the sensor identity of the row.
func (r RawRow) Key() dataset.SensorKey {
	return dataset.SensorKey{Type: r.Type, Desc: r.Description}
}

func newRawRow(building, typ, desc, unit string, ts int64, value *float64) RawRow {
	key := dataset.SensorKey{Type: typ, Desc: desc}
	return RawRow{
		Building:    building,
		SensorKey:   key.String(),
		Type:        typ,
		Description: desc,
		Unit:        unit,
		Timestamp:   ts,
		Value:       value,
	}
}

// RowSet is the decoded content of one source file.
//
// A RowSet is restartable: every call to Rows yields the same sequence.
type RowSet struct {
	source   string
	rows     []RawRow
	warnings []Warning
}

// Source returns the path the rows were read from.
func (s *RowSet) Source() string { return s.source }

// Rows returns the rows in file order.
func (s *RowSet) Rows() iter.Seq[RawRow] { return slices.Values(s.rows) }

// Len returns the number of rows.
func (s *RowSet) Len() int { return len(s.rows) }

// Warnings returns the non-fatal issues found while reading.
func (s *RowSet) Warnings() []Warning { return slices.Clone(s.warnings) }

func (s *RowSet) warn(building, typ, kind, detail string) {
	s.warnings = append(s.warnings, Warning{Building: building, Type: typ, Kind: kind, Detail: detail})
}

// Source identifies one input file.
type Source struct {
	Path string `json:"path"`

	// Format names a registered Format. Empty means "derive from extension".
	Format string `json:"format,omitempty"`
}

// SourceInfo is what a Format knows about the file it decodes.
type SourceInfo struct {
	Path string

	// Building is the file name without directory and extensions, used by
	// formats that hold a single building per file.
	Building string

	Times TimestampParser
}

// Format decodes one file's bytes into rows.
type Format interface {
	Decode(data []byte, src SourceInfo) (*RowSet, error)
}

// Reader reads source files into RowSets.
//
// Thread Safety: Read is safe for concurrent use once all formats are registered.
type Reader struct {
	formats  map[string]Format
	times    TimestampParser
	maxBytes int64
}

// NewReader creates a reader with the built-in formats registered.
func NewReader(times TimestampParser, maxBytes int64) *Reader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxSourceBytes
	}
	r := &Reader{
		formats:  make(map[string]Format),
		times:    times,
		maxBytes: maxBytes,
	}
	r.Register(FormatCSV, csvFormat{})
	r.Register(FormatLongCSV, csvFormat{layout: layoutLong})
	r.Register(FormatWideCSV, csvFormat{layout: layoutWide})
	r.Register(FormatXLSX, xlsxFormat{})
	return r
}

// Register adds or replaces a format under a name.
func (r *Reader) Register(name string, f Format) {
	r.formats[strings.ToLower(name)] = f
}

// Read decodes one source file.
//
// Returns an error wrapping ErrMalformedSource or ErrSchemaMismatch when the
// file cannot be used. The file is closed before Read returns.
func (r *Reader) Read(ctx context.Context, src Source) (*RowSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := src.Format
	if name == "" {
		name = FormatForPath(src.Path)
	}
	format, ok := r.formats[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s (format %q)", ErrMalformedSource, ErrUnknownFormat, src.Path, name)
	}

	data, err := r.load(src.Path)
	if err != nil {
		return nil, err
	}

	set, err := format.Decode(data, SourceInfo{
		Path:     src.Path,
		Building: BuildingName(src.Path),
		Times:    r.times,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Path, err)
	}
	set.source = src.Path
	return set, nil
}

func (r *Reader) load(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSource, err)
	}
	defer f.Close()

	dec, err := codec.NewReader(f, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedSource, path, err)
	}
	defer dec.Close()

	data, err := readAllLimited(dec, r.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedSource, path, err)
	}
	return data, nil
}

func readAllLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("exceeds %d bytes", limit)
	}
	return data, nil
}

// FormatForPath derives a format name from a file extension, ignoring any
// compression extension.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(codec.Strip(path))) {
	case ".csv", ".tsv", ".txt":
		return FormatCSV
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return ""
	}
}

// BuildingName returns the file name without directory and extensions.
// "data/EF 40a.xlsx.gz" becomes "EF 40a".
func BuildingName(path string) string {
	base := codec.Strip(filepath.Base(path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// textRecords validates a text source's encoding and strips a UTF-8 BOM.
func textRecords(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedSource)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: not valid UTF-8", ErrMalformedSource)
	}
	return data, nil
}
