package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/building-data/internal/codec"
	"github.com/nerrad567/building-data/internal/dataset"
)

// Default option values.
const (
	DefaultWorkers = 4
)

// DefaultExtensions are the source file extensions picked up by Discover.
var DefaultExtensions = []string{".csv", ".xlsx"}

// Logger is the logging surface the importer needs. *slog.Logger and
// logging.Logger satisfy it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Options configure an Importer. They are copied by New and never modified
// afterwards.
type Options struct {
	// SourceDir is walked by Discover and ImportDir.
	SourceDir string

	// Extensions filters discovered files (compression extensions are ignored
	// when matching). Defaults to DefaultExtensions.
	Extensions []string

	// Format forces one registered format for every discovered source.
	Format string

	// Workers bounds parallel file reads and per-sensor alignment.
	Workers int

	// Policy resolves duplicate timestamps. Defaults to Average.
	Policy Policy

	// Clock and Location control wall-clock timestamp interpretation.
	Clock    Clock
	Location *time.Location

	// WeatherPath optionally names a weather CSV joined into every building.
	WeatherPath string

	// MaxSourceBytes caps the decompressed size of one source.
	MaxSourceBytes int64
}

// Result is the outcome of one import job. The Dataset is owned by the caller.
type Result struct {
	Dataset dataset.Dataset
	Summary Summary
	Sources []Source
}

// Importer runs import jobs. It holds configuration only; no dataset state
// survives between calls.
//
// Thread Safety: Import may be called concurrently.
type Importer struct {
	opts   Options
	times  TimestampParser
	reader *Reader
	canon  *Canonicalizer
	logger Logger
}

// New creates an importer.
//
// Parameters:
//   - opts: import configuration, copied
//   - logger: destination for drop and warning logs; nil discards
//
// Returns:
//   - *Importer: ready to run jobs
//   - error: wraps ErrInvalidOptions if the configuration is unusable
func New(opts Options, logger Logger) (*Importer, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	opts.Extensions = normaliseExtensions(opts.Extensions)
	if opts.Policy == nil {
		opts.Policy = Average
	}

	times, err := NewTimestampParser(opts.Clock, opts.Location)
	if err != nil {
		return nil, err
	}

	reader := NewReader(times, opts.MaxSourceBytes)
	if opts.Format != "" {
		if _, ok := reader.formats[strings.ToLower(opts.Format)]; !ok {
			return nil, fmt.Errorf("%w: %w: %q", ErrInvalidOptions, ErrUnknownFormat, opts.Format)
		}
	}

	return &Importer{
		opts:   opts,
		times:  times,
		reader: reader,
		canon:  NewCanonicalizer(NewAssembler(opts.Policy, opts.Workers)),
		logger: logger,
	}, nil
}

// Reader returns the importer's source reader, for registering extra formats
// before the first job.
func (im *Importer) Reader() *Reader {
	return im.reader
}

// Discover walks SourceDir and returns matching files in ascending path order.
// The weather file, hidden files and spreadsheet lock files are skipped.
func (im *Importer) Discover() ([]Source, error) {
	if im.opts.SourceDir == "" {
		return nil, fmt.Errorf("%w: no source directory", ErrInvalidOptions)
	}

	weather := ""
	if im.opts.WeatherPath != "" {
		weather = absPath(im.opts.WeatherPath)
	}

	var sources []Source
	err := filepath.WalkDir(im.opts.SourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			return nil
		}
		if weather != "" && absPath(path) == weather {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(codec.Strip(name)))
		if !slices.Contains(im.opts.Extensions, ext) {
			return nil
		}
		sources = append(sources, Source{Path: path, Format: im.opts.Format})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", im.opts.SourceDir, err)
	}

	slices.SortFunc(sources, func(a, b Source) int { return strings.Compare(a.Path, b.Path) })
	return sources, nil
}

// absPath returns the absolute form of path, or its cleaned form when the
// working directory is unknown.
func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// ImportDir discovers sources under SourceDir and imports them.
func (im *Importer) ImportDir(ctx context.Context) (*Result, error) {
	sources, err := im.Discover()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImportAborted, err)
	}
	return im.Import(ctx, sources)
}

// Import runs one import job over the given sources.
//
// Files are read in parallel. Unreadable files are dropped and recorded in
// the summary; buildings and sensors without usable data are dropped the same
// way. The job fails only when no source yields any row (ErrImportAborted)
// or ctx is cancelled.
func (im *Importer) Import(ctx context.Context, sources []Source) (*Result, error) {
	started := time.Now()
	sources = uniqueSources(sources)
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no source files", ErrImportAborted)
	}

	sets := make([]*RowSet, len(sources))
	errs := make([]error, len(sources))

	var g errgroup.Group
	g.SetLimit(im.opts.Workers)
	for i, src := range sources {
		g.Go(func() error {
			sets[i], errs[i] = im.reader.Read(ctx, src)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	drops := []Drop{}
	warnings := []Warning{}
	var contribs []Contribution
	rows := 0
	for i, src := range sources {
		if errs[i] != nil {
			reason := ReasonMalformedSource
			if errors.Is(errs[i], ErrSchemaMismatch) {
				reason = ReasonSchemaMismatch
			}
			drops = append(drops, Drop{Building: src.Path, Reason: reason, Detail: errs[i].Error()})
			continue
		}
		rows += sets[i].Len()
		warnings = append(warnings, sets[i].Warnings()...)
		contribs = append(contribs, splitByBuilding(sets[i])...)
	}
	if rows == 0 {
		for _, d := range drops {
			im.logger.Warn("source dropped", "path", d.Building, "reason", d.Reason, "detail", d.Detail)
		}
		return nil, fmt.Errorf("%w: none of %d sources held usable rows", ErrImportAborted, len(sources))
	}

	d, summary, err := im.canon.Canonicalize(ctx, contribs)
	if err != nil {
		return nil, err
	}
	summary.Dropped = append(drops, summary.Dropped...)
	summary.Warnings = append(warnings, summary.Warnings...)

	if im.opts.WeatherPath != "" {
		summary.Warnings = append(summary.Warnings, im.joinWeather(d)...)
	}

	for _, drop := range summary.Dropped {
		im.logger.Warn("import drop", "building", drop.Building, "reason", drop.Reason, "detail", drop.Detail)
	}
	for _, w := range summary.Warnings {
		im.logger.Warn("import warning", "building", w.Building, "type", w.Type, "kind", w.Kind, "detail", w.Detail)
	}
	im.logger.Info("import finished",
		"sources", len(sources),
		"rows", rows,
		"imported", summary.Imported,
		"dropped", len(summary.Dropped),
		"warnings", len(summary.Warnings),
		"duration", time.Since(started),
	)

	return &Result{Dataset: d, Summary: summary, Sources: sources}, nil
}

func (im *Importer) joinWeather(d dataset.Dataset) []Warning {
	series, err := ReadWeather(im.opts.WeatherPath, im.times)
	if err != nil {
		return []Warning{{
			Building: im.opts.WeatherPath,
			Type:     WeatherSensor.Type,
			Kind:     KindWeather,
			Detail:   err.Error(),
		}}
	}
	im.logger.Debug("weather series loaded", "path", im.opts.WeatherPath, "points", series.Len())
	return JoinWeather(d, series)
}

// splitByBuilding turns one row set into a contribution per building, in
// first-seen building order.
func splitByBuilding(set *RowSet) []Contribution {
	var out []Contribution
	index := make(map[string]int)
	for row := range set.Rows() {
		i, ok := index[row.Building]
		if !ok {
			i = len(out)
			index[row.Building] = i
			out = append(out, Contribution{Source: set.Source(), Building: row.Building})
		}
		out[i].Rows = append(out[i].Rows, row)
	}
	return out
}

func uniqueSources(sources []Source) []Source {
	seen := make(map[string]bool, len(sources))
	out := make([]Source, 0, len(sources))
	for _, src := range sources {
		key := filepath.Clean(src.Path)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, src)
	}
	return out
}

func normaliseExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}
