package importer

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/building-data/internal/dataset"
)

// Contribution is the rows one source file holds for one building.
type Contribution struct {
	Source   string
	Building string
	Rows     []RawRow
}

// Assembler merges contributions for one building into a canonical record.
type Assembler struct {
	policy  Policy
	workers int
}

// NewAssembler creates an assembler. workers bounds per-sensor alignment
// concurrency; values below 1 mean one.
func NewAssembler(policy Policy, workers int) *Assembler {
	if policy == nil {
		policy = Average
	}
	return &Assembler{policy: policy, workers: max(workers, 1)}
}

// Assemble merges every contribution for building name into one record.
//
// Contributions are ordered by source path, so the result does not depend on
// the order files were read in. Rows of one sensor type from every file are
// aligned together. When two descriptors share a type, the first-seen one owns
// the series and the others are dropped with a ConflictingMetadata warning.
// Series that align empty are dropped with an EmptySeries warning.
//
// The record lists sensors by ascending type, so splitting the same rows
// across files differently yields the same record.
//
// Returns ErrInvalidBuilding (with the warnings so far) when no series remain.
func (a *Assembler) Assemble(ctx context.Context, name string, contribs []Contribution) (*dataset.Building, []Warning, error) {
	ordered := slices.Clone(contribs)
	slices.SortStableFunc(ordered, func(x, y Contribution) int { return cmp.Compare(x.Source, y.Source) })

	var rows []RawRow
	for _, c := range ordered {
		rows = append(rows, c.Rows...)
	}

	sensors, warnings := BuildRegistry(name, rows)

	// One descriptor per type.
	owners := make([]dataset.Sensor, 0, len(sensors))
	ownerOf := make(map[string]dataset.SensorKey, len(sensors))
	for _, s := range sensors {
		if key, taken := ownerOf[s.Type]; taken {
			warnings = append(warnings, Warning{
				Building: name,
				Type:     s.Type,
				Kind:     KindConflictingMetadata,
				Detail:   fmt.Sprintf("descriptor %s dropped, type already described by %s", s.Key(), key),
			})
			continue
		}
		ownerOf[s.Type] = s.Key()
		owners = append(owners, s)
	}

	byType := make(map[string][]RawRow, len(owners))
	for _, row := range rows {
		if ownerOf[row.Type] == row.Key() {
			byType[row.Type] = append(byType[row.Type], row)
		}
	}

	series := make([]dataset.TimeSeries, len(owners))
	errs := make([]error, len(owners))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, s := range owners {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			series[i], errs[i] = Align(byType[s.Type], a.policy)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, warnings, err
	}

	b := &dataset.Building{
		Name:      name,
		Sensors:   make([]dataset.Sensor, 0, len(owners)),
		Dataframe: make(map[string]dataset.TimeSeries, len(owners)),
	}
	for i, s := range owners {
		if errs[i] != nil {
			if !errors.Is(errs[i], ErrEmptySeries) {
				return nil, warnings, fmt.Errorf("aligning %s/%s: %w", name, s.Type, errs[i])
			}
			warnings = append(warnings, Warning{
				Building: name,
				Type:     s.Type,
				Kind:     KindEmptySeries,
				Detail:   errs[i].Error(),
			})
			continue
		}
		b.Sensors = append(b.Sensors, s)
		b.Dataframe[s.Type] = series[i]
	}

	slices.SortFunc(b.Sensors, func(x, y dataset.Sensor) int { return cmp.Compare(x.Type, y.Type) })

	if len(b.Dataframe) == 0 {
		return nil, warnings, fmt.Errorf("%w: %s has no usable series", ErrInvalidBuilding, name)
	}
	return b, warnings, nil
}
