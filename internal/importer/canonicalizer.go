package importer

import (
	"context"
	"errors"
	"sort"

	"github.com/nerrad567/building-data/internal/dataset"
)

// Canonicalizer assembles all building records of an import job into a
// Dataset and its Summary.
//
// Repeated building names are not an error: every contribution carrying the
// same name is another file for that building and is merged by the Assembler.
type Canonicalizer struct {
	assembler *Assembler
}

// NewCanonicalizer creates a canonicalizer that merges with a.
func NewCanonicalizer(a *Assembler) *Canonicalizer {
	return &Canonicalizer{assembler: a}
}

// Canonicalize groups contributions by building name and assembles each group.
// Buildings are processed one at a time, in ascending name order.
//
// Buildings without any usable series are left out of the Dataset and recorded
// in Summary.Dropped with reason InvalidBuilding. Only a context error is
// returned.
func (c *Canonicalizer) Canonicalize(ctx context.Context, contribs []Contribution) (dataset.Dataset, Summary, error) {
	summary := newSummary()

	groups := make(map[string][]Contribution)
	for _, contrib := range contribs {
		groups[contrib.Building] = append(groups[contrib.Building], contrib)
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	d := make(dataset.Dataset, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, summary, err
		}

		b, warnings, err := c.assembler.Assemble(ctx, name, groups[name])
		summary.Warnings = append(summary.Warnings, warnings...)
		if err != nil {
			if errors.Is(err, ErrInvalidBuilding) {
				summary.Dropped = append(summary.Dropped, Drop{
					Building: name,
					Reason:   ReasonInvalidBuilding,
					Detail:   err.Error(),
				})
				continue
			}
			return nil, summary, err
		}
		d[name] = b
	}

	summary.Imported = len(d)
	return d, summary, nil
}
