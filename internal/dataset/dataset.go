package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Dataset maps building names to their canonical records.
// Names are unique and compared case-sensitively.
type Dataset map[string]*Building

// Names returns the building names in ascending order.
func (d Dataset) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the named building.
func (d Dataset) Get(name string) (*Building, error) {
	b, ok := d[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBuildingNotFound, name)
	}
	return b, nil
}

// Validate checks every building and that each record's Name matches its key.
func (d Dataset) Validate() error {
	for _, name := range d.Names() {
		b := d[name]
		if b == nil {
			return fmt.Errorf("%w: %s is nil", ErrInvalidBuilding, name)
		}
		if b.Name != name {
			return fmt.Errorf("%w: key %q holds building %q", ErrInvalidBuilding, name, b.Name)
		}
		if err := b.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Encode writes the dataset in the canonical wire format.
func (d Dataset) Encode(w io.Writer) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding dataset: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing dataset: %w", err)
	}
	return nil
}

// Decode reads a dataset in the canonical wire format and validates it.
func Decode(r io.Reader) (Dataset, error) {
	var d Dataset
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("decoding dataset: %w", err)
	}
	if d == nil {
		d = Dataset{}
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}
