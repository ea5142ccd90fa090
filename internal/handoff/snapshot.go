package handoff

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nerrad567/building-data/internal/codec"
	"github.com/nerrad567/building-data/internal/dataset"
)

// WriteSnapshot writes d to path in the canonical wire format. The codec
// is chosen from the extension. The file is written beside path and
// renamed into place, so readers never see a partial snapshot.
func WriteSnapshot(path string, d dataset.Dataset) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()           //nolint:errcheck // Already failing
			os.Remove(tmp.Name()) //nolint:errcheck // Best effort cleanup
		}
	}()

	w, err := codec.NewWriter(tmp, path)
	if err != nil {
		return err
	}
	if err := d.Encode(w); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("compressing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("installing snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads a snapshot written by WriteSnapshot.
// A missing file yields an error matching fs.ErrNotExist.
func ReadSnapshot(path string) (dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	r, err := codec.NewReader(f, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	d, err := dataset.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return d, nil
}
