package store

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load reads a JSON snapshot of entries from path. A missing file is
// treated as an empty snapshot, so a node's first boot needs no
// preexisting file.
func Load(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", path, err)
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", path, err)
	}
	return entries, nil
}

// Persist writes a JSON snapshot of entries to path, replacing its prior
// contents. Callers checkpoint on mutation or on a periodic timer; the
// store itself has no opinion on cadence.
func Persist(path string, entries []Entry) error {
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode snapshot: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("store: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("store: rename %s: %w", tmp, err)
	}
	return nil
}
