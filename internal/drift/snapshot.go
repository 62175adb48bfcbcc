package drift

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/faucetdb/tibero/internal/model"
)

// NewSnapshot captures the tables and views of a reflected schema.
func NewSnapshot(s *model.Schema) Snapshot {
	tables := make([]model.Table, 0, len(s.Tables)+len(s.Views))
	tables = append(tables, s.Tables...)
	tables = append(tables, s.Views...)
	return Snapshot{Schema: s.Name, TakenAt: time.Now().UTC(), Tables: tables}
}

// Save writes the snapshot as indented JSON.
func (s Snapshot) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Load reads a snapshot written by Save.
func Load(path string) (Snapshot, error) {
	var s Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return s, nil
}
