package drift

import (
	"time"

	"github.com/faucetdb/tibero/internal/model"
)

// Snapshot is a saved reflection of one schema that later reflections are
// compared against.
type Snapshot struct {
	Schema  string        `json:"schema"`
	TakenAt time.Time     `json:"taken_at"`
	Tables  []model.Table `json:"tables"`
}

// Type classifies the severity of a schema change.
type Type string

const (
	// Additive changes keep existing readers and writers working.
	Additive Type = "additive"
	// Breaking changes remove or narrow something a client may rely on.
	Breaking Type = "breaking"
)

// Item describes a single difference between the snapshot and the live
// schema.
type Item struct {
	Type        Type   `json:"type"`
	Category    string `json:"category"` // "column_added", "column_removed", "type_changed", "nullable_changed", "default_changed", "primary_key_changed", "foreign_key_added", "foreign_key_removed", "table_added", "table_removed"
	TableName   string `json:"table_name"`
	ColumnName  string `json:"column_name,omitempty"`
	OldValue    string `json:"old_value,omitempty"`
	NewValue    string `json:"new_value,omitempty"`
	Description string `json:"description"`
}

// TableReport summarizes the differences of one table.
type TableReport struct {
	TableName     string `json:"table_name"`
	HasDrift      bool   `json:"has_drift"`
	HasBreaking   bool   `json:"has_breaking"`
	AdditiveCount int    `json:"additive_count"`
	BreakingCount int    `json:"breaking_count"`
	Items         []Item `json:"items"`
}

// Report summarizes drift across every table of a schema.
type Report struct {
	Schema        string        `json:"schema"`
	TakenAt       time.Time     `json:"taken_at"`
	CheckedAt     time.Time     `json:"checked_at"`
	TotalTables   int           `json:"total_tables"`
	DriftedTables int           `json:"drifted_tables"`
	BreakingCount int           `json:"breaking_count"`
	Tables        []TableReport `json:"tables"`
}

// HasBreaking reports whether any table has a breaking change.
func (r Report) HasBreaking() bool { return r.BreakingCount > 0 }
