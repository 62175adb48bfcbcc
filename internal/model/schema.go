package model

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/faucetdb/tibero/internal/sqltypes"
)

// TableKey identifies one reflected object. Schema is empty for the
// connection's default schema.
type TableKey struct {
	Schema string `json:"schema,omitempty"`
	Name   string `json:"name"`
}

func (k TableKey) String() string {
	if k.Schema == "" {
		return k.Name
	}
	return k.Schema + "." + k.Name
}

// ObjectScope selects persistent objects, temporary objects or both.
type ObjectScope uint8

const (
	ScopeDefault ObjectScope = 1 << iota
	ScopeTemporary

	ScopeAny = ScopeDefault | ScopeTemporary
)

func (s ObjectScope) Has(o ObjectScope) bool { return s&o != 0 }

func (s ObjectScope) String() string {
	switch s {
	case ScopeDefault:
		return "default"
	case ScopeTemporary:
		return "temporary"
	case ScopeAny:
		return "any"
	}
	return "none"
}

// ParseObjectScope accepts "default", "temporary" or "any".
func ParseObjectScope(s string) (ObjectScope, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return ScopeDefault, true
	case "temporary", "temp":
		return ScopeTemporary, true
	case "any":
		return ScopeAny, true
	}
	return 0, false
}

// ObjectKind is a set of catalog object classes.
type ObjectKind uint8

const (
	KindTable ObjectKind = 1 << iota
	KindView
	KindMaterializedView

	KindAnyView = KindView | KindMaterializedView
	KindAny     = KindTable | KindView | KindMaterializedView
)

func (k ObjectKind) Has(o ObjectKind) bool { return k&o != 0 }

func (k ObjectKind) String() string {
	if k == KindAny {
		return "any"
	}
	var parts []string
	if k.Has(KindTable) {
		parts = append(parts, "table")
	}
	if k.Has(KindView) {
		parts = append(parts, "view")
	}
	if k.Has(KindMaterializedView) {
		parts = append(parts, "materialized_view")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ParseObjectKind parses a comma separated list such as "table,view".
func ParseObjectKind(s string) (ObjectKind, bool) {
	var k ObjectKind
	for _, part := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "":
		case "table":
			k |= KindTable
		case "view":
			k |= KindView
		case "materialized_view", "mview":
			k |= KindMaterializedView
		case "any":
			k |= KindAny
		default:
			return 0, false
		}
	}
	if k == 0 {
		k = KindTable
	}
	return k, true
}

// Column describes one reflected column.
type Column struct {
	Name     string         `json:"name"`
	Type     sqltypes.Type  `json:"-"`
	DataType string         `json:"data_type"`
	Nullable bool           `json:"nullable"`
	Default  *string        `json:"default,omitempty"`
	Comment  *string        `json:"comment,omitempty"`
	Computed *Computed      `json:"computed,omitempty"`
	Identity *Identity      `json:"identity,omitempty"`
	Quote    bool           `json:"quote,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// Computed is a virtual column expression.
type Computed struct {
	SQLText   string `json:"sqltext"`
	Persisted *bool  `json:"persisted,omitempty"`
}

// Identity holds the options of an identity column. Nil options are left
// to the server default. The sequence bounds are decimals since the
// default MAXVALUE has 28 digits.
type Identity struct {
	Always     bool             `json:"always"`
	OnNull     bool             `json:"on_null"`
	Start      *decimal.Decimal `json:"start,omitempty"`
	Increment  *decimal.Decimal `json:"increment,omitempty"`
	MinValue   *decimal.Decimal `json:"minvalue,omitempty"`
	MaxValue   *decimal.Decimal `json:"maxvalue,omitempty"`
	NoMinValue bool             `json:"nominvalue,omitempty"`
	NoMaxValue bool             `json:"nomaxvalue,omitempty"`
	Cycle      *bool            `json:"cycle,omitempty"`
	Cache      *int64           `json:"cache,omitempty"`
	Order      *bool            `json:"order,omitempty"`
}

// IndexOptions are the Tibero specific index flags.
type IndexOptions struct {
	Bitmap   bool `json:"bitmap,omitempty"`
	Compress *int `json:"compress,omitempty"`
}

// Index describes one index. ColumnNames holds nil at positions that are
// expressions; Expressions then lists every position, columns included.
type Index struct {
	Name           string              `json:"name"`
	ColumnNames    []*string           `json:"column_names"`
	Unique         bool                `json:"unique"`
	DialectOptions IndexOptions        `json:"dialect_options"`
	Expressions    []string            `json:"expressions,omitempty"`
	ColumnSorting  map[string][]string `json:"column_sorting,omitempty"`
}

// Columns returns the plain column names, skipping expression positions.
func (i Index) Columns() []string {
	out := make([]string, 0, len(i.ColumnNames))
	for _, c := range i.ColumnNames {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}

type PrimaryKey struct {
	Name               string   `json:"name,omitempty"`
	ConstrainedColumns []string `json:"constrained_columns"`
}

type ForeignKey struct {
	Name               string            `json:"name"`
	ConstrainedColumns []string          `json:"constrained_columns"`
	ReferredSchema     string            `json:"referred_schema,omitempty"`
	ReferredTable      string            `json:"referred_table"`
	ReferredColumns    []string          `json:"referred_columns"`
	Options            map[string]string `json:"options"`
}

type UniqueConstraint struct {
	Name            string   `json:"name"`
	ColumnNames     []string `json:"column_names"`
	DuplicatesIndex string   `json:"duplicates_index,omitempty"`
}

type CheckConstraint struct {
	Name    string `json:"name"`
	SQLText string `json:"sqltext"`
}

// TableComment is the comment of a table; Text is nil when none is set.
type TableComment struct {
	Text *string `json:"text"`
}

// TableOptions carries storage options such as compression and the
// ON COMMIT behaviour of temporary tables.
type TableOptions map[string]string

// Table is the full reflection of one table or view.
type Table struct {
	Schema            string             `json:"schema,omitempty"`
	Name              string             `json:"name"`
	Kind              string             `json:"kind"`
	Columns           []Column           `json:"columns"`
	PrimaryKey        PrimaryKey         `json:"primary_key"`
	ForeignKeys       []ForeignKey       `json:"foreign_keys"`
	Indexes           []Index            `json:"indexes"`
	UniqueConstraints []UniqueConstraint `json:"unique_constraints"`
	CheckConstraints  []CheckConstraint  `json:"check_constraints"`
	Comment           TableComment       `json:"comment"`
	Options           TableOptions       `json:"options,omitempty"`
}

// Schema is the reflection of every requested object in one schema.
type Schema struct {
	Name      string   `json:"name,omitempty"`
	Tables    []Table  `json:"tables"`
	Views     []Table  `json:"views"`
	Sequences []string `json:"sequences,omitempty"`
}
