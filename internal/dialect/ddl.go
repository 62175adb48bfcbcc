package dialect

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/faucetdb/tibero/internal/model"
)

// Table option keys understood by CreateTable.
const (
	OptionOnCommit = "on_commit"
	OptionCompress = "compress"
)

// CreateTable renders CREATE TABLE for a reflected or hand built table,
// followed by the ON COMMIT and COMPRESS table options.
func (d *Dialect) CreateTable(t *model.Table) (string, error) {
	if len(t.Columns) == 0 {
		return "", compileErrorf("table %s has no columns", t.Name)
	}
	var parts []string
	for _, c := range t.Columns {
		spec, err := d.ColumnSpec(c)
		if err != nil {
			return "", fmt.Errorf("column %s.%s: %w", t.Name, c.Name, err)
		}
		parts = append(parts, spec)
	}

	if pk := t.PrimaryKey; len(pk.ConstrainedColumns) > 0 {
		parts = append(parts, d.constraintName(pk.Name)+"PRIMARY KEY ("+d.quoteAll(pk.ConstrainedColumns)+")")
	}
	for _, uc := range t.UniqueConstraints {
		parts = append(parts, d.constraintName(uc.Name)+"UNIQUE ("+d.quoteAll(uc.ColumnNames)+")")
	}
	for _, ck := range t.CheckConstraints {
		parts = append(parts, d.constraintName(ck.Name)+"CHECK ("+ck.SQLText+")")
	}
	for _, fk := range t.ForeignKeys {
		parts = append(parts, d.foreignKey(fk))
	}

	var b strings.Builder
	b.WriteString("CREATE ")
	if t.Options[OptionOnCommit] != "" {
		b.WriteString("GLOBAL TEMPORARY ")
	}
	b.WriteString("TABLE " + d.names.QuoteSchema(t.Schema, t.Name) + " (\n\t")
	b.WriteString(strings.Join(parts, ",\n\t"))
	b.WriteString("\n)")
	b.WriteString(d.postCreateTable(t.Options))
	return b.String(), nil
}

func (d *Dialect) postCreateTable(opts model.TableOptions) string {
	var b strings.Builder
	if v := opts[OptionOnCommit]; v != "" {
		b.WriteString("\n ON COMMIT " + strings.ToUpper(strings.ReplaceAll(v, "_", " ")))
	}
	switch v := opts[OptionCompress]; v {
	case "", "false":
	case "true":
		b.WriteString("\n COMPRESS")
	default:
		b.WriteString("\n COMPRESS FOR " + v)
	}
	return b.String()
}

// ColumnSpec renders one column definition. An identity column takes no
// NOT NULL of its own.
func (d *Dialect) ColumnSpec(c model.Column) (string, error) {
	typ, err := d.CompileType(c.Type)
	if err != nil {
		return "", err
	}
	s := d.columnName(c) + " " + typ
	if c.Default != nil && c.Computed == nil && c.Identity == nil {
		s += " DEFAULT " + *c.Default
	}
	if c.Computed != nil {
		g, err := d.Computed(c.Computed)
		if err != nil {
			return "", err
		}
		s += " " + g
	}
	if c.Identity != nil {
		s += " " + d.Identity(c.Identity)
	} else if !c.Nullable {
		s += " NOT NULL"
	}
	return s, nil
}

// Computed renders a virtual column. Stored computed columns do not exist.
func (d *Dialect) Computed(c *model.Computed) (string, error) {
	s := "GENERATED ALWAYS AS (" + c.SQLText + ")"
	if c.Persisted != nil {
		if *c.Persisted {
			return "", compileErrorf("Tibero computed columns do not support 'stored' persistence; " +
				"set the 'persisted' flag to None or False for Tibero support.")
		}
		s += " VIRTUAL"
	}
	return s, nil
}

// Identity renders GENERATED ... AS IDENTITY with its sequence options.
func (d *Dialect) Identity(id *model.Identity) string {
	s := "GENERATED BY DEFAULT"
	if id.Always {
		s = "GENERATED ALWAYS"
	}
	if id.OnNull {
		s += " ON NULL"
	}
	s += " AS IDENTITY"
	if opts := identityOptions(id); opts != "" {
		s += " (" + opts + ")"
	}
	return s
}

func identityOptions(id *model.Identity) string {
	var parts []string
	num := func(kw string, v *decimal.Decimal) {
		if v != nil {
			parts = append(parts, kw+" "+v.String())
		}
	}
	num("START WITH", id.Start)
	num("INCREMENT BY", id.Increment)
	num("MINVALUE", id.MinValue)
	num("MAXVALUE", id.MaxValue)
	if id.NoMinValue {
		parts = append(parts, "NOMINVALUE")
	}
	if id.NoMaxValue {
		parts = append(parts, "NOMAXVALUE")
	}
	if id.Cache != nil {
		parts = append(parts, fmt.Sprintf("CACHE %d", *id.Cache))
	}
	if id.Cycle != nil {
		parts = append(parts, map[bool]string{true: "CYCLE", false: "NOCYCLE"}[*id.Cycle])
	}
	if id.Order != nil {
		parts = append(parts, map[bool]string{true: "ORDER", false: "NOORDER"}[*id.Order])
	}
	return strings.Join(parts, " ")
}

func (d *Dialect) foreignKey(fk model.ForeignKey) string {
	s := fmt.Sprintf("%sFOREIGN KEY (%s) REFERENCES %s (%s)",
		d.constraintName(fk.Name),
		d.quoteAll(fk.ConstrainedColumns),
		d.names.QuoteSchema(fk.ReferredSchema, fk.ReferredTable),
		d.quoteAll(fk.ReferredColumns),
	)
	return s + d.constraintCascades(fk.Name, fk.Options)
}

// constraintCascades renders ON DELETE. ON UPDATE exists only as triggers
// and is dropped with a warning.
func (d *Dialect) constraintCascades(name string, opts map[string]string) string {
	var s string
	if v := opts["ondelete"]; v != "" {
		s += " ON DELETE " + v
	}
	if opts["onupdate"] != "" {
		d.logger.Warn("Tibero does not contain native UPDATE CASCADE functionality - "+
			"onupdates will not be rendered for foreign keys. Consider using "+
			"deferrable=True, initially='deferred' or triggers.",
			zap.String("constraint", name))
	}
	return s
}

// CreateIndex renders CREATE [UNIQUE] [BITMAP] INDEX with an optional
// COMPRESS clause. Expression positions are rendered verbatim.
func (d *Dialect) CreateIndex(schema, table string, idx model.Index) (string, error) {
	if len(idx.ColumnNames) == 0 {
		return "", compileErrorf("index %s has no columns", idx.Name)
	}
	var b strings.Builder
	b.WriteString("CREATE ")
	if idx.Unique {
		b.WriteString("UNIQUE ")
	}
	if idx.DialectOptions.Bitmap {
		b.WriteString("BITMAP ")
	}
	b.WriteString("INDEX " + d.names.QuoteSchema(schema, idx.Name) + " ON " + d.names.QuoteSchema(schema, table) + " (")
	for i, c := range idx.ColumnNames {
		if i > 0 {
			b.WriteString(", ")
		}
		var e string
		switch {
		case c != nil:
			e = d.names.Quote(*c)
		case i < len(idx.Expressions):
			e = idx.Expressions[i]
		default:
			return "", compileErrorf("index %s: no expression at position %d", idx.Name, i)
		}
		b.WriteString(e)
		if slices.Contains(idx.ColumnSorting[e], "desc") {
			b.WriteString(" DESC")
		}
	}
	b.WriteByte(')')
	if n := idx.DialectOptions.Compress; n != nil {
		if *n > 0 {
			fmt.Fprintf(&b, " COMPRESS %d", *n)
		} else {
			b.WriteString(" COMPRESS")
		}
	}
	return b.String(), nil
}

// TableComment renders COMMENT ON TABLE. A nil comment drops it, which is
// done by setting the empty string.
func (d *Dialect) TableComment(schema, table string, comment *string) string {
	text := ""
	if comment != nil {
		text = *comment
	}
	return "COMMENT ON TABLE " + d.names.QuoteSchema(schema, table) + " IS " + quoteString(text)
}

// ColumnComment renders COMMENT ON COLUMN.
func (d *Dialect) ColumnComment(schema, table string, c model.Column) string {
	text := ""
	if c.Comment != nil {
		text = *c.Comment
	}
	return "COMMENT ON COLUMN " + d.names.QuoteSchema(schema, table) + "." + d.columnName(c) + " IS " + quoteString(text)
}

// SchemaDDL renders each table followed by its indexes and comments. Views
// are skipped.
func (d *Dialect) SchemaDDL(tables []model.Table) ([]string, error) {
	var out []string
	for i := range tables {
		t := &tables[i]
		if t.Kind != "" && t.Kind != "table" {
			continue
		}
		stmt, err := d.CreateTable(t)
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
		for _, idx := range t.Indexes {
			stmt, err := d.CreateIndex(t.Schema, t.Name, idx)
			if err != nil {
				return nil, err
			}
			out = append(out, stmt)
		}
		if t.Comment.Text != nil {
			out = append(out, d.TableComment(t.Schema, t.Name, t.Comment.Text))
		}
		for _, c := range t.Columns {
			if c.Comment != nil {
				out = append(out, d.ColumnComment(t.Schema, t.Name, c))
			}
		}
	}
	return out, nil
}

// columnName quotes names stored in lower case, which reflection flags.
func (d *Dialect) columnName(c model.Column) string {
	if c.Quote {
		return `"` + strings.ReplaceAll(c.Name, `"`, `""`) + `"`
	}
	return d.names.Quote(c.Name)
}

func (d *Dialect) constraintName(name string) string {
	if name == "" {
		return ""
	}
	return "CONSTRAINT " + d.names.Quote(name) + " "
}

func (d *Dialect) quoteAll(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = d.names.Quote(n)
	}
	return strings.Join(out, ", ")
}
