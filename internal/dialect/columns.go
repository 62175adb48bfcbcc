package dialect

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/faucetdb/tibero/internal/model"
	"github.com/faucetdb/tibero/internal/sqltypes"
)

// catalogType is the type information of one all_tab_cols row.
type catalogType struct {
	name       string
	precision  *int
	scale      *int
	charLength *int
}

// typeRule maps catalog types to sqltypes. Rules are tried in order and the
// first match wins.
type typeRule struct {
	match func(catalogType) bool
	build func(*Dialect, catalogType) sqltypes.Type
}

var typeRules = []typeRule{
	{
		match: func(t catalogType) bool { return t.name == "NUMBER" },
		build: func(_ *Dialect, t catalogType) sqltypes.Type {
			if t.precision == nil && t.scale != nil && *t.scale == 0 {
				return sqltypes.Integer{}
			}
			return sqltypes.Number{Precision: t.precision, Scale: t.scale}
		},
	},
	{
		match: func(t catalogType) bool { return t.name == "FLOAT" },
		build: func(d *Dialect, t catalogType) sqltypes.Type {
			switch {
			case t.precision != nil && *t.precision == d.opts.DoublePrecisionBits:
				return sqltypes.DoublePrecision{}
			case t.precision != nil && *t.precision == d.opts.RealPrecisionBits:
				return sqltypes.Real{}
			}
			return sqltypes.Float{BinaryPrecision: t.precision}
		},
	},
	{
		match: func(t catalogType) bool {
			switch t.name {
			case "VARCHAR", "NVARCHAR", "CHAR", "NCHAR":
				return true
			}
			return false
		},
		build: func(_ *Dialect, t catalogType) sqltypes.Type {
			n := 0
			if t.charLength != nil {
				n = *t.charLength
			}
			switch t.name {
			case "VARCHAR":
				return sqltypes.VarChar{Length: n}
			case "NVARCHAR":
				return sqltypes.NVarChar{Length: n}
			case "CHAR":
				return sqltypes.Char{Length: n}
			}
			return sqltypes.NChar{Length: n}
		},
	},
	{
		match: func(t catalogType) bool { return strings.Contains(t.name, "WITH TIME ZONE") },
		build: func(*Dialect, catalogType) sqltypes.Type { return sqltypes.Timestamp{Timezone: true} },
	},
	{
		match: func(t catalogType) bool { return strings.Contains(t.name, "WITH LOCAL TIME ZONE") },
		build: func(*Dialect, catalogType) sqltypes.Type { return sqltypes.Timestamp{LocalTimezone: true} },
	},
}

var removeSize = regexp.MustCompile(`\(\d+\)`)

// ischemaNames resolves catalog type names with their size stripped.
var ischemaNames = map[string]sqltypes.Type{
	"VARCHAR":                        sqltypes.VarChar{},
	"NVARCHAR":                       sqltypes.NVarChar{},
	"CHAR":                           sqltypes.Char{},
	"NCHAR":                          sqltypes.NChar{},
	"DATE":                           sqltypes.Date{},
	"NUMBER":                         sqltypes.Number{},
	"BLOB":                           sqltypes.BLOB{},
	"BFILE":                          sqltypes.BFILE{},
	"CLOB":                           sqltypes.CLOB{},
	"NCLOB":                          sqltypes.NCLOB{},
	"TIMESTAMP":                      sqltypes.Timestamp{},
	"TIMESTAMP WITH TIME ZONE":       sqltypes.Timestamp{Timezone: true},
	"TIMESTAMP WITH LOCAL TIME ZONE": sqltypes.Timestamp{LocalTimezone: true},
	"INTERVAL DAY TO SECOND":         sqltypes.Interval{},
	"RAW":                            sqltypes.Raw{},
	"FLOAT":                          sqltypes.Float{},
	"DOUBLE PRECISION":               sqltypes.DoublePrecision{},
	"REAL":                           sqltypes.Real{},
	"LONG":                           sqltypes.Long{},
	"BINARY_DOUBLE":                  sqltypes.BinaryDouble{},
	"BINARY_FLOAT":                   sqltypes.BinaryFloat{},
	"ROWID":                          sqltypes.RowID{},
}

// resolveType maps a catalog type to a sqltypes.Type. Unknown types are
// logged and reflected as NullType.
func (d *Dialect) resolveType(t catalogType, column string) sqltypes.Type {
	for _, r := range typeRules {
		if r.match(t) {
			return r.build(d, t)
		}
	}
	name := removeSize.ReplaceAllString(t.name, "")
	if typ, ok := ischemaNames[name]; ok {
		return typ
	}
	d.logger.Warn(fmt.Sprintf("Did not recognize type '%s' of column '%s'", name, column),
		zap.String("type", name),
		zap.String("column", column),
	)
	return sqltypes.NullType{}
}

// ----------------------------------------------------------------------------
// Assembly
// ----------------------------------------------------------------------------

// GetMultiColumns reflects the columns of every selected object. Objects
// always have columns, so only objects that were found are keyed.
func (in *Inspector) GetMultiColumns(ctx context.Context, opts ReflectOptions) (map[model.TableKey][]model.Column, error) {
	opts = opts.withDefaults()
	return withSynonyms(ctx, in, opts, func(o ReflectOptions) (map[model.TableKey][]model.Column, error) {
		return cached(in.cache, o.key("columns"), func() (map[model.TableKey][]model.Column, error) {
			return in.columns(ctx, o)
		})
	})
}

func (in *Inspector) columns(ctx context.Context, opts ReflectOptions) (map[model.TableKey][]model.Column, error) {
	owner, err := in.owner(ctx, opts.Schema)
	if err != nil {
		return nil, err
	}
	q, err := in.d.columnQuery(owner)
	if err != nil {
		return nil, err
	}

	var objects []string
	if len(opts.FilterNames) > 0 && opts.Kind == model.KindAny && opts.Scope == model.ScopeAny {
		objects = in.d.names.DenormalizeAll(opts.FilterNames)
	} else {
		objects, err = in.allObjects(ctx, opts)
		if err != nil {
			return nil, err
		}
	}

	out := make(map[model.TableKey][]model.Column)
	// data_default is LONG
	for row, err := range in.d.runBatches(ctx, in.db, q, opts.DBLink, objects) {
		if err != nil {
			return nil, fmt.Errorf("get columns %s: %w", owner, err)
		}
		key := model.TableKey{Schema: opts.Schema, Name: in.d.names.Normalize(row.String("table_name"))}
		out[key] = append(out[key], in.columnFromRow(row))
	}
	return out, nil
}

func (in *Inspector) columnFromRow(row Row) model.Column {
	origName := row.String("column_name")
	name := in.d.names.Normalize(origName)
	dataType := row.String("data_type")

	typ := in.d.resolveType(catalogType{
		name:       dataType,
		precision:  row.NullInt("data_precision"),
		scale:      row.NullInt("data_scale"),
		charLength: row.NullInt("char_length"),
	}, name)

	col := model.Column{
		Name:     name,
		Type:     typ,
		DataType: sqltypes.Describe(typ),
		Nullable: row.String("nullable") == "Y",
		Default:  row.NullString("data_default"),
		Comment:  row.NullString("comments"),
		Quote:    strings.ToLower(origName) == origName,
	}
	if row.String("virtual_column") == "Y" {
		text := ""
		if col.Default != nil {
			text = *col.Default
		}
		col.Computed = &model.Computed{SQLText: text}
		col.Default = nil
	}
	if opts := row.NullString("identity_options"); opts != nil {
		col.Identity = in.parseIdentityOptions(*opts, row.String("default_on_null"))
		col.Default = nil
	}
	return col
}

// GetColumns reflects one table's columns.
func (in *Inspector) GetColumns(ctx context.Context, table string, opts ReflectOptions) ([]model.Column, error) {
	data, err := in.GetMultiColumns(ctx, opts.single(table))
	if err != nil {
		return nil, err
	}
	return valueOrNoSuchTable(in, data, opts.Schema, table)
}
