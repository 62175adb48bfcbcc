package dialect

import (
	"context"
	"fmt"
	"strings"

	"github.com/faucetdb/tibero/internal/model"
)

var bitmapIndexTypes = map[string]bool{"BITMAP": true, "FUNCTION-BASED BITMAP": true}

// indexRows returns the index rows of objects, primary key indexes
// excluded. Index names carry the SYS prefix of the index query.
func (in *Inspector) indexRows(ctx context.Context, opts ReflectOptions, objects []string) ([]Row, error) {
	key := cacheKey("index_rows", opts.Schema, opts.DBLink, strings.Join(objects, ","))
	return cached(in.cache, key, func() ([]Row, error) {
		owner, err := in.owner(ctx, opts.Schema)
		if err != nil {
			return nil, err
		}
		q, err := in.d.indexQuery(owner)
		if err != nil {
			return nil, err
		}

		cons, err := in.constraintRows(ctx, opts, objects)
		if err != nil {
			return nil, err
		}
		pks := map[string]bool{}
		for _, r := range cons {
			if r.String("constraint_type") != "P" {
				continue
			}
			// A materialized view's primary key can be backed by an index
			// whose name differs from the constraint's.
			index, name := r.String("index_name"), r.String("constraint_name")
			if index != "" && index != name {
				pks[index] = true
			} else {
				pks[name] = true
			}
		}

		var out []Row
		// column_expression is LONG
		for r, err := range in.d.runBatches(ctx, in.db, q, opts.DBLink, objects) {
			if err != nil {
				return nil, fmt.Errorf("get indexes %s: %w", owner, err)
			}
			if !pks[r.String("index_name")] {
				out = append(out, r)
			}
		}
		return out, nil
	})
}

// GetMultiIndexes reflects the indexes of every selected object, primary
// key indexes excluded.
func (in *Inspector) GetMultiIndexes(ctx context.Context, opts ReflectOptions) (map[model.TableKey][]model.Index, error) {
	opts = opts.withDefaults()
	return withSynonyms(ctx, in, opts, func(o ReflectOptions) (map[model.TableKey][]model.Index, error) {
		return cached(in.cache, o.key("indexes"), func() (map[model.TableKey][]model.Index, error) {
			return in.indexes(ctx, o)
		})
	})
}

func (in *Inspector) indexes(ctx context.Context, opts ReflectOptions) (map[model.TableKey][]model.Index, error) {
	objects, err := in.allObjects(ctx, opts)
	if err != nil {
		return nil, err
	}
	rows, err := in.indexRows(ctx, opts, objects)
	if err != nil {
		return nil, err
	}

	type tableIndexes struct {
		order  []string
		byName map[string]*model.Index
	}
	found := map[model.TableKey]*tableIndexes{}

	for _, r := range rows {
		name := in.d.names.Normalize(r.String("index_name"))
		key := model.TableKey{Schema: opts.Schema, Name: in.d.names.Normalize(r.String("table_name"))}
		t, ok := found[key]
		if !ok {
			t = &tableIndexes{byName: map[string]*model.Index{}}
			found[key] = t
		}
		idx, ok := t.byName[name]
		if !ok {
			idx = &model.Index{
				Name:        name,
				ColumnNames: []*string{},
				Unique:      r.String("uniqueness") == "UNIQUE",
			}
			if bitmapIndexTypes[r.String("index_type")] {
				idx.DialectOptions.Bitmap = true
			}
			if r.String("compression") == "ENABLED" {
				idx.DialectOptions.Compress = r.NullInt("prefix_length")
			}
			t.byName[name] = idx
			t.order = append(t.order, name)
		}

		if expr := r.NullString("column_expression"); expr != nil {
			if idx.Expressions == nil {
				idx.Expressions = make([]string, 0, len(idx.ColumnNames)+1)
				for _, c := range idx.ColumnNames {
					if c != nil {
						idx.Expressions = append(idx.Expressions, *c)
					}
				}
			}
			idx.ColumnNames = append(idx.ColumnNames, nil)
			idx.Expressions = append(idx.Expressions, *expr)
			if !strings.EqualFold(r.String("descend"), "asc") {
				if idx.ColumnSorting == nil {
					idx.ColumnSorting = map[string][]string{}
				}
				idx.ColumnSorting[*expr] = []string{"desc"}
			}
			continue
		}

		col := in.d.names.Normalize(r.String("column_name"))
		idx.ColumnNames = append(idx.ColumnNames, &col)
		if idx.Expressions != nil {
			idx.Expressions = append(idx.Expressions, col)
		}
	}

	out := make(map[model.TableKey][]model.Index)
	for _, key := range in.objectKeys(opts.Schema, objects) {
		t, ok := found[key]
		if !ok {
			out[key] = []model.Index{}
			continue
		}
		list := make([]model.Index, len(t.order))
		for i, name := range t.order {
			list[i] = *t.byName[name]
		}
		out[key] = list
	}
	return out, nil
}

// GetIndexes reflects one table's indexes.
func (in *Inspector) GetIndexes(ctx context.Context, table string, opts ReflectOptions) ([]model.Index, error) {
	data, err := in.GetMultiIndexes(ctx, opts.single(table))
	if err != nil {
		return nil, err
	}
	return valueOrNoSuchTable(in, data, opts.Schema, table)
}
