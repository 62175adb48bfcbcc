package dialect

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/faucetdb/tibero/internal/model"
)

// ReflectTable reflects everything known about one table, view or
// materialized view.
func (in *Inspector) ReflectTable(ctx context.Context, table string, opts ReflectOptions) (*model.Table, error) {
	s, err := in.ReflectSchema(ctx, ReflectOptions{
		Schema:          opts.Schema,
		FilterNames:     []string{table},
		Scope:           model.ScopeAny,
		Kind:            model.KindAny,
		DBLink:          opts.DBLink,
		ResolveSynonyms: opts.ResolveSynonyms,
		IncludeAll:      opts.IncludeAll,
	})
	if err != nil {
		return nil, err
	}
	name := in.d.names.Normalize(table)
	for _, list := range [][]model.Table{s.Tables, s.Views} {
		for i := range list {
			if list[i].Name == name {
				return &list[i], nil
			}
		}
	}
	return nil, noSuchTable(opts.Schema, name)
}

// ReflectSchema reflects every object opts selects with one multi-object
// call per concern.
func (in *Inspector) ReflectSchema(ctx context.Context, opts ReflectOptions) (*model.Schema, error) {
	opts = opts.withDefaults()
	in.logger.Debug("reflecting schema",
		zap.String("schema", opts.Schema),
		zap.Stringer("kind", opts.Kind),
		zap.Stringer("scope", opts.Scope),
		zap.String("dblink", opts.DBLink),
	)

	columns, err := in.GetMultiColumns(ctx, opts)
	if err != nil {
		return nil, err
	}
	pks, err := in.GetMultiPKConstraint(ctx, opts)
	if err != nil {
		return nil, err
	}
	fks, err := in.GetMultiForeignKeys(ctx, opts)
	if err != nil {
		return nil, err
	}
	indexes, err := in.GetMultiIndexes(ctx, opts)
	if err != nil {
		return nil, err
	}
	uniques, err := in.GetMultiUniqueConstraints(ctx, opts)
	if err != nil {
		return nil, err
	}
	checks, err := in.GetMultiCheckConstraints(ctx, opts)
	if err != nil {
		return nil, err
	}
	comments, err := in.GetMultiTableComment(ctx, opts)
	if err != nil {
		return nil, err
	}
	options, err := in.GetMultiTableOptions(ctx, opts)
	if err != nil {
		return nil, err
	}

	views, mviews := []string{}, []string{}
	if opts.Kind.Has(model.KindView) {
		if views, err = in.GetViewNames(ctx, opts); err != nil {
			return nil, err
		}
	}
	if opts.Kind.Has(model.KindMaterializedView) {
		if mviews, err = in.GetMaterializedViewNames(ctx, opts); err != nil {
			return nil, err
		}
	}

	out := &model.Schema{Name: opts.Schema, Tables: []model.Table{}, Views: []model.Table{}}
	for _, key := range SortedKeys(columns) {
		t := model.Table{
			Schema:            key.Schema,
			Name:              key.Name,
			Kind:              "table",
			Columns:           columns[key],
			PrimaryKey:        pks[key],
			ForeignKeys:       fks[key],
			Indexes:           indexes[key],
			UniqueConstraints: uniques[key],
			CheckConstraints:  checks[key],
			Comment:           comments[key],
			Options:           options[key],
		}
		switch {
		case slices.Contains(views, key.Name):
			t.Kind = "view"
			out.Views = append(out.Views, t)
		case slices.Contains(mviews, key.Name):
			t.Kind = "materialized_view"
			out.Views = append(out.Views, t)
		default:
			out.Tables = append(out.Tables, t)
		}
	}
	return out, nil
}
