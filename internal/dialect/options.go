package dialect

import (
	"context"
	"fmt"
	"slices"

	"github.com/faucetdb/tibero/internal/model"
)

// GetMultiTableOptions reflects storage options. A compressed table maps to
// {"compress": compress_for}; views have no options.
func (in *Inspector) GetMultiTableOptions(ctx context.Context, opts ReflectOptions) (map[model.TableKey]model.TableOptions, error) {
	opts = opts.withDefaults()
	return withSynonyms(ctx, in, opts, func(o ReflectOptions) (map[model.TableKey]model.TableOptions, error) {
		return cached(in.cache, o.key("table_options"), func() (map[model.TableKey]model.TableOptions, error) {
			return in.tableOptions(ctx, o)
		})
	})
}

func (in *Inspector) tableOptions(ctx context.Context, opts ReflectOptions) (map[model.TableKey]model.TableOptions, error) {
	owner, err := in.owner(ctx, opts.Schema)
	if err != nil {
		return nil, err
	}
	params := map[string]any{}
	hasFilter := len(opts.FilterNames) > 0
	if hasFilter {
		params["filter_names"] = in.d.names.DenormalizeAll(opts.FilterNames)
	}

	tables, mviews := opts.Kind.Has(model.KindTable), opts.Kind.Has(model.KindMaterializedView)
	hasMatViews := false
	switch {
	case tables && !mviews:
		names, err := in.matViewNames(ctx, opts)
		if err != nil {
			return nil, err
		}
		if len(names) > 0 {
			params["mat_views"] = names
			hasMatViews = true
		}
	case !tables && mviews:
		names, err := in.matViewNames(ctx, opts)
		if err != nil {
			return nil, err
		}
		params["mat_views"] = names
	}

	out := make(map[model.TableKey]model.TableOptions)
	if tables || mviews {
		q, err := in.d.tableOptionsQuery(owner, opts.Scope, opts.Kind, hasFilter, hasMatViews)
		if err != nil {
			return nil, err
		}
		rows, err := in.d.execute(ctx, in.db, q, opts.DBLink, params)
		if err != nil {
			return nil, fmt.Errorf("get table options %s: %w", owner, err)
		}
		for _, r := range rows {
			key := model.TableKey{Schema: opts.Schema, Name: in.d.names.Normalize(r.String("table_name"))}
			if r.String("compression") == "ENABLED" {
				out[key] = model.TableOptions{"compress": r.String("compress_for")}
			} else {
				out[key] = model.TableOptions{}
			}
		}
	}

	if opts.Kind.Has(model.KindView) && opts.Scope.Has(model.ScopeDefault) {
		views, err := in.GetViewNames(ctx, opts)
		if err != nil {
			return nil, err
		}
		for _, v := range views {
			if len(opts.FilterNames) == 0 || slices.Contains(opts.FilterNames, v) {
				out[model.TableKey{Schema: opts.Schema, Name: v}] = model.TableOptions{}
			}
		}
	}
	return out, nil
}

func (in *Inspector) GetTableOptions(ctx context.Context, table string, opts ReflectOptions) (model.TableOptions, error) {
	data, err := in.GetMultiTableOptions(ctx, opts.single(table))
	if err != nil {
		return nil, err
	}
	return valueOrNoSuchTable(in, data, opts.Schema, table)
}
