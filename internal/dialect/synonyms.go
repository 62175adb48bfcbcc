package dialect

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/faucetdb/tibero/internal/model"
)

// synonymTarget is where one synonym points.
type synonymTarget struct {
	synonym string
	owner   string
	name    string
	dblink  string
}

// synonyms returns the all_synonyms rows owned by schema, optionally only
// those named in filterNames.
func (in *Inspector) synonyms(ctx context.Context, schema string, filterNames []string, dblink string) ([]Row, error) {
	key := cacheKey("synonyms", schema, strings.Join(filterNames, ","), dblink)
	return cached(in.cache, key, func() ([]Row, error) {
		owner, err := in.owner(ctx, schema)
		if err != nil {
			return nil, err
		}
		params := map[string]any{}
		hasFilter := len(filterNames) > 0
		if hasFilter {
			params["filter_names"] = in.d.names.DenormalizeAll(filterNames)
		}
		q, err := in.d.synonymsQuery(owner, hasFilter)
		if err != nil {
			return nil, err
		}
		rows, err := in.d.execute(ctx, in.db, q, dblink, params)
		if err != nil {
			return nil, fmt.Errorf("get synonyms %s: %w", owner, err)
		}
		return rows, nil
	})
}

// splitSynonym splits org_object_name, which has the form object@link, on
// its last "@".
func (in *Inspector) splitSynonym(r Row) (synonymTarget, error) {
	composite := r.String("org_object_name")
	i := strings.LastIndexByte(composite, '@')
	if i <= 0 || i == len(composite)-1 {
		return synonymTarget{}, fmt.Errorf("synonym %s target %q: %w", r.String("synonym_name"), composite, ErrMalformedSynonym)
	}
	return synonymTarget{
		synonym: r.String("synonym_name"),
		owner:   r.String("org_object_owner"),
		name:    composite[:i],
		dblink:  in.d.names.Normalize("@" + composite[i+1:]),
	}, nil
}

// withSynonyms runs fn for opts, following synonyms when asked to. Each
// group of synonyms sharing a link and target owner becomes one call of fn
// against the target, and the returned keys are mapped back to the
// synonym names under the caller's schema. Without synonyms fn runs once
// with opts unchanged.
func withSynonyms[T any](ctx context.Context, in *Inspector, opts ReflectOptions, fn func(ReflectOptions) (map[model.TableKey]T, error)) (map[model.TableKey]T, error) {
	if !opts.ResolveSynonyms {
		return fn(opts)
	}
	rows, err := in.synonyms(ctx, opts.Schema, opts.FilterNames, opts.DBLink)
	if err != nil {
		return nil, err
	}

	type group struct{ dblink, owner string }
	var (
		order  []group
		groups = map[group]map[string]string{}
	)
	for _, r := range rows {
		t, err := in.splitSynonym(r)
		if err != nil {
			return nil, err
		}
		g := group{dblink: t.dblink, owner: t.owner}
		m, ok := groups[g]
		if !ok {
			m = map[string]string{}
			groups[g] = m
			order = append(order, g)
		}
		m[in.d.names.Normalize(t.name)] = t.synonym
	}
	if len(groups) == 0 {
		return fn(opts)
	}

	out := make(map[model.TableKey]T)
	for _, g := range order {
		mapping := groups[g]
		call := opts
		call.Schema = g.owner
		call.DBLink = g.dblink
		call.FilterNames = make([]string, 0, len(mapping))
		for remote := range mapping {
			call.FilterNames = append(call.FilterNames, remote)
		}
		sort.Strings(call.FilterNames)

		res, err := fn(call)
		if err != nil {
			return nil, err
		}
		for key, v := range res {
			syn, ok := mapping[key.Name]
			if !ok {
				continue
			}
			out[model.TableKey{Schema: opts.Schema, Name: in.d.names.Normalize(syn)}] = v
		}
	}
	return out, nil
}
