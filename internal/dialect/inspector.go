package dialect

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/faucetdb/tibero/internal/model"
)

// ReflectOptions selects the objects a multi-object reflection call works
// on.
type ReflectOptions struct {
	// Schema is the caller-facing schema name. Empty means the connection's
	// default schema and is also the schema of the returned keys.
	Schema string
	// FilterNames restricts the call to these object names.
	FilterNames []string
	// Scope defaults to ScopeDefault and Kind to KindTable.
	Scope model.ObjectScope
	Kind  model.ObjectKind
	// DBLink reflects a remote database through a link.
	DBLink string
	// ResolveSynonyms follows synonyms of the schema to their targets.
	ResolveSynonyms bool
	// IncludeAll keeps NOT NULL check constraints.
	IncludeAll bool
}

func (o ReflectOptions) withDefaults() ReflectOptions {
	if o.Scope == 0 {
		o.Scope = model.ScopeDefault
	}
	if o.Kind == 0 {
		o.Kind = model.KindTable
	}
	return o
}

// single returns the options of a one-object lookup.
func (o ReflectOptions) single(name string) ReflectOptions {
	o.FilterNames = []string{name}
	o.Scope = model.ScopeAny
	o.Kind = model.KindAny
	return o
}

func (o ReflectOptions) key(op string, extra ...any) string {
	parts := []any{o.Schema, strings.Join(o.FilterNames, ","), uint8(o.Scope), uint8(o.Kind), o.DBLink, o.ResolveSynonyms, o.IncludeAll}
	return cacheKey(op, append(parts, extra...)...)
}

// InfoCache memoizes reflection results for one reflection pass. It is
// owned by the caller and safe for concurrent use.
type InfoCache struct {
	id      string
	mu      sync.Mutex
	entries map[string]any
}

func NewInfoCache() *InfoCache {
	return &InfoCache{id: uuid.NewString(), entries: make(map[string]any)}
}

// ID identifies the reflection pass in logs.
func (c *InfoCache) ID() string { return c.id }

// Clear forgets every memoized result.
func (c *InfoCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]any)
}

// cached returns the memoized value for key or computes and stores it. The
// lock is not held while fn runs, so fn may itself use the cache.
func cached[T any](c *InfoCache, key string, fn func() (T, error)) (T, error) {
	c.mu.Lock()
	if v, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return v.(T), nil
	}
	c.mu.Unlock()

	v, err := fn()
	if err != nil {
		var zero T
		return zero, err
	}
	c.mu.Lock()
	c.entries[key] = v
	c.mu.Unlock()
	return v, nil
}

// Inspector reads the system catalog through a Queryer.
type Inspector struct {
	d      *Dialect
	db     Queryer
	cache  *InfoCache
	logger *zap.Logger
}

// NewInspector binds the dialect to a connection. A nil cache starts a new
// reflection pass.
func (d *Dialect) NewInspector(db Queryer, cache *InfoCache) *Inspector {
	if cache == nil {
		cache = NewInfoCache()
	}
	return &Inspector{
		d:      d,
		db:     db,
		cache:  cache,
		logger: d.logger.With(zap.String("reflection", cache.ID())),
	}
}

// Cache returns the inspector's InfoCache.
func (in *Inspector) Cache() *InfoCache { return in.cache }

// DefaultSchemaName returns the session's current schema, normalized.
func (in *Inspector) DefaultSchemaName(ctx context.Context) (string, error) {
	return cached(in.cache, "default_schema", func() (string, error) {
		q, err := in.d.defaultSchemaQuery()
		if err != nil {
			return "", err
		}
		rows, err := in.d.execute(ctx, in.db, q, "", nil)
		if err != nil {
			return "", fmt.Errorf("get default schema: %w", err)
		}
		if len(rows) == 0 {
			return "", fmt.Errorf("get default schema: no rows")
		}
		return in.d.names.Normalize(firstValue(rows[0])), nil
	})
}

// firstValue returns the only column of a single column row.
func firstValue(r Row) string {
	for k := range r {
		return r.String(k)
	}
	return ""
}

// owner resolves a caller schema to the catalog owner name.
func (in *Inspector) owner(ctx context.Context, schema string) (string, error) {
	if schema == "" {
		def, err := in.DefaultSchemaName(ctx)
		if err != nil {
			return "", err
		}
		schema = def
	}
	return in.d.names.DenormalizeSchema(schema), nil
}

func (in *Inspector) names(ctx context.Context, op string, q *Compiled, dblink, key string) ([]string, error) {
	rows, err := in.d.execute(ctx, in.db, q, dblink, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return in.d.names.NormalizeAll(column(rows, key)), nil
}

// ----------------------------------------------------------------------------
// Name listings
// ----------------------------------------------------------------------------

func (in *Inspector) GetSchemaNames(ctx context.Context, dblink string) ([]string, error) {
	return cached(in.cache, cacheKey("schema_names", dblink), func() ([]string, error) {
		q, err := in.d.schemaNamesQuery()
		if err != nil {
			return nil, err
		}
		return in.names(ctx, "get schema names", q, dblink, "username")
	})
}

// GetTableNames lists the plain tables of opts.Schema. Temporary tables,
// index organized tables and materialized views are left out.
func (in *Inspector) GetTableNames(ctx context.Context, opts ReflectOptions) ([]string, error) {
	return cached(in.cache, opts.key("table_names"), func() ([]string, error) {
		owner, err := in.owner(ctx, opts.Schema)
		if err != nil {
			return nil, err
		}
		q, err := in.d.tableNamesQuery(owner, opts.ResolveSynonyms)
		if err != nil {
			return nil, err
		}
		return in.names(ctx, "get table names "+owner, q, opts.DBLink, "table_name")
	})
}

// GetTempTableNames lists the temporary tables of the default schema.
func (in *Inspector) GetTempTableNames(ctx context.Context) ([]string, error) {
	return cached(in.cache, "temp_table_names", func() ([]string, error) {
		owner, err := in.owner(ctx, "")
		if err != nil {
			return nil, err
		}
		q, err := in.d.tempTableNamesQuery(owner)
		if err != nil {
			return nil, err
		}
		return in.names(ctx, "get temp table names "+owner, q, "", "table_name")
	})
}

func (in *Inspector) GetViewNames(ctx context.Context, opts ReflectOptions) ([]string, error) {
	return cached(in.cache, cacheKey("view_names", opts.Schema, opts.DBLink), func() ([]string, error) {
		owner, err := in.owner(ctx, opts.Schema)
		if err != nil {
			return nil, err
		}
		q, err := in.d.viewNamesQuery(owner)
		if err != nil {
			return nil, err
		}
		return in.names(ctx, "get view names "+owner, q, opts.DBLink, "view_name")
	})
}

func (in *Inspector) GetMaterializedViewNames(ctx context.Context, opts ReflectOptions) ([]string, error) {
	raw, err := in.matViewNames(ctx, opts)
	if err != nil {
		return nil, err
	}
	return in.d.names.NormalizeAll(raw), nil
}

// matViewNames returns materialized view names as stored in the catalog.
func (in *Inspector) matViewNames(ctx context.Context, opts ReflectOptions) ([]string, error) {
	return cached(in.cache, cacheKey("mview_names", opts.Schema, opts.DBLink), func() ([]string, error) {
		owner, err := in.owner(ctx, opts.Schema)
		if err != nil {
			return nil, err
		}
		q, err := in.d.mviewNamesQuery(owner)
		if err != nil {
			return nil, err
		}
		rows, err := in.d.execute(ctx, in.db, q, opts.DBLink, nil)
		if err != nil {
			return nil, fmt.Errorf("get materialized view names %s: %w", owner, err)
		}
		return column(rows, "mview_name"), nil
	})
}

func (in *Inspector) GetSequenceNames(ctx context.Context, opts ReflectOptions) ([]string, error) {
	return cached(in.cache, cacheKey("sequence_names", opts.Schema, opts.DBLink), func() ([]string, error) {
		owner, err := in.owner(ctx, opts.Schema)
		if err != nil {
			return nil, err
		}
		q, err := in.d.sequenceNamesQuery(owner)
		if err != nil {
			return nil, err
		}
		return in.names(ctx, "get sequence names "+owner, q, opts.DBLink, "sequence_name")
	})
}

// ListDBLinks lists the database links visible to the session.
func (in *Inspector) ListDBLinks(ctx context.Context, dblink string) ([]string, error) {
	q, err := in.d.dbLinksQuery()
	if err != nil {
		return nil, err
	}
	return in.names(ctx, "list db links", q, dblink, "db_link")
}

// ----------------------------------------------------------------------------
// Existence and definitions
// ----------------------------------------------------------------------------

// HasTable reports whether a table, view or materialized view exists.
func (in *Inspector) HasTable(ctx context.Context, name string, opts ReflectOptions) (bool, error) {
	owner, err := in.owner(ctx, opts.Schema)
	if err != nil {
		return false, err
	}
	q, err := in.d.hasTableQuery()
	if err != nil {
		return false, err
	}
	rows, err := in.d.execute(ctx, in.db, q, opts.DBLink, map[string]any{
		"table_name": in.d.names.Denormalize(name),
		"owner":      owner,
	})
	if err != nil {
		return false, fmt.Errorf("has table %s.%s: %w", owner, name, err)
	}
	return len(rows) > 0 && !rows[0].IsNull("table_name"), nil
}

func (in *Inspector) HasSequence(ctx context.Context, name string, opts ReflectOptions) (bool, error) {
	owner, err := in.owner(ctx, opts.Schema)
	if err != nil {
		return false, err
	}
	q, err := in.d.hasSequenceQuery()
	if err != nil {
		return false, err
	}
	rows, err := in.d.execute(ctx, in.db, q, opts.DBLink, map[string]any{
		"sequence_name": in.d.names.DenormalizeSchema(name),
		"owner":         owner,
	})
	if err != nil {
		return false, fmt.Errorf("has sequence %s.%s: %w", owner, name, err)
	}
	return len(rows) > 0 && !rows[0].IsNull("sequence_name"), nil
}

// GetViewDefinition returns the query text of a view or materialized view.
// With synonym resolution a synonym of that name is followed first.
func (in *Inspector) GetViewDefinition(ctx context.Context, name string, opts ReflectOptions) (string, error) {
	return cached(in.cache, opts.key("view_definition", name), func() (string, error) {
		schema, dblink, view := opts.Schema, opts.DBLink, name
		if opts.ResolveSynonyms {
			syns, err := in.synonyms(ctx, opts.Schema, []string{name}, opts.DBLink)
			if err != nil {
				return "", err
			}
			if len(syns) > 1 {
				return "", fmt.Errorf("view definition %s: %w", name, ErrAmbiguousSynonym)
			}
			if len(syns) == 1 {
				target, err := in.splitSynonym(syns[0])
				if err != nil {
					return "", err
				}
				schema, dblink, view = target.owner, target.dblink, target.name
			}
		}

		owner, err := in.owner(ctx, schema)
		if err != nil {
			return "", err
		}
		q, err := in.d.viewDefinitionQuery()
		if err != nil {
			return "", err
		}
		rows, err := in.d.execute(ctx, in.db, q, dblink, map[string]any{
			"name":  in.d.names.Denormalize(view),
			"owner": owner,
		})
		if err != nil {
			return "", fmt.Errorf("view definition %s.%s: %w", owner, view, err)
		}
		if len(rows) == 0 || rows[0].IsNull("text") {
			return "", noSuchTable(schema, view)
		}
		return rows[0].String("text"), nil
	})
}

// ----------------------------------------------------------------------------
// Objects
// ----------------------------------------------------------------------------

// allObjects lists the catalog names of the objects opts selects.
func (in *Inspector) allObjects(ctx context.Context, opts ReflectOptions) ([]string, error) {
	return cached(in.cache, opts.key("all_objects"), func() ([]string, error) {
		owner, err := in.owner(ctx, opts.Schema)
		if err != nil {
			return nil, err
		}
		params := map[string]any{}
		hasFilter := len(opts.FilterNames) > 0
		if hasFilter {
			params["filter_names"] = in.d.names.DenormalizeAll(opts.FilterNames)
		}
		hasMatViews := false
		if opts.Kind.Has(model.KindTable) && !opts.Kind.Has(model.KindMaterializedView) {
			mviews, err := in.matViewNames(ctx, opts)
			if err != nil {
				return nil, err
			}
			if len(mviews) > 0 {
				params["mat_views"] = mviews
				hasMatViews = true
			}
		}

		q, err := in.d.allObjectsQuery(owner, opts.Scope, opts.Kind, hasFilter, hasMatViews)
		if err != nil {
			return nil, err
		}
		rows, err := in.d.execute(ctx, in.db, q, opts.DBLink, params)
		if err != nil {
			return nil, fmt.Errorf("get objects %s: %w", owner, err)
		}
		return column(rows, "object_name"), nil
	})
}

// objectKeys returns the result keys of every object, in catalog order.
func (in *Inspector) objectKeys(schema string, objects []string) []model.TableKey {
	keys := make([]model.TableKey, len(objects))
	for i, o := range objects {
		keys[i] = model.TableKey{Schema: schema, Name: in.d.names.Normalize(o)}
	}
	return keys
}

// valueOrNoSuchTable picks one object's entry out of a multi-object result.
func valueOrNoSuchTable[T any](in *Inspector, data map[model.TableKey]T, schema, name string) (T, error) {
	key := model.TableKey{Schema: schema, Name: in.d.names.Normalize(name)}
	v, ok := data[key]
	if !ok {
		var zero T
		return zero, noSuchTable(schema, key.Name)
	}
	return v, nil
}

// SortedKeys returns the keys of a multi-object result in name order.
func SortedKeys[T any](data map[model.TableKey]T) []model.TableKey {
	keys := make([]model.TableKey, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Schema != keys[j].Schema {
			return keys[i].Schema < keys[j].Schema
		}
		return keys[i].Name < keys[j].Name
	})
	return keys
}
