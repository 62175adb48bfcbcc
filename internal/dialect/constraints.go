package dialect

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/faucetdb/tibero/internal/model"
)

// constraintRows returns the primary key, foreign key, unique and check
// constraint rows of objects. Every constraint assembler reads the same
// cached rows.
func (in *Inspector) constraintRows(ctx context.Context, opts ReflectOptions, objects []string) ([]Row, error) {
	key := cacheKey("constraint_rows", opts.Schema, opts.DBLink, strings.Join(objects, ","))
	return cached(in.cache, key, func() ([]Row, error) {
		owner, err := in.owner(ctx, opts.Schema)
		if err != nil {
			return nil, err
		}
		q, err := in.d.constraintQuery(owner)
		if err != nil {
			return nil, err
		}
		rows, err := collect(in.d.runBatches(ctx, in.db, q, opts.DBLink, objects))
		if err != nil {
			return nil, fmt.Errorf("get constraints %s: %w", owner, err)
		}
		return rows, nil
	})
}

// constraintsOfType returns the selected objects and their constraint rows
// of one type.
func (in *Inspector) constraintsOfType(ctx context.Context, opts ReflectOptions, typ string) ([]string, []Row, error) {
	objects, err := in.allObjects(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	rows, err := in.constraintRows(ctx, opts, objects)
	if err != nil {
		return nil, nil, err
	}
	var out []Row
	for _, r := range rows {
		if r.String("constraint_type") == typ {
			out = append(out, r)
		}
	}
	return objects, out, nil
}

// ----------------------------------------------------------------------------
// Primary keys
// ----------------------------------------------------------------------------

func (in *Inspector) GetMultiPKConstraint(ctx context.Context, opts ReflectOptions) (map[model.TableKey]model.PrimaryKey, error) {
	opts = opts.withDefaults()
	return withSynonyms(ctx, in, opts, func(o ReflectOptions) (map[model.TableKey]model.PrimaryKey, error) {
		return cached(in.cache, o.key("pk"), func() (map[model.TableKey]model.PrimaryKey, error) {
			return in.primaryKeys(ctx, o)
		})
	})
}

func (in *Inspector) primaryKeys(ctx context.Context, opts ReflectOptions) (map[model.TableKey]model.PrimaryKey, error) {
	objects, rows, err := in.constraintsOfType(ctx, opts, "P")
	if err != nil {
		return nil, err
	}
	found := map[model.TableKey]*model.PrimaryKey{}
	for _, r := range rows {
		key := model.TableKey{Schema: opts.Schema, Name: in.d.names.Normalize(r.String("table_name"))}
		column := in.d.names.Normalize(r.String("local_column"))
		pk, ok := found[key]
		if !ok {
			found[key] = &model.PrimaryKey{
				Name:               in.d.names.Normalize(r.String("constraint_name")),
				ConstrainedColumns: []string{column},
			}
			continue
		}
		pk.ConstrainedColumns = append(pk.ConstrainedColumns, column)
	}

	out := make(map[model.TableKey]model.PrimaryKey)
	for _, key := range in.objectKeys(opts.Schema, objects) {
		if pk, ok := found[key]; ok {
			out[key] = *pk
		} else {
			out[key] = model.PrimaryKey{ConstrainedColumns: []string{}}
		}
	}
	return out, nil
}

func (in *Inspector) GetPKConstraint(ctx context.Context, table string, opts ReflectOptions) (model.PrimaryKey, error) {
	data, err := in.GetMultiPKConstraint(ctx, opts.single(table))
	if err != nil {
		return model.PrimaryKey{}, err
	}
	return valueOrNoSuchTable(in, data, opts.Schema, table)
}

// ----------------------------------------------------------------------------
// Foreign keys
// ----------------------------------------------------------------------------

func (in *Inspector) GetMultiForeignKeys(ctx context.Context, opts ReflectOptions) (map[model.TableKey][]model.ForeignKey, error) {
	opts = opts.withDefaults()
	return withSynonyms(ctx, in, opts, func(o ReflectOptions) (map[model.TableKey][]model.ForeignKey, error) {
		return cached(in.cache, o.key("fk"), func() (map[model.TableKey][]model.ForeignKey, error) {
			return in.foreignKeys(ctx, o)
		})
	})
}

type fkBuild struct {
	fk        *model.ForeignKey
	refSchema string
}

type tableFKs struct {
	order  []string
	byName map[string]*fkBuild
}

func (in *Inspector) foreignKeys(ctx context.Context, opts ReflectOptions) (map[model.TableKey][]model.ForeignKey, error) {
	owner, err := in.owner(ctx, opts.Schema)
	if err != nil {
		return nil, err
	}
	objects, rows, err := in.constraintsOfType(ctx, opts, "R")
	if err != nil {
		return nil, err
	}

	found := map[model.TableKey]*tableFKs{}
	var remoteOwners []string
	seenOwners := map[string]bool{}

	for _, r := range rows {
		key := model.TableKey{Schema: opts.Schema, Name: in.d.names.Normalize(r.String("table_name"))}
		name := in.d.names.Normalize(r.String("constraint_name"))

		remoteOwnerOrig := r.NullString("remote_owner")
		remoteOwner := ""
		if remoteOwnerOrig != nil {
			remoteOwner = in.d.names.Normalize(*remoteOwnerOrig)
			if !seenOwners[*remoteOwnerOrig] {
				seenOwners[*remoteOwnerOrig] = true
				remoteOwners = append(remoteOwners, *remoteOwnerOrig)
			}
		}

		if r.IsNull("remote_table") {
			link := opts.DBLink
			if link != "" && !strings.HasPrefix(link, "@") {
				link = "@" + link
			}
			in.logger.Warn(fmt.Sprintf("Got 'None' querying 'table_name' from all_cons_columns%s - does the user have proper rights to the table?", link),
				zap.String("constraint", name),
			)
			continue
		}

		t, ok := found[key]
		if !ok {
			t = &tableFKs{byName: map[string]*fkBuild{}}
			found[key] = t
		}
		b, ok := t.byName[name]
		if !ok {
			fk := &model.ForeignKey{
				Name:               name,
				ConstrainedColumns: []string{},
				ReferredTable:      in.d.names.Normalize(r.String("remote_table")),
				ReferredColumns:    []string{},
				Options:            map[string]string{},
			}
			if opts.Schema != "" || remoteOwnerOrig == nil || *remoteOwnerOrig != owner {
				fk.ReferredSchema = remoteOwner
			}
			if rule := r.String("delete_rule"); rule != "NO ACTION" {
				fk.Options["ondelete"] = rule
			}
			b = &fkBuild{fk: fk, refSchema: remoteOwner}
			t.byName[name] = b
			t.order = append(t.order, name)
		}
		b.fk.ConstrainedColumns = append(b.fk.ConstrainedColumns, in.d.names.Normalize(r.String("local_column")))
		b.fk.ReferredColumns = append(b.fk.ReferredColumns, in.d.names.Normalize(r.String("remote_column")))
	}

	if opts.ResolveSynonyms && len(remoteOwners) > 0 {
		if err := in.resolveReferredSynonyms(ctx, opts, owner, remoteOwners, found); err != nil {
			return nil, err
		}
	}

	out := make(map[model.TableKey][]model.ForeignKey)
	for _, key := range in.objectKeys(opts.Schema, objects) {
		t, ok := found[key]
		if !ok {
			out[key] = []model.ForeignKey{}
			continue
		}
		list := make([]model.ForeignKey, len(t.order))
		for i, name := range t.order {
			list[i] = *t.byName[name].fk
		}
		out[key] = list
	}
	return out, nil
}

// resolveReferredSynonyms points foreign keys at a synonym of their referred
// table when the referred owner has one.
func (in *Inspector) resolveReferredSynonyms(ctx context.Context, opts ReflectOptions, owner string, remoteOwners []string, found map[model.TableKey]*tableFKs) error {
	q, err := in.d.synonymOwnersQuery()
	if err != nil {
		return err
	}
	rows, err := in.d.execute(ctx, in.db, q, opts.DBLink, map[string]any{"owners": remoteOwners})
	if err != nil {
		return fmt.Errorf("get synonyms of %s: %w", strings.Join(remoteOwners, ", "), err)
	}

	type target struct{ owner, synonym string }
	lut := map[[2]string]target{}
	for _, r := range rows {
		// A remote target keeps its link in the name; only the object part
		// can match a referred table.
		name := r.String("org_object_name")
		if i := strings.LastIndexByte(name, '@'); i > 0 {
			name = name[:i]
		}
		k := [2]string{in.d.names.Normalize(r.String("owner")), in.d.names.Normalize(name)}
		lut[k] = target{owner: r.String("org_object_owner"), synonym: r.String("synonym_name")}
	}

	for _, t := range found {
		for _, b := range t.byName {
			hit, ok := lut[[2]string{b.refSchema, b.fk.ReferredTable}]
			if !ok || hit.synonym == "" {
				continue
			}
			b.fk.ReferredTable = in.d.names.Normalize(hit.synonym)
			if opts.Schema != "" || hit.owner != owner {
				b.fk.ReferredSchema = in.d.names.Normalize(hit.owner)
			} else {
				b.fk.ReferredSchema = ""
			}
		}
	}
	return nil
}

func (in *Inspector) GetForeignKeys(ctx context.Context, table string, opts ReflectOptions) ([]model.ForeignKey, error) {
	data, err := in.GetMultiForeignKeys(ctx, opts.single(table))
	if err != nil {
		return nil, err
	}
	return valueOrNoSuchTable(in, data, opts.Schema, table)
}

// ----------------------------------------------------------------------------
// Unique constraints
// ----------------------------------------------------------------------------

func (in *Inspector) GetMultiUniqueConstraints(ctx context.Context, opts ReflectOptions) (map[model.TableKey][]model.UniqueConstraint, error) {
	opts = opts.withDefaults()
	return withSynonyms(ctx, in, opts, func(o ReflectOptions) (map[model.TableKey][]model.UniqueConstraint, error) {
		return cached(in.cache, o.key("unique"), func() (map[model.TableKey][]model.UniqueConstraint, error) {
			return in.uniqueConstraints(ctx, o)
		})
	})
}

func (in *Inspector) uniqueConstraints(ctx context.Context, opts ReflectOptions) (map[model.TableKey][]model.UniqueConstraint, error) {
	objects, rows, err := in.constraintsOfType(ctx, opts, "U")
	if err != nil {
		return nil, err
	}
	indexRows, err := in.indexRows(ctx, opts, objects)
	if err != nil {
		return nil, err
	}
	indexNames := map[string]bool{}
	for _, r := range indexRows {
		indexNames[r.String("index_name")] = true
	}

	type tableUCs struct {
		order  []string
		byName map[string]*model.UniqueConstraint
	}
	found := map[model.TableKey]*tableUCs{}
	for _, r := range rows {
		key := model.TableKey{Schema: opts.Schema, Name: in.d.names.Normalize(r.String("table_name"))}
		orig := r.String("constraint_name")
		name := in.d.names.Normalize(orig)

		t, ok := found[key]
		if !ok {
			t = &tableUCs{byName: map[string]*model.UniqueConstraint{}}
			found[key] = t
		}
		uc, ok := t.byName[name]
		if !ok {
			uc = &model.UniqueConstraint{Name: name, ColumnNames: []string{}}
			if indexNames[orig] {
				uc.DuplicatesIndex = name
			}
			t.byName[name] = uc
			t.order = append(t.order, name)
		}
		uc.ColumnNames = append(uc.ColumnNames, in.d.names.Normalize(r.String("local_column")))
	}

	out := make(map[model.TableKey][]model.UniqueConstraint)
	for _, key := range in.objectKeys(opts.Schema, objects) {
		t, ok := found[key]
		if !ok {
			out[key] = []model.UniqueConstraint{}
			continue
		}
		list := make([]model.UniqueConstraint, len(t.order))
		for i, name := range t.order {
			list[i] = *t.byName[name]
		}
		out[key] = list
	}
	return out, nil
}

func (in *Inspector) GetUniqueConstraints(ctx context.Context, table string, opts ReflectOptions) ([]model.UniqueConstraint, error) {
	data, err := in.GetMultiUniqueConstraints(ctx, opts.single(table))
	if err != nil {
		return nil, err
	}
	return valueOrNoSuchTable(in, data, opts.Schema, table)
}

// ----------------------------------------------------------------------------
// Check constraints
// ----------------------------------------------------------------------------

// notNullCheck matches the check constraints the server creates for NOT
// NULL columns, e.g. "ID" IS NOT NULL.
var notNullCheck = regexp.MustCompile(`^..+?. IS NOT NULL$`)

// GetMultiCheckConstraints reflects check constraints. NOT NULL checks are
// left out unless opts.IncludeAll is set.
func (in *Inspector) GetMultiCheckConstraints(ctx context.Context, opts ReflectOptions) (map[model.TableKey][]model.CheckConstraint, error) {
	opts = opts.withDefaults()
	return withSynonyms(ctx, in, opts, func(o ReflectOptions) (map[model.TableKey][]model.CheckConstraint, error) {
		return cached(in.cache, o.key("check"), func() (map[model.TableKey][]model.CheckConstraint, error) {
			return in.checkConstraints(ctx, o)
		})
	})
}

func (in *Inspector) checkConstraints(ctx context.Context, opts ReflectOptions) (map[model.TableKey][]model.CheckConstraint, error) {
	objects, rows, err := in.constraintsOfType(ctx, opts, "C")
	if err != nil {
		return nil, err
	}
	found := map[model.TableKey][]model.CheckConstraint{}
	for _, r := range rows {
		key := model.TableKey{Schema: opts.Schema, Name: in.d.names.Normalize(r.String("table_name"))}
		if r.IsNull("constraint_name") {
			continue
		}
		cond := r.String("search_condition")
		if !opts.IncludeAll && notNullCheck.MatchString(cond) {
			continue
		}
		found[key] = append(found[key], model.CheckConstraint{
			Name:    in.d.names.Normalize(r.String("constraint_name")),
			SQLText: cond,
		})
	}

	out := make(map[model.TableKey][]model.CheckConstraint)
	for _, key := range in.objectKeys(opts.Schema, objects) {
		if checks, ok := found[key]; ok {
			out[key] = checks
		} else {
			out[key] = []model.CheckConstraint{}
		}
	}
	return out, nil
}

func (in *Inspector) GetCheckConstraints(ctx context.Context, table string, opts ReflectOptions) ([]model.CheckConstraint, error) {
	data, err := in.GetMultiCheckConstraints(ctx, opts.single(table))
	if err != nil {
		return nil, err
	}
	return valueOrNoSuchTable(in, data, opts.Schema, table)
}
