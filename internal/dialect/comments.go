package dialect

import (
	"context"
	"fmt"
	"strings"

	"github.com/faucetdb/tibero/internal/model"
)

// Materialized views get this comment by default; it is not a user comment.
const matViewComment = "snapshot table for snapshot "

// GetMultiTableComment reflects table, view and materialized view comments.
// Objects without a comment map to a nil Text.
func (in *Inspector) GetMultiTableComment(ctx context.Context, opts ReflectOptions) (map[model.TableKey]model.TableComment, error) {
	opts = opts.withDefaults()
	return withSynonyms(ctx, in, opts, func(o ReflectOptions) (map[model.TableKey]model.TableComment, error) {
		return cached(in.cache, o.key("comments"), func() (map[model.TableKey]model.TableComment, error) {
			return in.comments(ctx, o)
		})
	})
}

func (in *Inspector) comments(ctx context.Context, opts ReflectOptions) (map[model.TableKey]model.TableComment, error) {
	owner, err := in.owner(ctx, opts.Schema)
	if err != nil {
		return nil, err
	}
	params := map[string]any{}
	hasFilter := len(opts.FilterNames) > 0
	if hasFilter {
		params["filter_names"] = in.d.names.DenormalizeAll(opts.FilterNames)
	}
	q, err := in.d.commentQuery(owner, opts.Scope, opts.Kind, hasFilter)
	if err != nil {
		return nil, err
	}
	rows, err := in.d.execute(ctx, in.db, q, opts.DBLink, params)
	if err != nil {
		return nil, fmt.Errorf("get table comments %s: %w", owner, err)
	}

	out := make(map[model.TableKey]model.TableComment, len(rows))
	for _, r := range rows {
		key := model.TableKey{Schema: opts.Schema, Name: in.d.names.Normalize(r.String("table_name"))}
		text := r.NullString("comments")
		if text != nil && strings.HasPrefix(*text, matViewComment) {
			text = nil
		}
		out[key] = model.TableComment{Text: text}
	}
	return out, nil
}

func (in *Inspector) GetTableComment(ctx context.Context, table string, opts ReflectOptions) (model.TableComment, error) {
	data, err := in.GetMultiTableComment(ctx, opts.single(table))
	if err != nil {
		return model.TableComment{}, err
	}
	return valueOrNoSuchTable(in, data, opts.Schema, table)
}
