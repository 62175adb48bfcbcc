package dialect

import (
	"context"
	"fmt"
	"iter"
	"math"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Row is one catalog row keyed by lower case column label.
type Row map[string]any

// NullString returns the column as a string, or nil for SQL NULL.
func (r Row) NullString(key string) *string {
	switch v := r[key].(type) {
	case nil:
		return nil
	case string:
		return &v
	case []byte:
		s := string(v)
		return &s
	default:
		s := fmt.Sprint(v)
		return &s
	}
}

// String returns the column as a string; NULL is "".
func (r Row) String(key string) string {
	if s := r.NullString(key); s != nil {
		return *s
	}
	return ""
}

// IsNull reports whether the column is SQL NULL or missing.
func (r Row) IsNull(key string) bool { return r[key] == nil }

// NullInt returns an integral numeric column, or nil for NULL. Floats with
// a fractional part and unparsable text are also nil.
func (r Row) NullInt(key string) *int {
	var f float64
	switch v := r[key].(type) {
	case nil:
		return nil
	case int:
		return &v
	case int32:
		n := int(v)
		return &n
	case int64:
		n := int(v)
		return &n
	case float32:
		f = float64(v)
	case float64:
		f = v
	case decimal.Decimal:
		if !v.IsInteger() {
			return nil
		}
		n := int(v.IntPart())
		return &n
	case string, []byte:
		s := strings.TrimSpace(r.String(key))
		if n, err := strconv.Atoi(s); err == nil {
			return &n
		}
		pf, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = pf
	default:
		return nil
	}
	if f != math.Trunc(f) {
		return nil
	}
	n := int(f)
	return &n
}

// Queryer runs one rendered statement and returns all of its rows.
type Queryer interface {
	Query(ctx context.Context, query string, args []any) ([]Row, error)
}

// SQLXQueryer adapts a sqlx database or transaction.
type SQLXQueryer struct {
	DB sqlx.QueryerContext
}

func (q SQLXQueryer) Query(ctx context.Context, query string, args []any) ([]Row, error) {
	rows, err := q.DB.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		m := make(map[string]any)
		if err := rows.MapScan(m); err != nil {
			return nil, err
		}
		row := make(Row, len(m))
		for k, v := range m {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[strings.ToLower(k)] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// execute renders q once and runs it. LONG columns cannot be read over a
// db link from a statement with binds, so a LONG query with a link inlines
// every bind.
func (d *Dialect) execute(ctx context.Context, db Queryer, q *Compiled, dblink string, params map[string]any) ([]Row, error) {
	sql, args, err := q.Render(params, ExecOptions{
		DBLink:       dblink,
		LiteralBinds: q.ReturnsLong() && dblink != "",
	})
	if err != nil {
		return nil, err
	}
	d.logger.Debug("reflection query",
		zap.String("sql", sql),
		zap.Int("args", len(args)),
		zap.String("dblink", dblink),
	)
	rows, err := db.Query(ctx, sql, args)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	return rows, nil
}

// runBatches runs q once per batch of objects bound to :all_objects and
// yields the rows of every batch in order. Each call returns a fresh
// sequence; a failed batch yields its error and ends the sequence.
func (d *Dialect) runBatches(ctx context.Context, db Queryer, q *Compiled, dblink string, objects []string) iter.Seq2[Row, error] {
	size := d.opts.BatchSize
	return func(yield func(Row, error) bool) {
		for start := 0; start < len(objects); start += size {
			end := min(start+size, len(objects))
			rows, err := d.execute(ctx, db, q, dblink, map[string]any{
				"all_objects": objects[start:end],
			})
			if err != nil {
				yield(nil, err)
				return
			}
			for _, r := range rows {
				if !yield(r, nil) {
					return
				}
			}
		}
	}
}

// collect drains a row sequence.
func collect(seq iter.Seq2[Row, error]) ([]Row, error) {
	var out []Row
	for r, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// column returns one column of every row as a string.
func column(rows []Row, key string) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.String(key))
	}
	return out
}
