package dialect

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeCall is one statement the fake database received.
type fakeCall struct {
	sql  string
	args []any
}

type fakeHandler struct {
	match string
	rows  func(args []any) []Row
}

// fakeDB serves canned catalog rows. The first handler whose match string
// is contained in the rendered SQL answers; unmatched statements return no
// rows.
type fakeDB struct {
	mu       sync.Mutex
	handlers []fakeHandler
	calls    []fakeCall
	failOn   string
}

func (f *fakeDB) on(match string, rows ...Row) *fakeDB {
	return f.onArgs(match, func([]any) []Row { return rows })
}

func (f *fakeDB) onArgs(match string, fn func(args []any) []Row) *fakeDB {
	f.handlers = append(f.handlers, fakeHandler{match: match, rows: fn})
	return f
}

func (f *fakeDB) Query(_ context.Context, sql string, args []any) ([]Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fakeCall{sql: sql, args: args})
	if f.failOn != "" && strings.Contains(sql, f.failOn) {
		return nil, errors.New("connection reset")
	}
	for _, h := range f.handlers {
		if strings.Contains(sql, h.match) {
			// hand out copies so assemblers cannot alter the fixtures
			src := h.rows(args)
			out := make([]Row, len(src))
			for i, r := range src {
				cp := make(Row, len(r))
				for k, v := range r {
					cp[k] = v
				}
				out[i] = cp
			}
			return out, nil
		}
	}
	return nil, nil
}

// callsMatching returns the statements containing substr.
func (f *fakeDB) callsMatching(substr string) []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeCall
	for _, c := range f.calls {
		if strings.Contains(c.sql, substr) {
			out = append(out, c)
		}
	}
	return out
}

// Statement fragments the fake matches on.
const (
	sqlDefaultSchema = "sys_context"
	sqlObjects       = "FROM all_objects"
	sqlMViewNames    = "SELECT a_mviews.mview_name FROM"
	sqlColumns       = "FROM all_tab_cols"
	sqlIndexes       = "FROM all_ind_columns"
	sqlConstraints   = "FROM all_constraints"
	sqlSynonyms      = "SELECT a_synonyms.synonym_name"
	sqlSynonymOwners = "SELECT a_synonyms.owner"
	sqlTabComments   = "FROM all_tab_comments"
	sqlTableOptions  = "SELECT a_tables.table_name, a_tables.compression"
	sqlViewNames     = "SELECT a_views.view_name FROM"
)

func newTestDialect(t *testing.T, opts Options) *Dialect {
	t.Helper()
	d, err := New(opts, zap.NewNop())
	require.NoError(t, err)
	return d
}

// newObservedDialect returns a dialect whose warnings can be inspected.
func newObservedDialect(t *testing.T, opts Options) (*Dialect, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	d, err := New(opts, zap.New(core))
	require.NoError(t, err)
	return d, logs
}

// schemaDB is a fake answering the default schema query with SCOTT.
func schemaDB() *fakeDB {
	return (&fakeDB{}).on(sqlDefaultSchema, Row{"sys_context('userenv','current_schema')": "SCOTT"})
}

func ptr[T any](v T) *T { return &v }

func dec(s string) *decimal.Decimal { return ptr(decimal.RequireFromString(s)) }
