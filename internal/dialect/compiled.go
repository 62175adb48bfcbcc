package dialect

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/faucetdb/tibero/internal/clause"
)

const emptySetSQL = "SELECT 1 FROM DUAL WHERE 1!=1"

// ExecOptions are applied when a compiled statement is rendered for one
// execution. They never change the compiled value itself, so the same
// Compiled can be shared through the query cache.
type ExecOptions struct {
	// DBLink replaces DBLinkPlaceholder. A leading "@" is added when
	// missing. Empty removes the placeholder.
	DBLink string
	// LiteralBinds renders every bind inline instead of as "?".
	LiteralBinds bool
}

type fragment struct {
	text string
	bind *clause.BindParam
}

// Compiled is an immutable compiled statement: SQL text interleaved with
// bind slots.
type Compiled struct {
	frags []fragment
	names []string
	// long is set for queries returning LONG columns, which cannot be read
	// over a database link with bind parameters.
	long bool
}

// ReturnsLong reports whether the query projects a LONG column.
func (c *Compiled) ReturnsLong() bool { return c.long }

// BindNames lists the distinct bind names in order of first use.
func (c *Compiled) BindNames() []string {
	return append([]string(nil), c.names...)
}

// String renders the statement with :name markers for binds and the db
// link placeholder left in place.
func (c *Compiled) String() string {
	var b strings.Builder
	for _, f := range c.frags {
		if f.bind == nil {
			b.WriteString(f.text)
			continue
		}
		if f.bind.Expanding {
			b.WriteString("(:" + f.bind.Name + ")")
		} else {
			b.WriteString(":" + f.bind.Name)
		}
	}
	return b.String()
}

// Render produces executable SQL with "?" placeholders and its arguments.
// Values in params override values carried by the binds. An expanding bind
// renders one placeholder per element, or an always empty subquery when the
// list is empty.
func (c *Compiled) Render(params map[string]any, opts ExecOptions) (string, []any, error) {
	var (
		b    strings.Builder
		args []any
	)
	for _, f := range c.frags {
		if f.bind == nil {
			b.WriteString(f.text)
			continue
		}
		v, ok := params[f.bind.Name]
		if !ok {
			if !f.bind.HasValue {
				return "", nil, fmt.Errorf("%w: %s", ErrMissingBind, f.bind.Name)
			}
			v = f.bind.Value
		}
		inline := opts.LiteralBinds || f.bind.LiteralExecute

		if !f.bind.Expanding {
			if inline {
				lit, err := literal(v)
				if err != nil {
					return "", nil, fmt.Errorf("render bind %s: %w", f.bind.Name, err)
				}
				b.WriteString(lit)
			} else {
				b.WriteByte('?')
				args = append(args, v)
			}
			continue
		}

		items, err := expand(v)
		if err != nil {
			return "", nil, fmt.Errorf("render bind %s: %w", f.bind.Name, err)
		}
		if len(items) == 0 {
			b.WriteString("(" + emptySetSQL + ")")
			continue
		}
		b.WriteByte('(')
		for i, item := range items {
			if i > 0 {
				b.WriteString(", ")
			}
			if inline {
				lit, err := literal(item)
				if err != nil {
					return "", nil, fmt.Errorf("render bind %s: %w", f.bind.Name, err)
				}
				b.WriteString(lit)
			} else {
				b.WriteByte('?')
				args = append(args, item)
			}
		}
		b.WriteByte(')')
	}
	return substituteDBLink(b.String(), opts.DBLink), args, nil
}

func substituteDBLink(sql, link string) string {
	if link != "" && !strings.HasPrefix(link, "@") {
		link = "@" + link
	}
	return strings.ReplaceAll(sql, DBLinkPlaceholder, link)
}

// expand flattens a slice value into its elements.
func expand(v any) ([]any, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return s, nil
	case []string:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expanding bind needs a list, got %T", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// literal renders v as an inline SQL literal.
func literal(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return quoteString(x), nil
	case bool:
		if x {
			return "1", nil
		}
		return "0", nil
	case int:
		return strconv.FormatInt(int64(x), 10), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case []byte:
		return fmt.Sprintf("HEXTORAW('%X')", x), nil
	case decimal.Decimal:
		return x.String(), nil
	case *big.Int:
		return x.String(), nil
	case time.Time:
		return fmt.Sprintf("TO_TIMESTAMP('%s', 'YYYY-MM-DD HH24:MI:SS.FF6')", x.Format("2006-01-02 15:04:05.000000")), nil
	case fmt.Stringer:
		return quoteString(x.String()), nil
	}
	return "", fmt.Errorf("cannot render %T as a literal", v)
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// simpleInt reports the value of e when it is a plain integer constant or
// an integer bind with a known value.
func simpleInt(e clause.Expression) (int64, bool) {
	var v any
	switch x := e.(type) {
	case clause.Value:
		v = x.Value
	case clause.BindParam:
		if !x.HasValue || x.Expanding {
			return 0, false
		}
		v = x.Value
	default:
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), true
	}
	return 0, false
}
