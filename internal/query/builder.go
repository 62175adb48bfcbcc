package query

import (
	"fmt"
	"strings"

	"github.com/faucetdb/tibero/internal/connector"
)

// ParseOrder parses an order list such as "sal DESC, ename" or "-sal,ename".
// A leading "-" is shorthand for DESC; the direction defaults to ASC.
func ParseOrder(order string) ([]connector.OrderField, error) {
	var out []connector.OrderField
	for _, part := range strings.Split(order, ",") {
		tokens := strings.Fields(part)
		if len(tokens) == 0 {
			continue
		}
		if len(tokens) > 2 {
			return nil, fmt.Errorf("invalid order clause %q: expected 'column [ASC|DESC]'", strings.TrimSpace(part))
		}

		col, desc := strings.CutPrefix(tokens[0], "-")
		if len(tokens) == 2 {
			if desc {
				return nil, fmt.Errorf("invalid order clause %q: use either '-' or a direction", strings.TrimSpace(part))
			}
			switch strings.ToUpper(tokens[1]) {
			case "ASC":
			case "DESC":
				desc = true
			default:
				return nil, fmt.Errorf("invalid order direction %q: must be ASC or DESC", tokens[1])
			}
		}
		if err := ValidateIdentifier(col); err != nil {
			return nil, fmt.Errorf("invalid order column: %w", err)
		}
		out = append(out, connector.OrderField{Column: col, Desc: desc})
	}
	return out, nil
}

// ParseFields parses a comma separated field list like "empno,ename" into
// validated column names. Returns nil for an empty list.
func ParseFields(fields string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(fields, ",") {
		col := strings.TrimSpace(part)
		if col == "" {
			continue
		}
		if err := ValidateIdentifier(col); err != nil {
			return nil, fmt.Errorf("invalid field name: %w", err)
		}
		out = append(out, col)
	}
	return out, nil
}
