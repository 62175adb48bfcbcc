package tibero

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/faucetdb/tibero/internal/connector"
	"github.com/faucetdb/tibero/internal/dialect"
	"github.com/faucetdb/tibero/internal/model"
)

// Fetch runs the SELECT of req and returns its rows with every value
// converted by the result processor of its reflected column type. Equality
// values are converted by the bind processor of the column they are
// compared with, so fractional NUMBER binds travel as decimals.
func (c *TiberoConnector) Fetch(ctx context.Context, req connector.SelectRequest) ([]dialect.Row, error) {
	if c.queryer == nil {
		return nil, fmt.Errorf("tibero: not connected")
	}
	d := c.dialect
	schema := req.Schema
	if schema == "" {
		schema = c.schemaName
	}
	cols, err := d.NewInspector(c.queryer, dialect.NewInfoCache()).
		GetColumns(ctx, req.Table, dialect.ReflectOptions{Schema: schema})
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", req.Table, err)
	}
	byName := make(map[string]model.Column, len(cols))
	for _, col := range cols {
		byName[strings.ToLower(col.Name)] = col
	}

	if len(req.Equals) > 0 {
		equals := make(map[string]any, len(req.Equals))
		for name, v := range req.Equals {
			col, ok := byName[strings.ToLower(name)]
			if !ok {
				return nil, fmt.Errorf("table %s has no column %s", req.Table, name)
			}
			if equals[name], err = dialect.BindProcessor(col.Type).Apply(v); err != nil {
				return nil, fmt.Errorf("bind %s: %w", name, err)
			}
		}
		req.Equals = equals
	}

	s, err := SelectStatement(c.schemaName, req)
	if err != nil {
		return nil, err
	}
	if len(req.Fields) == 0 && req.Offset > 0 && !d.Options().EnableOffsetFetch {
		starColumns(s, cols)
	}
	sql, args, err := d.CompileSQL(s, nil)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("fetch", zap.String("sql", sql), zap.Int("args", len(args)))

	rows, err := c.queryer.Query(ctx, sql, args)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", req.Table, err)
	}

	// Fetched keys are lower case.
	processed := make([]model.Column, 0, len(cols))
	for key, col := range byName {
		col.Name = key
		processed = append(processed, col)
	}
	for i, row := range rows {
		if err := dialect.ProcessRow(row, processed); err != nil {
			return nil, fmt.Errorf("fetch %s row %d: %w", req.Table, i+1, err)
		}
	}
	return rows, nil
}

var _ connector.Fetcher = (*TiberoConnector)(nil)
