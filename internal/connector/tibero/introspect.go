package tibero

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/faucetdb/tibero/internal/connector"
	"github.com/faucetdb/tibero/internal/dialect"
	"github.com/faucetdb/tibero/internal/model"
)

// Inspect starts a reflection pass. Results are memoized in cache for as
// long as the caller keeps it.
func (c *TiberoConnector) Inspect(cache *dialect.InfoCache) connector.Inspector {
	if cache == nil {
		cache = dialect.NewInfoCache()
	}
	return c.dialect.NewInspector(c.queryer, cache)
}

// withSchema applies the configured schema when the caller names none.
func (c *TiberoConnector) withSchema(opts dialect.ReflectOptions) dialect.ReflectOptions {
	if opts.Schema == "" {
		opts.Schema = c.schemaName
	}
	return opts
}

// IntrospectSchema reflects every object opts selects in one pass.
func (c *TiberoConnector) IntrospectSchema(ctx context.Context, opts dialect.ReflectOptions) (*model.Schema, error) {
	opts = c.withSchema(opts)
	in := c.dialect.NewInspector(c.queryer, dialect.NewInfoCache())
	s, err := in.ReflectSchema(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("introspect schema: %w", err)
	}
	c.logger.Debug("schema introspected",
		zap.String("schema", opts.Schema),
		zap.String("reflection", in.Cache().ID()),
		zap.Int("tables", len(s.Tables)),
		zap.Int("views", len(s.Views)),
	)
	return s, nil
}

// IntrospectTable reflects one table, view or materialized view.
func (c *TiberoConnector) IntrospectTable(ctx context.Context, tableName string, opts dialect.ReflectOptions) (*model.Table, error) {
	opts = c.withSchema(opts)
	t, err := c.dialect.NewInspector(c.queryer, dialect.NewInfoCache()).ReflectTable(ctx, tableName, opts)
	if err != nil {
		return nil, fmt.Errorf("introspect table %s: %w", tableName, err)
	}
	return t, nil
}

// GetTableNames lists the tables of schema, or of the configured schema
// when empty.
func (c *TiberoConnector) GetTableNames(ctx context.Context, schema string) ([]string, error) {
	opts := c.withSchema(dialect.ReflectOptions{Schema: schema})
	return c.dialect.NewInspector(c.queryer, dialect.NewInfoCache()).GetTableNames(ctx, opts)
}
