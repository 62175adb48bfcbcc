// Package tibero connects to Tibero through its ODBC driver and exposes the
// dialect's reflection and SQL rewriting as a connector.Connector.
package tibero

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	_ "github.com/alexbrainman/odbc"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/faucetdb/tibero/internal/connector"
	"github.com/faucetdb/tibero/internal/dialect"
)

// DriverName is the name the connector registers under.
const DriverName = "tibero"

// ODBCDriver is the installed ODBC driver used when no DSN is configured.
const ODBCDriver = "Tibero"

// clientEnv is set before connecting unless the environment already has a
// value. The client library reads its character set handling from it.
var clientEnv = [][2]string{
	{"TBCLI_WCHAR_TYPE", "UCS2"},
	{"TB_NLS_LANG", "UTF8"},
}

// TiberoConnector implements connector.Connector over ODBC.
type TiberoConnector struct {
	db         *sqlx.DB
	queryer    dialect.Queryer
	dialect    *dialect.Dialect
	logger     *zap.Logger
	schemaName string

	fallbackOnce sync.Once
	fallback     *dialect.Dialect
}

// New creates an unconnected TiberoConnector.
func New(logger *zap.Logger) connector.Connector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TiberoConnector{logger: logger}
}

// Connect builds the dialect, opens the ODBC pool and pings it.
func (c *TiberoConnector) Connect(cfg connector.ConnectionConfig) error {
	d, err := dialect.New(cfg.Dialect, c.logger)
	if err != nil {
		return fmt.Errorf("tibero dialect: %w", err)
	}

	setClientEnv()
	connStr := ConnectionString(cfg)
	c.logger.Debug("connecting", zap.String("dsn", connector.RedactDSN(connStr)))

	db, err := sqlx.Connect("odbc", connStr)
	if err != nil {
		return fmt.Errorf("tibero connect: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	c.db = db
	c.queryer = dialect.SQLXQueryer{DB: db}
	c.dialect = d
	c.schemaName = cfg.SchemaName
	return nil
}

// setClientEnv fills in the client character set variables the user has
// not set.
func setClientEnv() {
	for _, kv := range clientEnv {
		if _, ok := os.LookupEnv(kv[0]); !ok {
			os.Setenv(kv[0], kv[1])
		}
	}
}

// ConnectionString renders cfg as an ODBC connection string. A DSN that
// already holds key=value pairs is used verbatim.
func ConnectionString(cfg connector.ConnectionConfig) string {
	var parts []string
	switch {
	case strings.Contains(cfg.DSN, "="):
		return cfg.DSN
	case cfg.DSN != "":
		parts = append(parts, "DSN="+odbcValue(cfg.DSN))
	default:
		parts = append(parts, "DRIVER={"+ODBCDriver+"}")
		if cfg.Host != "" {
			parts = append(parts, "SERVER="+odbcValue(cfg.Host))
		}
		if cfg.Port > 0 {
			parts = append(parts, "PORT="+strconv.Itoa(cfg.Port))
		}
		if cfg.Database != "" {
			parts = append(parts, "DB="+odbcValue(cfg.Database))
		}
	}
	if cfg.User != "" {
		parts = append(parts, "UID="+odbcValue(cfg.User))
	}
	if cfg.Password != "" {
		parts = append(parts, "PWD="+odbcValue(cfg.Password))
	}
	return strings.Join(parts, ";")
}

// odbcValue braces values the connection string grammar would split.
func odbcValue(v string) string {
	if !strings.ContainsAny(v, ";{}= ") {
		return v
	}
	return "{" + strings.ReplaceAll(v, "}", "}}") + "}"
}

// Disconnect closes the connection pool.
func (c *TiberoConnector) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping verifies the database connection is alive.
func (c *TiberoConnector) Ping(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("tibero: not connected")
	}
	return c.db.PingContext(ctx)
}

// DB returns the underlying connection pool.
func (c *TiberoConnector) DB() *sqlx.DB { return c.db }

// Dialect returns the dialect built by Connect.
func (c *TiberoConnector) Dialect() *dialect.Dialect { return c.dialect }

// DriverName returns the driver identifier.
func (c *TiberoConnector) DriverName() string { return DriverName }

// QuoteIdentifier quotes name only when the server would otherwise fold or
// reject it. Before Connect the default dialect options apply.
func (c *TiberoConnector) QuoteIdentifier(name string) string {
	return c.dialectOrDefault().Names().Quote(name)
}

// dialectOrDefault returns the dialect built by Connect, or one with the
// default options when the connector is not connected yet.
func (c *TiberoConnector) dialectOrDefault() *dialect.Dialect {
	if c.dialect != nil {
		return c.dialect
	}
	c.fallbackOnce.Do(func() {
		d, err := dialect.New(dialect.DefaultOptions(), c.logger)
		if err != nil {
			// The default options always build.
			panic(fmt.Sprintf("tibero: default dialect: %v", err))
		}
		c.fallback = d
	})
	return c.fallback
}

// Session pins one pooled connection and switches it to level. Reflection
// through the returned inspector sees one consistent session. The caller
// closes the connection.
func (c *TiberoConnector) Session(ctx context.Context, level string, cache *dialect.InfoCache) (connector.Inspector, *sqlx.Conn, error) {
	if c.db == nil {
		return nil, nil, fmt.Errorf("tibero: not connected")
	}
	conn, err := c.db.Connx(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("tibero session: %w", err)
	}
	if err := c.dialect.SetIsolationLevel(ctx, conn, level); err != nil {
		conn.Close()
		return nil, nil, err
	}
	if cache == nil {
		cache = dialect.NewInfoCache()
	}
	return c.dialect.NewInspector(dialect.SQLXQueryer{DB: conn}, cache), conn, nil
}
