package connector

import (
	"context"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/faucetdb/tibero/internal/dialect"
	"github.com/faucetdb/tibero/internal/model"
)

// SelectRequest describes a paginated read of one table.
type SelectRequest struct {
	Schema string
	Table  string
	Fields []string
	// Equals filters rows on column = value, one bind per entry.
	Equals map[string]any
	// Filter is a filter expression such as "sal > 1000 AND job IN ('CLERK')".
	Filter string
	Order  []OrderField
	Limit  int
	Offset int
	// ForUpdateOf locks the selected rows; a non-nil empty slice locks
	// without an OF list.
	ForUpdateOf []string
	NoWait      bool
}

// OrderField is one ORDER BY entry.
type OrderField struct {
	Column string
	Desc   bool
}

// ConnectionConfig holds database connection parameters.
type ConnectionConfig struct {
	Driver string
	// DSN names a configured ODBC data source. When empty the connection
	// string is built from Host, Port and Database.
	DSN        string
	Host       string
	Port       int
	Database   string
	User       string
	Password   string
	SchemaName string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	Dialect dialect.Options
	Logger  *zap.Logger
}

// Inspector is the reflection surface a connector exposes. It is
// implemented by *dialect.Inspector.
type Inspector interface {
	DefaultSchemaName(ctx context.Context) (string, error)
	GetSchemaNames(ctx context.Context, dblink string) ([]string, error)
	GetTableNames(ctx context.Context, opts dialect.ReflectOptions) ([]string, error)
	GetViewNames(ctx context.Context, opts dialect.ReflectOptions) ([]string, error)
	GetMaterializedViewNames(ctx context.Context, opts dialect.ReflectOptions) ([]string, error)
	GetSequenceNames(ctx context.Context, opts dialect.ReflectOptions) ([]string, error)
	GetTempTableNames(ctx context.Context) ([]string, error)
	ListDBLinks(ctx context.Context, dblink string) ([]string, error)
	HasTable(ctx context.Context, name string, opts dialect.ReflectOptions) (bool, error)
	HasSequence(ctx context.Context, name string, opts dialect.ReflectOptions) (bool, error)
	GetViewDefinition(ctx context.Context, name string, opts dialect.ReflectOptions) (string, error)
	ReflectSchema(ctx context.Context, opts dialect.ReflectOptions) (*model.Schema, error)
	ReflectTable(ctx context.Context, table string, opts dialect.ReflectOptions) (*model.Table, error)
}

var _ Inspector = (*dialect.Inspector)(nil)

// Fetcher is implemented by connectors that run a select and return rows
// converted to the types of the reflected columns.
type Fetcher interface {
	Fetch(ctx context.Context, req SelectRequest) ([]dialect.Row, error)
}

// Connector is the interface a database connector implements.
type Connector interface {
	// Connection management
	Connect(cfg ConnectionConfig) error
	Disconnect() error
	Ping(ctx context.Context) error
	DB() *sqlx.DB

	// Schema introspection. Inspect starts a reflection pass whose results
	// are memoized in cache; a nil cache starts a fresh one.
	Inspect(cache *dialect.InfoCache) Inspector
	IntrospectSchema(ctx context.Context, opts dialect.ReflectOptions) (*model.Schema, error)
	IntrospectTable(ctx context.Context, tableName string, opts dialect.ReflectOptions) (*model.Table, error)
	GetTableNames(ctx context.Context, schema string) ([]string, error)

	// Query building
	BuildSelect(ctx context.Context, req SelectRequest) (string, []any, error)

	// Metadata
	DriverName() string
	QuoteIdentifier(name string) string
}

var pwdPattern = regexp.MustCompile(`(?i)(PWD|PASSWORD)=(\{(?:[^}]|\}\})*\}|[^;]*)`)

// RedactDSN masks the password of an ODBC connection string so it can be
// logged.
func RedactDSN(dsn string) string {
	return pwdPattern.ReplaceAllString(dsn, "${1}=***")
}
