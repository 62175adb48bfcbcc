package dialect

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// AutoCommit is accepted by SetIsolationLevel in addition to the server's
// isolation levels. database/sql already commits every statement run
// outside a transaction, so it only leaves the session level untouched.
const AutoCommit = "AUTOCOMMIT"

// IsolationLevels lists the levels the server accepts.
var IsolationLevels = []string{"READ COMMITTED", "SERIALIZABLE"}

// IsolationLevelSQL renders the statement that switches the session to
// level.
func (d *Dialect) IsolationLevelSQL(level string) (string, error) {
	level = strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(level, "_", " ")))
	if !slices.Contains(IsolationLevels, level) {
		return "", &ArgumentError{Message: fmt.Sprintf("%s is an unsupported isolation level", level)}
	}
	return "ALTER SESSION SET ISOLATION_LEVEL=" + level, nil
}

// SetIsolationLevel applies level to the session behind conn. Use a
// *sqlx.Conn so the setting sticks to one pooled connection.
func (d *Dialect) SetIsolationLevel(ctx context.Context, conn sqlx.ExecerContext, level string) error {
	if strings.EqualFold(level, AutoCommit) {
		return nil
	}
	stmt, err := d.IsolationLevelSQL(level)
	if err != nil {
		return err
	}
	d.logger.Debug("set isolation level", zap.String("sql", stmt))
	if _, err := conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("set isolation level %s: %w", level, err)
	}
	return nil
}

// SavepointSQL renders SAVEPOINT name.
func (d *Dialect) SavepointSQL(name string) string {
	return "SAVEPOINT " + d.names.SavepointName(name)
}

// RollbackToSavepointSQL renders ROLLBACK TO SAVEPOINT name.
func (d *Dialect) RollbackToSavepointSQL(name string) string {
	return "ROLLBACK TO SAVEPOINT " + d.names.SavepointName(name)
}

// ReleaseSavepointSQL returns "": there is no RELEASE SAVEPOINT and a
// savepoint lives until the transaction ends.
func (d *Dialect) ReleaseSavepointSQL(string) string { return "" }

// NextValSQL renders the query that fetches the next value of a sequence.
func (d *Dialect) NextValSQL(schema, sequence string) string {
	return "SELECT " + d.names.QuoteSchema(schema, sequence) + ".nextval FROM DUAL"
}
