package store

import (
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newSQLMockGormDB wires a gorm handle to a sqlmock-backed *sql.DB, the
// pack's standard way of exercising raw-SQL repository methods without a
// live Postgres. The returned DB is a *store.DB so repository
// constructors need no test-only variant.
func newSQLMockGormDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	dialector := postgres.New(postgres.Config{
		Conn:       sqlDB,
		DriverName: "postgres",
	})
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return &DB{gorm: gdb}, mock
}

// mockRowsFor builds the column set the invocation_locks RETURNING/SELECT
// clauses share, so every lock test starts from the same shape.
func mockRowsFor() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"key", "owner_id", "lock_until", "locked_at", "last_released_at"})
}

// sqlmockResult builds an Exec result reporting the given affected-row
// count; lastInsertId is irrelevant to every repository method tested here.
func sqlmockResult(rowsAffected int64) driver.Result {
	return sqlmock.NewResult(0, rowsAffected)
}

// sqlmockAnyTime matches any time.Time argument, used for the server-side
// now()/ttl-derived timestamps a repository method computes internally and
// a test has no reason to pin down exactly.
type sqlmockAnyTime struct{}

func (sqlmockAnyTime) Match(v driver.Value) bool {
	_, ok := v.(time.Time)
	return ok
}
