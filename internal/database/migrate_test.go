package database

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestStatementsSplitsSchema(t *testing.T) {
	stmts := statements(schema)
	require.Len(t, stmts, 22)
	for _, s := range stmts {
		require.True(t, strings.HasPrefix(s, "CREATE TABLE IF NOT EXISTS"), s)
		require.False(t, strings.HasSuffix(s, ";"))
	}
}

func TestMigrateStopsOnFirstError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS users")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS refresh_tokens")).WillReturnError(errors.New("boom"))

	err = Migrate(context.Background(), db)
	require.ErrorContains(t, err, "schema statement 2")
	require.NoError(t, mock.ExpectationsWereMet())
}
