package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	input := `
-- comment; with semicolon
CREATE TABLE a (x UInt8) ENGINE = Memory;

CREATE TABLE b (y UInt8) ENGINE = Memory;
`
	stmts := splitStatements(input)
	require.Len(t, stmts, 2)
	assert.True(t, strings.HasPrefix(stmts[0], "CREATE TABLE a"))
	assert.True(t, strings.HasPrefix(stmts[1], "CREATE TABLE b"))
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings("SELECT 'it''s'; SELECT 1;"))
	assert.Error(t, validateNoSemicolonInStrings("SELECT 'a;b'"))
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://localhost:9000/indexer")
	require.NoError(t, err)
	assert.Equal(t, "indexer", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	for _, tc := range []struct {
		fsys fs.FS
		dir  string
	}{
		{PostgresFS, "postgres"},
		{ClickhouseFS, "clickhouse"},
	} {
		migrations, err := load(tc.fsys, tc.dir)
		require.NoError(t, err)
		require.NotEmpty(t, migrations, tc.dir)

		for _, m := range migrations {
			assert.Contains(t, m.sql, "CREATE TABLE IF NOT EXISTS slots", m.name)
			assert.Contains(t, m.sql, "wallets", m.name)
		}
	}
}
