package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-ledger/internal/storage"
)

func TestLoad_Embedded(t *testing.T) {
	pg, err := Load(PostgresFS, "postgres")
	require.NoError(t, err)
	require.Len(t, pg, 1)
	assert.Equal(t, 1, pg[0].Version)
	assert.Equal(t, "ledger_kv", pg[0].Name)
	assert.Contains(t, pg[0].SQL, "CREATE TABLE IF NOT EXISTS ledger_kv")

	ch, err := Load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.Len(t, ch, 1)
	assert.Equal(t, "ledger_txs", ch[0].Name)
	require.NoError(t, validateNoSemicolonInStrings(ch[0].SQL))
	assert.Len(t, splitStatements(ch[0].SQL), 1)
}

func TestLoad_OrdersByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"m/010_indexes.sql": {Data: []byte("CREATE INDEX i ON t (a);")},
		"m/002_columns.sql": {Data: []byte("ALTER TABLE t ADD COLUMN a INT;")},
		"m/001_init.sql":    {Data: []byte("CREATE TABLE t (id INT);")},
		"m/003_blank.sql":   {Data: []byte("  \n")},
		"m/README.md":       {Data: []byte("notes")},
	}

	got, err := Load(fsys, "m")
	require.NoError(t, err)

	var versions []int
	for _, m := range got {
		versions = append(versions, m.Version)
	}
	assert.Equal(t, []int{1, 2, 10}, versions)
	assert.Equal(t, "indexes", got[2].Name)
}

func TestLoad_RejectsBadNames(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
	}{
		{"no version", fstest.MapFS{"m/init.sql": {Data: []byte("SELECT 1")}}},
		{"non-numeric version", fstest.MapFS{"m/abc_init.sql": {Data: []byte("SELECT 1")}}},
		{"zero version", fstest.MapFS{"m/000_init.sql": {Data: []byte("SELECT 1")}}},
		{"duplicate version", fstest.MapFS{
			"m/001_a.sql": {Data: []byte("SELECT 1")},
			"m/01_b.sql":  {Data: []byte("SELECT 2")},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.fsys, "m")
			assert.Error(t, err)
		})
	}
}

func TestSplitStatements(t *testing.T) {
	sql := "-- header\nCREATE TABLE a (x UInt8);\n\nCREATE TABLE b (y UInt8)\nENGINE = Memory;\n"
	assert.Equal(t, []string{
		"CREATE TABLE a (x UInt8)",
		"CREATE TABLE b (y UInt8)\nENGINE = Memory",
	}, splitStatements(sql))
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings("SELECT 'it''s'; SELECT 1;"))
	assert.Error(t, validateNoSemicolonInStrings("SELECT 'a;b';"))
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/ledger")
	require.NoError(t, err)
	assert.Equal(t, "ledger", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}

func TestCheckColumns(t *testing.T) {
	good := map[string]string{"id": "UInt64", "amount": "UInt128", "block_height": "UInt64", "memo": "Nullable(String)"}
	require.NoError(t, checkColumns("ledger_txs", archiveColumns, good))

	err := checkColumns("ledger_txs", archiveColumns, map[string]string{})
	assert.ErrorIs(t, err, storage.ErrSchemaMissing)

	narrow := map[string]string{"id": "UInt64", "amount": "UInt64", "block_height": "UInt64"}
	err = checkColumns("ledger_txs", archiveColumns, narrow)
	assert.ErrorIs(t, err, storage.ErrSchemaMissing)
	assert.Contains(t, err.Error(), "ledger_txs.amount is UInt64")

	missing := map[string]string{"id": "UInt64", "amount": "UInt128"}
	err = checkColumns("ledger_txs", archiveColumns, missing)
	assert.ErrorIs(t, err, storage.ErrSchemaMissing)
	assert.Contains(t, err.Error(), "block_height")
}
