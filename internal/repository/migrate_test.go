package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/backoffice/internal/testutil"
)

func TestMigrate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	dir := t.TempDir()
	write := func(name, sql string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644))
	}
	write("001_first.up.sql", `CREATE TABLE migrate_probe (id INT PRIMARY KEY);`)
	write("001_first.down.sql", `DROP TABLE migrate_probe;`)
	write("002_second.up.sql", `ALTER TABLE migrate_probe ADD COLUMN note TEXT;`)

	applied, err := Migrate(ctx, db, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_first", "002_second"}, applied)

	applied, err = Migrate(ctx, db, dir)
	require.NoError(t, err)
	assert.Empty(t, applied, "recorded versions are not re-run")

	write("003_broken.up.sql", `ALTER TABLE missing_table ADD COLUMN x INT;`)
	_, err = Migrate(ctx, db, dir)
	require.Error(t, err)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT count(*) FROM schema_migrations`).Scan(&count))
	assert.Equal(t, 2, count, "a failed file is not recorded")
}

func TestMigrate_ProjectSchemaIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)

	applied, err := Migrate(context.Background(), db, testutil.MigrationsDir())
	require.NoError(t, err)
	assert.Len(t, applied, 3)
}
