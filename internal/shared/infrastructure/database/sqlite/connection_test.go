package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldscale/takt/internal/shared/infrastructure/database"
)

func openConn(t *testing.T) database.Connection {
	t.Helper()

	conn, err := NewConnection(context.Background(), database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "takt.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestNewConnection(t *testing.T) {
	conn := openConn(t)

	assert.NoError(t, conn.Ping(context.Background()))
	assert.Equal(t, database.DriverSQLite, conn.Driver())
}

func TestConnection_ExecAndQuery(t *testing.T) {
	ctx := context.Background()
	conn := openConn(t)

	_, err := conn.Exec(ctx, `CREATE TABLE zones (name TEXT PRIMARY KEY, max_floor INTEGER)`)
	require.NoError(t, err)

	result, err := conn.Exec(ctx, `INSERT INTO zones (name, max_floor) VALUES (?, ?)`, "north-wing", 4)
	require.NoError(t, err)
	affected, err := result.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	var name string
	var maxFloor int
	err = conn.QueryRow(ctx, `SELECT name, max_floor FROM zones WHERE name = ?`, "north-wing").Scan(&name, &maxFloor)
	require.NoError(t, err)
	assert.Equal(t, "north-wing", name)
	assert.Equal(t, 4, maxFloor)

	_, err = conn.Exec(ctx, `INSERT INTO zones (name, max_floor) VALUES (?, ?)`, "south-wing", 2)
	require.NoError(t, err)

	rows, err := conn.Query(ctx, `SELECT name FROM zones ORDER BY name`)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"north-wing", "south-wing"}, names)
}

func TestConnection_Transaction(t *testing.T) {
	ctx := context.Background()
	conn := openConn(t)

	_, err := conn.Exec(ctx, `CREATE TABLE zones (name TEXT PRIMARY KEY)`)
	require.NoError(t, err)

	t.Run("commit persists", func(t *testing.T) {
		tx, err := conn.BeginTx(ctx)
		require.NoError(t, err)
		_, err = tx.Exec(ctx, `INSERT INTO zones (name) VALUES (?)`, "committed")
		require.NoError(t, err)
		require.NoError(t, tx.Commit(ctx))

		var name string
		require.NoError(t, conn.QueryRow(ctx, `SELECT name FROM zones WHERE name = ?`, "committed").Scan(&name))
		assert.Equal(t, "committed", name)
	})

	t.Run("rollback discards", func(t *testing.T) {
		tx, err := conn.BeginTx(ctx)
		require.NoError(t, err)
		_, err = tx.Exec(ctx, `INSERT INTO zones (name) VALUES (?)`, "discarded")
		require.NoError(t, err)
		require.NoError(t, tx.Rollback(ctx))

		var count int
		require.NoError(t, conn.QueryRow(ctx, `SELECT COUNT(*) FROM zones WHERE name = ?`, "discarded").Scan(&count))
		assert.Equal(t, 0, count)
	})
}
