package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE plans (id INTEGER PRIMARY KEY, project TEXT)`)
	require.NoError(t, err)
	return db
}

func countPlans(t *testing.T, db *sql.DB, project string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM plans WHERE project = ?`, project).Scan(&n))
	return n
}

func TestSQLiteUnitOfWork_Begin(t *testing.T) {
	uow := NewSQLiteUnitOfWork(openTestDB(t))

	txCtx, err := uow.Begin(context.Background())
	require.NoError(t, err)

	info, ok := SQLiteTxInfoFromContext(txCtx)
	require.True(t, ok)
	assert.NotNil(t, info.Tx)
	assert.True(t, info.Owned)

	require.NoError(t, uow.Rollback(txCtx))
}

func TestSQLiteUnitOfWork_CommitPersists(t *testing.T) {
	db := openTestDB(t)
	uow := NewSQLiteUnitOfWork(db)

	txCtx, err := uow.Begin(context.Background())
	require.NoError(t, err)

	info, ok := SQLiteTxInfoFromContext(txCtx)
	require.True(t, ok)
	_, err = info.Tx.Exec(`INSERT INTO plans (project) VALUES ('tower-a')`)
	require.NoError(t, err)

	require.NoError(t, uow.Commit(txCtx))
	assert.Equal(t, 1, countPlans(t, db, "tower-a"))
}

func TestSQLiteUnitOfWork_RollbackDiscards(t *testing.T) {
	db := openTestDB(t)
	uow := NewSQLiteUnitOfWork(db)

	txCtx, err := uow.Begin(context.Background())
	require.NoError(t, err)

	info, ok := SQLiteTxInfoFromContext(txCtx)
	require.True(t, ok)
	_, err = info.Tx.Exec(`INSERT INTO plans (project) VALUES ('tower-b')`)
	require.NoError(t, err)

	require.NoError(t, uow.Rollback(txCtx))
	assert.Equal(t, 0, countPlans(t, db, "tower-b"))
}

// An inner Begin joins the outer transaction instead of opening a second
// one; its Commit and Rollback are no-ops on the shared tx.
func TestSQLiteUnitOfWork_NestedBeginJoins(t *testing.T) {
	uow := NewSQLiteUnitOfWork(openTestDB(t))

	outerCtx, err := uow.Begin(context.Background())
	require.NoError(t, err)
	outer, ok := SQLiteTxInfoFromContext(outerCtx)
	require.True(t, ok)

	innerCtx, err := uow.Begin(outerCtx)
	require.NoError(t, err)
	inner, ok := SQLiteTxInfoFromContext(innerCtx)
	require.True(t, ok)

	assert.False(t, inner.Owned)
	assert.Equal(t, outer.Tx, inner.Tx)

	require.NoError(t, uow.Commit(innerCtx))
	require.NoError(t, uow.Rollback(innerCtx))

	// The outer transaction survives both inner calls.
	_, err = outer.Tx.Exec(`INSERT INTO plans (project) VALUES ('tower-c')`)
	require.NoError(t, err)
	require.NoError(t, uow.Rollback(outerCtx))
}

func TestSQLiteUnitOfWork_NoTransactionInContext(t *testing.T) {
	uow := NewSQLiteUnitOfWork(openTestDB(t))

	err := uow.Commit(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no transaction in context")

	err = uow.Rollback(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no transaction in context")
}

func TestSQLiteTxInfoFromContext(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		info, ok := SQLiteTxInfoFromContext(context.Background())
		assert.False(t, ok)
		assert.Nil(t, info.Tx)
	})

	t.Run("nil tx stored", func(t *testing.T) {
		ctx := WithSQLiteTx(context.Background(), nil, true)
		info, ok := SQLiteTxInfoFromContext(ctx)
		assert.False(t, ok)
		assert.Nil(t, info.Tx)
	})

	t.Run("round trip", func(t *testing.T) {
		db := openTestDB(t)
		tx, err := db.BeginTx(context.Background(), nil)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback() }()

		ctx := WithSQLiteTx(context.Background(), tx, false)
		info, ok := SQLiteTxInfoFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, tx, info.Tx)
		assert.False(t, info.Owned)
	})
}
