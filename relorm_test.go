package relorm

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relorm/relorm/driver"
	"github.com/relorm/relorm/logger"
	"github.com/relorm/relorm/sqlgen"
)

// orderingLogger records when Query is called relative to conn.Query, via a
// shared events slice the fakeConn in the same test also appends to.
type orderingLogger struct {
	logger.Null
	events *[]string
}

func (l *orderingLogger) Query(sql string, args []any, duration time.Duration) {
	*l.events = append(*l.events, "log:"+sql)
}

type person struct {
	ID   int64 `db:"id,pk"`
	Name string
}

type owner struct {
	ID   int64 `db:"id,pk"`
	Name string
	Pets []pet
}

type pet struct {
	ID      int64 `db:"id,pk"`
	OwnerID int64
}

// fakeStmt replays a fixed row set, one driver.Value per column.
type fakeStmt struct {
	rows [][]driver.Value
	idx  int
}

func newFakeStmt(rows [][]driver.Value) *fakeStmt { return &fakeStmt{rows: rows, idx: -1} }

func (s *fakeStmt) Bind(int, driver.Value) error { return nil }
func (s *fakeStmt) Step(ctx context.Context) (bool, error) {
	s.idx++
	return s.idx < len(s.rows), nil
}
func (s *fakeStmt) Column(index int, expectedType string) (driver.Value, error) {
	return s.rows[s.idx][index], nil
}
func (s *fakeStmt) ColumnCount() int {
	if len(s.rows) == 0 {
		return 0
	}
	return len(s.rows[0])
}
func (s *fakeStmt) Finalize() error { return nil }

type fakeExecCall struct {
	sql  string
	args []driver.Value
}

type fakeTx struct {
	conn       *fakeConn
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(ctx context.Context) error   { t.committed = true; return nil }
func (t *fakeTx) Rollback(ctx context.Context) error { t.rolledBack = true; return nil }
func (t *fakeTx) Conn() driver.Conn                  { return t.conn }

// fakeConn is a minimal driver.Conn double: queued Query responses, recorded
// Exec calls, and a canned ListColumns result, enough to drive every root
// package operation without a real database.
type fakeConn struct {
	queryResponses []*fakeStmt
	execResult     driver.ExecResult
	execCalls      []fakeExecCall
	liveColumns    []driver.ColumnInfo
	txs            []*fakeTx
	closed         bool
	events         *[]string // optional: shared ordering trace, see orderingLogger
}

func newFakeConn() *fakeConn { return &fakeConn{} }

func (c *fakeConn) Prepare(ctx context.Context, sqlText string) (driver.Stmt, error) {
	panic("not used by these tests")
}

func (c *fakeConn) Exec(ctx context.Context, sqlText string, args []driver.Value) (driver.ExecResult, error) {
	c.execCalls = append(c.execCalls, fakeExecCall{sql: sqlText, args: args})
	return c.execResult, nil
}

func (c *fakeConn) Query(ctx context.Context, sqlText string, args []driver.Value) (driver.Stmt, error) {
	if c.events != nil {
		*c.events = append(*c.events, "query:"+sqlText)
	}
	s := c.queryResponses[0]
	c.queryResponses = c.queryResponses[1:]
	return s, nil
}

func (c *fakeConn) BeginTx(ctx context.Context) (driver.Tx, error) {
	tx := &fakeTx{conn: c}
	c.txs = append(c.txs, tx)
	return tx, nil
}

func (c *fakeConn) ListColumns(ctx context.Context, tableName string) ([]driver.ColumnInfo, error) {
	return c.liveColumns, nil
}

func (c *fakeConn) QuoteIdentifier(name string) string { return "`" + name + "`" }
func (c *fakeConn) Placeholder(int) string             { return "?" }
func (c *fakeConn) SqlTypeKeyword(string, bool) string { return "TEXT" }
func (c *fakeConn) AutoIncrementPrimaryKeyDef(string) string { return "INTEGER PRIMARY KEY AUTOINCREMENT" }
func (c *fakeConn) SupportsUpsert() bool               { return true }
func (c *fakeConn) SupportsNativeUUID() bool            { return false }
func (c *fakeConn) SupportsNativeDate() bool            { return false }
func (c *fakeConn) DriverName() string                  { return "fake" }
func (c *fakeConn) Close() error                        { c.closed = true; return nil }

func TestTableSelectRunsThroughGenAndMaterialize(t *testing.T) {
	conn := newFakeConn()
	conn.queryResponses = []*fakeStmt{newFakeStmt([][]driver.Value{{int64(1), "ada"}})}
	db := Open(conn)

	rows, err := Table[person](db).Select(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, person{ID: 1, Name: "ada"}, rows[0])
}

func TestTableCountRunsThroughGenAndMaterialize(t *testing.T) {
	conn := newFakeConn()
	conn.queryResponses = []*fakeStmt{newFakeStmt([][]driver.Value{{int64(3)}})}
	db := Open(conn)

	n, err := Table[person](db).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestSelectLogsQueryBeforeExecution(t *testing.T) {
	var events []string
	conn := newFakeConn()
	conn.events = &events
	conn.queryResponses = []*fakeStmt{newFakeStmt([][]driver.Value{{int64(1), "ada"}})}
	db := Open(conn, WithLogger(&orderingLogger{events: &events}))

	_, err := Table[person](db).Select(context.Background())
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.True(t, strings.HasPrefix(events[0], "log:"), "query must be logged before conn.Query runs, got %v", events)
	assert.True(t, strings.HasPrefix(events[1], "query:"), "got %v", events)
}

func TestCountLogsQueryBeforeExecution(t *testing.T) {
	var events []string
	conn := newFakeConn()
	conn.events = &events
	conn.queryResponses = []*fakeStmt{newFakeStmt([][]driver.Value{{int64(3)}})}
	db := Open(conn, WithLogger(&orderingLogger{events: &events}))

	_, err := Table[person](db).Count(context.Background())
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.True(t, strings.HasPrefix(events[0], "log:"), "query must be logged before conn.Query runs, got %v", events)
	assert.True(t, strings.HasPrefix(events[1], "query:"), "got %v", events)
}

type product struct {
	ID    int64 `db:"id,pk,autoincrement"`
	Price sql.NullFloat64
}

func TestInsertEncodesSQLNullFieldByValidity(t *testing.T) {
	conn := newFakeConn()
	db := Open(conn)

	err := Table[product](db).Insert(context.Background(),
		product{ID: 1, Price: sql.NullFloat64{Float64: 9.99, Valid: true}},
		product{ID: 2, Price: sql.NullFloat64{Valid: false}},
	)
	require.NoError(t, err)
	require.Len(t, conn.execCalls, 1)
	assert.Equal(t, []driver.Value{int64(1), 9.99, int64(2), nil}, conn.execCalls[0].args)
}

func TestInsertEncodesAndExecutes(t *testing.T) {
	conn := newFakeConn()
	db := Open(conn)

	err := Table[person](db).Insert(context.Background(), person{ID: 1, Name: "ada"}, person{ID: 2, Name: "grace"})
	require.NoError(t, err)
	require.Len(t, conn.execCalls, 1)
	assert.Contains(t, conn.execCalls[0].sql, "INSERT INTO")
	assert.Equal(t, []driver.Value{int64(1), "ada", int64(2), "grace"}, conn.execCalls[0].args)
}

func TestInsertNoRowsSkipsExec(t *testing.T) {
	conn := newFakeConn()
	db := Open(conn)

	err := Table[person](db).Insert(context.Background())
	require.NoError(t, err)
	assert.Empty(t, conn.execCalls)
}

func TestWhereQueryUpdateRejectsJoinedChain(t *testing.T) {
	conn := newFakeConn()
	db := Open(conn)

	joined, err := Join[owner, pet](Table[owner](db), "Pets", "ID", "OwnerID")
	require.NoError(t, err)
	whereQ, err := joined.WhereExpr(nil)
	require.NoError(t, err)

	_, err = whereQ.Update(context.Background(), map[string]any{"Name": "x"}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "illegal chain transition")
}

func TestWhereQueryDeleteRejectsJoinedChain(t *testing.T) {
	conn := newFakeConn()
	db := Open(conn)

	joined, err := Join[owner, pet](Table[owner](db), "Pets", "ID", "OwnerID")
	require.NoError(t, err)
	whereQ, err := joined.WhereExpr(nil)
	require.NoError(t, err)

	_, err = whereQ.Delete(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "illegal chain transition")
}

func TestUpdateWithoutJoinExecutes(t *testing.T) {
	conn := newFakeConn()
	conn.execResult = driver.ExecResult{RowsAffected: 2}
	db := Open(conn)

	n, err := Table[person](db).Update(context.Background(), map[string]any{"Name": "ada lovelace"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.Len(t, conn.execCalls, 1)
	assert.Contains(t, conn.execCalls[0].sql, "UPDATE")
}

func TestUpdateWithNoResolvedColumnsSkipsExec(t *testing.T) {
	conn := newFakeConn()
	db := Open(conn)

	n, err := Table[person](db).Update(context.Background(), map[string]any{"ID": int64(1)}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.Empty(t, conn.execCalls, "ID is the primary key and must be excluded from SET")
}

func TestDeleteWithoutJoinExecutes(t *testing.T) {
	conn := newFakeConn()
	conn.execResult = driver.ExecResult{RowsAffected: 1}
	db := Open(conn)

	n, err := Table[person](db).Delete(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.Len(t, conn.execCalls, 1)
	assert.Contains(t, conn.execCalls[0].sql, "DELETE FROM")
}

func TestCreateRecursesIntoChildCollections(t *testing.T) {
	conn := newFakeConn()
	db := Open(conn)

	err := Create[widget](context.Background(), db, sqlgen.CreatePolicy{})
	require.NoError(t, err)
	require.Len(t, conn.execCalls, 2, "one CREATE TABLE for widget, one for its child collection gadget")
	assert.True(t, strings.Contains(conn.execCalls[0].sql, "CREATE TABLE") || strings.Contains(conn.execCalls[1].sql, "CREATE TABLE"))
}

type widget struct {
	ID       int64 `db:"id,pk"`
	Children []gadget
}

type gadget struct {
	ID int64 `db:"id,pk"`
}

func TestCreateReconcileBootstrapsMissingTable(t *testing.T) {
	conn := newFakeConn()
	conn.liveColumns = nil
	db := Open(conn)

	err := Create[person](context.Background(), db, sqlgen.CreatePolicy{ReconcileTable: true})
	require.NoError(t, err)
	require.Len(t, conn.execCalls, 1)
	assert.Contains(t, conn.execCalls[0].sql, "CREATE TABLE")
}

func TestCreateReconcileNoOpWhenColumnsMatch(t *testing.T) {
	conn := newFakeConn()
	conn.liveColumns = []driver.ColumnInfo{
		{Name: "id", DriverType: "INTEGER"},
		{Name: "Name", DriverType: "TEXT"},
	}
	db := Open(conn)

	err := Create[person](context.Background(), db, sqlgen.CreatePolicy{ReconcileTable: true})
	require.NoError(t, err)
	assert.Empty(t, conn.execCalls)
}

func TestTransactionCommitsOnSuccess(t *testing.T) {
	conn := newFakeConn()
	db := Open(conn)

	err := db.Transaction(context.Background(), func(tx *Database) error { return nil })
	require.NoError(t, err)
	require.Len(t, conn.txs, 1)
	assert.True(t, conn.txs[0].committed)
	assert.False(t, conn.txs[0].rolledBack)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	conn := newFakeConn()
	db := Open(conn)
	sentinel := errors.New("boom")

	err := db.Transaction(context.Background(), func(tx *Database) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
	require.Len(t, conn.txs, 1)
	assert.True(t, conn.txs[0].rolledBack)
	assert.False(t, conn.txs[0].committed)
}

func TestNestedTransactionFlattensAndPropagatesFailureToOuterRollback(t *testing.T) {
	conn := newFakeConn()
	db := Open(conn)

	err := db.Transaction(context.Background(), func(tx *Database) error {
		innerErr := tx.Transaction(context.Background(), func(tx2 *Database) error {
			return errors.New("nested failure")
		})
		assert.Error(t, innerErr)
		return nil
	})

	require.Error(t, err, "a swallowed nested failure must still roll back the outer transaction")
	require.Len(t, conn.txs, 1, "a nested Transaction call must not issue a second BEGIN")
	assert.True(t, conn.txs[0].rolledBack)
}

func TestRegisterDriverPanicsOnDuplicateName(t *testing.T) {
	name := "test-dup-driver"
	open := func(ctx context.Context, cfg driver.Config) (driver.Conn, error) { return nil, nil }
	RegisterDriver(name, open)
	assert.Panics(t, func() { RegisterDriver(name, open) })
}

func TestOpenDriverReturnsRegisteredConn(t *testing.T) {
	name := "test-open-driver"
	want := newFakeConn()
	RegisterDriver(name, func(ctx context.Context, cfg driver.Config) (driver.Conn, error) { return want, nil })

	got, err := OpenDriver(context.Background(), name, driver.Config{})
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestOpenDriverUnknownNameErrors(t *testing.T) {
	_, err := OpenDriver(context.Background(), "test-does-not-exist-driver", driver.Config{})
	assert.Error(t, err)
}
