package cachestorage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
)

// fakeDriver records statements so dialect-specific SQL can be asserted
// without a live database.
type fakeDriver struct {
	execErr error
	pingErr error

	mu      sync.Mutex
	queries []string
}

func (d *fakeDriver) Open(string) (driver.Conn, error) {
	return &fakeConn{driver: d}, nil
}

func (d *fakeDriver) record(query string) {
	d.mu.Lock()
	d.queries = append(d.queries, query)
	d.mu.Unlock()
}

func (d *fakeDriver) recorded() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.queries...)
}

type fakeConn struct {
	driver *fakeDriver
}

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	c.driver.record(query)
	return fakeStmt{}, nil
}
func (c *fakeConn) Close() error              { return nil }
func (c *fakeConn) Begin() (driver.Tx, error) { return nil, errors.New("not impl") }

func (c *fakeConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	c.driver.record(query)
	return driver.RowsAffected(1), c.driver.execErr
}
func (c *fakeConn) Ping(context.Context) error { return c.driver.pingErr }

type fakeStmt struct{}

func (fakeStmt) Close() error                               { return nil }
func (fakeStmt) NumInput() int                              { return -1 }
func (fakeStmt) Exec([]driver.Value) (driver.Result, error) { return driver.RowsAffected(1), nil }
func (fakeStmt) Query([]driver.Value) (driver.Rows, error)  { return &fakeRows{}, nil }

type fakeRows struct{}

func (r *fakeRows) Columns() []string         { return []string{"k"} }
func (r *fakeRows) Close() error              { return nil }
func (r *fakeRows) Next([]driver.Value) error { return io.EOF }

var (
	fakePostgresDriver = &fakeDriver{}
	fakeSchemaFail     = &fakeDriver{execErr: errors.New("boom")}
	fakePingFail       = &fakeDriver{pingErr: errors.New("ping boom")}
)

func init() {
	sql.Register("postgres", fakePostgresDriver)
	sql.Register("schemafail", fakeSchemaFail)
	sql.Register("pingfail", fakePingFail)
}
