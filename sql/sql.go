package sql

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/harborview/crmsync/e"
	"github.com/rs/zerolog/log"

	// Including postgres library for SQL connections
	_ "github.com/lib/pq"
)

const (
	ECodeSQ0101 = e.CodeSQ01 + "01"
	ECodeSQ0102 = e.CodeSQ01 + "02"
	ECodeSQ0103 = e.CodeSQ01 + "03"
	ECodeSQ0104 = e.CodeSQ01 + "04"
	ECodeSQ0105 = e.CodeSQ01 + "05"
	ECodeSQ0106 = e.CodeSQ01 + "06"
	ECodeSQ0107 = e.CodeSQ01 + "07"
	ECodeSQ0108 = e.CodeSQ01 + "08"
	ECodeSQ0109 = e.CodeSQ01 + "09"
	ECodeSQ010A = e.CodeSQ01 + "0A"
	ECodeSQ010B = e.CodeSQ01 + "0B"
	ECodeSQ010C = e.CodeSQ01 + "0C"
	ECodeSQ010D = e.CodeSQ01 + "0D"
	ECodeSQ010E = e.CodeSQ01 + "0E"
)

// Connection wrapper of the *sql.DB
// If a transaction is started, it is stored internally in the txn and
// automatically used when making DB calls until commit/rollback is executed.
// If during a txn, a call outside of the txn is needed, the DB property can
// be accessed directly and used to make a query/exec call.
type Connection struct {
	DB  *sql.DB
	txn *sql.Tx
}

// ConnParam connection parameters used to initialize a connection
type ConnParam struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// GetConnParamFromENV initializes new connection parameters and populates from ENV variables
func GetConnParamFromENV() (cp *ConnParam) {
	cp = &ConnParam{}

	if os.Getenv("DBHOST") != "" {
		cp.Host = os.Getenv("DBHOST")
	}
	if os.Getenv("DBPORT") != "" {
		cp.Port = os.Getenv("DBPORT")
	}
	if os.Getenv("DBUSER") != "" {
		cp.User = os.Getenv("DBUSER")
	}
	if os.Getenv("DBPASS") != "" {
		cp.Password = os.Getenv("DBPASS")
	}
	if os.Getenv("DBNAME") != "" {
		cp.DBName = os.Getenv("DBNAME")
	}
	if os.Getenv("SSLMODE") != "" {
		cp.SSLMode = fmt.Sprintf("sslmode=%s", os.Getenv("SSLMODE"))
	}

	return cp
}

// GetConnectionStr returns a connection string
func GetConnectionStr(cp *ConnParam) (connStr string) {
	var csb strings.Builder

	if cp == nil {
		cp = GetConnParamFromENV()
	}

	_, _ = csb.WriteString("host=")
	_, _ = csb.WriteString(cp.Host)
	_, _ = csb.WriteString(" port=")
	_, _ = csb.WriteString(cp.Port)
	_, _ = csb.WriteString(" user=")
	_, _ = csb.WriteString(cp.User)
	_, _ = csb.WriteString(" password=")
	_, _ = csb.WriteString(cp.Password)
	_, _ = csb.WriteString(" dbname=")
	_, _ = csb.WriteString(cp.DBName)

	_, _ = csb.WriteString(" ")
	if cp.SSLMode != "" {
		_, _ = csb.WriteString(cp.SSLMode)
	} else {
		_, _ = csb.WriteString("sslmode=require")
	}

	return csb.String()
}

// NewPostgresConn initializes a new Postgres connection
func NewPostgresConn(cp *ConnParam) (conn *Connection, err error) {
	if cp == nil {
		cp = GetConnParamFromENV()
	}

	sqlConn, err := sql.Open("postgres", GetConnectionStr(cp))
	if err != nil {
		return nil, e.W(err, ECodeSQ0101, "failed to connect to DB")
	}
	if err := sqlConn.Ping(); err != nil {
		return nil, e.W(err, ECodeSQ0102, "failed to ping DB")
	}

	return &Connection{DB: sqlConn}, nil
}

// Txn returns the underlying transaction, if currently in one
func (c *Connection) Txn() *sql.Tx {
	return c.txn
}

// Begin wrapper for sql.Begin. It doesn't return the txn object, but stores
// it internally and it will be used automatically for subsequent query/exec
// calls until commit/rollback is called
func (c *Connection) Begin() (err error) {
	if c.txn != nil {
		return e.N(ECodeSQ0103, "already in a txn")
	}
	c.txn, err = c.DB.Begin()
	if err != nil {
		return e.W(err, ECodeSQ0104)
	}

	return nil
}

// BeginReturnDB begins a txn and returns a new Connection bound to it. The
// returned connection shares the underlying DB but carries its own txn, so
// concurrent use of the parent connection is unaffected.
func (c *Connection) BeginReturnDB() (txnDB *Connection, err error) {
	txn, err := c.DB.Begin()
	if err != nil {
		return nil, e.W(err, ECodeSQ0105)
	}

	return &Connection{DB: c.DB, txn: txn}, nil
}

// Commit wrapper for sql.Commit. If successful, will unset the txn object
func (c *Connection) Commit() (err error) {
	if c.txn == nil {
		return e.N(ECodeSQ0106, "not in a txn")
	}

	if err = c.txn.Commit(); err != nil {
		return e.W(err, ECodeSQ0107)
	}

	c.txn = nil

	return nil
}

// RollbackIfInTxn same as Rollback, except if it is not in a txn, it will
// silently do nothing
func (c *Connection) RollbackIfInTxn() {
	if c.txn == nil {
		return
	}

	c.Rollback()
}

// Rollback attempts to roll back the txn. No matter what, the transaction is
// considered cancelled afterwards, so errors are logged rather than returned
func (c *Connection) Rollback() {
	if c.txn == nil {
		log.Warn().Msg("[Connection.Rollback.1] not in txn")
		return
	}

	if err := c.txn.Rollback(); err != nil {
		log.Error().Err(err).Msg("[Connection.Rollback.2]")
	}

	c.txn = nil
}

// Query wrapper for sql.Query with automatic txn handling
func (c *Connection) Query(query string, args ...interface{}) (rows *Rows, err error) {
	var sqlRows *sql.Rows
	if c.txn != nil {
		sqlRows, err = c.txn.Query(query, args...)
	} else {
		sqlRows, err = c.DB.Query(query, args...)
	}
	if err != nil {
		// Not logging args because they may contain sensitive information
		return nil, e.W(err, ECodeSQ0108, fmt.Sprintf("query: %s", query))
	}

	return &Rows{rows: sqlRows, query: query}, nil
}

// QueryRow wrapper for sql.QueryRow with automatic txn handling
func (c *Connection) QueryRow(query string, args ...interface{}) (row *Row) {
	if c.txn != nil {
		return &Row{row: c.txn.QueryRow(query, args...), query: query}
	}
	return &Row{row: c.DB.QueryRow(query, args...), query: query}
}

// Exec wrapper for sql.Exec with automatic txn handling
func (c *Connection) Exec(query string, args ...interface{}) (res sql.Result, err error) {
	if c.txn != nil {
		res, err = c.txn.Exec(query, args...)
	} else {
		res, err = c.DB.Exec(query, args...)
	}
	if err != nil {
		// Not logging args because they may contain sensitive information
		return nil, e.W(err, ECodeSQ0109, fmt.Sprintf("query: %s", query))
	}

	return res, nil
}

// Select wrapper for github.com/Masterminds/squirrel.Select
func (c *Connection) Select(columns ...string) sq.SelectBuilder {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar).Select(columns...)
}

// Insert wrapper for github.com/Masterminds/squirrel.Insert
func (c *Connection) Insert(table string) sq.InsertBuilder {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar).Insert(table)
}

// Update wrapper for github.com/Masterminds/squirrel.Update
func (c *Connection) Update(table string) sq.UpdateBuilder {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar).Update(table)
}

// Delete wrapper for github.com/Masterminds/squirrel.Delete
func (c *Connection) Delete(from string) sq.DeleteBuilder {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar).Delete(from)
}

// Expr wrapper for github.com/Masterminds/squirrel.Expr
func (c *Connection) Expr(sql string, args ...interface{}) sq.Sqlizer {
	return sq.Expr(sql, args...)
}

// ExecInsert wrapper to generate SQL/bind list and then execute insert query
func (c *Connection) ExecInsert(ib sq.InsertBuilder) (err error) {
	stmt, bindList, err := ib.ToSql()
	if err != nil {
		return e.W(err, ECodeSQ010A, fmt.Sprintf("stmt: %s", stmt))
	}

	if _, err := c.Exec(stmt, bindList...); err != nil {
		return e.W(err, ECodeSQ010A)
	}

	return nil
}

// ExecInsertReturningID wrapper to generate SQL/bind list and then execute
// the insert query, scanning the returned id
func (c *Connection) ExecInsertReturningID(ib sq.InsertBuilder) (id int, err error) {
	stmt, bindList, err := ib.ToSql()
	if err != nil {
		return 0, e.W(err, ECodeSQ010B, fmt.Sprintf("stmt: %s", stmt))
	}

	if err := c.QueryRow(stmt, bindList...).Scan(&id); err != nil {
		return 0, e.W(err, ECodeSQ010B, fmt.Sprintf("stmt: %s", stmt))
	}

	return id, nil
}

// ExecUpdate wrapper to generate SQL/bind list and then execute update query
func (c *Connection) ExecUpdate(ub sq.UpdateBuilder) (err error) {
	stmt, bindList, err := ub.ToSql()
	if err != nil {
		return e.W(err, ECodeSQ010C, fmt.Sprintf("stmt: %s", stmt))
	}

	if _, err := c.Exec(stmt, bindList...); err != nil {
		return e.W(err, ECodeSQ010C)
	}

	return nil
}

// ExecUpdateReturningCount generates SQL/bind list, executes the update query
// and returns the number of rows affected. Used for conditional state
// transitions where the caller must know whether the update matched.
func (c *Connection) ExecUpdateReturningCount(ub sq.UpdateBuilder) (count int64, err error) {
	stmt, bindList, err := ub.ToSql()
	if err != nil {
		return 0, e.W(err, ECodeSQ010D, fmt.Sprintf("stmt: %s", stmt))
	}

	res, err := c.Exec(stmt, bindList...)
	if err != nil {
		return 0, e.W(err, ECodeSQ010D)
	}

	count, err = res.RowsAffected()
	if err != nil {
		return 0, e.W(err, ECodeSQ010D)
	}

	return count, nil
}

// ExecDelete wrapper to generate SQL/bind list and then execute delete query
func (c *Connection) ExecDelete(delB sq.DeleteBuilder) (err error) {
	stmt, bindList, err := delB.ToSql()
	if err != nil {
		return e.W(err, ECodeSQ010E, fmt.Sprintf("stmt: %s", stmt))
	}

	if _, err := c.Exec(stmt, bindList...); err != nil {
		return e.W(err, ECodeSQ010E)
	}

	return nil
}
