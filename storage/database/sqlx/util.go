// Package sqlxrepos implements the domain repositories on top of jmoiron/sqlx.
// Queries are written with `?` placeholders and rebound for the executor's driver.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/strmangle"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/trezcool/cclient/core"
)

const defaultOrderBy = "created_at DESC, id DESC"

type repository struct {
	exec core.DBExecutor
}

func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

func rebind(exec core.DBExecutor, query string) string {
	return sqlx.Rebind(sqlx.BindType(exec.DriverName()), query)
}

// trapNoRowsErr maps the sql "no rows" err to notFound
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// trapWriteErr maps constraint violations raised by an insert or update.
func trapWriteErr(err, duplicate error, msg string) error {
	switch {
	case duplicate != nil && isUniqueViolation(err):
		return duplicate
	case isForeignKeyViolation(err):
		return core.ErrInvalidReference
	}
	return errors.Wrap(err, msg)
}

// orderBy builds an ORDER BY clause from camelCase fields, keeping only the allowed ones.
func orderBy(ordering []core.DBOrdering, allowed []string) string {
	if len(ordering) == 0 {
		return defaultOrderBy
	}
	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if !strmangle.SetInclude(ord.Field, allowed) {
			continue
		}
		ord.Field = strmangle.SnakeCase(ord.Field)
		orderList = append(orderList, ord.String())
	}
	if len(orderList) == 0 {
		return defaultOrderBy
	}
	return strings.Join(append(orderList, "id DESC"), ", ")
}

// whereClause accumulates AND-ed conditions and their args.
type whereClause struct {
	conds []string
	args  []interface{}
}

func (w *whereClause) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

// search matches kw case-insensitively against any of cols.
func (w *whereClause) search(kw string, cols ...string) {
	if kw == "" {
		return
	}
	val := "%" + strings.ToLower(kw) + "%"
	ors := make([]string, 0, len(cols))
	for _, col := range cols {
		ors = append(ors, "LOWER("+col+") LIKE ?")
		w.args = append(w.args, val)
	}
	w.conds = append(w.conds, "("+strings.Join(ors, " OR ")+")")
}

func (w whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func deleteByID(ctx context.Context, exe core.DBExecutor, table string, id int, notFound error) error {
	res, err := exe.ExecContext(ctx, rebind(exe, "DELETE FROM "+table+" WHERE id = ?"), id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.ErrReferenced
		}
		return errors.Wrap(err, "deleting from "+table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting from "+table)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// expectOneRow returns noMatch when an update touched no row.
func expectOneRow(res sql.Result, noMatch error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if n == 0 {
		return noMatch
	}
	return nil
}
