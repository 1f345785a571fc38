package db

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/bryanwahyu/automaton-store/internal/config"
	"github.com/bryanwahyu/automaton-store/internal/domain/storage"
)

// dialect captures what differs between the supported engines. Queries are
// written once with '?' placeholders.
type dialect struct {
	name   string
	driver string

	autoID string // primary key column definition with generated values
	bigint string
	blob   string
	text   string

	numbered    bool // $1, $2 ... placeholders
	returningID bool // INSERT ... RETURNING id instead of LastInsertId

	classifyDriver func(err error) error
}

var (
	sqliteDialect = &dialect{
		name:           config.DriverSQLite,
		driver:         "sqlite3",
		autoID:         "id INTEGER PRIMARY KEY AUTOINCREMENT",
		bigint:         "INTEGER",
		blob:           "BLOB",
		text:           "TEXT",
		classifyDriver: classifySQLite,
	}
	mysqlDialect = &dialect{
		name:           config.DriverMySQL,
		driver:         "mysql",
		autoID:         "id BIGINT AUTO_INCREMENT PRIMARY KEY",
		bigint:         "BIGINT",
		blob:           "LONGBLOB",
		text:           "LONGTEXT",
		classifyDriver: classifyMySQL,
	}
	postgresDialect = &dialect{
		name:           config.DriverPostgres,
		driver:         "postgres",
		autoID:         "id BIGSERIAL PRIMARY KEY",
		bigint:         "BIGINT",
		blob:           "BYTEA",
		text:           "TEXT",
		numbered:       true,
		returningID:    true,
		classifyDriver: classifyPostgres,
	}
)

func dialectFor(driver string) (*dialect, error) {
	switch driver {
	case config.DriverSQLite:
		return sqliteDialect, nil
	case config.DriverMySQL:
		return mysqlDialect, nil
	case config.DriverPostgres:
		return postgresDialect, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// rebind rewrites '?' placeholders for engines that number them.
func (d *dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// classify maps constraint failures onto the storage error taxonomy, keeping
// the driver error in the chain.
func (d *dialect) classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrForeignKeyViolation) || errors.Is(err, storage.ErrIntegrity) {
		return err
	}
	if sentinel := d.classifyDriver(err); sentinel != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return err
}

func classifySQLite(err error) error {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return nil
	}
	switch {
	case se.ExtendedCode == sqlite3.ErrConstraintForeignKey:
		return storage.ErrForeignKeyViolation
	case se.Code == sqlite3.ErrConstraint:
		return storage.ErrIntegrity
	}
	return nil
}

func classifyMySQL(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return nil
	}
	switch me.Number {
	case 1216, 1217, 1451, 1452:
		return storage.ErrForeignKeyViolation
	case 1048, 1062, 1364, 3819:
		return storage.ErrIntegrity
	}
	return nil
}

func classifyPostgres(err error) error {
	var pe *pq.Error
	if !errors.As(err, &pe) {
		return nil
	}
	switch {
	case pe.Code == "23503":
		return storage.ErrForeignKeyViolation
	case pe.Code.Class() == "23":
		return storage.ErrIntegrity
	}
	return nil
}
