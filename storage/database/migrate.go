package database

import (
	"fmt"
	"path"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/cclient/assets"
	"github.com/trezcool/cclient/core"
)

const migrationsDir = "migrations"

var gooseMu sync.Mutex // goose keeps its dialect & base FS globally

type gooseLogger struct {
	logger core.Logger
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatal(fmt.Sprintf(format, v...))
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

// SetupGoose points goose at the embedded migrations for engine and returns the directory to run.
func SetupGoose(engine string, logger core.Logger) (string, error) {
	dialect := engine
	if engine == EngineSQLite {
		dialect = "sqlite3"
	}
	if err := goose.SetDialect(dialect); err != nil {
		return "", errors.Wrap(err, "setting goose dialect")
	}
	goose.SetBaseFS(assets.FS)
	if logger != nil {
		goose.SetLogger(gooseLogger{logger: logger})
	}
	return path.Join(migrationsDir, engine), nil
}

// Migrate applies all pending migrations.
func Migrate(db *sqlx.DB, logger core.Logger) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	dir, err := SetupGoose(db.DriverName(), logger)
	if err != nil {
		return err
	}
	if err = goose.Up(db.DB, dir); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
