package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	libconfig "github.com/parrylicious/salonbook/libs/config"
	"github.com/parrylicious/salonbook/libs/runtime"
	"github.com/parrylicious/salonbook/migrations"
)

// migrator is the subset of *migrate.Migrate the commands use.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Version() (uint, bool, error)
}

func main() {
	_ = libconfig.LoadDotenv()
	logger := runtime.NewLogger("migrate")

	table := flag.String("table", libconfig.String("MIGRATIONS_TABLE", "schema_migrations"), "migrations bookkeeping table")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate [-table name] up|down|step-up|drop|version|force <version>")
	}
	flag.Parse()

	databaseURL, err := libconfig.RequiredString("DATABASE_URL")
	if err != nil {
		fatal(logger, err)
	}

	m, closeFn, err := open(databaseURL, *table)
	if err != nil {
		fatal(logger, err)
	}
	defer closeFn()

	if err := run(m, flag.Args(), logger); err != nil {
		closeFn()
		fatal(logger, err)
	}
}

func open(databaseURL, table string) (*migrate.Migrate, func(), error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping db: %w", err)
	}

	dbDriver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{MigrationsTable: table})
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db driver: %w", err)
	}
	srcDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("source driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "pgx5", dbDriver)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, func() { _, _ = m.Close() }, nil
}

func run(m migrator, args []string, logger *slog.Logger) error {
	action := "up"
	if len(args) > 0 {
		action = strings.ToLower(args[0])
	}

	switch action {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate up: %w", err)
		}
	case "step-up":
		if err := m.Steps(1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate step up: %w", err)
		}
	case "down":
		if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down: %w", err)
		}
	case "drop":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate drop: %w", err)
		}
	case "force":
		if len(args) < 2 {
			return errors.New("force requires a version")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		if err := m.Force(version); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
	case "version":
	default:
		return fmt.Errorf("unknown command %q", action)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read version: %w", err)
	}
	logger.Info("migrations applied", "action", action, "version", version, "dirty", dirty)
	return nil
}

func fatal(logger *slog.Logger, err error) {
	logger.Error("migrate failed", "err", err)
	os.Exit(1)
}
