//go:build migrate

package main

import (
	"errors"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/webagency/backend/internal/config"
	"github.com/webagency/backend/internal/logger"
)

const usage = "Usage: migrate <up|down|steps N|drop|version|force N>"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Server.Environment, cfg.Server.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if len(os.Args) < 2 {
		zl.Fatal(usage)
	}

	// DATABASE_URL wins over the DB_* parts
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = cfg.Database.DSN()
	}

	source := "file://" + os.Getenv("MIGRATIONS_PATH")
	if source == "file://" {
		source = "file://migrations"
	}

	m, err := migrate.New(source, dsn)
	if err != nil {
		zl.Fatal("failed to create migrate instance", zap.String("source", source), zap.Error(err))
	}
	defer m.Close()

	if err := run(m, os.Args[1:], zl); err != nil {
		zl.Fatal("migration failed", zap.String("command", os.Args[1]), zap.Error(err))
	}
}

func run(m *migrate.Migrate, args []string, zl *zap.Logger) error {
	switch args[0] {
	case "up":
		if err := ignoreNoChange(m.Up()); err != nil {
			return err
		}
		zl.Info("migrations applied")

	case "down":
		if err := ignoreNoChange(m.Steps(-1)); err != nil {
			return err
		}
		zl.Info("migration rolled back")

	case "steps":
		n, err := intArg(args)
		if err != nil {
			return err
		}
		if err := ignoreNoChange(m.Steps(n)); err != nil {
			return err
		}
		zl.Info("migrated by steps", zap.Int("steps", n))

	case "drop":
		if err := ignoreNoChange(m.Down()); err != nil {
			return err
		}
		zl.Info("all migrations rolled back")

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			zl.Info("no migrations applied")
			return nil
		}
		if err != nil {
			return err
		}
		zl.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))

	case "force":
		version, err := intArg(args)
		if err != nil {
			return err
		}
		if err := m.Force(version); err != nil {
			return err
		}
		zl.Info("forced version", zap.Int("version", version))

	default:
		return errors.New(usage)
	}
	return nil
}

func intArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, errors.New(usage)
	}
	return strconv.Atoi(args[1])
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
