package main

import (
	"context"
	"errors"
	"flag"
	"time"

	"github.com/pantryscout/backend/config"
	"github.com/pantryscout/backend/internal/database"
	"github.com/pantryscout/backend/internal/logger"
	"go.uber.org/zap"
)

func main() {
	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	dir := flag.String("dir", "", "Migrations directory (defaults to MIGRATIONS_DIR)")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	logger.Init()
	defer logger.Close()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	if *dir == "" {
		*dir = cfg.MigrationsDir
	}

	db, err := database.New(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if *rollback {
		name, err := database.Rollback(ctx, db.DB, *dir)
		switch {
		case errors.Is(err, database.ErrNothingToRollback):
			logger.Info("no migrations to roll back")
		case err != nil:
			logger.Fatal("rollback failed", zap.Error(err))
		default:
			logger.Info("rolled back migration", zap.String("name", name))
		}
		return
	}

	applied, err := database.Migrate(ctx, db.DB, *dir)
	if err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	if len(applied) == 0 {
		logger.Info("database is up to date")
		return
	}
	logger.Info("applied migrations", zap.Strings("names", applied))
}
