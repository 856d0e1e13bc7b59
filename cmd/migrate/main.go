package main

import (
	"context"
	"log"

	"apptrack/server/internal/config"
	"apptrack/server/internal/database"
	"apptrack/server/internal/database/schema"
	"apptrack/server/internal/database/schema/migrations"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx := context.Background()

	db, err := database.New(ctx, database.Options{
		DSN:      cfg.ClickHouseDSN,
		Username: cfg.ClickHouseUsername,
		Password: cfg.ClickHousePassword,
		Database: cfg.ClickHouseDatabase,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to ClickHouse", zap.Error(err))
	}
	defer db.Close()

	migrator := schema.NewMigrator(db.Conn(), logger)

	if err := migrator.CreateMigrationsTable(ctx); err != nil {
		logger.Fatal("Failed to create migrations table", zap.Error(err))
	}

	applied, err := migrator.GetAppliedMigrations(ctx)
	if err != nil {
		logger.Fatal("Failed to get applied migrations", zap.Error(err))
	}

	pending := []schema.Migration{
		migrations.CreateApplicationsTable,
		migrations.CreateLabeledEmailsTable,
		migrations.CreateApplicationEmailsTable,
	}

	for _, migration := range pending {
		if _, ok := applied[migration.Version]; !ok {
			logger.Info("Applying migration",
				zap.Int("version", migration.Version),
				zap.String("description", migration.Description),
			)

			if err := migrator.ApplyMigration(ctx, migration); err != nil {
				logger.Fatal("Failed to apply migration",
					zap.Int("version", migration.Version),
					zap.Error(err),
				)
			}

			logger.Info("Successfully applied migration",
				zap.Int("version", migration.Version),
			)
		} else {
			logger.Info("Migration already applied",
				zap.Int("version", migration.Version),
				zap.String("description", migration.Description),
			)
		}
	}

	logger.Info("All migrations completed successfully")
}
