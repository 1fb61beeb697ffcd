package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/samirrijal/aoiexplorer/internal/adapters/postgres"
	"github.com/samirrijal/aoiexplorer/internal/pkg/config"
	"github.com/samirrijal/aoiexplorer/internal/pkg/logging"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up>")
	}

	cfg, err := config.Load("aoi-explorer-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN(), 2)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	switch os.Args[1] {
	case "up":
		if err := postgres.Migrate(ctx, db, logger); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		logger.Info("all migrations applied")
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}
