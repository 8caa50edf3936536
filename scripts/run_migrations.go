package main

import (
	"context"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/safar/go-bookstore/internal/config"
	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/logging"
)

func main() {
	logger := logging.New("info", "text")

	if len(os.Args) < 2 {
		logger.Fatal("usage: go run scripts/run_migrations.go [up|down] [steps]")
	}
	direction := os.Args[1]
	if direction != "up" && direction != "down" {
		logger.Fatal("direction must be 'up' or 'down'")
	}

	steps := 0
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil {
			logger.WithError(err).Fatal("steps must be a number")
		}
		steps = n
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}

	ctx := context.Background()
	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("connect to database")
	}
	defer db.Close()

	var applied int
	if direction == "up" {
		applied, err = database.MigrateUp(ctx, db, steps)
	} else {
		applied, err = database.MigrateDown(ctx, db, steps)
	}
	if err != nil {
		logger.WithError(err).Fatal("run migrations")
	}

	logger.WithFields(log.Fields{"direction": direction, "applied": applied}).Info("migrations completed")
}
