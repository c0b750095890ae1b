package main

import (
	"context"
	"flag"
	"log"
	"time"

	"hotelbooking/internal/config"
	"hotelbooking/internal/database"
	"hotelbooking/internal/repository"
)

func main() {
	keep := flag.Duration("keep", 30*24*time.Hour, "how long delivered channel sync tasks are kept")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := repository.NewSyncTaskRepository(db).PurgeDone(ctx, time.Now().UTC().Add(-*keep))
	if err != nil {
		log.Fatalf("cleanup channel_sync_tasks failed: %v", err)
	}

	log.Printf("cleanup completed: channel_sync_tasks=%d", n)
}
