// seed inserts the starter service catalog. Idempotent: services whose name already exists
// are left untouched.
package main

import (
	"context"
	"os"
	"time"

	"servicehub/backend/internal/catalog/domain"
	catalogrepo "servicehub/backend/internal/catalog/repository"
	"servicehub/backend/internal/config"
	"servicehub/backend/internal/db"
	"servicehub/backend/internal/platform/logging"
)

var starterServices = []domain.Service{
	{Name: "Home cleaning", Description: "Two-hour standard home cleaning.", Category: "home", PriceCents: 4500},
	{Name: "Plumbing inspection", Description: "Visual inspection of pipes and fixtures.", Category: "home", PriceCents: 6000},
	{Name: "Personal training", Description: "One-hour session with a certified trainer.", Category: "wellness", PriceCents: 3500},
	{Name: "Tax consultation", Description: "Thirty-minute call with an advisor.", Category: "finance", PriceCents: 5000},
	{Name: "Laptop tune-up", Description: "Cleanup, updates and a hardware check.", Category: "tech", PriceCents: 3000},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.NewLogger("info").Error("config", "error", err)
		os.Exit(1)
	}
	log := logging.NewLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("database", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	repo := catalogrepo.NewPostgresRepository(conn)
	var inserted int
	for i := range starterServices {
		s := starterServices[i]
		s.Active = true
		ok, err := repo.UpsertByName(ctx, &s)
		if err != nil {
			log.Error("seed service", "name", s.Name, "error", err)
			os.Exit(1)
		}
		if ok {
			inserted++
		}
	}
	log.Info("seed complete", "inserted", inserted, "skipped", len(starterServices)-inserted)
}
