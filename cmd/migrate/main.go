// migrate runs DB migrations from embedded SQL; use with go run ./cmd/migrate.
package main

import (
	"flag"
	"os"

	"servicehub/backend/internal/config"
	"servicehub/backend/internal/db/migrate"
	"servicehub/backend/internal/platform/logging"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	status := flag.Bool("status", false, "Print the applied schema version and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.NewLogger("info").Error("config", "error", err)
		os.Exit(1)
	}
	log := logging.NewLogger(cfg.LogLevel)
	if cfg.DatabaseURL == "" {
		log.Error("DATABASE_URL is not set; create a .env or set DATABASE_URL")
		os.Exit(1)
	}

	if *status {
		st, err := migrate.CurrentStatus(cfg.DatabaseURL)
		if err != nil {
			log.Error("migrate status", "error", err)
			os.Exit(1)
		}
		log.Info("schema version", "version", st.Version, "dirty", st.Dirty, "empty", st.Empty)
		return
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		log.Error("migrate", "direction", *direction, "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied", "direction", *direction)
}
