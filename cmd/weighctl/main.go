// weighctl is a one-shot admin tool for the station database: listing
// vehicles, storing tares, inspecting and cancelling dockets, and editing
// link settings without restarting the station process.
package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"weighbridge-station/internal/adapters/cli"
	"weighbridge-station/internal/core"
	"weighbridge-station/internal/db"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		log.Fatal("Usage: weighctl <vehicles|tare|docket|dockets|cancel|set|settings> [args]")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	cli.Run(ctx, cli.Services{
		Vehicles: core.NewVehicleService(pool),
		Dockets:  core.NewDocketService(pool),
		Settings: core.NewSettingsService(pool),
	}, os.Args[1:])
}
