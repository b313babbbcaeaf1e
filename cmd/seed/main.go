// seed loads a working set of master data and default link settings into a
// fresh database. Run it once after cmd/migrate on a new installation.
//
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"weighbridge-station/internal/db"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	log.Println("Seeding sites...")
	_, err = tx.Exec(ctx, `
		INSERT INTO sites (code, name) VALUES
		('QUARRY', 'North Quarry'),
		('PLANT', 'Batching Plant'),
		('TIP', 'Landfill Tip')
		ON CONFLICT (code) DO NOTHING;
	`)
	if err != nil {
		log.Fatalf("Failed to seed sites: %v", err)
	}

	log.Println("Seeding items...")
	_, err = tx.Exec(ctx, `
		INSERT INTO items (code, name, is_hazardous) VALUES
		('GRAVEL20', '20mm Gravel', false),
		('SAND', 'Washed Sand', false),
		('FUEL', 'Diesel Fuel', true)
		ON CONFLICT (code) DO NOTHING;
	`)
	if err != nil {
		log.Fatalf("Failed to seed items: %v", err)
	}

	log.Println("Seeding customers, transports, drivers...")
	_, err = tx.Exec(ctx, `
		INSERT INTO customers (code, name, restricted_materials) VALUES
		('ACME', 'Acme Construction', '{}'),
		('CIVIC', 'Civic Works', '{FUEL}')
		ON CONFLICT (code) DO NOTHING;

		INSERT INTO transports (code, name) VALUES
		('OWN', 'Own Fleet'),
		('HIRE', 'Hired Carrier')
		ON CONFLICT (code) DO NOTHING;

		INSERT INTO drivers (code, name, hazmat_cert) VALUES
		('D001', 'Alex Reiner', true),
		('D002', 'Sam Okafor', false)
		ON CONFLICT (code) DO NOTHING;
	`)
	if err != nil {
		log.Fatalf("Failed to seed parties: %v", err)
	}

	log.Println("Seeding vehicles...")
	_, err = tx.Exec(ctx, `
		INSERT INTO vehicles (rego, tare_weight, max_weight) VALUES
		('TRK001', 8500, 42000),
		('TRK002', 6200, 26000)
		ON CONFLICT (rego) DO NOTHING;
	`)
	if err != nil {
		log.Fatalf("Failed to seed vehicles: %v", err)
	}

	log.Println("Seeding default link settings...")
	_, err = tx.Exec(ctx, `
		INSERT INTO settings (key, value) VALUES
		('PortName', '/dev/ttyUSB0'),
		('BaudRate', '9600'),
		('StabilityEnabled', 'true'),
		('StableTime', '3'),
		('ZeroTolerance', '0.1'),
		('RegulatoryZeroTolerance', '0.05'),
		('MaxWeight', '60000')
		ON CONFLICT (key) DO NOTHING;
	`)
	if err != nil {
		log.Fatalf("Failed to seed settings: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}
	log.Println("Seed complete.")
}
