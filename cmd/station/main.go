package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"weighbridge-station/internal/adapters/web"
	"weighbridge-station/internal/adapters/ws"
	"weighbridge-station/internal/app"
	"weighbridge-station/internal/core"
	"weighbridge-station/internal/db"
	"weighbridge-station/internal/weighbridge"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	settingsService := core.NewSettingsService(pool)
	settings, err := settingsService.LoadAll(ctx)
	if err != nil {
		log.Printf("settings: %v; continuing with built-in defaults", err)
		settings = map[string]string{}
	}

	hub := ws.NewHub(nil)
	link, err := weighbridge.NewManager(weighbridge.ConfigFromSettings(settings), hub.LinkEvents(), nil)
	if err != nil {
		log.Fatalf("weighbridge config: %v", err)
	}
	if err := link.Open(); err != nil {
		log.Fatalf("weighbridge: %v", err)
	}
	defer link.Close()
	if link.Simulated() {
		log.Printf("weighbridge: running against the simulation source")
	}

	vehicleService := core.NewVehicleService(pool)
	docketService := core.NewDocketService(pool)
	masterData := core.NewMasterDataService(pool)

	receiptDir := os.Getenv("RECEIPT_DIR")
	if receiptDir == "" {
		receiptDir = "receipts"
	}
	exportPath := os.Getenv("EXPORT_FILE")
	if exportPath == "" {
		exportPath = "dockets.csv"
	}

	svc := app.NewOrchestrator(
		vehicleService,
		docketService,
		masterData,
		link,
		newReceiptPrinter(receiptDir),
		newCSVExporter(exportPath),
		core.LimitsFromSettings(settings),
		nil,
	)
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.Handle("/", web.NewHandler(svc, link))

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	server := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		log.Printf("station listening on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("shutting down")
	link.Close()
	_ = server.Shutdown(ctx)
}
