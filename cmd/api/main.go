package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"voting-ledger/api"
	"voting-ledger/fingerprint"
	"voting-ledger/service"
	"voting-ledger/storage"
)

type Config struct {
	StorageDir    string
	Port          int
	AdminIdentity string
	HashScheme    string
	KeepSnapshots int
}

func main() {
	config := parseFlags()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	fingerprinter, err := fingerprint.ByName(config.HashScheme)
	if err != nil {
		log.Fatalf("Invalid hash scheme: %v", err)
	}

	store, err := storage.New(config.StorageDir, config.KeepSnapshots)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	voteLedger, err := service.LoadOrCreate(store, config.AdminIdentity, fingerprinter)
	if err != nil {
		log.Fatalf("Failed to load ledger: %v", err)
	}

	ledgerService := service.NewLedgerService(voteLedger, store)
	server := api.NewServer(ledgerService)

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	serverChan := make(chan error, 1)
	go func() {
		log.Printf("Starting voting ledger API on port %d...", config.Port)
		serverChan <- http.ListenAndServe(fmt.Sprintf(":%d", config.Port), mux)
	}()

	select {
	case err := <-serverChan:
		log.Fatalf("Server error: %v", err)
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
		if err := store.SaveSnapshot(voteLedger.Snapshot()); err != nil {
			log.Printf("Error saving final snapshot: %v", err)
		}
		log.Println("Server shutdown completed")
	}
}

func parseFlags() *Config {
	config := &Config{}

	flag.StringVar(&config.StorageDir, "storage", "data", "Directory for ledger snapshots and journal")
	flag.IntVar(&config.Port, "port", 8080, "Server port")
	flag.StringVar(&config.AdminIdentity, "admin", "", "Admin identity (required for a fresh ledger)")
	flag.StringVar(&config.HashScheme, "hash", "keccak", "Fingerprint scheme: keccak or sha3")
	flag.IntVar(&config.KeepSnapshots, "keep", 5, "Number of snapshot files to retain")

	flag.Parse()

	if config.AdminIdentity == "" {
		log.Fatal("An admin identity is required (-admin)")
	}

	return config
}
