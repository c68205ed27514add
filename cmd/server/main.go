/*
main.go - Application entry point

PURPOSE:
  Runs the premium collections service in one of two modes:

  Server mode (default):
    Serves the reconciliation API until SIGINT/SIGTERM, then shuts down
    gracefully (30s drain, then close the database).

  Report mode (-report):
    Runs the delinquency report batch as of the -asof date, writes the
    date-stamped CSV next to the binary, and exits. This is the
    month-end collections run.

CONFIGURATION:
  A .env file is loaded first if present (godotenv); flags win over
  environment values.

  -port    HTTP server port (default 8080, env PORT)
  -db      SQLite database path (default policies.db, env DB_PATH;
           use ":memory:" for an in-memory database)
  -report  run the delinquency report batch and exit
  -asof    reference date for report mode, YYYY-MM-DD (required with
           -report; evaluations must never depend implicitly on the
           wall clock)

EXAMPLES:
  # Serve the API
  ./server -db=./data/policies.db

  # Month-end delinquency export
  ./server -db=./data/policies.db -report -asof=2025-05-30
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ToniGrindrod/MicroInsure-no-data/api"
	"github.com/ToniGrindrod/MicroInsure-no-data/engine"
	"github.com/ToniGrindrod/MicroInsure-no-data/report"
	"github.com/ToniGrindrod/MicroInsure-no-data/store/sqlite"
)

func main() {
	// .env is optional; absence is not an error.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envString("DB_PATH", "policies.db"), "SQLite database path")
	reportMode := flag.Bool("report", false, "run the delinquency report batch and exit")
	asOf := flag.String("asof", "", "reference date for -report (YYYY-MM-DD)")
	flag.Parse()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	if *reportMode {
		if err := runReport(store, *asOf); err != nil {
			log.Fatalf("Report failed: %v", err)
		}
		return
	}

	serve(store, *port)
}

func runReport(store *sqlite.Store, asOf string) error {
	referenceDate := engine.ParseDate(asOf)
	if !referenceDate.Known() {
		return fmt.Errorf("-report requires -asof=YYYY-MM-DD, got %q", asOf)
	}

	ev := engine.NewEvaluator(store, referenceDate)
	rows, err := report.Build(context.Background(), ev)
	if err != nil {
		return err
	}

	filename := report.Filename(referenceDate)
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := report.WriteCSV(f, rows); err != nil {
		return err
	}
	log.Printf("Wrote %d delinquent group(s) to %s", len(rows), filename)
	return nil
}

func serve(store *sqlite.Store, port int) {
	handler := api.NewHandler(store)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Collections API listening on http://localhost:%d/api", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
