/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Warp Overtime Engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Initialize SQLite store
  3. Build the claim service over the store
  4. Create API handler and router
  5. Start the escalation scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080, env PORT)
  -db      SQLite database path (default: overtime.db, env DATABASE_PATH)
           Use ":memory:" for in-memory database
  -seed    Seed the standard formula set when the store is empty

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the escalation scheduler
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database, seeding the standard formulas
  ./server -db="./data/overtime.db" -seed

  # Run with in-memory database
  ./server -db=":memory:" -seed

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
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

	"github.com/warp/overtime-engine/api"
	"github.com/warp/overtime-engine/engine"
	"github.com/warp/overtime-engine/payroll"
	"github.com/warp/overtime-engine/store/sqlite"
)

func main() {
	// .env is optional; flags beat env, env beats defaults.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DATABASE_PATH", "overtime.db"), "SQLite database path")
	seed := flag.Bool("seed", false, "seed the standard formula set when the store is empty")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	if *seed {
		if err := seedFormulas(context.Background(), store); err != nil {
			log.Fatalf("Failed to seed formulas: %v", err)
		}
	}

	// The store doubles as the holiday calendar; the nop notifier keeps
	// transition events in the audit log only.
	service := payroll.NewClaimService(payroll.Stores{
		Sessions: store,
		Formulas: store,
		Rules:    store,
		Audit:    store,
	}, store, engine.ExactRounding{}, nil)

	handler := api.NewHandler(service, store)
	router := api.NewRouter(handler)

	scheduler := api.NewEscalationScheduler(service, nil)
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
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

// seedFormulas installs the standard formula set unless formulas are
// already configured.
func seedFormulas(ctx context.Context, store *sqlite.Store) error {
	existing, err := store.ListFormulas(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	from := engine.NewDate(time.Now().Year(), time.January, 1)
	for _, f := range payroll.StandardFormulaSet(from) {
		if err := store.SaveFormula(ctx, f); err != nil {
			return err
		}
	}
	log.Printf("Seeded standard formula set effective %s", from)
	return nil
}

func envStr(key, fallback string) string {
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
