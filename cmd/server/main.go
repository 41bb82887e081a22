/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the COPD mortality comparison API server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load the study definition (or the built-in Uganda / USA 2019 study)
  3. Initialize SQLite store
  4. Import the definition's CSV files for tables the store does not have
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: copd.db)
           Use ":memory:" for in-memory database
  -study   Study definition YAML (default: built-in study)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Serve the built-in study from a file database
  ./server -db="./data/copd.db"

  # Import the downloads listed in a definition on first start
  ./server -study=./data/study.yaml

SEE ALSO:
  - api/server.go: Router configuration
  - factory/study.go: Study definition files
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
	"syscall"
	"time"

	"github.com/warp/copd-rates/api"
	"github.com/warp/copd-rates/factory"
	"github.com/warp/copd-rates/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "copd.db", "SQLite database path")
	studyPath := flag.String("study", "", "Study definition YAML (default: built-in study)")
	flag.Parse()

	// Study definition
	def, err := loadDefinition(*studyPath)
	if err != nil {
		log.Fatalf("Failed to load study: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	if err := importMissing(context.Background(), store, def); err != nil {
		log.Printf("Warning: Failed to import study tables: %v", err)
	}

	// Initialize handler
	handler := api.NewHandler(store, def.Config)

	// Create router
	router := api.NewRouter(handler, api.RouterOptions{})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
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

func loadDefinition(path string) (*factory.Definition, error) {
	if path == "" {
		return factory.ParseDefinition([]byte(factory.DefaultStudyYAML()), "")
	}
	return factory.LoadDefinition(path)
}

// importMissing loads the definition's CSV files into store, skipping
// tables it already holds and files that do not exist. The population file
// is cut down to the study's locations and year on the way in.
func importMissing(ctx context.Context, store *sqlite.Store, def *factory.Definition) error {
	have, err := store.Names(ctx)
	if err != nil {
		return err
	}
	stored := make(map[string]bool, len(have))
	for _, n := range have {
		stored[n] = true
	}

	src := def.BoundSource()
	for name, path := range def.Files {
		if stored[name] {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			log.Printf("Table %q not imported: %v", name, err)
			continue
		}
		t, err := src.Table(ctx, name)
		if err != nil {
			return err
		}
		if err := store.SaveTableFrom(ctx, t, path); err != nil {
			return err
		}
		log.Printf("Imported table %q from %s (%d rows)", name, path, t.Len())
	}
	return nil
}
