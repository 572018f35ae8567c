package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"filesearch/internal/engine"
	"filesearch/internal/mcpserver"
	"filesearch/internal/store"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	versionFlag := flag.Bool("version", false, "print version information and exit")
	dbPath := flag.String("db", "", "path to the index database (default ~/.filesearch/index.db)")
	indexDir := flag.String("index", "", "if set, index this directory once and exit instead of serving")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("filesearch MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", store.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", store.DriverName)
		os.Exit(0)
	}

	log.SetOutput(os.Stderr)
	log.Printf("filesearch MCP Server v%s starting...", version)
	log.Printf("Build Mode: %s, Driver: %s", store.BuildMode, store.DriverName)

	path := *dbPath
	if path == "" {
		var err error
		path, err = defaultDBPath()
		if err != nil {
			log.Fatalf("Failed to determine default database path: %v", err)
		}
	}

	e, err := engine.Open(engine.Config{IndexPath: path}, log.Default())
	if err != nil {
		log.Fatalf("Failed to open engine: %v", err)
	}

	if *indexDir != "" {
		stats, err := e.IndexDirectory(context.Background(), *indexDir, nil)
		if err != nil {
			log.Fatalf("Indexing failed: %v", err)
		}
		log.Printf("Indexed %s: added=%d updated=%d removed=%d failed=%d",
			*indexDir, stats.Added, stats.Updated, stats.Removed, stats.Failed)
		_ = e.Close()
		return
	}

	srv, err := mcpserver.NewServer(e, log.Default())
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Println("MCP server ready, listening on stdio...")
		errChan <- srv.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}

	log.Println("Server stopped")
}

// defaultDBPath returns ~/.filesearch/index.db, creating the directory if
// needed.
func defaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".filesearch")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "index.db"), nil
}
