// Package main provides the stdio MCP entry point for the phenotype
// mapping engine. It requires no external databases and stores clinician
// reviews in SQLite.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/oncosaferx/phenotype-server/internal/config"
	"github.com/oncosaferx/phenotype-server/internal/mcp"
)

func main() {
	// Load lightweight configuration from environment
	cfg := config.LoadLiteConfig()

	log.Printf("Starting OncoSafeRx Phenotype MCP Server")
	log.Printf("Data directory: %s", cfg.DataDir)

	// Create MCP server
	server, err := mcp.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}
	defer server.Close()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start MCP server
	if err := server.Start(ctx); err != nil {
		log.Fatalf("MCP server failed: %v", err)
	}

	log.Println("OncoSafeRx Phenotype MCP Server stopped")
}
