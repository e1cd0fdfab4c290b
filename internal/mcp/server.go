// Package mcp exposes the phenotype mapping engine as MCP tools so AI
// agents can call it over stdio. It requires no external databases and
// uses SQLite for review persistence.
package mcp

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	litecfg "github.com/oncosaferx/phenotype-server/internal/config"
	"github.com/oncosaferx/phenotype-server/internal/guidelines"
	"github.com/oncosaferx/phenotype-server/internal/history"
	"github.com/oncosaferx/phenotype-server/internal/phenotype"
)

// Server is the MCP server wrapping the mapping engine.
type Server struct {
	config      *litecfg.LiteConfig
	mcpServer   *mcp.Server
	engine      *phenotype.Engine
	guidelines  *guidelines.Service
	reviewStore history.Store
	logger      *logrus.Logger
}

// ServerOption is a functional option for Server.
type ServerOption func(*Server) error

// WithReviewStore sets a custom review store.
func WithReviewStore(store history.Store) ServerOption {
	return func(s *Server) error {
		s.reviewStore = store
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// NewServer creates a new MCP server instance.
func NewServer(cfg *litecfg.LiteConfig, opts ...ServerOption) (*Server, error) {
	server := &Server{
		config: cfg,
		logger: logrus.New(),
	}

	// Stdio transport means stdout belongs to the protocol; logs go to
	// stderr via logrus defaults.
	if cfg.LogFormat == "text" {
		server.logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		server.logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, _ := logrus.ParseLevel(cfg.LogLevel)
	server.logger.SetLevel(level)

	// Apply options
	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	// Ensure data directory exists
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	server.engine = phenotype.NewEngine(server.logger)
	server.guidelines = guidelines.NewService(server.logger, cfg.CacheMaxItems, cfg.CacheTTL)

	// Initialize review store if not provided
	if server.reviewStore == nil {
		store, err := history.NewSQLiteStore(cfg.ReviewDBPath(), server.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create review store: %w", err)
		}
		server.reviewStore = store
	}

	serverInfo := &mcp.Implementation{
		Name:    "oncosaferx-phenotype-server",
		Version: "v1.0.0",
	}
	server.mcpServer = mcp.NewServer(serverInfo, nil)

	server.registerTools()

	server.logger.Info("MCP server initialized successfully")
	return server, nil
}

// registerTools registers all phenotype tools with the MCP SDK.
func (s *Server) registerTools() {
	tools := []struct {
		tool    *mcp.Tool
		handler mcp.ToolHandler
	}{
		{
			tool: &mcp.Tool{
				Name:        "map_phenotypes",
				Description: "Map free-text clinical observations to pharmacogene phenotype classifications (CYP2D6, CYP2C19, TPMT, DPYD, UGT1A1, SLCO1B1, VKORC1, NUDT15)",
				InputSchema: &jsonschema.Schema{Type: "object"},
			},
			handler: s.handleMapPhenotypes,
		},
		{
			tool: &mcp.Tool{
				Name:        "detect_hla_risk",
				Description: "Detect HLA risk alleles (HLA-B*57:01, HLA-B*15:02, HLA-A*31:01, HLA-B*58:01) in clinical observation text",
				InputSchema: &jsonschema.Schema{Type: "object"},
			},
			handler: s.handleDetectHLARisk,
		},
		{
			tool: &mcp.Tool{
				Name:        "get_cpic_guideline",
				Description: "Look up curated CPIC dosing guidelines for a gene and optional phenotype",
				InputSchema: &jsonschema.Schema{Type: "object"},
			},
			handler: s.handleGetGuideline,
		},
		{
			tool: &mcp.Tool{
				Name:        "save_review",
				Description: "Record a clinician's review of a mapped phenotype (agreement or override)",
				InputSchema: &jsonschema.Schema{Type: "object"},
			},
			handler: s.handleSaveReview,
		},
		{
			tool: &mcp.Tool{
				Name:        "export_reviews",
				Description: "Export all clinician reviews to a JSON file in the export directory",
				InputSchema: &jsonschema.Schema{Type: "object"},
			},
			handler: s.handleExportReviews,
		},
	}

	for _, t := range tools {
		s.mcpServer.AddTool(t.tool, t.handler)
		s.logger.WithField("tool_name", t.tool.Name).Debug("Registered MCP tool")
	}

	s.logger.WithField("tool_count", len(tools)).Info("Successfully registered all tools")
}

// Start runs the MCP server over stdio until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting OncoSafeRx Phenotype MCP Server...")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Close cleans up server resources.
func (s *Server) Close() error {
	if s.reviewStore != nil {
		if err := s.reviewStore.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close review store")
			return err
		}
	}
	return nil
}

// ReviewStore returns the review store for external access.
func (s *Server) ReviewStore() history.Store {
	return s.reviewStore
}
