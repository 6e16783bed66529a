// assessment-mcp serves the business health assessment over MCP (stdio), so
// an AI assistant can ask the questions and explain the result.
//
// Usage:
//
//	assessment-mcp serve     # start the MCP server on stdio
//	assessment-mcp version
//
// ASSESSMENT_CATALOG_PATH overrides the embedded question catalog.
package main

import (
	"fmt"
	"os"

	"bvester-assessment/internal/assessment"
	"bvester-assessment/internal/common/logger"
	"bvester-assessment/internal/mcptools"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--version", "-v", "version":
		fmt.Printf("assessment-mcp v%s\n", mcptools.Version)
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	// zap writes to stderr, which keeps stdout free for the MCP transport.
	log := logger.New(os.Getenv("LOG_LEVEL"), "json")
	defer log.Sync()

	catalog, err := loadCatalog(os.Getenv("ASSESSMENT_CATALOG_PATH"))
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	log.Info("Starting MCP server",
		zap.String("catalogVersion", catalog.Version),
		zap.Int("questions", catalog.Len()),
	)

	s := mcptools.NewServer(assessment.NewEngine(), catalog)
	return server.ServeStdio(s)
}

func loadCatalog(path string) (*assessment.Catalog, error) {
	if path == "" {
		return assessment.DefaultCatalog()
	}
	return assessment.LoadCatalog(path)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `assessment-mcp - business health assessment MCP server

Usage:
  assessment-mcp serve      Start the MCP server (stdio transport)
  assessment-mcp version    Print the version
`)
}
