// Package mcpadapter serves the map and query tools over the Model Context
// Protocol.
package mcpadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/samirrijal/osmmap/internal/core/usecases"
)

// Dependencies holds the services the tools call into.
type Dependencies struct {
	Map      *usecases.MapService
	Queries  *usecases.QueryService
	Features *usecases.FeatureService
	Logger   *slog.Logger
}

const instructions = `Tools for driving a shared web map and querying an OpenStreetMap database.

Map tools change a map that every open browser viewer shows live: set the view,
title the map, and add markers, lines and polygons. Nothing can be removed once
added. Coordinates are [latitude, longitude] in WGS 84.

query_osm_postgres runs SQL against a PostGIS database built by osm2pgsql. Use
list_osm_tables and describe_osm_table to learn the schema first, or read the
osm:// resources for the schema, example queries, hstore tags, spatial
functions and common tag keys. find_features_by_name and
find_features_near_location cover the common lookups without writing SQL.`

// NewServer builds the MCP server with every tool and resource registered.
func NewServer(deps Dependencies, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"osmmap",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)
	s.AddTools(Tools(deps)...)
	for _, r := range Resources(deps) {
		s.AddResource(r.Resource, r.Handler)
	}
	return s
}

// ServeStdio serves on stdin/stdout until ctx ends or the client hangs up.
func ServeStdio(ctx context.Context, s *server.MCPServer, log *slog.Logger) error {
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(slog.NewLogLogger(log.Handler(), slog.LevelError))

	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp stdio: %w", err)
	}
	return nil
}

// ServeHTTP serves the streamable HTTP transport on addr until ctx ends.
func ServeHTTP(ctx context.Context, s *server.MCPServer, addr string, log *slog.Logger) error {
	hs := server.NewStreamableHTTPServer(s)

	errCh := make(chan error, 1)
	go func() {
		log.Info("mcp http listening", "addr", addr)
		errCh <- hs.Start(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("mcp http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("mcp http shutdown: %w", err)
	}
	return nil
}
