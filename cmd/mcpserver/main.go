// Command mcpserver exposes the page schemas and content to MCP clients, so
// assistants can draft and check pages against the same rules as the editor.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ozeweb/oze-website/internal/mcp"
	"github.com/ozeweb/oze-website/pkg/pages/config"
	"github.com/ozeweb/oze-website/pkg/pages/render"
)

// Listener settings for the sse and http modes.
type Listener struct {
	Host    string `env:"MCP_HOST" env-default:"localhost"`
	Port    uint16 `env:"MCP_PORT" env-default:"8000"`
	BaseURL string `env:"MCP_BASE_URL" env-default:"http://localhost:8000"`
}

func (l Listener) addr() string {
	return net.JoinHostPort(l.Host, strconv.Itoa(int(l.Port)))
}

func main() {
	mode := flag.String("mode", "stdio", "transport: stdio, sse or http")
	flag.Parse()

	// stdout carries the protocol in stdio mode
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := run(context.Background(), *mode); err != nil {
		slog.Error("MCP server stopped", "mode", *mode, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, mode string) error {
	if err := godotenv.Load(".env"); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	var lis Listener
	if err := cleanenv.ReadEnv(&lis); err != nil {
		return fmt.Errorf("read MCP listener settings: %w", err)
	}
	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	svc, cleanup, err := cfg.BuildService(ctx)
	if err != nil {
		return fmt.Errorf("build page service: %w", err)
	}
	defer cleanup()

	renderer, err := render.New(svc.Schemas(), render.WithImageResolver(svc))
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}

	s := server.NewMCPServer("OZE Website Pages", "1.0.0", server.WithToolCapabilities(false))
	mcp.NewPageToolsHandler(svc, renderer).RegisterTools(s)

	switch mode {
	case "sse":
		slog.Info("Serving MCP over SSE", "addr", lis.addr(), "base_url", lis.BaseURL)
		return server.NewSSEServer(s, server.WithBaseURL(lis.BaseURL)).Start(lis.addr())
	case "http":
		slog.Info("Serving MCP over streamable HTTP", "addr", lis.addr())
		return server.NewStreamableHTTPServer(s).Start(lis.addr())
	case "stdio":
		slog.Info("Serving MCP over stdio")
		return server.ServeStdio(s)
	}
	return fmt.Errorf("unknown mode %q", mode)
}
