package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/pzhurov/papersmith/internal/adapters/mcp"
	"github.com/pzhurov/papersmith/internal/bootstrap"
	"github.com/pzhurov/papersmith/internal/config"
)

// The MCP binary speaks the protocol on stdout, so logs go to stderr.
func main() {
	cfg := config.Load()
	handler := slog.NewJSONHandler(os.Stderr, nil)
	slog.SetDefault(slog.New(handler).With("service", "mcp"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	server := mcpadapter.NewServer(app.DocumentsUC, app.ProcessUC, app.DocumentsUC, app.GenerateUC)
	if err := server.ServeStdio(); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
