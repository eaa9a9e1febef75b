// Package main runs the saferename MCP server over stdio.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	internalmcp "github.com/mamaar/saferename/internal/mcp"
)

const version = "0.1.0"

func main() {
	var (
		workspaceFlag = flag.String("workspace", "", "Workspace to preload (clients can also call load_workspace)")
		debugFlag     = flag.Bool("debug", false, "Enable debug logging")
		versionFlag   = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Printf("saferename-mcp v%s\n", version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *debugFlag {
		level = slog.LevelDebug
	}
	// Logs must stay off stdout; stdio carries the protocol.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	state := internalmcp.NewMCPServer(logger)
	defer state.Close()

	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "saferename", Version: version}, nil)
	internalmcp.RegisterAllTools(server, state)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *workspaceFlag != "" {
		path, err := filepath.Abs(*workspaceFlag)
		if err != nil {
			logger.Error("invalid workspace path", "err", err)
			os.Exit(1)
		}
		if err := state.LoadWorkspace(ctx, path); err != nil {
			logger.Error("failed to preload workspace", "path", path, "err", err)
			os.Exit(1)
		}
	}

	if err := server.Run(ctx, &mcpsdk.StdioTransport{}); err != nil && ctx.Err() == nil {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
