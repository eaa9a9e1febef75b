// Package mcp exposes the rename engine over the Model Context Protocol.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mamaar/saferename/pkg/analysis"
	"github.com/mamaar/saferename/pkg/refactor"
	"github.com/mamaar/saferename/pkg/types"
	"github.com/mamaar/saferename/pkg/watch"
)

// MCPServer holds the shared state for the MCP tool handlers: a loaded
// workspace, its rename engine, and a filesystem watcher that keeps the
// workspace model current while an MCP client is connected.
type MCPServer struct {
	mu        sync.RWMutex
	engine    refactor.Engine
	config    *refactor.EngineConfig
	workspace *types.Workspace
	watcher   *watch.Watcher
	updater   *watch.WorkspaceUpdater
	cancel    context.CancelFunc
	logger    *slog.Logger
}

// NewMCPServer creates server state around a fresh engine. The workspace
// config is loaded when load_workspace is called.
func NewMCPServer(logger *slog.Logger) *MCPServer {
	return &MCPServer{
		engine: refactor.CreateEngine(logger),
		config: refactor.DefaultConfig(),
		logger: logger,
	}
}

// LoadWorkspace loads (or reloads) a workspace and starts a background
// watcher that re-parses packages as files change underneath the server.
func (s *MCPServer) LoadWorkspace(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.watcher != nil {
		_ = s.watcher.Close()
		s.watcher = nil
	}

	config, err := refactor.LoadConfig(path)
	if err != nil {
		return err
	}
	s.config = config
	s.engine = refactor.CreateEngineWithConfig(s.logger, config)

	s.logger.Info("loading workspace", "path", path)
	ws, err := s.engine.LoadWorkspace(path)
	if err != nil {
		return fmt.Errorf("load workspace: %w", err)
	}
	s.workspace = ws

	parser := analysis.NewParser(s.logger)
	resolver := analysis.NewSymbolResolver(ws, parser, s.logger)

	w, err := watch.NewWatcher(path, 200*time.Millisecond, s.logger)
	if err != nil {
		s.logger.Warn("watcher unavailable, workspace will not auto-update", "err", err)
		return nil
	}
	s.watcher = w
	s.updater = watch.NewUpdater(ws, parser, resolver, s.logger)

	watchCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	ch := make(chan []watch.ChangeEvent, 4)
	go func() {
		if err := w.Run(watchCtx, ch); err != nil && watchCtx.Err() == nil {
			s.logger.Error("watcher error", "err", err)
		}
	}()
	go func() {
		for events := range ch {
			s.mu.Lock()
			s.updater.HandleChanges(events)
			s.mu.Unlock()
		}
	}()

	return nil
}

// GetWorkspace returns the loaded workspace or an error if none is loaded.
func (s *MCPServer) GetWorkspace() (*types.Workspace, error) {
	if s.workspace == nil {
		return nil, fmt.Errorf("no workspace loaded, call load_workspace first")
	}
	return s.workspace, nil
}

// GetEngine returns the rename engine.
func (s *MCPServer) GetEngine() refactor.Engine {
	return s.engine
}

// Options returns the workspace-level rename defaults.
func (s *MCPServer) Options() types.RenameOptions {
	return s.config.Options()
}

// SyncWorkspaceChanges forces an immediate workspace update for files a tool
// handler just wrote, so the next tool call sees them without waiting for
// the watcher debounce.
func (s *MCPServer) SyncWorkspaceChanges(files []string) {
	if s.updater == nil || len(files) == 0 {
		return
	}
	events := make([]watch.ChangeEvent, len(files))
	for i, file := range files {
		events[i] = watch.ChangeEvent{Path: file, Op: fsnotify.Write}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.updater.HandleChanges(events)
}

// RLock acquires a read lock on the server state.
func (s *MCPServer) RLock() { s.mu.RLock() }

// RUnlock releases the read lock.
func (s *MCPServer) RUnlock() { s.mu.RUnlock() }

// Close stops the watcher and releases resources.
func (s *MCPServer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.watcher != nil {
		_ = s.watcher.Close()
		s.watcher = nil
	}
}
