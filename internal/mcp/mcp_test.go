package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

// newTestClient spins up the MCP server in-process over in-memory pipes and
// returns a connected client session.
func newTestClient(t *testing.T) *mcpsdk.ClientSession {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	state := NewMCPServer(logger)

	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "saferename", Version: "test"}, nil)
	RegisterAllTools(server, state)

	serverT, clientT := mcpsdk.NewInMemoryTransports()
	ctx, cancel := context.WithCancel(context.Background())
	go server.Run(ctx, serverT)

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "1.0"}, nil)
	session, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		session.Close()
		cancel()
		state.Close()
	})
	return session
}

func writeFixture(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}
	return dir
}

// callTool invokes a tool, fails the test on a protocol or tool error, and
// unmarshals the JSON text content into out when out is non-nil.
func callTool(t *testing.T, sess *mcpsdk.ClientSession, name string, args map[string]any, out any) {
	t.Helper()
	result, err := sess.CallTool(context.Background(), &mcpsdk.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.Falsef(t, result.IsError, "tool %s returned error: %v", name, result.Content)
	tc, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok, "expected text content")
	if out != nil {
		require.NoError(t, json.Unmarshal([]byte(tc.Text), out))
	}
}

func loadFixture(t *testing.T, sess *mcpsdk.ClientSession, files map[string]string) string {
	t.Helper()
	dir := writeFixture(t, files)
	callTool(t, sess, "load_workspace", map[string]any{"path": dir}, nil)
	return dir
}

var greetFixture = map[string]string{
	"go.mod": "module example.com/demo\n\ngo 1.25\n",
	"greet.go": `package demo

func Greet() string {
	return "hello"
}
`,
	"use.go": `package demo

func Use() string {
	return Greet()
}
`,
}

func TestWorkspaceStatusBeforeLoad(t *testing.T) {
	sess := newTestClient(t)

	var status WorkspaceStatusOutput
	callTool(t, sess, "workspace_status", map[string]any{}, &status)
	require.False(t, status.Loaded)
	require.Zero(t, status.PackageCount)
}

func TestLoadWorkspaceAndStatus(t *testing.T) {
	sess := newTestClient(t)
	loadFixture(t, sess, greetFixture)

	var status WorkspaceStatusOutput
	callTool(t, sess, "workspace_status", map[string]any{}, &status)
	require.True(t, status.Loaded)
	require.Equal(t, "example.com/demo", status.Module)
	require.Equal(t, 1, status.PackageCount)
	require.Contains(t, status.Packages, "example.com/demo")
}

func TestRenameSymbolToolPreview(t *testing.T) {
	sess := newTestClient(t)
	dir := loadFixture(t, sess, greetFixture)

	var res PlanResult
	callTool(t, sess, "rename_symbol", map[string]any{
		"symbol":   "Greet",
		"new_name": "Welcome",
	}, &res)

	require.False(t, res.Applied)
	require.NotZero(t, res.ChangeCount)
	require.Empty(t, res.Conflicts)
	require.Contains(t, res.Preview, "Welcome")

	// Preview only: nothing on disk changes.
	src, err := os.ReadFile(filepath.Join(dir, "greet.go"))
	require.NoError(t, err)
	require.Contains(t, string(src), "func Greet()")
}

func TestRenameSymbolToolApply(t *testing.T) {
	sess := newTestClient(t)
	dir := loadFixture(t, sess, greetFixture)

	var res PlanResult
	callTool(t, sess, "rename_symbol", map[string]any{
		"symbol":   "Greet",
		"new_name": "Welcome",
		"apply":    true,
	}, &res)

	require.True(t, res.Applied)

	decl, err := os.ReadFile(filepath.Join(dir, "greet.go"))
	require.NoError(t, err)
	require.Contains(t, string(decl), "func Welcome()")
	require.NotContains(t, string(decl), "Greet")

	use, err := os.ReadFile(filepath.Join(dir, "use.go"))
	require.NoError(t, err)
	require.Contains(t, string(use), "return Welcome()")
}

func TestRenameMethodTool(t *testing.T) {
	sess := newTestClient(t)
	dir := loadFixture(t, sess, map[string]string{
		"go.mod": "module example.com/demo\n\ngo 1.25\n",
		"server.go": `package demo

type Server struct{}

func (s *Server) Start() error { return nil }

func boot(s *Server) error {
	return s.Start()
}
`,
	})

	var res PlanResult
	callTool(t, sess, "rename_method", map[string]any{
		"type_name":       "Server",
		"method_name":     "Start",
		"new_method_name": "Run",
		"apply":           true,
	}, &res)

	require.True(t, res.Applied)

	src, err := os.ReadFile(filepath.Join(dir, "server.go"))
	require.NoError(t, err)
	require.Contains(t, string(src), "func (s *Server) Run() error")
	require.Contains(t, string(src), "return s.Run()")
}

func TestBatchRenameTool(t *testing.T) {
	sess := newTestClient(t)
	dir := loadFixture(t, sess, map[string]string{
		"go.mod": "module example.com/demo\n\ngo 1.25\n",
		"pair.go": `package demo

func First() int  { return 1 }
func Second() int { return 2 }
`,
	})

	var res PlanResult
	callTool(t, sess, "batch_rename", map[string]any{
		"renames": []map[string]any{
			{"symbol": "First", "new_name": "Head"},
			{"symbol": "Second", "new_name": "Tail"},
		},
		"apply": true,
	}, &res)

	require.True(t, res.Applied)

	src, err := os.ReadFile(filepath.Join(dir, "pair.go"))
	require.NoError(t, err)
	require.Contains(t, string(src), "func Head() int")
	require.Contains(t, string(src), "func Tail() int")
}

func TestAnalyzeRenameTool(t *testing.T) {
	sess := newTestClient(t)
	dir := loadFixture(t, sess, greetFixture)

	var res AnalyzeRenameOutput
	callTool(t, sess, "analyze_rename", map[string]any{
		"symbol":   "Greet",
		"new_name": "Welcome",
	}, &res)

	require.True(t, res.Safe)
	require.Empty(t, res.Conflicts)
	require.NotEmpty(t, res.AffectedFiles)

	// analyze_rename never touches disk.
	src, err := os.ReadFile(filepath.Join(dir, "greet.go"))
	require.NoError(t, err)
	require.Contains(t, string(src), "func Greet()")
}

func TestSaveRenamePlanTool(t *testing.T) {
	sess := newTestClient(t)
	loadFixture(t, sess, greetFixture)

	planPath := filepath.Join(t.TempDir(), "plan.yaml")
	var res SaveRenamePlanOutput
	callTool(t, sess, "save_rename_plan", map[string]any{
		"symbol":   "Greet",
		"new_name": "Welcome",
		"plan_out": planPath,
	}, &res)

	require.NotEmpty(t, res.PlanID)
	require.Equal(t, planPath, res.PlanPath)
	require.NotZero(t, res.ChangeCount)

	raw, err := os.ReadFile(planPath)
	require.NoError(t, err)
	require.Contains(t, string(raw), "Welcome")
}

func TestRenameToolRequiresWorkspace(t *testing.T) {
	sess := newTestClient(t)

	result, err := sess.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      "rename_symbol",
		Arguments: map[string]any{"symbol": "Greet", "new_name": "Welcome"},
	})
	require.NoError(t, err)
	require.True(t, result.IsError)

	tc, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)
	require.True(t, strings.Contains(tc.Text, "load_workspace"))
}
