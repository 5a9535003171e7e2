package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/screenward/internal/ipc"
	"github.com/1broseidon/screenward/internal/layout"
	"github.com/1broseidon/screenward/internal/logging"
	"github.com/1broseidon/screenward/internal/monitor"
	"github.com/1broseidon/screenward/internal/service"
	"github.com/1broseidon/screenward/internal/window"
)

const (
	ServerName    = "screenward"
	ServerVersion = "0.1.0"
)

// Daemon is the subset of the IPC client the tools forward to.
type Daemon interface {
	GetStatus() (*service.Status, error)
	ApplyRules() (*window.ApplySummary, error)
	ListMonitors() ([]monitor.Status, error)
	ListLayouts() ([]layout.Info, error)
	PreviewLayout(name string) (*layout.Preview, error)
	ActivateLayout(name string) (*layout.Activation, error)
	DeactivateLayout() (string, error)
	ListWindows() (*service.WindowCache, error)
	UpsertRule(layoutName string, in layout.RuleInput) (*layout.RuleChange, error)
	DeleteRule(layoutName, ruleID string) (bool, error)
	Screens() (*ipc.ScreensData, error)
}

var _ Daemon = (*ipc.Client)(nil)

// Server exposes the daemon to MCP clients. It holds no state of its own.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
	log       *logging.Logger
}

// NewServer creates an MCP server forwarding every tool call to daemon.
func NewServer(daemon Daemon, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	s := &Server{
		daemon: daemon,
		log:    log.With("component", "mcp"),
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Connect serves a single session over t.
func (s *Server) Connect(ctx context.Context, t mcpsdk.Transport) (*mcpsdk.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "status",
		Description: "Report whether the screenward service loop is running, when rules last ran, how many monitors are connected and which layout is active.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "apply_rules",
		Description: "Apply the active layout's rules to every open window now. Returns per-rule results and counts of applied, skipped and failed rules.",
	}, s.handleApplyRules)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_monitors",
		Description: "List every monitor screenward has ever seen, with its stable id and whether it is connected right now.",
	}, s.handleListMonitors)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_layouts",
		Description: "List the layout files in the layouts directory.",
	}, s.handleListLayouts)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "preview_layout",
		Description: "Check whether a layout could be activated with the screens attached right now, and why not if it cannot.",
	}, s.handlePreviewLayout)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "activate_layout",
		Description: "Activate a layout by name. Fails when another layout is active or the attached screens do not satisfy its requirements.",
	}, s.handleActivateLayout)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "deactivate_layout",
		Description: "Deactivate the active layout. Windows are left where they are.",
	}, s.handleDeactivateLayout)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List open application windows with their executable, title, monitor and window state.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "add_rule",
		Description: "Add a rule to a layout, or update the existing rule with the same match type and value. Rules in the active layout take effect immediately.",
	}, s.handleAddRule)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "delete_rule",
		Description: "Delete a rule from a layout by rule id.",
	}, s.handleDeleteRule)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "screen_config",
		Description: "Describe the attached screens as numbered displays with orientation, the way layout requirements refer to them.",
	}, s.handleScreenConfig)
}
