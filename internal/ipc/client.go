package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/screenward/internal/layout"
	"github.com/1broseidon/screenward/internal/monitor"
	"github.com/1broseidon/screenward/internal/platform"
	"github.com/1broseidon/screenward/internal/runtimepath"
	"github.com/1broseidon/screenward/internal/service"
	"github.com/1broseidon/screenward/internal/window"
)

// Rule passes can toggle fullscreen on several windows, each waiting for the
// desktop to settle.
const applyTimeout = 2 * time.Minute

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the default socket path.
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for an explicit socket path.
func NewClientAt(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// SocketPath returns the socket the client dials.
func (c *Client) SocketPath() string { return c.socketPath }

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request, timeout time.Duration) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return &resp, nil
}

// call sends cmd with an optional payload and decodes the response data
// into out when out is non-nil.
func (c *Client) call(cmd CommandType, payload any, out any) error {
	return c.callTimeout(cmd, payload, out, c.timeout)
}

func (c *Client) callTimeout(cmd CommandType, payload any, out any, timeout time.Duration) error {
	req := &Request{Command: cmd}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		req.Payload = raw
	}

	resp, err := c.sendRequest(req, timeout)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", cmd, err)
	}
	return nil
}

// Ping reports whether a daemon answers on the socket.
func (c *Client) Ping() bool {
	_, err := c.GetStatus()
	return err == nil
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*service.Status, error) {
	var st service.Status
	if err := c.call(CommandGetStatus, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// ApplyRules runs a rule pass in the daemon.
func (c *Client) ApplyRules() (*window.ApplySummary, error) {
	var summary window.ApplySummary
	if err := c.callTimeout(CommandApplyRules, nil, &summary, applyTimeout); err != nil {
		return nil, err
	}
	return &summary, nil
}

// DetectMonitors forces a detection pass.
func (c *Client) DetectMonitors() (*DetectData, error) {
	var data DetectData
	if err := c.call(CommandDetectMonitors, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ListMonitors returns every known monitor with its connection state.
func (c *Client) ListMonitors() ([]monitor.Status, error) {
	var out []monitor.Status
	if err := c.call(CommandListMonitors, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteMonitor(id string) (bool, error) {
	var data DeletedData
	if err := c.call(CommandDeleteMonitor, MonitorIDPayload{MonitorID: id}, &data); err != nil {
		return false, err
	}
	return data.Deleted, nil
}

func (c *Client) GetSettings() (*monitor.Settings, error) {
	var s monitor.Settings
	if err := c.call(CommandGetSettings, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) UpdateSettings(patch monitor.SettingsPatch) (*monitor.Settings, error) {
	var s monitor.Settings
	if err := c.call(CommandUpdateSettings, patch, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) ListLayouts() ([]layout.Info, error) {
	var out []layout.Info
	if err := c.call(CommandListLayouts, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PreviewLayout(name string) (*layout.Preview, error) {
	var p layout.Preview
	if err := c.call(CommandPreviewLayout, LayoutPayload{Name: name}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) ActivateLayout(name string) (*layout.Activation, error) {
	var a layout.Activation
	if err := c.call(CommandActivateLayout, LayoutPayload{Name: name}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// DeactivateLayout returns the name of the layout that was active.
func (c *Client) DeactivateLayout() (string, error) {
	var data DeactivatedData
	if err := c.call(CommandDeactivateLayout, nil, &data); err != nil {
		return "", err
	}
	return data.Layout, nil
}

func (c *Client) CheckLayout() (*CheckData, error) {
	var data CheckData
	if err := c.call(CommandCheckLayout, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ActiveLayout returns nil when no layout is active.
func (c *Client) ActiveLayout() (*layout.ActiveInfo, error) {
	var data ActiveLayoutData
	if err := c.call(CommandGetActiveLayout, nil, &data); err != nil {
		return nil, err
	}
	if !data.Active {
		return nil, nil
	}
	return data.Layout, nil
}

func (c *Client) ActiveRules() ([]layout.ResolvedRule, error) {
	var out []layout.ResolvedRule
	if err := c.call(CommandGetActiveRules, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateLayout(name, description string) (*layout.Created, error) {
	var created layout.Created
	payload := CreateLayoutPayload{Name: name, Description: description}
	if err := c.call(CommandCreateLayout, payload, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpsertRule adds or updates a rule. Editing the active layout triggers a
// rule pass before the daemon answers.
func (c *Client) UpsertRule(layoutName string, in layout.RuleInput) (*layout.RuleChange, error) {
	var change layout.RuleChange
	payload := UpsertRulePayload{Layout: layoutName, RuleInput: in}
	if err := c.callTimeout(CommandUpsertRule, payload, &change, applyTimeout); err != nil {
		return nil, err
	}
	return &change, nil
}

// DeleteRule removes a rule and reports whether the active layout changed.
func (c *Client) DeleteRule(layoutName, ruleID string) (bool, error) {
	var data RuleDeletedData
	payload := DeleteRulePayload{Layout: layoutName, RuleID: ruleID}
	if err := c.call(CommandDeleteRule, payload, &data); err != nil {
		return false, err
	}
	return data.Active, nil
}

func (c *Client) DeleteLayout(name string) error {
	return c.call(CommandDeleteLayout, LayoutPayload{Name: name}, nil)
}

// ListWindows returns the daemon's cached window enumeration.
func (c *Client) ListWindows() (*service.WindowCache, error) {
	var cache service.WindowCache
	if err := c.call(CommandListWindows, nil, &cache); err != nil {
		return nil, err
	}
	return &cache, nil
}

func (c *Client) FocusWindow(id platform.WindowID) error {
	return c.call(CommandFocusWindow, WindowPayload{Handle: id}, nil)
}

func (c *Client) ApplyWindowRule(rule service.WindowRule) (*window.RuleResult, error) {
	var result window.RuleResult
	if err := c.callTimeout(CommandApplyWindowRule, rule, &result, applyTimeout); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Screens() (*ScreensData, error) {
	var data ScreensData
	if err := c.call(CommandGetScreens, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
