package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/screenward/internal/layout"
	"github.com/1broseidon/screenward/internal/monitor"
	"github.com/1broseidon/screenward/internal/platform"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandGetStatus        CommandType = "GET_STATUS"
	CommandApplyRules       CommandType = "APPLY_RULES"
	CommandDetectMonitors   CommandType = "DETECT_MONITORS"
	CommandListMonitors     CommandType = "LIST_MONITORS"
	CommandDeleteMonitor    CommandType = "DELETE_MONITOR"
	CommandGetSettings      CommandType = "GET_SETTINGS"
	CommandUpdateSettings   CommandType = "UPDATE_SETTINGS"
	CommandListLayouts      CommandType = "LIST_LAYOUTS"
	CommandPreviewLayout    CommandType = "PREVIEW_LAYOUT"
	CommandActivateLayout   CommandType = "ACTIVATE_LAYOUT"
	CommandDeactivateLayout CommandType = "DEACTIVATE_LAYOUT"
	CommandCheckLayout      CommandType = "CHECK_LAYOUT"
	CommandGetActiveLayout  CommandType = "GET_ACTIVE_LAYOUT"
	CommandGetActiveRules   CommandType = "GET_ACTIVE_RULES"
	CommandCreateLayout     CommandType = "CREATE_LAYOUT"
	CommandUpsertRule       CommandType = "UPSERT_RULE"
	CommandDeleteRule       CommandType = "DELETE_RULE"
	CommandDeleteLayout     CommandType = "DELETE_LAYOUT"
	CommandListWindows      CommandType = "LIST_WINDOWS"
	CommandFocusWindow      CommandType = "FOCUS_WINDOW"
	CommandApplyWindowRule  CommandType = "APPLY_WINDOW_RULE"
	CommandGetScreens       CommandType = "GET_SCREENS"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type MonitorIDPayload struct {
	MonitorID string `json:"monitor_id"`
}

type LayoutPayload struct {
	Name string `json:"name"`
}

type CreateLayoutPayload struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type UpsertRulePayload struct {
	Layout string `json:"layout"`
	layout.RuleInput
}

type DeleteRulePayload struct {
	Layout string `json:"layout"`
	RuleID string `json:"rule_id"`
}

type WindowPayload struct {
	Handle platform.WindowID `json:"hwnd"`
}

// DetectData is returned by DETECT_MONITORS.
type DetectData struct {
	MonitorIDs []string              `json:"monitor_ids"`
	Monitors   []monitor.RuntimeInfo `json:"monitors"`
}

type DeletedData struct {
	Deleted bool `json:"deleted"`
}

// RuleDeletedData reports whether the active layout's rules were updated
// in place by the deletion.
type RuleDeletedData struct {
	RuleID string `json:"rule_id"`
	Active bool   `json:"active"`
}

type DeactivatedData struct {
	Layout string `json:"layout"`
}

// CheckData is returned by CHECK_LAYOUT. Valid is false only when the
// active layout was revoked by the check.
type CheckData struct {
	Valid        bool   `json:"valid"`
	ActiveLayout string `json:"active_layout,omitempty"`
}

type ActiveLayoutData struct {
	Active bool               `json:"active"`
	Layout *layout.ActiveInfo `json:"layout,omitempty"`
}

type ScreensData struct {
	Screens []layout.ScreenConfig `json:"screens"`
	Summary string                `json:"summary"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
