package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/1broseidon/screenward/internal/layout"
	"github.com/1broseidon/screenward/internal/logging"
	"github.com/1broseidon/screenward/internal/monitor"
	"github.com/1broseidon/screenward/internal/service"
)

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	svc          *service.Service
	log          *logging.Logger
	startTime    time.Time
	shuttingDown bool
	shutdownMu   sync.Mutex
	wg           sync.WaitGroup
}

// NewServer creates a new IPC server bound to socketPath once started.
func NewServer(socketPath string, svc *service.Service, log *logging.Logger) (*Server, error) {
	if socketPath == "" {
		return nil, errors.New("socket path is required")
	}
	if svc == nil {
		return nil, errors.New("service is required")
	}
	if log == nil {
		log = logging.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(socketPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %w", err)
	}

	// Remove a stale socket left by a previous run.
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		svc:        svc,
		log:        log.With("component", "ipc"),
		startTime:  time.Now(),
	}, nil
}

// Path returns the socket path.
func (s *Server) Path() string { return s.socketPath }

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.log.Info("IPC server listening", "socket", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			stopping := s.shuttingDown
			s.shutdownMu.Unlock()
			if stopping || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("IPC accept error", "error", err.Error())
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection serves one request line and writes one response line.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.log.Warn("IPC read error", "error", err.Error())
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		s.log.Error("failed to marshal response", err, "command", string(req.Command))
		return
	}
	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.log.Warn("failed to send response", "error", err.Error())
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	s.log.Debug("IPC request", "command", string(req.Command))

	layouts := s.svc.Layouts()
	monitors := s.svc.Monitors()

	switch req.Command {
	case CommandGetStatus:
		return ok(s.svc.Status())

	case CommandApplyRules:
		summary, err := s.svc.ApplyRulesNow()
		if err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to apply rules: %v", err))
		}
		return ok(summary)

	case CommandDetectMonitors:
		ids, err := monitors.Detect()
		if err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to detect monitors: %v", err))
		}
		return ok(DetectData{MonitorIDs: nonNil(ids), Monitors: nonNil(monitors.RuntimeInfo())})

	case CommandListMonitors:
		return ok(nonNil(monitors.MonitorsWithStatus()))

	case CommandDeleteMonitor:
		p, bad := decode[MonitorIDPayload](req.Payload)
		if bad != nil {
			return bad
		}
		if p.MonitorID == "" {
			return NewErrorResponse("monitor_id is required")
		}
		deleted, derr := monitors.Store().Delete(p.MonitorID)
		if derr != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to delete monitor: %v", derr))
		}
		return ok(DeletedData{Deleted: deleted})

	case CommandGetSettings:
		return ok(monitors.Store().Settings())

	case CommandUpdateSettings:
		p, bad := decode[monitor.SettingsPatch](req.Payload)
		if bad != nil {
			return bad
		}
		settings, uerr := monitors.Store().UpdateSettings(p)
		if uerr != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to update settings: %v", uerr))
		}
		return ok(settings)

	case CommandListLayouts:
		infos, err := layouts.List()
		if err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to list layouts: %v", err))
		}
		return ok(nonNil(infos))

	case CommandPreviewLayout:
		p, bad := decode[LayoutPayload](req.Payload)
		if bad != nil {
			return bad
		}
		preview, perr := layouts.Preview(p.Name)
		if perr != nil {
			return NewErrorResponse(perr.Error())
		}
		return ok(preview)

	case CommandActivateLayout:
		p, bad := decode[LayoutPayload](req.Payload)
		if bad != nil {
			return bad
		}
		act, aerr := layouts.Activate(p.Name)
		if aerr != nil {
			return NewErrorResponse(aerr.Error())
		}
		s.log.Info("layout activated over IPC", "layout", act.Layout)
		return ok(act)

	case CommandDeactivateLayout:
		name, err := layouts.Deactivate()
		if err != nil {
			return NewErrorResponse(err.Error())
		}
		return ok(DeactivatedData{Layout: name})

	case CommandCheckLayout:
		valid := layouts.CheckValidity()
		data := CheckData{Valid: valid}
		if info, active := layouts.Active(); active {
			data.ActiveLayout = info.Name
		}
		return ok(data)

	case CommandGetActiveLayout:
		info, active := layouts.Active()
		data := ActiveLayoutData{Active: active}
		if active {
			data.Layout = &info
		}
		return ok(data)

	case CommandGetActiveRules:
		return ok(nonNil(layouts.ActiveRules()))

	case CommandCreateLayout:
		p, bad := decode[CreateLayoutPayload](req.Payload)
		if bad != nil {
			return bad
		}
		created, cerr := layouts.CreateFromCurrent(p.Name, p.Description)
		if cerr != nil {
			return NewErrorResponse(cerr.Error())
		}
		return ok(created)

	case CommandUpsertRule:
		p, bad := decode[UpsertRulePayload](req.Payload)
		if bad != nil {
			return bad
		}
		change, uerr := s.svc.UpsertRule(p.Layout, p.RuleInput)
		if uerr != nil {
			return NewErrorResponse(uerr.Error())
		}
		return ok(change)

	case CommandDeleteRule:
		p, bad := decode[DeleteRulePayload](req.Payload)
		if bad != nil {
			return bad
		}
		active, derr := layouts.DeleteRule(p.Layout, p.RuleID)
		if derr != nil {
			return NewErrorResponse(derr.Error())
		}
		return ok(RuleDeletedData{RuleID: p.RuleID, Active: active})

	case CommandDeleteLayout:
		p, bad := decode[LayoutPayload](req.Payload)
		if bad != nil {
			return bad
		}
		if derr := layouts.Delete(p.Name); derr != nil {
			return NewErrorResponse(derr.Error())
		}
		return ok(nil)

	case CommandListWindows:
		cache, err := s.svc.CachedWindows()
		if err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to list windows: %v", err))
		}
		return ok(cache)

	case CommandFocusWindow:
		p, bad := decode[WindowPayload](req.Payload)
		if bad != nil {
			return bad
		}
		if ferr := s.svc.Windows().Focus(p.Handle); ferr != nil {
			return NewErrorResponse(ferr.Error())
		}
		return ok(nil)

	case CommandApplyWindowRule:
		p, bad := decode[service.WindowRule](req.Payload)
		if bad != nil {
			return bad
		}
		result, aerr := s.svc.ApplyRuleToWindow(p)
		if aerr != nil {
			return NewErrorResponse(aerr.Error())
		}
		return ok(result)

	case CommandGetScreens:
		screens := layouts.ScreenConfiguration()
		return ok(ScreensData{
			Screens: nonNil(screens),
			Summary: layout.ScreenSummary(screens),
		})

	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

// decode unmarshals a request payload, returning an error response when it
// is malformed. A missing payload decodes to the zero value.
func decode[T any](payload json.RawMessage) (T, *Response) {
	var v T
	if len(payload) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, NewErrorResponse(fmt.Sprintf("Invalid payload: %v", err))
	}
	return v, nil
}

func ok(data any) *Response {
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop shuts the listener down and removes the socket file.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	os.Remove(s.socketPath)
}
