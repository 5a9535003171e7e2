package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/screenward/internal/layout"
	"github.com/1broseidon/screenward/internal/window"
)

func (s *Server) handleStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ struct{}) (*mcpsdk.CallToolResult, StatusOutput, error) {
	st, err := s.daemon.GetStatus()
	if err != nil {
		return nil, StatusOutput{}, err
	}
	out := StatusOutput{
		Status:       string(st.Status),
		RulesApplied: st.RulesApplied,
		Errors:       st.Errors,
		ErrorMessage: st.ErrorMessage,
		Monitors:     st.Monitors,
		ActiveLayout: st.ActiveLayout,
	}
	if st.LastRun != nil {
		out.LastRun = st.LastRun.Format(time.RFC3339)
	}
	return nil, out, nil
}

func (s *Server) handleApplyRules(_ context.Context, _ *mcpsdk.CallToolRequest, _ struct{}) (*mcpsdk.CallToolResult, window.ApplySummary, error) {
	summary, err := s.daemon.ApplyRules()
	if err != nil {
		return nil, window.ApplySummary{}, err
	}
	s.log.Info("rules applied via MCP", "applied", summary.Applied, "failed", summary.Failed)
	summary.Details = orEmpty(summary.Details)
	return nil, *summary, nil
}

func (s *Server) handleListMonitors(_ context.Context, _ *mcpsdk.CallToolRequest, _ struct{}) (*mcpsdk.CallToolResult, MonitorsOutput, error) {
	mons, err := s.daemon.ListMonitors()
	if err != nil {
		return nil, MonitorsOutput{}, err
	}
	out := MonitorsOutput{Monitors: make([]MonitorInfo, 0, len(mons))}
	for _, m := range mons {
		out.Monitors = append(out.Monitors, monitorInfo(m))
	}
	return nil, out, nil
}

func (s *Server) handleListLayouts(_ context.Context, _ *mcpsdk.CallToolRequest, _ struct{}) (*mcpsdk.CallToolResult, LayoutsOutput, error) {
	infos, err := s.daemon.ListLayouts()
	if err != nil {
		return nil, LayoutsOutput{}, err
	}
	return nil, LayoutsOutput{Layouts: orEmpty(infos)}, nil
}

func (s *Server) handlePreviewLayout(_ context.Context, _ *mcpsdk.CallToolRequest, args LayoutNameInput) (*mcpsdk.CallToolResult, layout.Preview, error) {
	name, err := requireName(args.Name)
	if err != nil {
		return nil, layout.Preview{}, err
	}
	p, err := s.daemon.PreviewLayout(name)
	if err != nil {
		return nil, layout.Preview{}, err
	}
	p.CurrentScreenConfig = orEmpty(p.CurrentScreenConfig)
	p.ScreenRequirements.Screens = orEmpty(p.ScreenRequirements.Screens)
	return nil, *p, nil
}

func (s *Server) handleActivateLayout(_ context.Context, _ *mcpsdk.CallToolRequest, args LayoutNameInput) (*mcpsdk.CallToolResult, layout.Activation, error) {
	name, err := requireName(args.Name)
	if err != nil {
		return nil, layout.Activation{}, err
	}
	act, err := s.daemon.ActivateLayout(name)
	if err != nil {
		return nil, layout.Activation{}, err
	}
	s.log.Info("layout activated via MCP", "layout", act.Layout)
	return nil, *act, nil
}

func (s *Server) handleDeactivateLayout(_ context.Context, _ *mcpsdk.CallToolRequest, _ struct{}) (*mcpsdk.CallToolResult, DeactivateOutput, error) {
	name, err := s.daemon.DeactivateLayout()
	if err != nil {
		return nil, DeactivateOutput{}, err
	}
	return nil, DeactivateOutput{Layout: name}, nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, _ struct{}) (*mcpsdk.CallToolResult, WindowsOutput, error) {
	cache, err := s.daemon.ListWindows()
	if err != nil {
		return nil, WindowsOutput{}, err
	}
	return nil, WindowsOutput{Windows: orEmpty(cache.Windows), AgeMS: cache.AgeMS}, nil
}

func (s *Server) handleAddRule(_ context.Context, _ *mcpsdk.CallToolRequest, args AddRuleInput) (*mcpsdk.CallToolResult, layout.RuleChange, error) {
	name, err := requireName(args.Layout)
	if err != nil {
		return nil, layout.RuleChange{}, err
	}
	if strings.TrimSpace(args.MatchValue) == "" {
		return nil, layout.RuleChange{}, fmt.Errorf("match_value is required")
	}
	if args.TargetDisplay < 1 {
		return nil, layout.RuleChange{}, fmt.Errorf("target_display must be 1 or greater")
	}
	change, err := s.daemon.UpsertRule(name, layout.RuleInput{
		MatchType:     layout.MatchType(strings.ToLower(strings.TrimSpace(args.MatchType))),
		MatchValue:    args.MatchValue,
		TargetDisplay: args.TargetDisplay,
		Maximize:      args.Maximize,
		Fullscreen:    args.Fullscreen,
	})
	if err != nil {
		return nil, layout.RuleChange{}, err
	}
	return nil, *change, nil
}

func (s *Server) handleDeleteRule(_ context.Context, _ *mcpsdk.CallToolRequest, args DeleteRuleInput) (*mcpsdk.CallToolResult, DeleteRuleOutput, error) {
	name, err := requireName(args.Layout)
	if err != nil {
		return nil, DeleteRuleOutput{}, err
	}
	if args.RuleID == "" {
		return nil, DeleteRuleOutput{}, fmt.Errorf("rule_id is required")
	}
	active, err := s.daemon.DeleteRule(name, args.RuleID)
	if err != nil {
		return nil, DeleteRuleOutput{}, err
	}
	return nil, DeleteRuleOutput{RuleID: args.RuleID, Active: active}, nil
}

func (s *Server) handleScreenConfig(_ context.Context, _ *mcpsdk.CallToolRequest, _ struct{}) (*mcpsdk.CallToolResult, ScreenConfigOutput, error) {
	data, err := s.daemon.Screens()
	if err != nil {
		return nil, ScreenConfigOutput{}, err
	}
	return nil, ScreenConfigOutput{Screens: orEmpty(data.Screens), Summary: data.Summary}, nil
}

func requireName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("layout name is required")
	}
	return name, nil
}
