package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"stockade/internal/app/admin"
)

const defaultStatusEvents = 10

func (s *Server) registerFacilityTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_facilities",
			mcp.WithDescription("List facilities with their placement points, bounds and prisoner counts"),
		),
		s.handleListFacilities,
	)
}

func (s *Server) registerPrisonerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_prisoners",
			mcp.WithDescription("List active confinement sessions"),
		),
		s.handleListPrisoners,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"imprison",
			mcp.WithDescription("Confine a user to a facility; an existing sentence is replaced"),
			mcp.WithString("user_id", mcp.Required(), mcp.Description("User UUID")),
			mcp.WithString("owner", mcp.Description("Facility owner, default the root facility")),
			mcp.WithString("facility", mcp.Description("Facility name, default the root facility")),
			mcp.WithNumber("duration_seconds", mcp.Required(), mcp.Description("Sentence length in seconds")),
		),
		s.handleImprison,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"release",
			mcp.WithDescription("Release a prisoner now"),
			mcp.WithString("user_id", mcp.Required(), mcp.Description("User UUID")),
		),
		s.handleRelease,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"prisoner_status",
			mcp.WithDescription("Current sentence of a user and recent journal entries when available"),
			mcp.WithString("user_id", mcp.Required(), mcp.Description("User UUID")),
			mcp.WithNumber("events", mcp.Description("Journal entries to include, default 10")),
		),
		s.handlePrisonerStatus,
	)
}

func (s *Server) handleListFacilities(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.admin.Facilities(ctx)
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(resp), nil
}

func (s *Server) handleListPrisoners(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.admin.Prisoners(ctx)
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(resp), nil
}

func (s *Server) handleImprison(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	seconds, err := request.RequireFloat("duration_seconds")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	if seconds > float64(admin.MaxDurationSeconds) {
		return toolError("invalid_request", fmt.Sprintf("duration_seconds must not exceed %d", admin.MaxDurationSeconds)), nil
	}
	resp, svcErr := s.admin.Imprison(ctx, admin.ImprisonRequest{
		UserID:          userID,
		Owner:           request.GetString("owner", ""),
		Facility:        request.GetString("facility", ""),
		DurationSeconds: int64(seconds),
	})
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(resp), nil
}

func (s *Server) handleRelease(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	if err := s.admin.Release(ctx, userID); err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(map[string]any{"user_id": userID, "released": true}), nil
}

// handlePrisonerStatus reports imprisoned=false rather than an error for users
// without a session.
func (s *Server) handlePrisonerStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	out := map[string]any{"user_id": userID, "imprisoned": false}
	item, svcErr := s.admin.Prisoner(ctx, userID)
	switch admin.ErrorCode(svcErr) {
	case "":
		out["imprisoned"] = true
		out["session"] = item
	case "prisoner_not_found":
	default:
		return mapDomainError(svcErr), nil
	}
	if n := request.GetInt("events", defaultStatusEvents); n > 0 {
		if events, evErr := s.admin.Events(ctx, userID, n); evErr == nil {
			out["events"] = events.Items
		}
	}
	return toolResult(out), nil
}
