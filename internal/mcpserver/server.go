// Package mcpserver exposes the jail admin operations as MCP tools over
// streamable HTTP.
package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"stockade/internal/app/admin"
)

type Server struct {
	admin *admin.Service

	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

func New(svc *admin.Service) *Server {
	mcpSrv := server.NewMCPServer(
		"stockade",
		"0.1.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithResourceRecovery(),
	)
	s := &Server{
		admin:      svc,
		mcpServer:  mcpSrv,
		httpServer: server.NewStreamableHTTPServer(mcpSrv, server.WithStateLess(true), server.WithDisableStreaming(true)),
	}
	s.registerFacilityTools()
	s.registerPrisonerTools()
	s.registerResources()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer
}

func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"prisoner://{user_id}/status",
			"prisoner_status",
			mcp.WithTemplateDescription("Confinement status of a user"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			raw := string(request.Params.URI)
			if !strings.HasPrefix(raw, "prisoner://") || !strings.HasSuffix(raw, "/status") {
				return nil, nil
			}
			userID := strings.TrimSuffix(strings.TrimPrefix(raw, "prisoner://"), "/status")
			item, err := s.admin.Prisoner(ctx, userID)
			if err != nil {
				return nil, err
			}
			payload, err := json.Marshal(item)
			if err != nil {
				return nil, err
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      raw,
					MIMEType: "application/json",
					Text:     string(payload),
				},
			}, nil
		},
	)
}
