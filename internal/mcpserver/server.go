// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes VidUnpack project tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/vidunpack/internal/storage"
	"github.com/starford/vidunpack/internal/vidservice"
)

// maxArtifactBytes caps what read_artifact returns to MCP clients;
// derived media are files, not prompt material.
const maxArtifactBytes = 256 << 10

// Server wraps the MCP server with VidUnpack tools.
type Server struct {
	mcp *server.MCPServer
	svc *vidservice.Service
	fs  *storage.FS
}

// New creates a new MCP server with all VidUnpack tools registered.
func New(svc *vidservice.Service, fs *storage.FS) *Server {
	s := &Server{svc: svc, fs: fs}

	s.mcp = server.NewMCPServer(
		"VidUnpack",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List all projects with their ids, titles, and creation times."),
	), s.listProjects)

	s.mcp.AddTool(mcp.NewTool("project_overview",
		mcp.WithDescription("Return one project's artifacts and asset pool as JSON."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id")),
	), s.projectOverview)

	s.mcp.AddTool(mcp.NewTool("add_pool_item",
		mcp.WithDescription("Add a candidate asset to a project's pool. Items with the same "+
			"normalized URL collapse into one; re-adding updates the stored fields."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id")),
		mcp.WithString("kind", mcp.Required(), mcp.Description("Asset kind (link, video, image, ...)")),
		mcp.WithString("url", mcp.Description("Source URL")),
		mcp.WithString("title", mcp.Description("Human-readable title")),
	), s.addPoolItem)

	s.mcp.AddTool(mcp.NewTool("read_artifact",
		mcp.WithDescription("Read a text artifact's content (probe reports, session summaries, manifests)."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id")),
		mcp.WithString("artifact_id", mcp.Required(), mcp.Description("Artifact id")),
	), s.readArtifact)

	s.mcp.AddTool(mcp.NewTool("get_profile_prompt",
		mcp.WithDescription("Return the cross-project profile prompt: the user's common asset "+
			"kinds, source domains, and last export summary."),
	), s.getProfilePrompt)

	s.mcp.AddTool(mcp.NewTool("get_manifest_contract",
		mcp.WithDescription("Returns the export manifest format accepted by import_manifest. "+
			"Call this before constructing a manifest."),
	), s.getManifestContract)

	// Resource: manifest format contract.
	s.mcp.AddResource(
		mcp.NewResource("vidunpack://manifest-format", "Export Manifest Contract",
			mcp.WithResourceDescription("JSON manifest format produced by exports and accepted by import."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readManifestFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listProjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.svc.ListProjects(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(projects, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) projectOverview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	project, err := s.svc.GetProject(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	artifacts, err := s.svc.ListArtifacts(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pool, err := s.svc.ListPoolItems(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"project":    project,
		"artifacts":  artifacts,
		"pool_items": pool,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) addPoolItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	in := vidservice.PoolItemRequest{Kind: kind}
	if u, err := req.RequireString("url"); err == nil && u != "" {
		in.URL = &u
	}
	if title, err := req.RequireString("title"); err == nil && title != "" {
		in.Title = &title
	}

	item, err := s.svc.AddPoolItem(ctx, id, in)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("pool item %s (%s, dedup key %s)", item.ID, item.Kind, item.DedupKey)), nil
}

func (s *Server) readArtifact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	artifactID, err := req.RequireString("artifact_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rel, _, err := s.svc.ArtifactFile(ctx, projectID, artifactID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	size, err := s.fs.Size(rel)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if size > maxArtifactBytes {
		return mcp.NewToolResultError(fmt.Sprintf("artifact too large to inline (%d bytes); fetch %s over HTTP", size, rel)), nil
	}
	data, err := s.fs.Read(rel)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getProfilePrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := s.svc.Profile(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(info.Profile.Prompt) == "" {
		return mcp.NewToolResultText("no profile yet"), nil
	}
	return mcp.NewToolResultText(info.Profile.Prompt), nil
}

func (s *Server) getManifestContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ManifestFormatContract), nil
}

func (s *Server) readManifestFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "vidunpack://manifest-format",
			MIMEType: "text/markdown",
			Text:     ManifestFormatContract,
		},
	}, nil
}
