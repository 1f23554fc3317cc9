// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes GTD space tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/gtdspace/internal/models"
	"github.com/starford/gtdspace/internal/spaceservice"
)

const markerFormatURI = "gtdspace://marker-format"

// Server wraps the MCP server with GTD space tools.
type Server struct {
	mcp *server.MCPServer
	svc *spaceservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *spaceservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"GTD Space",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through document titles, bodies and field values."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read a document with its extracted metadata and the documents that reference it."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. Goals/Marathon.md)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("extract_metadata",
		mcp.WithDescription("Extract structured metadata from a stored document or from raw Markdown."),
		mcp.WithString("path", mcp.Description("Relative path to a stored document")),
		mcp.WithString("content", mcp.Description("Raw Markdown, used when path is empty")),
	), s.extractMetadata)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List indexed documents, optionally filtered by entity kind and status."),
		mcp.WithString("kind", mcp.Description("Entity kind: project, action, habit, area, goal, vision, ...")),
		mcp.WithString("status", mcp.Description("Canonical status value (e.g. in-progress)")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("find_references",
		mcp.WithDescription("Find all documents whose reference fields point at the specified document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the referenced document")),
	), s.findReferences)

	s.mcp.AddTool(mcp.NewTool("build_document",
		mcp.WithDescription("Build a canonical entity document from fields. "+
			"Read the format via get_marker_contract or the "+markerFormatURI+" resource first."),
		mcp.WithString("entity", mcp.Required(), mcp.Description("habit, area, goal, vision, project, action or horizon")),
		mcp.WithString("fields", mcp.Description(`Entity fields as JSON, e.g. {"title":"Run","frequency":"weekly"}`)),
		mcp.WithString("path", mcp.Description("Existing document to rebuild, or the target path of a new one")),
		mcp.WithBoolean("write", mcp.Description("Write the result to the space")),
	), s.buildDocument)

	s.mcp.AddTool(mcp.NewTool("get_marker_contract",
		mcp.WithDescription("Returns the GTD space marker format. "+
			"Call this before creating or updating documents to ensure correct structure."),
	), s.getMarkerContract)

	s.mcp.AddResource(
		mcp.NewResource(markerFormatURI, "Marker Format Contract",
			mcp.WithResourceDescription("Markdown marker format that all GTD space documents follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readMarkerFormatResource,
	)

	return s
}

// Serve runs the protocol over in and out until ctx is cancelled or in is
// exhausted.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	err := server.NewStdioServer(s.mcp).Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ServeStdio serves on stdin/stdout.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.GetDocument(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read %s: %v", path, err)), nil
	}
	return jsonResult(doc)
}

func (s *Server) extractMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := req.GetString("content", "")
	if path := req.GetString("path", ""); path != "" {
		doc, err := s.svc.GetDocument(ctx, path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("read %s: %v", path, err)), nil
		}
		return jsonResult(doc.Metadata)
	}
	if content == "" {
		return mcp.NewToolResultError("path or content is required"), nil
	}
	return jsonResult(s.svc.ExtractMetadata(content))
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.svc.ListDocuments(ctx, spaceservice.ListQuery{
		Kind:   models.Kind(req.GetString("kind", "")),
		Status: req.GetString("status", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"documents": items, "total": total})
}

func (s *Server) findReferences(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	refs, err := s.svc.References(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(refs) == 0 {
		return mcp.NewToolResultText("no references found"), nil
	}
	return jsonResult(refs)
}

func (s *Server) buildDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entity, err := req.RequireString("entity")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fields := req.GetString("fields", "{}")
	if !json.Valid([]byte(fields)) {
		return mcp.NewToolResultError("fields must be a JSON object"), nil
	}
	res, err := s.svc.BuildDocument(ctx, entity, spaceservice.BuildRequest{
		Fields: json.RawMessage(fields),
		Path:   req.GetString("path", ""),
		Write:  req.GetBool("write", false),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res.Document == nil {
		return mcp.NewToolResultText(res.Content), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("written: %s\n\n%s", res.Path, res.Content)), nil
}

func (s *Server) getMarkerContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(MarkerFormatContract), nil
}

func (s *Server) readMarkerFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      markerFormatURI,
			MIMEType: "text/markdown",
			Text:     MarkerFormatContract,
		},
	}, nil
}
