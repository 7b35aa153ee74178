// Package mcp exposes property search to AI agents over the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/go-property-search/internal/domain"
	"github.com/arturoeanton/go-property-search/internal/port"
	"github.com/arturoeanton/go-property-search/internal/service"
)

const protocolVersion = "2024-11-05"

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603
)

// AuditWriter records tool calls.
type AuditWriter interface {
	WriteAudit(entry domain.AuditLog) error
}

// Server implements a JSON-RPC 2.0 MCP endpoint.
type Server struct {
	search      *service.SearchService
	recommender *service.RecommendService
	audit       AuditWriter
	port        string
	app         *fiber.App
}

// NewServer creates a new MCP server. audit may be nil.
func NewServer(search *service.SearchService, recommender *service.RecommendService, audit AuditWriter, port string) *Server {
	s := &Server{search: search, recommender: recommender, audit: audit, port: port}
	s.app = fiber.New(fiber.Config{AppName: "property-search-mcp"})
	s.app.Post("/mcp", s.handleRPC)
	s.app.Get("/mcp/sse", s.handleSSE)
	return s
}

// Tool represents an MCP tool definition.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var errInvalidParams = errors.New("invalid params")

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			slog.Warn("MCP shutdown", "error", err)
		}
	}()
	slog.Info("MCP server starting", "port", s.port)
	return s.app.Listen(":"+s.port, fiber.ListenConfig{DisableStartupMessage: true})
}

func (s *Server) handleRPC(c fiber.Ctx) error {
	var req Request
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.JSON(Response{JSONRPC: "2.0", Error: &RPCError{Code: codeParseError, Message: "parse error"}})
	}

	var (
		result any
		err    error
	)
	switch req.Method {
	case "initialize":
		result = fiber.Map{
			"protocolVersion": protocolVersion,
			"serverInfo":      fiber.Map{"name": "property-search", "version": "1.0.0"},
			"capabilities":    fiber.Map{"tools": fiber.Map{"listChanged": false}},
		}
	case "tools/list":
		result = fiber.Map{"tools": tools}
	case "tools/call":
		result, err = s.callTool(c, req.Params)
	default:
		return c.JSON(Response{JSONRPC: "2.0", ID: req.ID, Error: &RPCError{Code: codeMethodNotFound, Message: "method not found"}})
	}

	if err != nil {
		code := codeInternal
		if errors.Is(err, errInvalidParams) || errors.Is(err, port.ErrInvalidQuery) {
			code = codeInvalidParams
		}
		return c.JSON(Response{JSONRPC: "2.0", ID: req.ID, Error: &RPCError{Code: code, Message: err.Error()}})
	}
	return c.JSON(Response{JSONRPC: "2.0", ID: req.ID, Result: result})
}

func (s *Server) handleSSE(c fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	return c.SendString("event: endpoint\ndata: /mcp\n\n")
}

var tools = []Tool{
	{
		Name:        "search_properties",
		Description: "Search property listings with a natural-language query and return ranked matches",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query":  {"type": "string", "description": "Buyer request, e.g. '2 bed apartment in Dubai Marina under 2M'"},
				"limit":  {"type": "integer", "minimum": 1, "maximum": 100},
				"offset": {"type": "integer", "minimum": 0}
			},
			"required": ["query"]
		}`),
	},
	{
		Name:        "get_featured",
		Description: "List featured properties",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"limit": {"type": "integer", "minimum": 1}
			}
		}`),
	},
	{
		Name:        "parse_intent",
		Description: "Extract budget, bedrooms, type, location and status from a query",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string"}
			},
			"required": ["query"]
		}`),
	},
}

func (s *Server) callTool(c fiber.Ctx, params json.RawMessage) (any, error) {
	var req struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	var args struct {
		Query  string `json:"query"`
		Limit  int    `json:"limit"`
		Offset int    `json:"offset"`
	}
	if len(req.Arguments) > 0 {
		if err := json.Unmarshal(req.Arguments, &args); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidParams, err)
		}
	}
	s.recordCall(c, req.Name)

	var payload any
	switch req.Name {
	case "search_properties":
		result, err := s.search.Search(c.Context(), service.SearchRequest{Message: args.Query, Limit: args.Limit, Offset: args.Offset})
		if err != nil {
			return nil, err
		}
		payload = result
	case "get_featured":
		limit := args.Limit
		if limit <= 0 {
			limit = 10
		}
		payload = s.recommender.Featured(limit)
	case "parse_intent":
		payload = s.search.Parse(args.Query)
	default:
		return nil, fmt.Errorf("%w: unknown tool %s", errInvalidParams, req.Name)
	}

	text, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", req.Name, err)
	}
	return fiber.Map{
		"content": []fiber.Map{{"type": "text", "text": string(text)}},
	}, nil
}

func (s *Server) recordCall(c fiber.Ctx, tool string) {
	if s.audit == nil {
		return
	}
	entry := domain.AuditLog{
		UserID:     "mcp",
		Action:     domain.AuditActionMCPCall,
		Resource:   "tool",
		ResourceID: tool,
		IP:         c.IP(),
		UserAgent:  c.Get("User-Agent"),
		CreatedAt:  time.Now().UTC(),
	}
	go func() {
		if err := s.audit.WriteAudit(entry); err != nil {
			slog.Error("failed to write audit log", "action", entry.Action, "error", err)
		}
	}()
}
