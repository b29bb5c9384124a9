// Package mcp implements a Model Context Protocol server over stdio.
// Requests arrive as newline-delimited JSON-RPC 2.0 on stdin; responses
// leave on stdout. Logs must go to stderr.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/vinayprograms/taskman/logging"
	"github.com/vinayprograms/taskman/tools"
)

// ProtocolVersion is the MCP protocol revision this server speaks.
const ProtocolVersion = "2024-11-05"

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// Server serves the tool registry over JSON-RPC 2.0.
type Server struct {
	stdin  io.Reader
	stdout io.Writer

	registry *tools.Registry
	log      *logging.Logger

	info        ServerInfo
	initialized bool
}

// ServerInfo identifies the server to clients.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Request is a JSON-RPC request or notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// InitializeResult is the result of the initialize handshake.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
}

// Capabilities advertises which MCP features the server supports.
type Capabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// ToolsCapability marks tool support.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ToolInfo is a tool entry in the tools/list result.
type ToolInfo struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	InputSchema map[string]interface{} `json:"inputSchema"`
	Annotations *tools.Annotations     `json:"annotations,omitempty"`
}

// ListToolsResult is the result of tools/list.
type ListToolsResult struct {
	Tools []ToolInfo `json:"tools"`
}

// CallToolParams are the params of tools/call.
type CallToolParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// Content is one content block in a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// CallToolResult is the result of tools/call. Tool-level failures travel
// as IsError results, not protocol errors, so clients can show them to
// the model.
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// NewServer creates a server bound to stdin/stdout.
func NewServer(info ServerInfo, registry *tools.Registry, log *logging.Logger) *Server {
	return &Server{
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		registry: registry,
		log:      log,
		info:     info,
	}
}

// SetStreams overrides the transport streams. Intended for tests.
func (s *Server) SetStreams(in io.Reader, out io.Writer) {
	s.stdin = in
	s.stdout = out
}

// Run reads requests until stdin closes or the context is canceled.
// A malformed line never terminates the loop.
func (s *Server) Run(ctx context.Context) error {
	if s.log != nil {
		s.log.ServerStart(s.info.Name, s.info.Version)
	}

	scanner := bufio.NewScanner(s.stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			if s.log != nil {
				s.log.ServerStop("context canceled")
			}
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.sendError(nil, codeParseError, "Parse error", nil)
			continue
		}
		s.handleRequest(ctx, &req)
	}

	if s.log != nil {
		s.log.ServerStop("stdin closed")
	}
	return scanner.Err()
}

func (s *Server) handleRequest(ctx context.Context, req *Request) {
	// Notifications carry no ID and never get a response.
	if req.ID == nil {
		s.handleNotification(req)
		return
	}

	switch req.Method {
	case "initialize":
		s.handleInitialize(req)
	case "ping":
		s.sendResult(req.ID, map[string]interface{}{})
	case "tools/list":
		s.handleListTools(req)
	case "tools/call":
		s.handleCallTool(ctx, req)
	default:
		s.sendError(req.ID, codeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), nil)
	}
}

func (s *Server) handleNotification(req *Request) {
	switch req.Method {
	case "notifications/initialized":
		s.initialized = true
		if s.log != nil {
			s.log.Debug("client_initialized")
		}
	default:
		if s.log != nil {
			s.log.Debug("notification_ignored", map[string]interface{}{
				"method": req.Method,
			})
		}
	}
}

func (s *Server) handleInitialize(req *Request) {
	var params struct {
		ProtocolVersion string `json:"protocolVersion"`
		ClientInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"clientInfo"`
	}
	if req.Params != nil {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.sendError(req.ID, codeInvalidParams, "Invalid params", nil)
			return
		}
	}

	if s.log != nil {
		s.log.Info("initialize", map[string]interface{}{
			"client":          params.ClientInfo.Name,
			"client_version":  params.ClientInfo.Version,
			"client_protocol": params.ProtocolVersion,
		})
	}

	s.sendResult(req.ID, InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    Capabilities{Tools: &ToolsCapability{}},
		ServerInfo:      s.info,
	})
}

func (s *Server) handleListTools(req *Request) {
	defs := s.registry.Definitions()
	infos := make([]ToolInfo, 0, len(defs))
	for _, def := range defs {
		annotations := def.Annotations
		infos = append(infos, ToolInfo{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.Parameters,
			Annotations: &annotations,
		})
	}
	s.sendResult(req.ID, ListToolsResult{Tools: infos})
}

func (s *Server) handleCallTool(ctx context.Context, req *Request) {
	var params CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.sendError(req.ID, codeInvalidParams, "Invalid params", nil)
		return
	}
	if params.Name == "" {
		s.sendError(req.ID, codeInvalidParams, "Missing tool name", nil)
		return
	}
	if !s.registry.Has(params.Name) {
		s.sendError(req.ID, codeInvalidParams, fmt.Sprintf("Unknown tool: %s", params.Name), nil)
		return
	}

	log := s.log
	if log != nil {
		log = log.WithTraceID(uuid.NewString())
		log.ToolCall(params.Name)
	}

	start := time.Now()
	result, err := s.registry.Call(ctx, params.Name, params.Arguments)
	if log != nil {
		log.ToolResult(params.Name, time.Since(start), err)
	}

	// Tool failures become error-flagged results. The server itself keeps
	// running no matter what the tool did.
	if err != nil {
		s.sendResult(req.ID, CallToolResult{
			Content: []Content{{Type: "text", Text: err.Error()}},
			IsError: true,
		})
		return
	}

	text, ok := result.(string)
	if !ok {
		data, merr := json.Marshal(result)
		if merr != nil {
			s.sendError(req.ID, codeInternalError, "Unencodable tool result", nil)
			return
		}
		text = string(data)
	}
	s.sendResult(req.ID, CallToolResult{
		Content: []Content{{Type: "text", Text: text}},
	})
}

func (s *Server) sendResult(id interface{}, result interface{}) {
	s.send(Response{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *Server) sendError(id interface{}, code int, message string, data interface{}) {
	s.send(Response{JSONRPC: "2.0", ID: id, Error: &Error{Code: code, Message: message, Data: data}})
}

func (s *Server) send(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		if s.log != nil {
			s.log.Error("response_encode_failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return
	}
	if _, err := fmt.Fprintf(s.stdout, "%s\n", data); err != nil && s.log != nil {
		s.log.Error("response_write_failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
