package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vinayprograms/taskman/search"
	"github.com/vinayprograms/taskman/store"
	"github.com/vinayprograms/taskman/tools"
)

// runSession feeds newline-delimited requests through a server and returns
// the decoded responses in order.
func runSession(t *testing.T, input string) []Response {
	t.Helper()

	st := store.Open(filepath.Join(t.TempDir(), "tasks.json"), nil)
	ix, err := search.OpenMemOnly()
	if err != nil {
		t.Fatalf("OpenMemOnly failed: %v", err)
	}
	t.Cleanup(func() { ix.Close() })

	registry, err := tools.NewRegistry(st, ix, nil)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	srv := NewServer(ServerInfo{Name: "taskman", Version: "test"}, registry, nil)
	var out bytes.Buffer
	srv.SetStreams(strings.NewReader(input), &out)

	if err := srv.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var responses []Response
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp Response
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("bad response line %q: %v", line, err)
		}
		responses = append(responses, resp)
	}
	return responses
}

// toolResult re-decodes a generic response result as a CallToolResult.
func toolResult(t *testing.T, resp Response) CallToolResult {
	t.Helper()
	data, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatal(err)
	}
	var result CallToolResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("result is not a tool result: %v", err)
	}
	return result
}

func TestServer_Initialize(t *testing.T) {
	responses := runSession(t,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"test","version":"0"}}}`+"\n")

	if len(responses) != 1 {
		t.Fatalf("got %d responses", len(responses))
	}
	resp := responses[0]
	if resp.Error != nil {
		t.Fatalf("initialize failed: %+v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result InitializeResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatal(err)
	}
	if result.ProtocolVersion != ProtocolVersion {
		t.Errorf("protocol version = %q", result.ProtocolVersion)
	}
	if result.ServerInfo.Name != "taskman" {
		t.Errorf("server name = %q", result.ServerInfo.Name)
	}
	if result.Capabilities.Tools == nil {
		t.Error("tools capability not advertised")
	}
}

func TestServer_InitializedNotificationGetsNoResponse(t *testing.T) {
	responses := runSession(t,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`+"\n"+
			`{"jsonrpc":"2.0","id":2,"method":"ping"}`+"\n")

	if len(responses) != 1 {
		t.Fatalf("notifications must not be answered, got %d responses", len(responses))
	}
	if responses[0].Error != nil {
		t.Errorf("ping failed: %+v", responses[0].Error)
	}
}

func TestServer_ListTools(t *testing.T) {
	responses := runSession(t,
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`+"\n")

	data, _ := json.Marshal(responses[0].Result)
	var result ListToolsResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Tools) != 6 {
		t.Fatalf("got %d tools, want 6", len(result.Tools))
	}

	byName := make(map[string]ToolInfo)
	for _, ti := range result.Tools {
		byName[ti.Name] = ti
		if ti.InputSchema == nil {
			t.Errorf("%s has no input schema", ti.Name)
		}
	}
	if del, ok := byName["delete_task"]; !ok {
		t.Error("delete_task missing")
	} else if del.Annotations == nil || !del.Annotations.DestructiveHint {
		t.Error("delete_task should carry a destructive hint")
	}
	if list, ok := byName["list_tasks"]; !ok {
		t.Error("list_tasks missing")
	} else if list.Annotations == nil || !list.Annotations.ReadOnlyHint {
		t.Error("list_tasks should carry a read-only hint")
	}
}

func TestServer_CallTool(t *testing.T) {
	responses := runSession(t,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"create_task","arguments":{"title":"Buy milk","priority":"high"}}}`+"\n"+
			`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"list_tasks","arguments":{}}}`+"\n")

	if len(responses) != 2 {
		t.Fatalf("got %d responses", len(responses))
	}

	created := toolResult(t, responses[0])
	if created.IsError {
		t.Fatalf("create_task errored: %+v", created)
	}
	if len(created.Content) != 1 || created.Content[0].Text != "✓ Created task 1: Buy milk (high)" {
		t.Errorf("unexpected content: %+v", created.Content)
	}

	listed := toolResult(t, responses[1])
	if !strings.Contains(listed.Content[0].Text, "[1] Buy milk (high)") {
		t.Errorf("listing missing task:\n%s", listed.Content[0].Text)
	}
}

func TestServer_ToolErrorIsResultNotProtocolError(t *testing.T) {
	responses := runSession(t,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"delete_task","arguments":{"task_id":42}}}`+"\n"+
			`{"jsonrpc":"2.0","id":2,"method":"ping"}`+"\n")

	if len(responses) != 2 {
		t.Fatalf("server must survive a tool failure, got %d responses", len(responses))
	}

	resp := responses[0]
	if resp.Error != nil {
		t.Fatalf("tool failure must not be a protocol error: %+v", resp.Error)
	}
	result := toolResult(t, resp)
	if !result.IsError {
		t.Fatal("expected isError result")
	}
	text := result.Content[0].Text
	if !strings.Contains(text, "task 42 not found") || !strings.Contains(text, "list_tasks") {
		t.Errorf("unhelpful error text: %q", text)
	}
}

func TestServer_UnknownToolIsInvalidParams(t *testing.T) {
	responses := runSession(t,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"no_such_tool"}}`+"\n")

	if responses[0].Error == nil || responses[0].Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid params error, got %+v", responses[0])
	}
}

func TestServer_UnknownMethod(t *testing.T) {
	responses := runSession(t,
		`{"jsonrpc":"2.0","id":1,"method":"resources/list"}`+"\n")

	if responses[0].Error == nil || responses[0].Error.Code != codeMethodNotFound {
		t.Fatalf("expected method not found, got %+v", responses[0])
	}
}

func TestServer_MalformedLineDoesNotKillLoop(t *testing.T) {
	responses := runSession(t,
		"this is not json\n"+
			`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n")

	if len(responses) != 2 {
		t.Fatalf("got %d responses, want parse error plus ping", len(responses))
	}
	if responses[0].Error == nil || responses[0].Error.Code != codeParseError {
		t.Errorf("expected parse error first, got %+v", responses[0])
	}
	if responses[1].Error != nil {
		t.Errorf("ping after bad line failed: %+v", responses[1])
	}
}

func TestServer_ValidationFailureIsErrorResult(t *testing.T) {
	responses := runSession(t,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"create_task","arguments":{"title":123}}}`+"\n")

	result := toolResult(t, responses[0])
	if !result.IsError {
		t.Fatal("schema violation should surface as an isError result")
	}
}
