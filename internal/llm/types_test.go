package llm

import (
	"encoding/json"
	"testing"
)

func TestToolResultMessage(t *testing.T) {
	msg := ToolResultMessage("tool_123", "output text", false)
	if msg.Role != RoleUser {
		t.Errorf("expected role %q, got %q", RoleUser, msg.Role)
	}
	if msg.ToolResult == nil {
		t.Fatal("expected ToolResult, got nil")
	}
	if msg.ToolResult.ToolUseID != "tool_123" {
		t.Errorf("expected ToolUseID %q, got %q", "tool_123", msg.ToolResult.ToolUseID)
	}
	if msg.ToolResult.Content != "output text" {
		t.Errorf("expected content %q, got %q", "output text", msg.ToolResult.Content)
	}
	if msg.ToolResult.IsError {
		t.Error("expected IsError=false")
	}
}

func TestToolResultMessage_Error(t *testing.T) {
	msg := ToolResultMessage("t1", "fail", true)
	if !msg.ToolResult.IsError {
		t.Error("expected IsError=true")
	}
}

func TestToolUseMessage(t *testing.T) {
	use := &ToolUse{ID: "t9", Name: "get_repository", Input: json.RawMessage(`{"owner":"a"}`)}
	msg := ToolUseMessage("looking it up", use)
	if msg.Role != RoleAssistant {
		t.Errorf("expected role %q, got %q", RoleAssistant, msg.Role)
	}
	if msg.ToolUse != use {
		t.Error("expected ToolUse to be carried through")
	}
	if msg.Content != "looking it up" {
		t.Errorf("unexpected content %q", msg.Content)
	}
}

func TestToolSchema_JSONMarshal(t *testing.T) {
	schema := ToolSchema{
		Name:        "search_code",
		Description: "Search code in a repository",
		InputSchema: json.RawMessage(`{"type":"object","properties":{}}`),
	}
	b, err := json.Marshal(schema)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if m["name"] != "search_code" {
		t.Errorf("unexpected name: %v", m["name"])
	}
}
