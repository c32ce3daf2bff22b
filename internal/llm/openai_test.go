package llm

import (
	"encoding/json"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestBuildChatMessages_ToolExchange(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Content: "analyze"},
		ToolUseMessage("", &ToolUse{
			ID:    "call_1",
			Name:  "list_languages",
			Input: json.RawMessage(`{"owner":"octo","repo":"hello"}`),
		}),
		ToolResultMessage("call_1", `{"Go":100}`, false),
	}

	out := buildChatMessages("system text", msgs)
	if len(out) != 4 {
		t.Fatalf("expected system+3 messages, got %d", len(out))
	}
	if out[0].Role != openai.ChatMessageRoleSystem || out[0].Content != "system text" {
		t.Errorf("system prompt not first: %+v", out[0])
	}

	asst := out[2]
	if asst.Role != openai.ChatMessageRoleAssistant || len(asst.ToolCalls) != 1 {
		t.Fatalf("tool call not on assistant turn: %+v", asst)
	}
	if asst.ToolCalls[0].ID != "call_1" || asst.ToolCalls[0].Function.Name != "list_languages" {
		t.Errorf("tool call mangled: %+v", asst.ToolCalls[0])
	}

	res := out[3]
	if res.Role != openai.ChatMessageRoleTool || res.ToolCallID != "call_1" {
		t.Errorf("tool result mangled: %+v", res)
	}
}

func TestBuildChatMessages_NoSystemPrompt(t *testing.T) {
	out := buildChatMessages("", []Message{{Role: RoleUser, Content: "hi"}})
	if len(out) != 1 {
		t.Fatalf("expected 1 message, got %d", len(out))
	}
}
