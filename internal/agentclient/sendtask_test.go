package agentclient

import "testing"

func TestNormalizeMessageNonDict(t *testing.T) {
	msg := normalizeMessage("not a dict")
	if msg.Role != "?" || msg.Info == nil || len(msg.Info) != 0 || msg.Parts != nil {
		t.Fatalf("normalizeMessage(non-dict) = %+v", msg)
	}
}

func TestNormalizeMessageRoleFallback(t *testing.T) {
	msg := normalizeMessage(map[string]interface{}{
		"info": map[string]interface{}{"role": "assistant"},
	})
	if msg.Role != "assistant" {
		t.Fatalf("role = %q, want assistant (fallback to info.role)", msg.Role)
	}

	msg = normalizeMessage(map[string]interface{}{})
	if msg.Role != "?" {
		t.Fatalf("role = %q, want '?' when nothing is present", msg.Role)
	}
}

func TestNormalizeMessageNonListParts(t *testing.T) {
	msg := normalizeMessage(map[string]interface{}{"role": "user", "parts": "oops a string"})
	if msg.Parts != nil {
		t.Fatalf("expected non-list parts to normalize to nil/empty, got %v", msg.Parts)
	}
}

func TestExtractAssistantMessageShapes(t *testing.T) {
	single := map[string]interface{}{"role": "assistant"}
	if msg := extractAssistantMessage(single); msg == nil || msg.Role != "assistant" {
		t.Fatalf("single-message shape failed: %+v", msg)
	}

	list := []interface{}{
		map[string]interface{}{"role": "user"},
		map[string]interface{}{"role": "assistant"},
		map[string]interface{}{"role": "user"},
	}
	if msg := extractAssistantMessage(list); msg == nil || msg.Role != "assistant" {
		t.Fatalf("expected the single assistant entry to be picked, got %+v", msg)
	}

	noAssistant := []interface{}{map[string]interface{}{"role": "user"}}
	if msg := extractAssistantMessage(noAssistant); msg != nil {
		t.Fatalf("expected nil when no assistant entry is present, got %+v", msg)
	}

	if msg := extractAssistantMessage(nil); msg != nil {
		t.Fatalf("expected nil for an empty/unparsable body, got %+v", msg)
	}
}

func TestFindLastAssistantPicksLast(t *testing.T) {
	messages := []*Message{
		{Role: "assistant"},
		{Role: "user"},
		{Role: "assistant"},
	}
	got := findLastAssistant(messages)
	if got != messages[2] {
		t.Fatalf("expected the last assistant message to be picked")
	}
}
