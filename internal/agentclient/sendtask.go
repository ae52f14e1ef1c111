package agentclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Message is a normalized session message — the shape trajectory
// normalization and assistant-reply discipline both operate on.
type Message struct {
	Role string                   `json:"role"`
	Info map[string]interface{}   `json:"info"`
	Parts []map[string]interface{} `json:"parts"`
}

// ModelRef pairs a provider id and model id, sent as part of send_task when
// a model override is configured.
type ModelRef struct {
	ProviderID string `json:"providerID"`
	ModelID    string `json:"modelID"`
}

// SendTask posts a task to sessionID and returns the assistant's reply,
// falling back to polling mode when the response doesn't already carry
// one. directory scopes the request to the session's working tree.
func (c *Client) SendTask(ctx context.Context, sessionID, prompt, directory, agent string, model *ModelRef) (*Message, error) {
	body := map[string]interface{}{
		"parts": []map[string]interface{}{
			{"type": "text", "text": prompt},
		},
		"directory": directory,
		"agent":     agent,
	}
	if model != nil {
		body["model"] = model
	}

	heartbeatDone := c.startHeartbeat("send_task")
	resp, err := c.postJSON(ctx, fmt.Sprintf("/session/%s/message", sessionID), body, sendTaskTimeout)
	heartbeatDone()
	if err != nil {
		return nil, fmt.Errorf("send_task: %w", err)
	}
	defer resp.Body.Close()

	var decoded interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		decoded = nil // empty or unparsable body falls through to polling
	}

	if msg := extractAssistantMessage(decoded); msg != nil {
		return msg, nil
	}

	return c.pollForAssistantMessage(ctx, sessionID, directory)
}

// extractAssistantMessage handles the two response shapes that carry a
// reply directly: a single completed message, or a list from which the
// last assistant-role entry is picked. Returns nil for an empty body, an unexpected shape, or
// a list with no assistant entry — all of which fall through to polling.
func extractAssistantMessage(decoded interface{}) *Message {
	switch v := decoded.(type) {
	case map[string]interface{}:
		msg := normalizeMessage(v)
		if msg.Role == "assistant" {
			return msg
		}
		return nil
	case []interface{}:
		for i := len(v) - 1; i >= 0; i-- {
			obj, ok := v[i].(map[string]interface{})
			if !ok {
				continue
			}
			msg := normalizeMessage(obj)
			if msg.Role == "assistant" {
				return msg
			}
		}
		return nil
	default:
		return nil
	}
}

// normalizeMessage normalizes a raw message response: any input that
// is not a dict becomes {info:{}, parts:[]}; a missing or non-list parts
// becomes []; role comes from the top-level role, else info.role, else "?".
func normalizeMessage(raw interface{}) *Message {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return &Message{Role: "?", Info: map[string]interface{}{}, Parts: nil}
	}

	info, _ := obj["info"].(map[string]interface{})
	if info == nil {
		info = map[string]interface{}{}
	}

	role, _ := obj["role"].(string)
	if role == "" {
		role, _ = info["role"].(string)
	}
	if role == "" {
		role = "?"
	}

	var parts []map[string]interface{}
	if rawParts, ok := obj["parts"].([]interface{}); ok {
		for _, p := range rawParts {
			if pm, ok := p.(map[string]interface{}); ok {
				parts = append(parts, pm)
			}
		}
	}

	return &Message{Role: role, Info: info, Parts: parts}
}

// pollForAssistantMessage polls get_messages every ~1.5s until an assistant
// message appears or deadline elapses, logging progress on the first three
// polls and every 20th thereafter.
func (c *Client) pollForAssistantMessage(ctx context.Context, sessionID, directory string) (*Message, error) {
	deadline := time.Now().Add(defaultPollDeadline)
	poll := 0

	for {
		poll++
		messages, err := c.GetMessages(ctx, sessionID, directory)
		if err == nil {
			if msg := findLastAssistant(messages); msg != nil {
				return msg, nil
			}
			if poll <= 3 || poll%20 == 0 {
				c.progress(fmt.Sprintf("polling session %s (attempt %d), roles seen: %v", sessionID, poll, rolesOf(messages)))
			}
		}

		if time.Now().After(deadline) {
			return nil, &AgentDidNotRun{SessionID: sessionID, Deadline: defaultPollDeadline}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func findLastAssistant(messages []*Message) *Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "assistant" {
			return messages[i]
		}
	}
	return nil
}

func rolesOf(messages []*Message) []string {
	roles := make([]string, len(messages))
	for i, m := range messages {
		roles[i] = m.Role
	}
	return roles
}

// GetMessages fetches the normalized message list for a session. A non-list
// response normalizes to an empty slice, never a per-character iteration of
// a stray string body.
func (c *Client) GetMessages(ctx context.Context, sessionID, directory string) ([]*Message, error) {
	resp, err := c.get(ctx, fmt.Sprintf("/session/%s/message?directory=%s", sessionID, directory))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}

	list, ok := decoded.([]interface{})
	if !ok {
		return nil, nil
	}
	messages := make([]*Message, 0, len(list))
	for _, raw := range list {
		messages = append(messages, normalizeMessage(raw))
	}
	return messages, nil
}

// startHeartbeat prints an elapsed-time progress line every heartbeatInterval
// until the returned func is called. Single background goroutine, pure
// printer — mirrors the concurrency model's "only background thread" note.
func (c *Client) startHeartbeat(label string) func() {
	start := time.Now()
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.progress(fmt.Sprintf("%s: still running (%s elapsed)", label, time.Since(start).Round(time.Second)))
			}
		}
	}()
	return func() { close(stop) }
}
