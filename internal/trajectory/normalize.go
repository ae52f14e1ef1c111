package trajectory

import "time"

// NormalizeMessage converts a raw session message into the tagged-part
// form. Role comes from the top-level field or a nested info object;
// parts defaults to nil (never iterated as a string) when the raw value
// isn't a list.
func NormalizeMessage(raw interface{}) Message {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return Message{Role: "?"}
	}

	role, _ := obj["role"].(string)
	if role == "" {
		if info, ok := obj["info"].(map[string]interface{}); ok {
			role, _ = info["role"].(string)
		}
	}
	if role == "" {
		role = "?"
	}

	rawParts, ok := obj["parts"].([]interface{})
	if !ok {
		return Message{Role: role}
	}

	parts := make([]Part, 0, len(rawParts))
	for _, p := range rawParts {
		parts = append(parts, NormalizePart(p))
	}
	return Message{Role: role, Parts: parts}
}

// NormalizePart dispatches a single part on its "type" field. A part that
// isn't a dict becomes {type: unknown, raw: v}.
func NormalizePart(raw interface{}) Part {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return Part{Type: PartUnknown, Raw: raw}
	}

	kind, _ := obj["type"].(string)
	switch kind {
	case "text":
		text, _ := obj["text"].(string)
		return Part{Type: PartText, Text: text}
	case "reasoning":
		text, _ := obj["text"].(string)
		return Part{Type: PartReasoning, Text: text}
	case "tool":
		return normalizeToolCall(obj)
	case "step-start":
		name, _ := obj["name"].(string)
		return Part{Type: PartStepStart, Name: name, Data: obj["data"]}
	case "step-finish":
		name, _ := obj["name"].(string)
		finish, _ := obj["finish"].(string)
		return Part{Type: PartStepFinish, Name: name, Data: obj["data"], Finish: finish}
	case "snapshot":
		name, _ := obj["name"].(string)
		return Part{Type: PartSnapshot, Name: name, Data: obj["data"]}
	case "patch":
		text, _ := obj["text"].(string)
		return Part{Type: PartPatch, Text: text, Data: obj["data"]}
	default:
		return Part{Type: PartUnknown, Raw: obj}
	}
}

func normalizeToolCall(obj map[string]interface{}) Part {
	p := Part{Type: PartToolCall}
	p.ToolName, _ = obj["tool_name"].(string)
	p.ToolID, _ = obj["tool_id"].(string)
	p.State, _ = obj["state"].(string)
	p.Input, _ = obj["input"].(map[string]interface{})
	p.Output = obj["output"]
	p.ToolError, _ = obj["error"].(string)
	p.StartedAt = parseOptionalTime(obj["start_time"])
	p.FinishedAt = parseOptionalTime(obj["finish_time"])
	return p
}

func parseOptionalTime(v interface{}) *time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
