// Package utils holds small response-handling helpers shared by the LLM
// stages.
package utils

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripFences removes a surrounding markdown code fence from an LLM
// response. Models regularly wrap JSON or source in ``` blocks even when
// told not to; parsing must tolerate both the fenced and bare forms.
// Language hints on the opening fence ("```json", "```python") are
// discarded with it. Input without a fence comes back trimmed.
func StripFences(response string) string {
	s := strings.TrimSpace(response)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	// Drop the opening fence line, hint included.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		return ""
	}
	// Drop the closing fence if present; keep everything if the model
	// never closed it.
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// ParseJSONResponse strips fences and decodes the response as a JSON object.
func ParseJSONResponse(response string) (map[string]interface{}, error) {
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(StripFences(response)), &result); err != nil {
		return nil, fmt.Errorf("failed to parse response as JSON: %w", err)
	}
	return result, nil
}

// DecodeJSONResponse strips fences and decodes the response into v.
func DecodeJSONResponse(response string, v interface{}) error {
	if err := json.Unmarshal([]byte(StripFences(response)), v); err != nil {
		return fmt.Errorf("failed to decode response as JSON: %w", err)
	}
	return nil
}
