package models

import "encoding/json"

// containsFailedFlag reports whether a JSON metadata object has a truthy
// top-level "failed" key. Tolerates empty/invalid metadata.
func containsFailedFlag(metadata string) bool {
	if metadata == "" {
		return false
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(metadata), &m); err != nil {
		return false
	}
	failed, ok := m["failed"].(bool)
	return ok && failed
}
