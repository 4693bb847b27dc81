package summarize

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestCoerceStrings_Array(t *testing.T) {
	raw := json.RawMessage(`["a", "b"]`)
	got := coerceStrings(raw)
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("coerceStrings(array) = %v, want %v", got, want)
	}
}

func TestCoerceStrings_SingleStringCoercesToOneElementList(t *testing.T) {
	raw := json.RawMessage(`"single value"`)
	got := coerceStrings(raw)
	want := []string{"single value"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("coerceStrings(string) = %v, want %v", got, want)
	}
}

func TestCoerceStrings_EmptyOrMissing(t *testing.T) {
	if got := coerceStrings(nil); got != nil {
		t.Errorf("coerceStrings(nil) = %v, want nil", got)
	}
	if got := coerceStrings(json.RawMessage(`""`)); got != nil {
		t.Errorf("coerceStrings(empty string) = %v, want nil", got)
	}
}

func TestStripFence_PlainFence(t *testing.T) {
	in := "```\n{\"intent\":\"fix bug\"}\n```"
	got := stripFence(in)
	var parsed map[string]string
	if err := json.Unmarshal([]byte(got), &parsed); err != nil {
		t.Fatalf("stripFence output did not parse as JSON: %v (got %q)", err, got)
	}
	if parsed["intent"] != "fix bug" {
		t.Errorf("stripFence(plain) parsed = %v", parsed)
	}
}

func TestStripFence_LanguageTagged(t *testing.T) {
	in := "```json\n{\"intent\":\"fix bug\"}\n```"
	got := stripFence(in)
	var parsed map[string]string
	if err := json.Unmarshal([]byte(got), &parsed); err != nil {
		t.Fatalf("stripFence output did not parse as JSON: %v (got %q)", err, got)
	}
	if parsed["intent"] != "fix bug" {
		t.Errorf("stripFence(json-tagged) parsed = %v", parsed)
	}
}

func TestStripFence_NoFence(t *testing.T) {
	in := `{"intent":"fix bug"}`
	if got := stripFence(in); got != in {
		t.Errorf("stripFence(no fence) = %q, want %q", got, in)
	}
}
