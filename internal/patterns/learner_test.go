package patterns

import "testing"

func TestIsDiagnostic(t *testing.T) {
	cases := map[string]bool{
		"which node":              true,
		"type foo":                true,
		"command -v bar":          true,
		"hash git":                true,
		"tmux kill-session -t x":  true,
		"tmux has-session -t x":   true,
		"sleep 5":                 true,
		"source .env":             true,
		". .env":                  true,
		"export FOO=bar":          true,
		"cargo test":              false,
		"git commit -m fix":       false,
		"":                        true,
	}
	for cmd, want := range cases {
		if got := isDiagnostic(cmd); got != want {
			t.Errorf("isDiagnostic(%q) = %v, want %v", cmd, got, want)
		}
	}
}

func TestNormalizeCommand_MultiTokenTools(t *testing.T) {
	cases := map[string]string{
		"cargo test --release -- --nocapture": "cargo test",
		"npm run build --silent":              "npm run",
		"git commit -m fix":                   "git commit",
		"docker run -it --rm alpine sh":       "docker run",
		"kubectl get pods -n default":         "kubectl get",
		"go test ./... -run TestFoo":          "go test",
		"ls -la":                              "ls -la",
	}
	for in, want := range cases {
		if got := normalizeCommand(in); got != want {
			t.Errorf("normalizeCommand(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeCommand_StripsBinaryPrefixAndTrailingPipe(t *testing.T) {
	got := normalizeCommand("/usr/local/bin/rg foo | tail -5")
	if got != "rg foo" {
		t.Errorf("normalizeCommand stripped result = %q, want %q", got, "rg foo")
	}
	got2 := normalizeCommand("curl https://example.com 2>&1")
	if got2 != "curl https://example.com" {
		t.Errorf("normalizeCommand stripped redirect = %q, want %q", got2, "curl https://example.com")
	}
}

func TestIsReferencePath(t *testing.T) {
	if !isReferencePath("docs/design/notes.md") {
		t.Errorf("expected docs/design path to be a reference path")
	}
	if !isReferencePath("node_modules/pkg/index.js") {
		t.Errorf("expected node_modules path to be a reference path")
	}
	if isReferencePath("internal/store/db.go") {
		t.Errorf("expected ordinary source path to not be a reference path")
	}
}

func TestContainsString(t *testing.T) {
	list := []string{"a", "b", "c"}
	if !containsString(list, "b") {
		t.Errorf("expected 'b' to be found")
	}
	if containsString(list, "z") {
		t.Errorf("expected 'z' to not be found")
	}
}
