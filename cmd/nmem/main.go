// Nmem provides a local, append-mostly memory store for AI coding agents.
// It ingests hook events from the host agent into SQLite and serves search,
// timeline, and context-digest queries back to it over a JSON-RPC loop.
package main

import (
	"os"
	"runtime/debug"

	"github.com/nmemsh/nmem/internal/commands"
)

// version is set via ldflags (-X main.version=v1.0.0) or detected
// automatically from Go module info embedded by go install.
var version = "dev"

func main() {
	if version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
	}
	if err := commands.Execute(version); err != nil {
		os.Exit(1)
	}
}
