package main

import (
	"fmt"
	"io"
	"runtime"

	"tinygo.org/x/go-llvm"
)

// Build-time variables injected via linker flags (ldflags).
//
// These defaults are used for development builds (go build -o oslogopt).
// Release builds set them with:
//
//	go build -ldflags "-X main.Version=$(git describe --tags) ..." -o oslogopt
var (
	Version   = "dev"     // Overwritten with git tag (e.g., "v0.3.0")
	Commit    = "unknown" // Overwritten with git commit hash
	BuildDate = "unknown" // Overwritten with build timestamp
)

// printVersion prints version information to w.
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "oslogopt %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(w, "  llvm:   %s\n", llvm.Version)
	if Commit != "unknown" {
		fmt.Fprintf(w, "  commit: %s\n", Commit)
	}
	if BuildDate != "unknown" {
		fmt.Fprintf(w, "  built:  %s\n", BuildDate)
	}
}
