// Package version provides centralized version information for livelits.
package version

import (
	"runtime"
)

// These variables can be overridden at build time using ldflags:
// go build -ldflags "-X livelits/internal/version.Version=1.0.0 -X livelits/internal/version.Commit=abc123"
var (
	// Version is the semantic version of livelits
	Version = "0.1.0"

	// Commit is the git commit hash (set at build time)
	Commit = "unknown"

	// BuildDate is the build timestamp (set at build time)
	BuildDate = "unknown"
)

// Info is the build metadata of the running binary.
type Info struct {
	Version    string `json:"version" yaml:"version"`
	Commit     string `json:"commit" yaml:"commit"`
	BuildDate  string `json:"buildDate" yaml:"buildDate"`
	GoVersion  string `json:"goVersion" yaml:"goVersion"`
	Platform   string `json:"platform" yaml:"platform"`
	TreeSitter bool   `json:"treeSitter" yaml:"treeSitter"`
}

// Get returns the build metadata. treeSitter reports whether the binary can
// parse sources, which depends on cgo.
func Get(treeSitter bool) Info {
	return Info{
		Version:    Version,
		Commit:     Commit,
		BuildDate:  BuildDate,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
		TreeSitter: treeSitter,
	}
}

// Short returns the version with an abbreviated commit when one is known
func Short() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// String renders the metadata as the version command's human output.
func (i Info) String() string {
	parser := "unavailable (built without cgo)"
	if i.TreeSitter {
		parser = "available"
	}
	return "livelits version " + i.Version + "\n" +
		"Commit: " + i.Commit + "\n" +
		"Built: " + i.BuildDate + "\n" +
		"Go: " + i.GoVersion + " " + i.Platform + "\n" +
		"Tree-sitter: " + parser
}
