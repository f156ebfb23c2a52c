package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
	FormatHuman OutputFormat = "human"
)

// LiteralCLI is one tracked literal
type LiteralCLI struct {
	ID    string `json:"id" yaml:"id"`
	Owner string `json:"owner" yaml:"owner"`
	Line  int    `json:"line" yaml:"line"`
	Start int    `json:"start" yaml:"start"`
	End   int    `json:"end" yaml:"end"`
	Kind  string `json:"kind" yaml:"kind"`
	Value string `json:"value" yaml:"value"`
}

// FileLiteralsCLI groups the literals of one file
type FileLiteralsCLI struct {
	File     string       `json:"file" yaml:"file"`
	Language string       `json:"language,omitempty" yaml:"language,omitempty"`
	Literals []LiteralCLI `json:"literals" yaml:"literals"`
	Error    string       `json:"error,omitempty" yaml:"error,omitempty"`
}

// ScanResponseCLI is the output of the scan command
type ScanResponseCLI struct {
	Version string            `json:"version" yaml:"version"`
	Files   []FileLiteralsCLI `json:"files" yaml:"files"`
	Total   int               `json:"total" yaml:"total"`
}

// ChangeCLI is one remapped literal
type ChangeCLI struct {
	File  string `json:"file" yaml:"file"`
	Owner string `json:"owner" yaml:"owner"`
	Line  int    `json:"line" yaml:"line"`
	Old   string `json:"old" yaml:"old"`
	New   string `json:"new" yaml:"new"`
}

// ChangeEventCLI is one listener notification in the watch command
type ChangeEventCLI struct {
	Time    string      `json:"time" yaml:"time"`
	Cleared bool        `json:"cleared" yaml:"cleared"`
	Changes []ChangeCLI `json:"changes" yaml:"changes"`
}

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatYAML:
		return formatYAML(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatCompactJSON renders one line, used for streamed watch events
func formatCompactJSON(resp interface{}) (string, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatYAML(resp interface{}) (string, error) {
	data, err := yaml.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *ScanResponseCLI:
		return formatScanHuman(v), nil
	case *ChangeEventCLI:
		return formatChangeHuman(v), nil
	default:
		return formatJSON(resp)
	}
}

func formatScanHuman(resp *ScanResponseCLI) string {
	var b strings.Builder
	for _, f := range resp.Files {
		if f.Error != "" {
			b.WriteString(fmt.Sprintf("%s: error: %s\n", f.File, f.Error))
			continue
		}
		b.WriteString(fmt.Sprintf("%s (%s, %d literals)\n", f.File, f.Language, len(f.Literals)))
		for _, lit := range f.Literals {
			b.WriteString(fmt.Sprintf("  %4d  %-28s %-6s %s\n", lit.Line, lit.Owner, lit.Kind, lit.Value))
		}
	}
	b.WriteString(fmt.Sprintf("\n%d literals in %d files", resp.Total, len(resp.Files)))
	return b.String()
}

func formatChangeHuman(ev *ChangeEventCLI) string {
	if ev.Cleared {
		return fmt.Sprintf("[%s] tracking stopped, live values cleared", ev.Time)
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %d literal(s) changed", ev.Time, len(ev.Changes)))
	for _, c := range ev.Changes {
		b.WriteString(fmt.Sprintf("\n  %s:%d %s: %s -> %s", c.File, c.Line, c.Owner, c.Old, c.New))
	}
	return b.String()
}
