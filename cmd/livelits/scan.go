package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"livelits/internal/doctree"
	"livelits/internal/doctree/sitter"
	"livelits/internal/errors"
	"livelits/internal/literals"
	"livelits/internal/version"
)

var (
	scanFormat   string
	scanSemantic bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <file>...",
	Short: "List the literal constants in source files",
	Long: `Parse each file and report the literals that would be tracked. Foldable
expressions such as 60 * 60 are reported once with their folded value.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanFormat, "format", "human", "Output format (json, yaml, human)")
	scanCmd.Flags().BoolVar(&scanSemantic, "semantic", true, "Type-check Go files so named constants fold")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	if !sitter.IsAvailable() {
		return errors.New(errors.CGORequired, "scan requires a cgo build with tree-sitter", nil)
	}

	semantic := cfg.Evaluator.Semantic
	if cmd.Flags().Changed("semantic") {
		semantic = scanSemantic
	}
	scanner := literals.NewScanner(literals.ScannerOptions{Semantic: semantic})

	ctx, cancel := newContext()
	defer cancel()

	resp := &ScanResponseCLI{Version: version.Version}
	for _, path := range args {
		entry := scanFile(ctx, scanner, path)
		if entry.Error != "" {
			logger.Warn("Scan failed", "file", path, "error", entry.Error)
		}
		resp.Total += len(entry.Literals)
		resp.Files = append(resp.Files, entry)
	}

	out, err := FormatResponse(resp, OutputFormat(scanFormat))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func scanFile(ctx context.Context, scanner *literals.Scanner, path string) FileLiteralsCLI {
	entry := FileLiteralsCLI{File: path, Literals: []LiteralCLI{}}

	lang, ok := doctree.LanguageFromExtension(filepath.Ext(path))
	if !ok {
		entry.Error = fmt.Sprintf("unsupported file type %q", filepath.Ext(path))
		return entry
	}
	entry.Language = string(lang)

	source, err := os.ReadFile(path)
	if err != nil {
		entry.Error = err.Error()
		return entry
	}
	spec, err := sitter.Parse(ctx, lang, source)
	if err != nil {
		entry.Error = err.Error()
		return entry
	}
	doc := doctree.NewDocument(path, lang, spec)
	snap, err := scanner.FindLiterals(ctx, doc, doc.Root())
	if err != nil {
		entry.Error = err.Error()
		return entry
	}
	for _, ref := range snap.All() {
		entry.Literals = append(entry.Literals, literalCLI(ref))
	}
	return entry
}

func literalCLI(ref *literals.Reference) LiteralCLI {
	v := ref.InitialValue()
	r := ref.InitialRange()
	return LiteralCLI{
		ID:    ref.UniqueID(),
		Owner: ref.OwnerPath(),
		Line:  ref.Line(),
		Start: r.Start,
		End:   r.End,
		Kind:  string(literals.KindOf(v)),
		Value: literals.Format(v),
	}
}
