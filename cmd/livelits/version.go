package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"livelits/internal/doctree/sitter"
	"livelits/internal/version"
)

var versionFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get(sitter.IsAvailable())
		if OutputFormat(versionFormat) == FormatHuman {
			fmt.Fprintln(cmd.OutOrStdout(), info.String())
			return nil
		}
		out, err := FormatResponse(info, OutputFormat(versionFormat))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "human", "Output format (json, yaml, human)")
	rootCmd.AddCommand(versionCmd)
}
