package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theanmol-raj/qnagen/internal/llm"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the selectable models",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-40s  %-18s  %s\n", "Label", "Provider", "Model")
		fmt.Fprintln(out, strings.Repeat("─", 80))
		for _, o := range llm.Catalog {
			fmt.Fprintf(out, "%-40s  %-18s  %s\n", o.Label, o.Kind, o.Model)
		}
	},
}
