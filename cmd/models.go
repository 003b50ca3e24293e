package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/narrative-cli/internal/llm"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List supported providers and models",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printModels(cmd.OutOrStdout(), cfg.LLM.Settings(), cfg.LLM.KeyFor)
	},
}

// printModels writes the provider catalog, marking the configured default
// and whether a key is set for each provider. A key without the provider's
// usual prefix is shown as "unusual".
func printModels(w io.Writer, def llm.Settings, keyFor func(llm.Provider) string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tMODEL\tLABEL\tKEY\tDEFAULT")
	for _, p := range llm.Providers {
		key := "missing"
		if k := keyFor(p.Name); k != "" {
			key = "set"
			if !(llm.Settings{Provider: p.Name, APIKey: k}).KeyLooksValid() {
				key = "unusual"
			}
		}
		for _, m := range p.Models {
			mark := ""
			if p.Name == def.Provider && m.ID == def.Model {
				mark = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Name, m.ID, m.Label, key, mark)
		}
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
