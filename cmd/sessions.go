package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/narrative-cli/internal/pipeline"
	"github.com/sells-group/narrative-cli/internal/session"
	"github.com/sells-group/narrative-cli/internal/store"
)

var (
	sessionsStep   string
	sessionsBrand  string
	sessionsLimit  int
	sessionsFormat string
	sessionsOut    string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and export stored sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions, most recently updated first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		filter := store.SessionFilter{Brand: sessionsBrand, Limit: sessionsLimit}
		if sessionsStep != "" {
			st, err := session.ParseStep(sessionsStep)
			if err != nil {
				return err
			}
			filter.Step = st
		}

		env, err := initEnv(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		list, err := env.Store.ListSessions(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "list sessions")
		}
		return printSessions(cmd.OutOrStdout(), list)
	},
}

var sessionsExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Write the export document of a stored session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		sess, err := env.Store.GetSession(ctx, args[0])
		if err != nil {
			return err
		}
		exp, err := env.Pipeline.Export(sess)
		if err != nil {
			return eris.Wrapf(err, "export session %s", sess.ID)
		}
		if _, err := env.Store.SaveExport(ctx, sess.ID, exp); err != nil {
			return eris.Wrap(err, "save export")
		}
		return writeExport(cmd.OutOrStdout(), exp, sessionsFormat, sessionsOut)
	},
}

func printSessions(w io.Writer, list []store.SessionSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBRAND\tSTEP\tUPDATED")
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.BrandName, s.Step, s.UpdatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func init() {
	sessionsListCmd.Flags().StringVar(&sessionsStep, "step", "", "only sessions at this step (e.g. REVIEW)")
	sessionsListCmd.Flags().StringVar(&sessionsBrand, "brand", "", "brand name substring")
	sessionsListCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "maximum sessions to list")

	sessionsExportCmd.Flags().StringVar(&sessionsFormat, "format", pipeline.FormatJSON, "export format: json or yaml")
	sessionsExportCmd.Flags().StringVar(&sessionsOut, "out", "", "output file or directory (default stdout)")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsExportCmd)
	rootCmd.AddCommand(sessionsCmd)
}
