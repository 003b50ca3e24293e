package main

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/narrative-cli/internal/model"
	"github.com/sells-group/narrative-cli/internal/session"
)

var (
	researchName     string
	researchURL      string
	researchCategory string
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Research a brand's website and print the structured profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		identity := model.BrandIdentity{Name: researchName, URL: researchURL, Category: researchCategory}
		if err := identity.Validate(); err != nil {
			return err
		}

		sess := session.New(uuid.New().String(), time.Now())
		sess.SetLLM(cfg.LLM.Settings())
		sess.SetIdentity(identity)

		sd, err := newPipeline(cfg).Research(cmd.Context(), sess)
		if err != nil {
			return eris.Wrap(err, "research")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sd)
	},
}

func init() {
	researchCmd.Flags().StringVar(&researchName, "name", "", "brand name (required)")
	researchCmd.Flags().StringVar(&researchURL, "url", "", "brand website")
	researchCmd.Flags().StringVar(&researchCategory, "category", "", "product category (required)")
	_ = researchCmd.MarkFlagRequired("name")
	_ = researchCmd.MarkFlagRequired("category")
	rootCmd.AddCommand(researchCmd)
}
