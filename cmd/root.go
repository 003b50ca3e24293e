package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/narrative-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "narrative-cli",
	Short: "Brand narrative concept and storyboard generator",
	Long:  "Interviews a brand through a seven-step wizard, researches its website, and asks an LLM for short-form video narrative concepts and a keyframe storyboard for an image and animation pipeline.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
