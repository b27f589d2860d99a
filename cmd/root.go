package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dailylance/crowdscrape/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "crowdscrape",
	Short: "Multi-platform crowdfunding scraper",
	Long:  "Scrapes crowdfunding campaigns from Kickstarter, Indiegogo, Makuake, CAMPFIRE, Wadiz and GREEN FUNDING, with OCR enhancement and bilingual result output.",
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
