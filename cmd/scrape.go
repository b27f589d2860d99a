package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dailylance/crowdscrape/internal/search"
)

var (
	scrapePlatform   string
	scrapeCategory   string
	scrapeKeyword    string
	scrapeLanguage   string
	scrapeOCR        bool
	scrapeMaxResults int
	scrapeUserID     string
	scrapeXLSX       bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run one search against a crowdfunding platform",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx, scrapeUserID != "")
		if err != nil {
			return err
		}
		defer env.Close()

		resp, err := env.service.Run(ctx, search.Request{
			Platform:   scrapePlatform,
			Category:   scrapeCategory,
			Keyword:    scrapeKeyword,
			Language:   scrapeLanguage,
			EnableOCR:  scrapeOCR,
			UserID:     scrapeUserID,
			MaxResults: scrapeMaxResults,
		})
		if err != nil {
			return err
		}

		if (scrapeXLSX || cfg.Results.XLSX) && resp.Results != nil {
			path, err := env.writer.WriteXLSX(resp.Results)
			if err != nil {
				zap.L().Warn("xlsx export failed", zap.Error(err))
			} else {
				zap.L().Info("xlsx written", zap.String("path", path))
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapePlatform, "platform", "", "platform id (required)")
	scrapeCmd.Flags().StringVar(&scrapeCategory, "category", "", "category slug")
	scrapeCmd.Flags().StringVar(&scrapeKeyword, "keyword", "", "search keyword")
	scrapeCmd.Flags().StringVar(&scrapeLanguage, "language", "en", "result language hint")
	scrapeCmd.Flags().BoolVar(&scrapeOCR, "ocr", false, "enable OCR enhancement")
	scrapeCmd.Flags().IntVar(&scrapeMaxResults, "max-results", 0, "cap on detail pages fetched")
	scrapeCmd.Flags().StringVar(&scrapeUserID, "user", "", "user id to persist the search under")
	scrapeCmd.Flags().BoolVar(&scrapeXLSX, "xlsx", false, "also export an xlsx spreadsheet")
	scrapeCmd.MarkFlagRequired("platform")
	rootCmd.AddCommand(scrapeCmd)
}
