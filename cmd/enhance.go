package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dailylance/crowdscrape/internal/model"
)

var (
	enhanceFile     string
	enhancePlatform string
	enhanceForce    bool
)

var enhanceCmd = &cobra.Command{
	Use:   "enhance",
	Short: "Re-run OCR enhancement over a results file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if enhanceForce {
			cfg.OCR.Force = true
		}

		env, err := initApp(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		data, err := os.ReadFile(enhanceFile)
		if err != nil {
			return eris.Wrapf(err, "read %s", enhanceFile)
		}
		var doc struct {
			Platform string           `json:"platform"`
			Category string           `json:"category"`
			Keyword  string           `json:"keyword"`
			Results  []map[string]any `json:"results"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return eris.Wrapf(err, "parse %s", enhanceFile)
		}

		platform := doc.Platform
		if enhancePlatform != "" {
			platform = enhancePlatform
		}

		records := make([]model.CampaignRecord, 0, len(doc.Results))
		for _, display := range doc.Results {
			rec := model.RecordFromDisplay(display)
			if rec.Platform == "" {
				rec.Platform = platform
			}
			records = append(records, rec)
		}
		zap.L().Info("re-enhancing results",
			zap.String("file", enhanceFile),
			zap.Int("count", len(records)),
		)

		enhanced := env.pipeline.ProcessBatch(ctx, records)
		out := env.materializer.Materialize(enhanced, platform, doc.Category, doc.Keyword)

		englishPath, originalPath, err := env.writer.Write(out)
		if err != nil {
			return err
		}
		zap.L().Info("results rewritten",
			zap.String("english", englishPath),
			zap.String("original", originalPath),
			zap.String("enhancement_rate", out.Stats.EnhancementRate),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out.Stats)
	},
}

func init() {
	enhanceCmd.Flags().StringVar(&enhanceFile, "file", "", "results JSON file to re-enhance (required)")
	enhanceCmd.Flags().StringVar(&enhancePlatform, "platform", "", "override platform id")
	enhanceCmd.Flags().BoolVar(&enhanceForce, "force", false, "enhance every record regardless of completeness")
	enhanceCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(enhanceCmd)
}
