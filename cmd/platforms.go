package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var platformsCategories string

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List supported platforms or one platform's categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if platformsCategories != "" {
			return enc.Encode(map[string]any{
				"platform":   platformsCategories,
				"categories": env.registry.Categories(platformsCategories),
			})
		}
		return enc.Encode(env.registry.Platforms())
	},
}

func init() {
	platformsCmd.Flags().StringVar(&platformsCategories, "categories", "", "show categories for a platform id")
	rootCmd.AddCommand(platformsCmd)
}
