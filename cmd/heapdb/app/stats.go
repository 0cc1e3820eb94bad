package app

import (
	"github.com/spf13/cobra"

	"github.com/Blackdeer1524/HeapDB/src/app"
)

func initStats() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Scans every table and reports tuple counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), &app.StatsEntrypoint{
				ConfigPath: rootCmd.Options.ConfigPath,
			})
		},
	})
}
