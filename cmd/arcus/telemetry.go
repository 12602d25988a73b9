package main

import (
	"fmt"
	"time"

	"github.com/sandevgo/arcus/internal/config"
	"github.com/sandevgo/arcus/internal/service/ui"
	"github.com/sandevgo/arcus/internal/storage/sqlite"
	"github.com/spf13/cobra"
)

var telemetryLimit int

var telemetryCmd = &cobra.Command{
	Use:   "telemetry",
	Short: "Show recent budgeting-pass records",
	Long:  `Lists the newest telemetry records from the local store: strategies, token usage and selection counts per pass.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		appCfg := config.NewAppConfig(ctx)
		db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
		if err != nil {
			return fmt.Errorf("failed to open telemetry storage: %w", err)
		}
		defer db.Close()

		records, err := sqlite.NewTelemetryRepo(db).Recent(ctx, telemetryLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println(ui.DescStyle.Render("no telemetry records yet"))
			return nil
		}

		for _, rec := range records {
			line := fmt.Sprintf("%s/%s  %d selected, %d dropped", rec.RankingStrategy, rec.PackingStrategy, rec.TotalItems, rec.DroppedItems)
			if rec.OversizedItems > 0 {
				line += fmt.Sprintf(" (%d oversized)", rec.OversizedItems)
			}
			if rec.RenderTrimmed {
				line += " [trimmed]"
			}
			fmt.Printf("%s  %s  %s\n",
				ui.UsageStyle.Render(rec.CreatedAt.Local().Format(time.DateTime)),
				ui.MetricStyle.Render(fmt.Sprintf("%d/%d tok", rec.UsedTokens, rec.AvailableForContext)),
				ui.DescStyle.Render(line))
		}
		return nil
	},
}

func init() {
	telemetryCmd.Flags().IntVarP(&telemetryLimit, "limit", "n", 20, "number of records to show")

	rootCmd.AddCommand(telemetryCmd)
}
