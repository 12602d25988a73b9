package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sandevgo/arcus/internal/config"
	"github.com/sandevgo/arcus/internal/core"
	"github.com/sandevgo/arcus/internal/service/budget"
	"github.com/sandevgo/arcus/internal/service/ui"
	"github.com/spf13/cobra"
)

var (
	packInput      string
	packQuery      string
	packRanking    string
	packPacking    string
	packCapacity   int
	packBasePrompt int
	packResponse   int
	packTask       string
)

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Run one budgeting pass over a candidates file",
	Long:  `Reads a JSON array of candidate items, ranks and packs them under the budget, and prints the rendered context payload to stdout. The selection summary goes to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		data, err := os.ReadFile(packInput)
		if err != nil {
			return fmt.Errorf("failed to read candidates file: %w", err)
		}

		var items []core.CandidateItem
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("invalid candidates JSON: %w", err)
		}

		candidates := make(map[core.Category][]core.CandidateItem)
		for i, item := range items {
			if !item.Category.Valid() {
				return fmt.Errorf("candidate %d has unknown category %q", i, item.Category)
			}
			candidates[item.Category] = append(candidates[item.Category], item)
		}

		ranking, err := core.ParseRankingStrategy(packRanking)
		if err != nil {
			return err
		}
		packing, err := core.ParsePackingStrategy(packPacking)
		if err != nil {
			return err
		}

		appCfg := config.NewAppConfig(ctx)
		budgetCfg := config.NewBudgetConfig(ctx)
		engine, cleanup := newEngine(ctx, appCfg, budgetCfg)
		if cleanup != nil {
			defer cleanup()
		}

		capacity := packCapacity
		if capacity == 0 {
			capacity = appCfg.ContextLimit()
		}
		response := packResponse
		if response == 0 {
			response = budgetCfg.ResponseReserve
		}

		payload, record, err := engine.BuildContext(ctx, budget.Request{
			TotalCapacity:    capacity,
			BasePromptTokens: packBasePrompt,
			ResponseTokens:   response,
			Query:            packQuery,
			Ranking:          ranking,
			Packing:          packing,
			Candidates:       candidates,
			Weights:          config.TaskWeights(packTask),
		})
		if err != nil {
			return err
		}

		fmt.Println(payload.Text)
		printSummary(record, payload)
		return nil
	},
}

func printSummary(record core.TelemetryRecord, payload core.ContextPayload) {
	fmt.Fprintf(os.Stderr, "\n%s\n", ui.TitleStyle.Render("SELECTION SUMMARY"))
	fmt.Fprintf(os.Stderr, "  %s %s\n", ui.DescStyle.Render("strategies:"),
		ui.UsageStyle.Render(string(record.RankingStrategy)+" / "+string(record.PackingStrategy)))
	fmt.Fprintf(os.Stderr, "  %s %s\n", ui.DescStyle.Render("tokens:"),
		ui.MetricStyle.Render(fmt.Sprintf("%d / %d", payload.TotalTokens, record.AvailableForContext)))
	fmt.Fprintf(os.Stderr, "  %s %s selected, %s dropped",
		ui.DescStyle.Render("items:"),
		ui.MetricStyle.Render(fmt.Sprintf("%d", record.TotalItems)),
		ui.MetricStyle.Render(fmt.Sprintf("%d", record.DroppedItems)))
	if record.OversizedItems > 0 {
		fmt.Fprintf(os.Stderr, " (%d oversized)", record.OversizedItems)
	}
	fmt.Fprintln(os.Stderr)
}

func init() {
	packCmd.Flags().StringVarP(&packInput, "input", "i", "", "path to the candidates JSON file")
	packCmd.Flags().StringVarP(&packQuery, "query", "q", "", "free-text query for relevance scoring")
	packCmd.Flags().StringVar(&packRanking, "ranking", "", "ranking strategy (recency|confidence|relevance|importance|balanced)")
	packCmd.Flags().StringVar(&packPacking, "packing", "", "packing strategy (greedy|diverse|dense)")
	packCmd.Flags().IntVar(&packCapacity, "capacity", 0, "total model capacity in tokens (default: model limit)")
	packCmd.Flags().IntVar(&packBasePrompt, "base-prompt", 0, "tokens already used by the system prompt")
	packCmd.Flags().IntVar(&packResponse, "response", 0, "tokens reserved for the response")
	packCmd.Flags().StringVar(&packTask, "task", "", "task profile for weight presets")
	_ = packCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(packCmd)
}
