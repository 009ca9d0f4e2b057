package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/ragweb/internal/metrics"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show session store statistics",
	Long: `Show statistics over the persisted sessions.

Runtime timing statistics (scraping, embedding, generation) are collected
per process; inside a chat they are available via /stats.

Examples:
  ragweb stats`,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	all := sessions.List()

	var messages, pages int
	for _, sess := range all {
		messages += len(sess.Messages)
		pages += len(sess.ScrapedURLs)
	}

	fmt.Printf("Session Store (%s)\n", cfg.SessionFile())
	fmt.Printf("═══════════════════════════════════════\n")
	fmt.Printf("Sessions: %d\n", len(all))
	fmt.Printf("Messages: %d\n", messages)
	fmt.Printf("Pages:    %d\n", pages)

	return nil
}

// printSnapshot displays in-process runtime statistics.
func printSnapshot(s metrics.Snapshot) {
	fmt.Printf("Runtime Statistics (in-memory, this process)\n")
	fmt.Printf("═══════════════════════════════════════════════\n")
	fmt.Printf("Uptime: %.1f seconds\n", s.UptimeSeconds)

	if s.Scrape != nil {
		fmt.Printf("\nScraping:\n")
		printOpStats(s.Scrape)
	}

	if s.Embedding != nil {
		fmt.Printf("\nEmbeddings:\n")
		printOpStats(s.Embedding)
	}

	if s.LLMGenerate != nil {
		fmt.Printf("\nLLM Generate:\n")
		printOpStats(s.LLMGenerate)
	}

	if s.LLMStream != nil {
		fmt.Printf("\nLLM Stream:\n")
		printOpStats(s.LLMStream)
	}

	if s.IndexQuery != nil {
		fmt.Printf("\nIndex Query:\n")
		printOpStats(s.IndexQuery)
	}
}

// printOpStats displays timing statistics for an operation.
func printOpStats(op *metrics.OperationSnapshot) {
	fmt.Printf("  Calls: %d, Total: %dms\n", op.Count, op.TotalTimeMs)
	fmt.Printf("  Time: avg %.1fms, min %dms, max %dms\n",
		op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
}
