package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raphaelgruber/ragweb/internal/parser"
)

var ingestSession string

var ingestCmd = &cobra.Command{
	Use:   "ingest <url>...",
	Short: "Fetch pages and record them on a session",
	Long: `Fetch one or more pages, extract their readable content and record the
succeeding URLs on a session.

The retrieval index itself is built in memory per process, so grounded
answers come from running /ingest inside 'ragweb chat'. This command is
for preparing a session up front: it verifies the pages are reachable,
yields content, and remembers them on the session.

Examples:
  ragweb ingest https://go.dev/blog/error-handling
  ragweb ingest -s 2f1c9a7e-... https://example.org/a https://example.org/b`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestSession, "session", "s", "", "session to record the pages on (default: new session)")
}

func chunkConfig() parser.ChunkConfig {
	return parser.ChunkConfig{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var sessArgs []string
	if ingestSession != "" {
		sessArgs = []string{ingestSession}
	}
	sess, err := resolveSession(sessArgs)
	if err != nil {
		return err
	}

	svc, err := newIngestService()
	if err != nil {
		return err
	}

	result, err := runIngestWithProgress(ctx, svc, args, term.IsTerminal(int(os.Stdout.Fd())))
	if err != nil {
		return err
	}

	for _, doc := range result.Documents {
		if !doc.Success {
			fmt.Printf("  failed: %s (%s)\n", doc.URL, doc.Error)
		}
	}

	if len(result.SucceededURLs) == 0 {
		fmt.Println("No usable content; nothing recorded.")
		return nil
	}

	if err := sessions.AppendURLs(sess.ID, result.SucceededURLs); err != nil {
		return fmt.Errorf("record ingested urls: %w", err)
	}

	fmt.Printf("Recorded %d page(s) (%d chunk(s)) on %s (%s)\n",
		len(result.SucceededURLs), result.Chunks, sess.Title, sess.ID)
	fmt.Printf("Chat about them with 'ragweb chat %s'\n", sess.ID)
	return nil
}
