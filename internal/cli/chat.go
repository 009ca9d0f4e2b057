package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raphaelgruber/ragweb/internal/chat"
	"github.com/raphaelgruber/ragweb/internal/index"
	"github.com/raphaelgruber/ragweb/internal/models"
)

var chatCmd = &cobra.Command{
	Use:   "chat [session-id]",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session, creating a new session when no id
is given.

Inside the chat, messages are answered by the LLM. Once pages have been
ingested with /ingest, answers are grounded in the most relevant page
chunks and cite their source URLs.

Commands:
  /ingest <url>...  fetch pages and build the retrieval index
  /sources          list the pages ingested into this session
  /stats            show runtime statistics for this process
  /help             show available commands
  /quit             leave the chat

Examples:
  ragweb chat
  ragweb chat 2f1c9a7e-...`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

// consoleSink renders chat output to a terminal. Partial renders carry the
// whole accumulated answer, so only the unseen suffix is printed.
type consoleSink struct {
	out     io.Writer
	printed int
	styled  bool
}

func newConsoleSink(out io.Writer, styled bool) *consoleSink {
	return &consoleSink{out: out, styled: styled}
}

func (s *consoleSink) RenderMessage(role, text string) {
	fmt.Fprintf(s.out, "%s %s\n", s.roleLabel(role), text)
}

func (s *consoleSink) RenderPartial(text string) {
	if len(text) > s.printed {
		fmt.Fprint(s.out, text[s.printed:])
		s.printed = len(text)
	}
}

func (s *consoleSink) RenderProgress(fraction float64) {
	fmt.Fprintf(s.out, "\r  fetching... %3.0f%%", fraction*100)
	if fraction >= 1 {
		fmt.Fprintln(s.out)
	}
}

func (s *consoleSink) roleLabel(role string) string {
	label := "You:"
	color := defaultTheme.Status
	if role == models.RoleAssistant {
		label = "AI:"
		color = defaultTheme.Success
	}
	if !s.styled {
		return label
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render(label)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	styled := term.IsTerminal(int(os.Stdout.Fd()))

	sess, err := resolveSession(args)
	if err != nil {
		return err
	}

	gen, err := getModel()
	if err != nil {
		return err
	}
	orchestrator := chat.New(sessions, gen, collector, cfg.Streaming, cfg.RetrievalK, logger)

	fmt.Printf("%s (%s)\n", sess.Title, sess.ID)
	fmt.Println("Type /help for commands, /quit to leave.")
	fmt.Println()

	// Replay prior turns so the transcript reads continuously.
	replay := newConsoleSink(os.Stdout, styled)
	for _, msg := range sess.Messages {
		replay.RenderMessage(msg.Role, msg.Content)
	}

	// The retrieval index lives only for this process; sessions remember
	// which pages they covered so they can be re-ingested.
	var retriever chat.Retriever
	if len(sess.ScrapedURLs) > 0 {
		fmt.Printf("This session references %d page(s); use /ingest to load them again.\n", len(sess.ScrapedURLs))
	}

	scanner := bufio.NewScanner(os.Stdin)
	prompt := newConsoleSink(os.Stdout, styled).roleLabel(models.RoleUser)

	for {
		fmt.Printf("%s ", prompt)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, ix := runChatCommand(ctx, sess, line, styled)
			if quit {
				break
			}
			if ix != nil {
				retriever = ix
			}
			continue
		}

		sink := newConsoleSink(os.Stdout, styled)
		fmt.Printf("%s ", sink.roleLabel(models.RoleAssistant))

		result, err := orchestrator.Ask(ctx, sess.ID, line, retriever, sink)
		if err != nil {
			fmt.Printf("\n%s %v\n", errorLabel(styled), err)
			continue
		}

		// Streaming already printed the answer body; flush whatever is
		// left, including the Sources section.
		sink.RenderPartial(result.Answer)
		fmt.Println()
		fmt.Println()
	}

	return scanner.Err()
}

// runChatCommand handles slash commands. It returns whether to leave the
// chat and, after a successful /ingest, the new retrieval index.
func runChatCommand(ctx context.Context, sess *models.Session, line string, styled bool) (bool, *index.Index) {
	fields := strings.Fields(line)

	switch fields[0] {
	case "/quit", "/exit":
		return true, nil

	case "/help":
		fmt.Println("  /ingest <url>...  fetch pages and build the retrieval index")
		fmt.Println("  /sources          list the pages ingested into this session")
		fmt.Println("  /stats            show runtime statistics for this process")
		fmt.Println("  /quit             leave the chat")
		return false, nil

	case "/sources":
		if len(sess.ScrapedURLs) == 0 {
			fmt.Println("No pages ingested yet.")
			return false, nil
		}
		fmt.Printf("Pages (%d):\n", len(sess.ScrapedURLs))
		for _, url := range sess.ScrapedURLs {
			fmt.Printf("  • %s\n", url)
		}
		return false, nil

	case "/stats":
		printSnapshot(collector.Snapshot())
		return false, nil

	case "/ingest":
		if len(fields) < 2 {
			fmt.Println("Usage: /ingest <url>...")
			return false, nil
		}
		ix, err := ingestIntoSession(ctx, sess, fields[1:])
		if err != nil {
			fmt.Printf("%s %v\n", errorLabel(styled), err)
			return false, nil
		}
		return false, ix

	default:
		fmt.Printf("Unknown command %q, type /help for commands.\n", fields[0])
		return false, nil
	}
}

// ingestIntoSession runs the ingestion pipeline and records the succeeding
// URLs on the session. The returned index replaces any previous one.
func ingestIntoSession(ctx context.Context, sess *models.Session, urls []string) (*index.Index, error) {
	svc, err := newIngestService()
	if err != nil {
		return nil, err
	}

	result, err := svc.IngestURLs(ctx, urls, func(done, total int, url string) {
		fmt.Printf("  [%d/%d] %s\n", done, total, url)
	})
	if err != nil {
		return nil, err
	}

	for _, doc := range result.Documents {
		if !doc.Success {
			fmt.Printf("  failed: %s (%s)\n", doc.URL, doc.Error)
		}
	}

	if result.Index == nil {
		fmt.Println("No usable content; the retrieval index is unchanged.")
		return nil, nil
	}

	if err := sessions.AppendURLs(sess.ID, result.SucceededURLs); err != nil {
		return nil, fmt.Errorf("record ingested urls: %w", err)
	}

	fmt.Printf("Ingested %d page(s) into %d chunk(s). Answers are now grounded.\n",
		len(result.SucceededURLs), result.Chunks)
	return result.Index, nil
}

// resolveSession loads the session named by args or creates a fresh one.
func resolveSession(args []string) (*models.Session, error) {
	if len(args) == 1 {
		sess, err := sessions.Load(args[0])
		if err != nil {
			return nil, fmt.Errorf("load session %s: %w", args[0], err)
		}
		return sess, nil
	}
	sess, err := sessions.Create()
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

func errorLabel(styled bool) string {
	if !styled {
		return "Error:"
	}
	return lipgloss.NewStyle().Foreground(defaultTheme.Error).Bold(true).Render("Error:")
}
