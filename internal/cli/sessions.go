package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var sessionsClearForce bool

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage chat sessions",
	Long: `Manage the persisted chat sessions.

Subcommands:
  list   List sessions (default)
  new    Create a new empty session
  clear  Delete all sessions

Examples:
  ragweb sessions
  ragweb sessions new
  ragweb sessions clear --force`,
	RunE: runSessionsList,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	RunE:  runSessionsList,
}

var sessionsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a new empty session",
	RunE:  runSessionsNew,
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all sessions",
	RunE:  runSessionsClear,
}

func init() {
	sessionsClearCmd.Flags().BoolVarP(&sessionsClearForce, "force", "f", false, "skip confirmation")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsNewCmd)
	sessionsCmd.AddCommand(sessionsClearCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	all := sessions.List()
	if len(all) == 0 {
		fmt.Println("No sessions yet. Start one with 'ragweb chat'.")
		return nil
	}

	fmt.Printf("Sessions (%d):\n\n", len(all))
	for _, sess := range all {
		fmt.Printf("- %s  %s\n", sess.ID, sess.Title)
		fmt.Printf("  created %s, %d message(s), %d page(s)\n",
			sess.CreatedAt.Format("2006-01-02 15:04"), len(sess.Messages), len(sess.ScrapedURLs))
		if verbose {
			for _, url := range sess.ScrapedURLs {
				fmt.Printf("  • %s\n", url)
			}
		}
	}

	return nil
}

func runSessionsNew(cmd *cobra.Command, args []string) error {
	sess, err := sessions.Create()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	fmt.Printf("Created %s (%s)\n", sess.Title, sess.ID)
	fmt.Printf("Open it with 'ragweb chat %s'\n", sess.ID)
	return nil
}

func runSessionsClear(cmd *cobra.Command, args []string) error {
	count := len(sessions.List())
	if count == 0 {
		fmt.Println("No sessions to delete.")
		return nil
	}

	if !sessionsClearForce {
		fmt.Printf("Delete all %d session(s)? [y/N] ", count)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := sessions.DeleteAll(); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}

	fmt.Printf("Deleted %d session(s).\n", count)
	return nil
}
