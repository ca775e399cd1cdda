// session.go implements the session lifecycle commands: start, active, complete and history.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/ethanbaker/callsim/pkg/sdk"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start <confirmation phrase>",
	Short: "Start a new rehearsal session",
	Long: `Start a session with a randomly assigned machine and part. The confirmation
phrase must match the server's exactly, e.g.

  callsim start start new simulation`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		session, err := client.StartSession(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("failed to start session: %w", err)
		}

		printSession(cmd.OutOrStdout(), session)
		return nil
	},
}

var activeCmd = &cobra.Command{
	Use:   "active",
	Short: "Show the active session",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		session, err := client.ActiveSession(cmd.Context())
		if sdk.IsNotFound(err) {
			fmt.Fprintln(cmd.OutOrStdout(), "No active session; start one with: callsim start start new simulation")
			return nil
		}
		if err != nil {
			return err
		}

		printSession(cmd.OutOrStdout(), session)
		return nil
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete [session id]",
	Short: "Complete a session and reveal its part",
	Long:  `Complete the given session, or the active one when no id is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		id, err := sessionArg(cmd, client, args)
		if err != nil {
			return err
		}

		session, err := client.CompleteSession(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to complete session: %w", err)
		}

		printSession(cmd.OutOrStdout(), session)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [session id]",
	Short: "Print a session transcript",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		id, err := sessionArg(cmd, client, args)
		if err != nil {
			return err
		}

		entries, err := client.Conversation(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to get conversation: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No conversation yet.")
		}
		for _, entry := range entries {
			fmt.Fprintf(out, "[%s] %-4s %s\n", entry.CreatedAt.Local().Format("15:04:05"), entry.Sender, entry.Message)
		}
		return nil
	},
}

// sessionArg returns the session id argument, or the active session's id
func sessionArg(cmd *cobra.Command, client *sdk.Client, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	session, err := client.ActiveSession(cmd.Context())
	if sdk.IsNotFound(err) {
		return "", fmt.Errorf("no active session; pass a session id")
	}
	if err != nil {
		return "", err
	}
	return session.ID, nil
}

func printSession(out io.Writer, session *sdk.Session) {
	fmt.Fprintf(out, "Session:  %s (%s)\n", session.ID, session.Status)
	fmt.Fprintf(out, "Machine:  %s\n", session.MachineModel)
	fmt.Fprintf(out, "Part:     %s\n", session.PartDescription)
	if session.Answer != nil {
		fmt.Fprintf(out, "Part no.: %s\n", session.Answer.PartID)
		fmt.Fprintf(out, "Location: %s\n", session.Answer.Breadcrumb)
	}
}
