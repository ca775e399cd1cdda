// call.go implements "callsim call", a line-by-line conversation with the customer.
package cli

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/ethanbaker/callsim/pkg/sdk"
	"github.com/spf13/cobra"
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Talk to the customer of the active session from the terminal",
	Long: `Read utterances from stdin, one per line, and save each spoken reply to --out.
Type 'exit' to hang up; the session stays active until 'callsim complete'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		sessionID, err := sessionArg(cmd, client, nil)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Connected to session %s. Type 'exit' to hang up.\n", sessionID)

		// Create scanner for reading user input
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprint(out, "\n> ")

			if !scanner.Scan() {
				break
			}

			input := strings.TrimSpace(scanner.Text())
			if input == "exit" {
				break
			}
			if input == "" {
				continue
			}

			req := &sdk.TurnRequest{SessionID: sessionID, Mode: "interactive", Text: input}
			if _, err := playTurn(cmd.Context(), out, client, req, outDir, "reply"); err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				continue
			}

			// Show what the customer said
			entries, err := client.Conversation(cmd.Context(), sessionID)
			if err == nil && len(entries) > 0 {
				fmt.Fprintf(out, "Customer: %s\n", entries[len(entries)-1].Message)
			}
		}

		if err := scanner.Err(); err != nil {
			return fmt.Errorf("error reading input: %w", err)
		}
		return nil
	},
}

func encodeAudio(recording []byte) string {
	return base64.StdEncoding.EncodeToString(recording)
}
