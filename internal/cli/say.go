// say.go implements the "callsim say" and "callsim welcome" commands that run a single turn.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ethanbaker/callsim/pkg/sdk"
	"github.com/spf13/cobra"
)

// WelcomeMessage is the scripted greeting played before a rehearsal
const WelcomeMessage = "Welcome to the app... Here an AI model will roleplay customer interactions with you " +
	"and score you based on accuracy and flow of the call. Make sure you follow your call service guidelines! " +
	"So... ready to get started? press the button!"

var (
	sayText     string
	sayAudio    string
	saySession  string
	sayScripted bool
	outDir      string
	audioExt    string
)

var sayCmd = &cobra.Command{
	Use:   "say",
	Short: "Send one utterance to the customer and save the spoken reply",
	Long: `Send text or a recording to the active session (or --session) and write each
synthesized reply segment to --out as it arrives.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (sayText == "") == (sayAudio == "") {
			return fmt.Errorf("exactly one of --text or --audio is required")
		}

		client, err := newClient()
		if err != nil {
			return err
		}

		req := &sdk.TurnRequest{Mode: "interactive", Text: sayText}
		if sayScripted {
			req.Mode = "scripted"
		}
		if sayAudio != "" {
			recording, err := os.ReadFile(sayAudio)
			if err != nil {
				return fmt.Errorf("failed to read recording: %w", err)
			}
			req.Audio = encodeAudio(recording)
		}
		if !sayScripted {
			req.SessionID = saySession
			if req.SessionID == "" {
				if req.SessionID, err = sessionArg(cmd, client, nil); err != nil {
					return err
				}
			}
		}

		_, err = playTurn(cmd.Context(), cmd.OutOrStdout(), client, req, outDir, "reply")
		return err
	},
}

var welcomeCmd = &cobra.Command{
	Use:   "welcome",
	Short: "Save the spoken welcome announcement",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		_, err = playTurn(cmd.Context(), cmd.OutOrStdout(), client, &sdk.TurnRequest{Mode: "scripted", Text: WelcomeMessage}, outDir, "welcome")
		return err
	},
}

// playTurn runs a turn and writes segment files named <prefix>-<timestamp>-<n>.<ext>. It
// returns the number of segments written; segments written before a failure are kept
func playTurn(ctx context.Context, out io.Writer, client *sdk.Client, req *sdk.TurnRequest, dir, prefix string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	stamp := time.Now().Format("20060102-150405")
	written := 0
	for audio, err := range client.Turn(ctx, req) {
		if err != nil {
			return written, err
		}

		written++
		path := filepath.Join(dir, fmt.Sprintf("%s-%s-%03d.%s", prefix, stamp, written, audioExt))
		if err := os.WriteFile(path, audio, 0o644); err != nil {
			return written, fmt.Errorf("failed to write segment: %w", err)
		}
		fmt.Fprintf(out, "wrote %s (%d bytes)\n", path, len(audio))
	}

	if written == 0 {
		fmt.Fprintln(out, "reply was empty")
	}
	return written, nil
}

func init() {
	for _, cmd := range []*cobra.Command{sayCmd, welcomeCmd, callCmd} {
		cmd.Flags().StringVar(&outDir, "out", "replies", "Directory for reply audio segments")
		cmd.Flags().StringVar(&audioExt, "ext", "mp3", "File extension for audio segments (mp3 for elevenlabs, wav for deepgram)")
	}

	sayCmd.Flags().StringVar(&sayText, "text", "", "Utterance text")
	sayCmd.Flags().StringVar(&sayAudio, "audio", "", "Path to a recorded utterance")
	sayCmd.Flags().StringVar(&saySession, "session", "", "Session id (default: the active session)")
	sayCmd.Flags().BoolVar(&sayScripted, "scripted", false, "Speak the text as-is instead of asking the customer")
}
