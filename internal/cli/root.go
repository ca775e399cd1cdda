// Package cli defines the cobra commands of the callsim binary: the API server and a small
// client for rehearsing calls against it.
package cli

import (
	"fmt"
	"os"

	"github.com/ethanbaker/callsim/pkg/sdk"
	"github.com/ethanbaker/callsim/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	envFile string
	apiURL  string
	apiKey  string
	ownerID string

	cfg *utils.Config
)

var rootCmd = &cobra.Command{
	Use:   "callsim",
	Short: "Rehearse parts-counter phone calls against an AI customer",
	Long: `callsim serves the call simulation API and talks to it from the terminal.
Start a session, speak or type to the simulated customer, and collect the
synthesized replies as audio files.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = utils.NewConfigFromEnv(envFile)

		// Flags win over the environment
		if apiURL == "" {
			apiURL = cfg.GetWithDefault("CALLSIM_API_URL", "http://localhost:"+cfg.GetWithDefault("API_PORT", "8080"))
		}
		if apiKey == "" {
			apiKey = cfg.Get("API_KEY")
		}
		if ownerID == "" {
			ownerID = cfg.Get("CALLSIM_OWNER")
		}
		return nil
	},
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newClient returns an API client for the configured owner
func newClient() (*sdk.Client, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("no owner set; pass --owner or set CALLSIM_OWNER")
	}
	return sdk.NewClient(apiURL, apiKey, ownerID), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", utils.EnvFile(), "Path to the .env file")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API base URL (default $CALLSIM_API_URL or http://localhost:$API_PORT)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key (default $API_KEY)")
	rootCmd.PersistentFlags().StringVar(&ownerID, "owner", "", "Owner identity sent as X-Owner-ID (default $CALLSIM_OWNER)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(activeCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(sayCmd)
	rootCmd.AddCommand(welcomeCmd)
	rootCmd.AddCommand(callCmd)
}
