// serve.go implements the "callsim serve" command that runs the API server.
package cli

import (
	"github.com/ethanbaker/callsim/internal/api"
	"github.com/ethanbaker/callsim/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	servePort  string
	serveStore string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the call simulation API",
	Long: `Connect the session store, transcription, reply and speech backends named
in the environment and serve the HTTP API on $API_PORT.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyServeFlags(cfg, servePort, serveStore)
		return api.Start(cmd.Context(), cfg)
	},
}

// applyServeFlags copies explicit flag values over the environment
func applyServeFlags(cfg *utils.Config, port, store string) {
	if port != "" {
		cfg.Set("API_PORT", port)
	}
	if store != "" {
		cfg.Set("STORE", store)
	}
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default $API_PORT or 8080)")
	serveCmd.Flags().StringVar(&serveStore, "store", "", "Session store: mysql or memory (default $STORE)")
}
