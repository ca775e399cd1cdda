package main

import (
	"context"

	"github.com/ethanbaker/callsim/internal/api"
	"github.com/ethanbaker/callsim/pkg/utils"
	"github.com/sirupsen/logrus"
)

// Start the API server
func main() {
	// Load global config
	cfg := utils.NewConfigFromEnv(utils.EnvFile())

	if err := api.Start(context.Background(), cfg); err != nil {
		logrus.WithField("component", "api-main").Fatal(err)
	}
}
