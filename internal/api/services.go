package api

import (
	"context"
	"fmt"
	"time"

	"github.com/ethanbaker/callsim/pkg/reply"
	"github.com/ethanbaker/callsim/pkg/session"
	"github.com/ethanbaker/callsim/pkg/speech"
	"github.com/ethanbaker/callsim/pkg/transcribe"
	"github.com/ethanbaker/callsim/pkg/turn"
	"github.com/ethanbaker/callsim/pkg/utils"
	"github.com/sirupsen/logrus"
)

// Services are the handles the API modules share. They are built once at startup
type Services struct {
	Sessions    *session.Manager
	Transcriber transcribe.Transcriber
	Pipeline    *turn.Pipeline
	Timeout     time.Duration

	close func() error
}

// Close releases the session store
func (s *Services) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// NewServices selects and connects every backend named in the config
func NewServices(ctx context.Context, cfg *utils.Config, logger logrus.FieldLogger) (*Services, error) {
	backend, err := session.BackendFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up session store: %w", err)
	}

	services, err := newServices(ctx, cfg, logger, backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return services, nil
}

func newServices(ctx context.Context, cfg *utils.Config, logger logrus.FieldLogger, backend *session.Backend) (*Services, error) {
	manager := session.NewManager(backend.Store, backend.Catalog, session.ManagerOptions{
		ConfirmationPhrase: cfg.Get("SESSION_CONFIRMATION_PHRASE"),
		Logger:             logger,
	})

	transcriber, err := transcribe.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up transcriber: %w", err)
	}

	textModel, err := reply.BackendFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up reply backend: %w", err)
	}
	persona, err := reply.PersonaFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load persona: %w", err)
	}
	generator := reply.NewGenerator(textModel, reply.GeneratorOptions{Persona: persona, Logger: logger})

	synthesizer, err := speech.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up speech: %w", err)
	}

	opts := turn.OptionsFromConfig(cfg)
	opts.Logger = logger

	utils.Component(logger, "api-main").WithFields(logrus.Fields{
		"text_model": textModel.Name(),
		"speech":     synthesizer.Name(),
	}).Info("backends ready")

	return &Services{
		Sessions:    manager,
		Transcriber: transcriber,
		Pipeline:    turn.NewPipeline(manager, transcriber, generator, synthesizer, opts),
		Timeout:     opts.Timeout,
		close:       backend.Close,
	}, nil
}
