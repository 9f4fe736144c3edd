package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/anthdm/hollywood/actor"
	"github.com/rs/zerolog"

	"github.com/arijanluiken/overlap/internal/api"
	"github.com/arijanluiken/overlap/internal/calculator"
	"github.com/arijanluiken/overlap/internal/dataset"
	"github.com/arijanluiken/overlap/internal/indicator"
	"github.com/arijanluiken/overlap/internal/script"
	"github.com/arijanluiken/overlap/internal/ui"
	"github.com/arijanluiken/overlap/pkg/config"
	"github.com/arijanluiken/overlap/pkg/database"
	"github.com/arijanluiken/overlap/pkg/exchanges"
)

// Messages for supervisor actor communication
type (
	StartMessage  struct{}
	StopMessage   struct{}
	StatusMessage struct{}
	ErrorMessage  struct{ Error error }
)

// Status is the supervisor's reply to StatusMessage.
type Status struct {
	Timestamp   time.Time `json:"timestamp"`
	Calculators int       `json:"calculators"`
	Datasets    bool      `json:"datasets_actor_alive"`
	API         bool      `json:"api_actor_alive"`
	UI          bool      `json:"ui_actor_alive"`
}

// Supervisor owns the actor engine and spawns the dataset, calculator, API
// and UI actors as its children.
type Supervisor struct {
	config   *config.Config
	logger   zerolog.Logger
	db       *database.DB
	registry *indicator.Registry
	scripts  *script.Engine

	engine        *actor.Engine
	pid           *actor.PID
	datasetActor  *actor.PID
	calculators   []*actor.PID
	apiActor      *actor.PID
	uiActor       *actor.PID
	withoutServer bool
}

// New creates a new supervisor
func New(cfg *config.Config, logger zerolog.Logger) *Supervisor {
	registry := indicator.NewRegistry(cfg.Indicators)
	return &Supervisor{
		config:   cfg,
		logger:   logger.With().Str("actor", "supervisor").Logger(),
		registry: registry,
		scripts:  script.NewEngine(registry, cfg.Scripts.Directory, logger.With().Str("component", "script").Logger()),
	}
}

// Start opens the database and starts the actor system
func (s *Supervisor) Start(ctx context.Context) error {
	s.logger.Info().Msg("Starting supervisor actor system")

	if err := ctx.Err(); err != nil {
		return err
	}

	db, err := database.New(s.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	s.db = db

	engine, err := actor.NewEngine(actor.NewEngineConfig())
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create actor engine: %w", err)
	}
	s.engine = engine

	s.pid = engine.Spawn(func() actor.Receiver {
		return s
	}, "supervisor")

	if _, err := engine.Request(s.pid, StartMessage{}, 5*time.Second).Result(); err != nil {
		return fmt.Errorf("failed to start child actors: %w", err)
	}

	s.logger.Info().Msg("Supervisor actor system started successfully")
	return nil
}

// Stop stops the supervisor and its children, then closes the database.
func (s *Supervisor) Stop() {
	if s.engine == nil || s.pid == nil {
		return
	}

	s.logger.Info().Msg("Stopping supervisor actor system")
	<-s.engine.Poison(s.pid).Done()

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Failed to close database")
		}
		s.db = nil
	}
	s.pid = nil
}

// Status asks the supervisor actor for a snapshot of its children.
func (s *Supervisor) Status() (Status, error) {
	if s.engine == nil || s.pid == nil {
		return Status{}, fmt.Errorf("supervisor not started")
	}
	resp, err := s.engine.Request(s.pid, StatusMessage{}, 5*time.Second).Result()
	if err != nil {
		return Status{}, fmt.Errorf("status request failed: %w", err)
	}
	return resp.(Status), nil
}

// Receive handles incoming messages
func (s *Supervisor) Receive(ctx *actor.Context) {
	switch msg := ctx.Message().(type) {
	case actor.Started:
		s.onStarted(ctx)
	case actor.Stopped:
		s.onStopped(ctx)
	case actor.Initialized:
		s.logger.Debug().Msg("Supervisor actor initialized")
	case StartMessage:
		s.onStart(ctx)
	case StopMessage:
		s.onStop(ctx)
	case StatusMessage:
		s.onStatus(ctx)
	case ErrorMessage:
		s.logger.Error().Err(msg.Error).Msg("Received error from child actor")
	default:
		s.logger.Warn().
			Str("message_type", fmt.Sprintf("%T", msg)).
			Msg("Received unknown message")
	}
}

func (s *Supervisor) onStarted(ctx *actor.Context) {
	s.logger.Info().Msg("Supervisor actor started")
}

func (s *Supervisor) onStopped(ctx *actor.Context) {
	s.logger.Info().Msg("Supervisor actor stopped")
}

func (s *Supervisor) onStart(ctx *actor.Context) {
	if s.datasetActor != nil {
		ctx.Respond(true)
		return
	}

	s.logger.Info().Msg("Starting child actors")

	factory := exchanges.NewFactory(s.config, s.logger.With().Str("component", "exchanges").Logger())
	s.datasetActor = ctx.SpawnChild(func() actor.Receiver {
		return dataset.New(s.db, factory, s.config.API.Timeout, s.logger.With().Str("actor", "dataset").Logger())
	}, "dataset")

	for i := 0; i < s.config.Calculator.Workers; i++ {
		name := fmt.Sprintf("calculator_%d", i)
		pid := ctx.SpawnChild(func() actor.Receiver {
			return calculator.New(name, s.registry, s.db, s.config.Calculator.Timeout,
				s.logger.With().Str("actor", "calculator").Str("worker", name).Logger())
		}, name)
		s.calculators = append(s.calculators, pid)
	}
	s.logger.Info().Int("workers", len(s.calculators)).Msg("Calculator pool started")

	if s.withoutServer {
		ctx.Respond(true)
		return
	}

	deps := api.Deps{
		Registry:    s.registry,
		Scripts:     s.scripts,
		DB:          s.db,
		Calculators: s.calculators,
		Datasets:    s.datasetActor,
	}
	s.apiActor = ctx.SpawnChild(func() actor.Receiver {
		return api.New(s.config, deps, s.logger.With().Str("actor", "api").Logger())
	}, "api")

	s.uiActor = ctx.SpawnChild(func() actor.Receiver {
		return ui.New(s.config, s.logger.With().Str("actor", "ui").Logger())
	}, "ui")

	ctx.Respond(true)
}

func (s *Supervisor) onStop(ctx *actor.Context) {
	s.logger.Info().Msg("Stopping child actors")

	if s.uiActor != nil {
		ctx.Engine().Stop(s.uiActor)
		s.uiActor = nil
	}
	if s.apiActor != nil {
		ctx.Engine().Stop(s.apiActor)
		s.apiActor = nil
	}
	for _, pid := range s.calculators {
		ctx.Engine().Stop(pid)
	}
	s.calculators = nil
	if s.datasetActor != nil {
		ctx.Engine().Stop(s.datasetActor)
		s.datasetActor = nil
	}
}

func (s *Supervisor) onStatus(ctx *actor.Context) {
	status := Status{
		Timestamp:   time.Now(),
		Calculators: len(s.calculators),
		Datasets:    s.datasetActor != nil,
		API:         s.apiActor != nil,
		UI:          s.uiActor != nil,
	}

	s.logger.Debug().Interface("status", status).Msg("Supervisor status")
	ctx.Respond(status)
}
