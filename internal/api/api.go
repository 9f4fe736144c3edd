package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/anthdm/hollywood/actor"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/arijanluiken/overlap/internal/indicator"
	"github.com/arijanluiken/overlap/internal/metrics"
	"github.com/arijanluiken/overlap/internal/script"
	"github.com/arijanluiken/overlap/pkg/config"
	"github.com/arijanluiken/overlap/pkg/database"
)

// Messages for API actor communication
type (
	StartServerMsg struct{}
	StopServerMsg  struct{}
	StatusMsg      struct{}
)

var (
	errUnavailable     = errors.New("service unavailable")
	errUnexpectedReply = errors.New("unexpected actor reply")
)

// Deps are the collaborators the API dispatches to. Calculators are used
// round-robin.
type Deps struct {
	Registry    *indicator.Registry
	Scripts     *script.Engine
	DB          *database.DB
	Calculators []*actor.PID
	Datasets    *actor.PID
}

// APIActor provides REST API and WebSocket endpoints
type APIActor struct {
	config     *config.Config
	logger     zerolog.Logger
	deps       Deps
	engine     *actor.Engine
	server     *http.Server
	router     chi.Router
	wsUpgrader websocket.Upgrader
	next       atomic.Uint64
}

// New creates a new API actor
func New(cfg *config.Config, deps Deps, logger zerolog.Logger) *APIActor {
	return &APIActor{
		config: cfg,
		deps:   deps,
		logger: logger,
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow all origins for development
				return true
			},
		},
	}
}

// Receive handles incoming messages
func (a *APIActor) Receive(ctx *actor.Context) {
	switch msg := ctx.Message().(type) {
	case actor.Started:
		a.onStarted(ctx)
	case actor.Stopped:
		a.onStopped(ctx)
	case StartServerMsg:
		a.onStartServer(ctx)
	case StopServerMsg:
		a.onStopServer(ctx)
	case StatusMsg:
		a.onStatus(ctx)
	default:
		a.logger.Debug().
			Str("message_type", fmt.Sprintf("%T", msg)).
			Msg("Received message")
	}
}

func (a *APIActor) onStarted(ctx *actor.Context) {
	a.logger.Info().Msg("API actor started")
	a.engine = ctx.Engine()

	// Auto-start the server
	ctx.Send(ctx.PID(), StartServerMsg{})
}

func (a *APIActor) onStopped(ctx *actor.Context) {
	a.logger.Info().Msg("API actor stopped")
	a.shutdown()
}

func (a *APIActor) onStartServer(ctx *actor.Context) {
	if a.server != nil {
		return
	}

	a.logger.Info().Int("port", a.config.API.Port).Msg("Starting API server")

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.API.Port),
		Handler:      a.Routes(),
		ReadTimeout:  a.config.API.Timeout,
		WriteTimeout: a.config.API.Timeout,
	}

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error().Err(err).Msg("API server error")
		}
	}()

	a.logger.Info().Msg("API server started successfully")
}

func (a *APIActor) onStopServer(ctx *actor.Context) {
	a.shutdown()
}

func (a *APIActor) shutdown() {
	if a.server == nil {
		return
	}

	a.logger.Info().Msg("Stopping API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("Error stopping API server")
	} else {
		a.logger.Info().Msg("API server stopped successfully")
	}
	a.server = nil
}

func (a *APIActor) onStatus(ctx *actor.Context) {
	status := map[string]interface{}{
		"server_running": a.server != nil,
		"port":           a.config.API.Port,
		"timestamp":      time.Now(),
		"calculators":    len(a.deps.Calculators),
	}

	ctx.Respond(status)
}

// Routes builds the HTTP handler. The actor engine must be set.
func (a *APIActor) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(a.instrument)

	// CORS for development
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type")

			if r.Method == "OPTIONS" {
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(a.config.API.Timeout))

		r.Get("/health", a.handleHealth)
		r.Get("/openapi.json", a.handleOpenAPISpec)

		r.Route("/indicators", func(r chi.Router) {
			r.Get("/", a.handleListIndicators)
			r.Post("/{name}", a.handleCompute)
		})
		r.Post("/batch", a.handleBatch)

		r.Route("/datasets", func(r chi.Router) {
			r.Get("/", a.handleListDatasets)
			r.Post("/", a.handleSaveDataset)
			r.Post("/import", a.handleImportDataset)
			r.Get("/{name}", a.handleGetDataset)
			r.Delete("/{name}", a.handleDeleteDataset)
		})

		r.Get("/computations", a.handleListComputations)

		r.Route("/scripts", func(r chi.Router) {
			r.Get("/", a.handleListScripts)
			r.Post("/run", a.handleRunScript)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	// WebSocket endpoint
	r.HandleFunc("/ws", a.handleWebSocket)

	a.router = r
	return r
}

// instrument counts requests by route pattern and status code.
func (a *APIActor) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.ObserveRequest(r.Method, route, status)
	})
}

// ask sends msg to pid and unwraps error replies.
func (a *APIActor) ask(pid *actor.PID, msg any) (any, error) {
	if a.engine == nil || pid == nil {
		return nil, errUnavailable
	}

	resp, err := a.engine.Request(pid, msg, a.config.API.Timeout).Result()
	if err != nil {
		return nil, fmt.Errorf("actor request failed: %w", err)
	}
	if err, ok := resp.(error); ok {
		return nil, err
	}
	return resp, nil
}

// askFor is ask narrowed to the reply type the caller expects.
func askFor[T any](a *APIActor, pid *actor.PID, msg any) (T, error) {
	var zero T
	resp, err := a.ask(pid, msg)
	if err != nil {
		return zero, err
	}
	v, ok := resp.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %T", errUnexpectedReply, resp)
	}
	return v, nil
}

func (a *APIActor) nextCalculator() *actor.PID {
	n := len(a.deps.Calculators)
	if n == 0 {
		return nil
	}
	i := a.next.Add(1) - 1
	return a.deps.Calculators[i%uint64(n)]
}
