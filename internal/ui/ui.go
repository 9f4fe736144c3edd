package ui

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/anthdm/hollywood/actor"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/arijanluiken/overlap/pkg/config"
)

//go:embed assets/*
var assets embed.FS

var indexTemplate = template.Must(template.ParseFS(assets, "assets/index.html"))

// Messages for UI actor communication
type (
	StartServerMsg struct{}
	StopServerMsg  struct{}
	StatusMsg      struct{}
)

// UIActor serves the single page front end for the API
type UIActor struct {
	config *config.Config
	logger zerolog.Logger
	server *http.Server
	router chi.Router
}

// New creates a new UI actor
func New(cfg *config.Config, logger zerolog.Logger) *UIActor {
	return &UIActor{
		config: cfg,
		logger: logger,
	}
}

// Receive handles incoming messages
func (u *UIActor) Receive(ctx *actor.Context) {
	switch msg := ctx.Message().(type) {
	case actor.Started:
		u.onStarted(ctx)
	case actor.Stopped:
		u.onStopped(ctx)
	case StartServerMsg:
		u.onStartServer(ctx)
	case StopServerMsg:
		u.onStopServer(ctx)
	case StatusMsg:
		u.onStatus(ctx)
	default:
		u.logger.Debug().
			Str("message_type", fmt.Sprintf("%T", msg)).
			Msg("Received message")
	}
}

func (u *UIActor) onStarted(ctx *actor.Context) {
	u.logger.Info().Msg("UI actor started")

	// Auto-start the server
	ctx.Send(ctx.PID(), StartServerMsg{})
}

func (u *UIActor) onStopped(ctx *actor.Context) {
	u.logger.Info().Msg("UI actor stopped")
	u.onStopServer(ctx)
}

func (u *UIActor) onStartServer(ctx *actor.Context) {
	if u.server != nil {
		return
	}

	u.logger.Info().Int("port", u.config.UI.Port).Msg("Starting UI server")

	u.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", u.config.UI.Port),
		Handler: u.Routes(),
	}

	go func() {
		if err := u.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			u.logger.Error().Err(err).Msg("UI server error")
		}
	}()

	u.logger.Info().Msg("UI server started successfully")
}

func (u *UIActor) onStopServer(ctx *actor.Context) {
	if u.server == nil {
		return
	}

	u.logger.Info().Msg("Stopping UI server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := u.server.Shutdown(shutdownCtx); err != nil {
		u.logger.Error().Err(err).Msg("Error stopping UI server")
	} else {
		u.logger.Info().Msg("UI server stopped successfully")
	}
	u.server = nil
}

func (u *UIActor) onStatus(ctx *actor.Context) {
	status := map[string]interface{}{
		"server_running": u.server != nil,
		"port":           u.config.UI.Port,
		"timestamp":      time.Now(),
	}

	ctx.Respond(status)
}

// Routes builds the UI handler.
func (u *UIActor) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	static, _ := fs.Sub(assets, "assets")
	r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.FS(static))))

	r.Get("/", u.handleIndex)

	u.router = r
	return r
}

func (u *UIActor) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		APIBase string
	}{
		APIBase: fmt.Sprintf("http://%s:%d/api/v1", hostOnly(r.Host), u.config.API.Port),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		u.logger.Error().Err(err).Msg("Failed to render index")
	}
}

func hostOnly(hostport string) string {
	for i := len(hostport) - 1; i >= 0; i-- {
		switch hostport[i] {
		case ':':
			return hostport[:i]
		case ']':
			return hostport
		}
	}
	if hostport == "" {
		return "localhost"
	}
	return hostport
}
