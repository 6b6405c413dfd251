// Package app wires the bot together: database, persona, completion client,
// chat service, dispatcher, Matrix client, and the optional health server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"maunium.net/go/mautrix/id"

	"github.com/sajadtroy/lachu/internal/lachu/chat"
	"github.com/sajadtroy/lachu/internal/lachu/dispatch"
	"github.com/sajadtroy/lachu/internal/lachu/llm"
	"github.com/sajadtroy/lachu/internal/lachu/matrix"
	"github.com/sajadtroy/lachu/internal/lachu/memory"
	"github.com/sajadtroy/lachu/internal/lachu/persona"
	"github.com/sajadtroy/lachu/internal/lachu/store"
)

// drainTimeout bounds how long Stop waits for in-flight replies.
const drainTimeout = 10 * time.Second

// App is the running bot.
type App struct {
	config       *Config
	logger       *slog.Logger
	store        *store.Store
	persona      persona.Persona
	history      memory.History
	service      *chat.Service
	matrix       *matrix.Client
	dispatcher   *dispatch.Dispatcher
	healthServer *HealthServer
}

// New builds the application. Nothing talks to the network until Run.
func New(config *Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	p := persona.Default()
	if config.PersonaFile != "" {
		loaded, err := persona.LoadFile(config.PersonaFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load persona: %w", err)
		}
		p = loaded
		logger.Info("persona loaded from file", "path", config.PersonaFile, "name", p.Name)
	}

	logger.Info("opening database", "path", config.DatabasePath)
	st, err := store.New(config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	var history memory.History
	if config.HistoryEnabled {
		history = memory.NewSQLiteHistory(st.DB(), logger)
		logger.Info("chat history enabled", "limit", config.HistoryLimit)
	} else {
		history = memory.NewNoopHistory(logger)
	}

	provider := llm.NewGroq(llm.Config{
		APIKey:  config.GroqAPIKey,
		BaseURL: config.GroqBaseURL,
		Timeout: config.LLMTimeout,
	})
	completer := llm.NewCompleter(provider, llm.CompleterConfig{
		Model:       config.Model,
		Temperature: config.Temperature,
		Secrets:     []string{config.GroqAPIKey, config.Matrix.AccessToken},
	}, logger)

	service := chat.NewService(chat.Config{
		History:      history,
		Builder:      memory.NewContextBuilder(p.SystemPrompt(), config.ContextTokenLimit),
		Replier:      completer,
		HistoryLimit: config.HistoryLimit,
		Logger:       logger,
	})

	matrixCfg := config.Matrix
	matrixCfg.DB = st.DB()
	matrixCfg.Logger = logger
	mx, err := matrix.New(matrixCfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to initialize Matrix client: %w", err)
	}

	d, err := dispatch.New(dispatch.Config{
		Messenger:     mx,
		Responder:     service,
		BotUserID:     mx.UserID(),
		BotName:       p.Name,
		DisplayName:   p.Name,
		Command:       config.CommandPrefix,
		IgnoreSenders: config.IgnoreSenders,
		Logger:        logger,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to initialize dispatcher: %w", err)
	}

	var hs *HealthServer
	if config.HTTPAddr != "" {
		hs = NewHealthServer(config.HTTPAddr, st, StatusInfo{
			Model:          completer.Model(),
			HistoryEnabled: config.HistoryEnabled,
			BotUserID:      config.Matrix.UserID,
		})
	}

	return &App{
		config:       config,
		logger:       logger,
		store:        st,
		persona:      p,
		history:      history,
		service:      service,
		matrix:       mx,
		dispatcher:   d,
		healthServer: hs,
	}, nil
}

// Run starts the bot and blocks until ctx is cancelled or the process gets
// SIGINT/SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.healthServer != nil {
		if err := a.healthServer.Start(ctx); err != nil {
			a.logger.Warn("health server failed to start; continuing without it", "err", err)
		}
	}

	a.syncDisplayName(ctx)

	a.logger.Info("starting Matrix sync", "homeserver", a.config.Matrix.Homeserver)
	if err := a.matrix.Start(ctx, a.dispatcher.Dispatch); err != nil {
		return fmt.Errorf("failed to start Matrix client: %w", err)
	}
	a.logger.Info("logged in", "user_id", a.config.Matrix.UserID, "persona", a.persona.Name)

	if a.config.StartupNotice {
		a.announce(ctx)
	}

	a.logger.Info("bot is running; press Ctrl+C to stop")
	<-ctx.Done()
	a.logger.Info("shutting down")
	return nil
}

// Stop releases resources. Safe to call after a failed Run.
func (a *App) Stop() {
	a.logger.Info("stopping Matrix client")
	a.matrix.Stop()
	if !a.dispatcher.Wait(drainTimeout) {
		a.logger.Warn("in-flight replies still running at shutdown")
	}

	if a.healthServer != nil {
		a.healthServer.Stop()
	}

	a.logger.Info("closing database")
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing database failed", "err", err)
	}
}

// syncDisplayName makes the bot's profile name match the persona. Failures
// are logged only.
func (a *App) syncDisplayName(ctx context.Context) {
	current, err := a.matrix.DisplayName(ctx)
	if err != nil {
		a.logger.Warn("could not read display name", "err", err)
	}
	if current == a.persona.Name {
		return
	}
	if err := a.matrix.SetDisplayName(ctx, a.persona.Name); err != nil {
		a.logger.Warn("could not set display name", "name", a.persona.Name, "err", err)
		return
	}
	a.logger.Info("display name updated", "name", a.persona.Name)
}

// announce posts an online notice to each configured room.
func (a *App) announce(ctx context.Context) {
	text := startupNotice(a.persona.Name, a.dispatcher.Command())
	for _, room := range a.config.Matrix.Rooms {
		if _, err := a.matrix.SendNotice(ctx, id.RoomID(room), text, ""); err != nil {
			a.logger.Warn("startup notice failed", "room", room, "err", err)
		}
	}
}

func startupNotice(name, command string) string {
	return fmt.Sprintf("%s is online. Use %s <message> or mention me.", name, command)
}
