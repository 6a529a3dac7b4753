// Package app assembles Glasha: storage, the interpretation pipeline, the
// Matrix client, and the command executor.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"maunium.net/go/mautrix/event"

	"github.com/vkatenev/glasha/common/spec/lexicon"
	"github.com/vkatenev/glasha/internal/glasha/commands"
	"github.com/vkatenev/glasha/internal/glasha/mailer"
	"github.com/vkatenev/glasha/internal/glasha/matrix"
	"github.com/vkatenev/glasha/internal/glasha/nlp"
	"github.com/vkatenev/glasha/internal/glasha/session"
	"github.com/vkatenev/glasha/internal/glasha/store"
)

// Config holds application configuration.
type Config struct {
	DatabasePath string
	MasterKey    []byte
	Matrix       matrix.Config

	// LexiconPath optionally overrides the embedded lexicon document.
	LexiconPath string

	// HTTPAddr is the TCP address for the optional health/status HTTP server
	// (e.g. ":8080"). Empty disables the server.
	HTTPAddr string

	// Default SMTP account used when a sender has no stored credentials.
	// Host left empty disables the fallback.
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
}

// App is the assembled bot.
type App struct {
	config       *Config
	store        *store.Store
	sessions     *session.Manager
	matrix       *matrix.Client
	executor     *commands.Executor
	normalizer   *nlp.Normalizer
	healthServer *HealthServer
}

// New wires the application together.
func New(config *Config) (*App, error) {
	slog.Info("opening database", "path", config.DatabasePath)
	st, err := store.New(config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	lex, err := loadLexicon(config.LexiconPath)
	if err != nil {
		st.Close()
		return nil, err
	}

	// Inject the DB so the client persists its sync token across restarts.
	matrixCfg := config.Matrix
	matrixCfg.DB = st.DB()
	slog.Info("connecting to Matrix", "homeserver", matrixCfg.Homeserver)
	matrixClient, err := matrix.New(&matrixCfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to initialize Matrix client: %w", err)
	}

	sessions := session.NewManager()

	var defaultAccount *mailer.Account
	if config.SMTPHost != "" {
		defaultAccount = &mailer.Account{
			Host:     config.SMTPHost,
			Port:     config.SMTPPort,
			Username: config.SMTPUsername,
			Password: config.SMTPPassword,
		}
		slog.Info("default SMTP account configured", "host", config.SMTPHost)
	}

	executor := commands.New(commands.Config{
		Store:          st,
		Sessions:       sessions,
		Mailer:         mailer.NewSMTPMailer(),
		Matcher:        nlp.NewMatcher(lex),
		Subjects:       nlp.NewSubjectFormatter(lex),
		Edits:          nlp.NewEditInterpreter(lex),
		MasterKey:      config.MasterKey,
		DefaultAccount: defaultAccount,
		DefaultFrom:    config.SMTPFrom,
		DefaultName:    config.SMTPFromName,
	})

	var healthServer *HealthServer
	if config.HTTPAddr != "" {
		healthServer = NewHealthServer(config.HTTPAddr, st, sessions)
		slog.Info("health server configured", "addr", config.HTTPAddr)
	}

	return &App{
		config:       config,
		store:        st,
		sessions:     sessions,
		matrix:       matrixClient,
		executor:     executor,
		normalizer:   nlp.NewNormalizer(lex),
		healthServer: healthServer,
	}, nil
}

// loadLexicon reads the lexicon from disk when a path is given and falls back
// to the embedded document otherwise.
func loadLexicon(path string) (*lexicon.Document, error) {
	if path == "" {
		slog.Info("using embedded lexicon")
		return lexicon.Default(), nil
	}
	lex, err := lexicon.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load lexicon %s: %w", path, err)
	}
	slog.Info("lexicon loaded", "path", path)
	return lex, nil
}

// Run starts the bot and blocks until an interrupt signal.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.healthServer != nil {
		if err := a.healthServer.Start(ctx); err != nil {
			slog.Warn("health server failed to start; continuing without it", "err", err)
		}
	}

	slog.Info("starting Matrix sync")
	if err := a.matrix.Start(ctx, a.handleMessage); err != nil {
		return fmt.Errorf("failed to start Matrix client: %w", err)
	}

	for _, roomID := range a.config.Matrix.Rooms {
		a.matrix.SendNotice(roomID, "Глаша на связи. Скажите «помощь», если нужна подсказка.")
	}

	slog.Info("Glasha is running; press Ctrl+C to stop", "user", a.matrix.UserID())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")
	return nil
}

// Stop shuts the application down.
func (a *App) Stop() {
	slog.Info("stopping Matrix client")
	a.matrix.Stop()

	if a.healthServer != nil {
		slog.Info("stopping health server")
		a.healthServer.Stop()
	}

	slog.Info("closing database")
	a.store.Close()
}

// handleMessage processes one incoming room message through the pipeline.
func (a *App) handleMessage(ctx context.Context, evt *event.Event) {
	msgContent := evt.Content.AsMessage()
	if msgContent == nil {
		return
	}

	roomID := evt.RoomID.String()
	sender := evt.Sender.String()

	if err := a.matrix.SetTyping(roomID, true, 30*time.Second); err != nil {
		slog.Debug("failed to set typing indicator", "err", err)
	}
	defer a.matrix.SetTyping(roomID, false, 0)

	text := a.normalizer.Normalize(msgContent.Body)

	reply, err := a.executor.HandleUtterance(ctx, sender, roomID, text)
	if err != nil {
		slog.Error("utterance handling failed", "room", roomID, "sender", sender, "err", err)
		reply = "Что-то пошло не так, попробуйте еще раз."
	}

	if reply == "" {
		return
	}
	if err := a.matrix.SendMessage(roomID, reply); err != nil {
		slog.Error("failed to send reply", "room", roomID, "err", err)
	}
}
