package main

import (
	"fmt"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/taskhub/internal/api"
	"github.com/sadopc/taskhub/internal/config"
	"github.com/sadopc/taskhub/internal/logging"
	"github.com/sadopc/taskhub/internal/session"
	"github.com/sadopc/taskhub/internal/store"
	"github.com/sadopc/taskhub/internal/tui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := logging.InitLogger(cfg.LogFile, cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "error opening log file: %v\n", err)
		os.Exit(1)
	}

	s, err := store.New(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	sess := session.New(s)
	sess.Restore()

	client, err := api.New(cfg.APIURL,
		api.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		api.WithTokenSource(sess),
		api.WithLogger(logging.Logger),
		api.WithBreaker(api.NewBreaker(cfg.BreakerFailures, cfg.BreakerCooldown)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logging.Logger.WithField("api", client.BaseURL()).Info("CLIENT_STARTED")

	app := tui.NewApp(client, sess, s)
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
