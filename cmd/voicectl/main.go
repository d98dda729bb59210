package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/voice-console/internal/cli"
	"github.com/voice-console/internal/config"
	"github.com/voice-console/internal/infrastructure/voiceapi"
	"github.com/voice-console/internal/pkg/logger"
)

var errStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	zl, err := logger.NewCLI(os.Getenv("VOICECTL_LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zl.Sync() }()

	app := &cli.App{
		NewAPI: func(baseURL string, timeout time.Duration) cli.API {
			return voiceapi.NewClient(baseURL, timeout, zl.Named("voiceapi"), nil)
		},
		Logger: zl,
		In:     os.Stdin,
		Out:    os.Stdout,
	}
	root := cli.NewRootCommand(app, cli.Defaults{
		APIURL:       cfg.VoiceAPIURL,
		Timeout:      cfg.VoiceAPITimeout,
		VerifyWindow: cfg.VerifyWindow,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("Error: ")+err.Error())
		stop()
		os.Exit(1)
	}
}
