package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/gravitrone/concierge/internal/api"
	"github.com/gravitrone/concierge/internal/cmd"
	"github.com/gravitrone/concierge/internal/logging"
	"github.com/gravitrone/concierge/internal/telemetry"
	"github.com/gravitrone/concierge/internal/ui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "concierge",
		Short: "Concierge - personal assistant dashboard",
		Long:  "Concierge: watch the task queue, triage the knowledge inbox, manage contacts and upload files.",
		RunE: func(c *cobra.Command, _ []string) error {
			return runTUI(c)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String(cmd.APIURLFlag, "", "backend url, overrides the config file")

	root.AddCommand(cmd.SetupCmd())
	root.AddCommand(cmd.TasksCmd())
	root.AddCommand(cmd.InboxCmd())
	root.AddCommand(cmd.ContactsCmd())
	root.AddCommand(cmd.UploadCmd())
	return root
}

func init() {
	// Force truecolor so hex colors render correctly
	// Must be set before any lipgloss style initialization
	os.Setenv("COLORTERM", "truecolor")
}

func runTUI(c *cobra.Command) error {
	cfg, err := cmd.ResolveConfig(c)
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.Open(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := telemetry.Setup(ctx, cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("telemetry disabled", "err", err)
	} else {
		defer func() { _ = shutdown(context.Background()) }()
	}

	logger.Info("starting dashboard", "api_url", cfg.APIURL)
	client := api.NewClient(cfg.APIURL, cfg.APIKey, cfg.RequestTimeout)
	app := ui.NewApp(client, cfg, logger)

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}
