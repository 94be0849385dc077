package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gravitrone/concierge/internal/api"
	"github.com/gravitrone/concierge/internal/config"
)

// RunInteractiveSetup prompts for the backend url and credentials, checks
// the backend and persists the config. Empty answers keep the current
// value.
func RunInteractiveSetup(in io.Reader, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	reader := bufio.NewReader(in)

	ask := func(label, current string, secret bool) string {
		shown := current
		if secret && current != "" {
			shown = "********"
		}
		if shown != "" {
			fmt.Fprintf(out, "%s [%s]: ", label, shown)
		} else {
			fmt.Fprintf(out, "%s: ", label)
		}
		line, _ := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
		return current
	}

	cfg.APIURL = strings.TrimRight(ask("api url", cfg.APIURL, false), "/")
	cfg.APIKey = ask("api key", cfg.APIKey, true)
	cfg.UploadToken = ask("upload token", cfg.UploadToken, true)
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := api.NewClient(cfg.APIURL, cfg.APIKey, 3*time.Second).WithMaxTries(1)
	if status, err := client.Health(); err != nil {
		fmt.Fprintf(out, "warning: backend check failed: %v\n", err)
	} else {
		fmt.Fprintf(out, "backend status: %s\n", status)
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Fprintf(out, "config saved to %s\n", config.Path())
	return nil
}

// SetupCmd returns the `concierge setup` command.
func SetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Configure the backend url and credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return RunInteractiveSetup(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
