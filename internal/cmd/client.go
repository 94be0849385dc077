package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gravitrone/concierge/internal/api"
	"github.com/gravitrone/concierge/internal/config"
)

// APIURLFlag is the persistent root flag that overrides the configured
// backend url.
const APIURLFlag = "api-url"

// ResolveConfig loads the config file and applies flag overrides. A
// missing file yields defaults.
func ResolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if f := cmd.Flag(APIURLFlag); f != nil && f.Changed {
		cfg.APIURL = strings.TrimRight(strings.TrimSpace(f.Value.String()), "/")
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("--%s: %w", APIURLFlag, err)
		}
	}
	return cfg, nil
}

func loadClient(cmd *cobra.Command) (*api.Client, *config.Config, error) {
	cfg, err := ResolveConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	return api.NewClient(cfg.APIURL, cfg.APIKey, cfg.RequestTimeout), cfg, nil
}
