// Package cli implements dinoctl, the command-line client of the catalog
// API.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/dino-catalog/internal/config"
	"github.com/Sternrassler/dino-catalog/pkg/client"
	"github.com/Sternrassler/dino-catalog/pkg/logging"
)

// app is the state shared by every subcommand.
type app struct {
	apiURL  string
	json    bool
	verbose bool

	cfg    *config.Config
	client *client.Client
}

// NewRootCmd creates the root cobra command with every subcommand.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "dinoctl",
		Short:         "Command-line client for the dinosaur catalog",
		Long:          "dinoctl lists, searches and browses the dinosaur catalog served by dino-api.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			return a.setup(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&a.apiURL, "api", "", "Catalog API base URL (default $DINO_API_URL or http://localhost:8080)")
	cmd.PersistentFlags().BoolVarP(&a.json, "json", "j", false, "Output as JSON")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log requests to stderr")

	cmd.AddCommand(
		newListCmd(a),
		newSearchCmd(a),
		newShowCmd(a),
		newCountCmd(a),
		newStatsCmd(a),
		newValuesCmd(a),
		newCharactersCmd(a),
		newBrowseCmd(a),
	)
	return cmd
}

// setup loads the configuration and creates the API client.
func (a *app) setup(logOut io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	lc := cfg.Logging()
	lc.Output = logOut
	lc.Pretty = true
	lc.Level = logging.LevelWarn
	if a.verbose {
		lc.Level = logging.LevelDebug
	}
	logging.Setup(lc)

	base := a.apiURL
	if base == "" {
		base = cfg.APIURL
	}
	ccfg := client.DefaultConfig(base, cfg.UserAgent)
	ccfg.Component = "dinoctl"
	c, err := client.New(ccfg)
	if err != nil {
		return fmt.Errorf("create api client: %w", err)
	}
	a.client = c
	return nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
