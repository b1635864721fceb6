// Package commands implements the streamql CLI commands.
package commands

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/streamql/streamql-go/cli/internal/config"
	"github.com/streamql/streamql-go/internal/debug"
	"github.com/streamql/streamql-go/runtime/client"
	"github.com/streamql/streamql-go/telemetry"
)

var (
	flagServer string
	flagAPIKey string
	flagDebug  bool
)

// Execute runs the CLI.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand creates the root streamql command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streamql",
		Short: "StreamQL command line client",
		Long: `streamql talks to a StreamQL streaming SQL server: run push and
pull queries, manage streams and tables, and inspect running queries.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			debug.Init(flagDebug)
			cfg, err := config.Load()
			if err == nil {
				telemetry.Init(Version, cfg.Telemetry)
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			telemetry.Shutdown()
		},
	}

	cmd.PersistentFlags().StringVar(&flagServer, "server", "", "server URL (overrides config)")
	cmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "API key (overrides config)")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	cmd.AddCommand(NewQueryCommand())
	cmd.AddCommand(NewStreamsCommand())
	cmd.AddCommand(NewTablesCommand())
	cmd.AddCommand(NewQueriesCommand())
	cmd.AddCommand(NewInfoCommand())
	cmd.AddCommand(NewDocsCommand())
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// newClient builds a client from config and flag overrides.
func newClient() (*client.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	serverURL := cfg.ServerURL
	if flagServer != "" {
		serverURL = flagServer
	}
	apiKey := cfg.APIKey
	if flagAPIKey != "" {
		apiKey = flagAPIKey
	}

	opts := []client.Option{
		client.WithHTTPClient(&http.Client{Transport: &http.Transport{
			ResponseHeaderTimeout: cfg.Timeout,
		}}),
	}
	if apiKey != "" {
		opts = append(opts, client.WithAPIKey(apiKey))
	}
	return client.NewClient(serverURL, opts...), nil
}
