package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/streamql/streamql-go/cli/internal/ui"
)

// NewQueriesCommand creates the queries command group.
func NewQueriesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queries",
		Short: "Inspect and terminate server-side queries",
	}
	cmd.AddCommand(newQueriesListCommand())
	cmd.AddCommand(newQueriesTerminateCommand())
	return cmd
}

func newQueriesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List running queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			queries, err := c.ListQueries(context.Background())
			if err != nil {
				return err
			}

			rows := make([][]string, len(queries))
			for i, q := range queries {
				rows[i] = []string{q.ID, q.State, q.QueryText}
			}
			ui.Table([]string{"ID", "STATE", "QUERY"}, rows)
			return nil
		},
	}
}

func newQueriesTerminateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "terminate <query-id>",
		Short: "Terminate a continuous query on the server",
		Long: `Terminate a continuous query on the server. Cancelling a client
subscription does not stop the server-side query; this command does.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			if err := c.TerminateQuery(context.Background(), args[0]); err != nil {
				return err
			}
			ui.Success("terminated %s", args[0])
			return nil
		},
	}
}
