package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/streamql/streamql-go/cli/internal/ui"
)

// NewTablesCommand creates the tables command group.
func NewTablesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Manage tables",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			tables, err := c.ListTables(context.Background())
			if err != nil {
				return err
			}

			rows := make([][]string, len(tables))
			for i, t := range tables {
				rows[i] = []string{t.Name, t.Topic, t.ValueFormat, fmt.Sprintf("%t", t.Windowed)}
			}
			ui.Table([]string{"NAME", "TOPIC", "FORMAT", "WINDOWED"}, rows)
			return nil
		},
	})
	cmd.AddCommand(newTablesDropCommand())
	return cmd
}

func newTablesDropCommand() *cobra.Command {
	var ifExists bool
	var force bool

	cmd := &cobra.Command{
		Use:   "drop <name>",
		Short: "Drop a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				ok, err := confirmDrop("table", args[0])
				if err != nil {
					return err
				}
				if !ok {
					ui.Info("aborted")
					return nil
				}
			}

			c, err := newClient()
			if err != nil {
				return err
			}
			if err := c.DropTable(context.Background(), args[0], ifExists); err != nil {
				return err
			}
			ui.Success("dropped table %s", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&ifExists, "if-exists", false, "do not fail when the table does not exist")
	cmd.Flags().BoolVar(&force, "force", false, "drop without confirmation")
	return cmd
}
