package commands

import (
	"context"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/streamql/streamql-go/cli/internal/ui"
)

// confirmDrop prompts before destroying a named object.
func confirmDrop(kind, name string) (bool, error) {
	confirmed := false
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("Drop %s %s?", kind, name),
	}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, err
	}
	return confirmed, nil
}

// NewStreamsCommand creates the streams command group.
func NewStreamsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streams",
		Short: "Manage streams",
	}
	cmd.AddCommand(newStreamsListCommand())
	cmd.AddCommand(newStreamsCreateCommand())
	cmd.AddCommand(newStreamsDropCommand())
	return cmd
}

func newStreamsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered streams",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			streams, err := c.ListStreams(context.Background())
			if err != nil {
				return err
			}

			rows := make([][]string, len(streams))
			for i, s := range streams {
				rows[i] = []string{s.Name, s.Topic, s.ValueFormat, fmt.Sprintf("%t", s.Windowed)}
			}
			ui.Table([]string{"NAME", "TOPIC", "FORMAT", "WINDOWED"}, rows)
			return nil
		},
	}
}

func newStreamsCreateCommand() *cobra.Command {
	var topic string
	var format string
	var schema string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a stream over a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			if err := c.CreateStream(context.Background(), args[0], schema, topic, format); err != nil {
				return err
			}
			ui.Success("created stream %s", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "backing topic name")
	cmd.Flags().StringVar(&format, "format", "JSON", "value format")
	cmd.Flags().StringVar(&schema, "schema", "", "column schema, e.g. 'ID BIGINT KEY, NAME VARCHAR'")
	cmd.MarkFlagRequired("topic")
	cmd.MarkFlagRequired("schema")
	return cmd
}

func newStreamsDropCommand() *cobra.Command {
	var ifExists bool
	var force bool

	cmd := &cobra.Command{
		Use:   "drop <name>",
		Short: "Drop a stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				ok, err := confirmDrop("stream", args[0])
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
			if err := c.DropStream(context.Background(), args[0], ifExists); err != nil {
				return err
			}
			ui.Success("dropped stream %s", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&ifExists, "if-exists", false, "do not fail when the stream does not exist")
	cmd.Flags().BoolVar(&force, "force", false, "drop without confirmation")
	return cmd
}
