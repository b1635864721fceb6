package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/streamql/streamql-go/cli/internal/config"
	"github.com/streamql/streamql-go/cli/internal/ui"
	"github.com/streamql/streamql-go/cli/internal/watch"
	"github.com/streamql/streamql-go/query/builder"
	"github.com/streamql/streamql-go/query/parse"
	"github.com/streamql/streamql-go/runtime/client"
	"github.com/streamql/streamql-go/telemetry"
)

// NewQueryCommand creates the query command group.
func NewQueryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run queries against the server",
	}
	cmd.AddCommand(newQueryRunCommand())
	return cmd
}

func newQueryRunCommand() *cobra.Command {
	var fromFile string
	var watchMode bool

	cmd := &cobra.Command{
		Use:   "run [sql]",
		Short: "Run a push or pull query and stream its rows",
		Long: `Run a query from an argument or a file. Push queries (ending in
EMIT CHANGES) stream until interrupted; pull queries return a fixed
result set and complete. Interrupting a push query cancels only the
client side; use 'queries terminate' to stop it on the server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromFile == "" && len(args) == 0 {
				return fmt.Errorf("provide SQL as an argument or via --file")
			}

			if watchMode {
				if fromFile == "" {
					return fmt.Errorf("--watch requires --file")
				}
				w, err := watch.New(fromFile, func() error {
					sql, err := config.ReadQueryFile(fromFile)
					if err != nil {
						return err
					}
					return runQuery(sql)
				})
				if err != nil {
					return err
				}
				defer w.Stop()
				return w.Start()
			}

			sql := ""
			if fromFile != "" {
				text, err := config.ReadQueryFile(fromFile)
				if err != nil {
					return err
				}
				sql = text
			} else {
				sql = args[0]
			}
			return runQuery(sql)
		},
	}

	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "read the statement from a file")
	cmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "re-run when the file changes")
	return cmd
}

func runQuery(sql string) (err error) {
	kind, err := parse.Classify(sql)
	if err != nil {
		return err
	}

	c, err := newClient()
	if err != nil {
		return err
	}

	started := time.Now()
	defer func() {
		telemetry.RecordOperation("query run", string(kind), time.Since(started), err)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if kind == builder.KindStatement {
		resp, err := c.ExecuteStatement(ctx, sql)
		if err != nil {
			return err
		}
		ui.Success("%s: %s", resp.CommandStatus.Status, resp.CommandStatus.Message)
		return nil
	}

	stmt := &builder.Statement{SQL: sql, ContentType: builder.ContentType, Kind: kind}
	stream, err := c.Execute(ctx, stmt)
	if err != nil {
		return err
	}
	defer stream.Close()

	headers := make([]string, stream.Schema().Len())
	for i, col := range stream.Schema().Columns {
		headers[i] = col.Name
	}
	ui.Row(headers)

	for {
		row, err := stream.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			if errors.Is(err, client.ErrCancelled) {
				ui.Info("cancelled")
				return nil
			}
			return err
		}
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprintf("%v", v)
		}
		ui.Row(cells)
	}
}
