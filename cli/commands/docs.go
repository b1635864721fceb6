package commands

import (
	_ "embed"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

//go:embed docs/syntax.md
var syntaxDoc string

// NewDocsCommand creates the docs command, which renders the statement
// syntax reference in the terminal.
func NewDocsCommand() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Show the statement syntax reference",
		RunE: func(cmd *cobra.Command, args []string) error {
			if plain {
				fmt.Print(syntaxDoc)
				return nil
			}

			renderer, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(100),
			)
			if err != nil {
				return err
			}
			out, err := renderer.Render(syntaxDoc)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print raw markdown without styling")
	return cmd
}
