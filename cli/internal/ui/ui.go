// Package ui provides styled terminal output for the CLI.
package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"
)

var (
	PrimaryColor = lipgloss.Color("#00D9FF")
	SuccessColor = lipgloss.Color("#00FF88")
	ErrorColor   = lipgloss.Color("#FF4444")

	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)
)

// Title prints a styled section title.
func Title(text string) {
	fmt.Println(TitleStyle.Render(text))
}

// Success prints a success message.
func Success(format string, args ...interface{}) {
	fmt.Println(SuccessStyle.Render("✓ " + fmt.Sprintf(format, args...)))
}

// Error prints an error message to stderr.
func Error(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, ErrorStyle.Render("✗ "+fmt.Sprintf(format, args...)))
}

// Info prints an informational message.
func Info(format string, args ...interface{}) {
	color.Cyan(format, args...)
}

// Table renders rows under a header.
func Table(header []string, rows [][]string) {
	data := pterm.TableData{header}
	data = append(data, rows...)
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// Row prints one streamed result row.
func Row(values []string) {
	for i, v := range values {
		if i > 0 {
			fmt.Print("  ")
		}
		fmt.Print(v)
	}
	fmt.Println()
}
