// Package ui provides the console output used across the pipeline: bold step
// headers, echoed command lines, and green/yellow/red result messages.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/moby/term"
)

// Styles contains the lipgloss styles for console output
type Styles struct {
	Step    lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// DefaultStyles returns the default output styles
func DefaultStyles() Styles {
	return Styles{
		Step:    lipgloss.NewStyle().Bold(true),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

// PlainStyles returns styles with no rendering applied, for non-TTY output
func PlainStyles() Styles {
	return Styles{
		Step:    lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
	}
}

// Printer writes styled pipeline output to a single writer
type Printer struct {
	out    io.Writer
	styles Styles
}

// NewPrinter creates a printer for stdout, styled only when stdout is a terminal
func NewPrinter() *Printer {
	if term.IsTerminal(os.Stdout.Fd()) {
		return &Printer{out: os.Stdout, styles: DefaultStyles()}
	}
	return &Printer{out: os.Stdout, styles: PlainStyles()}
}

// NewPrinterTo creates a printer writing unstyled output to w
func NewPrinterTo(w io.Writer) *Printer {
	return &Printer{out: w, styles: PlainStyles()}
}

// Stepf prints a bold step header line
func (p *Printer) Stepf(format string, args ...any) {
	fmt.Fprintln(p.out, p.styles.Step.Render(fmt.Sprintf(format, args...)))
}

// Command echoes the command line about to be executed
func (p *Printer) Command(argv []string) {
	fmt.Fprintln(p.out, strings.Join(argv, " "))
}

// Successf prints a green success line
func (p *Printer) Successf(format string, args ...any) {
	fmt.Fprintln(p.out, p.styles.Success.Render(fmt.Sprintf(format, args...)))
}

// Warnf prints a yellow warning line prefixed with WARN:
func (p *Printer) Warnf(format string, args ...any) {
	fmt.Fprintln(p.out, p.styles.Warning.Render("WARN: "+fmt.Sprintf(format, args...)))
}

// Errorf prints a red error line
func (p *Printer) Errorf(format string, args ...any) {
	fmt.Fprintln(p.out, p.styles.Error.Render(fmt.Sprintf(format, args...)))
}
