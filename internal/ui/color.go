// Package ui provides colored console output.
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	// Colors
	Red    = color.New(color.FgRed)
	Green  = color.New(color.FgGreen)
	Yellow = color.New(color.FgYellow)
	Blue   = color.New(color.FgBlue)
	Cyan   = color.New(color.FgCyan)
	Bold   = color.New(color.Bold)
	Faint  = color.New(color.Faint)
)

// Configure disables color when out is not a terminal or when noColor is set.
func Configure(out *os.File, noColor bool) {
	color.NoColor = noColor || !term.IsTerminal(int(out.Fd()))
}

// Success prints a green success message with checkmark.
func Success(format string, args ...any) {
	Green.Fprintf(color.Output, "✓ "+format+"\n", args...)
}

// Error prints a red error message with X.
func Error(format string, args ...any) {
	Red.Fprintf(color.Output, "✗ "+format+"\n", args...)
}

// Warning prints a yellow warning message.
func Warning(format string, args ...any) {
	Yellow.Fprintf(color.Output, "⚠ "+format+"\n", args...)
}

// Info prints a blue info message.
func Info(format string, args ...any) {
	Blue.Fprintf(color.Output, format+"\n", args...)
}

// Step prints a numbered step in cyan.
func Step(n int, format string, args ...any) {
	Cyan.Fprintf(color.Output, "[%d] ", n)
	fmt.Fprintf(color.Output, format+"\n", args...)
}

// Header prints a bold header.
func Header(format string, args ...any) {
	Bold.Fprintf(color.Output, format+"\n", args...)
}

// Detail prints an indented, dimmed line under a previous message.
func Detail(format string, args ...any) {
	Faint.Fprintf(color.Output, "  "+format+"\n", args...)
}

// Created prints a path that was written.
func Created(path string) {
	Green.Fprint(color.Output, "  + ")
	fmt.Fprintln(color.Output, path)
}

// Removed prints a path or entry that was deleted.
func Removed(path string) {
	Red.Fprint(color.Output, "  - ")
	fmt.Fprintln(color.Output, path)
}

// Snapshot prints a state snapshot notice.
func Snapshot(format string, args ...any) {
	Blue.Fprintf(color.Output, "📸 "+format+"\n", args...)
}

// Fatal prints an error to stderr and exits.
func Fatal(format string, args ...any) {
	Red.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
	os.Exit(1)
}

// Fatalf prints a formatted error and exits.
func Fatalf(format string, args ...any) {
	Red.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
