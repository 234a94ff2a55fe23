// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package ui provides human-readable console output for the forge CLI.
//
// It offers color output helpers that respect the --no-color flag and the
// NO_COLOR environment variable. Colors are automatically disabled when
// the output is not a TTY (e.g. when piped).
//
// Color usage guidelines:
//   - Red: stage failures, unrecoverable errors
//   - Yellow: fallback tool selection, skipped files, warnings
//   - Green: stage and job completion
//   - Cyan: progress, tool selection, info
//   - Bold: headers
//   - Dim: paths, durations, less important details
package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Pre-configured color instances for consistent CLI output.
var (
	// Red is used for failures.
	Red = color.New(color.FgRed)

	// Yellow is used for warnings and fallback notices.
	Yellow = color.New(color.FgYellow)

	// Green is used for successful completions.
	Green = color.New(color.FgGreen)

	// Cyan is used for progress and informational messages.
	Cyan = color.New(color.FgCyan)

	// Bold is used for headers and important labels.
	Bold = color.New(color.Bold)

	// Dim is used for paths and durations.
	Dim = color.New(color.Faint)
)

// InitColors configures global color output based on the noColor flag.
//
// Call this early in main() after parsing flags so all color output
// respects --no-color and NO_COLOR. fatih/color already checks NO_COLOR
// automatically; this adds explicit control via the CLI flag.
func InitColors(noColor bool) {
	color.NoColor = noColor
}

// Success prints a green success message with a checkmark prefix.
func Success(msg string) {
	_, _ = Green.Println("✓ " + msg)
}

// Successf prints a formatted green success message.
func Successf(format string, args ...any) {
	_, _ = Green.Printf("✓ "+format+"\n", args...)
}

// Warning prints a yellow warning message with a warning symbol prefix.
func Warning(msg string) {
	_, _ = Yellow.Println("⚠ " + msg)
}

// Warningf prints a formatted yellow warning message.
func Warningf(format string, args ...any) {
	_, _ = Yellow.Printf("⚠ "+format+"\n", args...)
}

// Error prints a red error message with an X prefix.
func Error(msg string) {
	_, _ = Red.Println("✗ " + msg)
}

// Errorf prints a formatted red error message.
func Errorf(format string, args ...any) {
	_, _ = Red.Printf("✗ "+format+"\n", args...)
}

// Info prints a cyan informational message with an info symbol prefix.
func Info(msg string) {
	_, _ = Cyan.Println("ℹ " + msg)
}

// Infof prints a formatted cyan informational message.
func Infof(format string, args ...any) {
	_, _ = Cyan.Printf("ℹ "+format+"\n", args...)
}

// Header prints a bold header with an underline separator.
func Header(text string) {
	_, _ = Bold.Println(text)
	fmt.Println(strings.Repeat("=", len(text)))
}

// SubHeader prints a bold sub-header without an underline.
func SubHeader(text string) {
	_, _ = Bold.Println(text)
}

// Label returns a bold-formatted label string for inline use.
func Label(text string) string {
	return Bold.Sprint(text)
}

// DimText returns a dim-formatted string for less important text.
//
// Example: fmt.Printf("backup kept at: %s\n", ui.DimText(backupPath))
func DimText(text string) string {
	return Dim.Sprint(text)
}

// ToolText returns a cyan-formatted tool name for stage selection output.
//
// Example: fmt.Printf("compile: selected %s (score %d)\n", ui.ToolText(name), score)
func ToolText(name string) string {
	return Cyan.Sprint(name)
}
