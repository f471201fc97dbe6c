package logger

import (
	"fmt"
	"time"

	"github.com/fatih/color"
)

var (
	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	grayColor    = color.New(color.FgHiBlack)
	methodColor  = color.New(color.FgMagenta)
)

func timestamp() string {
	return grayColor.Sprintf("[%s]", time.Now().Format("2006-01-02 15:04:05"))
}

// Info logs a general message
func Info(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", timestamp(), infoColor.Sprintf(format, args...))
}

// Success logs a completed step
func Success(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", timestamp(), successColor.Sprintf("✓ "+format, args...))
}

// Warning logs a recoverable problem
func Warning(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", timestamp(), warnColor.Sprintf("⚠ "+format, args...))
}

// Error logs a failure
func Error(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", timestamp(), errorColor.Sprintf("✗ "+format, args...))
}

// StatusColor picks the color for an HTTP status code
func StatusColor(statusCode int) *color.Color {
	switch {
	case statusCode >= 500:
		return errorColor
	case statusCode >= 400:
		return warnColor
	case statusCode >= 300:
		return infoColor
	default:
		return successColor
	}
}

// FormatDuration renders a request duration compactly (e.g. 850µs, 12ms, 1.20s)
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// Request logs a finished HTTP request
func Request(requestID, method, path string, statusCode int, duration time.Duration) {
	fmt.Printf("%s %s %s %-40s %s %s\n",
		timestamp(),
		grayColor.Sprint(requestID),
		methodColor.Sprintf("%-6s", method),
		path,
		StatusColor(statusCode).Sprintf("[%d]", statusCode),
		grayColor.Sprintf("(%s)", FormatDuration(duration)),
	)
}
