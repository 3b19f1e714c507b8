// Package cli provides the table and colour helpers used by the netedit
// command line.
package cli

import (
	"os"
	"strings"
)

// colorEnabled starts off when NO_COLOR is set (no-color.org). The shell
// turns it off as well when stdout is not a terminal.
var colorEnabled = os.Getenv("NO_COLOR") == ""

// SetColor enables or disables ANSI output for every helper here.
func SetColor(enabled bool) {
	colorEnabled = enabled
}

func paint(code, s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func Green(s string) string  { return paint("32", s) }
func Yellow(s string) string { return paint("33", s) }
func Red(s string) string    { return paint("31", s) }
func Bold(s string) string   { return paint("1", s) }
func Dim(s string) string    { return paint("2", s) }

// Severity colours a check status: ok green, warning yellow, anything
// else red.
func Severity(status string) string {
	switch status {
	case "ok":
		return Green(status)
	case "warning":
		return Yellow(status)
	}
	return Red(status)
}

// DotPad pads name with dots to the given visual width.
// Example: DotPad("eth0", 10) → "eth0 ....."
func DotPad(name string, width int) string {
	n := visualLen(name)
	if width <= 0 || n >= width-1 {
		return name
	}
	return name + " " + strings.Repeat(".", width-n-1)
}

// Or returns s, or a dimmed dash when s is empty. Used for unset cells
// such as a disconnected VLAN or a link without a subnet.
func Or(s string) string {
	if s == "" {
		return Dim("-")
	}
	return s
}

// Check renders a boolean column.
func Check(b bool) string {
	if b {
		return Green("yes")
	}
	return ""
}
