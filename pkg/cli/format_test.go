package cli

import (
	"strings"
	"testing"
)

// withColor forces colour on or off for one test.
func withColor(t *testing.T, enabled bool) {
	t.Helper()
	prev := colorEnabled
	SetColor(enabled)
	t.Cleanup(func() { SetColor(prev) })
}

func TestDotPad(t *testing.T) {
	withColor(t, false)

	tests := []struct {
		name  string
		input string
		width int
		want  string
	}{
		{"vlan interface", "eth0.10", 30, "eth0.10 " + strings.Repeat(".", 22)},
		{"short name", "ok", 10, "ok " + strings.Repeat(".", 7)},
		{"width minus one", "abcde", 6, "abcde"},
		{"equal to width", "abcdef", 6, "abcdef"},
		{"longer than width", "references-check", 5, "references-check"},
		{"empty", "", 10, " " + strings.Repeat(".", 9)},
		{"width 1", "", 1, ""},
		{"width 2", "", 2, " ."},
		{"zero width", "bond0", 0, "bond0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DotPad(tt.input, tt.width); got != tt.want {
				t.Errorf("DotPad(%q, %d) = %q, want %q", tt.input, tt.width, got, tt.want)
			}
		})
	}
}

func TestDotPad_IgnoresColour(t *testing.T) {
	withColor(t, true)

	got := DotPad(Bold("eth0"), 10)
	if !strings.HasSuffix(got, " .....") {
		t.Errorf("DotPad(Bold(eth0), 10) = %q, want five dots", got)
	}
	if visualLen(got) != 10 {
		t.Errorf("visual length = %d, want 10", visualLen(got))
	}
}

func TestColorFunctions(t *testing.T) {
	tests := []struct {
		name   string
		fn     func(string) string
		prefix string
	}{
		{"Green", Green, "\033[32m"},
		{"Yellow", Yellow, "\033[33m"},
		{"Red", Red, "\033[31m"},
		{"Bold", Bold, "\033[1m"},
		{"Dim", Dim, "\033[2m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withColor(t, true)
			got := tt.fn("bond0")
			if want := tt.prefix + "bond0\033[0m"; got != want {
				t.Errorf("%s(bond0) = %q, want %q", tt.name, got, want)
			}
		})
		t.Run(tt.name+"_disabled", func(t *testing.T) {
			withColor(t, false)
			if got := tt.fn("bond0"); got != "bond0" {
				t.Errorf("%s(bond0) without colour = %q", tt.name, got)
			}
		})
	}
}

func TestSeverity(t *testing.T) {
	withColor(t, true)

	tests := []struct {
		status string
		want   string
	}{
		{"ok", Green("ok")},
		{"warning", Yellow("warning")},
		{"critical", Red("critical")},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := Severity(tt.status); got != tt.want {
				t.Errorf("Severity(%q) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestOrAndCheck(t *testing.T) {
	withColor(t, false)

	if got := Or(""); got != "-" {
		t.Errorf("Or(\"\") = %q, want -", got)
	}
	if got := Or("fabric-0"); got != "fabric-0" {
		t.Errorf("Or(fabric-0) = %q", got)
	}
	if got := Check(true); got != "yes" {
		t.Errorf("Check(true) = %q, want yes", got)
	}
	if got := Check(false); got != "" {
		t.Errorf("Check(false) = %q, want empty", got)
	}
}
