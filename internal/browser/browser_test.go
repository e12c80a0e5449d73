package browser

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
)

func TestCommand(t *testing.T) {
	tests := []struct {
		goos    string
		want    string
		wantErr bool
	}{
		{"linux", "xdg-open", false},
		{"darwin", "open", false},
		{"windows", "rundll32", false},
		{"plan9", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			cmd, err := Command(tt.goos, "https://idp.example/authorize")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Command() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if !strings.HasSuffix(cmd.Path, tt.want) && cmd.Args[0] != tt.want {
				t.Errorf("Command() = %v, want %s", cmd.Args, tt.want)
			}
			if last := cmd.Args[len(cmd.Args)-1]; last != "https://idp.example/authorize" {
				t.Errorf("URL argument = %q", last)
			}
		})
	}
}

func TestNavigatorPrintsURL(t *testing.T) {
	var out bytes.Buffer
	n := NewNavigator(&out, true)

	if err := n.Navigate(context.Background(), "https://idp.example/authorize?x=1"); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if !strings.Contains(out.String(), "https://idp.example/authorize?x=1") {
		t.Errorf("output = %q", out.String())
	}
}

func TestNavigatorStartsBrowser(t *testing.T) {
	var started *exec.Cmd
	n := &Navigator{start: func(c *exec.Cmd) error {
		started = c
		return errors.New("no display")
	}}

	if err := n.Navigate(context.Background(), "https://idp.example/authorize"); err != nil {
		t.Fatalf("Navigate() error = %v, want launch failures ignored", err)
	}
	if started == nil {
		t.Skip("no browser command on this platform")
	}
}

func TestNavigatorRejectsOtherSchemes(t *testing.T) {
	n := NewNavigator(nil, true)
	for _, target := range []string{"file:///etc/passwd", "javascript:alert(1)", ""} {
		if err := n.Navigate(context.Background(), target); err == nil {
			t.Errorf("Navigate(%q) error = nil", target)
		}
	}
}
