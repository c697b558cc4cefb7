package flags

import (
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/tos-network/holdpool/log"
)

func TestVersionWithCommit(t *testing.T) {
	tests := []struct {
		commit, date, want string
	}{
		{"", "", Version},
		{"0123456789abcdef", "", Version + "-01234567"},
		{"0123456789abcdef", "20261016", Version + "-01234567-20261016"},
	}
	for _, tt := range tests {
		if have := VersionWithCommit(tt.commit, tt.date); have != tt.want {
			t.Errorf("VersionWithCommit(%q, %q) = %q, want %q", tt.commit, tt.date, have, tt.want)
		}
	}
}

func TestNewAppLoggingFlags(t *testing.T) {
	app := NewApp("", "", "test")
	var ran bool
	app.Action = func(*cli.Context) error {
		ran = true
		return nil
	}
	defer log.PrintOrigins(false)

	if err := app.Run([]string{"test", "--verbosity", "debug", "--log.origins"}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !ran {
		t.Fatalf("action not invoked")
	}
	if err := app.Run([]string{"test", "--verbosity", "loud"}); err == nil {
		t.Fatalf("expected invalid verbosity to fail")
	}
}
