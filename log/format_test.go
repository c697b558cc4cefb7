package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestLogfmtRecords(t *testing.T) {
	var buf bytes.Buffer
	l := New("pool", "orphans")
	l.SetHandler(StreamHandler(&buf, LogfmtFormat()))

	l.Info("Cleaned holding pool", "removed", 3, "err", errors.New("none left"))

	out := buf.String()
	for _, want := range []string{`msg="Cleaned holding pool"`, "lvl=info", "pool=orphans", "removed=3", `err="none left"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

func TestLvlFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetHandler(LvlFilterHandler(LvlWarn, StreamHandler(&buf, TerminalFormat(false))))

	l.Debug("hidden")
	l.Warn("shown", "index", uint64(7))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record passed a warn filter: %q", out)
	}
	if !strings.HasPrefix(out, "WARN ") || !strings.Contains(out, "index=7") {
		t.Fatalf("unexpected terminal output: %q", out)
	}
}

func TestTerminalOrigins(t *testing.T) {
	PrintOrigins(true)
	defer PrintOrigins(false)

	var buf bytes.Buffer
	l := New()
	l.SetHandler(StreamHandler(&buf, TerminalFormat(false)))
	l.Info("located")

	out := buf.String()
	if !strings.Contains(out, "|log/format_test.go:") {
		t.Fatalf("call site missing from terminal output: %q", out)
	}
	if strings.Contains(out, "github.com/tos-network/holdpool/") {
		t.Fatalf("module prefix not trimmed: %q", out)
	}
}

func TestOddContextNormalized(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetHandler(StreamHandler(&buf, LogfmtFormat()))

	l.Error("odd", "key")
	if !strings.Contains(buf.String(), errorKey) {
		t.Fatalf("odd context not flagged: %q", buf.String())
	}
}

func TestLvlFromString(t *testing.T) {
	for in, want := range map[string]Lvl{"trace": LvlTrace, "dbug": LvlDebug, "info": LvlInfo, "warn": LvlWarn, "eror": LvlError, "crit": LvlCrit} {
		have, err := LvlFromString(in)
		if err != nil || have != want {
			t.Fatalf("%s: have %v (err %v), want %v", in, have, err, want)
		}
	}
	if _, err := LvlFromString("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
