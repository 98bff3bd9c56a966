package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"WARN":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"":      zapcore.InfoLevel,
		"bogus": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := build(Options{Level: "info", Format: FormatJSON}, zapcore.AddSync(&buf))

	l.Debugw("hidden")
	l.With("instance", "nao").Infow("backup sent", "user_id", 7)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("want one line, got %q", buf.String())
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["level"] != "info" || entry["logger"] != name || entry["msg"] != "backup sent" || entry["instance"] != "nao" {
		t.Fatalf("entry = %v", entry)
	}
	if _, ok := entry["caller"]; !ok {
		t.Fatalf("caller missing: %v", entry)
	}
}

func TestConsoleIsDefault(t *testing.T) {
	var buf bytes.Buffer
	build(Options{Level: "debug"}, zapcore.AddSync(&buf)).Warnw("slow store", "op", "save")
	out := buf.String()
	if !strings.Contains(out, "WARN") || !strings.Contains(out, "slow store") || strings.HasPrefix(out, "{") {
		t.Fatalf("console line = %q", out)
	}
}

func TestCronLoggerIsNamed(t *testing.T) {
	var buf bytes.Buffer
	l := build(Options{Level: "debug", Format: FormatJSON}, zapcore.AddSync(&buf))
	ForCron(l).Info("job ran", "name", "rollover-check")
	if !strings.Contains(buf.String(), `"logger":"medbot.cron"`) {
		t.Fatalf("line = %s", buf.String())
	}
}

func TestGetIsSingleton(t *testing.T) {
	a := Get(Options{Level: "info"})
	b := Get(Options{Level: "debug", Format: FormatJSON})
	if a != b {
		t.Fatal("Get returned different instances")
	}
}
