package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newJSON(t *testing.T, level string) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return NewWithWriter(&Config{Level: level, Format: "json"}, &buf), &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	return m
}

func TestJSONFields(t *testing.T) {
	l, buf := newJSON(t, "debug")
	l.WithComponent("autotune").Debug("pass", Fields(FieldNode, "Map(2)", "elements", 3))

	m := decode(t, buf)
	if m["component"] != "autotune" {
		t.Errorf("expected component field, got %v", m["component"])
	}
	if m["node"] != "Map(2)" {
		t.Errorf("expected node field, got %v", m["node"])
	}
	if m["message"] != "pass" {
		t.Errorf("expected message, got %v", m["message"])
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newJSON(t, "warn")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered, got %q", buf.String())
	}
	l.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn output, got %q", buf.String())
	}
	if l.Enabled(zerolog.DebugLevel) {
		t.Error("debug should not be enabled at warn level")
	}
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	l, buf := newJSON(t, "nonsense")
	l.Debug("hidden")
	l.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestWithErrorAndFields(t *testing.T) {
	l, buf := newJSON(t, "info")
	l.WithError(errors.New("boom")).WithFields(Fields("k", "v")).Error("failed")
	m := decode(t, buf)
	if m["error"] != "boom" || m["k"] != "v" {
		t.Errorf("unexpected fields %v", m)
	}
}

func TestDurationFields(t *testing.T) {
	f := DurationFields(1500*time.Microsecond, FieldAlgorithm, "hill-climb")
	if f[FieldDuration] != int64(1500) {
		t.Errorf("expected 1500us, got %v", f[FieldDuration])
	}
	if f[FieldAlgorithm] != "hill-climb" {
		t.Errorf("expected algorithm, got %v", f[FieldAlgorithm])
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "console", NoColor: true}, &buf)
	l.Info("hello")
	if !strings.Contains(buf.String(), "[INF]") || !strings.Contains(buf.String(), "hello") {
		t.Errorf("unexpected console output %q", buf.String())
	}
}

func TestNopDiscards(t *testing.T) {
	Nop().Error("nothing")
}

func TestGlobalLogger(t *testing.T) {
	custom := Nop()
	SetGlobalLogger(custom)
	if GetGlobalLogger() != custom {
		t.Error("expected SetGlobalLogger to set the global logger")
	}
	SetGlobalLogger(nil)
	if GetGlobalLogger() == nil {
		t.Error("expected default global logger to be created")
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != "console" || cfg.Output != "stderr" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if !cfg.Timestamp {
		t.Error("expected Timestamp to be true")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json"}, false},
		{"valid console", Config{Level: "debug", Format: "console"}, false},
		{"invalid level", Config{Level: "bad", Format: "json"}, true},
		{"invalid format", Config{Level: "info", Format: "xml"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestGlobalHelpers(t *testing.T) {
	l, buf := newJSON(t, "warn")
	SetGlobalLogger(l)
	defer SetGlobalLogger(nil)

	Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
	Warn("failed to load config file", Fields("file", "config.yml"))
	m := decode(t, buf)
	if m["level"] != "warn" || m["file"] != "config.yml" {
		t.Errorf("unexpected entry %v", m)
	}
}
