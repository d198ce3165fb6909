package main

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"wifisleep/internal/suspend"
)

func TestParseConfigFlag(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantPath string
		wantRest []string
		wantErr  bool
	}{
		{"none", []string{}, "", []string{}, false},
		{"long", []string{"--config", "/etc/x.yaml"}, "/etc/x.yaml", []string{}, false},
		{"short", []string{"-c", "a.yaml", "extra"}, "a.yaml", []string{"extra"}, false},
		{"equals", []string{"--config=b.yaml"}, "b.yaml", []string{}, false},
		{"missing value", []string{"--config"}, "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, rest, err := parseConfigFlag(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseConfigFlag() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if path != tt.wantPath {
				t.Errorf("path = %q, want %q", path, tt.wantPath)
			}
			if !reflect.DeepEqual(rest, tt.wantRest) {
				t.Errorf("rest = %v, want %v", rest, tt.wantRest)
			}
		})
	}
}

func TestReadLine(t *testing.T) {
	got, err := readLine(strings.NewReader("my passphrase\r\n"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "my passphrase" {
		t.Errorf("readLine() = %q", got)
	}

	if _, err := readLine(strings.NewReader("")); err == nil {
		t.Error("empty input should fail")
	}
}

func TestPrintSnapshot(t *testing.T) {
	var buf bytes.Buffer
	printSnapshot(&buf, suspend.Snapshot{
		State:        "suspended",
		PowerSave:    "with_throughput(10ms)",
		Suspends:     2,
		LastDecision: "suspended",
		LastIdleMs:   200,
		UpdatedAt:    time.Now(),
	})

	out := buf.String()
	for _, want := range []string{"State:            suspended", "with_throughput(10ms)", "longest idle 200ms"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCommandHandlers(t *testing.T) {
	handlers := commandHandlers()
	for _, cmd := range []string{"run", "status", "watch", "config", "secret", "diag", "wake", "version", "help"} {
		if _, ok := handlers[cmd]; !ok {
			t.Errorf("missing handler for %s", cmd)
		}
	}
}

func TestDiagConfigFor(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := "wifi:\n  ssid: lab\n  password: hunter2hunter2\nsuspend:\n  state_file: " + filepath.Join(dir, "status.json") +
		"\nmetrics:\n  pass_log: " + filepath.Join(dir, "passes.jsonl") + "\n"
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	dc, err := diagConfigFor(configPath, []string{"--output", "bundle.zip"})
	if err != nil {
		t.Fatalf("diagConfigFor() error = %v", err)
	}
	if dc.OutputPath != "bundle.zip" {
		t.Errorf("OutputPath = %s", dc.OutputPath)
	}
	if !reflect.DeepEqual(dc.ConfigPaths, []string{configPath}) {
		t.Errorf("ConfigPaths = %v", dc.ConfigPaths)
	}
	if dc.StatusPath != filepath.Join(dir, "status.json") || dc.PassLogPath != filepath.Join(dir, "passes.jsonl") {
		t.Errorf("paths = %s, %s", dc.StatusPath, dc.PassLogPath)
	}
	if strings.Contains(string(dc.EffectiveConfig), "hunter2") {
		t.Error("effective config leaks the password")
	}

	if _, err := diagConfigFor(configPath, []string{"--verbose"}); err == nil {
		t.Error("unknown flag should fail")
	}
}
