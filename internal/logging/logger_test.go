package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestNewLogger(t *testing.T) {
	logger := NewLogger(LevelInfo)

	if logger == nil {
		t.Fatal("Expected non-nil logger")
	}

	if logger.minLevel != LevelInfo {
		t.Errorf("Expected minLevel to be %s, got %s", LevelInfo, logger.minLevel)
	}
}

func TestLogger_ShouldLog(t *testing.T) {
	tests := []struct {
		name     string
		minLevel Level
		logLevel Level
		want     bool
	}{
		{"debug logs when min is debug", LevelDebug, LevelDebug, true},
		{"info logs when min is debug", LevelDebug, LevelInfo, true},
		{"debug does not log when min is info", LevelInfo, LevelDebug, false},
		{"warn logs when min is info", LevelInfo, LevelWarn, true},
		{"info does not log when min is error", LevelError, LevelInfo, false},
		{"error logs when min is error", LevelError, LevelError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.minLevel)
			if got := logger.shouldLog(tt.logLevel); got != tt.want {
				t.Errorf("shouldLog() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{" WARN ", LevelWarn, false},
		{"error", LevelError, false},
		{"trace", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestLogger_LogJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(LevelInfo, FormatJSON, &buf)

	logger.Info("suspend.pass.suspended", "Inactivity confirmed", map[string]interface{}{
		"idle_ms": 200,
	})

	var event Event
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("Failed to parse log output as JSON: %v\nOutput: %s", err, buf.String())
	}

	if event.Level != LevelInfo {
		t.Errorf("Expected level %s, got %s", LevelInfo, event.Level)
	}
	if event.Type != "suspend.pass.suspended" {
		t.Errorf("Expected type 'suspend.pass.suspended', got %s", event.Type)
	}
	if event.Message != "Inactivity confirmed" {
		t.Errorf("Expected message 'Inactivity confirmed', got %s", event.Message)
	}
	if event.Payload["idle_ms"] != float64(200) {
		t.Errorf("Expected payload idle_ms 200, got %v", event.Payload["idle_ms"])
	}
	if event.Timestamp == "" {
		t.Error("Expected timestamp to be set")
	}
}

func TestLogger_LogText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(LevelDebug, FormatText, &buf)

	logger.Warn("radio.ap_info.failed", "AP info unavailable", map[string]interface{}{
		"mode":  "disabled",
		"error": "busy",
	})

	out := buf.String()
	if !strings.Contains(out, "WARN radio.ap_info.failed: AP info unavailable") {
		t.Errorf("unexpected text output: %s", out)
	}
	// keys are sorted
	if strings.Index(out, "error=busy") > strings.Index(out, "mode=disabled") {
		t.Errorf("expected payload keys sorted, got: %s", out)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(LevelWarn, FormatJSON, &buf)

	logger.Info("test.filtered", "Should not appear", nil)

	if strings.TrimSpace(buf.String()) != "" {
		t.Errorf("Expected no output for filtered log, got: %s", buf.String())
	}
}

func TestLogger_NilSafe(t *testing.T) {
	var logger *Logger
	logger.Info("noop", "nil logger does nothing", nil)
}

func TestLogger_ConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(LevelInfo, FormatJSON, &buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.Info("test.concurrent", "line", map[string]interface{}{"n": n})
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 20 {
		t.Fatalf("expected 20 lines, got %d", len(lines))
	}
	for _, line := range lines {
		var e Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Errorf("interleaved output: %q", line)
		}
	}
}

func TestNewFileLogger_CreatesDirectory(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "wifisleep.log")
	logger, err := NewFileLogger(LevelInfo, logPath)
	if err != nil {
		t.Fatalf("Failed to create file logger: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Error("Log file was not created")
	}
}

func TestFileLogger_Append(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "wifisleep.log")

	logger1, err := NewFileLogger(LevelInfo, logPath)
	if err != nil {
		t.Fatalf("Failed to create file logger: %v", err)
	}
	logger1.Info("test.first", "First message", nil)
	if closeErr := logger1.Close(); closeErr != nil {
		t.Fatalf("Failed to close logger: %v", closeErr)
	}

	logger2, err := NewFileLogger(LevelInfo, logPath)
	if err != nil {
		t.Fatalf("Failed to create file logger: %v", err)
	}
	logger2.Info("test.second", "Second message", nil)
	if closeErr := logger2.Close(); closeErr != nil {
		t.Fatalf("Failed to close logger: %v", closeErr)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	if !strings.Contains(string(content), "test.first") {
		t.Error("First event was not found")
	}
	if !strings.Contains(string(content), "test.second") {
		t.Error("Second event was not appended")
	}
}
