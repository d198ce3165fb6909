package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"wifisleep/internal/logging"
)

func TestNewProvider_StdoutExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewProvider(context.Background(), Config{
		Enabled:     true,
		Exporter:    "stdout",
		SampleRatio: 1,
		Writer:      &buf,
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	_, span := tp.Tracer("test").Start(context.Background(), "suspend.pass")
	span.End()

	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !strings.Contains(buf.String(), "suspend.pass") {
		t.Errorf("exported spans missing suspend.pass:\n%s", buf.String())
	}
}

func TestNewProvider_UnknownExporter(t *testing.T) {
	if _, err := NewProvider(context.Background(), Config{Enabled: true, Exporter: "zipkin"}); err == nil {
		t.Error("expected error for unknown exporter")
	}
}

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{}, logging.NewLogger(logging.LevelError))
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}
