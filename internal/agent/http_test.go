package agent

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"wifisleep/internal/logging"
	"wifisleep/internal/suspend"
)

func TestRoutes(t *testing.T) {
	a, err := NewAgent(testConfig(t), "passphrase", logging.NewLogger(logging.LevelError), WithSignals(make(chan os.Signal)))
	if err != nil {
		t.Fatal(err)
	}
	h := a.routes()

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"status", http.MethodGet, "/status", http.StatusOK, `"state":"monitoring"`},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK, "wifisleep_"},
		{"wake while monitoring", http.MethodPost, "/wake", http.StatusOK, `"woke":false`},
		{"wake needs post", http.MethodGet, "/wake", http.StatusMethodNotAllowed, ""},
		{"unknown", http.MethodGet, "/nope", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want it to contain %s", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRoutes_StatusDecodes(t *testing.T) {
	a, err := NewAgent(testConfig(t), "passphrase", logging.NewLogger(logging.LevelError), WithSignals(make(chan os.Signal)))
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	a.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	var snap suspend.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.PowerSave != "with_throughput(10ms)" {
		t.Errorf("PowerSave = %s", snap.PowerSave)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %s", rec.Header().Get("Content-Type"))
	}
}

func TestRoutes_WakePreflightAllowsPost(t *testing.T) {
	a, err := NewAgent(testConfig(t), "passphrase", logging.NewLogger(logging.LevelError), WithSignals(make(chan os.Signal)))
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodOptions, "/wake", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	a.routes().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, http.MethodPost) {
		t.Errorf("Access-Control-Allow-Methods = %q, want POST", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
