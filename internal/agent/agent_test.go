package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"wifisleep/internal/config"
	"wifisleep/internal/connection"
	"wifisleep/internal/inhibit"
	"wifisleep/internal/logging"
	"wifisleep/internal/publish"
	"wifisleep/internal/radio"
	"wifisleep/internal/sim"
	"wifisleep/internal/suspend"
	"wifisleep/internal/wol"
)

type mapSource map[string]string

func (m mapSource) Get(name string) ([]byte, error) {
	v, ok := m[name]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(v), nil
}

func TestResolvePassword(t *testing.T) {
	tests := []struct {
		name    string
		wifi    config.WiFiConfig
		source  PasswordSource
		want    string
		wantErr bool
	}{
		{"inline", config.WiFiConfig{Password: "inline-pass"}, nil, "inline-pass", false},
		{"secret wins", config.WiFiConfig{Password: "inline-pass", PasswordSecret: "home"}, mapSource{"home": "stored-pass"}, "stored-pass", false},
		{"missing secret", config.WiFiConfig{PasswordSecret: "office"}, mapSource{}, "", true},
		{"no store", config.WiFiConfig{PasswordSecret: "home"}, nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePassword(tt.wifi, tt.source)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolvePassword() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolvePassword() = %q, want %q", got, tt.want)
			}
		})
	}
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.WiFi.SSID = "lab"
	cfg.Suspend.StateFile = filepath.Join(t.TempDir(), suspend.StatusFileName)
	cfg.Metrics.Listen = ""
	cfg.Simulation.BurstProbability = 0
	cfg.Simulation.TrafficPeriodMs = 5
	return cfg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestAgent_UnreachableAPIsFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.WiFi.SSID = "X"

	rc := sim.DefaultRadioConfig()
	rc.SSID = "home"
	r := sim.NewRadio(rc)

	a, err := NewAgent(cfg, "passphrase", logging.NewLogger(logging.LevelError), WithRadio(r), WithSignals(make(chan os.Signal)))
	if err != nil {
		t.Fatal(err)
	}

	err = a.Run(context.Background())
	if !errors.Is(err, connection.ErrRetriesExhausted) || !errors.Is(err, connection.ErrFatal) {
		t.Fatalf("Run() = %v, want fatal ErrRetriesExhausted", err)
	}
	if r.Joins() != 3 {
		t.Errorf("Joins() = %d, want 3", r.Joins())
	}
	if _, ok := r.PowerSave(); ok {
		t.Error("power save must not be applied without a link")
	}
}

func TestAgent_FatalConnectClosesRedisClient(t *testing.T) {
	cfg := testConfig(t)
	cfg.WiFi.SSID = "X"
	cfg.Redis.Addr = "127.0.0.1:1"

	rc := sim.DefaultRadioConfig()
	rc.SSID = "home"

	a, err := NewAgent(cfg, "passphrase", logging.NewLogger(logging.LevelError), WithRadio(sim.NewRadio(rc)), WithSignals(make(chan os.Signal)))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Run(context.Background()); !errors.Is(err, connection.ErrFatal) {
		t.Fatalf("Run() = %v, want fatal error", err)
	}
	if err := a.publisher.Publish(context.Background()); !errors.Is(err, publish.ErrClosed) {
		t.Errorf("Publish() after Run = %v, want ErrClosed", err)
	}
}

func TestAgent_RunSuspendsAndShutsDown(t *testing.T) {
	cfg := testConfig(t)
	stack := sim.NewStack()
	r := sim.NewRadio(sim.DefaultRadioConfig())
	signals := make(chan os.Signal, 1)

	a, err := NewAgent(cfg, "passphrase", logging.NewLogger(logging.LevelError),
		WithRadio(r), WithStack(stack), WithSignals(signals), WithStatusInterval(10*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	waitFor(t, "suspend", func() bool { return a.Controller().State() == suspend.Suspended })

	ps, ok := r.PowerSave()
	if !ok || ps != (radio.PowerSave{Mode: radio.WithThroughput, ReturnToSleepMs: 10}) {
		t.Errorf("PowerSave() = %v, %v", ps, ok)
	}
	if !a.Address().IsValid() {
		t.Error("address should be assigned")
	}

	// Data-path activity resumes the stack.
	stack.Deliver(1)
	if stack.Suspended() {
		t.Error("delivery while suspended should resume the stack")
	}

	signals <- syscall.SIGUSR1
	waitFor(t, "wake lock", func() bool { return a.Controller().Snapshot().WakeLocks == 1 })

	signals <- syscall.SIGTERM
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("agent did not stop")
	}

	snap, err := suspend.NewStatusStore(cfg.Suspend.StateFile, logging.NewLogger(logging.LevelError)).Load()
	if err != nil {
		t.Fatalf("status file: %v", err)
	}
	if snap.Suspends == 0 || snap.Passes == 0 {
		t.Errorf("status snapshot = %+v", snap)
	}
	if snap.WakeLocks != 0 {
		t.Errorf("wake lock not released on shutdown: %+v", snap)
	}
}

func TestAgent_ContextCancelIsClean(t *testing.T) {
	cfg := testConfig(t)
	a, err := NewAgent(cfg, "passphrase", logging.NewLogger(logging.LevelError), WithSignals(make(chan os.Signal)))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	waitFor(t, "first pass", func() bool { return a.Controller().Snapshot().Passes > 0 })
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("agent did not stop")
	}
}

func TestAgent_MagicPacketResumes(t *testing.T) {
	cfg := testConfig(t)
	cfg.Wake.Listen = "127.0.0.1:0"
	cfg.Wake.MAC = "02:00:00:00:00:01"
	logger := logging.NewLogger(logging.LevelError)

	a, err := NewAgent(cfg, "passphrase", logger, WithSignals(make(chan os.Signal)))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	var addr string
	select {
	case bound := <-a.WakeListener().Ready():
		addr = bound.String()
	case <-time.After(5 * time.Second):
		t.Fatal("wake listener did not start")
	}

	waitFor(t, "suspend", func() bool { return a.Controller().State() == suspend.Suspended })
	if err := wol.NewSender(logger).Send(ctx, cfg.Wake.MAC, addr); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	waitFor(t, "resume", func() bool { return a.Controller().Snapshot().Resumes > 0 })

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() = %v", err)
	}
}

type nopLock struct{}

func (nopLock) Release() error { return nil }

func TestAgent_InhibitsHostSleepWhileAwake(t *testing.T) {
	cfg := testConfig(t)
	cfg.Suspend.InhibitHostSleep = true
	acquire := func(_, _ string) (inhibit.Lock, error) { return nopLock{}, nil }

	stack := sim.NewStack()
	a, err := NewAgent(cfg, "passphrase", logging.NewLogger(logging.LevelError),
		WithStack(stack), WithSignals(make(chan os.Signal)), WithInhibitAcquirer(acquire))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	waitFor(t, "suspend", func() bool { return a.Controller().State() == suspend.Suspended })
	waitFor(t, "inhibitor released", func() bool { return !a.Inhibitor().Held() })

	stack.Deliver(1)
	waitFor(t, "inhibitor reacquired", a.Inhibitor().Held)

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() = %v", err)
	}
}
