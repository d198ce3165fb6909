// Package agent runs the wifisleep service: it joins the access point,
// applies power save, and drives the network suspend loop until stopped.
package agent

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"wifisleep/internal/config"
	"wifisleep/internal/connection"
	"wifisleep/internal/inhibit"
	"wifisleep/internal/logging"
	"wifisleep/internal/metrics"
	"wifisleep/internal/publish"
	"wifisleep/internal/radio"
	"wifisleep/internal/sim"
	"wifisleep/internal/suspend"
	"wifisleep/internal/wol"
)

const (
	tracerName            = "wifisleep/internal/agent"
	defaultStatusInterval = 500 * time.Millisecond
)

// PasswordSource resolves named secrets. *secrets.Store implements it.
type PasswordSource interface {
	Get(name string) ([]byte, error)
}

// ResolvePassword returns the passphrase to join with. A configured
// password_secret wins over the inline password.
func ResolvePassword(wifi config.WiFiConfig, source PasswordSource) (string, error) {
	if wifi.PasswordSecret == "" {
		return wifi.Password, nil
	}
	if source == nil {
		return "", fmt.Errorf("password secret %q configured but no secret store available", wifi.PasswordSecret)
	}
	value, err := source.Get(wifi.PasswordSecret)
	if err != nil {
		return "", fmt.Errorf("resolve wifi password: %w", err)
	}
	return string(value), nil
}

// Agent represents the background service
type Agent struct {
	config config.Config
	logger *logging.Logger

	radio   *sim.Radio
	stack   *sim.Stack
	traffic *sim.Traffic

	conn       *connection.Manager
	controller *suspend.Controller
	status     *suspend.StatusStore
	recorder   *metrics.Recorder
	registry   *prometheus.Registry
	wake       *wol.Listener
	inhibitor  *inhibit.Manager
	publisher  *publish.Publisher

	statusInterval time.Duration
	sigChan        chan os.Signal
	startTime      time.Time
	address        netip.Addr
	releaseLock    func()
}

// Option customizes an Agent
type Option func(*agentOptions)

type agentOptions struct {
	radio          *sim.Radio
	stack          *sim.Stack
	statusInterval time.Duration
	signals        chan os.Signal
	acquire        inhibit.Acquirer
}

// WithRadio replaces the simulated WLAN driver
func WithRadio(r *sim.Radio) Option {
	return func(o *agentOptions) { o.radio = r }
}

// WithStack replaces the simulated network stack
func WithStack(s *sim.Stack) Option {
	return func(o *agentOptions) { o.stack = s }
}

// WithStatusInterval sets how often the status file is written
func WithStatusInterval(d time.Duration) Option {
	return func(o *agentOptions) { o.statusInterval = d }
}

// WithSignals feeds signals from ch instead of the process
func WithSignals(ch chan os.Signal) Option {
	return func(o *agentOptions) { o.signals = ch }
}

// WithInhibitAcquirer replaces the logind sleep inhibitor
func WithInhibitAcquirer(acquire inhibit.Acquirer) Option {
	return func(o *agentOptions) { o.acquire = acquire }
}

// NewAgent wires the service from a validated configuration. password is
// the resolved passphrase.
func NewAgent(cfg config.Config, password string, logger *logging.Logger, opts ...Option) (*Agent, error) {
	o := agentOptions{statusInterval: defaultStatusInterval}
	for _, opt := range opts {
		opt(&o)
	}

	if o.radio == nil {
		rc := sim.DefaultRadioConfig()
		rc.Security, _ = connection.ParseSecurity(cfg.WiFi.Security)
		o.radio = sim.NewRadio(rc)
	}
	if o.stack == nil {
		o.stack = sim.NewStack()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := metrics.NewRecorder(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	recorders := metrics.Multi{recorder}
	if cfg.Metrics.PassLog != "" {
		recorders = append(recorders, metrics.NewWriter(cfg.Metrics.PassLog, logger))
	}

	var inhibitor *inhibit.Manager
	if cfg.Suspend.InhibitHostSleep {
		inhibitor = inhibit.NewManager(o.acquire, logger)
		recorders = append(recorders, inhibitor)
	}

	var controller *suspend.Controller
	var publisher *publish.Publisher
	if cfg.Redis.Addr != "" {
		publisher = publish.NewPublisher(cfg.Redis.Addr, cfg.Redis.Key, func() suspend.Snapshot {
			return controller.Snapshot()
		}, logger)
		recorders = append(recorders, publisher)
	}

	link := radio.NewLink(o.radio, logger)
	controller = suspend.NewController(cfg.ControllerConfig(), o.stack, link, logger, suspend.WithRecorder(recorders))
	o.stack.SetWakeHandler(controller.Wake)

	traffic := sim.NewTraffic(sim.TrafficConfig{
		Period:           time.Duration(cfg.Simulation.TrafficPeriodMs) * time.Millisecond,
		BurstProbability: cfg.Simulation.BurstProbability,
		Seed:             cfg.Simulation.Seed,
	}, o.stack, logger)

	var wake *wol.Listener
	if cfg.Wake.Listen != "" {
		wake, err = wol.NewListener(cfg.Wake.Listen, cfg.Wake.MAC, controller.Wake, logger)
		if err != nil {
			return nil, err
		}
	}

	return &Agent{
		config:         cfg,
		logger:         logger,
		radio:          o.radio,
		stack:          o.stack,
		traffic:        traffic,
		conn:           connection.NewManager(o.radio, cfg.ConnectionConfig(password), logger),
		controller:     controller,
		status:         suspend.NewStatusStore(cfg.Suspend.StateFile, logger),
		recorder:       recorder,
		registry:       registry,
		wake:           wake,
		inhibitor:      inhibitor,
		publisher:      publisher,
		statusInterval: o.statusInterval,
		sigChan:        o.signals,
		startTime:      time.Now(),
	}, nil
}

// Controller exposes the suspend controller
func (a *Agent) Controller() *suspend.Controller {
	return a.controller
}

// WakeListener returns the magic packet listener, nil when disabled
func (a *Agent) WakeListener() *wol.Listener {
	return a.wake
}

// Inhibitor returns the host sleep inhibitor, nil when disabled
func (a *Agent) Inhibitor() *inhibit.Manager {
	return a.inhibitor
}

// Address returns the address assigned at connect time
func (a *Agent) Address() netip.Addr {
	return a.address
}

// Run connects and then runs the suspend loop alongside simulated traffic,
// the metrics endpoint, the wake listener and the status writer until ctx is done or a signal
// asks for shutdown. Connection failures are returned as fatal errors.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("agent.started", "Agent service started", map[string]interface{}{
		"pid":  os.Getpid(),
		"ssid": a.config.WiFi.SSID,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if a.publisher != nil {
		defer func() { _ = a.publisher.Close() }()
	}

	connectCtx, span := otel.Tracer(tracerName).Start(ctx, "wifisleep.connect")
	addr, err := a.conn.Connect(connectCtx)
	a.recorder.ObserveConnect(a.conn.Attempt().RetryCount, err)
	span.SetAttributes(
		attribute.String("ssid", a.config.WiFi.SSID),
		attribute.Int("retries", a.conn.Attempt().RetryCount),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "connect failed")
	}
	span.End()
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		a.logger.Error("agent.connect.failed", "Cannot continue without a WLAN link", map[string]interface{}{
			"error": err.Error(),
			"fatal": errors.Is(err, connection.ErrFatal),
		})
		return fmt.Errorf("connect: %w", err)
	}
	a.address = addr

	sigChan := a.sigChan
	if sigChan == nil {
		sigChan = make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGUSR1)
		defer signal.Stop(sigChan)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := a.controller.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error { return a.traffic.Run(gctx) })
	g.Go(func() error { return a.writeStatus(gctx) })
	g.Go(func() error { return a.handleSignals(gctx, sigChan, cancel) })
	if a.config.Metrics.Listen != "" {
		g.Go(func() error { return a.serveMetrics(gctx) })
	}
	if a.wake != nil {
		g.Go(func() error { return a.wake.Run(gctx) })
	}
	if a.inhibitor != nil {
		g.Go(func() error { return a.inhibitor.Run(gctx) })
	}
	if a.publisher != nil {
		g.Go(func() error { return a.publisher.Run(gctx, publish.DefaultInterval) })
	}

	err = g.Wait()
	if a.releaseLock != nil {
		a.releaseLock()
	}
	a.saveStatus()

	a.logger.Info("agent.stopped", "Agent service stopped", map[string]interface{}{
		"uptime_seconds": time.Since(a.startTime).Seconds(),
	})
	return err
}

func (a *Agent) handleSignals(ctx context.Context, sigChan <-chan os.Signal, cancel context.CancelFunc) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-sigChan:
			a.logger.Info("agent.signal_received", "Received signal", map[string]interface{}{
				"signal": sig.String(),
			})

			switch sig {
			case syscall.SIGHUP:
				a.logStatus()
			case syscall.SIGUSR1:
				a.toggleWakeLock()
			case syscall.SIGTERM, syscall.SIGINT:
				a.logger.Info("agent.shutdown", "Initiating graceful shutdown", nil)
				cancel()
				return nil
			}
		}
	}
}

// toggleWakeLock holds the stack awake until the next toggle
func (a *Agent) toggleWakeLock() {
	if a.releaseLock != nil {
		a.releaseLock()
		a.releaseLock = nil
		return
	}
	a.releaseLock = a.controller.AcquireWakeLock()
}

func (a *Agent) writeStatus(ctx context.Context) error {
	ticker := time.NewTicker(a.statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.saveStatus()
		}
	}
}

func (a *Agent) saveStatus() {
	if err := a.status.Save(a.controller.Snapshot()); err != nil {
		a.logger.Warn("agent.status.save_failed", "Failed to save suspend status", map[string]interface{}{
			"path":  a.status.Path(),
			"error": err.Error(),
		})
	}
}

func (a *Agent) logStatus() {
	snap := a.controller.Snapshot()
	a.logger.Info("agent.status", "Current suspend status", map[string]interface{}{
		"state":            snap.State,
		"passes":           snap.Passes,
		"suspends":         snap.Suspends,
		"resumes":          snap.Resumes,
		"suspend_failures": snap.SuspendFailures,
		"wake_locks":       snap.WakeLocks,
		"uptime_seconds":   time.Since(a.startTime).Seconds(),
	})
}
