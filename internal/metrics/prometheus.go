package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wifisleep/internal/activity"
	"wifisleep/internal/suspend"
)

// Recorder exports suspend controller and connection events as Prometheus
// metrics. It satisfies suspend.Recorder.
type Recorder struct {
	gatherer prometheus.Gatherer

	Passes          *prometheus.CounterVec
	Transitions     *prometheus.CounterVec
	SuspendFailures prometheus.Counter
	State           prometheus.Gauge
	LongestIdle     prometheus.Histogram
	ConnectAttempts *prometheus.CounterVec
}

// NewRecorder registers the metrics against reg, defaulting to the global
// Prometheus registry when nil.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	passes, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wifisleep_monitor_passes_total",
		Help: "Inactivity monitoring passes, labeled by decision.",
	}, []string{"decision"}), "wifisleep_monitor_passes_total")
	if err != nil {
		return nil, err
	}

	transitions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wifisleep_state_transitions_total",
		Help: "Suspend controller state transitions.",
	}, []string{"from", "to"}), "wifisleep_state_transitions_total")
	if err != nil {
		return nil, err
	}

	failures, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wifisleep_suspend_failures_total",
		Help: "Network stack suspend requests that failed.",
	}), "wifisleep_suspend_failures_total")
	if err != nil {
		return nil, err
	}

	state, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wifisleep_controller_state",
		Help: "Current controller state (0 monitoring, 1 suspending, 2 suspended, 3 resume_pending).",
	}), "wifisleep_controller_state")
	if err != nil {
		return nil, err
	}

	idle, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wifisleep_pass_longest_idle_seconds",
		Help:    "Longest quiet stretch observed per monitoring pass.",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.15, 0.2, 0.25, 0.3, 0.5, 1},
	}), "wifisleep_pass_longest_idle_seconds")
	if err != nil {
		return nil, err
	}

	connects, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wifisleep_connect_attempts_total",
		Help: "Association attempts, labeled by result.",
	}, []string{"result"}), "wifisleep_connect_attempts_total")
	if err != nil {
		return nil, err
	}

	return &Recorder{
		gatherer:        gatherer,
		Passes:          passes,
		Transitions:     transitions,
		SuspendFailures: failures,
		State:           state,
		LongestIdle:     idle,
		ConnectAttempts: connects,
	}, nil
}

// ObservePass records one monitoring verdict
func (r *Recorder) ObservePass(res activity.Result) {
	if r == nil {
		return
	}
	r.Passes.WithLabelValues(res.Decision.String()).Inc()
	r.LongestIdle.Observe(res.LongestIdle.Seconds())
}

// ObserveTransition records a state change and updates the state gauge
func (r *Recorder) ObserveTransition(from, to suspend.State) {
	if r == nil {
		return
	}
	r.Transitions.WithLabelValues(from.String(), to.String()).Inc()
	r.State.Set(float64(to))
}

// ObserveSuspendFailure counts a failed stack suspend
func (r *Recorder) ObserveSuspendFailure() {
	if r == nil {
		return
	}
	r.SuspendFailures.Inc()
}

// ObserveConnect records the outcome of a Connect call. attempts is the
// number of Join calls made.
func (r *Recorder) ObserveConnect(attempts int, err error) {
	if r == nil {
		return
	}
	failed := attempts
	if err == nil && attempts > 0 {
		failed--
		r.ConnectAttempts.WithLabelValues("success").Inc()
	}
	if failed > 0 {
		r.ConnectAttempts.WithLabelValues("failure").Add(float64(failed))
	}
}

// Handler exposes a ready-to-use /metrics handler
func (r *Recorder) Handler() http.Handler {
	gatherer := r.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}
