package sim

import (
	"context"
	"math/rand/v2"
	"time"

	"wifisleep/internal/logging"
)

// maxBurst bounds the packets in one simulated burst
const maxBurst = 8

// TrafficConfig shapes the synthetic workload
type TrafficConfig struct {
	Period           time.Duration
	BurstProbability float64
	// Seed makes bursts reproducible; zero picks a time-based seed
	Seed int64
}

// Traffic delivers random packet bursts to a Stack
type Traffic struct {
	config TrafficConfig
	stack  *Stack
	rng    *rand.Rand
	logger *logging.Logger
	bursts uint64
}

// NewTraffic creates a generator for stack
func NewTraffic(config TrafficConfig, stack *Stack, logger *logging.Logger) *Traffic {
	seed := uint64(config.Seed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Traffic{
		config: config,
		stack:  stack,
		rng:    rand.New(rand.NewPCG(seed, seed>>1|1)),
		logger: logger,
	}
}

// Step rolls once and delivers a burst on success. It returns the number of
// packets delivered.
func (t *Traffic) Step() int {
	if t.rng.Float64() >= t.config.BurstProbability {
		return 0
	}
	n := 1 + t.rng.IntN(maxBurst)
	t.bursts++
	wasSuspended := t.stack.Suspended()
	t.stack.Deliver(n)

	t.logger.Debug("sim.traffic.burst", "Delivered simulated packets", map[string]interface{}{
		"packets":         n,
		"while_suspended": wasSuspended,
	})
	return n
}

// Run steps every Period until ctx is done
func (t *Traffic) Run(ctx context.Context) error {
	period := t.config.Period
	if period <= 0 {
		period = 50 * time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	t.logger.Info("sim.traffic.started", "Simulated traffic started", map[string]interface{}{
		"period_ms":         period.Milliseconds(),
		"burst_probability": t.config.BurstProbability,
	})

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("sim.traffic.stopped", "Simulated traffic stopped", map[string]interface{}{
				"bursts": t.bursts,
			})
			return nil
		case <-ticker.C:
			t.Step()
		}
	}
}
