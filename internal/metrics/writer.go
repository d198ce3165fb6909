package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"wifisleep/internal/activity"
	"wifisleep/internal/fsutil"
	"wifisleep/internal/logging"
	"wifisleep/internal/suspend"
)

// PassSample is one line of the pass log
type PassSample struct {
	Timestamp     time.Time `json:"ts"`
	Decision      string    `json:"decision"`
	ElapsedMs     int64     `json:"elapsed_ms"`
	LongestIdleMs int64     `json:"longest_idle_ms"`
	Edges         int       `json:"edges"`
}

// Writer appends monitoring passes to a JSONL file. It satisfies
// suspend.Recorder; transitions and failures are not logged.
type Writer struct {
	path   string
	logger *logging.Logger

	mu sync.Mutex
}

// NewWriter creates a pass log writer for path
func NewWriter(path string, logger *logging.Logger) *Writer {
	return &Writer{path: path, logger: logger}
}

// Write appends a sample
func (w *Writer) Write(sample PassSample) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("failed to marshal sample: %w", err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), fsutil.DefaultStatePermissions); err != nil {
		return fmt.Errorf("failed to create pass log directory: %w", err)
	}
	file, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, fsutil.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("failed to open pass log: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("failed to write sample: %w", err)
	}
	return nil
}

// ObservePass logs the pass, warning on write failures
func (w *Writer) ObservePass(res activity.Result) {
	sample := PassSample{
		Timestamp:     time.Now().UTC(),
		Decision:      res.Decision.String(),
		ElapsedMs:     res.Elapsed.Milliseconds(),
		LongestIdleMs: res.LongestIdle.Milliseconds(),
		Edges:         res.Edges,
	}
	if err := w.Write(sample); err != nil {
		w.logger.Warn("metrics.pass_log.write_failed", "Failed to write pass sample", map[string]interface{}{
			"path":  w.path,
			"error": err.Error(),
		})
	}
}

// ObserveTransition is a no-op; the pass log records passes only
func (w *Writer) ObserveTransition(_, _ suspend.State) {}

// ObserveSuspendFailure is a no-op; the pass log records passes only
func (w *Writer) ObserveSuspendFailure() {}

// Multi fans controller events out to several recorders
type Multi []suspend.Recorder

// ObservePass forwards the pass result to every recorder
func (m Multi) ObservePass(res activity.Result) {
	for _, r := range m {
		r.ObservePass(res)
	}
}

// ObserveTransition forwards the transition to every recorder
func (m Multi) ObserveTransition(from, to suspend.State) {
	for _, r := range m {
		r.ObserveTransition(from, to)
	}
}

// ObserveSuspendFailure forwards the failure to every recorder
func (m Multi) ObserveSuspendFailure() {
	for _, r := range m {
		r.ObserveSuspendFailure()
	}
}
