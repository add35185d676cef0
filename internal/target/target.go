// Package target implements Cumin's Target value object: the ordered
// set of hosts an execution run selects, together with the batching
// and inter-batch-sleep policy the executor's sliding window follows.
//
// Grounded on the original project's transports.Target, with one
// deliberate divergence recorded in DESIGN.md: batch_size_ratio here
// resolves via ceil(ratio*len(hosts)) with a minimum of 1, not the
// original's round().
package target

import (
	"math"
	"time"

	"github.com/go-cumin/cumin/pkg/cuminerr"
)

// Target describes the hosts to run commands against and how to batch
// them.
type Target struct {
	hosts      []string
	batchSize  int
	batchSleep time.Duration
}

// Option configures a Target at construction time.
type Option func(*target) error

type target struct {
	batchSize      int
	batchSizeRatio float64
	batchSleep     time.Duration
}

// New constructs a Target from an ordered, de-duplicated host list. By
// default the batch size equals the full host count (a single batch)
// and batch_sleep is zero.
func New(hosts []string, opts ...Option) (Target, error) {
	if len(hosts) == 0 {
		return Target{}, cuminerr.NewWorkerError("hosts", "must be a non-empty list")
	}

	cfg := &target{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Target{}, err
		}
	}

	if cfg.batchSize != 0 && cfg.batchSizeRatio != 0 {
		return Target{}, cuminerr.NewWorkerError("batch_size", "cannot set both batch_size and batch_size_ratio")
	}

	batchSize := len(hosts)
	switch {
	case cfg.batchSize != 0:
		batchSize = cfg.batchSize
	case cfg.batchSizeRatio != 0:
		batchSize = int(math.Ceil(cfg.batchSizeRatio * float64(len(hosts))))
		if batchSize < 1 {
			batchSize = 1
		}
	}
	if batchSize > len(hosts) {
		batchSize = len(hosts)
	}

	return Target{hosts: append([]string{}, hosts...), batchSize: batchSize, batchSleep: cfg.batchSleep}, nil
}

// WithBatchSize sets an absolute batch size. Must be positive.
func WithBatchSize(n int) Option {
	return func(t *target) error {
		if n <= 0 {
			return cuminerr.NewWorkerError("batch_size", "must be a positive integer")
		}
		t.batchSize = n
		return nil
	}
}

// WithBatchSizeRatio sets the batch size as a fraction of the host
// count in (0, 1]. Resolved via ceil, minimum 1.
func WithBatchSizeRatio(ratio float64) Option {
	return func(t *target) error {
		if ratio <= 0 || ratio > 1 {
			return cuminerr.NewWorkerError("batch_size_ratio", "must be in (0, 1]")
		}
		t.batchSizeRatio = ratio
		return nil
	}
}

// WithBatchSleep sets the delay the scheduler waits between launching
// successive hosts/batches. Must be non-negative.
func WithBatchSleep(d time.Duration) Option {
	return func(t *target) error {
		if d < 0 {
			return cuminerr.NewWorkerError("batch_sleep", "must be non-negative")
		}
		t.batchSleep = d
		return nil
	}
}

// Hosts returns the full, ordered host list.
func (t Target) Hosts() []string { return t.hosts }

// Len returns the number of hosts.
func (t Target) Len() int { return len(t.hosts) }

// BatchSize returns the resolved batch size.
func (t Target) BatchSize() int { return t.batchSize }

// BatchSleep returns the configured inter-batch sleep duration.
func (t Target) BatchSleep() time.Duration { return t.batchSleep }

// FirstBatch returns the first batchSize hosts.
func (t Target) FirstBatch() []string {
	if t.batchSize >= len(t.hosts) {
		return t.hosts
	}
	return t.hosts[:t.batchSize]
}
