package dirtree

import "github.com/rs/zerolog"

// Option configures [Walk].
// Options are applied in order.
type Option func(*options)

// WithWorkers sets the number of directory workers.
//
// # Default
//
// 1: a single loop owns the queue and visits directories strictly in FIFO
// order, which makes discovery breadth-first across depth.
//
// # Parallel mode
//
// Values > 1 start a coordinator goroutine that owns the queue and hands
// directories to n workers. Every reachable file is still delivered exactly
// once, but directories at different depths may be visited concurrently, so
// breadth-first order is no longer guaranteed. Sink calls stay serialized.
//
// Values <= 0 use the default. Values above 256 are clamped.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.Workers = n
	}
}

// WithOnError registers an error handler for [IOError]s.
//
// count is the cumulative number of errors including the current one. The
// handler is serialized across workers.
//
// Return value controls error collection:
//   - true:  collect the error in the returned []error slice
//   - false: discard the error
//
// To stop walking, cancel the context passed to [Walk].
//
// If nil, all errors are collected.
func WithOnError(fn func(err error, count int) bool) Option {
	return func(o *options) {
		o.OnError = fn
	}
}

// WithLogger sets the logger used for diagnostics (open failures, skipped
// entries, descriptor anomalies). Defaults to a disabled logger.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.Logger = &log
	}
}

// WithHandleTable makes the walk use t for shared descriptors instead of a
// private table. Useful to inspect [HandleStats] after the walk, or to share
// one table across walks.
func WithHandleTable(t *HandleTable) Option {
	return func(o *options) {
		o.Handles = t
	}
}

// WithReadBufferSize sets the per-worker directory read buffer size in bytes.
// Values <= 0 use the default (32KB).
func WithReadBufferSize(n int) Option {
	return func(o *options) {
		o.ReadBufSize = n
	}
}

type options struct {
	// Workers is the directory worker count.
	Workers int
	// OnError handles IO errors.
	OnError func(err error, count int) (collect bool)
	// Logger receives diagnostics; nil means disabled.
	Logger *zerolog.Logger
	// Handles is the shared descriptor table; nil means a private one.
	Handles *HandleTable
	// ReadBufSize is the directory read buffer size.
	ReadBufSize int

	hooks *dirHooks
}

const (
	// dirReadBufSize is the default size of the directory-entry read buffer.
	// On Linux it backs getdents64 parsing; large enough to read many entries
	// per syscall, small enough to stay in L1 cache.
	dirReadBufSize = 32 * 1024

	// minReadBufSize keeps getdents64 from failing with EINVAL on long names.
	minReadBufSize = 1024

	// maxWorkers caps worker counts to avoid excessive goroutine overhead.
	maxWorkers = 256
)

// applyOptions merges option values and applies defaults.
func applyOptions(opts []Option) options {
	cfg := options{}

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	if cfg.Workers > maxWorkers {
		cfg.Workers = maxWorkers
	}

	if cfg.ReadBufSize <= 0 {
		cfg.ReadBufSize = dirReadBufSize
	}

	if cfg.ReadBufSize < minReadBufSize {
		cfg.ReadBufSize = minReadBufSize
	}

	if cfg.Logger == nil {
		nop := zerolog.Nop()
		cfg.Logger = &nop
	}

	if cfg.Handles == nil {
		cfg.Handles = NewHandleTable(*cfg.Logger)
	}

	return cfg
}
