package filetype

import "github.com/rs/zerolog"

// Option configures [New].
type Option func(*options)

// WithTypes restricts matching to the named types. Without it every known
// type is active.
func WithTypes(names ...string) Option {
	return func(o *options) {
		o.include = append(o.include, names...)
	}
}

// WithoutTypes removes the named types from the active set. Applied after
// [WithTypes].
func WithoutTypes(names ...string) Option {
	return func(o *options) {
		o.exclude = append(o.exclude, names...)
	}
}

// WithConfig adds user-defined types on top of the builtin table.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithOutput sets the function that receives accepted paths from
// [Classifier.Consider].
func WithOutput(fn func(path string)) Option {
	return func(o *options) {
		o.output = fn
	}
}

// WithLogger sets the logger for per-file decisions (trace level) and read
// failures (debug level). Defaults to a disabled logger.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.log = &log
	}
}

type options struct {
	include []string
	exclude []string
	config  Config
	output  func(path string)
	log     *zerolog.Logger
}
