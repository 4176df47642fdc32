// Package config generalizes the teacher's hardcoded "test.db" and
// page/key constants into an Options struct, built with functional
// options in the style RichardKnop/minisql parameterizes its pager
// constructor (NewPager(file, pageSize, maxCachedPages)).
package config

const (
	DefaultPageCacheLimit = 4096
	DefaultWALSuffix      = ".wal"
)

// Options controls how engine.Open wires up the pager, catalog and
// optional WAL.
type Options struct {
	Path            string
	PageCacheLimit  int
	WALEnabled      bool
	WALPath         string
}

type Option func(*Options)

// New builds Options for the database file at path, applying any
// overrides in order.
func New(path string, opts ...Option) Options {
	o := Options{
		Path:           path,
		PageCacheLimit: DefaultPageCacheLimit,
		WALEnabled:     false,
		WALPath:        path + DefaultWALSuffix,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithPageCacheLimit overrides the static page cache bound (spec §4.1:
// "bounded by a static maximum page count").
func WithPageCacheLimit(n int) Option {
	return func(o *Options) { o.PageCacheLimit = n }
}

// WithWAL enables the optional write-ahead log at the given path.
func WithWAL(path string) Option {
	return func(o *Options) {
		o.WALEnabled = true
		if path != "" {
			o.WALPath = path
		}
	}
}
