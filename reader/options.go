package reader

import "github.com/diskbufio/diskbuf/internal/logging"

// DefaultMaxRecordSize bounds the length prefix of a frame before any
// allocation is attempted for its payload (P7). 64 MiB is generous for a
// single record; callers with smaller or larger records should override
// it with WithMaxRecordSize.
const DefaultMaxRecordSize = 64 << 20

// Option configures a Reader at construction time.
type Option func(*Reader)

// WithMaxRecordSize overrides DefaultMaxRecordSize. A frame whose length
// prefix exceeds this is treated as corruption of the containing file
// without attempting to allocate a buffer for it.
func WithMaxRecordSize(n uint32) Option {
	return func(r *Reader) {
		r.maxRecordSize = n
	}
}

// WithLogger sets the logger used for roll and corruption diagnostics and
// for the Fatalf call on an invariant violation.
func WithLogger(logger logging.Logger) Option {
	return func(r *Reader) {
		r.logger = logging.OrDefault(logger)
	}
}

// WithReporter sets the observability callback for corruption, skip, and
// roll events. The default Reporter discards every event.
func WithReporter(reporter Reporter) Option {
	return func(r *Reader) {
		if reporter != nil {
			r.reporter = reporter
		}
	}
}
