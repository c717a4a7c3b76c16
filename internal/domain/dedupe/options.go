package dedupe

// Option applies a configuration option to a Tracker.
type Option func(*Tracker)

// WithMaxSize caps the number of remembered digests. Once full, the oldest
// digest is forgotten first. maxSize <= 0 means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(t *Tracker) {
		t.maxSize = maxSize
	}
}
