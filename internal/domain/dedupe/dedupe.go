// Package dedupe detects files uploaded twice by comparing content digests.
package dedupe

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Digest returns the hex sha256 of a file body.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Tracker remembers digests and reports repeats. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // oldest at front
	maxSize int
}

// New creates an unbounded Tracker unless WithMaxSize says otherwise.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		seen:  make(map[string]*list.Element),
		order: list.New(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SeenAndRecord reports whether digest was already recorded, recording it if not.
func (t *Tracker) SeenAndRecord(digest string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.seen[digest]; ok {
		return true
	}
	if t.maxSize > 0 && t.order.Len() >= t.maxSize {
		oldest := t.order.Front()
		t.order.Remove(oldest)
		delete(t.seen, oldest.Value.(string))
	}
	t.seen[digest] = t.order.PushBack(digest)
	return false
}

// Unrecord forgets digest so the same content may be accepted again,
// e.g. after the first copy failed to parse.
func (t *Tracker) Unrecord(digest string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if el, ok := t.seen[digest]; ok {
		t.order.Remove(el)
		delete(t.seen, digest)
	}
}

// Size returns the number of remembered digests.
func (t *Tracker) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.order.Len()
}
