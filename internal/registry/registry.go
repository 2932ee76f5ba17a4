// Package registry owns the set of notification targets and its
// file-backed persistence.
package registry

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Registry is the subscriber set. Phone identifiers are normalized before
// storage and the full set is rewritten to the backing file on every
// mutation. The in-memory set stays authoritative when a write fails.
type Registry struct {
	mu     sync.RWMutex
	path   string
	set    map[string]struct{}
	logger *zap.Logger
}

// New loads the subscriber set from path, or seeds it from admins when no
// persisted file exists yet. The seeded set is written out immediately so
// the file exists from first startup.
func New(path string, admins []string, logger *zap.Logger) (*Registry, error) {
	r := &Registry{
		path:   path,
		set:    make(map[string]struct{}),
		logger: logger,
	}

	loaded, err := r.load()
	if err != nil {
		return nil, err
	}
	if !loaded {
		for _, phone := range admins {
			if p := Normalize(phone); p != "" {
				r.set[p] = struct{}{}
			}
		}
		if err := r.persistLocked(); err != nil {
			// Best-effort persistence: the seeded set remains usable.
			logger.Warn("persist seeded subscribers failed", zap.Error(err))
		}
	}

	return r, nil
}

// Normalize strips separator characters from a phone identifier.
func Normalize(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', '.', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
}

// Subscribe adds a phone identifier to the set. Returns false if it was
// already subscribed. The set is persisted synchronously; a persistence
// failure is logged but does not roll back the mutation.
func (r *Registry) Subscribe(phone string) (added bool, err error) {
	p := Normalize(phone)
	if p == "" {
		return false, fmt.Errorf("empty phone identifier")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.set[p]; ok {
		return false, nil
	}
	r.set[p] = struct{}{}

	if err := r.persistLocked(); err != nil {
		r.logger.Error("persist subscribers failed", zap.Error(err))
	}
	return true, nil
}

// Unsubscribe removes a phone identifier. Returns false when the number
// was never subscribed; in that case the persisted file is not rewritten.
func (r *Registry) Unsubscribe(phone string) (found bool, err error) {
	p := Normalize(phone)
	if p == "" {
		return false, fmt.Errorf("empty phone identifier")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.set[p]; !ok {
		return false, nil
	}
	delete(r.set, p)

	if err := r.persistLocked(); err != nil {
		r.logger.Error("persist subscribers failed", zap.Error(err))
	}
	return true, nil
}

// List returns the subscribers in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.set))
	for p := range r.set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether a phone identifier is subscribed.
func (r *Registry) Contains(phone string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.set[Normalize(phone)]
	return ok
}

// Count returns the number of subscribers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.set)
}

// load reads the persisted set. Returns loaded=false when the file does
// not exist.
func (r *Registry) load() (loaded bool, err error) {
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("open subscriber file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if p := Normalize(scanner.Text()); p != "" {
			r.set[p] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("read subscriber file: %w", err)
	}
	return true, nil
}

// persistLocked rewrites the full set to the backing file, one identifier
// per line. Must be called with the mutex held.
func (r *Registry) persistLocked() error {
	var sb strings.Builder
	subscribers := make([]string, 0, len(r.set))
	for p := range r.set {
		subscribers = append(subscribers, p)
	}
	sort.Strings(subscribers)
	for _, p := range subscribers {
		sb.WriteString(p)
		sb.WriteByte('\n')
	}

	if err := os.WriteFile(r.path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("write subscriber file: %w", err)
	}
	return nil
}
