// Package registry tracks sessions and aggregate inference counters for
// one inferd process. All state is in memory and is lost on restart.
package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	rerrors "inferd/internal/errors"
)

// ErrUnknownSession is returned by RecordInference for an id the
// registry does not hold.
var ErrUnknownSession = errors.New("unknown session")

// Id prefixes
const (
	SessionPrefix    = "session_"
	CompletionPrefix = "chatcmpl_"
)

// ModelSource supplies the configured model name. It is consulted when the
// registry is created and again on every Reset.
type ModelSource func() string

// StaticModel returns a ModelSource that always reports name.
func StaticModel(name string) ModelSource {
	return func() string { return name }
}

// Snapshot is an immutable copy of one session.
type Snapshot struct {
	ID              string
	CreatedAt       time.Time
	ModelName       string
	InferenceCount  int64
	LastInferenceAt *time.Time
}

// Stats is a consistent view of the aggregate counters.
type Stats struct {
	ActiveSessions   int
	InferenceCount   int64
	TotalLatencyMs   int64
	AverageLatencyMs float64
	ModelName        string
	CacheEnabled     bool
	BootTime         time.Time
	Uptime           time.Duration
}

type session struct {
	id              string
	createdAt       time.Time
	modelName       string
	inferenceCount  int64
	lastInferenceAt time.Time
	// responseCache is reserved; caching is disabled so it stays empty.
	responseCache map[string]string
}

func (s *session) snapshot() Snapshot {
	snap := Snapshot{
		ID:             s.id,
		CreatedAt:      s.createdAt,
		ModelName:      s.modelName,
		InferenceCount: s.inferenceCount,
	}
	if !s.lastInferenceAt.IsZero() {
		t := s.lastInferenceAt
		snap.LastInferenceAt = &t
	}
	return snap
}

// Registry owns every session and counter. It is safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	sessions       map[string]*session
	activeIDs      []string
	inferenceCount int64
	totalLatencyMs int64
	modelName      string
	cacheEnabled   bool

	bootTime time.Time
	now      func() time.Time
	newID    func() string
	model    ModelSource
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// New creates an empty registry. The boot time is taken here and never changes.
func New(model ModelSource, opts ...Option) *Registry {
	if model == nil {
		model = StaticModel("")
	}
	r := &Registry{
		now:   time.Now,
		newID: func() string { return NewID(SessionPrefix) },
		model: model,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.bootTime = r.now()
	r.clearLocked()
	return r
}

// NewID returns prefix followed by 12 hex characters of a random UUID.
func NewID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// clearLocked installs fresh state. Callers hold the write lock or own r exclusively.
func (r *Registry) clearLocked() {
	r.sessions = make(map[string]*session)
	r.activeIDs = nil
	r.inferenceCount = 0
	r.totalLatencyMs = 0
	r.cacheEnabled = false
	r.modelName = r.model()
}

// CreateSession inserts a new session with a zero count and returns its id.
// An empty modelName records the registry's configured model.
func (r *Registry) CreateSession(modelName string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	for {
		if _, exists := r.sessions[id]; !exists {
			break
		}
		id = r.newID()
	}

	if modelName == "" {
		modelName = r.modelName
	}
	r.sessions[id] = &session{
		id:            id,
		createdAt:     r.now(),
		modelName:     modelName,
		responseCache: map[string]string{},
	}
	r.activeIDs = append(r.activeIDs, id)
	return id
}

// RecordInference counts one completed inference against the session.
// For an unknown id nothing changes and an error wrapping
// ErrUnknownSession is returned. Negative latencies count as zero.
func (r *Registry) RecordInference(id string, latencyMs int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return rerrors.New(rerrors.UnknownSession, fmt.Sprintf("session %q not found", id), ErrUnknownSession)
	}

	if latencyMs < 0 {
		latencyMs = 0
	}
	at := r.now()
	if at.Before(s.createdAt) {
		at = s.createdAt
	}

	s.inferenceCount++
	s.lastInferenceAt = at
	r.inferenceCount++
	r.totalLatencyMs += latencyMs
	return nil
}

// ListSessions returns copies of every session in creation order.
func (r *Registry) ListSessions() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Snapshot, 0, len(r.activeIDs))
	for _, id := range r.activeIDs {
		out = append(out, r.sessions[id].snapshot())
	}
	return out
}

// Get returns a copy of one session.
func (r *Registry) Get(id string) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return Snapshot{}, false
	}
	return s.snapshot(), true
}

// ActiveCount returns the number of sessions created since boot or the last reset.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.activeIDs)
}

// InferenceCount returns the number of inferences recorded.
func (r *Registry) InferenceCount() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.inferenceCount
}

// Stats returns every aggregate counter under one lock acquisition.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := Stats{
		ActiveSessions: len(r.activeIDs),
		InferenceCount: r.inferenceCount,
		TotalLatencyMs: r.totalLatencyMs,
		ModelName:      r.modelName,
		CacheEnabled:   r.cacheEnabled,
		BootTime:       r.bootTime,
		Uptime:         r.uptime(),
	}
	if r.inferenceCount > 0 {
		st.AverageLatencyMs = float64(r.totalLatencyMs) / float64(r.inferenceCount)
	}
	return st
}

// Reset discards every session and counter and re-reads the model name.
// The boot time is kept. Readers see either the old or the new state.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked()
}

// Uptime returns the time since boot. It never goes negative.
func (r *Registry) Uptime() time.Duration {
	return r.uptime()
}

func (r *Registry) uptime() time.Duration {
	d := r.now().Sub(r.bootTime)
	if d < 0 {
		return 0
	}
	return d
}

// BootTime returns the moment the registry was created.
func (r *Registry) BootTime() time.Time {
	return r.bootTime
}

// ModelName returns the model read at construction or at the last Reset.
func (r *Registry) ModelName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.modelName
}

// CacheEnabled is always false; response caching is not implemented.
func (r *Registry) CacheEnabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cacheEnabled
}
