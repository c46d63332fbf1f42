// Package persistence keeps a durable log of document updates per note and replays it when a note is reopened.
package persistence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/knowtis/knowtis-collab/src/collab/internal/crdt"
	tally "github.com/uber-go/tally"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	_configKey        = "persistence"
	_defaultDSN       = "memory://"
	_defaultTrimSize  = 500
	_writeQueueSize   = 256
	_operationTimeout = 5 * time.Second
)

// Config selects the backend and the compaction threshold.
type Config struct {
	DSN      string `yaml:"dsn"`
	TrimSize int    `yaml:"trimSize"`
}

// Module provides the persistence Store.
var Module = fx.Options(
	fx.Provide(New),
)

// Params are inbound parameters to initialize the Store.
type Params struct {
	fx.In

	Config    config.Provider
	Lifecycle fx.Lifecycle
	Logger    *zap.SugaredLogger
	Stats     tally.Scope
}

// Store opens persistence handles on a shared backend.
type Store struct {
	backend  Backend
	trimSize int
	logger   *zap.SugaredLogger
	stats    tally.Scope
}

// New opens the configured backend and closes it when the application stops.
func New(p Params) (*Store, error) {
	cfg := Config{}
	if v := p.Config.Get(_configKey); v.HasValue() {
		if err := v.Populate(&cfg); err != nil {
			return nil, fmt.Errorf("loading %s config: %w", _configKey, err)
		}
	}
	if cfg.DSN == "" {
		cfg.DSN = _defaultDSN
	}

	ctx, cancel := context.WithTimeout(context.Background(), _operationTimeout)
	defer cancel()
	backend, err := OpenBackend(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return backend.Close()
		},
	})
	return NewStore(backend, cfg.TrimSize, p.Logger, p.Stats), nil
}

// NewStore wraps an opened backend. A trimSize of zero or less uses the default.
func NewStore(backend Backend, trimSize int, logger *zap.SugaredLogger, stats tally.Scope) *Store {
	if trimSize <= 0 {
		trimSize = _defaultTrimSize
	}
	return &Store{
		backend:  backend,
		trimSize: trimSize,
		logger:   logger.With("component", "persistence"),
		stats:    stats.SubScope("persistence"),
	}
}

// Key returns the backend key of a note.
func Key(noteID string) string {
	return "note-" + noteID
}

// Open replays the stored updates of a note into doc, then records every later update of doc that it did not
// apply itself. The document is fully loaded when Open returns.
func (s *Store) Open(ctx context.Context, noteID string, doc *crdt.Doc) (*Handle, error) {
	h := &Handle{
		store:  s,
		key:    Key(noteID),
		doc:    doc,
		logger: s.logger.With("note", noteID),
		queue:  make(chan pendingWrite, _writeQueueSize),
		done:   make(chan struct{}),
	}

	records, err := s.backend.Load(ctx, h.key)
	if err != nil {
		return nil, err
	}
	for i, record := range records {
		if err := doc.ApplyUpdate(record, h); err != nil {
			h.logger.Warnf("skipping stored update %d: %v", i, err)
			s.stats.Counter("corrupt_records").Inc(1)
		}
	}
	h.count = len(records)
	s.stats.Counter("loaded_records").Inc(int64(len(records)))

	h.unsubscribe = doc.OnUpdate(func(update []byte, origin any) {
		if origin == h {
			return
		}
		h.send(pendingWrite{update: update})
	})
	go h.write()
	return h, nil
}

// Handle persists the updates of one document.
type Handle struct {
	store       *Store
	key         string
	doc         *crdt.Doc
	logger      *zap.SugaredLogger
	unsubscribe func()

	// queueMu guards sends on queue against its close.
	queueMu sync.RWMutex
	closed  bool
	queue   chan pendingWrite
	done    chan struct{}

	mu    sync.Mutex
	count int
	err   error

	destroyOnce sync.Once
}

// pendingWrite is an update to append, or a flush marker when ack is set.
type pendingWrite struct {
	update []byte
	ack    chan struct{}
}

// Key returns the backend key this handle writes to.
func (h *Handle) Key() string {
	return h.key
}

func (h *Handle) send(w pendingWrite) bool {
	h.queueMu.RLock()
	defer h.queueMu.RUnlock()
	if h.closed {
		return false
	}
	h.queue <- w
	return true
}

func (h *Handle) write() {
	defer close(h.done)
	for w := range h.queue {
		if w.ack != nil {
			close(w.ack)
			continue
		}
		h.append(w.update)
	}
}

func (h *Handle) append(update []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), _operationTimeout)
	defer cancel()

	count, err := h.store.backend.Append(ctx, h.key, update)
	if err == nil && count >= h.store.trimSize {
		if err = h.store.backend.Replace(ctx, h.key, h.doc.EncodeStateAsUpdate()); err == nil {
			count = 1
			h.store.stats.Counter("compactions").Inc(1)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.logger.Errorf("persisting update: %v", err)
		h.store.stats.Counter("write_errors").Inc(1)
		h.err = err
		return
	}
	h.store.stats.Counter("appended_records").Inc(1)
	h.count = count
}

// Flush blocks until every update queued so far has been written.
func (h *Handle) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	if !h.send(pendingWrite{ack: ack}) {
		return nil
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Count returns the number of records stored for the note after the last completed write.
func (h *Handle) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Destroy stops recording updates, waits for queued writes and returns the last write error, if any.
// It is safe to call more than once.
func (h *Handle) Destroy() error {
	h.destroyOnce.Do(func() {
		h.unsubscribe()
		h.queueMu.Lock()
		h.closed = true
		close(h.queue)
		h.queueMu.Unlock()
		<-h.done
	})
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}
