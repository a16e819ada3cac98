package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrCheckoutInProgress is returned by Checkout while another checkout of
// the same cart has not finished.
var ErrCheckoutInProgress = errors.New("checkout already in progress")

// Persister saves session carts outside the process. Load reports false when
// nothing is stored for the key.
type Persister interface {
	Load(ctx context.Context, key string) (State, bool, error)
	Save(ctx context.Context, key string, state State) error
	Delete(ctx context.Context, key string) error
}

// session is one cart in the registry. mu serialises its operations,
// persistence round trips included; the fields below mu are guarded by it.
// refs and lastUsed are guarded by Registry.mu.
type session struct {
	mu          sync.Mutex
	store       *Store
	checkingOut bool

	refs     int
	lastUsed time.Time
}

// Registry owns the carts of all sessions. Each cart has its own lock, so a
// cart has at most one writer at a time and a slow persister only holds up
// the cart being saved. Empty carts are not kept, and carts idle for longer
// than the idle timeout are evicted from memory.
type Registry struct {
	mu        sync.Mutex
	sessions  map[string]*session
	persister Persister
	newSlotID func() SlotID
	logger    *zap.Logger

	idleTimeout time.Duration
	done        chan struct{}
	stopOnce    sync.Once
}

type RegistryOption func(*Registry)

// WithPersister keeps a copy of every cart in p. Carts missing from memory
// are loaded from it on first access.
func WithPersister(p Persister) RegistryOption {
	return func(r *Registry) { r.persister = p }
}

// WithRegistrySlotIDs sets the slot id generator of every store the registry
// creates.
func WithRegistrySlotIDs(gen func() SlotID) RegistryOption {
	return func(r *Registry) { r.newSlotID = gen }
}

// WithIdleTimeout evicts carts not touched for d. With a persister an
// evicted cart is loaded again on its next access; without one it is gone.
func WithIdleTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.idleTimeout = d }
}

func NewRegistry(logger *zap.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		sessions:  make(map[string]*session),
		newSlotID: NewSlotID,
		logger:    logger,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.idleTimeout > 0 {
		go r.cleanup()
	}
	return r
}

func (r *Registry) cleanup() {
	interval := r.idleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			if n := r.evictIdle(time.Now(), r.idleTimeout); n > 0 {
				r.logger.Debug("evicted idle carts", zap.Int("count", n))
			}
		}
	}
}

// evictIdle drops carts nobody is using that were last touched more than
// idle before now, and returns how many it dropped.
func (r *Registry) evictIdle(now time.Time, idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for key, s := range r.sessions {
		if s.refs == 0 && now.Sub(s.lastUsed) > idle {
			delete(r.sessions, key)
			evicted++
		}
	}
	return evicted
}

// Stop ends the eviction goroutine.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.done) })
}

// acquire returns the session for key with its lock held, loading the cart
// from the persister the first time.
func (r *Registry) acquire(ctx context.Context, key string) *session {
	r.mu.Lock()
	s, ok := r.sessions[key]
	if !ok {
		s = &session{}
		r.sessions[key] = s
	}
	s.refs++
	r.mu.Unlock()

	s.mu.Lock()
	if s.store == nil {
		s.store = NewStore(WithState(r.load(ctx, key)), WithSlotIDs(r.newSlotID))
	}
	return s
}

// release unlocks s. The entry is dropped when its cart is empty and no other
// request is waiting on it.
func (r *Registry) release(key string, s *session) {
	empty := s.store.State().IsEmpty() && !s.checkingOut
	s.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	s.refs--
	s.lastUsed = time.Now()
	if s.refs == 0 && empty && r.sessions[key] == s {
		delete(r.sessions, key)
	}
}

func (r *Registry) load(ctx context.Context, key string) State {
	if r.persister == nil {
		return Empty()
	}
	loaded, ok, err := r.persister.Load(ctx, key)
	switch {
	case err != nil:
		r.logger.Warn("failed to load persisted cart", zap.String("session", key), zap.Error(err))
	case ok:
		return loaded
	}
	return Empty()
}

func (r *Registry) persist(ctx context.Context, key string, state State) {
	if r.persister == nil {
		return
	}
	var err error
	if state.IsEmpty() {
		err = r.persister.Delete(ctx, key)
	} else {
		err = r.persister.Save(ctx, key, state)
	}
	if err != nil {
		r.logger.Warn("failed to persist cart", zap.String("session", key), zap.Error(err))
	}
}

// Get returns the current state of the session's cart. Reading a cart that
// does not exist leaves nothing behind.
func (r *Registry) Get(ctx context.Context, key string) State {
	s := r.acquire(ctx, key)
	defer r.release(key, s)
	return s.store.State()
}

// Update runs fn against the session's store and persists the result. The
// returned state is what fn produced; a failed save is logged and the
// in-memory cart stays authoritative.
func (r *Registry) Update(ctx context.Context, key string, fn func(*Store) State) State {
	s := r.acquire(ctx, key)
	defer r.release(key, s)

	before := s.store.State()
	after := fn(s.store)
	if !sameState(before, after) {
		r.persist(ctx, key, after)
	}
	return after
}

// Checkout hands a snapshot of the cart to place, which creates the order.
// The cart is not locked while place runs; once place succeeds the ordered
// lines are taken out of the cart, and anything added in the meantime
// stays. A second Checkout of the same cart fails with
// ErrCheckoutInProgress until the first one returns.
func (r *Registry) Checkout(ctx context.Context, key string, place func(State) error) (State, error) {
	s := r.acquire(ctx, key)
	if s.checkingOut {
		r.release(key, s)
		return State{}, ErrCheckoutInProgress
	}
	ordered := s.store.State()
	s.checkingOut = true
	r.release(key, s)

	err := place(ordered)

	s = r.acquire(ctx, key)
	defer r.release(key, s)
	s.checkingOut = false
	if err != nil {
		return ordered, err
	}
	before := s.store.State()
	after := s.store.remove(ordered)
	if !sameState(before, after) {
		r.persist(ctx, key, after)
	}
	return ordered, nil
}

// Discard forgets the session's cart, in memory and in the persister.
func (r *Registry) Discard(ctx context.Context, key string) {
	s := r.acquire(ctx, key)
	defer r.release(key, s)

	s.store.Clear()
	if r.persister == nil {
		return
	}
	if err := r.persister.Delete(ctx, key); err != nil {
		r.logger.Warn("failed to delete persisted cart", zap.String("session", key), zap.Error(err))
	}
}

// Sessions returns the number of carts held in memory.
func (r *Registry) Sessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// sameState is true when an operation returned its input untouched.
func sameState(a, b State) bool {
	if len(a.items) != len(b.items) {
		return false
	}
	if len(a.items) == 0 {
		return true
	}
	return &a.items[0] == &b.items[0] && a.totals.TotalItems == b.totals.TotalItems
}
