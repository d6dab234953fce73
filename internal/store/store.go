// Package store keeps in-memory copies of the finance service's collections.
//
// A Store caches one collection for the signed-in user and mediates every
// read and write to the service, so the cache only ever reflects what the
// service last acknowledged. Operations on one store run one at a time; a
// failed read keeps the previous collection visible.
package store

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/remote"
	"fintrack/internal/session"
)

var (
	// ErrMissingID is returned by Update and Delete for a record without id.
	ErrMissingID = errors.New("record has no id")
	// ErrNoRecord is returned by Create when the service answers without a record.
	ErrNoRecord = errors.New("service returned no record")
)

// Remote is the part of the finance service client the stores use.
type Remote interface {
	Send(ctx context.Context, sess session.Session, method, path string, in any) ([]byte, error)
}

var _ Remote = (*remote.Client)(nil)

// Status is the lifecycle state of a store.
type Status int

const (
	Uninitialized Status = iota
	Loading
	Ready
	Failed
)

func (s Status) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Op names a store operation.
type Op string

const (
	OpLoad   Op = "load"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpSeed   Op = "seed"
	OpReset  Op = "reset"
)

// Mutation reports whether op changes the service's data.
func (op Op) Mutation() bool {
	return op == OpCreate || op == OpUpdate || op == OpDelete
}

// Operation is an operation that has been issued and not yet resolved.
type Operation struct {
	Seq     uint64
	Op      Op
	ID      core.ID // record id, empty for load and create
	Started time.Time
}

// Change is delivered to observers after every state transition.
type Change struct {
	Kind   string
	Op     Op
	ID     core.ID
	UserID string
	Status Status
	Err    error
	Record any // the acknowledged record for create and update, the removed one for delete
}

type options struct {
	logger *log.Logger
	now    func() time.Time
}

type Option func(*options)

func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Store caches one collection of T. It is safe for concurrent use.
type Store[T any] struct {
	kind    Kind[T]
	remote  Remote
	session session.Provider
	logger  *log.Logger
	now     func() time.Time

	sem   *semaphore.Weighted
	loads singleflight.Group

	mu        sync.RWMutex
	items     []T
	owner     string
	status    Status
	err       error
	seq       uint64
	inflight  map[uint64]Operation
	observers map[int]func(Change)
	nextObs   int
}

// New creates a store for kind. Most callers want NewTransactions,
// NewAssets or NewLiabilities.
func New[T any](kind Kind[T], r Remote, p session.Provider, opts ...Option) *Store[T] {
	o := options{logger: log.Discard(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T]{
		kind:      kind,
		remote:    r,
		session:   p,
		logger:    o.logger.WithComponent(log.ComponentStore).With(log.FieldKind, kind.Name),
		now:       o.now,
		sem:       semaphore.NewWeighted(1),
		inflight:  make(map[uint64]Operation),
		observers: make(map[int]func(Change)),
	}
}

func NewTransactions(r Remote, p session.Provider, opts ...Option) *Store[core.Transaction] {
	return New(Transactions, r, p, opts...)
}

func NewAssets(r Remote, p session.Provider, opts ...Option) *Store[core.Asset] {
	return New(Assets, r, p, opts...)
}

func NewLiabilities(r Remote, p session.Provider, opts ...Option) *Store[core.Liability] {
	return New(Liabilities, r, p, opts...)
}

// Kind returns the name of the collection.
func (s *Store[T]) Kind() string { return s.kind.Name }

// Load replaces the collection with the service's, in the order received.
// On failure the previous collection is kept and the store is Failed.
// Concurrent loads for the same user share one request; a caller that gives
// up returns its own context error without affecting the others.
func (s *Store[T]) Load(ctx context.Context) error {
	sess, err := s.session.Current(ctx)
	if err != nil {
		return err
	}
	// The shared request must outlive any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	ch := s.loads.DoChan(sess.UserID, func() (any, error) {
		return nil, s.run(shared, sess, OpLoad, "", func() (any, func([]T) []T, error) {
			path := s.kind.ListPath(sess.UserID)
			raw, err := s.remote.Send(shared, sess, http.MethodGet, path, nil)
			if err != nil {
				return nil, nil, err
			}
			items := make([]T, 0)
			if raw != nil {
				if err := json.Unmarshal(raw, &items); err != nil {
					return nil, nil, decodeError(http.MethodGet, path, err)
				}
			}
			return nil, func([]T) []T { return items }, nil
		})
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Create sends rec and appends the service's record, which carries the
// assigned id. On failure the collection is unchanged.
func (s *Store[T]) Create(ctx context.Context, rec T) (T, error) {
	var created T
	sess, err := s.session.Current(ctx)
	if err != nil {
		return created, err
	}
	err = s.run(ctx, sess, OpCreate, "", func() (any, func([]T) []T, error) {
		path := s.kind.CreatePath(sess.UserID)
		raw, err := s.remote.Send(ctx, sess, http.MethodPost, path, s.kind.Payload(rec, sess.UserID))
		if err != nil {
			return nil, nil, err
		}
		if raw == nil {
			return nil, nil, fmt.Errorf("create %s: %w", s.kind.Name, ErrNoRecord)
		}
		if err := json.Unmarshal(raw, &created); err != nil {
			return nil, nil, decodeError(http.MethodPost, path, err)
		}
		if s.kind.ID(created).IsZero() {
			return nil, nil, fmt.Errorf("create %s: %w", s.kind.Name, ErrNoRecord)
		}
		return created, func(items []T) []T { return append(items, created) }, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return created, nil
}

// Update sends the full record and replaces the matching entry with the
// service's answer. When the service answers without a body the submitted
// record is applied as is.
func (s *Store[T]) Update(ctx context.Context, rec T) (T, error) {
	id := s.kind.ID(rec)
	if id.IsZero() {
		var zero T
		return zero, fmt.Errorf("update %s: %w", s.kind.Name, ErrMissingID)
	}
	sess, err := s.session.Current(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	updated := rec
	err = s.run(ctx, sess, OpUpdate, id, func() (any, func([]T) []T, error) {
		path := s.kind.UpdatePath(sess.UserID, id)
		raw, err := s.remote.Send(ctx, sess, http.MethodPut, path, s.kind.Payload(rec, ""))
		if err != nil {
			return nil, nil, err
		}
		if raw == nil {
			s.logger.DebugContext(ctx, "Service returned no body, applying submitted record",
				log.FieldOperation, log.OpUpdate, log.FieldRecordID, id.String())
		} else {
			var fromService T
			if err := json.Unmarshal(raw, &fromService); err != nil {
				return nil, nil, decodeError(http.MethodPut, path, err)
			}
			if s.kind.ID(fromService).IsZero() {
				fromService = s.kind.WithID(fromService, id)
			}
			updated = fromService
		}
		return updated, func(items []T) []T {
			if i := s.index(items, id); i >= 0 {
				items[i] = updated
			}
			return items
		}, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return updated, nil
}

// Delete removes the record with id from the service, then from the
// collection. On failure the entry is kept.
func (s *Store[T]) Delete(ctx context.Context, id core.ID) error {
	if id.IsZero() {
		return fmt.Errorf("delete %s: %w", s.kind.Name, ErrMissingID)
	}
	sess, err := s.session.Current(ctx)
	if err != nil {
		return err
	}
	return s.run(ctx, sess, OpDelete, id, func() (any, func([]T) []T, error) {
		if _, err := s.remote.Send(ctx, sess, http.MethodDelete, s.kind.DeletePath(sess.UserID, id), nil); err != nil {
			return nil, nil, err
		}
		removed, _ := s.Get(id)
		return removed, func(items []T) []T {
			if i := s.index(items, id); i >= 0 {
				items = slices.Delete(items, i, i+1)
			}
			return items
		}, nil
	})
}

// run executes one operation: it is tracked as in flight from the moment it
// is issued, waits for the previous operation on the store, and applies its
// result to the collection only on success.
func (s *Store[T]) run(ctx context.Context, sess session.Session, op Op, id core.ID, call func() (any, func([]T) []T, error)) error {
	seq := s.track(op, id)

	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.mu.Lock()
		delete(s.inflight, seq)
		s.mu.Unlock()
		return err
	}
	defer s.sem.Release(1)

	s.mu.Lock()
	if s.owner != "" && s.owner != sess.UserID {
		s.logger.Info("Session user changed, dropping cached collection", log.FieldUserID, sess.UserID)
		s.items = nil
		s.owner = ""
	}
	s.status = Loading
	s.mu.Unlock()
	s.notify(Change{Kind: s.kind.Name, Op: op, ID: id, UserID: sess.UserID, Status: Loading})

	start := s.now()
	record, apply, err := call()

	s.mu.Lock()
	delete(s.inflight, seq)
	if err != nil {
		s.status = Failed
		s.err = err
	} else {
		s.items = apply(s.items)
		s.owner = sess.UserID
		s.status = Ready
		s.err = nil
	}
	status, count := s.status, len(s.items)
	s.mu.Unlock()

	fields := []any{log.FieldOperation, string(op), log.FieldUserID, sess.UserID,
		log.FieldCount, count, log.FieldDuration, s.now().Sub(start).Milliseconds()}
	if !id.IsZero() {
		fields = append(fields, log.FieldRecordID, id.String())
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Store operation failed", append(fields, log.FieldError, err)...)
	} else {
		s.logger.DebugContext(ctx, "Store operation completed", fields...)
	}

	if id.IsZero() && record != nil {
		if r, ok := record.(T); ok {
			id = s.kind.ID(r)
		}
	}
	s.notify(Change{Kind: s.kind.Name, Op: op, ID: id, UserID: sess.UserID, Status: status, Err: err, Record: record})
	return err
}

func (s *Store[T]) track(op Op, id core.ID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.inflight[s.seq] = Operation{Seq: s.seq, Op: op, ID: id, Started: s.now()}
	return s.seq
}

func (s *Store[T]) index(items []T, id core.ID) int {
	return slices.IndexFunc(items, func(it T) bool { return s.kind.ID(it) == id })
}

// Items returns a copy of the collection in service order.
func (s *Store[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Get returns the cached record with id.
func (s *Store[T]) Get(id core.ID) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(s.items, id); i >= 0 {
		return s.items[i], true
	}
	var zero T
	return zero, false
}

func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store[T]) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Err returns the error of the last operation, nil after a success.
func (s *Store[T]) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Owner returns the user the collection belongs to, "" when empty.
func (s *Store[T]) Owner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

// Busy reports whether any operation is in flight.
func (s *Store[T]) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.inflight) > 0
}

// InFlight lists the unresolved operations, oldest first.
func (s *Store[T]) InFlight() []Operation {
	s.mu.RLock()
	ops := make([]Operation, 0, len(s.inflight))
	for _, op := range s.inflight {
		ops = append(ops, op)
	}
	s.mu.RUnlock()
	slices.SortFunc(ops, func(a, b Operation) int { return cmp.Compare(a.Seq, b.Seq) })
	return ops
}

// Seed installs a previously saved collection for userID. It only takes
// effect while the store is still Uninitialized.
func (s *Store[T]) Seed(userID string, items []T) bool {
	s.mu.Lock()
	if s.status != Uninitialized {
		s.mu.Unlock()
		return false
	}
	s.items = slices.Clone(items)
	s.owner = userID
	s.status = Ready
	s.mu.Unlock()

	s.notify(Change{Kind: s.kind.Name, Op: OpSeed, UserID: userID, Status: Ready})
	return true
}

// Reset drops the collection and returns the store to Uninitialized.
func (s *Store[T]) Reset() {
	s.mu.Lock()
	s.items = nil
	s.owner = ""
	s.status = Uninitialized
	s.err = nil
	s.mu.Unlock()

	s.notify(Change{Kind: s.kind.Name, Op: OpReset, Status: Uninitialized})
}

// Subscribe registers fn to receive every Change. Observers run on the
// goroutine that made the change and must not call back into the store's
// mutating methods. The returned function unregisters fn.
func (s *Store[T]) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store[T]) notify(c Change) {
	s.mu.RLock()
	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Change), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.observers[id])
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}

func decodeError(method, path string, err error) error {
	return &remote.TransportError{Method: method, Path: path, Status: http.StatusOK, Err: fmt.Errorf("failed to decode response: %w", err)}
}
