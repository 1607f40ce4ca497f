// Package group implements the group ordering engine: the lifecycle state
// machine, participant registry, item ledgers and checkout coordination for
// shared orders identified by a short join code.
//
// Concurrency model: one logical writer per code. Every mutation acquires the
// code's lock, loads the latest committed state, applies guards and changes,
// persists, and publishes exactly one event to the order's room while still
// holding the lock, so events within a room arrive in commit order.
// Operations on different codes run in parallel; reads are served from the
// latest committed snapshot without the write lock.
package group

import (
	"context"
	"errors"
	"sync"

	"github.com/opentab/grouporder/internal/broadcast"
	"github.com/opentab/grouporder/internal/calculator"
	"github.com/opentab/grouporder/internal/catalog"
	"github.com/opentab/grouporder/internal/models"
	"github.com/opentab/grouporder/internal/orders"
	"github.com/opentab/grouporder/internal/storage"
	"github.com/opentab/grouporder/pkg/metrics"
)

// Engine owns all group order state transitions.
type Engine struct {
	store   storage.Store
	catalog catalog.Client
	orders  orders.Client
	hub     *broadcast.Hub
	metrics *metrics.Metrics // optional

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an engine. metrics may be nil (e.g. in tests).
func New(store storage.Store, cat catalog.Client, ord orders.Client, hub *broadcast.Hub, m *metrics.Metrics) *Engine {
	return &Engine{
		store:   store,
		catalog: cat,
		orders:  ord,
		hub:     hub,
		metrics: m,
		locks:   make(map[string]*sync.Mutex),
	}
}

// codeLock returns the serialization lock for one code, creating it on first
// use. Locks are tiny and codes are short-lived, so they are never reaped.
func (e *Engine) codeLock(code string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[code]
	if !ok {
		l = &sync.Mutex{}
		e.locks[code] = l
	}
	return l
}

// mutation describes the event a committed mutation should broadcast.
type mutation struct {
	kind       broadcast.EventKind
	withSplits bool
}

// mutate runs fn against the latest state of the order under the code's
// write lock, then recomputes totals, persists and broadcasts. fn returning
// a nil mutation commits nothing (used for idempotent no-ops).
func (e *Engine) mutate(ctx context.Context, code string, fn func(g *models.GroupOrder) (*mutation, error)) (*models.GroupOrder, []models.Split, error) {
	lock := e.codeLock(code)
	lock.Lock()
	defer lock.Unlock()

	g, err := e.load(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	mut, err := fn(g)
	if err != nil {
		return nil, nil, err
	}
	if mut == nil {
		return g, nil, nil
	}

	g.RecomputeTotals()
	if err := e.store.SaveGroupOrder(ctx, g); err != nil {
		return nil, nil, err
	}

	var splits []models.Split
	if mut.withSplits {
		if splits, err = e.splitsFor(g); err != nil {
			return nil, nil, err
		}
	}
	e.publish(g, mut.kind, splits)
	return g, splits, nil
}

func (e *Engine) load(ctx context.Context, code string) (*models.GroupOrder, error) {
	g, err := e.store.GetGroupOrder(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return g, nil
}

// publish emits one event to the order's room. Terminal transitions also
// disconnect the room's subscribers after the final event is delivered.
func (e *Engine) publish(g *models.GroupOrder, kind broadcast.EventKind, splits []models.Split) {
	e.hub.Publish(g.Code, broadcast.Event{Kind: kind, GroupOrder: g, Splits: splits})
	if e.metrics != nil {
		e.metrics.Events.WithLabelValues(string(kind)).Inc()
	}
	if g.Status.Terminal() {
		e.hub.CloseRoom(g.Code)
	}
}

// splitsFor derives the per-participant amounts for the order's current
// split type.
func (e *Engine) splitsFor(g *models.GroupOrder) ([]models.Split, error) {
	parts := make([]calculator.Participant, len(g.Participants))
	for i, p := range g.Participants {
		parts[i] = calculator.Participant{
			ID:       p.Identity.Key(),
			Name:     p.Name,
			Subtotal: p.Subtotal,
		}
	}

	var (
		shares []calculator.Split
		err    error
	)
	switch g.SplitType {
	case models.SplitByItem:
		shares, err = calculator.ByItem(g.Total, models.TaxRate, parts)
	default:
		shares, err = calculator.Equal(g.Total, parts)
	}
	if err != nil {
		return nil, err
	}

	splits := make([]models.Split, len(shares))
	for i, s := range shares {
		splits[i] = models.Split{ParticipantID: s.ParticipantID, Name: s.Name, Amount: s.Amount}
	}
	return splits, nil
}

// Get returns the latest committed snapshot of the order. Reads do not take
// the write lock.
func (e *Engine) Get(ctx context.Context, code string) (*models.GroupOrder, error) {
	return e.load(ctx, code)
}

// GetSplit derives the current splits from the latest committed snapshot.
func (e *Engine) GetSplit(ctx context.Context, code string) ([]models.Split, error) {
	g, err := e.load(ctx, code)
	if err != nil {
		return nil, err
	}
	return e.splitsFor(g)
}

// Subscribe attaches a new subscriber to the order's room. Callers should
// fetch the authoritative snapshot with Get first, then subscribe, to avoid
// missing updates committed in between.
func (e *Engine) Subscribe(ctx context.Context, code string) (<-chan broadcast.Event, func(), error) {
	if _, err := e.load(ctx, code); err != nil {
		return nil, nil, err
	}

	ch, cancel := e.hub.Subscribe(code)
	if e.metrics == nil {
		return ch, cancel, nil
	}

	e.metrics.Subscribers.Inc()
	var once sync.Once
	return ch, func() {
		cancel()
		once.Do(e.metrics.Subscribers.Dec)
	}, nil
}
