package group

import (
	"context"
	"fmt"

	"github.com/opentab/grouporder/internal/broadcast"
	"github.com/opentab/grouporder/internal/models"
)

// Lifecycle guards. The state machine is:
//
//	active -> locked -> ordered (terminal)
//	active|locked -> cancelled (terminal)
//	locked -> active (unlock rollback)
//
// Joins, leaves and item mutations are permitted only while active; lock,
// unlock, checkout, cancel and split type changes are host-only.

// Create starts a new group order with the host auto-joined as its first
// participant. Only registered users may host.
func (e *Engine) Create(ctx context.Context, host models.Identity, hostName, name string, maxParticipants int) (*models.GroupOrder, error) {
	if host.IsZero() || !host.IsUser() {
		return nil, fmt.Errorf("%w: creating a group order requires a signed-in user", ErrIdentityRequired)
	}
	if hostName == "" {
		return nil, fmt.Errorf("%w: host display name required", ErrInvalidArgument)
	}
	if maxParticipants < 1 {
		return nil, fmt.Errorf("%w: maxParticipants must be positive", ErrInvalidArgument)
	}

	g := &models.GroupOrder{
		Name:            name,
		Host:            host,
		Status:          models.StatusActive,
		MaxParticipants: maxParticipants,
		SplitType:       models.SplitEqual,
		Participants: []models.Participant{
			{Identity: host, Name: hostName, IsHost: true},
		},
	}
	g.RecomputeTotals()

	if err := e.store.CreateGroupOrder(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// Join adds the identity as a participant. Joining an order one is already a
// member of returns the current state without committing anything, which is
// how reconnects resolve.
func (e *Engine) Join(ctx context.Context, code string, id models.Identity, name string) (*models.GroupOrder, error) {
	if id.IsZero() {
		return nil, ErrIdentityRequired
	}

	g, _, err := e.mutate(ctx, code, func(g *models.GroupOrder) (*mutation, error) {
		if g.Participant(id.Key()) != nil {
			return nil, nil // already a member; reconnect
		}
		if g.Status != models.StatusActive {
			return nil, fmt.Errorf("%w: cannot join a %s order", ErrInvalidTransition, g.Status)
		}
		if len(g.Participants) >= g.MaxParticipants {
			return nil, ErrCapacityExceeded
		}
		if name == "" {
			return nil, fmt.Errorf("%w: display name required", ErrInvalidArgument)
		}

		g.Participants = append(g.Participants, models.Participant{Identity: id, Name: name})
		return &mutation{kind: broadcast.EventParticipantJoined}, nil
	})
	return g, err
}

// Leave removes a non-host participant from an active order. The host can
// never leave; cancelling is the host's exit.
func (e *Engine) Leave(ctx context.Context, code string, id models.Identity) error {
	_, _, err := e.mutate(ctx, code, func(g *models.GroupOrder) (*mutation, error) {
		if g.IsHost(id) {
			return nil, ErrHostCannotLeave
		}
		if g.Status != models.StatusActive {
			return nil, fmt.Errorf("%w: cannot leave a %s order", ErrInvalidTransition, g.Status)
		}

		key := id.Key()
		for i := range g.Participants {
			if g.Participants[i].Identity.Key() == key {
				g.Participants = append(g.Participants[:i], g.Participants[i+1:]...)
				return &mutation{kind: broadcast.EventParticipantLeft}, nil
			}
		}
		return nil, ErrForbidden
	})
	return err
}

// ToggleReady flips the caller's readiness flag. Readiness is surfaced to
// all viewers but gates nothing in the engine.
func (e *Engine) ToggleReady(ctx context.Context, code string, id models.Identity) (*models.GroupOrder, error) {
	g, _, err := e.mutate(ctx, code, func(g *models.GroupOrder) (*mutation, error) {
		if g.Status.Terminal() {
			return nil, fmt.Errorf("%w: order is %s", ErrInvalidTransition, g.Status)
		}
		p := g.Participant(id.Key())
		if p == nil {
			return nil, ErrForbidden
		}
		p.IsReady = !p.IsReady
		return &mutation{kind: broadcast.EventParticipantReady}, nil
	})
	return g, err
}

// SetSplitType selects the split strategy. Host only.
func (e *Engine) SetSplitType(ctx context.Context, code string, host models.Identity, splitType models.SplitType) (*models.GroupOrder, []models.Split, error) {
	if !splitType.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown split type %q", ErrInvalidArgument, splitType)
	}
	return e.mutate(ctx, code, func(g *models.GroupOrder) (*mutation, error) {
		if !g.IsHost(host) {
			return nil, ErrNotHost
		}
		if g.Status.Terminal() {
			return nil, fmt.Errorf("%w: order is %s", ErrInvalidTransition, g.Status)
		}
		g.SplitType = splitType
		return &mutation{kind: broadcast.EventSplitTypeChanged, withSplits: true}, nil
	})
}

// Lock freezes the order for review. Host only, active orders only.
func (e *Engine) Lock(ctx context.Context, code string, host models.Identity) (*models.GroupOrder, error) {
	g, _, err := e.mutate(ctx, code, func(g *models.GroupOrder) (*mutation, error) {
		if !g.IsHost(host) {
			return nil, ErrNotHost
		}
		if g.Status != models.StatusActive {
			return nil, fmt.Errorf("%w: cannot lock a %s order", ErrInvalidTransition, g.Status)
		}
		g.Status = models.StatusLocked
		return &mutation{kind: broadcast.EventOrderLocked}, nil
	})
	return g, err
}

// Unlock rolls a locked order back to active. Host only.
func (e *Engine) Unlock(ctx context.Context, code string, host models.Identity) (*models.GroupOrder, error) {
	g, _, err := e.mutate(ctx, code, func(g *models.GroupOrder) (*mutation, error) {
		if !g.IsHost(host) {
			return nil, ErrNotHost
		}
		if g.Status != models.StatusLocked {
			return nil, fmt.Errorf("%w: cannot unlock a %s order", ErrInvalidTransition, g.Status)
		}
		g.Status = models.StatusActive
		return &mutation{kind: broadcast.EventOrderUnlocked}, nil
	})
	return g, err
}

// Cancel terminates the order. Host only, allowed from active or locked.
func (e *Engine) Cancel(ctx context.Context, code string, host models.Identity) error {
	_, _, err := e.mutate(ctx, code, func(g *models.GroupOrder) (*mutation, error) {
		if !g.IsHost(host) {
			return nil, ErrNotHost
		}
		if g.Status.Terminal() {
			return nil, fmt.Errorf("%w: order is already %s", ErrInvalidTransition, g.Status)
		}
		g.Status = models.StatusCancelled
		return &mutation{kind: broadcast.EventOrderCancelled}, nil
	})
	return err
}
