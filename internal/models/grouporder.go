package models

import "math"

// TaxRate is the fixed tax applied to the aggregate subtotal.
const TaxRate = 0.10

// Status is the lifecycle state of a group order.
type Status string

const (
	// StatusActive accepts joins, leaves and item mutations.
	StatusActive Status = "active"
	// StatusLocked freezes the ledgers while the host reviews the split.
	StatusLocked Status = "locked"
	// StatusOrdered is terminal: the order was handed off for persistence.
	StatusOrdered Status = "ordered"
	// StatusCancelled is terminal: the host abandoned the order.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusOrdered || s == StatusCancelled
}

// SplitType selects the strategy used to derive per-participant amounts.
type SplitType string

const (
	// SplitEqual divides the total evenly across all participants.
	SplitEqual SplitType = "equal"
	// SplitByItem charges each participant their own subtotal plus tax.
	SplitByItem SplitType = "by_item"
)

// Valid reports whether the split type is one of the known strategies.
func (t SplitType) Valid() bool {
	return t == SplitEqual || t == SplitByItem
}

// GroupOrder is the aggregate root: a single shared order jointly populated
// by multiple participants under one shareable code.
type GroupOrder struct {
	// ID is the internal unique identifier (UUID format). Codes of terminal
	// orders may be retired and reissued, so the ID is the storage key.
	ID string `json:"id"`

	// Code is the short human-shareable join code. Immutable, unique among
	// non-terminal orders.
	Code string `json:"code"`

	// Name is an optional display name for the order (e.g. "Friday lunch").
	Name string `json:"name,omitempty"`

	// Host is the identity of the creator. Never changes.
	Host Identity `json:"host"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// MaxParticipants is the capacity ceiling, fixed at creation.
	MaxParticipants int `json:"maxParticipants"`

	// SplitType is the selected split strategy. Host-settable.
	SplitType SplitType `json:"splitType"`

	// Participants in join order. Membership is unique per identity key.
	Participants []Participant `json:"participants"`

	// Subtotal, Tax and Total are derived from the union of all participants'
	// ledgers; RecomputeTotals refreshes them after every mutation.
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`

	// ExternalOrderID is set once checkout hands off to the order service.
	ExternalOrderID string `json:"externalOrderId,omitempty"`

	// CreatedAt is the Unix timestamp when the order was created.
	CreatedAt int64 `json:"createdAt"`
}

// Participant is one member of a group order, owning a private item ledger.
type Participant struct {
	Identity Identity `json:"identity"`

	// Name is the display name: required for guests, defaulted from the
	// profile for registered users.
	Name string `json:"name"`

	// IsHost is true only for the identity matching GroupOrder.Host.
	IsHost bool `json:"isHost"`

	// IsReady is a participant-toggled flag surfaced to all viewers. It has
	// no gating effect on lock or checkout.
	IsReady bool `json:"isReady"`

	// Items is this participant's ledger.
	Items []Item `json:"items"`

	// Subtotal is derived from Items.
	Subtotal float64 `json:"subtotal"`
}

// Participant returns the member with the given identity key, or nil.
func (g *GroupOrder) Participant(key string) *Participant {
	for i := range g.Participants {
		if g.Participants[i].Identity.Key() == key {
			return &g.Participants[i]
		}
	}
	return nil
}

// IsHost reports whether the identity is the order's host.
func (g *GroupOrder) IsHost(id Identity) bool {
	return g.Host.Key() == id.Key()
}

// ItemCount returns the number of items across all participants' ledgers.
func (g *GroupOrder) ItemCount() int {
	n := 0
	for i := range g.Participants {
		n += len(g.Participants[i].Items)
	}
	return n
}

// RecomputeTotals refreshes every derived money field from the item ledgers:
// each participant's subtotal, then the aggregate subtotal, tax and total.
func (g *GroupOrder) RecomputeTotals() {
	g.Subtotal = 0
	for i := range g.Participants {
		p := &g.Participants[i]
		p.Subtotal = 0
		for j := range p.Items {
			p.Items[j].LineTotal = p.Items[j].ComputeLineTotal()
			p.Subtotal += p.Items[j].LineTotal
		}
		p.Subtotal = roundCents(p.Subtotal)
		g.Subtotal += p.Subtotal
	}
	g.Subtotal = roundCents(g.Subtotal)
	g.Tax = roundCents(g.Subtotal * TaxRate)
	g.Total = roundCents(g.Subtotal + g.Tax)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
