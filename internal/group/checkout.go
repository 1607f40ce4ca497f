package group

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opentab/grouporder/internal/broadcast"
	"github.com/opentab/grouporder/internal/models"
	"github.com/opentab/grouporder/internal/orders"
)

// CheckoutResult is the frozen outcome of a successful checkout.
type CheckoutResult struct {
	GroupOrder      *models.GroupOrder
	Splits          []models.Split
	ExternalOrderID string
}

// Checkout finalizes a locked order: it freezes the split snapshot, hands
// the combined ledger to the external order service, and only after that
// call succeeds flips the status to ordered. On failure the order remains
// locked and the error is surfaced so the host can retry.
func (e *Engine) Checkout(ctx context.Context, code string, host models.Identity, details map[string]string) (*CheckoutResult, error) {
	lock := e.codeLock(code)
	lock.Lock()
	defer lock.Unlock()

	g, err := e.load(ctx, code)
	if err != nil {
		return nil, err
	}
	if !g.IsHost(host) {
		return nil, ErrNotHost
	}
	if g.Status != models.StatusLocked {
		return nil, fmt.Errorf("%w: checkout requires a locked order, got %s", ErrInvalidTransition, g.Status)
	}
	if g.ItemCount() == 0 {
		return nil, ErrEmptyOrder
	}

	splits, err := e.splitsFor(g)
	if err != nil {
		return nil, err
	}

	externalID, err := e.orders.PlaceOrder(ctx, checkoutPayload(g, splits, details))
	if err != nil {
		slog.Warn("Checkout handoff failed; order stays locked",
			"code", g.Code, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}

	g.Status = models.StatusOrdered
	g.ExternalOrderID = externalID
	if err := e.store.SaveGroupOrder(ctx, g); err != nil {
		// The external order exists; surface the local inconsistency loudly
		// rather than pretending the checkout failed.
		slog.Error("Order placed but local state not persisted",
			"code", g.Code, "external_order_id", externalID, "error", err)
		return nil, err
	}

	e.publish(g, broadcast.EventOrderPlaced, splits)
	return &CheckoutResult{GroupOrder: g, Splits: splits, ExternalOrderID: externalID}, nil
}

// checkoutPayload flattens the participants' ledgers into the write-once
// payload for the order service.
func checkoutPayload(g *models.GroupOrder, splits []models.Split, details map[string]string) *orders.CheckoutPayload {
	var items []orders.LineItem
	for i := range g.Participants {
		p := &g.Participants[i]
		for _, item := range p.Items {
			items = append(items, orders.LineItem{
				ParticipantID:   p.Identity.Key(),
				ParticipantName: p.Name,
				ProductID:       item.ProductID,
				ProductName:     item.ProductName,
				Size:            item.Size,
				Quantity:        item.Quantity,
				Customizations:  item.Customizations,
				Notes:           item.Notes,
				LineTotal:       item.LineTotal,
			})
		}
	}

	return &orders.CheckoutPayload{
		Code:     g.Code,
		Name:     g.Name,
		Items:    items,
		Splits:   splits,
		Subtotal: g.Subtotal,
		Tax:      g.Tax,
		Total:    g.Total,
		Details:  details,
	}
}
