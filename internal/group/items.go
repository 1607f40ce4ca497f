package group

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/opentab/grouporder/internal/broadcast"
	"github.com/opentab/grouporder/internal/catalog"
	"github.com/opentab/grouporder/internal/models"
)

// AddItemInput describes an item to add. Prices are intentionally absent:
// the engine prices everything from catalog lookups.
type AddItemInput struct {
	ProductID      string
	Size           string
	Quantity       int
	Customizations []string
	Notes          string
}

// AddItem prices the product server-side and appends it to the caller's own
// ledger. Only allowed while the order is active.
func (e *Engine) AddItem(ctx context.Context, code string, id models.Identity, in AddItemInput) (*models.GroupOrder, error) {
	if id.IsZero() {
		return nil, ErrIdentityRequired
	}
	if in.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidArgument)
	}

	// Price outside the write lock; the catalog is read-only and slow
	// lookups must not serialize unrelated mutations on the same code.
	item, err := e.priceItem(ctx, in)
	if err != nil {
		return nil, err
	}

	g, _, err := e.mutate(ctx, code, func(g *models.GroupOrder) (*mutation, error) {
		if g.Status != models.StatusActive {
			return nil, fmt.Errorf("%w: cannot modify items of a %s order", ErrInvalidTransition, g.Status)
		}
		p := g.Participant(id.Key())
		if p == nil {
			return nil, ErrForbidden
		}
		p.Items = append(p.Items, *item)
		return &mutation{kind: broadcast.EventItemAdded, withSplits: true}, nil
	})
	return g, err
}

// UpdateItem changes the quantity of an item in the caller's own ledger.
// A quantity of zero or less removes the item.
func (e *Engine) UpdateItem(ctx context.Context, code string, id models.Identity, itemID string, quantity int) (*models.GroupOrder, error) {
	if id.IsZero() {
		return nil, ErrIdentityRequired
	}

	g, _, err := e.mutate(ctx, code, func(g *models.GroupOrder) (*mutation, error) {
		if g.Status != models.StatusActive {
			return nil, fmt.Errorf("%w: cannot modify items of a %s order", ErrInvalidTransition, g.Status)
		}
		p := g.Participant(id.Key())
		if p == nil {
			return nil, ErrForbidden
		}

		for i := range p.Items {
			if p.Items[i].ID != itemID {
				continue
			}
			if quantity <= 0 {
				p.Items = append(p.Items[:i], p.Items[i+1:]...)
				return &mutation{kind: broadcast.EventItemRemoved, withSplits: true}, nil
			}
			p.Items[i].Quantity = quantity
			return &mutation{kind: broadcast.EventItemUpdated, withSplits: true}, nil
		}
		return nil, ErrItemNotFound
	})
	return g, err
}

// RemoveItem deletes an item from the caller's own ledger. Items in other
// participants' ledgers are invisible here, host included.
func (e *Engine) RemoveItem(ctx context.Context, code string, id models.Identity, itemID string) (*models.GroupOrder, error) {
	if id.IsZero() {
		return nil, ErrIdentityRequired
	}

	g, _, err := e.mutate(ctx, code, func(g *models.GroupOrder) (*mutation, error) {
		if g.Status != models.StatusActive {
			return nil, fmt.Errorf("%w: cannot modify items of a %s order", ErrInvalidTransition, g.Status)
		}
		p := g.Participant(id.Key())
		if p == nil {
			return nil, ErrForbidden
		}

		for i := range p.Items {
			if p.Items[i].ID == itemID {
				p.Items = append(p.Items[:i], p.Items[i+1:]...)
				return &mutation{kind: broadcast.EventItemRemoved, withSplits: true}, nil
			}
		}
		return nil, ErrItemNotFound
	})
	return g, err
}

// priceItem resolves the catalog product and builds a fully priced item.
func (e *Engine) priceItem(ctx context.Context, in AddItemInput) (*models.Item, error) {
	product, err := e.lookupProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	unitPrice, ok := product.Prices[in.Size]
	if !ok {
		return nil, fmt.Errorf("%w: product %s has no size %q", ErrInvalidArgument, in.ProductID, in.Size)
	}

	customizations := make([]models.Customization, 0, len(in.Customizations))
	for _, name := range in.Customizations {
		price, ok := product.Customizations[name]
		if !ok {
			return nil, fmt.Errorf("%w: product %s has no customization %q", ErrInvalidArgument, in.ProductID, name)
		}
		customizations = append(customizations, models.Customization{Name: name, Price: price})
	}
	sort.Slice(customizations, func(i, j int) bool {
		return customizations[i].Name < customizations[j].Name
	})

	item := &models.Item{
		ID:             uuid.New().String(),
		ProductID:      product.ID,
		ProductName:    product.Name,
		Size:           in.Size,
		Quantity:       in.Quantity,
		Customizations: customizations,
		UnitPrice:      unitPrice,
		Notes:          in.Notes,
	}
	item.LineTotal = item.ComputeLineTotal()
	return item, nil
}

// lookupProduct retries once on a transient catalog failure before giving up.
// Authorization and validation failures are never retried.
func (e *Engine) lookupProduct(ctx context.Context, productID string) (*catalog.Product, error) {
	product, err := e.catalog.Product(ctx, productID)
	if err != nil && errors.Is(err, catalog.ErrUnavailable) {
		product, err = e.catalog.Product(ctx, productID)
	}
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	return product, nil
}
