package group

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/opentab/grouporder/internal/broadcast"
	"github.com/opentab/grouporder/internal/catalog"
	"github.com/opentab/grouporder/internal/models"
	"github.com/opentab/grouporder/internal/orders"
	"github.com/opentab/grouporder/internal/storage/sqlite"
)

// fakeCatalog serves a fixed product list and can fail transiently.
type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]*catalog.Product
	failures int // remaining lookups that fail with ErrUnavailable
	calls    int
}

func (f *fakeCatalog) Product(_ context.Context, id string) (*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, catalog.ErrUnavailable
	}
	p, ok := f.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p, nil
}

// fakeOrders records checkout payloads and can be told to fail.
type fakeOrders struct {
	mu       sync.Mutex
	failWith error
	placed   []*orders.CheckoutPayload
}

func (f *fakeOrders) PlaceOrder(_ context.Context, payload *orders.CheckoutPayload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return "", f.failWith
	}
	f.placed = append(f.placed, payload)
	return fmt.Sprintf("ext-order-%d", len(f.placed)), nil
}

func testMenu() map[string]*catalog.Product {
	return map[string]*catalog.Product{
		"pizza-1": {
			ID:     "pizza-1",
			Name:   "Margherita",
			Prices: map[string]float64{"regular": 200, "large": 300},
			Customizations: map[string]float64{
				"extra cheese": 20,
				"olives":       15,
			},
		},
		"drink-1": {
			ID:     "drink-1",
			Name:   "Cola",
			Prices: map[string]float64{"regular": 50},
		},
	}
}

type testRig struct {
	engine  *Engine
	catalog *fakeCatalog
	orders  *fakeOrders
	hub     *broadcast.Hub
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "grouporder-engine-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cat := &fakeCatalog{products: testMenu()}
	ord := &fakeOrders{}
	hub := broadcast.NewHub()
	return &testRig{
		engine:  New(store, cat, ord, hub, nil),
		catalog: cat,
		orders:  ord,
		hub:     hub,
	}
}

var (
	hostID  = models.UserIdentity("user-host")
	guestID = models.GuestIdentity("sess-guest")
)

// newOrderWithGuest creates an order hosted by hostID with guestID joined.
func newOrderWithGuest(t *testing.T, rig *testRig, maxParticipants int) *models.GroupOrder {
	t.Helper()
	ctx := context.Background()

	g, err := rig.engine.Create(ctx, hostID, "Host", "Team lunch", maxParticipants)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := rig.engine.Join(ctx, g.Code, guestID, "Guest"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	return g
}

func TestCreate(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	g, err := rig.engine.Create(ctx, hostID, "Alice", "Friday lunch", 4)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if g.Code == "" {
		t.Error("expected a join code")
	}
	if g.Status != models.StatusActive {
		t.Errorf("status = %q, want active", g.Status)
	}
	if g.SplitType != models.SplitEqual {
		t.Errorf("splitType = %q, want equal", g.SplitType)
	}
	if len(g.Participants) != 1 || !g.Participants[0].IsHost || g.Participants[0].Name != "Alice" {
		t.Errorf("host not auto-joined: %+v", g.Participants)
	}

	if _, err := rig.engine.Create(ctx, guestID, "Guest", "", 4); !errors.Is(err, ErrIdentityRequired) {
		t.Errorf("guest host: expected ErrIdentityRequired, got %v", err)
	}
	if _, err := rig.engine.Create(ctx, hostID, "Alice", "", 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("zero capacity: expected ErrInvalidArgument, got %v", err)
	}
}

func TestJoinCapacity(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	// Scenario: maxParticipants=2, host takes the first slot.
	g := newOrderWithGuest(t, rig, 2)

	_, err := rig.engine.Join(ctx, g.Code, models.GuestIdentity("sess-late"), "Late")
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("expected ErrCapacityExceeded, got %v", err)
	}

	got, err := rig.engine.Get(ctx, g.Code)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Participants) != 2 {
		t.Errorf("participants = %d, want 2", len(got.Participants))
	}
}

func TestJoinIsIdempotentPerIdentity(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	g := newOrderWithGuest(t, rig, 4)

	again, err := rig.engine.Join(ctx, g.Code, guestID, "Guest")
	if err != nil {
		t.Fatalf("second Join failed: %v", err)
	}
	if len(again.Participants) != 2 {
		t.Errorf("participants = %d, want 2 (no duplicate membership)", len(again.Participants))
	}

	// Reconnect also works while locked; a fresh identity does not get in.
	if _, err := rig.engine.Lock(ctx, g.Code, hostID); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if _, err := rig.engine.Join(ctx, g.Code, guestID, "Guest"); err != nil {
		t.Errorf("reconnect while locked failed: %v", err)
	}
	if _, err := rig.engine.Join(ctx, g.Code, models.GuestIdentity("sess-new"), "New"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("new join while locked: expected ErrInvalidTransition, got %v", err)
	}
}

func TestJoinUnknownCode(t *testing.T) {
	rig := newTestRig(t)
	if _, err := rig.engine.Join(context.Background(), "NOSUCH", guestID, "Guest"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLeave(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	g := newOrderWithGuest(t, rig, 4)

	if err := rig.engine.Leave(ctx, g.Code, hostID); !errors.Is(err, ErrHostCannotLeave) {
		t.Errorf("host leave: expected ErrHostCannotLeave, got %v", err)
	}
	if err := rig.engine.Leave(ctx, g.Code, models.GuestIdentity("sess-other")); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-member leave: expected ErrForbidden, got %v", err)
	}
	if err := rig.engine.Leave(ctx, g.Code, guestID); err != nil {
		t.Fatalf("guest leave failed: %v", err)
	}

	got, _ := rig.engine.Get(ctx, g.Code)
	if len(got.Participants) != 1 {
		t.Errorf("participants = %d, want 1", len(got.Participants))
	}
}

func TestAddItemComputesTotalsServerSide(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	g := newOrderWithGuest(t, rig, 4)

	got, err := rig.engine.AddItem(ctx, g.Code, hostID, AddItemInput{
		ProductID:      "pizza-1",
		Size:           "regular",
		Quantity:       1,
		Customizations: []string{"extra cheese"},
	})
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	host := got.Participant(hostID.Key())
	if len(host.Items) != 1 {
		t.Fatalf("host items = %d, want 1", len(host.Items))
	}
	item := host.Items[0]
	if item.UnitPrice != 200 || item.LineTotal != 220 {
		t.Errorf("unitPrice/lineTotal = %v/%v, want 200/220", item.UnitPrice, item.LineTotal)
	}
	if got.Subtotal != 220 || got.Tax != 22 || got.Total != 242 {
		t.Errorf("totals = %v/%v/%v, want 220/22/242", got.Subtotal, got.Tax, got.Total)
	}

	if _, err := rig.engine.AddItem(ctx, g.Code, hostID, AddItemInput{ProductID: "pizza-1", Size: "giant", Quantity: 1}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("unknown size: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := rig.engine.AddItem(ctx, g.Code, hostID, AddItemInput{ProductID: "nope", Size: "regular", Quantity: 1}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("unknown product: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := rig.engine.AddItem(ctx, g.Code, hostID, AddItemInput{ProductID: "pizza-1", Size: "regular", Quantity: 0}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("zero quantity: expected ErrInvalidArgument, got %v", err)
	}
}

func TestCatalogRetriesOnceOnTransientFailure(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	g := newOrderWithGuest(t, rig, 4)

	rig.catalog.failures = 1
	rig.catalog.calls = 0
	if _, err := rig.engine.AddItem(ctx, g.Code, hostID, AddItemInput{ProductID: "drink-1", Size: "regular", Quantity: 1}); err != nil {
		t.Fatalf("AddItem with one transient failure should succeed, got %v", err)
	}
	if rig.catalog.calls != 2 {
		t.Errorf("catalog calls = %d, want 2", rig.catalog.calls)
	}

	rig.catalog.failures = 2
	if _, err := rig.engine.AddItem(ctx, g.Code, hostID, AddItemInput{ProductID: "drink-1", Size: "regular", Quantity: 1}); !errors.Is(err, ErrExternalService) {
		t.Errorf("expected ErrExternalService after retry, got %v", err)
	}
}

func TestUpdateItemZeroQuantityRemoves(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	g := newOrderWithGuest(t, rig, 4)

	got, err := rig.engine.AddItem(ctx, g.Code, guestID, AddItemInput{ProductID: "drink-1", Size: "regular", Quantity: 2})
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	itemID := got.Participant(guestID.Key()).Items[0].ID

	got, err = rig.engine.UpdateItem(ctx, g.Code, guestID, itemID, 3)
	if err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}
	if got.Participant(guestID.Key()).Items[0].Quantity != 3 {
		t.Errorf("quantity not updated")
	}
	if got.Total != 165 { // 3 * 50 = 150 subtotal + 10% tax
		t.Errorf("total = %v, want 165", got.Total)
	}

	got, err = rig.engine.UpdateItem(ctx, g.Code, guestID, itemID, 0)
	if err != nil {
		t.Fatalf("UpdateItem to zero failed: %v", err)
	}
	if len(got.Participant(guestID.Key()).Items) != 0 {
		t.Error("expected zero-quantity update to remove the item")
	}
	if got.Total != 0 {
		t.Errorf("total = %v, want 0", got.Total)
	}
}

func TestItemOwnershipIsEnforced(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	g := newOrderWithGuest(t, rig, 4)

	got, err := rig.engine.AddItem(ctx, g.Code, guestID, AddItemInput{ProductID: "drink-1", Size: "regular", Quantity: 1})
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	guestItem := got.Participant(guestID.Key()).Items[0].ID

	// Even the host cannot touch another participant's items.
	if _, err := rig.engine.RemoveItem(ctx, g.Code, hostID, guestItem); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("cross-participant remove: expected ErrItemNotFound, got %v", err)
	}
	if _, err := rig.engine.UpdateItem(ctx, g.Code, hostID, guestItem, 5); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("cross-participant update: expected ErrItemNotFound, got %v", err)
	}
	if _, err := rig.engine.RemoveItem(ctx, g.Code, guestID, "no-such-item"); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("unknown item: expected ErrItemNotFound, got %v", err)
	}
}

// addScenarioItems adds 1 pizza (200) for the host and 1 drink (50) for the
// guest: subtotal 250, tax 25, total 275.
func addScenarioItems(t *testing.T, rig *testRig, code string) {
	t.Helper()
	ctx := context.Background()
	if _, err := rig.engine.AddItem(ctx, code, hostID, AddItemInput{ProductID: "pizza-1", Size: "regular", Quantity: 1}); err != nil {
		t.Fatalf("host AddItem failed: %v", err)
	}
	if _, err := rig.engine.AddItem(ctx, code, guestID, AddItemInput{ProductID: "drink-1", Size: "regular", Quantity: 1}); err != nil {
		t.Fatalf("guest AddItem failed: %v", err)
	}
}

func splitByID(splits []models.Split) map[string]float64 {
	m := make(map[string]float64, len(splits))
	for _, s := range splits {
		m[s.ParticipantID] = s.Amount
	}
	return m
}

func TestEqualSplitScenario(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	g := newOrderWithGuest(t, rig, 4)
	addScenarioItems(t, rig, g.Code)

	splits, err := rig.engine.GetSplit(ctx, g.Code)
	if err != nil {
		t.Fatalf("GetSplit failed: %v", err)
	}
	byID := splitByID(splits)
	if math.Abs(byID[hostID.Key()]-137.50) > 0.001 || math.Abs(byID[guestID.Key()]-137.50) > 0.001 {
		t.Errorf("equal splits = %v, want 137.50 each", byID)
	}
}

func TestByItemSplitScenario(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	g := newOrderWithGuest(t, rig, 4)
	addScenarioItems(t, rig, g.Code)

	_, splits, err := rig.engine.SetSplitType(ctx, g.Code, hostID, models.SplitByItem)
	if err != nil {
		t.Fatalf("SetSplitType failed: %v", err)
	}
	byID := splitByID(splits)
	if math.Abs(byID[hostID.Key()]-220.0) > 0.001 || math.Abs(byID[guestID.Key()]-55.0) > 0.001 {
		t.Errorf("by_item splits = %v, want host 220.00 / guest 55.00", byID)
	}

	if _, _, err := rig.engine.SetSplitType(ctx, g.Code, guestID, models.SplitEqual); !errors.Is(err, ErrNotHost) {
		t.Errorf("guest SetSplitType: expected ErrNotHost, got %v", err)
	}
	if _, _, err := rig.engine.SetSplitType(ctx, g.Code, hostID, "thirds"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("bad split type: expected ErrInvalidArgument, got %v", err)
	}
}

func TestLockUnlockGateItemMutations(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	g := newOrderWithGuest(t, rig, 4)

	if _, err := rig.engine.Lock(ctx, g.Code, guestID); !errors.Is(err, ErrNotHost) {
		t.Errorf("guest lock: expected ErrNotHost, got %v", err)
	}
	if _, err := rig.engine.Lock(ctx, g.Code, hostID); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if _, err := rig.engine.Lock(ctx, g.Code, hostID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double lock: expected ErrInvalidTransition, got %v", err)
	}

	addDrink := AddItemInput{ProductID: "drink-1", Size: "regular", Quantity: 1}
	if _, err := rig.engine.AddItem(ctx, g.Code, guestID, addDrink); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("add while locked: expected ErrInvalidTransition, got %v", err)
	}

	if _, err := rig.engine.Unlock(ctx, g.Code, hostID); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if _, err := rig.engine.AddItem(ctx, g.Code, guestID, addDrink); err != nil {
		t.Errorf("add after unlock failed: %v", err)
	}
}

func TestToggleReadyHasNoGatingEffect(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	g := newOrderWithGuest(t, rig, 4)

	got, err := rig.engine.ToggleReady(ctx, g.Code, guestID)
	if err != nil {
		t.Fatalf("ToggleReady failed: %v", err)
	}
	if !got.Participant(guestID.Key()).IsReady {
		t.Error("expected guest to be ready")
	}

	got, err = rig.engine.ToggleReady(ctx, g.Code, guestID)
	if err != nil {
		t.Fatalf("second ToggleReady failed: %v", err)
	}
	if got.Participant(guestID.Key()).IsReady {
		t.Error("expected readiness to toggle back off")
	}

	// Nobody is ready; the host can still lock and check out.
	addScenarioItems(t, rig, g.Code)
	if _, err := rig.engine.Lock(ctx, g.Code, hostID); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if _, err := rig.engine.Checkout(ctx, g.Code, hostID, nil); err != nil {
		t.Errorf("Checkout with nobody ready failed: %v", err)
	}
}

func TestCheckout(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	g := newOrderWithGuest(t, rig, 4)
	addScenarioItems(t, rig, g.Code)

	// Checkout is only reachable from locked.
	if _, err := rig.engine.Checkout(ctx, g.Code, hostID, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("checkout from active: expected ErrInvalidTransition, got %v", err)
	}

	if _, err := rig.engine.Lock(ctx, g.Code, hostID); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if _, err := rig.engine.Checkout(ctx, g.Code, guestID, nil); !errors.Is(err, ErrNotHost) {
		t.Errorf("guest checkout: expected ErrNotHost, got %v", err)
	}

	res, err := rig.engine.Checkout(ctx, g.Code, hostID, map[string]string{"table": "7"})
	if err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	if res.GroupOrder.Status != models.StatusOrdered {
		t.Errorf("status = %q, want ordered", res.GroupOrder.Status)
	}
	if res.ExternalOrderID == "" {
		t.Error("expected an external order id")
	}

	var sum float64
	for _, s := range res.Splits {
		sum += s.Amount
	}
	if math.Abs(sum-res.GroupOrder.Total) > 0.01 {
		t.Errorf("split sum = %v, total = %v", sum, res.GroupOrder.Total)
	}

	if len(rig.orders.placed) != 1 {
		t.Fatalf("order service received %d payloads, want 1", len(rig.orders.placed))
	}
	payload := rig.orders.placed[0]
	if len(payload.Items) != 2 || payload.Total != 275 {
		t.Errorf("payload items/total = %d/%v, want 2/275", len(payload.Items), payload.Total)
	}
	if payload.Details["table"] != "7" {
		t.Errorf("details not passed through: %v", payload.Details)
	}
}

func TestCheckoutFailureLeavesOrderLocked(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	g := newOrderWithGuest(t, rig, 4)
	addScenarioItems(t, rig, g.Code)

	if _, err := rig.engine.Lock(ctx, g.Code, hostID); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	rig.orders.failWith = orders.ErrUnavailable
	if _, err := rig.engine.Checkout(ctx, g.Code, hostID, nil); !errors.Is(err, ErrExternalService) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}

	got, err := rig.engine.Get(ctx, g.Code)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != models.StatusLocked {
		t.Errorf("status after failed checkout = %q, want locked", got.Status)
	}

	// The host retries once the order service recovers.
	rig.orders.failWith = nil
	if _, err := rig.engine.Checkout(ctx, g.Code, hostID, nil); err != nil {
		t.Errorf("retry checkout failed: %v", err)
	}
}

func TestCheckoutEmptyOrderRejected(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	g := newOrderWithGuest(t, rig, 4)

	if _, err := rig.engine.Lock(ctx, g.Code, hostID); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if _, err := rig.engine.Checkout(ctx, g.Code, hostID, nil); !errors.Is(err, ErrEmptyOrder) {
		t.Errorf("expected ErrEmptyOrder, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	g := newOrderWithGuest(t, rig, 4)

	if err := rig.engine.Cancel(ctx, g.Code, guestID); !errors.Is(err, ErrNotHost) {
		t.Errorf("guest cancel: expected ErrNotHost, got %v", err)
	}
	if err := rig.engine.Cancel(ctx, g.Code, hostID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	got, err := rig.engine.Get(ctx, g.Code)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != models.StatusCancelled {
		t.Errorf("status = %q, want cancelled", got.Status)
	}
	if err := rig.engine.Cancel(ctx, g.Code, hostID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double cancel: expected ErrInvalidTransition, got %v", err)
	}
}

func TestConcurrentAddItemsAreNotLost(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	g := newOrderWithGuest(t, rig, 4)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = rig.engine.AddItem(ctx, g.Code, hostID, AddItemInput{ProductID: "pizza-1", Size: "regular", Quantity: 1})
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = rig.engine.AddItem(ctx, g.Code, guestID, AddItemInput{ProductID: "drink-1", Size: "regular", Quantity: 1})
	}()
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("concurrent AddItem %d failed: %v", i, err)
		}
	}

	got, err := rig.engine.Get(ctx, g.Code)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ItemCount() != 2 {
		t.Errorf("items = %d, want 2 (lost update)", got.ItemCount())
	}
	if got.Total != 275 {
		t.Errorf("total = %v, want 275", got.Total)
	}
}

func TestMutationsBroadcastInCommitOrder(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	g := newOrderWithGuest(t, rig, 4)

	ch, cancel, err := rig.engine.Subscribe(ctx, g.Code)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer cancel()

	if _, err := rig.engine.AddItem(ctx, g.Code, hostID, AddItemInput{ProductID: "pizza-1", Size: "regular", Quantity: 1}); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if _, err := rig.engine.Lock(ctx, g.Code, hostID); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if err := rig.engine.Cancel(ctx, g.Code, hostID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	want := []broadcast.EventKind{broadcast.EventItemAdded, broadcast.EventOrderLocked, broadcast.EventOrderCancelled}
	for i, k := range want {
		ev, ok := <-ch
		if !ok {
			t.Fatalf("channel closed before event %d", i)
		}
		if ev.Kind != k {
			t.Errorf("event %d = %q, want %q", i, ev.Kind, k)
		}
		if ev.GroupOrder == nil || ev.GroupOrder.Code != g.Code {
			t.Errorf("event %d missing snapshot", i)
		}
	}

	// Terminal transition closes the room.
	if _, ok := <-ch; ok {
		t.Error("expected channel to close after cancellation")
	}

	// Rejected operations never broadcast.
	ch2, cancel2, err := rig.engine.Subscribe(ctx, g.Code)
	if err != nil {
		t.Fatalf("resubscribe failed: %v", err)
	}
	defer cancel2()
	if _, err := rig.engine.Lock(ctx, g.Code, hostID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("lock of cancelled order: expected ErrInvalidTransition, got %v", err)
	}
	select {
	case ev := <-ch2:
		t.Errorf("unexpected event %q after rejected operation", ev.Kind)
	default:
	}
}
