package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/opentab/grouporder/internal/group"
	"github.com/opentab/grouporder/internal/middleware"
	"github.com/opentab/grouporder/internal/models"
)

// GroupOrderService exposes the group ordering engine over Connect.
type GroupOrderService struct {
	engine *group.Engine
}

// NewGroupOrderService creates a new GroupOrderService backed by the engine.
func NewGroupOrderService(engine *group.Engine) *GroupOrderService {
	return &GroupOrderService{engine: engine}
}

// connectError maps engine sentinels onto connect codes.
func connectError(err error) *connect.Error {
	var code connect.Code
	switch {
	case errors.Is(err, group.ErrNotFound), errors.Is(err, group.ErrItemNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, group.ErrNotHost),
		errors.Is(err, group.ErrForbidden),
		errors.Is(err, group.ErrHostCannotLeave):
		code = connect.CodePermissionDenied
	case errors.Is(err, group.ErrInvalidTransition), errors.Is(err, group.ErrEmptyOrder):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, group.ErrCapacityExceeded):
		code = connect.CodeResourceExhausted
	case errors.Is(err, group.ErrIdentityRequired):
		code = connect.CodeUnauthenticated
	case errors.Is(err, group.ErrInvalidArgument):
		code = connect.CodeInvalidArgument
	case errors.Is(err, group.ErrExternalService):
		code = connect.CodeUnavailable
	default:
		code = connect.CodeInternal
	}
	return connect.NewError(code, err)
}

// Create starts a new group order hosted by the authenticated caller.
func (s *GroupOrderService) Create(ctx context.Context, req *connect.Request[CreateRequest]) (*connect.Response[GroupOrderResponse], error) {
	slog.Info("Create request received", "name", req.Msg.Name)

	hostName := req.Msg.HostName
	if hostName == "" {
		hostName = middleware.GetDisplayName(ctx)
	}

	g, err := s.engine.Create(ctx, middleware.GetIdentity(ctx), hostName, req.Msg.Name, req.Msg.MaxParticipants)
	if err != nil {
		slog.Error("Create failed", "error", err)
		return nil, connectError(err)
	}

	slog.Info("Group order created", "code", g.Code, "host", g.Host.Key())
	return connect.NewResponse(&GroupOrderResponse{GroupOrder: g}), nil
}

// Get returns the latest snapshot of an order. No membership required; the
// code is the capability.
func (s *GroupOrderService) Get(ctx context.Context, req *connect.Request[GetRequest]) (*connect.Response[GroupOrderResponse], error) {
	g, err := s.engine.Get(ctx, req.Msg.Code)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&GroupOrderResponse{GroupOrder: g}), nil
}

// Join adds the caller as a participant.
func (s *GroupOrderService) Join(ctx context.Context, req *connect.Request[JoinRequest]) (*connect.Response[GroupOrderResponse], error) {
	name := req.Msg.Name
	if name == "" {
		name = middleware.GetDisplayName(ctx)
	}

	g, err := s.engine.Join(ctx, req.Msg.Code, middleware.GetIdentity(ctx), name)
	if err != nil {
		slog.Warn("Join failed", "code", req.Msg.Code, "error", err)
		return nil, connectError(err)
	}
	return connect.NewResponse(&GroupOrderResponse{GroupOrder: g}), nil
}

// Leave removes the caller from the order.
func (s *GroupOrderService) Leave(ctx context.Context, req *connect.Request[LeaveRequest]) (*connect.Response[LeaveResponse], error) {
	if err := s.engine.Leave(ctx, req.Msg.Code, middleware.GetIdentity(ctx)); err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&LeaveResponse{}), nil
}

// AddItem appends a catalog-priced item to the caller's ledger.
func (s *GroupOrderService) AddItem(ctx context.Context, req *connect.Request[AddItemRequest]) (*connect.Response[GroupOrderResponse], error) {
	g, err := s.engine.AddItem(ctx, req.Msg.Code, middleware.GetIdentity(ctx), group.AddItemInput{
		ProductID:      req.Msg.ProductID,
		Size:           req.Msg.Size,
		Quantity:       req.Msg.Quantity,
		Customizations: req.Msg.Customizations,
		Notes:          req.Msg.Notes,
	})
	if err != nil {
		slog.Warn("AddItem failed", "code", req.Msg.Code, "product_id", req.Msg.ProductID, "error", err)
		return nil, connectError(err)
	}
	return connect.NewResponse(&GroupOrderResponse{GroupOrder: g}), nil
}

// UpdateItem changes the quantity of an item in the caller's ledger.
func (s *GroupOrderService) UpdateItem(ctx context.Context, req *connect.Request[UpdateItemRequest]) (*connect.Response[GroupOrderResponse], error) {
	g, err := s.engine.UpdateItem(ctx, req.Msg.Code, middleware.GetIdentity(ctx), req.Msg.ItemID, req.Msg.Quantity)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&GroupOrderResponse{GroupOrder: g}), nil
}

// RemoveItem deletes an item from the caller's ledger.
func (s *GroupOrderService) RemoveItem(ctx context.Context, req *connect.Request[RemoveItemRequest]) (*connect.Response[GroupOrderResponse], error) {
	g, err := s.engine.RemoveItem(ctx, req.Msg.Code, middleware.GetIdentity(ctx), req.Msg.ItemID)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&GroupOrderResponse{GroupOrder: g}), nil
}

// ToggleReady flips the caller's readiness flag.
func (s *GroupOrderService) ToggleReady(ctx context.Context, req *connect.Request[ToggleReadyRequest]) (*connect.Response[GroupOrderResponse], error) {
	g, err := s.engine.ToggleReady(ctx, req.Msg.Code, middleware.GetIdentity(ctx))
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&GroupOrderResponse{GroupOrder: g}), nil
}

// SetSplitType selects the split strategy. Host only.
func (s *GroupOrderService) SetSplitType(ctx context.Context, req *connect.Request[SetSplitTypeRequest]) (*connect.Response[GroupOrderResponse], error) {
	g, _, err := s.engine.SetSplitType(ctx, req.Msg.Code, middleware.GetIdentity(ctx), req.Msg.SplitType)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&GroupOrderResponse{GroupOrder: g}), nil
}

// GetSplit derives the current per-participant amounts.
func (s *GroupOrderService) GetSplit(ctx context.Context, req *connect.Request[GetSplitRequest]) (*connect.Response[SplitsResponse], error) {
	g, err := s.engine.Get(ctx, req.Msg.Code)
	if err != nil {
		return nil, connectError(err)
	}
	splits, err := s.engine.GetSplit(ctx, req.Msg.Code)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&SplitsResponse{
		SplitType: g.SplitType,
		Total:     g.Total,
		Splits:    splits,
	}), nil
}

// Lock freezes the order for review.
func (s *GroupOrderService) Lock(ctx context.Context, req *connect.Request[LockRequest]) (*connect.Response[GroupOrderResponse], error) {
	g, err := s.engine.Lock(ctx, req.Msg.Code, middleware.GetIdentity(ctx))
	if err != nil {
		return nil, connectError(err)
	}
	slog.Info("Group order locked", "code", g.Code)
	return connect.NewResponse(&GroupOrderResponse{GroupOrder: g}), nil
}

// Unlock rolls a locked order back to active.
func (s *GroupOrderService) Unlock(ctx context.Context, req *connect.Request[UnlockRequest]) (*connect.Response[GroupOrderResponse], error) {
	g, err := s.engine.Unlock(ctx, req.Msg.Code, middleware.GetIdentity(ctx))
	if err != nil {
		return nil, connectError(err)
	}
	slog.Info("Group order unlocked", "code", g.Code)
	return connect.NewResponse(&GroupOrderResponse{GroupOrder: g}), nil
}

// Checkout places the locked order with the external order service.
func (s *GroupOrderService) Checkout(ctx context.Context, req *connect.Request[CheckoutRequest]) (*connect.Response[CheckoutResponse], error) {
	slog.Info("Checkout request received", "code", req.Msg.Code)

	res, err := s.engine.Checkout(ctx, req.Msg.Code, middleware.GetIdentity(ctx), req.Msg.Details)
	if err != nil {
		slog.Warn("Checkout failed", "code", req.Msg.Code, "error", err)
		return nil, connectError(err)
	}

	slog.Info("Checkout successful", "code", req.Msg.Code, "external_order_id", res.ExternalOrderID)
	return connect.NewResponse(&CheckoutResponse{
		GroupOrder:      res.GroupOrder,
		Splits:          res.Splits,
		ExternalOrderID: res.ExternalOrderID,
	}), nil
}

// Cancel terminates the order. Host only.
func (s *GroupOrderService) Cancel(ctx context.Context, req *connect.Request[CancelRequest]) (*connect.Response[CancelResponse], error) {
	if err := s.engine.Cancel(ctx, req.Msg.Code, middleware.GetIdentity(ctx)); err != nil {
		return nil, connectError(err)
	}
	slog.Info("Group order cancelled", "code", req.Msg.Code)
	return connect.NewResponse(&CancelResponse{}), nil
}

// Subscribe streams the order's room events to the caller until the room
// closes or the caller disconnects. The first frame is a synthetic snapshot
// so late joiners start from the current state.
func (s *GroupOrderService) Subscribe(ctx context.Context, req *connect.Request[SubscribeRequest], stream *connect.ServerStream[Event]) error {
	g, err := s.engine.Get(ctx, req.Msg.Code)
	if err != nil {
		return connectError(err)
	}

	events, cancel, err := s.engine.Subscribe(ctx, req.Msg.Code)
	if err != nil {
		return connectError(err)
	}
	defer cancel()

	if err := stream.Send(&Event{Kind: EventSnapshot, GroupOrder: g}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil // room closed on terminal transition
			}
			if err := stream.Send(&Event{
				Kind:       string(ev.Kind),
				GroupOrder: ev.GroupOrder,
				Splits:     ev.Splits,
			}); err != nil {
				return err
			}
		}
	}
}

// Event is the wire form of one room event.
type Event struct {
	Kind       string             `json:"event"`
	GroupOrder *models.GroupOrder `json:"groupOrder"`
	Splits     []models.Split     `json:"splits,omitempty"`
}

// EventSnapshot is the synthetic first frame of every subscription.
const EventSnapshot = "snapshot"
