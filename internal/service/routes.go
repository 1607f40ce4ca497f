package service

import (
	"net/http"

	"connectrpc.com/connect"
)

// Procedure paths. The service is defined directly in Go, so the handlers
// are mounted by hand instead of through generated glue.
const (
	CreateProcedure       = "/opentab.v1.GroupOrderService/Create"
	GetProcedure          = "/opentab.v1.GroupOrderService/Get"
	JoinProcedure         = "/opentab.v1.GroupOrderService/Join"
	LeaveProcedure        = "/opentab.v1.GroupOrderService/Leave"
	AddItemProcedure      = "/opentab.v1.GroupOrderService/AddItem"
	UpdateItemProcedure   = "/opentab.v1.GroupOrderService/UpdateItem"
	RemoveItemProcedure   = "/opentab.v1.GroupOrderService/RemoveItem"
	ToggleReadyProcedure  = "/opentab.v1.GroupOrderService/ToggleReady"
	SetSplitTypeProcedure = "/opentab.v1.GroupOrderService/SetSplitType"
	GetSplitProcedure     = "/opentab.v1.GroupOrderService/GetSplit"
	LockProcedure         = "/opentab.v1.GroupOrderService/Lock"
	UnlockProcedure       = "/opentab.v1.GroupOrderService/Unlock"
	CheckoutProcedure     = "/opentab.v1.GroupOrderService/Checkout"
	CancelProcedure       = "/opentab.v1.GroupOrderService/Cancel"
	SubscribeProcedure    = "/opentab.v1.GroupOrderService/Subscribe"

	RegisterProcedure = "/opentab.v1.AuthService/Register"
	LoginProcedure    = "/opentab.v1.AuthService/Login"
)

// Options returns the handler options every procedure shares: the JSON codec
// plus whatever interceptors the caller passes in.
func Options(opts ...connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
}

// Routes mounts every procedure on the mux.
func Routes(mux *http.ServeMux, orders *GroupOrderService, auth *AuthService, opts ...connect.HandlerOption) {
	shared := Options(opts...)

	mux.Handle(CreateProcedure, connect.NewUnaryHandler(CreateProcedure, orders.Create, shared...))
	mux.Handle(GetProcedure, connect.NewUnaryHandler(GetProcedure, orders.Get, shared...))
	mux.Handle(JoinProcedure, connect.NewUnaryHandler(JoinProcedure, orders.Join, shared...))
	mux.Handle(LeaveProcedure, connect.NewUnaryHandler(LeaveProcedure, orders.Leave, shared...))
	mux.Handle(AddItemProcedure, connect.NewUnaryHandler(AddItemProcedure, orders.AddItem, shared...))
	mux.Handle(UpdateItemProcedure, connect.NewUnaryHandler(UpdateItemProcedure, orders.UpdateItem, shared...))
	mux.Handle(RemoveItemProcedure, connect.NewUnaryHandler(RemoveItemProcedure, orders.RemoveItem, shared...))
	mux.Handle(ToggleReadyProcedure, connect.NewUnaryHandler(ToggleReadyProcedure, orders.ToggleReady, shared...))
	mux.Handle(SetSplitTypeProcedure, connect.NewUnaryHandler(SetSplitTypeProcedure, orders.SetSplitType, shared...))
	mux.Handle(GetSplitProcedure, connect.NewUnaryHandler(GetSplitProcedure, orders.GetSplit, shared...))
	mux.Handle(LockProcedure, connect.NewUnaryHandler(LockProcedure, orders.Lock, shared...))
	mux.Handle(UnlockProcedure, connect.NewUnaryHandler(UnlockProcedure, orders.Unlock, shared...))
	mux.Handle(CheckoutProcedure, connect.NewUnaryHandler(CheckoutProcedure, orders.Checkout, shared...))
	mux.Handle(CancelProcedure, connect.NewUnaryHandler(CancelProcedure, orders.Cancel, shared...))
	mux.Handle(SubscribeProcedure, connect.NewServerStreamHandler(SubscribeProcedure, orders.Subscribe, shared...))

	mux.Handle(RegisterProcedure, connect.NewUnaryHandler(RegisterProcedure, auth.Register, shared...))
	mux.Handle(LoginProcedure, connect.NewUnaryHandler(LoginProcedure, auth.Login, shared...))
}
