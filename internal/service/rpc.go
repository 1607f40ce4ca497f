package service

import (
	"github.com/opentab/grouporder/internal/models"
)

// Wire types for the GroupOrderService and AuthService procedures. Responses
// embed full order snapshots so clients never have to merge partial updates.

type CreateRequest struct {
	Name            string `json:"name"`
	HostName        string `json:"hostName"`
	MaxParticipants int    `json:"maxParticipants"`
}

type GetRequest struct {
	Code string `json:"code"`
}

type JoinRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type LeaveRequest struct {
	Code string `json:"code"`
}

type LeaveResponse struct{}

type AddItemRequest struct {
	Code           string   `json:"code"`
	ProductID      string   `json:"productId"`
	Size           string   `json:"size"`
	Quantity       int      `json:"quantity"`
	Customizations []string `json:"customizations,omitempty"`
	Notes          string   `json:"notes,omitempty"`
}

type UpdateItemRequest struct {
	Code     string `json:"code"`
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

type RemoveItemRequest struct {
	Code   string `json:"code"`
	ItemID string `json:"itemId"`
}

type ToggleReadyRequest struct {
	Code string `json:"code"`
}

type SetSplitTypeRequest struct {
	Code      string           `json:"code"`
	SplitType models.SplitType `json:"splitType"`
}

type GetSplitRequest struct {
	Code string `json:"code"`
}

type LockRequest struct {
	Code string `json:"code"`
}

type UnlockRequest struct {
	Code string `json:"code"`
}

type CancelRequest struct {
	Code string `json:"code"`
}

type CancelResponse struct{}

type CheckoutRequest struct {
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

type CheckoutResponse struct {
	GroupOrder      *models.GroupOrder `json:"groupOrder"`
	Splits          []models.Split     `json:"splits"`
	ExternalOrderID string             `json:"externalOrderId"`
}

type SubscribeRequest struct {
	Code string `json:"code"`
}

// GroupOrderResponse is the shared response for every procedure that returns
// an order snapshot.
type GroupOrderResponse struct {
	GroupOrder *models.GroupOrder `json:"groupOrder"`
}

type SplitsResponse struct {
	SplitType models.SplitType `json:"splitType"`
	Total     float64          `json:"total"`
	Splits    []models.Split   `json:"splits"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is shared by Register and Login.
type AuthResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}
