package group

import "errors"

// Error taxonomy for the engine. Every rejected operation leaves the group
// order unchanged and wraps one of these sentinels so the service layer can
// report the specific kind to the caller.
var (
	// ErrNotFound means no group order exists under the given code.
	ErrNotFound = errors.New("group order not found")

	// ErrItemNotFound means the item does not exist in the caller's own
	// ledger. Cross-participant item references are always rejected with
	// this, host included.
	ErrItemNotFound = errors.New("item not found in your order")

	// ErrForbidden means the caller is not a participant of the group order.
	ErrForbidden = errors.New("not a participant of this group order")

	// ErrNotHost means a host-only operation was attempted by someone else.
	ErrNotHost = errors.New("only the host can do that")

	// ErrInvalidTransition means the operation is incompatible with the
	// order's current status.
	ErrInvalidTransition = errors.New("operation not allowed in current status")

	// ErrCapacityExceeded means the order already has maxParticipants members.
	ErrCapacityExceeded = errors.New("group order is full")

	// ErrHostCannotLeave means the host tried to leave; the host's way out
	// is cancelling the order.
	ErrHostCannotLeave = errors.New("host cannot leave the order; cancel it instead")

	// ErrIdentityRequired means the operation needs an identity the caller
	// did not present.
	ErrIdentityRequired = errors.New("identity required")

	// ErrInvalidArgument means the request itself is malformed (bad
	// quantity, unknown size or customization, unknown split type).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmptyOrder means checkout was attempted with no items in any ledger.
	ErrEmptyOrder = errors.New("cannot check out an empty order")

	// ErrExternalService means the catalog or order service was unreachable
	// or failed. Checkout failures of this kind leave the order locked for
	// retry.
	ErrExternalService = errors.New("external service failure")
)
