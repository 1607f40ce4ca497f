// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/opentab/grouporder/internal/models"
)

// ErrNotFound is returned when the requested record does not exist.
// Implementations wrap it so callers can test with errors.Is.
var ErrNotFound = errors.New("not found")

// Store defines the interface for group order and user persistence.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the engine or service layers.
type Store interface {
	// CreateGroupOrder persists a new group order. The order's ID, Code and
	// CreatedAt are populated by the store; the generated code is guaranteed
	// unique among non-terminal (active/locked) orders.
	CreateGroupOrder(ctx context.Context, g *models.GroupOrder) error

	// GetGroupOrder retrieves a group order by its code. When a terminal
	// order's code has been reissued, the non-terminal order wins; otherwise
	// the most recent order under that code is returned.
	GetGroupOrder(ctx context.Context, code string) (*models.GroupOrder, error)

	// SaveGroupOrder replaces the stored state of an existing group order,
	// including its participants and their items.
	SaveGroupOrder(ctx context.Context, g *models.GroupOrder) error

	// CreateUser persists a new registered user.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Close releases any resources held by the store.
	Close() error
}
