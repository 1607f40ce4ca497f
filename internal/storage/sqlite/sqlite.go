// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/opentab/grouporder/internal/models"
	"github.com/opentab/grouporder/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// codeAlphabet excludes ambiguous characters (0/O, 1/I) so codes survive
// being read aloud at the table.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
	codeAttempts = 5
)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// newCode generates a random join code.
func newCode() (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// CreateGroupOrder persists a new group order, generating its ID, join code
// and creation timestamp. The code is checked for collisions against
// non-terminal orders and regenerated if needed; terminal codes are retired
// and may be reissued.
func (s *SQLiteStore) CreateGroupOrder(ctx context.Context, g *models.GroupOrder) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.CreatedAt == 0 {
		g.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if g.Code == "" {
		for attempt := 0; ; attempt++ {
			code, err := newCode()
			if err != nil {
				return err
			}
			var taken bool
			err = tx.QueryRowContext(ctx,
				"SELECT EXISTS(SELECT 1 FROM group_orders WHERE code = ? AND status IN (?, ?))",
				code, models.StatusActive, models.StatusLocked,
			).Scan(&taken)
			if err != nil {
				return fmt.Errorf("failed to check code: %w", err)
			}
			if !taken {
				g.Code = code
				break
			}
			if attempt+1 >= codeAttempts {
				return fmt.Errorf("failed to find a free join code after %d attempts", codeAttempts)
			}
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO group_orders
		 (id, code, name, host_kind, host_id, status, max_participants, split_type, external_order_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Code, g.Name, g.Host.Kind, g.Host.ID, g.Status,
		g.MaxParticipants, g.SplitType, g.ExternalOrderID, g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group order: %w", err)
	}

	if err := insertMembers(ctx, tx, g); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetGroupOrder retrieves a group order by code, including participants and
// their items. A non-terminal order takes precedence over retired terminal
// orders that shared the code.
func (s *SQLiteStore) GetGroupOrder(ctx context.Context, code string) (*models.GroupOrder, error) {
	g := &models.GroupOrder{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, code, name, host_kind, host_id, status, max_participants, split_type, external_order_id, created_at
		 FROM group_orders WHERE code = ?
		 ORDER BY CASE WHEN status IN (?, ?) THEN 0 ELSE 1 END, created_at DESC
		 LIMIT 1`,
		code, models.StatusActive, models.StatusLocked,
	).Scan(&g.ID, &g.Code, &g.Name, &g.Host.Kind, &g.Host.ID, &g.Status,
		&g.MaxParticipants, &g.SplitType, &g.ExternalOrderID, &g.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group order %s: %w", code, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group order: %w", err)
	}

	if err := s.loadMembers(ctx, g); err != nil {
		return nil, err
	}
	g.RecomputeTotals()
	return g, nil
}

// SaveGroupOrder replaces the stored state of an existing group order.
// Participants and items are rewritten wholesale; the aggregate row is small
// enough that diffing is not worth the complexity.
func (s *SQLiteStore) SaveGroupOrder(ctx context.Context, g *models.GroupOrder) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE group_orders
		 SET name = ?, status = ?, split_type = ?, external_order_id = ?
		 WHERE id = ?`,
		g.Name, g.Status, g.SplitType, g.ExternalOrderID, g.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update group order: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("group order %s: %w", g.Code, storage.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM group_participants WHERE order_id = ?", g.ID); err != nil {
		return fmt.Errorf("failed to clear participants: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM group_item_addons WHERE item_id IN (SELECT id FROM group_items WHERE order_id = ?)`, g.ID,
	); err != nil {
		return fmt.Errorf("failed to clear item addons: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM group_items WHERE order_id = ?", g.ID); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}

	if err := insertMembers(ctx, tx, g); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// insertMembers writes all participants and their items within tx.
// Position columns preserve join order and ledger order on load.
func insertMembers(ctx context.Context, tx *sql.Tx, g *models.GroupOrder) error {
	itemPos := 0
	for pos, p := range g.Participants {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO group_participants
			 (order_id, identity_kind, identity_id, name, is_host, is_ready, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			g.ID, p.Identity.Kind, p.Identity.ID, p.Name, p.IsHost, p.IsReady, pos,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}

		for _, item := range p.Items {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO group_items
				 (id, order_id, identity_kind, identity_id, product_id, product_name, size, quantity, unit_price, notes, position)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				item.ID, g.ID, p.Identity.Kind, p.Identity.ID, item.ProductID,
				item.ProductName, item.Size, item.Quantity, item.UnitPrice, item.Notes, itemPos,
			)
			if err != nil {
				return fmt.Errorf("failed to insert item: %w", err)
			}
			itemPos++

			for _, c := range item.Customizations {
				_, err := tx.ExecContext(ctx,
					"INSERT INTO group_item_addons (item_id, name, price) VALUES (?, ?, ?)",
					item.ID, c.Name, c.Price,
				)
				if err != nil {
					return fmt.Errorf("failed to insert item addon: %w", err)
				}
			}
		}
	}
	return nil
}

// loadMembers populates g.Participants (in join order) and their items.
func (s *SQLiteStore) loadMembers(ctx context.Context, g *models.GroupOrder) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT identity_kind, identity_id, name, is_host, is_ready
		 FROM group_participants WHERE order_id = ? ORDER BY position`,
		g.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	index := make(map[string]int)
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.Identity.Kind, &p.Identity.ID, &p.Name, &p.IsHost, &p.IsReady); err != nil {
			return fmt.Errorf("failed to scan participant: %w", err)
		}
		index[p.Identity.Key()] = len(g.Participants)
		g.Participants = append(g.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate participants: %w", err)
	}

	itemRows, err := s.db.QueryContext(ctx,
		`SELECT id, identity_kind, identity_id, product_id, product_name, size, quantity, unit_price, notes
		 FROM group_items WHERE order_id = ? ORDER BY position`,
		g.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item models.Item
		var owner models.Identity
		if err := itemRows.Scan(&item.ID, &owner.Kind, &owner.ID, &item.ProductID,
			&item.ProductName, &item.Size, &item.Quantity, &item.UnitPrice, &item.Notes); err != nil {
			return fmt.Errorf("failed to scan item: %w", err)
		}

		addonRows, err := s.db.QueryContext(ctx,
			"SELECT name, price FROM group_item_addons WHERE item_id = ? ORDER BY name",
			item.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to get item addons: %w", err)
		}
		for addonRows.Next() {
			var c models.Customization
			if err := addonRows.Scan(&c.Name, &c.Price); err != nil {
				addonRows.Close()
				return fmt.Errorf("failed to scan addon: %w", err)
			}
			item.Customizations = append(item.Customizations, c)
		}
		addonRows.Close()
		if err := addonRows.Err(); err != nil {
			return fmt.Errorf("failed to iterate addons: %w", err)
		}

		if i, ok := index[owner.Key()]; ok {
			g.Participants[i].Items = append(g.Participants[i].Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate items: %w", err)
	}
	return nil
}
