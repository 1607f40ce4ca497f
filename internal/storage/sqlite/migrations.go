package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Codes of terminal (ordered/cancelled) group orders may be reissued, so the
// code column is indexed but not unique; uniqueness among non-terminal orders
// is enforced at creation time.
const schema = `
CREATE TABLE IF NOT EXISTS group_orders (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    host_kind TEXT NOT NULL,
    host_id TEXT NOT NULL,
    status TEXT NOT NULL,
    max_participants INTEGER NOT NULL,
    split_type TEXT NOT NULL,
    external_order_id TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS group_participants (
    order_id TEXT NOT NULL,
    identity_kind TEXT NOT NULL,
    identity_id TEXT NOT NULL,
    name TEXT NOT NULL,
    is_host INTEGER NOT NULL DEFAULT 0,
    is_ready INTEGER NOT NULL DEFAULT 0,
    position INTEGER NOT NULL,
    PRIMARY KEY (order_id, identity_kind, identity_id),
    FOREIGN KEY (order_id) REFERENCES group_orders(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS group_items (
    id TEXT PRIMARY KEY,
    order_id TEXT NOT NULL,
    identity_kind TEXT NOT NULL,
    identity_id TEXT NOT NULL,
    product_id TEXT NOT NULL,
    product_name TEXT NOT NULL,
    size TEXT NOT NULL,
    quantity INTEGER NOT NULL,
    unit_price REAL NOT NULL,
    notes TEXT NOT NULL DEFAULT '',
    position INTEGER NOT NULL,
    FOREIGN KEY (order_id) REFERENCES group_orders(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS group_item_addons (
    item_id TEXT NOT NULL,
    name TEXT NOT NULL,
    price REAL NOT NULL,
    PRIMARY KEY (item_id, name),
    FOREIGN KEY (item_id) REFERENCES group_items(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_group_orders_code ON group_orders(code);
CREATE INDEX IF NOT EXISTS idx_group_participants_order_id ON group_participants(order_id);
CREATE INDEX IF NOT EXISTS idx_group_items_order_id ON group_items(order_id);
CREATE INDEX IF NOT EXISTS idx_group_item_addons_item_id ON group_item_addons(item_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
