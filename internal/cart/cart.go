// Package cart persists shopping carts in SQLite.
package cart

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/inkpress/storefront/internal/models"
)

var ErrItemNotFound = errors.New("cart item not found")

const schema = `
CREATE TABLE IF NOT EXISTS cart_items (
	cart_id       TEXT    NOT NULL,
	id            TEXT    NOT NULL,
	name          TEXT    NOT NULL,
	image_url     TEXT    NOT NULL DEFAULT '',
	price_cents   INTEGER NOT NULL,
	quantity      INTEGER NOT NULL CHECK (quantity > 0),
	customization TEXT,
	added_at      INTEGER NOT NULL,
	PRIMARY KEY (cart_id, id)
);
CREATE INDEX IF NOT EXISTS idx_cart_items_added ON cart_items (cart_id, added_at);
`

// Store is safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the cart database at path. ":memory:"
// gives a private in-memory database.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cart db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cart db: %w", err)
	}
	// one connection keeps pragmas and in-memory databases consistent
	db.SetMaxOpenConns(1)

	for _, p := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cart schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping cart db: %w", err)
	}

	logger.Debug("Cart database ready", "path", path)
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Add puts item in the cart. Adding an id that is already present bumps
// its quantity by one instead.
func (s *Store) Add(ctx context.Context, cartID string, item models.CartItem) (models.CartItem, error) {
	if item.ID == "" {
		return models.CartItem{}, fmt.Errorf("cart item has no id")
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = s.now()
	}

	var custom sql.NullString
	if item.Customization != nil {
		data, err := json.Marshal(item.Customization)
		if err != nil {
			return models.CartItem{}, fmt.Errorf("failed to encode customization: %w", err)
		}
		custom = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cart_items (cart_id, id, name, image_url, price_cents, quantity, customization, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (cart_id, id) DO UPDATE SET quantity = quantity + 1`,
		cartID, item.ID, item.Name, item.ImageURL, item.PriceCents, item.Quantity, custom, item.AddedAt.UnixMilli(),
	)
	if err != nil {
		return models.CartItem{}, fmt.Errorf("failed to add cart item: %w", err)
	}

	stored, err := s.get(ctx, cartID, item.ID)
	if err != nil {
		return models.CartItem{}, err
	}
	s.logger.Info("Cart item added", "cart", cartID, "item", item.ID, "quantity", stored.Quantity)
	return stored, nil
}

// Remove deletes one line item.
func (s *Store) Remove(ctx context.Context, cartID, itemID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ? AND id = ?`, cartID, itemID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return affected(res, itemID)
}

// UpdateQuantity sets a line item's quantity. Zero or less removes it.
func (s *Store) UpdateQuantity(ctx context.Context, cartID, itemID string, quantity int) error {
	if quantity <= 0 {
		return s.Remove(ctx, cartID, itemID)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = ? WHERE cart_id = ? AND id = ?`, quantity, cartID, itemID)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	return affected(res, itemID)
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context, cartID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ?`, cartID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// List returns the cart's items in the order they were added.
func (s *Store) List(ctx context.Context, cartID string) ([]models.CartItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, image_url, price_cents, quantity, customization, added_at
		FROM cart_items WHERE cart_id = ? ORDER BY added_at, rowid`, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart: %w", err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list cart: %w", err)
	}
	return items, nil
}

// ItemCount is the sum of quantities.
func (s *Store) ItemCount(ctx context.Context, cartID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM cart_items WHERE cart_id = ?`, cartID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count cart items: %w", err)
	}
	return n, nil
}

// TotalCents is the sum of price times quantity.
func (s *Store) TotalCents(ctx context.Context, cartID string) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(price_cents * quantity), 0) FROM cart_items WHERE cart_id = ?`, cartID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to total cart: %w", err)
	}
	return total, nil
}

func (s *Store) get(ctx context.Context, cartID, itemID string) (models.CartItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, image_url, price_cents, quantity, customization, added_at
		FROM cart_items WHERE cart_id = ? AND id = ?`, cartID, itemID)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CartItem{}, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	return item, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(sc scanner) (models.CartItem, error) {
	var (
		item    models.CartItem
		custom  sql.NullString
		addedAt int64
	)
	if err := sc.Scan(&item.ID, &item.Name, &item.ImageURL, &item.PriceCents, &item.Quantity, &custom, &addedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return item, err
		}
		return item, fmt.Errorf("failed to read cart item: %w", err)
	}
	item.AddedAt = time.UnixMilli(addedAt)
	if custom.Valid {
		item.Customization = &models.Customization{}
		if err := json.Unmarshal([]byte(custom.String), item.Customization); err != nil {
			return item, fmt.Errorf("failed to decode customization of %s: %w", item.ID, err)
		}
	}
	return item, nil
}

func affected(res sql.Result, itemID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	return nil
}
