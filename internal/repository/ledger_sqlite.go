package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"ggshop-rest-api/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteLedgerRepository implements LedgerRepository using SQLite.
// Thread-safe with WAL mode for high-concurrency reads.
type SQLiteLedgerRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteLedgerRepository creates a new SQLite ledger repository.
// dbPath is the path to the SQLite database file (e.g., "./data/shop.db").
// An empty catalog is seeded with the named default outfit so a fresh
// database can serve the empty-ledger grant.
func NewSQLiteLedgerRepository(dbPath, defaultOutfit string) (*SQLiteLedgerRepository, error) {
	// Open with WAL mode and other optimizations
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite connection pool settings
	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // Keep connection alive

	if err := createLedgerTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	if err := seedDefaultOutfit(db, defaultOutfit); err != nil {
		return nil, fmt.Errorf("failed to seed default outfit: %w", err)
	}

	log.Printf("[SQLiteLedgerRepository] Initialized with database: %s", dbPath)
	return &SQLiteLedgerRepository{db: db}, nil
}

// createLedgerTables creates the catalog and ownership tables.
func createLedgerTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		license_id TEXT NOT NULL UNIQUE,
		xp INTEGER NOT NULL DEFAULT 0,
		cash INTEGER NOT NULL DEFAULT 0,
		donator INTEGER NOT NULL DEFAULT 0,
		active_user_outfit_id INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS outfits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		price INTEGER NOT NULL DEFAULT 0,
		discount REAL NOT NULL DEFAULT 0,
		required_xp INTEGER NOT NULL DEFAULT 0,
		donator_exclusive INTEGER NOT NULL DEFAULT 0,
		enabled INTEGER NOT NULL DEFAULT 1,
		tebex_package_id INTEGER NOT NULL DEFAULT 0,
		components TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL DEFAULT (datetime('now'))
	);
	CREATE TABLE IF NOT EXISTS general_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		kind INTEGER NOT NULL,
		price INTEGER NOT NULL DEFAULT 0,
		enabled INTEGER NOT NULL DEFAULT 1,
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		tebex_package_id INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT (datetime('now'))
	);
	CREATE TABLE IF NOT EXISTS user_outfits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		outfit_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME,
		UNIQUE(user_id, outfit_id)
	);
	CREATE TABLE IF NOT EXISTS user_general_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		item_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		one_time_activation INTEGER NOT NULL DEFAULT 0,
		UNIQUE(user_id, item_id)
	);
	CREATE INDEX IF NOT EXISTS idx_user_outfits_user ON user_outfits(user_id);
	CREATE INDEX IF NOT EXISTS idx_user_general_items_user ON user_general_items(user_id);
	`
	_, err := db.Exec(query)
	return err
}

// seedDefaultOutfit inserts the default outfit into an empty catalog so a
// fresh database can grant it. Existing catalogs are left alone.
func seedDefaultOutfit(db *sql.DB, name string) error {
	if name == "" {
		return nil
	}

	var count int64
	if err := db.QueryRow(`SELECT COUNT(1) FROM outfits`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	_, err := db.Exec(`
		INSERT INTO outfits (name, price, required_xp, enabled, components)
		VALUES (?, 0, 0, 1, '[]')`, name)
	if err == nil {
		log.Printf("[SQLiteLedgerRepository] Seeded empty catalog with default outfit %q", name)
	}
	return err
}

// GetCatalogOutfits returns all outfit definitions in catalog order.
func (r *SQLiteLedgerRepository) GetCatalogOutfits(ctx context.Context) ([]model.Outfit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, price, discount, required_xp, donator_exclusive, enabled,
		       tebex_package_id, components, created_at
		FROM outfits ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query outfits: %w", err)
	}
	defer rows.Close()

	var outfits []model.Outfit
	for rows.Next() {
		var o model.Outfit
		var components string
		if err := rows.Scan(&o.ID, &o.Name, &o.Price, &o.Discount, &o.RequiredXp,
			&o.DonatorExclusive, &o.Enabled, &o.TebexPackageID, &components, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outfit: %w", err)
		}
		if err := json.Unmarshal([]byte(components), &o.Components); err != nil {
			return nil, fmt.Errorf("failed to decode outfit %d components: %w", o.ID, err)
		}
		outfits = append(outfits, o)
	}
	return outfits, rows.Err()
}

// GetCatalogItems returns all general-item definitions in catalog order.
func (r *SQLiteLedgerRepository) GetCatalogItems(ctx context.Context) ([]model.GeneralItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, kind, price, enabled, duration_seconds, tebex_package_id, created_at
		FROM general_items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query general items: %w", err)
	}
	defer rows.Close()

	var items []model.GeneralItem
	for rows.Next() {
		var gi model.GeneralItem
		var seconds int64
		if err := rows.Scan(&gi.ID, &gi.Name, &gi.Kind, &gi.Price, &gi.Enabled,
			&seconds, &gi.TebexPackageID, &gi.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan general item: %w", err)
		}
		gi.Duration = time.Duration(seconds) * time.Second
		items = append(items, gi)
	}
	return items, rows.Err()
}

// GetUserOutfits returns the user's outfit records in insertion order.
func (r *SQLiteLedgerRepository) GetUserOutfits(ctx context.Context, userID int64) ([]model.UserOutfit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, outfit_id, created_at, expires_at
		FROM user_outfits WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user outfits: %w", err)
	}
	defer rows.Close()

	var records []model.UserOutfit
	for rows.Next() {
		var uo model.UserOutfit
		var expires sql.NullTime
		if err := rows.Scan(&uo.ID, &uo.UserID, &uo.OutfitID, &uo.CreatedAt, &expires); err != nil {
			return nil, fmt.Errorf("failed to scan user outfit: %w", err)
		}
		if expires.Valid {
			uo.ExpiresAt = expires.Time
		}
		records = append(records, uo)
	}
	return records, rows.Err()
}

// GetUserGeneralItems returns the user's general-item records in insertion order.
func (r *SQLiteLedgerRepository) GetUserGeneralItems(ctx context.Context, userID int64) ([]model.UserGeneralItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, item_id, created_at, expires_at, one_time_activation
		FROM user_general_items WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user general items: %w", err)
	}
	defer rows.Close()

	var records []model.UserGeneralItem
	for rows.Next() {
		var gi model.UserGeneralItem
		if err := rows.Scan(&gi.ID, &gi.UserID, &gi.ItemID, &gi.CreatedAt, &gi.ExpiresAt, &gi.OneTimeActivation); err != nil {
			return nil, fmt.Errorf("failed to scan user general item: %w", err)
		}
		records = append(records, gi)
	}
	return records, rows.Err()
}

// InsertUserOutfit stores a new ownership record.
func (r *SQLiteLedgerRepository) InsertUserOutfit(ctx context.Context, record model.UserOutfit) (model.UserOutfit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO user_outfits (user_id, outfit_id, created_at, expires_at)
		VALUES (?, ?, ?, NULLIF(?, '0001-01-01 00:00:00'))`,
		record.UserID, record.OutfitID, record.CreatedAt, record.ExpiresAt.Format("2006-01-02 15:04:05"))
	if err != nil {
		return record, fmt.Errorf("failed to insert user outfit: %w", err)
	}
	record.ID, _ = res.LastInsertId()
	return record, nil
}

// InsertUserGeneralItem stores a new ownership record.
func (r *SQLiteLedgerRepository) InsertUserGeneralItem(ctx context.Context, record model.UserGeneralItem) (model.UserGeneralItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO user_general_items (user_id, item_id, created_at, expires_at, one_time_activation)
		VALUES (?, ?, ?, ?, ?)`,
		record.UserID, record.ItemID, record.CreatedAt, record.ExpiresAt, record.OneTimeActivation)
	if err != nil {
		return record, fmt.Errorf("failed to insert user general item: %w", err)
	}
	record.ID, _ = res.LastInsertId()
	return record, nil
}

// DeleteUserOutfit removes the user's record for the catalog outfit.
func (r *SQLiteLedgerRepository) DeleteUserOutfit(ctx context.Context, outfitID, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM user_outfits WHERE outfit_id = ? AND user_id = ?`, outfitID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user outfit: %w", err)
	}
	return res.RowsAffected()
}

// DeleteUserGeneralItem removes the user's record for the catalog item.
func (r *SQLiteLedgerRepository) DeleteUserGeneralItem(ctx context.Context, itemID, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM user_general_items WHERE item_id = ? AND user_id = ?`, itemID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user general item: %w", err)
	}
	return res.RowsAffected()
}

// BuyUserOutfit checks ownership and balance, inserts the record and
// deducts the price, all in one transaction.
func (r *SQLiteLedgerRepository) BuyUserOutfit(ctx context.Context, userID, outfitID int64) (BuyStatus, error) {
	return r.buy(ctx, userID, outfitID,
		`SELECT price FROM outfits WHERE id = ? AND enabled = 1`,
		`SELECT COUNT(1) FROM user_outfits WHERE user_id = ? AND outfit_id = ?`,
		func(tx *sql.Tx) (int64, error) {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO user_outfits (user_id, outfit_id, created_at)
				VALUES (?, ?, datetime('now'))`, userID, outfitID)
			if err != nil {
				return 0, err
			}
			return res.LastInsertId()
		})
}

// BuyUserItem is BuyUserOutfit for general items. Expiry starts at
// purchase time and runs for the item's configured duration.
func (r *SQLiteLedgerRepository) BuyUserItem(ctx context.Context, userID, itemID int64) (BuyStatus, error) {
	return r.buy(ctx, userID, itemID,
		`SELECT price FROM general_items WHERE id = ? AND enabled = 1`,
		`SELECT COUNT(1) FROM user_general_items WHERE user_id = ? AND item_id = ?`,
		func(tx *sql.Tx) (int64, error) {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO user_general_items (user_id, item_id, created_at, expires_at, one_time_activation)
				SELECT ?, id, datetime('now'), datetime('now', '+' || duration_seconds || ' seconds'),
				       CASE WHEN kind = 1 THEN 0 ELSE 1 END
				FROM general_items WHERE id = ?`, userID, itemID)
			if err != nil {
				return 0, err
			}
			return res.LastInsertId()
		})
}

// buy implements the shared buy transaction: unknown item, already owned
// and balance checks map to the legacy status codes, converted to a
// BuyStatus before returning.
func (r *SQLiteLedgerRepository) buy(ctx context.Context, userID, itemID int64,
	priceQuery, ownedQuery string, insert func(tx *sql.Tx) (int64, error)) (BuyStatus, error) {

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return BuyStatus{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var price int
	if err := tx.QueryRowContext(ctx, priceQuery, itemID).Scan(&price); err != nil {
		if err == sql.ErrNoRows {
			return buyStatusFromCode(-99), nil
		}
		return BuyStatus{}, fmt.Errorf("failed to query item price: %w", err)
	}

	var owned int
	if err := tx.QueryRowContext(ctx, ownedQuery, userID, itemID).Scan(&owned); err != nil {
		return BuyStatus{}, fmt.Errorf("failed to query ownership: %w", err)
	}
	if owned > 0 {
		return buyStatusFromCode(0), nil
	}

	if price > 0 {
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET cash = cash - ? WHERE id = ? AND cash >= ?`, price, userID, price)
		if err != nil {
			return BuyStatus{}, fmt.Errorf("failed to deduct balance: %w", err)
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			return buyStatusFromCode(-1), nil
		}
	}

	recordID, err := insert(tx)
	if err != nil {
		return BuyStatus{}, fmt.Errorf("failed to insert ownership record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return BuyStatus{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return buyStatusFromCode(recordID), nil
}

// GetActiveSelection returns the user's persisted equipped-outfit record id.
func (r *SQLiteLedgerRepository) GetActiveSelection(ctx context.Context, userID int64) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var id int64
	err := r.db.QueryRowContext(ctx,
		`SELECT active_user_outfit_id FROM users WHERE id = ?`, userID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query active selection: %w", err)
	}
	return id, nil
}

// SetActiveSelection persists the user's equipped-outfit record id.
func (r *SQLiteLedgerRepository) SetActiveSelection(ctx context.Context, userID, userOutfitID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET active_user_outfit_id = ? WHERE id = ?`, userOutfitID, userID)
	if err != nil {
		return fmt.Errorf("failed to set active selection: %w", err)
	}
	return nil
}

// FlushSessionOwnership persists session-local outfit mutations in one
// transaction when a session ends.
func (r *SQLiteLedgerRepository) FlushSessionOwnership(ctx context.Context, records []model.UserOutfit) error {
	if len(records) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE user_outfits SET created_at = ?, expires_at = NULLIF(?, '0001-01-01 00:00:00')
		WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		if _, err := stmt.ExecContext(ctx, record.CreatedAt,
			record.ExpiresAt.Format("2006-01-02 15:04:05"), record.ID); err != nil {
			return fmt.Errorf("failed to flush record %d: %w", record.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetUserByLicense resolves a platform license identifier to a user.
func (r *SQLiteLedgerRepository) GetUserByLicense(ctx context.Context, licenseID string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var u model.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, license_id, xp, cash, donator, active_user_outfit_id
		FROM users WHERE license_id = ?`, licenseID).
		Scan(&u.ID, &u.LicenseID, &u.Xp, &u.Cash, &u.Donator, &u.ActiveUserOutfitID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user by license: %w", err)
	}
	return &u, nil
}

// Stats returns table counts for the admin surface.
func (r *SQLiteLedgerRepository) Stats(ctx context.Context) (map[string]interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := map[string]interface{}{"backend": "sqlite"}
	for _, table := range []string{"users", "outfits", "general_items", "user_outfits", "user_general_items"} {
		var count int64
		if err := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM "+table).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[table] = count
	}
	return stats, nil
}

// Close closes the database connection.
func (r *SQLiteLedgerRepository) Close() error {
	return r.db.Close()
}
