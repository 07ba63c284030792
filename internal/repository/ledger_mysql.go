package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"ggshop-rest-api/internal/model"
)

// MySQLLedgerRepository implements LedgerRepository using MySQL. The
// schema (including the buy_user_outfit / buy_user_item procedures that
// return the legacy status codes) is managed externally.
type MySQLLedgerRepository struct {
	db *sql.DB
}

// NewMySQLLedgerRepository creates a new MySQL ledger repository.
func NewMySQLLedgerRepository(db *sql.DB) *MySQLLedgerRepository {
	return &MySQLLedgerRepository{db: db}
}

// GetCatalogOutfits returns all outfit definitions in catalog order.
func (r *MySQLLedgerRepository) GetCatalogOutfits(ctx context.Context) ([]model.Outfit, error) {
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
		var components []byte
		if err := rows.Scan(&o.ID, &o.Name, &o.Price, &o.Discount, &o.RequiredXp,
			&o.DonatorExclusive, &o.Enabled, &o.TebexPackageID, &components, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outfit: %w", err)
		}
		if err := json.Unmarshal(components, &o.Components); err != nil {
			return nil, fmt.Errorf("failed to decode outfit %d components: %w", o.ID, err)
		}
		outfits = append(outfits, o)
	}
	return outfits, rows.Err()
}

// GetCatalogItems returns all general-item definitions in catalog order.
func (r *MySQLLedgerRepository) GetCatalogItems(ctx context.Context) ([]model.GeneralItem, error) {
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
func (r *MySQLLedgerRepository) GetUserOutfits(ctx context.Context, userID int64) ([]model.UserOutfit, error) {
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
func (r *MySQLLedgerRepository) GetUserGeneralItems(ctx context.Context, userID int64) ([]model.UserGeneralItem, error) {
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
func (r *MySQLLedgerRepository) InsertUserOutfit(ctx context.Context, record model.UserOutfit) (model.UserOutfit, error) {
	var expires interface{}
	if !record.ExpiresAt.IsZero() {
		expires = record.ExpiresAt
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO user_outfits (user_id, outfit_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)`, record.UserID, record.OutfitID, record.CreatedAt, expires)
	if err != nil {
		return record, fmt.Errorf("failed to insert user outfit: %w", err)
	}
	record.ID, _ = res.LastInsertId()
	return record, nil
}

// InsertUserGeneralItem stores a new ownership record.
func (r *MySQLLedgerRepository) InsertUserGeneralItem(ctx context.Context, record model.UserGeneralItem) (model.UserGeneralItem, error) {
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
func (r *MySQLLedgerRepository) DeleteUserOutfit(ctx context.Context, outfitID, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM user_outfits WHERE outfit_id = ? AND user_id = ?`, outfitID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user outfit: %w", err)
	}
	return res.RowsAffected()
}

// DeleteUserGeneralItem removes the user's record for the catalog item.
func (r *MySQLLedgerRepository) DeleteUserGeneralItem(ctx context.Context, itemID, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM user_general_items WHERE item_id = ? AND user_id = ?`, itemID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user general item: %w", err)
	}
	return res.RowsAffected()
}

// BuyUserOutfit invokes the buy procedure and maps its status code.
func (r *MySQLLedgerRepository) BuyUserOutfit(ctx context.Context, userID, outfitID int64) (BuyStatus, error) {
	var code int64
	if err := r.db.QueryRowContext(ctx, `CALL buy_user_outfit(?, ?)`, userID, outfitID).Scan(&code); err != nil {
		return BuyStatus{}, fmt.Errorf("failed to call buy_user_outfit: %w", err)
	}
	return buyStatusFromCode(code), nil
}

// BuyUserItem invokes the general-item buy procedure and maps its status code.
func (r *MySQLLedgerRepository) BuyUserItem(ctx context.Context, userID, itemID int64) (BuyStatus, error) {
	var code int64
	if err := r.db.QueryRowContext(ctx, `CALL buy_user_item(?, ?)`, userID, itemID).Scan(&code); err != nil {
		return BuyStatus{}, fmt.Errorf("failed to call buy_user_item: %w", err)
	}
	return buyStatusFromCode(code), nil
}

// GetActiveSelection returns the user's persisted equipped-outfit record id.
func (r *MySQLLedgerRepository) GetActiveSelection(ctx context.Context, userID int64) (int64, error) {
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
func (r *MySQLLedgerRepository) SetActiveSelection(ctx context.Context, userID, userOutfitID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET active_user_outfit_id = ? WHERE id = ?`, userOutfitID, userID)
	if err != nil {
		return fmt.Errorf("failed to set active selection: %w", err)
	}
	return nil
}

// FlushSessionOwnership persists session-local outfit mutations in one
// transaction when a session ends.
func (r *MySQLLedgerRepository) FlushSessionOwnership(ctx context.Context, records []model.UserOutfit) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE user_outfits SET created_at = ?, expires_at = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		var expires interface{}
		if !record.ExpiresAt.IsZero() {
			expires = record.ExpiresAt
		}
		if _, err := stmt.ExecContext(ctx, record.CreatedAt, expires, record.ID); err != nil {
			return fmt.Errorf("failed to flush record %d: %w", record.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetUserByLicense resolves a platform license identifier to a user.
func (r *MySQLLedgerRepository) GetUserByLicense(ctx context.Context, licenseID string) (*model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, license_id, xp, cash, donator, active_user_outfit_id
		FROM users WHERE license_id = ? LIMIT 1`, licenseID).
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
func (r *MySQLLedgerRepository) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{"backend": "mysql"}
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
func (r *MySQLLedgerRepository) Close() error {
	return r.db.Close()
}
