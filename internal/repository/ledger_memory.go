package repository

import (
	"context"
	"sync"
	"time"

	"ggshop-rest-api/internal/model"
)

// MemoryLedgerRepository is an in-memory LedgerRepository for development
// and tests. It mirrors the SQL backends' semantics, including the unique
// (user, item) constraint and insertion-ordered reads.
type MemoryLedgerRepository struct {
	mu sync.Mutex

	outfits []model.Outfit
	items   []model.GeneralItem
	users   map[int64]*model.User

	userOutfits []model.UserOutfit
	userItems   []model.UserGeneralItem
	nextID      int64
}

// NewMemoryLedgerRepository creates an empty in-memory ledger.
func NewMemoryLedgerRepository() *MemoryLedgerRepository {
	return &MemoryLedgerRepository{
		users:  make(map[int64]*model.User),
		nextID: 1,
	}
}

// SeedCatalog replaces the catalog definitions.
func (r *MemoryLedgerRepository) SeedCatalog(outfits []model.Outfit, items []model.GeneralItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outfits = append([]model.Outfit(nil), outfits...)
	r.items = append([]model.GeneralItem(nil), items...)
}

// SeedUser adds or replaces a user.
func (r *MemoryLedgerRepository) SeedUser(u model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user := u
	r.users[u.ID] = &user
}

// GetCatalogOutfits returns all outfit definitions in catalog order.
func (r *MemoryLedgerRepository) GetCatalogOutfits(ctx context.Context) ([]model.Outfit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Outfit(nil), r.outfits...), nil
}

// GetCatalogItems returns all general-item definitions in catalog order.
func (r *MemoryLedgerRepository) GetCatalogItems(ctx context.Context) ([]model.GeneralItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.GeneralItem(nil), r.items...), nil
}

// GetUserOutfits returns the user's outfit records in insertion order.
func (r *MemoryLedgerRepository) GetUserOutfits(ctx context.Context, userID int64) ([]model.UserOutfit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var records []model.UserOutfit
	for _, uo := range r.userOutfits {
		if uo.UserID == userID {
			records = append(records, uo)
		}
	}
	return records, nil
}

// GetUserGeneralItems returns the user's general-item records in insertion order.
func (r *MemoryLedgerRepository) GetUserGeneralItems(ctx context.Context, userID int64) ([]model.UserGeneralItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var records []model.UserGeneralItem
	for _, gi := range r.userItems {
		if gi.UserID == userID {
			records = append(records, gi)
		}
	}
	return records, nil
}

// InsertUserOutfit stores a new ownership record.
func (r *MemoryLedgerRepository) InsertUserOutfit(ctx context.Context, record model.UserOutfit) (model.UserOutfit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record.ID = r.nextID
	r.nextID++
	r.userOutfits = append(r.userOutfits, record)
	return record, nil
}

// InsertUserGeneralItem stores a new ownership record.
func (r *MemoryLedgerRepository) InsertUserGeneralItem(ctx context.Context, record model.UserGeneralItem) (model.UserGeneralItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record.ID = r.nextID
	r.nextID++
	r.userItems = append(r.userItems, record)
	return record, nil
}

// DeleteUserOutfit removes the user's record for the catalog outfit.
func (r *MemoryLedgerRepository) DeleteUserOutfit(ctx context.Context, outfitID, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	kept := r.userOutfits[:0]
	for _, uo := range r.userOutfits {
		if uo.UserID == userID && uo.OutfitID == outfitID {
			deleted++
			continue
		}
		kept = append(kept, uo)
	}
	r.userOutfits = kept
	return deleted, nil
}

// DeleteUserGeneralItem removes the user's record for the catalog item.
func (r *MemoryLedgerRepository) DeleteUserGeneralItem(ctx context.Context, itemID, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	kept := r.userItems[:0]
	for _, gi := range r.userItems {
		if gi.UserID == userID && gi.ItemID == itemID {
			deleted++
			continue
		}
		kept = append(kept, gi)
	}
	r.userItems = kept
	return deleted, nil
}

// BuyUserOutfit checks ownership and balance, then inserts and deducts
// atomically under the repository lock.
func (r *MemoryLedgerRepository) BuyUserOutfit(ctx context.Context, userID, outfitID int64) (BuyStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var price int
	found := false
	for _, o := range r.outfits {
		if o.ID == outfitID && o.Enabled {
			price = o.Price
			found = true
			break
		}
	}
	if !found {
		return buyStatusFromCode(-99), nil
	}

	for _, uo := range r.userOutfits {
		if uo.UserID == userID && uo.OutfitID == outfitID {
			return buyStatusFromCode(0), nil
		}
	}

	user := r.users[userID]
	if price > 0 {
		if user == nil || user.Cash < price {
			return buyStatusFromCode(-1), nil
		}
		user.Cash -= price
	}

	record := model.UserOutfit{
		ID:        r.nextID,
		UserID:    userID,
		OutfitID:  outfitID,
		CreatedAt: time.Now().UTC(),
	}
	r.nextID++
	r.userOutfits = append(r.userOutfits, record)
	return buyStatusFromCode(record.ID), nil
}

// BuyUserItem is BuyUserOutfit for general items.
func (r *MemoryLedgerRepository) BuyUserItem(ctx context.Context, userID, itemID int64) (BuyStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var item *model.GeneralItem
	for i := range r.items {
		if r.items[i].ID == itemID && r.items[i].Enabled {
			item = &r.items[i]
			break
		}
	}
	if item == nil {
		return buyStatusFromCode(-99), nil
	}

	for _, gi := range r.userItems {
		if gi.UserID == userID && gi.ItemID == itemID {
			return buyStatusFromCode(0), nil
		}
	}

	user := r.users[userID]
	if item.Price > 0 {
		if user == nil || user.Cash < item.Price {
			return buyStatusFromCode(-1), nil
		}
		user.Cash -= item.Price
	}

	now := time.Now().UTC()
	record := model.UserGeneralItem{
		ID:                r.nextID,
		UserID:            userID,
		ItemID:            itemID,
		CreatedAt:         now,
		ExpiresAt:         now.Add(item.Duration),
		OneTimeActivation: item.Kind != model.KindXPBoost,
	}
	r.nextID++
	r.userItems = append(r.userItems, record)
	return buyStatusFromCode(record.ID), nil
}

// GetActiveSelection returns the user's persisted equipped-outfit record id.
func (r *MemoryLedgerRepository) GetActiveSelection(ctx context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user, ok := r.users[userID]; ok {
		return user.ActiveUserOutfitID, nil
	}
	return 0, nil
}

// SetActiveSelection persists the user's equipped-outfit record id.
func (r *MemoryLedgerRepository) SetActiveSelection(ctx context.Context, userID, userOutfitID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user, ok := r.users[userID]; ok {
		user.ActiveUserOutfitID = userOutfitID
	}
	return nil
}

// FlushSessionOwnership persists session-local outfit mutations.
func (r *MemoryLedgerRepository) FlushSessionOwnership(ctx context.Context, records []model.UserOutfit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, record := range records {
		for i := range r.userOutfits {
			if r.userOutfits[i].ID == record.ID {
				r.userOutfits[i] = record
				break
			}
		}
	}
	return nil
}

// GetUserByLicense resolves a platform license identifier to a user.
func (r *MemoryLedgerRepository) GetUserByLicense(ctx context.Context, licenseID string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.LicenseID == licenseID {
			u := *user
			return &u, nil
		}
	}
	return nil, nil
}

// Stats returns record counts for the admin surface.
func (r *MemoryLedgerRepository) Stats(ctx context.Context) (map[string]interface{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return map[string]interface{}{
		"backend":            "memory",
		"users":              int64(len(r.users)),
		"outfits":            int64(len(r.outfits)),
		"general_items":      int64(len(r.items)),
		"user_outfits":       int64(len(r.userOutfits)),
		"user_general_items": int64(len(r.userItems)),
	}, nil
}

// Close is a no-op for the in-memory backend.
func (r *MemoryLedgerRepository) Close() error {
	return nil
}
