package repository

import (
	"context"

	"ggshop-rest-api/internal/model"
)

// BuyStatusKind discriminates the persistence layer's buy outcomes.
// The storage procedures historically spoke in raw integers
// (0 = already owned, -1 = insufficient funds, -99 = unknown item,
// anything else = inserted record id); that protocol stops here.
type BuyStatusKind int

const (
	BuyOK BuyStatusKind = iota
	BuyAlreadyOwned
	BuyInsufficientFunds
	BuyUnknownItem
)

// BuyStatus is the typed result of a ledger buy operation. RecordID is
// only meaningful when Kind is BuyOK.
type BuyStatus struct {
	Kind     BuyStatusKind
	RecordID int64
}

// buyStatusFromCode maps the legacy integer protocol to a BuyStatus.
func buyStatusFromCode(code int64) BuyStatus {
	switch code {
	case 0:
		return BuyStatus{Kind: BuyAlreadyOwned}
	case -1:
		return BuyStatus{Kind: BuyInsufficientFunds}
	case -99:
		return BuyStatus{Kind: BuyUnknownItem}
	default:
		return BuyStatus{Kind: BuyOK, RecordID: code}
	}
}

// LedgerRepository is the persistent purchase ledger: catalog definitions
// plus per-user ownership records. It is the system of record; conflicting
// writes are serialized at the storage layer.
type LedgerRepository interface {
	// GetCatalogOutfits returns all outfit definitions in catalog order.
	GetCatalogOutfits(ctx context.Context) ([]model.Outfit, error)

	// GetCatalogItems returns all general-item definitions in catalog order.
	GetCatalogItems(ctx context.Context) ([]model.GeneralItem, error)

	// GetUserOutfits returns the user's outfit ownership records in
	// insertion order.
	GetUserOutfits(ctx context.Context, userID int64) ([]model.UserOutfit, error)

	// GetUserGeneralItems returns the user's general-item ownership
	// records in insertion order.
	GetUserGeneralItems(ctx context.Context, userID int64) ([]model.UserGeneralItem, error)

	// InsertUserOutfit stores a new ownership record and returns it with
	// its assigned id.
	InsertUserOutfit(ctx context.Context, record model.UserOutfit) (model.UserOutfit, error)

	// InsertUserGeneralItem stores a new ownership record and returns it
	// with its assigned id.
	InsertUserGeneralItem(ctx context.Context, record model.UserGeneralItem) (model.UserGeneralItem, error)

	// DeleteUserOutfit removes the user's record for the catalog outfit
	// and returns the number of rows removed.
	DeleteUserOutfit(ctx context.Context, outfitID, userID int64) (int64, error)

	// DeleteUserGeneralItem removes the user's record for the catalog item
	// and returns the number of rows removed.
	DeleteUserGeneralItem(ctx context.Context, itemID, userID int64) (int64, error)

	// BuyUserOutfit atomically checks ownership and balance, inserts the
	// ownership record and deducts the price.
	BuyUserOutfit(ctx context.Context, userID, outfitID int64) (BuyStatus, error)

	// BuyUserItem is BuyUserOutfit for general items.
	BuyUserItem(ctx context.Context, userID, itemID int64) (BuyStatus, error)

	// GetActiveSelection returns the user's persisted equipped-outfit
	// record id (0 if none).
	GetActiveSelection(ctx context.Context, userID int64) (int64, error)

	// SetActiveSelection persists the user's equipped-outfit record id.
	SetActiveSelection(ctx context.Context, userID, userOutfitID int64) error

	// FlushSessionOwnership persists session-local outfit mutations when a
	// session ends.
	FlushSessionOwnership(ctx context.Context, records []model.UserOutfit) error

	// GetUserByLicense resolves a platform license identifier to a user.
	GetUserByLicense(ctx context.Context, licenseID string) (*model.User, error)

	// Stats returns backend statistics for the admin surface.
	Stats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the underlying connection.
	Close() error
}
