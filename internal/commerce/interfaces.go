package commerce

import "context"

// EntitlementOracle is the external commerce system of record. It answers
// whether the player behind a live session currently owns a webshop SKU,
// and whether the session is allowed to start a commerce check at all.
type EntitlementOracle interface {
	// OwnsSKU reports whether the session's player owns the SKU right now.
	OwnsSKU(ctx context.Context, sessionID string, skuID int64) (bool, error)

	// CanStartCommerceCheck reports whether the session may begin a
	// commerce check. Sessions without a linked store identity cannot.
	CanStartCommerceCheck(ctx context.Context, sessionID string) (bool, error)
}
