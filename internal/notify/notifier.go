// Package notify carries the one-way signals the shop emits toward the
// session transport. Emissions are fire-and-forget: transport failures
// are logged and never propagated back into the engine.
package notify

import (
	"log"

	"ggshop-rest-api/internal/model"
)

// Event names published to consumers.
const (
	EventPurchaseResult        = "shop:buy_item_result"
	EventNewestItem            = "shop:newest_item"
	EventOwnershipCountChanged = "shop:webshop_count_update"
	EventOwnedOutfits          = "shop:owned_outfits"
	EventOwnedItems            = "shop:owned_items"
	EventActivation            = "shop:activate"
	EventActiveStyle           = "shop:set_active_style"
	EventPrompt                = "shop:prompt"
	EventError                 = "shop:error"
)

// ClothingStyle is the appearance payload sent when an outfit is equipped.
type ClothingStyle struct {
	SlotIndex     int                  `json:"slot_index"`
	PedComponents []model.PedComponent `json:"ped_components"`
}

// Notifier emits shop signals to a session. No acknowledgement exists;
// implementations must not block the caller beyond a bounded publish.
type Notifier interface {
	// PurchaseResult relays a buy outcome.
	PurchaseResult(sessionID string, result model.PurchaseResult)

	// NewestItem signals the most recently granted catalog item.
	NewestItem(sessionID string, kind model.ItemKind, itemID int64)

	// OwnershipCountChanged signals how many records a reconciliation
	// granted and revoked.
	OwnershipCountChanged(sessionID string, granted, revoked int)

	// OwnedOutfits pushes the session's current owned outfit catalog ids.
	OwnedOutfits(sessionID string, outfitIDs []int64)

	// OwnedItems pushes the session's current owned general-item catalog ids.
	OwnedItems(sessionID string, itemIDs []int64)

	// Activation arms a time-boxed item. Expiry is epoch milliseconds UTC.
	Activation(sessionID string, kind model.ItemKind, expiryEpochMillis int64, price int)

	// ActiveStyle pushes the equipped outfit's appearance payload.
	ActiveStyle(sessionID string, style ClothingStyle)

	// Prompt sends a player-facing message.
	Prompt(sessionID string, message string)

	// Error signals that an operation failed without leaking detail.
	Error(sessionID string, operation string)
}

// LogNotifier writes every signal to the process log. Used when no Redis
// transport is configured, and as the default in tests.
type LogNotifier struct{}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) PurchaseResult(sessionID string, result model.PurchaseResult) {
	log.Printf("[Notify] %s session=%s result=%s", EventPurchaseResult, sessionID, result)
}

func (n *LogNotifier) NewestItem(sessionID string, kind model.ItemKind, itemID int64) {
	log.Printf("[Notify] %s session=%s kind=%s item=%d", EventNewestItem, sessionID, kind, itemID)
}

func (n *LogNotifier) OwnershipCountChanged(sessionID string, granted, revoked int) {
	log.Printf("[Notify] %s session=%s granted=%d revoked=%d", EventOwnershipCountChanged, sessionID, granted, revoked)
}

func (n *LogNotifier) OwnedOutfits(sessionID string, outfitIDs []int64) {
	log.Printf("[Notify] %s session=%s outfits=%v", EventOwnedOutfits, sessionID, outfitIDs)
}

func (n *LogNotifier) OwnedItems(sessionID string, itemIDs []int64) {
	log.Printf("[Notify] %s session=%s items=%v", EventOwnedItems, sessionID, itemIDs)
}

func (n *LogNotifier) Activation(sessionID string, kind model.ItemKind, expiryEpochMillis int64, price int) {
	log.Printf("[Notify] %s session=%s kind=%s expiry=%d price=%d", EventActivation, sessionID, kind, expiryEpochMillis, price)
}

func (n *LogNotifier) ActiveStyle(sessionID string, style ClothingStyle) {
	log.Printf("[Notify] %s session=%s slot=%d components=%d", EventActiveStyle, sessionID, style.SlotIndex, len(style.PedComponents))
}

func (n *LogNotifier) Prompt(sessionID string, message string) {
	log.Printf("[Notify] %s session=%s message=%q", EventPrompt, sessionID, message)
}

func (n *LogNotifier) Error(sessionID string, operation string) {
	log.Printf("[Notify] %s session=%s operation=%s", EventError, sessionID, operation)
}
