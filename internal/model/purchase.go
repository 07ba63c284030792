package model

// PurchaseResult is the outcome of a buy operation. These are data, not
// errors: a declined purchase is a normal result for the caller to relay.
type PurchaseResult string

const (
	PurchaseSuccess           PurchaseResult = "success"
	PurchaseAlreadyOwned      PurchaseResult = "already_owned"
	PurchaseInsufficientFunds PurchaseResult = "insufficient_funds"
	PurchaseUnknownItem       PurchaseResult = "unknown_item"
)

// Message returns the player-facing text for the result.
func (r PurchaseResult) Message() string {
	switch r {
	case PurchaseSuccess:
		return "Success"
	case PurchaseAlreadyOwned:
		return "Already owned"
	case PurchaseInsufficientFunds:
		return "Not enough money"
	case PurchaseUnknownItem:
		return "Unknown item"
	default:
		return "Unknown item"
	}
}
