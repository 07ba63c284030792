package model

import "time"

// ItemKind identifies the purchasable item categories.
type ItemKind int

const (
	KindOutfit ItemKind = iota
	KindXPBoost
	KindCurrency
	KindDonation
)

// String returns the lowercase wire name of the kind.
func (k ItemKind) String() string {
	switch k {
	case KindOutfit:
		return "outfit"
	case KindXPBoost:
		return "xpboost"
	case KindCurrency:
		return "currency"
	case KindDonation:
		return "donation"
	default:
		return "unknown"
	}
}

// ParseItemKind maps a wire name to its kind. The boolean reports
// whether the name was one of the four known kinds.
func ParseItemKind(s string) (ItemKind, bool) {
	switch s {
	case "outfit":
		return KindOutfit, true
	case "xpboost":
		return KindXPBoost, true
	case "currency":
		return KindCurrency, true
	case "donation":
		return KindDonation, true
	default:
		return ItemKind(-1), false
	}
}

// PedComponent is one appearance slot of an outfit.
type PedComponent struct {
	ComponentID int `json:"component_id"`
	DrawableID  int `json:"drawable_id"`
	TextureID   int `json:"texture_id"`
	PaletteID   int `json:"palette_id"`
}

// Outfit is an immutable catalog entry for a purchasable outfit.
// TebexPackageID links it to the webshop; 0 means not sold externally.
type Outfit struct {
	ID               int64          `json:"id"`
	Name             string         `json:"name"`
	Price            int            `json:"price"`
	Discount         float64        `json:"discount"`
	RequiredXp       int            `json:"required_xp"`
	DonatorExclusive bool           `json:"donator_exclusive"`
	Enabled          bool           `json:"enabled"`
	TebexPackageID   int64          `json:"tebex_package_id"`
	Components       []PedComponent `json:"components"`
	CreatedAt        time.Time      `json:"created_at"`
}

// GeneralItem is an immutable catalog entry for a time-boxed item
// (xp boost, currency grant or donation package).
type GeneralItem struct {
	ID             int64         `json:"id"`
	Name           string        `json:"name"`
	Kind           ItemKind      `json:"kind"`
	Price          int           `json:"price"`
	Enabled        bool          `json:"enabled"`
	Duration       time.Duration `json:"duration"`
	TebexPackageID int64         `json:"tebex_package_id"`
	CreatedAt      time.Time     `json:"created_at"`
}
