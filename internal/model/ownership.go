package model

import "time"

// UserOutfit is a durable ownership record tying a user to a catalog
// outfit. ExpiresAt is open-ended for outfits and only set for records
// sourced from a time-limited grant.
type UserOutfit struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	OutfitID  int64     `json:"outfit_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserGeneralItem is a durable ownership record for a time-boxed item.
// OneTimeActivation marks items that are consumed by a single activation
// rather than staying active until expiry.
type UserGeneralItem struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	ItemID            int64     `json:"item_id"`
	CreatedAt         time.Time `json:"created_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	OneTimeActivation bool      `json:"one_time_activation"`
}

// Expired reports whether the record's expiry has passed at the given time.
func (g UserGeneralItem) Expired(now time.Time) bool {
	return !g.ExpiresAt.After(now)
}

// User is the durable player identity the shop operates on. Cash and Xp
// gate purchases; ActiveUserOutfitID is the equipped-outfit selection and
// references a UserOutfit record id, not a catalog id.
type User struct {
	ID                 int64  `json:"id"`
	LicenseID          string `json:"license_id"`
	Xp                 int    `json:"xp"`
	Cash               int    `json:"cash"`
	Donator            bool   `json:"donator"`
	ActiveUserOutfitID int64  `json:"active_user_outfit_id"`
}
