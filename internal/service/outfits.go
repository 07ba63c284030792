package service

import (
	"context"
	"fmt"

	"ggshop-rest-api/internal/model"
	"ggshop-rest-api/internal/notify"
)

// OwnedOutfit is one row of the session's outfit listing. Index is the
// 0-based position players use with the equip command; it follows the
// snapshot's insertion order, never catalog order.
type OwnedOutfit struct {
	Index    int    `json:"index"`
	OutfitID int64  `json:"outfit_id"`
	Name     string `json:"name"`
}

// ListOutfits enumerates the session's owned outfits in snapshot order.
func (s *Shop) ListOutfits(ctx context.Context, sessionID string) ([]OwnedOutfit, error) {
	if _, ok := s.presence.lookup(sessionID); !ok {
		return nil, ErrSessionNotFound
	}

	snapshot, loaded := s.sessions.OutfitsSnapshot(sessionID)
	if !loaded {
		return nil, nil
	}

	cat := s.catalog.Current()
	listing := make([]OwnedOutfit, 0, len(snapshot))
	for i, record := range snapshot {
		name := fmt.Sprintf("outfit %d", record.OutfitID)
		if outfit, ok := cat.OutfitByID(record.OutfitID); ok {
			name = outfit.Name
		}
		listing = append(listing, OwnedOutfit{Index: i, OutfitID: record.OutfitID, Name: name})
	}
	return listing, nil
}

// EquipOutfit equips the outfit at the given 0-based snapshot index:
// it pushes the appearance payload to the session and records the outfit
// as the user's active selection. The selection stays session-local until
// the snapshot is flushed at session end.
func (s *Shop) EquipOutfit(ctx context.Context, sessionID string, index int) error {
	if _, ok := s.presence.lookup(sessionID); !ok {
		return ErrSessionNotFound
	}

	snapshot, loaded := s.sessions.OutfitsSnapshot(sessionID)
	if !loaded || len(snapshot) == 0 {
		s.notifier.Prompt(sessionID, "You don't have any outfits!")
		return nil
	}
	if index < 0 || index >= len(snapshot) {
		s.notifier.Prompt(sessionID, "Invalid outfit! Use the outfit list to see yours.")
		return nil
	}

	record := snapshot[index]
	outfit, ok := s.catalog.Current().OutfitByID(record.OutfitID)
	if !ok {
		s.notifier.Prompt(sessionID, "Could not find outfit!")
		return nil
	}

	s.notifier.ActiveStyle(sessionID, notify.ClothingStyle{
		SlotIndex:     index,
		PedComponents: outfit.Components,
	})
	s.presence.update(sessionID, func(u *model.User) {
		u.ActiveUserOutfitID = record.ID
	})
	return nil
}

// ActiveOutfit resolves the session's currently equipped outfit record.
// The session-local selection wins; if the snapshot does not contain it
// (e.g. right after a reconnect), the persisted selection is consulted.
func (s *Shop) ActiveOutfit(ctx context.Context, sessionID string) (model.UserOutfit, bool, error) {
	user, ok := s.presence.lookup(sessionID)
	if !ok {
		return model.UserOutfit{}, false, ErrSessionNotFound
	}

	snapshot, _ := s.sessions.OutfitsSnapshot(sessionID)
	if record, ok := findOutfitRecord(snapshot, user.ActiveUserOutfitID); ok {
		return record, true, nil
	}

	persistedID, err := s.repo.GetActiveSelection(ctx, user.ID)
	if err != nil {
		return model.UserOutfit{}, false, s.fail(sessionID, "ActiveOutfit", err)
	}
	if record, ok := findOutfitRecord(snapshot, persistedID); ok {
		return record, true, nil
	}
	return model.UserOutfit{}, false, nil
}

func findOutfitRecord(records []model.UserOutfit, recordID int64) (model.UserOutfit, bool) {
	if recordID == 0 {
		return model.UserOutfit{}, false
	}
	for _, r := range records {
		if r.ID == recordID {
			return r, true
		}
	}
	return model.UserOutfit{}, false
}
