package service

import (
	"context"
	"time"

	"ggshop-rest-api/internal/model"
)

// RefreshOutfits reconciles the session's outfit ownership against the
// ledger and, when includeExternalSync is set, against the entitlement
// oracle. It returns the installed snapshot plus how many records the
// pass granted and revoked.
//
// Order of operations: read the ledger; grant the default outfit if the
// user owns nothing; auto-grant every qualifying free-tier outfit in
// catalog order; sync webshop SKUs (insert missing grants, revoke
// withdrawn ones); re-read and install the post-mutation list as the
// session snapshot. Any collaborator failure aborts the remaining steps
// and leaves the previous snapshot untouched — grants already committed
// stay committed, reconciliation is only per-item transactional.
func (s *Shop) RefreshOutfits(ctx context.Context, sessionID string, includeExternalSync bool) ([]model.UserOutfit, int, int, error) {
	const op = "RefreshOutfits"

	user, ok := s.presence.lookup(sessionID)
	if !ok {
		return nil, 0, 0, ErrSessionNotFound
	}

	owned, err := s.repo.GetUserOutfits(ctx, user.ID)
	if err != nil {
		return nil, 0, 0, s.fail(sessionID, op, err)
	}

	cat := s.catalog.Current()
	granted := 0
	revoked := 0

	// A user with no outfits at all gets the designated default before
	// anything else.
	if len(owned) == 0 {
		if def, ok := cat.DefaultOutfit(); ok {
			result, err := s.buy(ctx, user.ID, def.ID, model.KindOutfit)
			if err != nil {
				return nil, 0, 0, s.fail(sessionID, op, err)
			}
			if result == model.PurchaseSuccess {
				granted++
			}
			if owned, err = s.repo.GetUserOutfits(ctx, user.ID); err != nil {
				return nil, 0, 0, s.fail(sessionID, op, err)
			}
		}
	}

	// Free-tier auto-grant: every enabled catalog outfit with price 0 the
	// user qualifies for, in catalog order. Each grant re-checks "already
	// owned" in the ledger, so duplicates are impossible within a pass.
	var newestOutfitID int64
	for _, outfit := range cat.Outfits {
		if outfit.Price != 0 || outfit.RequiredXp > user.Xp {
			continue
		}
		if outfit.DonatorExclusive && !user.Donator {
			continue
		}
		if ownsOutfit(owned, outfit.ID) {
			continue
		}

		result, err := s.buy(ctx, user.ID, outfit.ID, model.KindOutfit)
		if err != nil {
			return nil, 0, 0, s.fail(sessionID, op, err)
		}
		s.notifier.PurchaseResult(sessionID, result)
		if result == model.PurchaseSuccess {
			granted++
			newestOutfitID = outfit.ID
		}
	}

	if granted > 0 {
		if owned, err = s.repo.GetUserOutfits(ctx, user.ID); err != nil {
			return nil, 0, 0, s.fail(sessionID, op, err)
		}
	}

	if includeExternalSync {
		for _, outfit := range cat.Outfits {
			if outfit.TebexPackageID == 0 {
				continue
			}

			ownsExternally, err := s.oracle.OwnsSKU(ctx, sessionID, outfit.TebexPackageID)
			if err != nil {
				return nil, 0, 0, s.fail(sessionID, op, err)
			}
			ownsLocally := ownsOutfit(owned, outfit.ID)

			switch {
			case ownsExternally && !ownsLocally:
				record := model.UserOutfit{
					UserID:    user.ID,
					OutfitID:  outfit.ID,
					CreatedAt: time.Now().UTC(),
				}
				if _, err := s.repo.InsertUserOutfit(ctx, record); err != nil {
					return nil, 0, 0, s.fail(sessionID, op, err)
				}
				granted++
			case !ownsExternally && ownsLocally:
				count, err := s.repo.DeleteUserOutfit(ctx, outfit.ID, user.ID)
				if err != nil {
					return nil, 0, 0, s.fail(sessionID, op, err)
				}
				revoked += int(count)
			}
		}
	}

	// Install the post-mutation ledger state as the session snapshot. The
	// snapshot is never partially applied: either this full list goes in,
	// or (on a failure above) the previous one stays.
	snapshot, err := s.repo.GetUserOutfits(ctx, user.ID)
	if err != nil {
		return nil, 0, 0, s.fail(sessionID, op, err)
	}
	if !s.sessions.SetOutfits(sessionID, snapshot) {
		// Session ended while we were reconciling; the remove wins.
		return snapshot, granted, revoked, nil
	}

	if granted != 0 || revoked != 0 {
		s.notifier.OwnershipCountChanged(sessionID, granted, revoked)
	}
	if newestOutfitID != 0 {
		s.notifier.NewestItem(sessionID, model.KindOutfit, newestOutfitID)
	}
	s.notifier.OwnedOutfits(sessionID, outfitIDs(snapshot))

	return snapshot, granted, revoked, nil
}

// RefreshGeneralItems reconciles the session's time-boxed item ownership.
// General items have no free tier and no default grant; only the webshop
// sync mutates the ledger here. Newly granted records expire at now plus
// the catalog item's duration.
func (s *Shop) RefreshGeneralItems(ctx context.Context, sessionID string, includeExternalSync bool) ([]model.UserGeneralItem, int, int, error) {
	const op = "RefreshGeneralItems"

	user, ok := s.presence.lookup(sessionID)
	if !ok {
		return nil, 0, 0, ErrSessionNotFound
	}

	owned, err := s.repo.GetUserGeneralItems(ctx, user.ID)
	if err != nil {
		return nil, 0, 0, s.fail(sessionID, op, err)
	}

	cat := s.catalog.Current()
	granted := 0
	revoked := 0

	if includeExternalSync {
		for _, item := range cat.GeneralItems {
			if item.TebexPackageID == 0 {
				continue
			}

			ownsExternally, err := s.oracle.OwnsSKU(ctx, sessionID, item.TebexPackageID)
			if err != nil {
				return nil, 0, 0, s.fail(sessionID, op, err)
			}
			ownsLocally := ownsItem(owned, item.ID)

			switch {
			case ownsExternally && !ownsLocally:
				now := time.Now().UTC()
				record := model.UserGeneralItem{
					UserID:            user.ID,
					ItemID:            item.ID,
					CreatedAt:         now,
					ExpiresAt:         now.Add(item.Duration),
					OneTimeActivation: item.Kind != model.KindXPBoost,
				}
				if _, err := s.repo.InsertUserGeneralItem(ctx, record); err != nil {
					return nil, 0, 0, s.fail(sessionID, op, err)
				}
				granted++
			case !ownsExternally && ownsLocally:
				count, err := s.repo.DeleteUserGeneralItem(ctx, item.ID, user.ID)
				if err != nil {
					return nil, 0, 0, s.fail(sessionID, op, err)
				}
				revoked += int(count)
			}
		}
	}

	snapshot, err := s.repo.GetUserGeneralItems(ctx, user.ID)
	if err != nil {
		return nil, 0, 0, s.fail(sessionID, op, err)
	}
	if !s.sessions.SetItems(sessionID, snapshot) {
		return snapshot, granted, revoked, nil
	}

	if granted != 0 || revoked != 0 {
		s.notifier.OwnershipCountChanged(sessionID, granted, revoked)
	}
	s.notifier.OwnedItems(sessionID, itemIDs(snapshot))

	return snapshot, granted, revoked, nil
}

// ClaimFree runs an outfit refresh without the webshop sync and reports
// whether it granted anything new.
func (s *Shop) ClaimFree(ctx context.Context, sessionID string) (bool, error) {
	_, granted, _, err := s.RefreshOutfits(ctx, sessionID, false)
	if err != nil {
		return false, err
	}
	return granted > 0, nil
}

func ownsOutfit(records []model.UserOutfit, outfitID int64) bool {
	for _, r := range records {
		if r.OutfitID == outfitID {
			return true
		}
	}
	return false
}

func ownsItem(records []model.UserGeneralItem, itemID int64) bool {
	for _, r := range records {
		if r.ItemID == itemID {
			return true
		}
	}
	return false
}

func outfitIDs(records []model.UserOutfit) []int64 {
	ids := make([]int64, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.OutfitID)
	}
	return ids
}

func itemIDs(records []model.UserGeneralItem) []int64 {
	ids := make([]int64, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ItemID)
	}
	return ids
}
