package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ggshop-rest-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshGrantsFreeTierAndDefault(t *testing.T) {
	ts := newTestShop(t)
	ts.startSession(t, "s1")

	snapshot, loaded := ts.sessions.OutfitsSnapshot("s1")
	require.True(t, loaded)

	// User with xp=0 and an empty ledger ends up with the default outfit
	// plus every price-0, xp-0 outfit they qualify for.
	owned := outfitIDs(snapshot)
	assert.Contains(t, owned, int64(outfitDefault))
	assert.Contains(t, owned, int64(outfitFreeRed))
	assert.NotContains(t, owned, int64(outfitElite), "xp-gated outfit must not be granted at xp=0")
	assert.NotContains(t, owned, int64(outfitDonor), "donor-exclusive outfit must not be granted to non-donors")
	assert.NotContains(t, owned, int64(outfitPremium))

	// No duplicates.
	seen := make(map[int64]bool)
	for _, id := range owned {
		assert.False(t, seen[id], "duplicate grant for outfit %d", id)
		seen[id] = true
	}
}

func TestRefreshGrantedCountMatchesInsertedRecords(t *testing.T) {
	ts := newTestShop(t)
	ts.shop.presence.register("s1", model.User{ID: testUserID, LicenseID: "lic-7"})
	ts.sessions.Track("s1")

	snapshot, granted, revoked, err := ts.shop.RefreshOutfits(context.Background(), "s1", false)
	require.NoError(t, err)
	assert.Equal(t, len(snapshot), granted, "grantedCount equals the number of new records for an empty ledger")
	assert.Zero(t, revoked)

	// A second pass is a no-op.
	_, granted, revoked, err = ts.shop.RefreshOutfits(context.Background(), "s1", false)
	require.NoError(t, err)
	assert.Zero(t, granted)
	assert.Zero(t, revoked)
}

func TestRefreshGrantsDonorExclusiveToDonators(t *testing.T) {
	ts := newTestShop(t)
	ts.repo.SeedUser(model.User{ID: testUserID, LicenseID: "lic-7", Donator: true})
	ts.startSession(t, "s1")

	snapshot, _ := ts.sessions.OutfitsSnapshot("s1")
	assert.Contains(t, outfitIDs(snapshot), int64(outfitDonor))
}

func TestExternalGrantRevokeRoundTrip(t *testing.T) {
	ts := newTestShop(t)
	ts.startSession(t, "s1")
	ctx := context.Background()

	// Settle the free-tier grants first so sync counts are isolated.
	_, _, _, err := ts.shop.RefreshOutfits(ctx, "s1", false)
	require.NoError(t, err)

	ts.oracle.setOwned(webshopSKUCape, true)
	snapshot, granted, revoked, err := ts.shop.RefreshOutfits(ctx, "s1", true)
	require.NoError(t, err)
	assert.Equal(t, 1, granted)
	assert.Zero(t, revoked)
	assert.True(t, ownsOutfit(snapshot, outfitWebshop))

	// Granting again is a no-op: the record already exists locally.
	_, granted, revoked, err = ts.shop.RefreshOutfits(ctx, "s1", true)
	require.NoError(t, err)
	assert.Zero(t, granted)
	assert.Zero(t, revoked)

	// Withdraw the entitlement: revoked exactly once, second pass no-op.
	ts.oracle.setOwned(webshopSKUCape, false)
	snapshot, granted, revoked, err = ts.shop.RefreshOutfits(ctx, "s1", true)
	require.NoError(t, err)
	assert.Zero(t, granted)
	assert.Equal(t, 1, revoked)
	assert.False(t, ownsOutfit(snapshot, outfitWebshop))

	_, _, revoked, err = ts.shop.RefreshOutfits(ctx, "s1", true)
	require.NoError(t, err)
	assert.Zero(t, revoked)
}

func TestExternalGrantGeneralItemExpiry(t *testing.T) {
	ts := newTestShop(t)
	ts.startSession(t, "s1")
	ctx := context.Background()

	ts.oracle.setOwned(webshopSKUCoins, true)
	snapshot, granted, _, err := ts.shop.RefreshGeneralItems(ctx, "s1", true)
	require.NoError(t, err)
	assert.Equal(t, 1, granted)
	require.Len(t, snapshot, 1)

	record := snapshot[0]
	assert.Equal(t, int64(itemCurrency), record.ItemID)
	assert.True(t, record.OneTimeActivation)
	assert.WithinDuration(t, time.Now().UTC().Add(30*time.Minute), record.ExpiresAt, 10*time.Second)
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	ts := newTestShop(t)
	ts.startSession(t, "s1")

	before, loaded := ts.sessions.OutfitsSnapshot("s1")
	require.True(t, loaded)
	require.NotEmpty(t, before)

	ts.repo.failReads(errors.New("gateway down"))
	_, _, _, err := ts.shop.RefreshOutfits(context.Background(), "s1", false)
	require.Error(t, err)

	after, loaded := ts.sessions.OutfitsSnapshot("s1")
	require.True(t, loaded)
	assert.Equal(t, before, after, "a failed refresh must not overwrite the loaded snapshot")
}

func TestRefreshOracleFailureAbortsPass(t *testing.T) {
	ts := newTestShop(t)
	ts.startSession(t, "s1")

	before, _ := ts.sessions.OutfitsSnapshot("s1")

	ts.oracle.err = errors.New("webshop timeout")
	_, _, _, err := ts.shop.RefreshOutfits(context.Background(), "s1", true)
	require.Error(t, err)

	after, _ := ts.sessions.OutfitsSnapshot("s1")
	assert.Equal(t, before, after)
}

func TestRefreshUnknownSession(t *testing.T) {
	ts := newTestShop(t)

	_, _, _, err := ts.shop.RefreshOutfits(context.Background(), "ghost", false)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionEndWinsOverInFlightRefresh(t *testing.T) {
	ts := newTestShop(t)
	ts.startSession(t, "s1")

	// Simulate a refresh that completes after the session ended: the cache
	// entry is removed first, then the refresh's snapshot install runs.
	_, _, removed := ts.sessions.Remove("s1")
	require.True(t, removed)

	_, _, _, err := ts.shop.RefreshOutfits(context.Background(), "s1", false)
	require.NoError(t, err)

	_, loaded := ts.sessions.OutfitsSnapshot("s1")
	assert.False(t, loaded, "a late refresh must not resurrect a removed session")
}

func TestClaimFreeReportsNewGrants(t *testing.T) {
	ts := newTestShop(t)
	ts.startSession(t, "s1")

	// Session start already claimed everything.
	granted, err := ts.shop.ClaimFree(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, granted)
}
