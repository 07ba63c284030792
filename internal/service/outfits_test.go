package service

import (
	"context"
	"testing"

	"ggshop-rest-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListOutfitsFollowsSnapshotOrder(t *testing.T) {
	ts := newTestShop(t)
	ts.startSession(t, "s1")
	ctx := context.Background()

	_, err := ts.shop.Buy(ctx, testUserID, outfitPremium, model.KindOutfit, "s1", false)
	require.NoError(t, err)

	listing, err := ts.shop.ListOutfits(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, listing, 3)

	// Insertion order: default, free red, then the purchase.
	assert.Equal(t, "Default (Grey)", listing[0].Name)
	assert.Equal(t, "Free (Red)", listing[1].Name)
	assert.Equal(t, "Premium", listing[2].Name)
	for i, row := range listing {
		assert.Equal(t, i, row.Index)
	}
}

func TestEquipOutfitPushesStyleAndSelection(t *testing.T) {
	ts := newTestShop(t)
	ts.startSession(t, "s1")
	ctx := context.Background()

	require.NoError(t, ts.shop.EquipOutfit(ctx, "s1", 1))

	require.Len(t, ts.notifier.styles, 1)
	style := ts.notifier.styles[0]
	assert.Equal(t, 1, style.SlotIndex)
	require.Len(t, style.PedComponents, 1)
	assert.Equal(t, 12, style.PedComponents[0].DrawableID)

	record, ok, err := ts.shop.ActiveOutfit(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(outfitFreeRed), record.OutfitID)
}

func TestEquipOutfitOutOfRangePrompts(t *testing.T) {
	ts := newTestShop(t)
	ts.startSession(t, "s1")
	ctx := context.Background()

	require.NoError(t, ts.shop.EquipOutfit(ctx, "s1", 99))
	require.NoError(t, ts.shop.EquipOutfit(ctx, "s1", -1))

	assert.Len(t, ts.notifier.prompts, 2)
	assert.Empty(t, ts.notifier.styles)
}

func TestEquipOutfitEmptySnapshotPrompts(t *testing.T) {
	ts := newTestShop(t)
	ts.shop.presence.register("s1", model.User{ID: testUserID, LicenseID: "lic-7"})
	ts.sessions.Track("s1")

	require.NoError(t, ts.shop.EquipOutfit(context.Background(), "s1", 0))
	require.Len(t, ts.notifier.prompts, 1)
	assert.Contains(t, ts.notifier.prompts[0], "don't have any outfits")
}

func TestActiveOutfitFallsBackToPersistedSelection(t *testing.T) {
	ts := newTestShop(t)
	ts.startSession(t, "s1")
	ctx := context.Background()

	snapshot, loaded := ts.sessions.OutfitsSnapshot("s1")
	require.True(t, loaded)
	require.NotEmpty(t, snapshot)

	require.NoError(t, ts.repo.SetActiveSelection(ctx, testUserID, snapshot[0].ID))

	record, ok, err := ts.shop.ActiveOutfit(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snapshot[0].ID, record.ID)
}

func TestSessionEndPersistsSelectionAndFlushes(t *testing.T) {
	ts := newTestShop(t)
	ts.startSession(t, "s1")
	ctx := context.Background()

	require.NoError(t, ts.shop.EquipOutfit(ctx, "s1", 0))
	snapshot, _ := ts.sessions.OutfitsSnapshot("s1")
	require.NotEmpty(t, snapshot)

	require.NoError(t, ts.shop.HandleSessionEnd(ctx, "s1"))

	assert.False(t, ts.sessions.Tracked("s1"))
	_, ok := ts.shop.presence.lookup("s1")
	assert.False(t, ok)

	persisted, err := ts.repo.GetActiveSelection(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, snapshot[0].ID, persisted)
}
