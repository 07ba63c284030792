package catalog

import (
	"context"
	"testing"

	"ggshop-rest-api/internal/model"
	"ggshop-rest-api/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededRepo() *repository.MemoryLedgerRepository {
	repo := repository.NewMemoryLedgerRepository()
	repo.SeedCatalog(
		[]model.Outfit{
			{ID: 1, Name: "Default (Grey)", Enabled: true},
			{ID: 2, Name: "Retired", Enabled: false},
			{ID: 3, Name: "Premium", Price: 100, Enabled: true},
		},
		[]model.GeneralItem{
			{ID: 10, Name: "2x XP", Kind: model.KindXPBoost, Enabled: true},
			{ID: 11, Name: "Old Pack", Kind: model.KindCurrency, Enabled: false},
		},
	)
	return repo
}

func TestLoadFiltersDisabledEntries(t *testing.T) {
	cache := New(seededRepo(), "Default (Grey)")
	require.NoError(t, cache.Load(context.Background()))

	snap := cache.Current()
	require.Len(t, snap.Outfits, 2)
	require.Len(t, snap.GeneralItems, 1)

	_, ok := snap.OutfitByID(2)
	assert.False(t, ok, "disabled outfits are invisible downstream")
	_, ok = snap.ItemByID(11)
	assert.False(t, ok)

	outfit, ok := snap.OutfitByID(3)
	require.True(t, ok)
	assert.Equal(t, "Premium", outfit.Name)
}

func TestDefaultOutfitLookup(t *testing.T) {
	cache := New(seededRepo(), "Default (Grey)")
	require.NoError(t, cache.Load(context.Background()))

	def, ok := cache.Current().DefaultOutfit()
	require.True(t, ok)
	assert.Equal(t, int64(1), def.ID)
}

func TestDefaultOutfitMissing(t *testing.T) {
	cache := New(seededRepo(), "No Such Outfit")
	require.NoError(t, cache.Load(context.Background()))

	_, ok := cache.Current().DefaultOutfit()
	assert.False(t, ok)
}

func TestCurrentBeforeLoadIsEmptyNotNil(t *testing.T) {
	cache := New(seededRepo(), "Default (Grey)")

	snap := cache.Current()
	require.NotNil(t, snap)
	assert.Empty(t, snap.Outfits)
	_, ok := snap.DefaultOutfit()
	assert.False(t, ok)
}

func TestReloadSwapsSnapshotWholesale(t *testing.T) {
	repo := seededRepo()
	cache := New(repo, "Default (Grey)")
	require.NoError(t, cache.Load(context.Background()))

	before := cache.Current()

	repo.SeedCatalog(
		[]model.Outfit{{ID: 9, Name: "Season Two", Enabled: true}},
		nil,
	)
	require.NoError(t, cache.Load(context.Background()))

	after := cache.Current()
	require.NotSame(t, before, after)

	// The old snapshot a reader already holds is untouched.
	_, ok := before.OutfitByID(1)
	assert.True(t, ok)

	_, ok = after.OutfitByID(1)
	assert.False(t, ok)
	_, ok = after.OutfitByID(9)
	assert.True(t, ok)
}
