package repository

import (
	"context"
	"testing"
	"time"

	"ggshop-rest-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededMemoryLedger() *MemoryLedgerRepository {
	repo := NewMemoryLedgerRepository()
	repo.SeedCatalog(
		[]model.Outfit{
			{ID: 1, Name: "Casual", Price: 0, Enabled: true},
			{ID: 2, Name: "Premium", Price: 100, Enabled: true},
			{ID: 3, Name: "Retired", Price: 0, Enabled: false},
		},
		[]model.GeneralItem{
			{ID: 10, Name: "2x XP", Kind: model.KindXPBoost, Price: 50, Duration: time.Hour, Enabled: true},
			{ID: 11, Name: "Coins", Kind: model.KindCurrency, Price: 25, Duration: 30 * time.Minute, Enabled: true},
		},
	)
	repo.SeedUser(model.User{ID: 1, LicenseID: "lic-1", Cash: 100})
	return repo
}

func TestBuyUserOutfitStatuses(t *testing.T) {
	repo := seededMemoryLedger()
	ctx := context.Background()

	status, err := repo.BuyUserOutfit(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, BuyOK, status.Kind)
	assert.NotZero(t, status.RecordID)

	// Second purchase of the same outfit.
	status, err = repo.BuyUserOutfit(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, BuyAlreadyOwned, status.Kind)

	// Cash is spent; the next paid outfit fails.
	status, err = repo.BuyUserItem(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, BuyInsufficientFunds, status.Kind)

	// Disabled and unknown catalog entries.
	status, err = repo.BuyUserOutfit(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, BuyUnknownItem, status.Kind)
	status, err = repo.BuyUserOutfit(ctx, 1, 999)
	require.NoError(t, err)
	assert.Equal(t, BuyUnknownItem, status.Kind)
}

func TestBuyFreeOutfitIgnoresBalance(t *testing.T) {
	repo := seededMemoryLedger()
	repo.SeedUser(model.User{ID: 2, LicenseID: "lic-2", Cash: 0})

	status, err := repo.BuyUserOutfit(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, BuyOK, status.Kind)
}

func TestBuyUserItemSetsExpiryAndActivation(t *testing.T) {
	repo := seededMemoryLedger()
	ctx := context.Background()

	status, err := repo.BuyUserItem(ctx, 1, 11)
	require.NoError(t, err)
	require.Equal(t, BuyOK, status.Kind)

	records, err := repo.GetUserGeneralItems(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, status.RecordID, records[0].ID)
	assert.True(t, records[0].OneTimeActivation, "currency grants activate once")
	assert.WithinDuration(t, time.Now().UTC().Add(30*time.Minute), records[0].ExpiresAt, 10*time.Second)

	status, err = repo.BuyUserItem(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, BuyOK, status.Kind)
	records, err = repo.GetUserGeneralItems(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.False(t, records[1].OneTimeActivation, "xp boosts re-activate")
}

func TestReadsPreserveInsertionOrder(t *testing.T) {
	repo := seededMemoryLedger()
	ctx := context.Background()

	for _, outfitID := range []int64{2, 1} {
		_, err := repo.BuyUserOutfit(ctx, 1, outfitID)
		require.NoError(t, err)
	}

	records, err := repo.GetUserOutfits(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(2), records[0].OutfitID)
	assert.Equal(t, int64(1), records[1].OutfitID)
}

func TestDeleteUserOutfitReportsCount(t *testing.T) {
	repo := seededMemoryLedger()
	ctx := context.Background()

	_, err := repo.BuyUserOutfit(ctx, 1, 1)
	require.NoError(t, err)

	count, err := repo.DeleteUserOutfit(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = repo.DeleteUserOutfit(ctx, 1, 1)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestFlushSessionOwnershipUpdatesExisting(t *testing.T) {
	repo := seededMemoryLedger()
	ctx := context.Background()

	status, err := repo.BuyUserOutfit(ctx, 1, 1)
	require.NoError(t, err)

	records, err := repo.GetUserOutfits(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)

	mutated := records[0]
	mutated.OutfitID = 2
	require.NoError(t, repo.FlushSessionOwnership(ctx, []model.UserOutfit{mutated}))

	records, err = repo.GetUserOutfits(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, status.RecordID, records[0].ID)
	assert.Equal(t, int64(2), records[0].OutfitID)
}

func TestGetUserByLicense(t *testing.T) {
	repo := seededMemoryLedger()
	ctx := context.Background()

	user, err := repo.GetUserByLicense(ctx, "lic-1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, int64(1), user.ID)

	user, err = repo.GetUserByLicense(ctx, "lic-missing")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestBuyStatusFromCode(t *testing.T) {
	assert.Equal(t, BuyStatus{Kind: BuyAlreadyOwned}, buyStatusFromCode(0))
	assert.Equal(t, BuyStatus{Kind: BuyInsufficientFunds}, buyStatusFromCode(-1))
	assert.Equal(t, BuyStatus{Kind: BuyUnknownItem}, buyStatusFromCode(-99))
	assert.Equal(t, BuyStatus{Kind: BuyOK, RecordID: 17}, buyStatusFromCode(17))
}
