package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ggshop-rest-api/internal/cache"
	"ggshop-rest-api/internal/catalog"
	"ggshop-rest-api/internal/model"
	"ggshop-rest-api/internal/notify"
	"ggshop-rest-api/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Catalog ids used across the tests.
const (
	outfitDefault   = 1
	outfitFreeRed   = 2
	outfitElite     = 3
	outfitDonor     = 4
	outfitPremium   = 5
	outfitWebshop   = 6
	itemBoost       = 10
	itemCurrency    = 11
	itemDonation    = 12
	webshopSKUCape  = 42
	webshopSKUCoins = 77
)

const testUserID = 7

// fakeOracle is a controllable entitlement oracle.
type fakeOracle struct {
	mu       sync.Mutex
	owned    map[int64]bool
	canStart bool
	err      error
}

func (o *fakeOracle) OwnsSKU(ctx context.Context, sessionID string, skuID int64) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return false, o.err
	}
	return o.owned[skuID], nil
}

func (o *fakeOracle) CanStartCommerceCheck(ctx context.Context, sessionID string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return false, o.err
	}
	return o.canStart, nil
}

func (o *fakeOracle) setOwned(sku int64, owned bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.owned[sku] = owned
}

// captureNotifier records every emitted signal.
type captureNotifier struct {
	mu          sync.Mutex
	results     []model.PurchaseResult
	newest      []int64
	activations []capturedActivation
	styles      []notify.ClothingStyle
	prompts     []string
	errOps      []string
}

type capturedActivation struct {
	kind   model.ItemKind
	expiry int64
	price  int
}

func (n *captureNotifier) PurchaseResult(sessionID string, result model.PurchaseResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, result)
}

func (n *captureNotifier) NewestItem(sessionID string, kind model.ItemKind, itemID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.newest = append(n.newest, itemID)
}

func (n *captureNotifier) OwnershipCountChanged(sessionID string, granted, revoked int) {}
func (n *captureNotifier) OwnedOutfits(sessionID string, outfitIDs []int64)             {}
func (n *captureNotifier) OwnedItems(sessionID string, itemIDs []int64)                 {}

func (n *captureNotifier) Activation(sessionID string, kind model.ItemKind, expiry int64, price int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.activations = append(n.activations, capturedActivation{kind, expiry, price})
}

func (n *captureNotifier) ActiveStyle(sessionID string, style notify.ClothingStyle) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.styles = append(n.styles, style)
}

func (n *captureNotifier) Prompt(sessionID string, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.prompts = append(n.prompts, message)
}

func (n *captureNotifier) Error(sessionID string, operation string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errOps = append(n.errOps, operation)
}

func (n *captureNotifier) activationCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.activations)
}

// flakyLedger wraps the in-memory ledger with injectable read failures.
type flakyLedger struct {
	*repository.MemoryLedgerRepository
	mu          sync.Mutex
	readOutfits error
}

func (f *flakyLedger) GetUserOutfits(ctx context.Context, userID int64) ([]model.UserOutfit, error) {
	f.mu.Lock()
	err := f.readOutfits
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.MemoryLedgerRepository.GetUserOutfits(ctx, userID)
}

func (f *flakyLedger) failReads(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readOutfits = err
}

func seedCatalog(repo *repository.MemoryLedgerRepository) {
	repo.SeedCatalog(
		[]model.Outfit{
			{ID: outfitDefault, Name: "Default (Grey)", Price: 0, RequiredXp: 0, Enabled: true,
				Components: []model.PedComponent{{ComponentID: 1, DrawableID: 57}}},
			{ID: outfitFreeRed, Name: "Free (Red)", Price: 0, RequiredXp: 0, Enabled: true,
				Components: []model.PedComponent{{ComponentID: 1, DrawableID: 12}}},
			{ID: outfitElite, Name: "Elite", Price: 0, RequiredXp: 5000, Enabled: true},
			{ID: outfitDonor, Name: "Donor (Gold)", Price: 0, RequiredXp: 0, DonatorExclusive: true, Enabled: true},
			{ID: outfitPremium, Name: "Premium", Price: 100, RequiredXp: 0, Enabled: true,
				Components: []model.PedComponent{{ComponentID: 3, DrawableID: 41}}},
			{ID: outfitWebshop, Name: "Webshop Cape", Price: 500, RequiredXp: 0, Enabled: true, TebexPackageID: webshopSKUCape},
		},
		[]model.GeneralItem{
			{ID: itemBoost, Name: "2x XP (1h)", Kind: model.KindXPBoost, Price: 50, Enabled: true, Duration: time.Hour},
			{ID: itemCurrency, Name: "Coin Pack", Kind: model.KindCurrency, Price: 0, Enabled: true,
				Duration: 30 * time.Minute, TebexPackageID: webshopSKUCoins},
			{ID: itemDonation, Name: "Supporter", Kind: model.KindDonation, Price: 0, Enabled: true, Duration: 2 * time.Hour},
		},
	)
}

type testShop struct {
	shop     *Shop
	repo     *flakyLedger
	oracle   *fakeOracle
	notifier *captureNotifier
	sessions *cache.SessionCache
}

func newTestShop(t *testing.T) *testShop {
	t.Helper()

	mem := repository.NewMemoryLedgerRepository()
	seedCatalog(mem)
	mem.SeedUser(model.User{ID: testUserID, LicenseID: "lic-7", Xp: 0, Cash: 1000})

	repo := &flakyLedger{MemoryLedgerRepository: mem}
	cat := catalog.New(repo, "Default (Grey)")
	require.NoError(t, cat.Load(context.Background()))

	oracle := &fakeOracle{owned: make(map[int64]bool)}
	notifier := &captureNotifier{}
	sessions := cache.NewSessionCache()

	return &testShop{
		shop:     NewShop(repo, oracle, cat, sessions, notifier),
		repo:     repo,
		oracle:   oracle,
		notifier: notifier,
		sessions: sessions,
	}
}

func (ts *testShop) startSession(t *testing.T, sessionID string) {
	t.Helper()
	require.NoError(t, ts.shop.HandleSessionStart(context.Background(), sessionID, "lic-7"))
}

func TestBuyIdempotent(t *testing.T) {
	ts := newTestShop(t)
	ts.startSession(t, "s1")
	ctx := context.Background()

	result, err := ts.shop.Buy(ctx, testUserID, outfitPremium, model.KindOutfit, "s1", false)
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseSuccess, result)

	result, err = ts.shop.Buy(ctx, testUserID, outfitPremium, model.KindOutfit, "s1", false)
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseAlreadyOwned, result)

	// The ledger holds exactly one record and the price was deducted once.
	records, err := ts.repo.GetUserOutfits(ctx, testUserID)
	require.NoError(t, err)
	count := 0
	for _, r := range records {
		if r.OutfitID == outfitPremium {
			count++
		}
	}
	assert.Equal(t, 1, count)

	user, err := ts.repo.GetUserByLicense(ctx, "lic-7")
	require.NoError(t, err)
	assert.Equal(t, 900, user.Cash)
}

func TestBuyInsufficientFunds(t *testing.T) {
	ts := newTestShop(t)
	ts.repo.SeedUser(model.User{ID: testUserID, LicenseID: "lic-7", Cash: 10})
	ts.startSession(t, "s1")

	result, err := ts.shop.Buy(context.Background(), testUserID, outfitPremium, model.KindOutfit, "s1", false)
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseInsufficientFunds, result)
}

func TestBuyUnknownKindDoesNotTouchLedger(t *testing.T) {
	ts := newTestShop(t)
	ts.startSession(t, "s1")
	ctx := context.Background()

	before, err := ts.repo.Stats(ctx)
	require.NoError(t, err)

	result, err := ts.shop.Buy(ctx, testUserID, outfitPremium, model.ItemKind(99), "s1", false)
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseUnknownItem, result)

	after, err := ts.repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, before["user_outfits"], after["user_outfits"])
	assert.Equal(t, before["user_general_items"], after["user_general_items"])
}

func TestBuyUnknownItem(t *testing.T) {
	ts := newTestShop(t)
	ts.startSession(t, "s1")

	result, err := ts.shop.Buy(context.Background(), testUserID, 9999, model.KindOutfit, "s1", false)
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseUnknownItem, result)
}

func TestBuyGeneralItemSetsExpiry(t *testing.T) {
	ts := newTestShop(t)
	ts.startSession(t, "s1")
	ctx := context.Background()

	result, err := ts.shop.Buy(ctx, testUserID, itemBoost, model.KindXPBoost, "s1", false)
	require.NoError(t, err)
	require.Equal(t, model.PurchaseSuccess, result)

	records, err := ts.repo.GetUserGeneralItems(ctx, testUserID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(itemBoost), records[0].ItemID)
	assert.False(t, records[0].OneTimeActivation, "xp boosts are not one-time activations")
	assert.WithinDuration(t, time.Now().UTC().Add(time.Hour), records[0].ExpiresAt, 10*time.Second)

	// The snapshot reflects the purchase before Buy returns.
	snapshot, loaded := ts.sessions.ItemsSnapshot("s1")
	require.True(t, loaded)
	require.Len(t, snapshot, 1)
	assert.Equal(t, int64(itemBoost), snapshot[0].ItemID)
}

func TestConcurrentBuySameItem(t *testing.T) {
	ts := newTestShop(t)
	ts.startSession(t, "s1")
	ts.startSession(t, "s2")

	results := make([]model.PurchaseResult, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, sessionID := range []string{"s1", "s2"} {
		wg.Add(1)
		go func(i int, sessionID string) {
			defer wg.Done()
			results[i], errs[i] = ts.shop.Buy(context.Background(), testUserID, outfitPremium, model.KindOutfit, sessionID, false)
		}(i, sessionID)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	assert.ElementsMatch(t, []model.PurchaseResult{model.PurchaseSuccess, model.PurchaseAlreadyOwned}, results)
}

func TestBuyFailureSurfaced(t *testing.T) {
	ts := newTestShop(t)
	ts.startSession(t, "s1")

	// A read failure during the post-purchase refresh must surface, but
	// the committed purchase stays committed.
	ts.repo.failReads(errors.New("connection reset"))
	result, err := ts.shop.Buy(context.Background(), testUserID, outfitPremium, model.KindOutfit, "s1", false)
	require.Error(t, err)
	assert.Equal(t, model.PurchaseSuccess, result)

	ts.repo.failReads(nil)
	records, err := ts.repo.GetUserOutfits(context.Background(), testUserID)
	require.NoError(t, err)
	assert.True(t, ownsOutfit(records, outfitPremium))
}
