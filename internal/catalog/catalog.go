// Package catalog holds the process-wide cache of purchasable item
// definitions. The catalog is loaded once at startup and only replaced
// wholesale by an explicit reload: readers always see a complete,
// immutable snapshot and never synchronize.
package catalog

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"ggshop-rest-api/internal/model"
	"ggshop-rest-api/internal/repository"
)

// Snapshot is one immutable view of the catalog. Slices preserve catalog
// order; lookup maps index the same entries by id.
type Snapshot struct {
	Outfits      []model.Outfit
	GeneralItems []model.GeneralItem

	outfitsByID map[int64]model.Outfit
	itemsByID   map[int64]model.GeneralItem

	defaultOutfitID int64
}

// OutfitByID looks up an outfit definition.
func (s *Snapshot) OutfitByID(id int64) (model.Outfit, bool) {
	o, ok := s.outfitsByID[id]
	return o, ok
}

// ItemByID looks up a general-item definition.
func (s *Snapshot) ItemByID(id int64) (model.GeneralItem, bool) {
	gi, ok := s.itemsByID[id]
	return gi, ok
}

// DefaultOutfit returns the designated default outfit, granted to users
// who own nothing. The boolean is false if the catalog has no entry with
// the configured default name.
func (s *Snapshot) DefaultOutfit() (model.Outfit, bool) {
	return s.OutfitByID(s.defaultOutfitID)
}

// Cache is the single-writer, read-many holder of the current snapshot.
type Cache struct {
	repo              repository.LedgerRepository
	defaultOutfitName string
	current           atomic.Pointer[Snapshot]
}

// New creates a catalog cache with an empty snapshot installed. Call Load
// before serving.
func New(repo repository.LedgerRepository, defaultOutfitName string) *Cache {
	c := &Cache{repo: repo, defaultOutfitName: defaultOutfitName}
	c.current.Store(buildSnapshot(nil, nil, defaultOutfitName))
	return c
}

// Current returns the active snapshot. Never nil.
func (c *Cache) Current() *Snapshot {
	return c.current.Load()
}

// Load rebuilds the snapshot from the ledger and swaps it in atomically.
// Disabled entries are filtered out here so nothing downstream re-checks.
func (c *Cache) Load(ctx context.Context) error {
	outfits, err := c.repo.GetCatalogOutfits(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog outfits: %w", err)
	}
	items, err := c.repo.GetCatalogItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog items: %w", err)
	}

	snap := buildSnapshot(outfits, items, c.defaultOutfitName)
	c.current.Store(snap)

	log.Printf("[Catalog] Loaded %d outfits, %d general items", len(snap.Outfits), len(snap.GeneralItems))
	if _, ok := snap.DefaultOutfit(); !ok {
		log.Printf("[Catalog] Warning: default outfit %q not found in catalog", c.defaultOutfitName)
	}
	return nil
}

func buildSnapshot(outfits []model.Outfit, items []model.GeneralItem, defaultName string) *Snapshot {
	snap := &Snapshot{
		outfitsByID: make(map[int64]model.Outfit),
		itemsByID:   make(map[int64]model.GeneralItem),
	}
	for _, o := range outfits {
		if !o.Enabled {
			continue
		}
		snap.Outfits = append(snap.Outfits, o)
		snap.outfitsByID[o.ID] = o
		if o.Name == defaultName {
			snap.defaultOutfitID = o.ID
		}
	}
	for _, gi := range items {
		if !gi.Enabled {
			continue
		}
		snap.GeneralItems = append(snap.GeneralItems, gi)
		snap.itemsByID[gi.ID] = gi
	}
	return snap
}
