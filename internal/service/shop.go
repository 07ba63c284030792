package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"ggshop-rest-api/internal/cache"
	"ggshop-rest-api/internal/catalog"
	"ggshop-rest-api/internal/commerce"
	"ggshop-rest-api/internal/model"
	"ggshop-rest-api/internal/notify"
	"ggshop-rest-api/internal/repository"
)

// ErrSessionNotFound marks operations requested for a session with no
// active presence. Sessions legitimately disconnect mid-operation, so the
// boundary treats this as a silent no-op, not a failure.
var ErrSessionNotFound = errors.New("session not found")

// Shop owns purchase, reconciliation, activation and session-lifecycle
// logic. All collaborator failures are caught here, logged, reported via
// the notifier error signal and returned as wrapped errors.
type Shop struct {
	repo     repository.LedgerRepository
	oracle   commerce.EntitlementOracle
	catalog  *catalog.Cache
	sessions *cache.SessionCache
	notifier notify.Notifier
	presence *presence
}

// NewShop creates the shop service.
func NewShop(
	repo repository.LedgerRepository,
	oracle commerce.EntitlementOracle,
	cat *catalog.Cache,
	sessions *cache.SessionCache,
	notifier notify.Notifier,
) *Shop {
	return &Shop{
		repo:     repo,
		oracle:   oracle,
		catalog:  cat,
		sessions: sessions,
		notifier: notifier,
		presence: newPresence(),
	}
}

// Sessions exposes the session cache for the transport layer.
func (s *Shop) Sessions() *cache.SessionCache {
	return s.sessions
}

// Buy purchases a catalog item for the user. The result kind is always
// one of the four purchase outcomes; the ledger is mutated only on
// success. On success the user's ownership snapshot is refreshed before
// returning, so the caller observes the new record. If
// allowCommerceCheck is set and the oracle permits it, the refresh also
// reconciles webshop entitlements in the same pass; the flag never
// blocks the purchase itself.
func (s *Shop) Buy(ctx context.Context, userID, itemID int64, kind model.ItemKind, sessionID string, allowCommerceCheck bool) (model.PurchaseResult, error) {
	result, err := s.buy(ctx, userID, itemID, kind)
	if err != nil {
		return "", s.fail(sessionID, "Buy", err)
	}

	if result != model.PurchaseSuccess {
		return result, nil
	}

	includeSync := false
	if allowCommerceCheck {
		ok, err := s.oracle.CanStartCommerceCheck(ctx, sessionID)
		if err != nil {
			// The purchase is already committed; a commerce-check failure
			// only skips the webshop sync in the refresh below.
			log.Printf("[Shop] Commerce check for session %s failed: %v", sessionID, err)
		}
		includeSync = err == nil && ok
	}

	switch kind {
	case model.KindOutfit:
		_, _, _, err = s.RefreshOutfits(ctx, sessionID, includeSync)
	default:
		_, _, _, err = s.RefreshGeneralItems(ctx, sessionID, includeSync)
	}
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return result, fmt.Errorf("purchase committed but refresh failed: %w", err)
	}
	return result, nil
}

// buy is the purchase state machine without the refresh step: dispatch by
// item kind to the matching ledger operation and map its typed status.
// Unrecognized kinds map to UnknownItem without touching the ledger.
func (s *Shop) buy(ctx context.Context, userID, itemID int64, kind model.ItemKind) (model.PurchaseResult, error) {
	var status repository.BuyStatus
	var err error

	switch kind {
	case model.KindOutfit:
		status, err = s.repo.BuyUserOutfit(ctx, userID, itemID)
	case model.KindXPBoost, model.KindCurrency, model.KindDonation:
		status, err = s.repo.BuyUserItem(ctx, userID, itemID)
	default:
		status = repository.BuyStatus{Kind: repository.BuyUnknownItem}
	}
	if err != nil {
		return "", fmt.Errorf("failed to buy item %d for user %d: %w", itemID, userID, err)
	}

	switch status.Kind {
	case repository.BuyAlreadyOwned:
		return model.PurchaseAlreadyOwned, nil
	case repository.BuyInsufficientFunds:
		return model.PurchaseInsufficientFunds, nil
	case repository.BuyUnknownItem:
		return model.PurchaseUnknownItem, nil
	default:
		return model.PurchaseSuccess, nil
	}
}

// HandleSessionStart registers a joining session, loads its ownership
// snapshots (reconciling webshop entitlements when the oracle allows a
// commerce check) and arms its active time-boxed items.
func (s *Shop) HandleSessionStart(ctx context.Context, sessionID, licenseID string) error {
	user, err := s.repo.GetUserByLicense(ctx, licenseID)
	if err != nil {
		return s.fail(sessionID, "HandleSessionStart", err)
	}
	if user == nil {
		log.Printf("[Shop] Could not find user %s for session %s", licenseID, sessionID)
		return fmt.Errorf("unknown license %s", licenseID)
	}

	s.presence.register(sessionID, *user)
	s.sessions.Track(sessionID)

	includeSync, err := s.oracle.CanStartCommerceCheck(ctx, sessionID)
	if err != nil {
		log.Printf("[Shop] Commerce check for session %s failed: %v", sessionID, err)
		includeSync = false
	}

	if _, _, _, err := s.RefreshOutfits(ctx, sessionID, includeSync); err != nil {
		return err
	}
	if _, _, _, err := s.RefreshGeneralItems(ctx, sessionID, includeSync); err != nil {
		return err
	}
	return s.Activate(ctx, sessionID)
}

// HandleSessionEnd flushes the session's ownership snapshot to the ledger
// and drops it from the cache. Safe to race against an in-flight refresh:
// the remove wins and the late snapshot write is dropped.
func (s *Shop) HandleSessionEnd(ctx context.Context, sessionID string) error {
	user, hasUser := s.presence.lookup(sessionID)
	s.presence.drop(sessionID)

	outfits, _, ok := s.sessions.Remove(sessionID)
	if !ok && !hasUser {
		return nil
	}

	if err := s.repo.FlushSessionOwnership(ctx, outfits); err != nil {
		return s.fail(sessionID, "HandleSessionEnd", err)
	}
	if hasUser && user.ActiveUserOutfitID != 0 {
		if err := s.repo.SetActiveSelection(ctx, user.ID, user.ActiveUserOutfitID); err != nil {
			return s.fail(sessionID, "HandleSessionEnd", err)
		}
	}
	return nil
}

// User resolves the session's player identity.
func (s *Shop) User(sessionID string) (model.User, bool) {
	return s.presence.lookup(sessionID)
}

// fail logs an operation failure, emits the error signal and returns the
// wrapped error. The generic signal never leaks internal detail.
func (s *Shop) fail(sessionID, operation string, err error) error {
	log.Printf("[Shop] %s failed for session %s: %v", operation, sessionID, err)
	s.notifier.Error(sessionID, operation)
	return fmt.Errorf("%s: %w", operation, err)
}
