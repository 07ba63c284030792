package service

import (
	"context"
	"time"

	"ggshop-rest-api/internal/model"
)

// Activate emits activation signals for the session's unexpired
// time-boxed items. It reads only the cached snapshot and mutates no
// ownership state, so it is safe to call repeatedly: the session cache
// remembers the expiry last signaled per record, and a record is only
// re-signaled when a newer grant moved its expiry.
func (s *Shop) Activate(ctx context.Context, sessionID string) error {
	items, loaded := s.sessions.ItemsSnapshot(sessionID)
	if !loaded {
		return nil
	}

	cat := s.catalog.Current()
	now := time.Now().UTC()

	for _, record := range items {
		if record.Expired(now) {
			continue
		}
		item, ok := cat.ItemByID(record.ItemID)
		if !ok {
			continue
		}

		// Only the three time-boxed kinds fire a signal; anything else is
		// skipped without a default arm.
		switch item.Kind {
		case model.KindXPBoost, model.KindCurrency, model.KindDonation:
			if s.sessions.MarkActivated(sessionID, record.ID, record.ExpiresAt) {
				s.notifier.Activation(sessionID, item.Kind, record.ExpiresAt.UnixMilli(), item.Price)
			}
		}
	}
	return nil
}
