package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"ggshop-rest-api/internal/model"

	"github.com/redis/go-redis/v9"
)

const publishTimeout = 2 * time.Second

// RedisNotifier publishes shop signals as JSON envelopes on a per-session
// pub/sub channel. Delivery is best-effort: publish errors are logged and
// dropped.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// RedisNotifierConfig holds Redis connection settings for the notifier.
type RedisNotifierConfig struct {
	Addr     string
	Password string
	DB       int

	// ChannelPrefix defaults to "shop:events".
	ChannelPrefix string
}

// NewRedisNotifier creates a Redis-backed notifier and verifies the
// connection.
func NewRedisNotifier(cfg RedisNotifierConfig) (*RedisNotifier, error) {
	if cfg.ChannelPrefix == "" {
		cfg.ChannelPrefix = "shop:events"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	log.Printf("[RedisNotifier] Connected to %s", cfg.Addr)
	return &RedisNotifier{client: client, channel: cfg.ChannelPrefix}, nil
}

// envelope is the wire format of one published signal.
type envelope struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// publish serializes and publishes one signal, logging failures.
func (n *RedisNotifier) publish(sessionID, event string, data map[string]interface{}) {
	payload, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		log.Printf("[RedisNotifier] Failed to encode %s: %v", event, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	channel := n.channel + ":" + sessionID
	if err := n.client.Publish(ctx, channel, payload).Err(); err != nil {
		log.Printf("[RedisNotifier] Failed to publish %s to %s: %v", event, channel, err)
	}
}

func (n *RedisNotifier) PurchaseResult(sessionID string, result model.PurchaseResult) {
	n.publish(sessionID, EventPurchaseResult, map[string]interface{}{
		"result":  string(result),
		"message": result.Message(),
	})
}

func (n *RedisNotifier) NewestItem(sessionID string, kind model.ItemKind, itemID int64) {
	n.publish(sessionID, EventNewestItem, map[string]interface{}{
		"kind":    kind.String(),
		"item_id": itemID,
	})
}

func (n *RedisNotifier) OwnershipCountChanged(sessionID string, granted, revoked int) {
	n.publish(sessionID, EventOwnershipCountChanged, map[string]interface{}{
		"granted": granted,
		"revoked": revoked,
	})
}

func (n *RedisNotifier) OwnedOutfits(sessionID string, outfitIDs []int64) {
	n.publish(sessionID, EventOwnedOutfits, map[string]interface{}{
		"outfit_ids": outfitIDs,
	})
}

func (n *RedisNotifier) OwnedItems(sessionID string, itemIDs []int64) {
	n.publish(sessionID, EventOwnedItems, map[string]interface{}{
		"item_ids": itemIDs,
	})
}

func (n *RedisNotifier) Activation(sessionID string, kind model.ItemKind, expiryEpochMillis int64, price int) {
	n.publish(sessionID, EventActivation, map[string]interface{}{
		"kind":   kind.String(),
		"expiry": expiryEpochMillis,
		"price":  price,
	})
}

func (n *RedisNotifier) ActiveStyle(sessionID string, style ClothingStyle) {
	n.publish(sessionID, EventActiveStyle, map[string]interface{}{
		"slot_index":     style.SlotIndex,
		"ped_components": style.PedComponents,
	})
}

func (n *RedisNotifier) Prompt(sessionID string, message string) {
	n.publish(sessionID, EventPrompt, map[string]interface{}{
		"message": message,
	})
}

func (n *RedisNotifier) Error(sessionID string, operation string) {
	n.publish(sessionID, EventError, map[string]interface{}{
		"operation": operation,
	})
}

// Close closes the Redis connection.
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
