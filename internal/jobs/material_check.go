// Package jobs holds the scheduled background work run by cmd/server and
// on demand by farmctl.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/farmhub/internal/metrics"
	"github.com/iliyamo/farmhub/internal/model"
	"github.com/iliyamo/farmhub/internal/queue"
)

// LowStockSource lists every material below its restock threshold.
type LowStockSource interface {
	ListLowStock(ctx context.Context) ([]model.FarmMaterial, error)
}

// Publisher delivers a notification event.
type Publisher interface {
	Publish(ctx context.Context, ev queue.NotificationEvent) error
}

// Claimer records that key has been handled.  Claim reports false when
// the key was already claimed and has not expired.
type Claimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisClaimer claims keys with SET NX so that several server replicas
// running the same schedule notify only once.
type RedisClaimer struct{ rdb *redis.Client }

func NewRedisClaimer(rdb *redis.Client) *RedisClaimer { return &RedisClaimer{rdb: rdb} }

func (c *RedisClaimer) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, key, 1, ttl).Result()
}

// MemoryClaimer is the single-process Claimer used without Redis.
type MemoryClaimer struct {
	mu   sync.Mutex
	keys map[string]time.Time
	now  func() time.Time
}

func NewMemoryClaimer() *MemoryClaimer {
	return &MemoryClaimer{keys: map[string]time.Time{}, now: time.Now}
}

func (c *MemoryClaimer) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, exp := range c.keys {
		if now.After(exp) {
			delete(c.keys, k)
		}
	}
	if _, ok := c.keys[key]; ok {
		return false, nil
	}
	c.keys[key] = now.Add(ttl)
	return true, nil
}

// NewClaimer returns a RedisClaimer when rdb is set and a MemoryClaimer
// otherwise.
func NewClaimer(rdb *redis.Client) Claimer {
	if rdb == nil {
		return NewMemoryClaimer()
	}
	return NewRedisClaimer(rdb)
}

const claimTTL = 36 * time.Hour

// MaterialCheck notifies farmers about materials below min_quantity, at
// most once per material per day.
type MaterialCheck struct {
	materials LowStockSource
	claims    Claimer
	publisher Publisher
	log       *zap.Logger
	now       func() time.Time
}

func NewMaterialCheck(materials LowStockSource, claims Claimer, publisher Publisher, log *zap.Logger) *MaterialCheck {
	return &MaterialCheck{materials: materials, claims: claims, publisher: publisher, log: log, now: time.Now}
}

func lowStockKey(id uint64, day time.Time) string {
	return fmt.Sprintf("farmhub:lowstock:%d:%s", id, day.Format("2006-01-02"))
}

// Run scans once and returns how many notifications were sent.
func (j *MaterialCheck) Run(ctx context.Context) (sent int, err error) {
	defer func() { metrics.RecordJobRun("material_check", err == nil) }()

	low, err := j.materials.ListLowStock(ctx)
	if err != nil {
		return 0, fmt.Errorf("list low stock: %w", err)
	}
	today := j.now()
	for _, m := range low {
		ok, err := j.claims.Claim(ctx, lowStockKey(m.ID, today), claimTTL)
		if err != nil {
			j.log.Warn("low stock claim failed", zap.Uint64("material_id", m.ID), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		ev := queue.NewEvent(m.OwnerID, model.NotifyLowStock, "Low stock: "+m.Name,
			fmt.Sprintf("%s is down to %g %s (minimum %g %s).", m.Name, m.Quantity, m.Unit, m.MinQuantity, m.Unit),
			"farm_material", m.ID)
		if err := j.publisher.Publish(ctx, ev); err != nil {
			j.log.Warn("low stock notification failed", zap.Uint64("material_id", m.ID), zap.Error(err))
			continue
		}
		sent++
	}
	j.log.Info("material check finished", zap.Int("low", len(low)), zap.Int("notified", sent))
	return sent, nil
}
