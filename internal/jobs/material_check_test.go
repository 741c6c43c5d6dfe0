package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/farmhub/internal/model"
	"github.com/iliyamo/farmhub/internal/queue"
)

type stubMaterials struct {
	rows []model.FarmMaterial
	err  error
}

func (s stubMaterials) ListLowStock(context.Context) ([]model.FarmMaterial, error) { return s.rows, s.err }

type collect struct{ events []queue.NotificationEvent }

func (c *collect) Publish(_ context.Context, ev queue.NotificationEvent) error {
	c.events = append(c.events, ev)
	return nil
}

func TestMaterialCheckNotifiesOncePerDay(t *testing.T) {
	src := stubMaterials{rows: []model.FarmMaterial{
		{ID: 1, OwnerID: 7, Name: "NPK", Unit: "kg", Quantity: 2, MinQuantity: 10},
		{ID: 2, OwnerID: 8, Name: "Seed", Unit: "bag", Quantity: 0, MinQuantity: 1},
	}}
	pub := &collect{}
	day := time.Date(2026, 10, 17, 6, 0, 0, 0, time.UTC)
	claims := NewMemoryClaimer()
	claims.now = func() time.Time { return day }
	job := NewMaterialCheck(src, claims, pub, zap.NewNop())
	job.now = func() time.Time { return day }

	sent, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	require.Len(t, pub.events, 2)
	assert.Equal(t, uint64(7), pub.events[0].UserID)
	assert.Equal(t, model.NotifyLowStock, pub.events[0].Kind)
	assert.Contains(t, pub.events[0].Message, "NPK is down to 2 kg")

	sent, err = job.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent, "same day")

	day = day.Add(24 * time.Hour)
	sent, err = job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent, "next day")
}

func TestMaterialCheckSourceError(t *testing.T) {
	job := NewMaterialCheck(stubMaterials{err: errors.New("db down")}, NewMemoryClaimer(), &collect{}, zap.NewNop())
	_, err := job.Run(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func TestMemoryClaimerExpires(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewMemoryClaimer()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := c.Claim(ctx, "k", time.Minute)
	assert.True(t, ok)
	ok, _ = c.Claim(ctx, "k", time.Minute)
	assert.False(t, ok)
	now = now.Add(2 * time.Minute)
	ok, _ = c.Claim(ctx, "k", time.Minute)
	assert.True(t, ok)
}

func TestLowStockKey(t *testing.T) {
	assert.Equal(t, "farmhub:lowstock:42:2026-10-17", lowStockKey(42, time.Date(2026, 10, 17, 23, 0, 0, 0, time.UTC)))
}
