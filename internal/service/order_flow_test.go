package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/farmhub/internal/model"
	"github.com/iliyamo/farmhub/internal/repository"
)

type stockRow struct {
	locked int
	qty    map[uint64]float64
}

func (s *stockRow) GetForUpdate(_ context.Context, _ repository.DBTX, id uint64) (float64, error) {
	s.locked++
	q, ok := s.qty[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return q, nil
}

func (s *stockRow) AdjustStock(_ context.Context, _ repository.DBTX, id uint64, delta float64) error {
	if s.qty[id]+delta < 0 {
		return repository.ErrInsufficientStock
	}
	s.qty[id] += delta
	return nil
}

func TestApplyStockEffect(t *testing.T) {
	ctx := context.Background()
	st := &stockRow{qty: map[uint64]float64{1: 10}}

	require.NoError(t, applyStockEffect[float64](ctx, nil, st, model.StockDecrement, 1, 4))
	assert.Equal(t, 6.0, st.qty[1])
	assert.Equal(t, 1, st.locked)

	err := applyStockEffect[float64](ctx, nil, st, model.StockDecrement, 1, 7)
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)
	assert.Equal(t, 6.0, st.qty[1])

	err = applyStockEffect[float64](ctx, nil, st, model.StockDecrement, 2, 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, applyStockEffect[float64](ctx, nil, st, model.StockRestore, 1, 4))
	assert.Equal(t, 10.0, st.qty[1])

	require.NoError(t, applyStockEffect[float64](ctx, nil, st, model.StockNone, 1, 4))
	assert.Equal(t, 10.0, st.qty[1])
}

func TestTransitionReason(t *testing.T) {
	why := "  out of stock "
	in := TransitionInput{Reason: &why}

	r := transitionReason(model.OrderTransition{To: model.OrderRejected}, in)
	require.NotNil(t, r)
	assert.Equal(t, "out of stock", *r)
	assert.Nil(t, transitionReason(model.OrderTransition{To: model.OrderShipped}, in))
}
