package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/farmhub/internal/model"
	"github.com/iliyamo/farmhub/internal/repository"
)

func creditWork(t *testing.T, f *laborFixture, creditor, debtor uint64, minutes int64) {
	t.Helper()
	require.NoError(t, f.exchanges.Credit(context.Background(), nil, &model.LaborTransaction{
		CreditorID: creditor, DebtorID: debtor, Minutes: minutes, Kind: model.TxKindWork,
	}))
}

func TestBalancesAreAntisymmetric(t *testing.T) {
	f := newLaborFixture()
	ctx := context.Background()
	creditWork(t, f, householdB, householdA, 240)
	creditWork(t, f, householdA, householdB, 90)

	ba, err := f.exchange.Balances(ctx, householdA)
	require.NoError(t, err)
	bb, err := f.exchange.Balances(ctx, householdB)
	require.NoError(t, err)
	require.Len(t, ba, 1)
	require.Len(t, bb, 1)
	assert.Equal(t, int64(-150), ba[0].Minutes)
	assert.Equal(t, -ba[0].Minutes, bb[0].Minutes)
	assert.Equal(t, 2.5, bb[0].Hours)
}

func TestSettle(t *testing.T) {
	f := newLaborFixture()
	ctx := context.Background()
	creditWork(t, f, householdB, householdA, 150)

	note := " paid back in kind "
	res, err := f.exchange.Settle(ctx, householdA, householdB, SettleInput{Hours: 1, Note: &note})
	require.NoError(t, err)
	assert.Equal(t, model.TxKindSettlement, res.Transaction.Kind)
	assert.Equal(t, "paid back in kind", *res.Transaction.Note)
	assert.Equal(t, int64(-90), res.Balance.Minutes)
	assert.Len(t, f.notifier.to(householdB), 1)

	e, err := f.exchanges.GetPair(ctx, householdA, householdB)
	require.NoError(t, err)
	assert.Equal(t, int64(-90), e.BalanceFor(householdA))

	var verr *ValidationError
	_, err = f.exchange.Settle(ctx, householdA, householdB, SettleInput{Hours: 2})
	assert.ErrorAs(t, err, &verr, "more than owed")
	_, err = f.exchange.Settle(ctx, householdB, householdA, SettleInput{Hours: 1})
	assert.ErrorAs(t, err, &verr, "creditor owes nothing")
	_, err = f.exchange.Settle(ctx, householdA, householdA, SettleInput{Hours: 1})
	assert.ErrorAs(t, err, &verr)
	_, err = f.exchange.Settle(ctx, householdA, householdB, SettleInput{Hours: 0.001})
	assert.ErrorAs(t, err, &verr, "rounds to zero minutes")
	assert.Len(t, f.exchanges.txs, 2, "no zero-minute settlement recorded")
	_, err = f.exchange.Settle(ctx, householdA, workerUser, SettleInput{Hours: 1})
	assert.ErrorAs(t, err, &verr, "workers are not households")
	_, err = f.exchange.Settle(ctx, householdA, 99, SettleInput{Hours: 1})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTransactionsWithoutHistoryIsEmpty(t *testing.T) {
	f := newLaborFixture()
	rows, total, err := f.exchange.Transactions(context.Background(), householdA, householdB, model.NewPage(1, 20))
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Zero(t, total)

	creditWork(t, f, householdB, householdA, 60)
	rows, total, err = f.exchange.Transactions(context.Background(), householdB, householdA, model.NewPage(1, 20))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 1, total)
}
