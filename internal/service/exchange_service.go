package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/farmhub/internal/database"
	"github.com/iliyamo/farmhub/internal/metrics"
	"github.com/iliyamo/farmhub/internal/model"
	"github.com/iliyamo/farmhub/internal/repository"
)

// UserLookup resolves a user by id.
type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// ExchangeService reports and settles work-exchange balances between
// households.
type ExchangeService struct {
	exchanges ExchangeStore
	users     UserLookup
	tx        database.TxRunner
	notifier  Notifier
	log       *zap.Logger
}

func NewExchangeService(exchanges ExchangeStore, users UserLookup, tx database.TxRunner, n Notifier, log *zap.Logger) *ExchangeService {
	return &ExchangeService{exchanges: exchanges, users: users, tx: tx, notifier: n, log: log}
}

// Balance is one counterparty's balance from the caller's perspective.
// Positive values mean the counterparty owes the caller.
type Balance struct {
	HouseholdID uint64  `json:"household_id"`
	Minutes     int64   `json:"minutes"`
	Hours       float64 `json:"hours"`
}

// Balances lists the caller's balance with every household it has
// exchanged labor with.
func (s *ExchangeService) Balances(ctx context.Context, h uint64) ([]Balance, error) {
	ex, err := s.exchanges.ListForHousehold(ctx, h)
	if err != nil {
		return nil, err
	}
	out := make([]Balance, 0, len(ex))
	for _, e := range ex {
		m := e.BalanceFor(h)
		out = append(out, Balance{HouseholdID: e.Counterparty(h), Minutes: m, Hours: model.MinutesToHours(m)})
	}
	return out, nil
}

// Transactions pages the ledger shared by h and other.  A pair that has
// never exchanged labor yields an empty page.
func (s *ExchangeService) Transactions(ctx context.Context, h, other uint64, p model.Page) ([]model.LaborTransaction, int, error) {
	e, err := s.exchanges.GetPair(ctx, h, other)
	if errors.Is(err, repository.ErrNotFound) {
		return []model.LaborTransaction{}, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return s.exchanges.ListTransactions(ctx, e.ID, p)
}

// SettleInput is the body of POST /labor/exchanges/:household_id/settle.
type SettleInput struct {
	Hours float64 `json:"hours"`
	Note  *string `json:"note"`
}

// SettleResult is the new balance after a settlement.
type SettleResult struct {
	Transaction model.LaborTransaction `json:"transaction"`
	Balance     Balance                `json:"balance"`
}

// Settle records that h paid back hours it owed other.  The amount may
// not exceed the current debt.
func (s *ExchangeService) Settle(ctx context.Context, h, other uint64, in SettleInput) (SettleResult, error) {
	minutes := model.HoursToMinutes(in.Hours)
	v := &validator{}
	v.check(minutes > 0, "hours must be at least one minute")
	v.check(other != h, "cannot settle with your own household")
	if err := v.err(); err != nil {
		return SettleResult{}, err
	}
	u, err := s.users.GetByID(ctx, other)
	if err != nil {
		return SettleResult{}, err
	}
	if u.Role != model.RoleFarmer {
		return SettleResult{}, &ValidationError{Errors: []string{"counterparty is not a household"}}
	}

	note := trimmed(in.Note)
	t := model.LaborTransaction{
		CreditorID: h,
		DebtorID:   other,
		Minutes:    minutes,
		Kind:       model.TxKindSettlement,
		Note:       note,
	}
	var balance int64
	err = s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		e, err := s.exchanges.GetPairForUpdate(ctx, tx, h, other)
		if errors.Is(err, repository.ErrNotFound) {
			return &ValidationError{Errors: []string{"no labor exchanged with this household"}}
		}
		if err != nil {
			return err
		}
		owed := -e.BalanceFor(h)
		if owed <= 0 || minutes > owed {
			return &ValidationError{Errors: []string{
				fmt.Sprintf("you owe %.2f hours to this household", model.MinutesToHours(max(owed, 0)))}}
		}
		if err := s.exchanges.Credit(ctx, tx, &t); err != nil {
			return err
		}
		balance = -owed + minutes
		return nil
	})
	if err != nil {
		return SettleResult{}, err
	}
	metrics.RecordExchangeMinutes(model.TxKindSettlement, minutes)
	notify(ctx, s.notifier, s.log, other, model.NotifyExchange, "Exchange settled",
		fmt.Sprintf("Household #%d settled %.2f hours with you.", h, model.MinutesToHours(minutes)), "labor_exchange", t.ExchangeID)
	return SettleResult{
		Transaction: t,
		Balance:     Balance{HouseholdID: other, Minutes: balance, Hours: model.MinutesToHours(balance)},
	}, nil
}
