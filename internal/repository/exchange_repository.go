package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/farmhub/internal/model"
)

// ExchangeRepo persists household labor-exchange balances and their
// ledger.
type ExchangeRepo struct{ db *sql.DB }

func NewExchangeRepo(db *sql.DB) *ExchangeRepo { return &ExchangeRepo{db: db} }

const exchangeCols = "id, household_a_id, household_b_id, balance_minutes, updated_at"

func scanExchange(s scanner) (model.LaborExchange, error) {
	var e model.LaborExchange
	err := s.Scan(&e.ID, &e.HouseholdA, &e.HouseholdB, &e.BalanceMinutes, &e.UpdatedAt)
	return e, err
}

const laborTxCols = "id, exchange_id, creditor_id, debtor_id, minutes, kind, assignment_id, note, created_at"

func scanLaborTx(s scanner) (model.LaborTransaction, error) {
	var t model.LaborTransaction
	err := s.Scan(&t.ID, &t.ExchangeID, &t.CreditorID, &t.DebtorID, &t.Minutes, &t.Kind, &t.AssignmentID, &t.Note, &t.CreatedAt)
	return t, err
}

// Credit records that debtor owes creditor minutes more.  The pair row is
// upserted and the ledger entry written through q, so callers run both in
// their transaction.  A duplicate assignment credit is ErrConflict.
func (r *ExchangeRepo) Credit(ctx context.Context, q DBTX, t *model.LaborTransaction) error {
	pair, sign := model.NewHouseholdPair(t.CreditorID, t.DebtorID)
	res, err := orDB(q, r.db).ExecContext(ctx,
		`INSERT INTO labor_exchanges (household_a_id, household_b_id, balance_minutes) VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE balance_minutes = balance_minutes + VALUES(balance_minutes), id = LAST_INSERT_ID(id)`,
		pair.A, pair.B, sign*t.Minutes)
	if err != nil {
		return err
	}
	if t.ExchangeID, err = insertID(res); err != nil {
		return err
	}
	res, err = orDB(q, r.db).ExecContext(ctx,
		`INSERT INTO labor_transactions (exchange_id, creditor_id, debtor_id, minutes, kind, assignment_id, note)
		 VALUES (?,?,?,?,?,?,?)`,
		t.ExchangeID, t.CreditorID, t.DebtorID, t.Minutes, t.Kind, t.AssignmentID, t.Note)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	t.ID, err = insertID(res)
	return err
}

// ListForHousehold returns every exchange the household is part of.
func (r *ExchangeRepo) ListForHousehold(ctx context.Context, h uint64) ([]model.LaborExchange, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+exchangeCols+" FROM labor_exchanges WHERE household_a_id=? OR household_b_id=? ORDER BY updated_at DESC, id DESC",
		h, h)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.LaborExchange, 0)
	for rows.Next() {
		e, err := scanExchange(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetPair loads the exchange between x and y in either order.
func (r *ExchangeRepo) GetPair(ctx context.Context, x, y uint64) (model.LaborExchange, error) {
	pair, _ := model.NewHouseholdPair(x, y)
	e, err := scanExchange(r.db.QueryRowContext(ctx,
		"SELECT "+exchangeCols+" FROM labor_exchanges WHERE household_a_id=? AND household_b_id=?", pair.A, pair.B))
	return e, notFound(err)
}

// GetPairForUpdate loads and row-locks the exchange between x and y
// inside tx.
func (r *ExchangeRepo) GetPairForUpdate(ctx context.Context, tx DBTX, x, y uint64) (model.LaborExchange, error) {
	pair, _ := model.NewHouseholdPair(x, y)
	e, err := scanExchange(orDB(tx, r.db).QueryRowContext(ctx,
		"SELECT "+exchangeCols+" FROM labor_exchanges WHERE household_a_id=? AND household_b_id=? FOR UPDATE", pair.A, pair.B))
	return e, notFound(err)
}

// ListTransactions pages the ledger of one exchange, newest first.
func (r *ExchangeRepo) ListTransactions(ctx context.Context, exchangeID uint64, p model.Page) ([]model.LaborTransaction, int, error) {
	w := &where{}
	w.add("exchange_id = ?", exchangeID)
	total, err := count(ctx, r.db, "labor_transactions", w)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+laborTxCols+" FROM labor_transactions"+w.String()+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		pageArgs(w.args, p)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.LaborTransaction, 0)
	for rows.Next() {
		t, err := scanLaborTx(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}
