package model

import (
	"math"
	"time"
)

// HouseholdPair is an unordered pair of households normalized so that
// A < B.  Balances are stored once per pair from A's perspective.
type HouseholdPair struct {
	A, B uint64
}

// NewHouseholdPair normalizes (x, y).  The returned sign is +1 when x
// is the stored A side and -1 otherwise, so a delta expressed from x's
// perspective is stored as sign*delta.
func NewHouseholdPair(x, y uint64) (HouseholdPair, int64) {
	if x < y {
		return HouseholdPair{A: x, B: y}, 1
	}
	return HouseholdPair{A: y, B: x}, -1
}

// Other returns the household on the opposite side of the pair.
func (p HouseholdPair) Other(h uint64) uint64 {
	if h == p.A {
		return p.B
	}
	return p.A
}

// LaborExchange stores the running balance between two households.
// BalanceMinutes > 0 means B owes A that many minutes of work.
type LaborExchange struct {
	ID             uint64
	HouseholdA     uint64
	HouseholdB     uint64
	BalanceMinutes int64
	UpdatedAt      time.Time
}

// BalanceFor returns the balance from household h's perspective:
// positive when the counterparty owes h.
func (e LaborExchange) BalanceFor(h uint64) int64 {
	if h == e.HouseholdA {
		return e.BalanceMinutes
	}
	return -e.BalanceMinutes
}

// Counterparty returns the other household of the exchange.
func (e LaborExchange) Counterparty(h uint64) uint64 {
	if h == e.HouseholdA {
		return e.HouseholdB
	}
	return e.HouseholdA
}

// Labor transaction kinds.
const (
	TxKindWork       = "work"
	TxKindSettlement = "settlement"
)

// LaborTransaction is one entry in the exchange ledger.  CreditorID is
// the household that earned Minutes from DebtorID.
type LaborTransaction struct {
	ID           uint64    `json:"id"`
	ExchangeID   uint64    `json:"exchange_id"`
	CreditorID   uint64    `json:"creditor_id"`
	DebtorID     uint64    `json:"debtor_id"`
	Minutes      int64     `json:"minutes"`
	Kind         string    `json:"kind"`
	AssignmentID *uint64   `json:"assignment_id,omitempty"`
	Note         *string   `json:"note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// HoursToMinutes converts fractional hours to whole minutes, rounding
// to the nearest minute.
func HoursToMinutes(h float64) int64 { return int64(math.Round(h * 60)) }

// MinutesToHours converts minutes to hours rounded to two decimals.
func MinutesToHours(m int64) float64 { return math.Round(float64(m)/60*100) / 100 }
