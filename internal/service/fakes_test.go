package service

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/farmhub/internal/model"
	"github.com/iliyamo/farmhub/internal/queue"
	"github.com/iliyamo/farmhub/internal/repository"
)

// passTx runs fn without a real transaction.
type passTx struct{}

func (passTx) WithTx(_ context.Context, fn func(tx *sql.Tx) error) error { return fn(nil) }

type recordingNotifier struct {
	mu     sync.Mutex
	events []queue.NotificationEvent
}

func (n *recordingNotifier) Publish(_ context.Context, ev queue.NotificationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) to(userID uint64) []queue.NotificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []queue.NotificationEvent
	for _, ev := range n.events {
		if ev.UserID == userID {
			out = append(out, ev)
		}
	}
	return out
}

var nopLog = zap.NewNop()

func page[T any](all []T, p model.Page) ([]T, int) {
	start := p.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + p.Limit()
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all)
}

// ---- supply ----

type fakeSupplyListings struct {
	rows map[uint64]*model.SupplyListing
	next uint64
}

func newFakeSupplyListings() *fakeSupplyListings {
	return &fakeSupplyListings{rows: map[uint64]*model.SupplyListing{}}
}

func (f *fakeSupplyListings) Create(_ context.Context, l *model.SupplyListing) error {
	f.next++
	l.ID = f.next
	c := *l
	f.rows[l.ID] = &c
	return nil
}

func (f *fakeSupplyListings) Get(_ context.Context, _ repository.DBTX, id uint64) (model.SupplyListing, error) {
	l, ok := f.rows[id]
	if !ok {
		return model.SupplyListing{}, repository.ErrNotFound
	}
	return *l, nil
}

func (f *fakeSupplyListings) GetForUpdate(ctx context.Context, tx repository.DBTX, id uint64) (model.SupplyListing, error) {
	return f.Get(ctx, tx, id)
}

func (f *fakeSupplyListings) List(_ context.Context, fl repository.ListingFilter, p model.Page) ([]model.SupplyListing, int, error) {
	var all []model.SupplyListing
	for id := uint64(1); id <= f.next; id++ {
		l, ok := f.rows[id]
		if !ok || (fl.OwnerID != 0 && l.SupplierID != fl.OwnerID) || (fl.Status != "" && l.Status != fl.Status) {
			continue
		}
		all = append(all, *l)
	}
	rows, total := page(all, p)
	return rows, total, nil
}

func (f *fakeSupplyListings) Update(_ context.Context, _ repository.DBTX, l model.SupplyListing) error {
	f.rows[l.ID] = &l
	return nil
}

func (f *fakeSupplyListings) AdjustStock(_ context.Context, _ repository.DBTX, id uint64, delta float64) error {
	l, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	if l.QuantityAvailable+delta < 0 {
		return repository.ErrInsufficientStock
	}
	l.QuantityAvailable += delta
	return nil
}

func (f *fakeSupplyListings) Delete(_ context.Context, id uint64) error {
	delete(f.rows, id)
	return nil
}

type fakeSupplyOrders struct {
	rows map[uint64]*model.SupplyOrder
	next uint64
}

func newFakeSupplyOrders() *fakeSupplyOrders {
	return &fakeSupplyOrders{rows: map[uint64]*model.SupplyOrder{}}
}

func (f *fakeSupplyOrders) Create(_ context.Context, _ repository.DBTX, o *model.SupplyOrder) error {
	f.next++
	o.ID = f.next
	o.Status = model.OrderPending
	c := *o
	f.rows[o.ID] = &c
	return nil
}

func (f *fakeSupplyOrders) Get(_ context.Context, _ repository.DBTX, id uint64) (model.SupplyOrder, error) {
	o, ok := f.rows[id]
	if !ok {
		return model.SupplyOrder{}, repository.ErrNotFound
	}
	return *o, nil
}

func (f *fakeSupplyOrders) GetForUpdate(ctx context.Context, tx repository.DBTX, id uint64) (model.SupplyOrder, error) {
	return f.Get(ctx, tx, id)
}

func (f *fakeSupplyOrders) List(context.Context, repository.OrderFilter, model.Page) ([]model.SupplyOrder, int, error) {
	return nil, 0, nil
}

func (f *fakeSupplyOrders) UpdateStatus(_ context.Context, _ repository.DBTX, id uint64, st model.OrderStatus, reason *string) error {
	o, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.Status = st
	if reason != nil {
		o.RejectionReason = reason
	}
	return nil
}

type fakeInventory struct {
	err   error
	added map[string]float64
}

func (f *fakeInventory) AddStock(_ context.Context, _ repository.DBTX, ownerID uint64, name, unit string, qty float64) error {
	if f.err != nil {
		return f.err
	}
	if f.added == nil {
		f.added = map[string]float64{}
	}
	f.added[name+"/"+unit] += qty
	return nil
}

// ---- users ----

type fakeUsers struct {
	byID map[uint64]*model.User
	next uint64
}

func newFakeUsers(seed ...model.User) *fakeUsers {
	f := &fakeUsers{byID: map[uint64]*model.User{}}
	for _, u := range seed {
		u := u
		f.byID[u.ID] = &u
		if u.ID > f.next {
			f.next = u.ID
		}
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	for _, x := range f.byID {
		if x.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	f.next++
	u.ID = f.next
	c := *u
	f.byID[u.ID] = &c
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return *u, nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, u model.User) error {
	f.byID[u.ID] = &u
	return nil
}

type fakeToken struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

type fakeTokens struct{ rows map[string]*fakeToken }

func newFakeTokens() *fakeTokens { return &fakeTokens{rows: map[string]*fakeToken{}} }

func (f *fakeTokens) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	f.rows[hash] = &fakeToken{userID: userID, exp: exp}
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	t, ok := f.rows[hash]
	if !ok || t.revoked || time.Now().After(t.exp) {
		return 0, repository.ErrNotFound
	}
	return t.userID, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	t, ok := f.rows[hash]
	if !ok {
		return repository.ErrNotFound
	}
	t.revoked = true
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	for _, t := range f.rows {
		if t.userID == userID {
			t.revoked = true
		}
	}
	return nil
}

// ---- labor ----

type fakeProfiles struct {
	rows map[uint64]*model.WorkerProfile
	next uint64
}

func newFakeProfiles() *fakeProfiles { return &fakeProfiles{rows: map[uint64]*model.WorkerProfile{}} }

func (f *fakeProfiles) Upsert(_ context.Context, p *model.WorkerProfile) error {
	for _, x := range f.rows {
		if x.UserID == p.UserID {
			p.ID = x.ID
			p.RatingSum, p.RatingCount = x.RatingSum, x.RatingCount
			c := *p
			f.rows[p.ID] = &c
			return nil
		}
	}
	f.next++
	p.ID = f.next
	c := *p
	f.rows[p.ID] = &c
	return nil
}

func (f *fakeProfiles) GetByUserID(_ context.Context, userID uint64) (model.WorkerProfile, error) {
	for _, x := range f.rows {
		if x.UserID == userID {
			return *x, nil
		}
	}
	return model.WorkerProfile{}, repository.ErrNotFound
}

func (f *fakeProfiles) Get(_ context.Context, _ repository.DBTX, id uint64) (model.WorkerProfile, error) {
	p, ok := f.rows[id]
	if !ok {
		return model.WorkerProfile{}, repository.ErrNotFound
	}
	return *p, nil
}

func (f *fakeProfiles) ListAvailable(context.Context, string, model.Page) ([]model.WorkerProfile, int, error) {
	return nil, 0, nil
}

func (f *fakeProfiles) AddRating(_ context.Context, _ repository.DBTX, id uint64, rating int) error {
	p, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.RatingSum += rating
	p.RatingCount++
	return nil
}

type fakeHousehold struct {
	rows map[uint64]*model.HouseholdWorker
	next uint64
}

func newFakeHousehold() *fakeHousehold { return &fakeHousehold{rows: map[uint64]*model.HouseholdWorker{}} }

func (f *fakeHousehold) Create(_ context.Context, w *model.HouseholdWorker) error {
	f.next++
	w.ID = f.next
	c := *w
	f.rows[w.ID] = &c
	return nil
}

func (f *fakeHousehold) Get(_ context.Context, _ repository.DBTX, id uint64) (model.HouseholdWorker, error) {
	w, ok := f.rows[id]
	if !ok {
		return model.HouseholdWorker{}, repository.ErrNotFound
	}
	return *w, nil
}

func (f *fakeHousehold) ListByHousehold(_ context.Context, h uint64, p model.Page) ([]model.HouseholdWorker, int, error) {
	var all []model.HouseholdWorker
	for id := uint64(1); id <= f.next; id++ {
		if w, ok := f.rows[id]; ok && w.HouseholdID == h {
			all = append(all, *w)
		}
	}
	rows, total := page(all, p)
	return rows, total, nil
}

func (f *fakeHousehold) Update(_ context.Context, w model.HouseholdWorker) error {
	f.rows[w.ID] = &w
	return nil
}

func (f *fakeHousehold) Delete(_ context.Context, id uint64) error {
	delete(f.rows, id)
	return nil
}

type fakeRequests struct {
	rows map[uint64]*model.LaborRequest
	next uint64
}

func newFakeRequests() *fakeRequests { return &fakeRequests{rows: map[uint64]*model.LaborRequest{}} }

func (f *fakeRequests) Create(_ context.Context, lr *model.LaborRequest) error {
	f.next++
	lr.ID = f.next
	lr.Status = model.LaborOpen
	c := *lr
	f.rows[lr.ID] = &c
	return nil
}

func (f *fakeRequests) Get(_ context.Context, _ repository.DBTX, id uint64) (model.LaborRequest, error) {
	lr, ok := f.rows[id]
	if !ok {
		return model.LaborRequest{}, repository.ErrNotFound
	}
	return *lr, nil
}

func (f *fakeRequests) GetForUpdate(ctx context.Context, tx repository.DBTX, id uint64) (model.LaborRequest, error) {
	return f.Get(ctx, tx, id)
}

func (f *fakeRequests) List(_ context.Context, fl repository.LaborRequestFilter, p model.Page) ([]model.LaborRequest, int, error) {
	var all []model.LaborRequest
	for id := uint64(1); id <= f.next; id++ {
		lr, ok := f.rows[id]
		if !ok || (fl.Status != "" && lr.Status != fl.Status) ||
			(fl.RequesterID != 0 && lr.RequesterID != fl.RequesterID) ||
			(fl.ExcludeRequester != 0 && lr.RequesterID == fl.ExcludeRequester) {
			continue
		}
		all = append(all, *lr)
	}
	rows, total := page(all, p)
	return rows, total, nil
}

func (f *fakeRequests) UpdateStatus(_ context.Context, _ repository.DBTX, id uint64, from, to model.LaborRequestStatus) error {
	lr, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	if lr.Status != from {
		return repository.ErrInvalidTransition
	}
	lr.Status = to
	return nil
}

type fakeAssignments struct {
	rows map[uint64]*model.LaborAssignment
	next uint64
}

func newFakeAssignments() *fakeAssignments {
	return &fakeAssignments{rows: map[uint64]*model.LaborAssignment{}}
}

func (f *fakeAssignments) Create(_ context.Context, _ repository.DBTX, a *model.LaborAssignment) error {
	f.next++
	a.ID = f.next
	a.Status = model.AssignmentPending
	c := *a
	f.rows[a.ID] = &c
	return nil
}

func (f *fakeAssignments) Get(_ context.Context, _ repository.DBTX, id uint64) (model.LaborAssignment, error) {
	a, ok := f.rows[id]
	if !ok {
		return model.LaborAssignment{}, repository.ErrNotFound
	}
	return *a, nil
}

func (f *fakeAssignments) GetForUpdate(ctx context.Context, tx repository.DBTX, id uint64) (model.LaborAssignment, error) {
	return f.Get(ctx, tx, id)
}

func (f *fakeAssignments) filter(keep func(*model.LaborAssignment) bool) []model.LaborAssignment {
	var out []model.LaborAssignment
	for id := uint64(1); id <= f.next; id++ {
		if a, ok := f.rows[id]; ok && keep(a) {
			out = append(out, *a)
		}
	}
	return out
}

func (f *fakeAssignments) ListByRequest(_ context.Context, requestID uint64, p model.Page) ([]model.LaborAssignment, int, error) {
	rows, total := page(f.filter(func(a *model.LaborAssignment) bool { return a.RequestID == requestID }), p)
	return rows, total, nil
}

func (f *fakeAssignments) ListByOfferer(_ context.Context, offererID uint64, p model.Page) ([]model.LaborAssignment, int, error) {
	rows, total := page(f.filter(func(a *model.LaborAssignment) bool { return a.OffererID == offererID }), p)
	return rows, total, nil
}

func (f *fakeAssignments) UpdateStatus(_ context.Context, _ repository.DBTX, id uint64, from, to model.AssignmentStatus) error {
	a, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	if a.Status != from {
		return repository.ErrInvalidTransition
	}
	a.Status = to
	return nil
}

func (f *fakeAssignments) Complete(_ context.Context, _ repository.DBTX, id uint64, hours float64) error {
	a, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	if a.Status != model.AssignmentAccepted {
		return repository.ErrInvalidTransition
	}
	now := time.Now()
	a.Status, a.HoursWorked, a.CompletedAt = model.AssignmentCompleted, &hours, &now
	return nil
}

func (f *fakeAssignments) SetRating(_ context.Context, _ repository.DBTX, id uint64, rating int, feedback *string) error {
	a, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	if a.Rating != nil {
		return repository.ErrConflict
	}
	a.Rating, a.Feedback = &rating, feedback
	return nil
}

func (f *fakeAssignments) CountByStatus(_ context.Context, _ repository.DBTX, requestID uint64) (map[model.AssignmentStatus]int, error) {
	out := map[model.AssignmentStatus]int{}
	for _, a := range f.rows {
		if a.RequestID == requestID {
			out[a.Status]++
		}
	}
	return out, nil
}

func (f *fakeAssignments) ExistsActive(_ context.Context, _ repository.DBTX, requestID uint64, x model.LaborAssignment) (bool, error) {
	same := func(p, q *uint64) bool { return (p == nil && q == nil) || (p != nil && q != nil && *p == *q) }
	for _, a := range f.rows {
		if a.RequestID == requestID && (a.Status == model.AssignmentPending || a.Status == model.AssignmentAccepted) &&
			same(a.WorkerProfileID, x.WorkerProfileID) && same(a.HouseholdWorkerID, x.HouseholdWorkerID) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAssignments) CancelOpen(_ context.Context, _ repository.DBTX, requestID uint64) ([]model.LaborAssignment, error) {
	return f.cancel(requestID, model.AssignmentPending, model.AssignmentAccepted), nil
}

func (f *fakeAssignments) CancelPending(_ context.Context, _ repository.DBTX, requestID uint64) ([]model.LaborAssignment, error) {
	return f.cancel(requestID, model.AssignmentPending), nil
}

func (f *fakeAssignments) cancel(requestID uint64, statuses ...model.AssignmentStatus) []model.LaborAssignment {
	var out []model.LaborAssignment
	for _, a := range f.rows {
		if a.RequestID == requestID && slices.Contains(statuses, a.Status) {
			out = append(out, *a)
			a.Status = model.AssignmentCancelled
		}
	}
	return out
}

type fakeExchanges struct {
	pairs map[model.HouseholdPair]*model.LaborExchange
	txs   []model.LaborTransaction
	next  uint64
}

func newFakeExchanges() *fakeExchanges {
	return &fakeExchanges{pairs: map[model.HouseholdPair]*model.LaborExchange{}}
}

func (f *fakeExchanges) Credit(_ context.Context, _ repository.DBTX, t *model.LaborTransaction) error {
	if t.AssignmentID != nil {
		for _, x := range f.txs {
			if x.AssignmentID != nil && *x.AssignmentID == *t.AssignmentID {
				return repository.ErrConflict
			}
		}
	}
	pair, sign := model.NewHouseholdPair(t.CreditorID, t.DebtorID)
	e, ok := f.pairs[pair]
	if !ok {
		f.next++
		e = &model.LaborExchange{ID: f.next, HouseholdA: pair.A, HouseholdB: pair.B}
		f.pairs[pair] = e
	}
	e.BalanceMinutes += sign * t.Minutes
	t.ExchangeID = e.ID
	t.ID = uint64(len(f.txs) + 1)
	f.txs = append(f.txs, *t)
	return nil
}

func (f *fakeExchanges) ListForHousehold(_ context.Context, h uint64) ([]model.LaborExchange, error) {
	var out []model.LaborExchange
	for _, e := range f.pairs {
		if e.HouseholdA == h || e.HouseholdB == h {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeExchanges) GetPair(_ context.Context, x, y uint64) (model.LaborExchange, error) {
	pair, _ := model.NewHouseholdPair(x, y)
	e, ok := f.pairs[pair]
	if !ok {
		return model.LaborExchange{}, repository.ErrNotFound
	}
	return *e, nil
}

func (f *fakeExchanges) GetPairForUpdate(ctx context.Context, _ repository.DBTX, x, y uint64) (model.LaborExchange, error) {
	return f.GetPair(ctx, x, y)
}

func (f *fakeExchanges) ListTransactions(_ context.Context, exchangeID uint64, p model.Page) ([]model.LaborTransaction, int, error) {
	var all []model.LaborTransaction
	for _, t := range f.txs {
		if t.ExchangeID == exchangeID {
			all = append(all, t)
		}
	}
	rows, total := page(all, p)
	return rows, total, nil
}

type fakeFields map[uint64]model.Field

func (f fakeFields) GetByID(_ context.Context, id uint64) (model.Field, error) {
	x, ok := f[id]
	if !ok {
		return model.Field{}, repository.ErrNotFound
	}
	return x, nil
}

var errBoom = errors.New("boom")
