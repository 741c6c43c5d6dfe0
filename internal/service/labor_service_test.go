package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/farmhub/internal/model"
	"github.com/iliyamo/farmhub/internal/repository"
)

const (
	householdA = 1
	householdB = 2
	workerUser = 3
)

type laborFixture struct {
	labor     *LaborService
	exchange  *ExchangeService
	requests  *fakeRequests
	assign    *fakeAssignments
	exchanges *fakeExchanges
	profiles  *fakeProfiles
	notifier  *recordingNotifier
}

func newLaborFixture() *laborFixture {
	f := &laborFixture{
		requests:  newFakeRequests(),
		assign:    newFakeAssignments(),
		exchanges: newFakeExchanges(),
		profiles:  newFakeProfiles(),
		notifier:  &recordingNotifier{},
	}
	f.labor = NewLaborService(LaborDeps{
		Profiles:    f.profiles,
		Household:   newFakeHousehold(),
		Requests:    f.requests,
		Assignments: f.assign,
		Exchanges:   f.exchanges,
		Fields:      fakeFields{7: {ID: 7, OwnerID: householdA, Name: "North"}},
		Tx:          passTx{},
		Notifier:    f.notifier,
		Log:         nopLog,
	})
	users := newFakeUsers(
		model.User{ID: householdA, Role: model.RoleFarmer},
		model.User{ID: householdB, Role: model.RoleFarmer},
		model.User{ID: workerUser, Role: model.RoleWorker},
	)
	f.exchange = NewExchangeService(f.exchanges, users, passTx{}, f.notifier, nopLog)
	return f
}

func (f *laborFixture) exchangeRequest(t *testing.T, workers int) model.LaborRequest {
	t.Helper()
	lr, err := f.labor.CreateRequest(context.Background(), householdA, LaborRequestInput{
		Title: "Rice planting", ActivityType: "planting", WorkDate: "2026-11-02",
		HoursNeeded: 6, WorkersNeeded: workers, Compensation: model.CompensationExchange,
	})
	require.NoError(t, err)
	return lr
}

func (f *laborFixture) offerMember(t *testing.T, requestID uint64, name string) model.LaborAssignment {
	t.Helper()
	ctx := context.Background()
	w, err := f.labor.CreateHouseholdWorker(ctx, householdB, HouseholdWorkerInput{Name: &name, Skills: []string{" Planting ", "planting"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"planting"}, w.Skills)
	a, err := f.labor.Offer(ctx, householdB, model.RoleFarmer, requestID, OfferInput{HouseholdWorkerID: &w.ID})
	require.NoError(t, err)
	return a
}

func TestCreateRequestValidation(t *testing.T) {
	f := newLaborFixture()
	ctx := context.Background()

	_, err := f.labor.CreateRequest(ctx, householdA, LaborRequestInput{
		Title: "Weeding", WorkDate: "2026-11-02", HoursNeeded: 4, Compensation: model.CompensationPaid,
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors[0], "hourly_rate_cents")

	_, err = f.labor.CreateRequest(ctx, householdA, LaborRequestInput{
		Title: "", WorkDate: "tomorrow", HoursNeeded: 0, WorkersNeeded: -1, Compensation: "barter",
	})
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Errors, 5)

	field := uint64(7)
	lr, err := f.labor.CreateRequest(ctx, householdA, LaborRequestInput{
		FieldID: &field, Title: "Weeding", WorkDate: "2026-11-02", HoursNeeded: 4, Compensation: model.CompensationExchange,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, lr.WorkersNeeded)
	assert.Equal(t, "other", lr.ActivityType)
	assert.Nil(t, lr.HourlyRateCents)

	_, err = f.labor.CreateRequest(ctx, householdB, LaborRequestInput{
		FieldID: &field, Title: "Weeding", WorkDate: "2026-11-02", HoursNeeded: 4, Compensation: model.CompensationExchange,
	})
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestOfferRules(t *testing.T) {
	f := newLaborFixture()
	ctx := context.Background()
	lr := f.exchangeRequest(t, 2)

	_, err := f.labor.Offer(ctx, householdA, model.RoleFarmer, lr.ID, OfferInput{})
	assert.ErrorIs(t, err, repository.ErrForbidden, "own request")

	_, err = f.labor.Offer(ctx, workerUser, model.RoleWorker, lr.ID, OfferInput{})
	assert.ErrorIs(t, err, repository.ErrForbidden, "workers only apply to paid requests")

	a := f.offerMember(t, lr.ID, "Budi")
	_, err = f.labor.Offer(ctx, householdB, model.RoleFarmer, lr.ID, OfferInput{HouseholdWorkerID: a.HouseholdWorkerID})
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.Len(t, f.notifier.to(householdA), 1)
}

func TestPaidApplicationNeedsAvailableProfile(t *testing.T) {
	f := newLaborFixture()
	ctx := context.Background()
	rate := int64(1500)
	lr, err := f.labor.CreateRequest(ctx, householdA, LaborRequestInput{
		Title: "Harvest", ActivityType: "harvesting", WorkDate: "2026-11-02",
		HoursNeeded: 8, Compensation: model.CompensationPaid, HourlyRateCents: &rate,
	})
	require.NoError(t, err)

	_, err = f.labor.Offer(ctx, workerUser, model.RoleWorker, lr.ID, OfferInput{})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.labor.SaveProfile(ctx, workerUser, WorkerProfileInput{Skills: []string{"harvesting"}, HourlyRateCents: &rate})
	require.NoError(t, err)
	a, err := f.labor.Offer(ctx, workerUser, model.RoleWorker, lr.ID, OfferInput{})
	require.NoError(t, err)
	assert.NotNil(t, a.WorkerProfileID)
	assert.False(t, a.IsExchange())

	_, err = f.labor.Offer(ctx, householdB, model.RoleFarmer, lr.ID, OfferInput{})
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestExchangeLaborLifecycle(t *testing.T) {
	f := newLaborFixture()
	ctx := context.Background()
	lr := f.exchangeRequest(t, 1)
	a := f.offerMember(t, lr.ID, "Budi")

	_, err := f.labor.Accept(ctx, householdB, a.ID)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	got, err := f.labor.Accept(ctx, householdA, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentAccepted, got.Status)
	cur, _ := f.labor.GetRequest(ctx, lr.ID)
	assert.Equal(t, model.LaborFilled, cur.Status)

	_, err = f.labor.Complete(ctx, householdA, a.ID, CompleteInput{HoursWorked: 2.5})
	assert.ErrorIs(t, err, repository.ErrInvalidTransition, "request not started")
	var verr *ValidationError
	_, err = f.labor.Complete(ctx, householdA, a.ID, CompleteInput{HoursWorked: 0.004})
	assert.ErrorAs(t, err, &verr)

	cur, err = f.labor.StartRequest(ctx, householdA, lr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LaborInProgress, cur.Status)

	got, err = f.labor.Complete(ctx, householdA, a.ID, CompleteInput{HoursWorked: 2.5})
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentCompleted, got.Status)
	cur, _ = f.labor.GetRequest(ctx, lr.ID)
	assert.Equal(t, model.LaborCompleted, cur.Status)

	require.Len(t, f.exchanges.txs, 1)
	assert.Equal(t, int64(150), f.exchanges.txs[0].Minutes)
	assert.Equal(t, model.TxKindWork, f.exchanges.txs[0].Kind)

	ba, err := f.exchange.Balances(ctx, householdA)
	require.NoError(t, err)
	bb, err := f.exchange.Balances(ctx, householdB)
	require.NoError(t, err)
	require.Len(t, ba, 1)
	require.Len(t, bb, 1)
	assert.Equal(t, Balance{HouseholdID: householdB, Minutes: -150, Hours: -2.5}, ba[0])
	assert.Equal(t, Balance{HouseholdID: householdA, Minutes: 150, Hours: 2.5}, bb[0])

	rated, err := f.labor.RateAssignment(ctx, householdA, a.ID, RateInput{Rating: 5})
	require.NoError(t, err)
	require.NotNil(t, rated.Rating)
	_, err = f.labor.RateAssignment(ctx, householdA, a.ID, RateInput{Rating: 4})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestStartRequiresAcceptedWorker(t *testing.T) {
	f := newLaborFixture()
	ctx := context.Background()
	lr := f.exchangeRequest(t, 2)
	first := f.offerMember(t, lr.ID, "Budi")
	second := f.offerMember(t, lr.ID, "Sari")

	_, err := f.labor.StartRequest(ctx, householdA, lr.ID)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)

	_, err = f.labor.Accept(ctx, householdA, first.ID)
	require.NoError(t, err)
	_, err = f.labor.StartRequest(ctx, householdA, lr.ID)
	require.NoError(t, err)

	pending, _ := f.assign.Get(ctx, nil, second.ID)
	assert.Equal(t, model.AssignmentCancelled, pending.Status)
	kept, _ := f.assign.Get(ctx, nil, first.ID)
	assert.Equal(t, model.AssignmentAccepted, kept.Status)
}

func TestWithdrawAcceptedReopensRequest(t *testing.T) {
	f := newLaborFixture()
	ctx := context.Background()
	lr := f.exchangeRequest(t, 1)
	a := f.offerMember(t, lr.ID, "Budi")
	_, err := f.labor.Accept(ctx, householdA, a.ID)
	require.NoError(t, err)

	_, err = f.labor.Withdraw(ctx, householdA, a.ID)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	got, err := f.labor.Withdraw(ctx, householdB, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentCancelled, got.Status)
	cur, _ := f.labor.GetRequest(ctx, lr.ID)
	assert.Equal(t, model.LaborOpen, cur.Status)
}

func TestCancelRequestCancelsAssignments(t *testing.T) {
	f := newLaborFixture()
	ctx := context.Background()
	lr := f.exchangeRequest(t, 1)
	a := f.offerMember(t, lr.ID, "Budi")

	cur, err := f.labor.CancelRequest(ctx, householdA, lr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LaborCancelled, cur.Status)
	got, _ := f.assign.Get(ctx, nil, a.ID)
	assert.Equal(t, model.AssignmentCancelled, got.Status)

	_, err = f.labor.CancelRequest(ctx, householdA, lr.ID)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)
}

func TestBrowseRequestsExcludesOwn(t *testing.T) {
	f := newLaborFixture()
	f.exchangeRequest(t, 1)

	own, total, err := f.labor.BrowseRequests(context.Background(), householdA, "", model.NewPage(1, 20))
	require.NoError(t, err)
	assert.Empty(t, own)
	assert.Zero(t, total)

	other, total, err := f.labor.BrowseRequests(context.Background(), householdB, "", model.NewPage(1, 20))
	require.NoError(t, err)
	assert.Len(t, other, 1)
	assert.Equal(t, 1, total)
}
