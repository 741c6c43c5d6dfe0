package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/farmhub/internal/database"
	"github.com/iliyamo/farmhub/internal/metrics"
	"github.com/iliyamo/farmhub/internal/model"
	"github.com/iliyamo/farmhub/internal/repository"
)

// WorkerProfileStore persists WORKER profiles.
type WorkerProfileStore interface {
	Upsert(ctx context.Context, p *model.WorkerProfile) error
	GetByUserID(ctx context.Context, userID uint64) (model.WorkerProfile, error)
	Get(ctx context.Context, q repository.DBTX, id uint64) (model.WorkerProfile, error)
	ListAvailable(ctx context.Context, skill string, p model.Page) ([]model.WorkerProfile, int, error)
	AddRating(ctx context.Context, q repository.DBTX, id uint64, rating int) error
}

// HouseholdWorkerStore persists household members.
type HouseholdWorkerStore interface {
	Create(ctx context.Context, w *model.HouseholdWorker) error
	Get(ctx context.Context, q repository.DBTX, id uint64) (model.HouseholdWorker, error)
	ListByHousehold(ctx context.Context, householdID uint64, p model.Page) ([]model.HouseholdWorker, int, error)
	Update(ctx context.Context, w model.HouseholdWorker) error
	Delete(ctx context.Context, id uint64) error
}

// LaborRequestStore persists labor requests.
type LaborRequestStore interface {
	Create(ctx context.Context, lr *model.LaborRequest) error
	Get(ctx context.Context, q repository.DBTX, id uint64) (model.LaborRequest, error)
	GetForUpdate(ctx context.Context, tx repository.DBTX, id uint64) (model.LaborRequest, error)
	List(ctx context.Context, f repository.LaborRequestFilter, p model.Page) ([]model.LaborRequest, int, error)
	UpdateStatus(ctx context.Context, q repository.DBTX, id uint64, from, to model.LaborRequestStatus) error
}

// AssignmentStore persists labor assignments.
type AssignmentStore interface {
	Create(ctx context.Context, q repository.DBTX, a *model.LaborAssignment) error
	Get(ctx context.Context, q repository.DBTX, id uint64) (model.LaborAssignment, error)
	GetForUpdate(ctx context.Context, tx repository.DBTX, id uint64) (model.LaborAssignment, error)
	ListByRequest(ctx context.Context, requestID uint64, p model.Page) ([]model.LaborAssignment, int, error)
	ListByOfferer(ctx context.Context, offererID uint64, p model.Page) ([]model.LaborAssignment, int, error)
	UpdateStatus(ctx context.Context, q repository.DBTX, id uint64, from, to model.AssignmentStatus) error
	Complete(ctx context.Context, q repository.DBTX, id uint64, hours float64) error
	SetRating(ctx context.Context, q repository.DBTX, id uint64, rating int, feedback *string) error
	CountByStatus(ctx context.Context, q repository.DBTX, requestID uint64) (map[model.AssignmentStatus]int, error)
	ExistsActive(ctx context.Context, q repository.DBTX, requestID uint64, a model.LaborAssignment) (bool, error)
	CancelOpen(ctx context.Context, q repository.DBTX, requestID uint64) ([]model.LaborAssignment, error)
	CancelPending(ctx context.Context, q repository.DBTX, requestID uint64) ([]model.LaborAssignment, error)
}

// ExchangeStore persists household exchange balances and their ledger.
type ExchangeStore interface {
	Credit(ctx context.Context, q repository.DBTX, t *model.LaborTransaction) error
	ListForHousehold(ctx context.Context, h uint64) ([]model.LaborExchange, error)
	GetPair(ctx context.Context, x, y uint64) (model.LaborExchange, error)
	GetPairForUpdate(ctx context.Context, tx repository.DBTX, x, y uint64) (model.LaborExchange, error)
	ListTransactions(ctx context.Context, exchangeID uint64, p model.Page) ([]model.LaborTransaction, int, error)
}

// FieldLookup resolves a field for ownership checks.
type FieldLookup interface {
	GetByID(ctx context.Context, id uint64) (model.Field, error)
}

// LaborService implements the labor module: worker profiles, household
// workers, labor requests and assignments.  Completing an exchange
// assignment credits the offering household through the exchange ledger.
type LaborService struct {
	profiles   WorkerProfileStore
	household  HouseholdWorkerStore
	requests   LaborRequestStore
	assignments AssignmentStore
	exchanges  ExchangeStore
	fields     FieldLookup
	tx         database.TxRunner
	notifier   Notifier
	log        *zap.Logger
}

// LaborDeps groups LaborService collaborators.
type LaborDeps struct {
	Profiles    WorkerProfileStore
	Household   HouseholdWorkerStore
	Requests    LaborRequestStore
	Assignments AssignmentStore
	Exchanges   ExchangeStore
	Fields      FieldLookup
	Tx          database.TxRunner
	Notifier    Notifier
	Log         *zap.Logger
}

func NewLaborService(d LaborDeps) *LaborService {
	return &LaborService{
		profiles:   d.Profiles,
		household:  d.Household,
		requests:   d.Requests,
		assignments: d.Assignments,
		exchanges:  d.Exchanges,
		fields:     d.Fields,
		tx:         d.Tx,
		notifier:   d.Notifier,
		log:        d.Log,
	}
}

func cleanSkills(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// ---- worker profiles ----

// WorkerProfileInput is the body of PUT /labor/worker_profile.
type WorkerProfileInput struct {
	Skills          []string `json:"skills"`
	HourlyRateCents *int64   `json:"hourly_rate_cents"`
	Availability    *string  `json:"availability"`
	Location        *string  `json:"location"`
	Bio             *string  `json:"bio"`
}

// SaveProfile creates or replaces the caller's worker profile.
func (s *LaborService) SaveProfile(ctx context.Context, userID uint64, in WorkerProfileInput) (model.WorkerProfile, error) {
	p := model.WorkerProfile{
		UserID:       userID,
		Skills:       cleanSkills(in.Skills),
		Availability: model.WorkerAvailable,
		Location:     trimmed(in.Location),
		Bio:          trimmed(in.Bio),
	}
	v := &validator{}
	if in.HourlyRateCents != nil {
		v.check(*in.HourlyRateCents >= 0, "hourly_rate_cents must be 0 or more")
		p.HourlyRateCents = *in.HourlyRateCents
	}
	if in.Availability != nil {
		a := strings.ToLower(str(in.Availability))
		v.check(a == model.WorkerAvailable || a == model.WorkerUnavailable, "availability must be available or unavailable")
		p.Availability = a
	}
	if err := v.err(); err != nil {
		return model.WorkerProfile{}, err
	}
	if err := s.profiles.Upsert(ctx, &p); err != nil {
		return model.WorkerProfile{}, err
	}
	return p, nil
}

func (s *LaborService) GetProfile(ctx context.Context, userID uint64) (model.WorkerProfile, error) {
	return s.profiles.GetByUserID(ctx, userID)
}

func (s *LaborService) ListWorkers(ctx context.Context, skill string, p model.Page) ([]model.WorkerProfile, int, error) {
	return s.profiles.ListAvailable(ctx, strings.ToLower(strings.TrimSpace(skill)), p)
}

// ---- household workers ----

// HouseholdWorkerInput is used for create (Name required) and partial
// update.
type HouseholdWorkerInput struct {
	Name     *string  `json:"name"`
	Phone    *string  `json:"phone"`
	Skills   []string `json:"skills"`
	IsActive *bool    `json:"is_active"`
}

func (in HouseholdWorkerInput) apply(w *model.HouseholdWorker, creating bool) error {
	v := &validator{}
	if creating || in.Name != nil {
		v.check(str(in.Name) != "", "name is required")
		w.Name = str(in.Name)
	}
	if in.Phone != nil {
		w.Phone = trimmed(in.Phone)
	}
	if creating || in.Skills != nil {
		w.Skills = cleanSkills(in.Skills)
	}
	if in.IsActive != nil {
		w.IsActive = *in.IsActive
	} else if creating {
		w.IsActive = true
	}
	return v.err()
}

func (s *LaborService) CreateHouseholdWorker(ctx context.Context, householdID uint64, in HouseholdWorkerInput) (model.HouseholdWorker, error) {
	w := model.HouseholdWorker{HouseholdID: householdID}
	if err := in.apply(&w, true); err != nil {
		return model.HouseholdWorker{}, err
	}
	if err := s.household.Create(ctx, &w); err != nil {
		return model.HouseholdWorker{}, err
	}
	return w, nil
}

func (s *LaborService) ListHouseholdWorkers(ctx context.Context, householdID uint64, p model.Page) ([]model.HouseholdWorker, int, error) {
	return s.household.ListByHousehold(ctx, householdID, p)
}

func (s *LaborService) ownHouseholdWorker(ctx context.Context, householdID, id uint64) (model.HouseholdWorker, error) {
	w, err := s.household.Get(ctx, nil, id)
	if err != nil {
		return model.HouseholdWorker{}, err
	}
	if w.HouseholdID != householdID {
		return model.HouseholdWorker{}, repository.ErrForbidden
	}
	return w, nil
}

func (s *LaborService) UpdateHouseholdWorker(ctx context.Context, householdID, id uint64, in HouseholdWorkerInput) (model.HouseholdWorker, error) {
	w, err := s.ownHouseholdWorker(ctx, householdID, id)
	if err != nil {
		return model.HouseholdWorker{}, err
	}
	if err := in.apply(&w, false); err != nil {
		return model.HouseholdWorker{}, err
	}
	if err := s.household.Update(ctx, w); err != nil {
		return model.HouseholdWorker{}, err
	}
	return s.household.Get(ctx, nil, id)
}

func (s *LaborService) DeleteHouseholdWorker(ctx context.Context, householdID, id uint64) error {
	if _, err := s.ownHouseholdWorker(ctx, householdID, id); err != nil {
		return err
	}
	return s.household.Delete(ctx, id)
}

// ---- labor requests ----

// LaborRequestInput is the body of POST /labor/requests.
type LaborRequestInput struct {
	FieldID         *uint64 `json:"field_id"`
	Title           string  `json:"title"`
	Description     *string `json:"description"`
	ActivityType    string  `json:"activity_type"`
	WorkDate        string  `json:"work_date"`
	HoursNeeded     float64 `json:"hours_needed"`
	WorkersNeeded   int     `json:"workers_needed"`
	Compensation    string  `json:"compensation"`
	HourlyRateCents *int64  `json:"hourly_rate_cents"`
}

func (s *LaborService) CreateRequest(ctx context.Context, requesterID uint64, in LaborRequestInput) (model.LaborRequest, error) {
	lr := model.LaborRequest{
		RequesterID:   requesterID,
		Title:         strings.TrimSpace(in.Title),
		Description:   trimmed(in.Description),
		ActivityType:  strings.ToLower(strings.TrimSpace(in.ActivityType)),
		HoursNeeded:   in.HoursNeeded,
		WorkersNeeded: in.WorkersNeeded,
		Compensation:  strings.ToLower(strings.TrimSpace(in.Compensation)),
	}
	if lr.WorkersNeeded == 0 {
		lr.WorkersNeeded = 1
	}
	if lr.ActivityType == "" {
		lr.ActivityType = "other"
	}
	v := &validator{}
	v.check(lr.Title != "", "title is required")
	v.check(model.ActivityTypes[lr.ActivityType], "activity_type is not a known activity type")
	d, ok := parseDate(in.WorkDate)
	v.check(ok, "work_date must be a date (YYYY-MM-DD)")
	lr.WorkDate = d
	v.check(lr.HoursNeeded > 0, "hours_needed must be greater than 0")
	v.check(lr.WorkersNeeded >= 1, "workers_needed must be at least 1")
	switch lr.Compensation {
	case model.CompensationPaid:
		v.check(in.HourlyRateCents != nil && *in.HourlyRateCents > 0, "hourly_rate_cents must be greater than 0 for paid requests")
		lr.HourlyRateCents = in.HourlyRateCents
	case model.CompensationExchange:
		lr.HourlyRateCents = nil
	default:
		v.check(false, "compensation must be paid or exchange")
	}
	if err := v.err(); err != nil {
		return model.LaborRequest{}, err
	}
	if in.FieldID != nil && *in.FieldID > 0 {
		f, err := s.fields.GetByID(ctx, *in.FieldID)
		if err != nil {
			return model.LaborRequest{}, err
		}
		if f.OwnerID != requesterID {
			return model.LaborRequest{}, repository.ErrForbidden
		}
		lr.FieldID = &f.ID
	}
	if err := s.requests.Create(ctx, &lr); err != nil {
		return model.LaborRequest{}, err
	}
	return lr, nil
}

func (s *LaborService) GetRequest(ctx context.Context, id uint64) (model.LaborRequest, error) {
	return s.requests.Get(ctx, nil, id)
}

// BrowseRequests lists open requests from other users.
func (s *LaborService) BrowseRequests(ctx context.Context, userID uint64, compensation string, p model.Page) ([]model.LaborRequest, int, error) {
	return s.requests.List(ctx, repository.LaborRequestFilter{
		Status:           model.LaborOpen,
		Compensation:     strings.ToLower(strings.TrimSpace(compensation)),
		ExcludeRequester: userID,
	}, p)
}

func (s *LaborService) MyRequests(ctx context.Context, userID uint64, status model.LaborRequestStatus, p model.Page) ([]model.LaborRequest, int, error) {
	return s.requests.List(ctx, repository.LaborRequestFilter{RequesterID: userID, Status: status}, p)
}

// StartRequest moves a filled request, or an open one with at least one
// accepted worker, to in_progress.  Pending offers are cancelled.
func (s *LaborService) StartRequest(ctx context.Context, userID, id uint64) (model.LaborRequest, error) {
	var cancelled []model.LaborAssignment
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		lr, err := s.requests.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if lr.RequesterID != userID {
			return repository.ErrForbidden
		}
		switch lr.Status {
		case model.LaborFilled:
		case model.LaborOpen:
			counts, err := s.assignments.CountByStatus(ctx, tx, id)
			if err != nil {
				return err
			}
			if counts[model.AssignmentAccepted] == 0 {
				return repository.ErrInvalidTransition
			}
		default:
			return repository.ErrInvalidTransition
		}
		if err := s.requests.UpdateStatus(ctx, tx, id, lr.Status, model.LaborInProgress); err != nil {
			return err
		}
		cancelled, err = s.assignments.CancelPending(ctx, tx, id)
		return err
	})
	if err != nil {
		return model.LaborRequest{}, err
	}
	for _, a := range cancelled {
		notify(ctx, s.notifier, s.log, a.OffererID, model.NotifyLabor, "Offer closed",
			fmt.Sprintf("Labor request #%d started without your offer.", id), "labor_assignment", a.ID)
	}
	return s.requests.Get(ctx, nil, id)
}

// CancelRequest cancels an open or filled request together with its
// pending and accepted assignments.
func (s *LaborService) CancelRequest(ctx context.Context, userID, id uint64) (model.LaborRequest, error) {
	var cancelled []model.LaborAssignment
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		lr, err := s.requests.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if lr.RequesterID != userID {
			return repository.ErrForbidden
		}
		if lr.Status != model.LaborOpen && lr.Status != model.LaborFilled {
			return repository.ErrInvalidTransition
		}
		if err := s.requests.UpdateStatus(ctx, tx, id, lr.Status, model.LaborCancelled); err != nil {
			return err
		}
		cancelled, err = s.assignments.CancelOpen(ctx, tx, id)
		return err
	})
	if err != nil {
		return model.LaborRequest{}, err
	}
	for _, a := range cancelled {
		notify(ctx, s.notifier, s.log, a.OffererID, model.NotifyLabor, "Labor request cancelled",
			fmt.Sprintf("Labor request #%d was cancelled by the requester.", id), "labor_request", id)
	}
	return s.requests.Get(ctx, nil, id)
}

// ---- assignments ----

// OfferInput is the body of POST /labor/requests/:id/assignments.
// Workers applying to paid requests send nothing; households offering a
// member to an exchange request send household_worker_id.
type OfferInput struct {
	HouseholdWorkerID *uint64 `json:"household_worker_id"`
}

// Offer attaches the caller (a WORKER's profile, or a FARMER's household
// worker) to an open request.
func (s *LaborService) Offer(ctx context.Context, userID uint64, role string, requestID uint64, in OfferInput) (model.LaborAssignment, error) {
	a := model.LaborAssignment{RequestID: requestID, OffererID: userID}
	var requesterID uint64
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		lr, err := s.requests.GetForUpdate(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if lr.RequesterID == userID {
			return repository.ErrForbidden
		}
		if !lr.AcceptsOffers() {
			return repository.ErrInvalidTransition
		}
		requesterID = lr.RequesterID

		switch lr.Compensation {
		case model.CompensationPaid:
			if role != model.RoleWorker {
				return repository.ErrForbidden
			}
			p, err := s.profiles.GetByUserID(ctx, userID)
			if errors.Is(err, repository.ErrNotFound) {
				return &ValidationError{Errors: []string{"create a worker profile before applying"}}
			}
			if err != nil {
				return err
			}
			if p.Availability != model.WorkerAvailable {
				return &ValidationError{Errors: []string{"worker profile is marked unavailable"}}
			}
			a.WorkerProfileID = &p.ID
		case model.CompensationExchange:
			if role != model.RoleFarmer {
				return repository.ErrForbidden
			}
			if in.HouseholdWorkerID == nil || *in.HouseholdWorkerID == 0 {
				return &ValidationError{Errors: []string{"household_worker_id is required for exchange requests"}}
			}
			hw, err := s.household.Get(ctx, tx, *in.HouseholdWorkerID)
			if err != nil {
				return err
			}
			if hw.HouseholdID != userID {
				return repository.ErrForbidden
			}
			if !hw.IsActive {
				return &ValidationError{Errors: []string{"household worker is inactive"}}
			}
			a.HouseholdWorkerID = &hw.ID
		}

		dup, err := s.assignments.ExistsActive(ctx, tx, requestID, a)
		if err != nil {
			return err
		}
		if dup {
			return repository.ErrConflict
		}
		return s.assignments.Create(ctx, tx, &a)
	})
	if err != nil {
		return model.LaborAssignment{}, err
	}
	notify(ctx, s.notifier, s.log, requesterID, model.NotifyLabor, "New labor offer",
		fmt.Sprintf("You received an offer on labor request #%d.", requestID), "labor_assignment", a.ID)
	return a, nil
}

// RequestAssignments lists the assignments of a request to its requester.
func (s *LaborService) RequestAssignments(ctx context.Context, userID, requestID uint64, p model.Page) ([]model.LaborAssignment, int, error) {
	lr, err := s.requests.Get(ctx, nil, requestID)
	if err != nil {
		return nil, 0, err
	}
	if lr.RequesterID != userID {
		return nil, 0, repository.ErrForbidden
	}
	return s.assignments.ListByRequest(ctx, requestID, p)
}

func (s *LaborService) MyAssignments(ctx context.Context, userID uint64, p model.Page) ([]model.LaborAssignment, int, error) {
	return s.assignments.ListByOfferer(ctx, userID, p)
}

// lockAssignment locks the parent request then the assignment, in that
// order, so concurrent transitions on sibling assignments serialize.
func (s *LaborService) lockAssignment(ctx context.Context, tx repository.DBTX, id uint64) (model.LaborRequest, model.LaborAssignment, error) {
	a, err := s.assignments.Get(ctx, tx, id)
	if err != nil {
		return model.LaborRequest{}, model.LaborAssignment{}, err
	}
	lr, err := s.requests.GetForUpdate(ctx, tx, a.RequestID)
	if err != nil {
		return model.LaborRequest{}, model.LaborAssignment{}, err
	}
	a, err = s.assignments.GetForUpdate(ctx, tx, id)
	return lr, a, err
}

// Accept accepts a pending offer.  When the accepted count reaches
// workers_needed the request becomes filled.
func (s *LaborService) Accept(ctx context.Context, userID, id uint64) (model.LaborAssignment, error) {
	var a model.LaborAssignment
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		lr, cur, err := s.lockAssignment(ctx, tx, id)
		if err != nil {
			return err
		}
		a = cur
		if lr.RequesterID != userID {
			return repository.ErrForbidden
		}
		if lr.Status != model.LaborOpen {
			return repository.ErrInvalidTransition
		}
		to, ok := model.NextAssignmentStatus(a.Status, "accept")
		if !ok {
			return repository.ErrInvalidTransition
		}
		if err := s.assignments.UpdateStatus(ctx, tx, id, a.Status, to); err != nil {
			return err
		}
		counts, err := s.assignments.CountByStatus(ctx, tx, lr.ID)
		if err != nil {
			return err
		}
		if counts[model.AssignmentAccepted] >= lr.WorkersNeeded {
			return s.requests.UpdateStatus(ctx, tx, lr.ID, model.LaborOpen, model.LaborFilled)
		}
		return nil
	})
	if err != nil {
		return model.LaborAssignment{}, err
	}
	notify(ctx, s.notifier, s.log, a.OffererID, model.NotifyLabor, "Offer accepted",
		fmt.Sprintf("Your offer on labor request #%d was accepted.", a.RequestID), "labor_assignment", a.ID)
	return s.assignments.Get(ctx, nil, id)
}

// Decline declines a pending offer.
func (s *LaborService) Decline(ctx context.Context, userID, id uint64) (model.LaborAssignment, error) {
	var a model.LaborAssignment
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		lr, cur, err := s.lockAssignment(ctx, tx, id)
		if err != nil {
			return err
		}
		a = cur
		if lr.RequesterID != userID {
			return repository.ErrForbidden
		}
		to, ok := model.NextAssignmentStatus(a.Status, "decline")
		if !ok {
			return repository.ErrInvalidTransition
		}
		return s.assignments.UpdateStatus(ctx, tx, id, a.Status, to)
	})
	if err != nil {
		return model.LaborAssignment{}, err
	}
	notify(ctx, s.notifier, s.log, a.OffererID, model.NotifyLabor, "Offer declined",
		fmt.Sprintf("Your offer on labor request #%d was declined.", a.RequestID), "labor_assignment", a.ID)
	return s.assignments.Get(ctx, nil, id)
}

// Withdraw lets the offerer pull a pending or accepted offer before the
// work starts.  Withdrawing from a filled request reopens it.
func (s *LaborService) Withdraw(ctx context.Context, userID, id uint64) (model.LaborAssignment, error) {
	var (
		a  model.LaborAssignment
		lr model.LaborRequest
	)
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		if lr, a, err = s.lockAssignment(ctx, tx, id); err != nil {
			return err
		}
		if a.OffererID != userID {
			return repository.ErrForbidden
		}
		if lr.Status != model.LaborOpen && lr.Status != model.LaborFilled {
			return repository.ErrInvalidTransition
		}
		to, ok := model.NextAssignmentStatus(a.Status, "withdraw")
		if !ok {
			return repository.ErrInvalidTransition
		}
		if err := s.assignments.UpdateStatus(ctx, tx, id, a.Status, to); err != nil {
			return err
		}
		if a.Status == model.AssignmentAccepted && lr.Status == model.LaborFilled {
			return s.requests.UpdateStatus(ctx, tx, lr.ID, model.LaborFilled, model.LaborOpen)
		}
		return nil
	})
	if err != nil {
		return model.LaborAssignment{}, err
	}
	notify(ctx, s.notifier, s.log, lr.RequesterID, model.NotifyLabor, "Offer withdrawn",
		fmt.Sprintf("An offer on labor request #%d was withdrawn.", lr.ID), "labor_assignment", a.ID)
	return s.assignments.Get(ctx, nil, id)
}

// CompleteInput is the body of POST /labor/assignments/:id/complete.
type CompleteInput struct {
	HoursWorked float64 `json:"hours_worked"`
}

// Complete records the hours an accepted worker put in on a request that
// is in progress.  For exchange labor the offering household is credited
// hours_worked, owed by the requester, in the same transaction.  Once no
// accepted assignment is left the request is completed.
func (s *LaborService) Complete(ctx context.Context, userID, id uint64, in CompleteInput) (model.LaborAssignment, error) {
	minutes := model.HoursToMinutes(in.HoursWorked)
	if minutes <= 0 {
		return model.LaborAssignment{}, &ValidationError{Errors: []string{"hours_worked must be at least one minute"}}
	}
	var a model.LaborAssignment
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		lr, cur, err := s.lockAssignment(ctx, tx, id)
		if err != nil {
			return err
		}
		a = cur
		if lr.RequesterID != userID {
			return repository.ErrForbidden
		}
		if lr.Status != model.LaborInProgress {
			return repository.ErrInvalidTransition
		}
		if _, ok := model.NextAssignmentStatus(a.Status, "complete"); !ok {
			return repository.ErrInvalidTransition
		}
		if err := s.assignments.Complete(ctx, tx, id, in.HoursWorked); err != nil {
			return err
		}
		if a.IsExchange() {
			aid := a.ID
			note := fmt.Sprintf("labor request #%d", lr.ID)
			if err := s.exchanges.Credit(ctx, tx, &model.LaborTransaction{
				CreditorID:   a.OffererID,
				DebtorID:     lr.RequesterID,
				Minutes:      minutes,
				Kind:         model.TxKindWork,
				AssignmentID: &aid,
				Note:         &note,
			}); err != nil {
				return err
			}
		}
		counts, err := s.assignments.CountByStatus(ctx, tx, lr.ID)
		if err != nil {
			return err
		}
		if counts[model.AssignmentAccepted] == 0 {
			return s.requests.UpdateStatus(ctx, tx, lr.ID, model.LaborInProgress, model.LaborCompleted)
		}
		return nil
	})
	if err != nil {
		return model.LaborAssignment{}, err
	}
	msg := fmt.Sprintf("%.2f hours recorded on labor request #%d.", in.HoursWorked, a.RequestID)
	kind := model.NotifyLabor
	if a.IsExchange() {
		metrics.RecordExchangeMinutes(model.TxKindWork, minutes)
		kind = model.NotifyExchange
		msg += " They were credited to your exchange balance."
	}
	notify(ctx, s.notifier, s.log, a.OffererID, kind, "Work completed", msg, "labor_assignment", a.ID)
	return s.assignments.Get(ctx, nil, id)
}

// RateAssignment stores the requester's rating on a completed
// assignment.  Paid workers accumulate it on their profile.
func (s *LaborService) RateAssignment(ctx context.Context, userID, id uint64, in RateInput) (model.LaborAssignment, error) {
	if !model.ValidRating(in.Rating) {
		return model.LaborAssignment{}, &ValidationError{Errors: []string{"rating must be between 1 and 5"}}
	}
	var a model.LaborAssignment
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		lr, cur, err := s.lockAssignment(ctx, tx, id)
		if err != nil {
			return err
		}
		a = cur
		if lr.RequesterID != userID {
			return repository.ErrForbidden
		}
		if a.Status != model.AssignmentCompleted {
			return repository.ErrInvalidTransition
		}
		if a.Rating != nil {
			return repository.ErrConflict
		}
		if err := s.assignments.SetRating(ctx, tx, id, in.Rating, trimmed(in.Review)); err != nil {
			return err
		}
		if a.WorkerProfileID != nil {
			return s.profiles.AddRating(ctx, tx, *a.WorkerProfileID, in.Rating)
		}
		return nil
	})
	if err != nil {
		return model.LaborAssignment{}, err
	}
	notify(ctx, s.notifier, s.log, a.OffererID, model.NotifyLabor, "New rating",
		fmt.Sprintf("Your work on labor request #%d was rated %d/5.", a.RequestID, in.Rating), "labor_assignment", a.ID)
	return s.assignments.Get(ctx, nil, id)
}
