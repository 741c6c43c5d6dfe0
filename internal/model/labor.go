package model

import "time"

// Compensation types for labor requests.
const (
	CompensationPaid     = "paid"
	CompensationExchange = "exchange"
)

// Worker availability values.
const (
	WorkerAvailable   = "available"
	WorkerUnavailable = "unavailable"
)

// WorkerProfile is the public profile of a hired-labor WORKER account.
type WorkerProfile struct {
	ID              uint64    `json:"id"`
	UserID          uint64    `json:"user_id"`
	Skills          []string  `json:"skills"`
	HourlyRateCents int64     `json:"hourly_rate_cents"`
	Availability    string    `json:"availability"`
	Location        *string   `json:"location,omitempty"`
	Bio             *string   `json:"bio,omitempty"`
	RatingSum       int       `json:"-"`
	RatingCount     int       `json:"rating_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AverageRating is rating_sum / rating_count, or 0 without ratings.
func (p WorkerProfile) AverageRating() float64 {
	if p.RatingCount == 0 {
		return 0
	}
	return float64(p.RatingSum) / float64(p.RatingCount)
}

// HouseholdWorker is a member of a farming household who can be offered
// to other households under the work-exchange scheme.
type HouseholdWorker struct {
	ID          uint64    `json:"id"`
	HouseholdID uint64    `json:"household_id"`
	Name        string    `json:"name"`
	Phone       *string   `json:"phone,omitempty"`
	Skills      []string  `json:"skills"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LaborRequestStatus is the lifecycle of a labor request.
type LaborRequestStatus string

const (
	LaborOpen       LaborRequestStatus = "open"
	LaborFilled     LaborRequestStatus = "filled"
	LaborInProgress LaborRequestStatus = "in_progress"
	LaborCompleted  LaborRequestStatus = "completed"
	LaborCancelled  LaborRequestStatus = "cancelled"
)

// LaborRequest is a farmer's call for workers on a given day.
type LaborRequest struct {
	ID              uint64             `json:"id"`
	RequesterID     uint64             `json:"requester_id"`
	FieldID         *uint64            `json:"field_id,omitempty"`
	Title           string             `json:"title"`
	Description     *string            `json:"description,omitempty"`
	ActivityType    string             `json:"activity_type"`
	WorkDate        time.Time          `json:"work_date"`
	HoursNeeded     float64            `json:"hours_needed"`
	WorkersNeeded   int                `json:"workers_needed"`
	Compensation    string             `json:"compensation"`
	HourlyRateCents *int64             `json:"hourly_rate_cents,omitempty"`
	Status          LaborRequestStatus `json:"status"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// AcceptsOffers reports whether new assignments may be attached.
func (r LaborRequest) AcceptsOffers() bool { return r.Status == LaborOpen }

// AssignmentStatus is the lifecycle of a labor assignment.
type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "pending"
	AssignmentAccepted  AssignmentStatus = "accepted"
	AssignmentDeclined  AssignmentStatus = "declined"
	AssignmentCancelled AssignmentStatus = "cancelled"
	AssignmentCompleted AssignmentStatus = "completed"
)

// NextAssignmentStatus applies event ("accept", "decline", "withdraw",
// "complete") to the current status.
func NextAssignmentStatus(from AssignmentStatus, event string) (AssignmentStatus, bool) {
	switch event {
	case "accept":
		if from == AssignmentPending {
			return AssignmentAccepted, true
		}
	case "decline":
		if from == AssignmentPending {
			return AssignmentDeclined, true
		}
	case "withdraw":
		if from == AssignmentPending || from == AssignmentAccepted {
			return AssignmentCancelled, true
		}
	case "complete":
		if from == AssignmentAccepted {
			return AssignmentCompleted, true
		}
	}
	return from, false
}

// LaborAssignment attaches one worker to a labor request.  Exactly one
// of WorkerProfileID (paid labor) or HouseholdWorkerID (exchange labor)
// is set.  OffererID is the WORKER user or the offering household.
type LaborAssignment struct {
	ID                uint64           `json:"id"`
	RequestID         uint64           `json:"request_id"`
	OffererID         uint64           `json:"offerer_id"`
	WorkerProfileID   *uint64          `json:"worker_profile_id,omitempty"`
	HouseholdWorkerID *uint64          `json:"household_worker_id,omitempty"`
	Status            AssignmentStatus `json:"status"`
	HoursWorked       *float64         `json:"hours_worked,omitempty"`
	Rating            *int             `json:"rating,omitempty"`
	Feedback          *string          `json:"feedback,omitempty"`
	CompletedAt       *time.Time       `json:"completed_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// IsExchange reports whether the assignment is household exchange labor.
func (a LaborAssignment) IsExchange() bool { return a.HouseholdWorkerID != nil }
