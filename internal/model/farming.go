package model

import "time"

// Field is a plot of land owned by a farmer.
type Field struct {
	ID           uint64    `json:"id"`
	OwnerID      uint64    `json:"owner_id"`
	Name         string    `json:"name"`
	AreaHectares float64   `json:"area_hectares"`
	Location     *string   `json:"location,omitempty"`
	SoilType     *string   `json:"soil_type,omitempty"`
	CropType     *string   `json:"crop_type,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Activity types accepted on farm_activities.activity_type.
var ActivityTypes = map[string]bool{
	"planting":     true,
	"irrigation":   true,
	"fertilizing":  true,
	"pest_control": true,
	"harvesting":   true,
	"other":        true,
}

// ActivityStatus is the lifecycle of a farm activity.
type ActivityStatus string

const (
	ActivityPlanned    ActivityStatus = "planned"
	ActivityInProgress ActivityStatus = "in_progress"
	ActivityCompleted  ActivityStatus = "completed"
	ActivityCancelled  ActivityStatus = "cancelled"
)

// NextActivityStatus applies event ("start", "complete", "cancel") to
// the current status.  The boolean is false for disallowed moves.
func NextActivityStatus(from ActivityStatus, event string) (ActivityStatus, bool) {
	switch event {
	case "start":
		if from == ActivityPlanned {
			return ActivityInProgress, true
		}
	case "complete":
		if from == ActivityPlanned || from == ActivityInProgress {
			return ActivityCompleted, true
		}
	case "cancel":
		if from == ActivityPlanned || from == ActivityInProgress {
			return ActivityCancelled, true
		}
	}
	return from, false
}

// FarmActivity is a scheduled piece of field work.
type FarmActivity struct {
	ID            uint64         `json:"id"`
	OwnerID       uint64         `json:"owner_id"`
	FieldID       uint64         `json:"field_id"`
	ActivityType  string         `json:"activity_type"`
	Description   *string        `json:"description,omitempty"`
	Status        ActivityStatus `json:"status"`
	ScheduledDate time.Time      `json:"scheduled_date"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Quality grades accepted on harvests.quality_grade.
var QualityGrades = map[string]bool{"A": true, "B": true, "C": true}

// Harvest records produce taken from a field.
type Harvest struct {
	ID           uint64    `json:"id"`
	OwnerID      uint64    `json:"owner_id"`
	FieldID      uint64    `json:"field_id"`
	CropType     string    `json:"crop_type"`
	Quantity     float64   `json:"quantity"`
	Unit         string    `json:"unit"`
	QualityGrade string    `json:"quality_grade"`
	HarvestDate  time.Time `json:"harvest_date"`
	Notes        *string   `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FarmMaterial is an inventory line (seed, fertilizer, feed...) kept by
// a farmer.  MinQuantity is the restock threshold watched by the daily
// material check.
type FarmMaterial struct {
	ID          uint64    `json:"id"`
	OwnerID     uint64    `json:"owner_id"`
	Name        string    `json:"name"`
	Unit        string    `json:"unit"`
	Quantity    float64   `json:"quantity"`
	MinQuantity float64   `json:"min_quantity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LowStock reports whether the material is below its threshold.
func (m FarmMaterial) LowStock() bool { return m.Quantity < m.MinQuantity }
