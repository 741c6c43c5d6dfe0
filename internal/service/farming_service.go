package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/farmhub/internal/database"
	"github.com/iliyamo/farmhub/internal/model"
	"github.com/iliyamo/farmhub/internal/repository"
)

// FieldStore persists fields.
type FieldStore interface {
	Create(ctx context.Context, f *model.Field) error
	GetByID(ctx context.Context, id uint64) (model.Field, error)
	ListByOwner(ctx context.Context, ownerID uint64, p model.Page) ([]model.Field, int, error)
	NamesByOwner(ctx context.Context, ownerID uint64) (map[uint64]string, error)
	Update(ctx context.Context, f model.Field) error
	Delete(ctx context.Context, id uint64) error
}

// ActivityStore persists farm activities.
type ActivityStore interface {
	Create(ctx context.Context, a *model.FarmActivity) error
	GetByID(ctx context.Context, id uint64) (model.FarmActivity, error)
	List(ctx context.Context, ownerID uint64, f repository.ActivityFilter, p model.Page) ([]model.FarmActivity, int, error)
	Update(ctx context.Context, a model.FarmActivity) error
	UpdateStatus(ctx context.Context, id uint64, from, to model.ActivityStatus, completedAt *time.Time) error
	Delete(ctx context.Context, id uint64) error
}

// HarvestStore persists harvests.
type HarvestStore interface {
	Create(ctx context.Context, h *model.Harvest) error
	GetByID(ctx context.Context, id uint64) (model.Harvest, error)
	List(ctx context.Context, ownerID uint64, f repository.HarvestFilter, p model.Page) ([]model.Harvest, int, error)
	ListAll(ctx context.Context, ownerID uint64, f repository.HarvestFilter) ([]model.Harvest, error)
	Update(ctx context.Context, h model.Harvest) error
	Delete(ctx context.Context, id uint64) error
}

// MaterialStore persists farm inventory.
type MaterialStore interface {
	Create(ctx context.Context, m *model.FarmMaterial) error
	Get(ctx context.Context, q repository.DBTX, id uint64) (model.FarmMaterial, error)
	GetForUpdate(ctx context.Context, tx repository.DBTX, id uint64) (model.FarmMaterial, error)
	ListByOwner(ctx context.Context, ownerID uint64, lowOnly bool, p model.Page) ([]model.FarmMaterial, int, error)
	ListLowStock(ctx context.Context) ([]model.FarmMaterial, error)
	Update(ctx context.Context, m model.FarmMaterial) error
	SetQuantity(ctx context.Context, q repository.DBTX, id uint64, qty float64) error
	AddStock(ctx context.Context, q repository.DBTX, ownerID uint64, name, unit string, qty float64) error
	Delete(ctx context.Context, id uint64) error
}

// FarmingService implements the farming module: fields, activities,
// harvests and material inventory.
type FarmingService struct {
	fields     FieldStore
	activities ActivityStore
	harvests   HarvestStore
	materials  MaterialStore
	tx         database.TxRunner
	log        *zap.Logger
}

func NewFarmingService(fields FieldStore, activities ActivityStore, harvests HarvestStore, materials MaterialStore,
	tx database.TxRunner, log *zap.Logger) *FarmingService {
	return &FarmingService{fields: fields, activities: activities, harvests: harvests, materials: materials, tx: tx, log: log}
}

// ---- fields ----

// FieldInput is used for create (Name and AreaHectares required) and
// partial update.
type FieldInput struct {
	Name         *string  `json:"name"`
	AreaHectares *float64 `json:"area_hectares"`
	Location     *string  `json:"location"`
	SoilType     *string  `json:"soil_type"`
	CropType     *string  `json:"crop_type"`
}

func (in FieldInput) apply(f *model.Field, creating bool) error {
	v := &validator{}
	if creating || in.Name != nil {
		v.check(str(in.Name) != "", "name is required")
		f.Name = str(in.Name)
	}
	if creating || in.AreaHectares != nil {
		v.check(in.AreaHectares != nil && *in.AreaHectares > 0, "area_hectares must be greater than 0")
		if in.AreaHectares != nil {
			f.AreaHectares = *in.AreaHectares
		}
	}
	if in.Location != nil {
		f.Location = trimmed(in.Location)
	}
	if in.SoilType != nil {
		f.SoilType = trimmed(in.SoilType)
	}
	if in.CropType != nil {
		f.CropType = trimmed(in.CropType)
	}
	return v.err()
}

func (s *FarmingService) CreateField(ctx context.Context, ownerID uint64, in FieldInput) (model.Field, error) {
	f := model.Field{OwnerID: ownerID}
	if err := in.apply(&f, true); err != nil {
		return model.Field{}, err
	}
	if err := s.fields.Create(ctx, &f); err != nil {
		return model.Field{}, err
	}
	return f, nil
}

// ownField loads a field and checks it belongs to ownerID.
func (s *FarmingService) ownField(ctx context.Context, ownerID, id uint64) (model.Field, error) {
	f, err := s.fields.GetByID(ctx, id)
	if err != nil {
		return model.Field{}, err
	}
	if f.OwnerID != ownerID {
		return model.Field{}, repository.ErrForbidden
	}
	return f, nil
}

func (s *FarmingService) GetField(ctx context.Context, ownerID, id uint64) (model.Field, error) {
	return s.ownField(ctx, ownerID, id)
}

func (s *FarmingService) ListFields(ctx context.Context, ownerID uint64, p model.Page) ([]model.Field, int, error) {
	return s.fields.ListByOwner(ctx, ownerID, p)
}

func (s *FarmingService) UpdateField(ctx context.Context, ownerID, id uint64, in FieldInput) (model.Field, error) {
	f, err := s.ownField(ctx, ownerID, id)
	if err != nil {
		return model.Field{}, err
	}
	if err := in.apply(&f, false); err != nil {
		return model.Field{}, err
	}
	if err := s.fields.Update(ctx, f); err != nil {
		return model.Field{}, err
	}
	return s.fields.GetByID(ctx, id)
}

func (s *FarmingService) DeleteField(ctx context.Context, ownerID, id uint64) error {
	if _, err := s.ownField(ctx, ownerID, id); err != nil {
		return err
	}
	return s.fields.Delete(ctx, id)
}

// ---- activities ----

// ActivityInput is used for create (FieldID, ActivityType and
// ScheduledDate required) and partial update.
type ActivityInput struct {
	FieldID       *uint64 `json:"field_id"`
	ActivityType  *string `json:"activity_type"`
	Description   *string `json:"description"`
	ScheduledDate *string `json:"scheduled_date"`
}

func (s *FarmingService) applyActivity(ctx context.Context, ownerID uint64, in ActivityInput, a *model.FarmActivity, creating bool) error {
	v := &validator{}
	if creating || in.FieldID != nil {
		v.check(in.FieldID != nil && *in.FieldID > 0, "field_id is required")
		if in.FieldID != nil && *in.FieldID > 0 {
			if _, err := s.ownField(ctx, ownerID, *in.FieldID); err != nil {
				return err
			}
			a.FieldID = *in.FieldID
		}
	}
	if creating || in.ActivityType != nil {
		t := strings.ToLower(str(in.ActivityType))
		v.check(model.ActivityTypes[t], "activity_type must be one of planting, irrigation, fertilizing, pest_control, harvesting, other")
		a.ActivityType = t
	}
	if creating || in.ScheduledDate != nil {
		d, ok := parseDate(str(in.ScheduledDate))
		v.check(ok, "scheduled_date must be a date (YYYY-MM-DD)")
		a.ScheduledDate = d
	}
	if in.Description != nil {
		a.Description = trimmed(in.Description)
	}
	return v.err()
}

func (s *FarmingService) CreateActivity(ctx context.Context, ownerID uint64, in ActivityInput) (model.FarmActivity, error) {
	a := model.FarmActivity{OwnerID: ownerID}
	if err := s.applyActivity(ctx, ownerID, in, &a, true); err != nil {
		return model.FarmActivity{}, err
	}
	if err := s.activities.Create(ctx, &a); err != nil {
		return model.FarmActivity{}, err
	}
	return a, nil
}

func (s *FarmingService) ownActivity(ctx context.Context, ownerID, id uint64) (model.FarmActivity, error) {
	a, err := s.activities.GetByID(ctx, id)
	if err != nil {
		return model.FarmActivity{}, err
	}
	if a.OwnerID != ownerID {
		return model.FarmActivity{}, repository.ErrForbidden
	}
	return a, nil
}

func (s *FarmingService) GetActivity(ctx context.Context, ownerID, id uint64) (model.FarmActivity, error) {
	return s.ownActivity(ctx, ownerID, id)
}

func (s *FarmingService) ListActivities(ctx context.Context, ownerID uint64, f repository.ActivityFilter, p model.Page) ([]model.FarmActivity, int, error) {
	return s.activities.List(ctx, ownerID, f, p)
}

// UpdateActivity edits a planned or in-progress activity; finished
// activities are read-only.
func (s *FarmingService) UpdateActivity(ctx context.Context, ownerID, id uint64, in ActivityInput) (model.FarmActivity, error) {
	a, err := s.ownActivity(ctx, ownerID, id)
	if err != nil {
		return model.FarmActivity{}, err
	}
	if a.Status == model.ActivityCompleted || a.Status == model.ActivityCancelled {
		return model.FarmActivity{}, repository.ErrInvalidTransition
	}
	if err := s.applyActivity(ctx, ownerID, in, &a, false); err != nil {
		return model.FarmActivity{}, err
	}
	if err := s.activities.Update(ctx, a); err != nil {
		return model.FarmActivity{}, err
	}
	return s.activities.GetByID(ctx, id)
}

// TransitionActivity applies "start", "complete" or "cancel".
func (s *FarmingService) TransitionActivity(ctx context.Context, ownerID, id uint64, event string) (model.FarmActivity, error) {
	a, err := s.ownActivity(ctx, ownerID, id)
	if err != nil {
		return model.FarmActivity{}, err
	}
	to, ok := model.NextActivityStatus(a.Status, event)
	if !ok {
		return model.FarmActivity{}, repository.ErrInvalidTransition
	}
	var completedAt *time.Time
	if to == model.ActivityCompleted {
		now := time.Now().UTC()
		completedAt = &now
	}
	if err := s.activities.UpdateStatus(ctx, id, a.Status, to, completedAt); err != nil {
		return model.FarmActivity{}, err
	}
	return s.activities.GetByID(ctx, id)
}

func (s *FarmingService) DeleteActivity(ctx context.Context, ownerID, id uint64) error {
	if _, err := s.ownActivity(ctx, ownerID, id); err != nil {
		return err
	}
	return s.activities.Delete(ctx, id)
}

// ---- harvests ----

// HarvestInput is used for create (everything but Notes required) and
// partial update.
type HarvestInput struct {
	FieldID      *uint64  `json:"field_id"`
	CropType     *string  `json:"crop_type"`
	Quantity     *float64 `json:"quantity"`
	Unit         *string  `json:"unit"`
	QualityGrade *string  `json:"quality_grade"`
	HarvestDate  *string  `json:"harvest_date"`
	Notes        *string  `json:"notes"`
}

func (s *FarmingService) applyHarvest(ctx context.Context, ownerID uint64, in HarvestInput, h *model.Harvest, creating bool) error {
	v := &validator{}
	if creating || in.FieldID != nil {
		v.check(in.FieldID != nil && *in.FieldID > 0, "field_id is required")
		if in.FieldID != nil && *in.FieldID > 0 {
			if _, err := s.ownField(ctx, ownerID, *in.FieldID); err != nil {
				return err
			}
			h.FieldID = *in.FieldID
		}
	}
	if creating || in.CropType != nil {
		v.check(str(in.CropType) != "", "crop_type is required")
		h.CropType = str(in.CropType)
	}
	if creating || in.Quantity != nil {
		v.check(in.Quantity != nil && *in.Quantity >= 0, "quantity must be 0 or more")
		if in.Quantity != nil {
			h.Quantity = *in.Quantity
		}
	}
	if creating || in.Unit != nil {
		v.check(str(in.Unit) != "", "unit is required")
		h.Unit = str(in.Unit)
	}
	if creating || in.QualityGrade != nil {
		g := strings.ToUpper(str(in.QualityGrade))
		if creating && g == "" {
			g = "B"
		}
		v.check(model.QualityGrades[g], "quality_grade must be one of A, B, C")
		h.QualityGrade = g
	}
	if creating || in.HarvestDate != nil {
		d, ok := parseDate(str(in.HarvestDate))
		v.check(ok, "harvest_date must be a date (YYYY-MM-DD)")
		h.HarvestDate = d
	}
	if in.Notes != nil {
		h.Notes = trimmed(in.Notes)
	}
	return v.err()
}

func (s *FarmingService) CreateHarvest(ctx context.Context, ownerID uint64, in HarvestInput) (model.Harvest, error) {
	h := model.Harvest{OwnerID: ownerID}
	if err := s.applyHarvest(ctx, ownerID, in, &h, true); err != nil {
		return model.Harvest{}, err
	}
	if err := s.harvests.Create(ctx, &h); err != nil {
		return model.Harvest{}, err
	}
	return h, nil
}

func (s *FarmingService) ownHarvest(ctx context.Context, ownerID, id uint64) (model.Harvest, error) {
	h, err := s.harvests.GetByID(ctx, id)
	if err != nil {
		return model.Harvest{}, err
	}
	if h.OwnerID != ownerID {
		return model.Harvest{}, repository.ErrForbidden
	}
	return h, nil
}

func (s *FarmingService) GetHarvest(ctx context.Context, ownerID, id uint64) (model.Harvest, error) {
	return s.ownHarvest(ctx, ownerID, id)
}

func (s *FarmingService) ListHarvests(ctx context.Context, ownerID uint64, f repository.HarvestFilter, p model.Page) ([]model.Harvest, int, error) {
	return s.harvests.List(ctx, ownerID, f, p)
}

func (s *FarmingService) UpdateHarvest(ctx context.Context, ownerID, id uint64, in HarvestInput) (model.Harvest, error) {
	h, err := s.ownHarvest(ctx, ownerID, id)
	if err != nil {
		return model.Harvest{}, err
	}
	if err := s.applyHarvest(ctx, ownerID, in, &h, false); err != nil {
		return model.Harvest{}, err
	}
	if err := s.harvests.Update(ctx, h); err != nil {
		return model.Harvest{}, err
	}
	return s.harvests.GetByID(ctx, id)
}

func (s *FarmingService) DeleteHarvest(ctx context.Context, ownerID, id uint64) error {
	if _, err := s.ownHarvest(ctx, ownerID, id); err != nil {
		return err
	}
	return s.harvests.Delete(ctx, id)
}

// HarvestExport is the data behind a harvest spreadsheet.
type HarvestExport struct {
	Harvests   []model.Harvest
	FieldNames map[uint64]string
}

// ExportHarvests returns every harvest of the owner matching f together
// with the owner's field names.
func (s *FarmingService) ExportHarvests(ctx context.Context, ownerID uint64, f repository.HarvestFilter) (HarvestExport, error) {
	hs, err := s.harvests.ListAll(ctx, ownerID, f)
	if err != nil {
		return HarvestExport{}, err
	}
	names, err := s.fields.NamesByOwner(ctx, ownerID)
	if err != nil {
		return HarvestExport{}, err
	}
	return HarvestExport{Harvests: hs, FieldNames: names}, nil
}

// ---- materials ----

// MaterialInput is used for create (Name and Unit required) and partial
// update.
type MaterialInput struct {
	Name        *string  `json:"name"`
	Unit        *string  `json:"unit"`
	Quantity    *float64 `json:"quantity"`
	MinQuantity *float64 `json:"min_quantity"`
}

func (in MaterialInput) apply(m *model.FarmMaterial, creating bool) error {
	v := &validator{}
	if creating || in.Name != nil {
		v.check(str(in.Name) != "", "name is required")
		m.Name = str(in.Name)
	}
	if creating || in.Unit != nil {
		v.check(str(in.Unit) != "", "unit is required")
		m.Unit = str(in.Unit)
	}
	if in.Quantity != nil {
		v.check(*in.Quantity >= 0, "quantity must be 0 or more")
		m.Quantity = *in.Quantity
	}
	if in.MinQuantity != nil {
		v.check(*in.MinQuantity >= 0, "min_quantity must be 0 or more")
		m.MinQuantity = *in.MinQuantity
	}
	return v.err()
}

func (s *FarmingService) CreateMaterial(ctx context.Context, ownerID uint64, in MaterialInput) (model.FarmMaterial, error) {
	m := model.FarmMaterial{OwnerID: ownerID}
	if err := in.apply(&m, true); err != nil {
		return model.FarmMaterial{}, err
	}
	if err := s.materials.Create(ctx, &m); err != nil {
		return model.FarmMaterial{}, err
	}
	return m, nil
}

func (s *FarmingService) ListMaterials(ctx context.Context, ownerID uint64, lowOnly bool, p model.Page) ([]model.FarmMaterial, int, error) {
	return s.materials.ListByOwner(ctx, ownerID, lowOnly, p)
}

func (s *FarmingService) ownMaterial(ctx context.Context, q repository.DBTX, ownerID, id uint64, lock bool) (model.FarmMaterial, error) {
	var (
		m   model.FarmMaterial
		err error
	)
	if lock {
		m, err = s.materials.GetForUpdate(ctx, q, id)
	} else {
		m, err = s.materials.Get(ctx, q, id)
	}
	if err != nil {
		return model.FarmMaterial{}, err
	}
	if m.OwnerID != ownerID {
		return model.FarmMaterial{}, repository.ErrForbidden
	}
	return m, nil
}

func (s *FarmingService) UpdateMaterial(ctx context.Context, ownerID, id uint64, in MaterialInput) (model.FarmMaterial, error) {
	m, err := s.ownMaterial(ctx, nil, ownerID, id, false)
	if err != nil {
		return model.FarmMaterial{}, err
	}
	if err := in.apply(&m, false); err != nil {
		return model.FarmMaterial{}, err
	}
	if err := s.materials.Update(ctx, m); err != nil {
		return model.FarmMaterial{}, err
	}
	return s.materials.Get(ctx, nil, id)
}

// AdjustMaterial adds delta (negative to consume) to the stock.  The
// result may not go below zero.
func (s *FarmingService) AdjustMaterial(ctx context.Context, ownerID, id uint64, delta float64) (model.FarmMaterial, error) {
	if delta == 0 {
		return model.FarmMaterial{}, &ValidationError{Errors: []string{"delta must not be 0"}}
	}
	var out model.FarmMaterial
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		m, err := s.ownMaterial(ctx, tx, ownerID, id, true)
		if err != nil {
			return err
		}
		next := m.Quantity + delta
		if next < 0 {
			return repository.ErrInsufficientStock
		}
		if err := s.materials.SetQuantity(ctx, tx, id, next); err != nil {
			return err
		}
		m.Quantity = next
		out = m
		return nil
	})
	if err != nil {
		return model.FarmMaterial{}, err
	}
	if out.LowStock() {
		s.log.Info("material below threshold",
			zap.Uint64("material_id", out.ID), zap.Float64("quantity", out.Quantity), zap.Float64("min", out.MinQuantity))
	}
	return out, nil
}

func (s *FarmingService) DeleteMaterial(ctx context.Context, ownerID, id uint64) error {
	if _, err := s.ownMaterial(ctx, nil, ownerID, id, false); err != nil {
		return err
	}
	return s.materials.Delete(ctx, id)
}
