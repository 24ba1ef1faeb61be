package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"transitadmin/internal/activity"
	"transitadmin/internal/errs"
	"transitadmin/internal/ids"
	"transitadmin/internal/models"
	"transitadmin/internal/repository"
)

// VehicleTypeService is the catalog of vehicle definitions. Deleting a type
// leaves accounts that reference it untouched.
type VehicleTypeService struct {
	types    *repository.VehicleTypeRepository
	activity activity.Log
	log      zerolog.Logger
	now      func() time.Time
}

func NewVehicleTypeService(types *repository.VehicleTypeRepository, activityLog activity.Log, log zerolog.Logger) *VehicleTypeService {
	if activityLog == nil {
		activityLog = activity.Nop{}
	}
	return &VehicleTypeService{types: types, activity: activityLog, log: log, now: time.Now}
}

type VehicleTypeInput struct {
	Name               string               `json:"name"`
	Description        string               `json:"description"`
	Capacity           int                  `json:"capacity"`
	SeatingArrangement string               `json:"seatingArrangement"`
	Status             models.VehicleStatus `json:"status"`
	IsActive           *bool                `json:"isActive"`
}

// VehicleTypePatch carries only the fields being changed.
type VehicleTypePatch struct {
	Name               *string               `json:"name"`
	Description        *string               `json:"description"`
	Capacity           *int                  `json:"capacity"`
	SeatingArrangement *string               `json:"seatingArrangement"`
	Status             *models.VehicleStatus `json:"status"`
	IsActive           *bool                 `json:"isActive"`
}

func (s *VehicleTypeService) Create(ctx context.Context, input VehicleTypeInput) (models.VehicleType, error) {
	status := input.Status
	if status == "" {
		status = models.VehicleStatusActive
		if input.IsActive != nil {
			status = models.StatusFromActive(*input.IsActive)
		}
	}

	now := s.now().UTC()
	vt := models.VehicleType{
		ID:                 ids.New(),
		Name:               strings.TrimSpace(input.Name),
		Description:        strings.TrimSpace(input.Description),
		Capacity:           input.Capacity,
		SeatingArrangement: strings.TrimSpace(input.SeatingArrangement),
		Status:             status,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := validateVehicleType(vt); err != nil {
		return models.VehicleType{}, err
	}
	if err := s.types.Create(ctx, vt); err != nil {
		return models.VehicleType{}, fmt.Errorf("create vehicle type: %w", err)
	}
	s.record(ctx, "vehicle_type.created", fmt.Sprintf("vehicle type %q created", vt.Name))
	return vt, nil
}

// Update merges patch into the stored type; id and createdAt never change.
func (s *VehicleTypeService) Update(ctx context.Context, id string, patch VehicleTypePatch) (models.VehicleType, error) {
	now := s.now().UTC()
	var updated models.VehicleType
	var invalid error
	ok, err := s.types.UpdateByID(ctx, id, func(vt *models.VehicleType) bool {
		next := *vt
		if patch.Name != nil {
			next.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			next.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Capacity != nil {
			next.Capacity = *patch.Capacity
		}
		if patch.SeatingArrangement != nil {
			next.SeatingArrangement = strings.TrimSpace(*patch.SeatingArrangement)
		}
		switch {
		case patch.Status != nil:
			next.Status = *patch.Status
		case patch.IsActive != nil:
			next.Status = models.StatusFromActive(*patch.IsActive)
		}
		next.UpdatedAt = now

		invalid = validateVehicleType(next)
		if invalid != nil {
			return false
		}
		*vt = next
		updated = next
		return true
	})
	if err != nil {
		return models.VehicleType{}, fmt.Errorf("update vehicle type %s: %w", id, err)
	}
	if invalid != nil {
		return models.VehicleType{}, invalid
	}
	if !ok {
		return models.VehicleType{}, repository.ErrVehicleTypeNotFound
	}
	s.record(ctx, "vehicle_type.updated", fmt.Sprintf("vehicle type %q updated", updated.Name))
	return updated, nil
}

func (s *VehicleTypeService) Delete(ctx context.Context, id string) error {
	ok, err := s.types.DeleteByID(ctx, id)
	if err != nil {
		return fmt.Errorf("delete vehicle type %s: %w", id, err)
	}
	if !ok {
		return repository.ErrVehicleTypeNotFound
	}
	s.record(ctx, "vehicle_type.deleted", "vehicle type "+id+" deleted")
	return nil
}

func (s *VehicleTypeService) Get(ctx context.Context, id string) (models.VehicleType, error) {
	return s.types.GetByID(ctx, id)
}

func (s *VehicleTypeService) List(ctx context.Context) ([]models.VehicleType, error) {
	return s.types.List(ctx)
}

// Initialize seeds the default catalog when it is empty. It reports
// whether the seed was written.
func (s *VehicleTypeService) Initialize(ctx context.Context) (bool, error) {
	seeded, err := s.types.SeedIfEmpty(ctx, defaultVehicleTypes(s.now().UTC()))
	if err != nil {
		return false, fmt.Errorf("seed vehicle types: %w", err)
	}
	if seeded {
		s.log.Info().Msg("vehicle type catalog seeded")
	}
	return seeded, nil
}

func defaultVehicleTypes(now time.Time) []models.VehicleType {
	daysAgo := func(n int) time.Time { return now.AddDate(0, 0, -n) }
	return []models.VehicleType{
		{
			ID:                 "vt1",
			Name:               "Standard Bus",
			Description:        "40-seat standard city bus",
			Capacity:           40,
			SeatingArrangement: "2x2 with center aisle",
			Status:             models.VehicleStatusActive,
			CreatedAt:          daysAgo(90),
			UpdatedAt:          daysAgo(90),
		},
		{
			ID:                 "vt2",
			Name:               "Mini Bus",
			Description:        "25-seat mini bus for narrow routes",
			Capacity:           25,
			SeatingArrangement: "2x1 with side aisle",
			Status:             models.VehicleStatusActive,
			CreatedAt:          daysAgo(60),
			UpdatedAt:          daysAgo(60),
		},
		{
			ID:                 "vt3",
			Name:               "Passenger Van",
			Description:        "15-seat passenger van for short routes",
			Capacity:           15,
			SeatingArrangement: "3 rows of bench seats",
			Status:             models.VehicleStatusActive,
			CreatedAt:          daysAgo(30),
			UpdatedAt:          daysAgo(30),
		},
		{
			ID:                 "vt4",
			Name:               "Articulated Bus",
			Description:        "60-seat articulated bus for high-traffic routes",
			Capacity:           60,
			SeatingArrangement: "2x2 with extended cabin",
			Status:             models.VehicleStatusInactive,
			CreatedAt:          daysAgo(15),
			UpdatedAt:          daysAgo(15),
		},
	}
}

func validateVehicleType(vt models.VehicleType) error {
	var check errs.Validation
	if vt.Name == "" {
		check.Add("name", "name is required")
	}
	if vt.Capacity <= 0 {
		check.Add("capacity", "capacity must be a positive integer")
	}
	if !vt.Status.Valid() {
		check.Add("status", "must be one of active, maintenance, inactive")
	}
	return check.Err()
}

func (s *VehicleTypeService) record(ctx context.Context, action, details string) {
	if err := s.activity.Record(ctx, activity.Entry{Action: action, Details: details}); err != nil {
		s.log.Warn().Err(err).Str("action", action).Msg("record activity failed")
	}
}
