package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"transitadmin/internal/errs"
	"transitadmin/internal/ids"
	"transitadmin/internal/models"
	"transitadmin/internal/repository"
)

// FleetService tracks the individual vehicles an organization runs.
type FleetService struct {
	vehicles *repository.VehicleRepository
	accounts *AccountService
	log      zerolog.Logger
	now      func() time.Time
}

func NewFleetService(vehicles *repository.VehicleRepository, accounts *AccountService, log zerolog.Logger) *FleetService {
	return &FleetService{vehicles: vehicles, accounts: accounts, log: log, now: time.Now}
}

type VehicleInput struct {
	ID              string               `json:"id"`
	Type            string               `json:"type"`
	LicensePlate    string               `json:"licensePlate"`
	Capacity        int                  `json:"capacity"`
	Status          models.VehicleStatus `json:"status"`
	DriverID        string               `json:"driverId"`
	DriverName      string               `json:"driverName"`
	LastMaintenance *time.Time           `json:"lastMaintenance"`
	Notes           string               `json:"notes"`
	OrganizationID  string               `json:"organizationId"`
}

// Save creates the vehicle, or replaces it when input.ID names an existing one.
func (s *FleetService) Save(ctx context.Context, input VehicleInput) (models.Vehicle, error) {
	input.LicensePlate = strings.ToUpper(strings.TrimSpace(input.LicensePlate))
	if input.Status == "" {
		input.Status = models.VehicleStatusActive
	}

	var check errs.Validation
	if input.LicensePlate == "" {
		check.Add("licensePlate", "license plate is required")
	}
	if strings.TrimSpace(input.Type) == "" {
		check.Add("type", "vehicle type is required")
	}
	if input.Capacity <= 0 {
		check.Add("capacity", "capacity must be a positive integer")
	}
	if !input.Status.Valid() {
		check.Add("status", "must be one of active, maintenance, inactive")
	}
	if input.OrganizationID == "" {
		check.Add("organizationId", "organization is required")
	}
	if err := check.Err(); err != nil {
		return models.Vehicle{}, err
	}

	org, err := s.accounts.Get(ctx, input.OrganizationID)
	if err != nil {
		return models.Vehicle{}, err
	}
	if !org.IsOrganization() {
		return models.Vehicle{}, errs.InvalidOperation("vehicles belong to organization accounts")
	}

	vehicle := models.Vehicle{
		ID:              input.ID,
		Type:            strings.TrimSpace(input.Type),
		LicensePlate:    input.LicensePlate,
		Capacity:        input.Capacity,
		Status:          input.Status,
		DriverID:        input.DriverID,
		DriverName:      input.DriverName,
		CreatedAt:       s.now().UTC(),
		LastMaintenance: input.LastMaintenance,
		Notes:           input.Notes,
		OrganizationID:  input.OrganizationID,
	}
	if vehicle.ID == "" {
		vehicle.ID = ids.New()
	} else if existing, err := s.vehicles.GetByID(ctx, vehicle.ID); err == nil {
		vehicle.CreatedAt = existing.CreatedAt
	}

	if err := s.vehicles.Save(ctx, vehicle); err != nil {
		return models.Vehicle{}, fmt.Errorf("save vehicle: %w", err)
	}
	s.log.Info().Str("vehicle_id", vehicle.ID).Str("organization_id", vehicle.OrganizationID).Msg("vehicle saved")
	return vehicle, nil
}

func (s *FleetService) Get(ctx context.Context, id string) (models.Vehicle, error) {
	return s.vehicles.GetByID(ctx, id)
}

func (s *FleetService) ListByOrganization(ctx context.Context, organizationID string) ([]models.Vehicle, error) {
	if _, err := s.accounts.Get(ctx, organizationID); err != nil {
		return nil, err
	}
	return s.vehicles.ListByOrganization(ctx, organizationID)
}
