package repository

import (
	"context"

	"transitadmin/internal/errs"
	"transitadmin/internal/models"
	"transitadmin/internal/store"
)

var (
	ErrVehicleTypeNotFound = errs.NotFound("vehicle type not found")
	ErrVehicleNotFound     = errs.NotFound("vehicle not found")
)

type VehicleTypeRepository struct {
	types collection[models.VehicleType]
}

func NewVehicleTypeRepository(adapter store.Adapter) *VehicleTypeRepository {
	return &VehicleTypeRepository{types: collection[models.VehicleType]{adapter: adapter, name: store.VehicleTypes}}
}

func (r *VehicleTypeRepository) List(ctx context.Context) ([]models.VehicleType, error) {
	return r.types.load(ctx)
}

func (r *VehicleTypeRepository) GetByID(ctx context.Context, id string) (models.VehicleType, error) {
	items, err := r.types.load(ctx)
	if err != nil {
		return models.VehicleType{}, err
	}
	for _, vt := range items {
		if vt.ID == id {
			return vt, nil
		}
	}
	return models.VehicleType{}, ErrVehicleTypeNotFound
}

func (r *VehicleTypeRepository) Create(ctx context.Context, vt models.VehicleType) error {
	return r.types.mutate(ctx, func(items []models.VehicleType) ([]models.VehicleType, bool, error) {
		return append(items, vt), true, nil
	})
}

func (r *VehicleTypeRepository) UpdateByID(ctx context.Context, id string, fn func(vt *models.VehicleType) bool) (bool, error) {
	return updateOne(ctx, r.types, func(vt models.VehicleType) bool { return vt.ID == id }, fn)
}

func (r *VehicleTypeRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := r.types.mutate(ctx, func(items []models.VehicleType) ([]models.VehicleType, bool, error) {
		deleted = false
		kept := items[:0]
		for _, vt := range items {
			if vt.ID == id {
				deleted = true
				continue
			}
			kept = append(kept, vt)
		}
		return kept, deleted, nil
	})
	return deleted, err
}

// SeedIfEmpty writes seed only when the collection has no records. It
// reports whether the seed was written.
func (r *VehicleTypeRepository) SeedIfEmpty(ctx context.Context, seed []models.VehicleType) (bool, error) {
	seeded := false
	err := r.types.mutate(ctx, func(items []models.VehicleType) ([]models.VehicleType, bool, error) {
		seeded = len(items) == 0
		if !seeded {
			return items, false, nil
		}
		return seed, true, nil
	})
	return seeded, err
}

type VehicleRepository struct {
	vehicles collection[models.Vehicle]
}

func NewVehicleRepository(adapter store.Adapter) *VehicleRepository {
	return &VehicleRepository{vehicles: collection[models.Vehicle]{adapter: adapter, name: store.Vehicles}}
}

func (r *VehicleRepository) GetByID(ctx context.Context, id string) (models.Vehicle, error) {
	items, err := r.vehicles.load(ctx)
	if err != nil {
		return models.Vehicle{}, err
	}
	for _, v := range items {
		if v.ID == id {
			return v, nil
		}
	}
	return models.Vehicle{}, ErrVehicleNotFound
}

func (r *VehicleRepository) ListByOrganization(ctx context.Context, organizationID string) ([]models.Vehicle, error) {
	items, err := r.vehicles.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Vehicle, 0)
	for _, v := range items {
		if v.OrganizationID == organizationID {
			out = append(out, v)
		}
	}
	return out, nil
}

// Save inserts the vehicle or replaces the stored one with the same id.
func (r *VehicleRepository) Save(ctx context.Context, vehicle models.Vehicle) error {
	return r.vehicles.mutate(ctx, func(items []models.Vehicle) ([]models.Vehicle, bool, error) {
		for i := range items {
			if items[i].ID == vehicle.ID {
				items[i] = vehicle
				return items, true, nil
			}
		}
		return append(items, vehicle), true, nil
	})
}
