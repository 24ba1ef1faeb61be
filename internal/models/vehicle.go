package models

import (
	"encoding/json"
	"time"
)

type VehicleStatus string

const (
	VehicleStatusActive      VehicleStatus = "active"
	VehicleStatusMaintenance VehicleStatus = "maintenance"
	VehicleStatusInactive    VehicleStatus = "inactive"
)

func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleStatusActive, VehicleStatusMaintenance, VehicleStatusInactive:
		return true
	}
	return false
}

// VehicleType is a catalog entry. Status is authoritative; isActive is
// emitted for older clients and always equals status == active.
type VehicleType struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	Description        string        `json:"description"`
	Capacity           int           `json:"capacity"`
	SeatingArrangement string        `json:"seatingArrangement"`
	Status             VehicleStatus `json:"status"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

func (t VehicleType) IsActive() bool {
	return t.Status == VehicleStatusActive
}

type vehicleTypeJSON VehicleType

func (t VehicleType) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		vehicleTypeJSON
		IsActive bool `json:"isActive"`
	}{vehicleTypeJSON(t), t.IsActive()})
}

func (t *VehicleType) UnmarshalJSON(data []byte) error {
	var raw struct {
		vehicleTypeJSON
		IsActive *bool `json:"isActive"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = VehicleType(raw.vehicleTypeJSON)
	if t.Status == "" && raw.IsActive != nil {
		t.Status = StatusFromActive(*raw.IsActive)
	}
	return nil
}

func StatusFromActive(active bool) VehicleStatus {
	if active {
		return VehicleStatusActive
	}
	return VehicleStatusInactive
}

// Vehicle is a single fleet unit owned by an organization.
type Vehicle struct {
	ID              string        `json:"id"`
	Type            string        `json:"type"`
	LicensePlate    string        `json:"licensePlate"`
	Capacity        int           `json:"capacity"`
	Status          VehicleStatus `json:"status"`
	DriverID        string        `json:"driverId,omitempty"`
	DriverName      string        `json:"driverName,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	LastMaintenance *time.Time    `json:"lastMaintenance,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	OrganizationID  string        `json:"organizationId"`
}
