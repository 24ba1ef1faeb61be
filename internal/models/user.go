package models

import "time"

type UserRole string

const (
	UserRoleAdmin        UserRole = "admin"
	UserRoleOrganization UserRole = "organization"
	UserRoleDriver       UserRole = "driver"
	UserRoleConductor    UserRole = "conductor"
	UserRoleIndividual   UserRole = "individual"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	UserStatusDisabled UserStatus = "disabled"
)

func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusDisabled:
		return true
	}
	return false
}

type AccountType string

const (
	AccountTypeOrganization AccountType = "organization"
	AccountTypeIndividual   AccountType = "individual"
)

type ServiceType string

const (
	ServiceTypeBus ServiceType = "bus"
	ServiceTypeVan ServiceType = "van"
)

// VehicleCount is one fleet line: how many vehicles of a given type an account runs.
type VehicleCount struct {
	VehicleTypeID string `json:"vehicleTypeId"`
	Count         int    `json:"count"`
}

// User is every account kind: the admin operator, organizations, their
// driver sub-accounts and individual operators. Secrets are only ever
// stored as digests; the plaintext keys leave the service once, at issue time.
type User struct {
	ID                     string         `json:"id"`
	Name                   string         `json:"name"`
	Email                  string         `json:"email,omitempty"`
	PasswordHash           string         `json:"passwordHash,omitempty"`
	Role                   UserRole       `json:"role"`
	Status                 UserStatus     `json:"status"`
	CreatedAt              time.Time      `json:"createdAt"`
	OrganizationID         string         `json:"organizationId,omitempty"`
	AccountType            AccountType    `json:"accountType,omitempty"`
	ServiceType            ServiceType    `json:"serviceType,omitempty"`
	Username               string         `json:"username,omitempty"`
	AccessKeyHash          string         `json:"accessKeyHash,omitempty"`
	AccessKeyHint          string         `json:"accessKeyHint,omitempty"`
	MasterKeyHash          string         `json:"masterKeyHash,omitempty"`
	MasterKeyHint          string         `json:"masterKeyHint,omitempty"`
	Vehicles               []VehicleCount `json:"vehicles,omitempty"`
	TotalVehicles          int            `json:"totalVehicles,omitempty"`
	ContactNumber          string         `json:"contactNumber,omitempty"`
	SecondaryContactNumber string         `json:"secondaryContactNumber,omitempty"`
	ContactPerson          string         `json:"contactPerson,omitempty"`
}

func (u User) IsOrganization() bool {
	return u.AccountType == AccountTypeOrganization
}

// Session is the slim record kept for a signed-in operator. It deliberately
// carries no credential material.
type Session struct {
	SessionID      string    `json:"sessionId"`
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email,omitempty"`
	Role           UserRole  `json:"role"`
	OrganizationID string    `json:"organizationId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

func NewSession(sessionID string, user User, now time.Time, ttl time.Duration) Session {
	return Session{
		SessionID:      sessionID,
		ID:             user.ID,
		Name:           user.Name,
		Email:          user.Email,
		Role:           user.Role,
		OrganizationID: user.OrganizationID,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}
}

// UserView is the outward shape of an account: credential digests stay inside.
type UserView struct {
	ID                     string         `json:"id"`
	Name                   string         `json:"name"`
	Email                  string         `json:"email,omitempty"`
	Role                   UserRole       `json:"role"`
	Status                 UserStatus     `json:"status"`
	CreatedAt              time.Time      `json:"createdAt"`
	OrganizationID         string         `json:"organizationId,omitempty"`
	AccountType            AccountType    `json:"accountType,omitempty"`
	ServiceType            ServiceType    `json:"serviceType,omitempty"`
	Username               string         `json:"username,omitempty"`
	AccessKeyHint          string         `json:"accessKeyHint,omitempty"`
	MasterKeyHint          string         `json:"masterKeyHint,omitempty"`
	Vehicles               []VehicleCount `json:"vehicles,omitempty"`
	TotalVehicles          int            `json:"totalVehicles,omitempty"`
	ContactNumber          string         `json:"contactNumber,omitempty"`
	SecondaryContactNumber string         `json:"secondaryContactNumber,omitempty"`
	ContactPerson          string         `json:"contactPerson,omitempty"`
}

func (u User) View() UserView {
	return UserView{
		ID:                     u.ID,
		Name:                   u.Name,
		Email:                  u.Email,
		Role:                   u.Role,
		Status:                 u.Status,
		CreatedAt:              u.CreatedAt,
		OrganizationID:         u.OrganizationID,
		AccountType:            u.AccountType,
		ServiceType:            u.ServiceType,
		Username:               u.Username,
		AccessKeyHint:          u.AccessKeyHint,
		MasterKeyHint:          u.MasterKeyHint,
		Vehicles:               u.Vehicles,
		TotalVehicles:          u.TotalVehicles,
		ContactNumber:          u.ContactNumber,
		SecondaryContactNumber: u.SecondaryContactNumber,
		ContactPerson:          u.ContactPerson,
	}
}
