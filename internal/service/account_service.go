package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"transitadmin/internal/activity"
	"transitadmin/internal/config"
	"transitadmin/internal/errs"
	"transitadmin/internal/ids"
	"transitadmin/internal/metrics"
	"transitadmin/internal/models"
	"transitadmin/internal/repository"
	"transitadmin/internal/security"
)

var (
	ErrAccountNotFound = errs.NotFound("Account not found")
	ErrNotOrganization = errs.InvalidOperation("Only organization accounts have master keys")
)

// AccountService provisions operator accounts and their credentials.
// Plaintext keys appear only in the results of the calls that issue them.
type AccountService struct {
	users        *repository.UserRepository
	vehicleTypes *repository.VehicleTypeRepository
	keys         *security.KeyGenerator
	pepper       string
	maxFleetSize int
	activity     activity.Log
	metrics      *metrics.Metrics
	log          zerolog.Logger
	now          func() time.Time
}

func NewAccountService(
	users *repository.UserRepository,
	vehicleTypes *repository.VehicleTypeRepository,
	keys *security.KeyGenerator,
	keyPepper string,
	cfg config.AccountsConfig,
	activityLog activity.Log,
	m *metrics.Metrics,
	log zerolog.Logger,
) *AccountService {
	if activityLog == nil {
		activityLog = activity.Nop{}
	}
	return &AccountService{
		users:        users,
		vehicleTypes: vehicleTypes,
		keys:         keys,
		pepper:       keyPepper,
		maxFleetSize: cfg.MaxFleetSize,
		activity:     activityLog,
		metrics:      m,
		log:          log,
		now:          time.Now,
	}
}

type AccountInput struct {
	Name                   string                `json:"name"`
	Email                  string                `json:"email"`
	AccountType            models.AccountType    `json:"accountType"`
	ServiceType            models.ServiceType    `json:"serviceType"`
	ContactNumber          string                `json:"contactNumber"`
	SecondaryContactNumber string                `json:"secondaryContactNumber"`
	ContactPerson          string                `json:"contactPerson"`
	Vehicles               []models.VehicleCount `json:"vehicles"`
}

// Credentials are issued secrets, shown to the operator exactly once.
type Credentials struct {
	AccountID string `json:"accountId"`
	Username  string `json:"username,omitempty"`
	AccessKey string `json:"accessKey,omitempty"`
	MasterKey string `json:"masterKey,omitempty"`
}

type ProvisionResult struct {
	Account     models.User   `json:"-"`
	Credentials Credentials   `json:"credentials"`
	SubAccounts []Credentials `json:"subAccounts,omitempty"`
}

// CreateAccount stores a single organization or individual account.
func (s *AccountService) CreateAccount(ctx context.Context, input AccountInput) (ProvisionResult, error) {
	if err := s.validate(ctx, &input); err != nil {
		return ProvisionResult{}, err
	}

	user, creds := s.buildAccount(input, s.now().UTC())
	if err := s.insert(ctx, []models.User{user}); err != nil {
		return ProvisionResult{}, err
	}

	s.metrics.AddProvisioned(string(user.Role), 1)
	s.recordIssued(1, creds.MasterKey != "")
	s.record(ctx, "account.created", fmt.Sprintf("%s account %q created", user.AccountType, user.Name))
	s.log.Info().Str("account_id", user.ID).Str("account_type", string(user.AccountType)).Msg("account created")
	return ProvisionResult{Account: user, Credentials: creds}, nil
}

// CreateOrganizationWithAccounts stores an organization plus one driver
// sub-account per fleet vehicle, all in one write.
func (s *AccountService) CreateOrganizationWithAccounts(ctx context.Context, input AccountInput) (ProvisionResult, error) {
	input.AccountType = models.AccountTypeOrganization
	if err := s.validate(ctx, &input); err != nil {
		return ProvisionResult{}, err
	}

	now := s.now().UTC()
	org, creds := s.buildAccount(input, now)

	records := make([]models.User, 0, org.TotalVehicles+1)
	records = append(records, org)
	subs := make([]Credentials, 0, org.TotalVehicles)
	domain := strings.ToLower(strings.Join(strings.Fields(org.Name), ""))

	for i := 0; i < org.TotalVehicles; i++ {
		username := s.keys.Username(org.Name, now, i)
		accessKey := s.keys.AccessKey()
		sub := models.User{
			ID:             ids.New(),
			Name:           org.Name + " User",
			Email:          fmt.Sprintf("%s@%s.com", strings.ToLower(username), domain),
			Role:           models.UserRoleDriver,
			Status:         models.UserStatusActive,
			CreatedAt:      now,
			OrganizationID: org.ID,
			AccountType:    models.AccountTypeIndividual,
			ServiceType:    org.ServiceType,
			Username:       username,
			AccessKeyHash:  security.HashKey(s.pepper, accessKey),
			AccessKeyHint:  security.KeyHint(accessKey),
		}
		records = append(records, sub)
		subs = append(subs, Credentials{AccountID: sub.ID, Username: username, AccessKey: accessKey})
	}

	if err := s.insert(ctx, records); err != nil {
		return ProvisionResult{}, err
	}

	s.metrics.AddProvisioned(string(models.UserRoleOrganization), 1)
	s.metrics.AddProvisioned(string(models.UserRoleDriver), len(subs))
	s.recordIssued(1+len(subs), true)
	s.record(ctx, "account.created", fmt.Sprintf("organization %q created with %d sub-accounts", org.Name, len(subs)))
	s.log.Info().Str("account_id", org.ID).Int("sub_accounts", len(subs)).Msg("organization created")
	return ProvisionResult{Account: org, Credentials: creds, SubAccounts: subs}, nil
}

func (s *AccountService) buildAccount(input AccountInput, now time.Time) (models.User, Credentials) {
	role := models.UserRoleIndividual
	if input.AccountType == models.AccountTypeOrganization {
		role = models.UserRoleOrganization
	}

	accessKey := s.keys.AccessKey()
	user := models.User{
		ID:                     ids.New(),
		Name:                   input.Name,
		Email:                  input.Email,
		Role:                   role,
		Status:                 models.UserStatusActive,
		CreatedAt:              now,
		AccountType:            input.AccountType,
		ServiceType:            input.ServiceType,
		Username:               s.keys.Username(input.Name, now, 0),
		AccessKeyHash:          security.HashKey(s.pepper, accessKey),
		AccessKeyHint:          security.KeyHint(accessKey),
		Vehicles:               input.Vehicles,
		TotalVehicles:          totalVehicles(input.Vehicles),
		ContactNumber:          input.ContactNumber,
		SecondaryContactNumber: input.SecondaryContactNumber,
	}
	creds := Credentials{AccountID: user.ID, Username: user.Username, AccessKey: accessKey}

	if user.IsOrganization() {
		masterKey := s.keys.MasterKey()
		user.MasterKeyHash = security.HashKey(s.pepper, masterKey)
		user.MasterKeyHint = security.KeyHint(masterKey)
		user.ContactPerson = input.ContactPerson
		creds.MasterKey = masterKey
	}
	return user, creds
}

// emailField names the offending record: the account itself or one of the
// generated sub-accounts that follow it.
func emailField(i int) string {
	if i == 0 {
		return "email"
	}
	return fmt.Sprintf("subAccounts[%d].email", i-1)
}

func (s *AccountService) insert(ctx context.Context, records []models.User) error {
	err := s.users.Mutate(ctx, func(users []models.User) ([]models.User, bool, error) {
		taken := make(map[string]bool, len(users)+len(records))
		for _, u := range users {
			if u.Email != "" {
				taken[strings.ToLower(u.Email)] = true
			}
		}
		for i, r := range records {
			if r.Email == "" {
				continue
			}
			key := strings.ToLower(r.Email)
			if taken[key] {
				return nil, false, &errs.ValidationError{Fields: map[string]string{emailField(i): "email already registered"}}
			}
			taken[key] = true
		}
		return append(users, records...), true, nil
	})
	if err != nil {
		if errs.IsValidation(err) {
			return err
		}
		return fmt.Errorf("store accounts: %w", err)
	}
	return nil
}

func (s *AccountService) validate(ctx context.Context, input *AccountInput) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.ContactNumber = strings.TrimSpace(input.ContactNumber)
	input.ContactPerson = strings.TrimSpace(input.ContactPerson)

	var check errs.Validation
	if input.Name == "" {
		check.Add("name", "name is required")
	}
	if input.Email != "" && !strings.Contains(input.Email, "@") {
		check.Add("email", "email is invalid")
	}
	if input.ServiceType != "" && input.ServiceType != models.ServiceTypeBus && input.ServiceType != models.ServiceTypeVan {
		check.Add("serviceType", "must be bus or van")
	}
	if input.ContactNumber == "" {
		check.Add("contactNumber", "contact number is required")
	}

	switch input.AccountType {
	case models.AccountTypeIndividual:
		if len(input.Vehicles) != 1 || input.Vehicles[0].Count != 1 {
			check.Add("vehicles", "individual accounts register exactly one vehicle")
		}
	case models.AccountTypeOrganization:
		if input.ContactPerson == "" {
			check.Add("contactPerson", "contact person is required")
		}
		if len(input.Vehicles) == 0 {
			check.Add("vehicles", "at least one vehicle type is required")
		}
		if s.maxFleetSize > 0 && totalVehicles(input.Vehicles) > s.maxFleetSize {
			check.Add("vehicles", fmt.Sprintf("fleet may not exceed %d vehicles", s.maxFleetSize))
		}
	default:
		check.Add("accountType", "must be organization or individual")
	}

	for i, vc := range input.Vehicles {
		field := fmt.Sprintf("vehicles[%d]", i)
		if vc.Count <= 0 {
			check.Add(field, "count must be positive")
			continue
		}
		if vc.VehicleTypeID == "" {
			check.Add(field, "vehicle type is required")
			continue
		}
		if _, err := s.vehicleTypes.GetByID(ctx, vc.VehicleTypeID); err != nil {
			if !errors.Is(err, repository.ErrVehicleTypeNotFound) {
				return err
			}
			check.Add(field, "unknown vehicle type")
		}
	}
	return check.Err()
}

func totalVehicles(vehicles []models.VehicleCount) int {
	total := 0
	for _, vc := range vehicles {
		total += vc.Count
	}
	return total
}

// RegenerateAccessKey replaces the account's access key and returns the new
// plaintext value.
func (s *AccountService) RegenerateAccessKey(ctx context.Context, id string) (string, error) {
	key := s.keys.AccessKey()
	name, err := s.rekey(ctx, id, func(u *models.User) error {
		u.AccessKeyHash = security.HashKey(s.pepper, key)
		u.AccessKeyHint = security.KeyHint(key)
		return nil
	})
	if err != nil {
		return "", err
	}
	s.recordIssued(1, false)
	s.record(ctx, "account.access_key_regenerated", fmt.Sprintf("access key regenerated for %q", name))
	return key, nil
}

func (s *AccountService) RegenerateMasterKey(ctx context.Context, id string) (string, error) {
	key := s.keys.MasterKey()
	name, err := s.rekey(ctx, id, func(u *models.User) error {
		if !u.IsOrganization() {
			return ErrNotOrganization
		}
		u.MasterKeyHash = security.HashKey(s.pepper, key)
		u.MasterKeyHint = security.KeyHint(key)
		return nil
	})
	if err != nil {
		return "", err
	}
	s.metrics.AddKeys("master", 1)
	s.record(ctx, "account.master_key_regenerated", fmt.Sprintf("master key regenerated for %q", name))
	return key, nil
}

func (s *AccountService) rekey(ctx context.Context, id string, fn func(u *models.User) error) (string, error) {
	var name string
	err := s.users.Mutate(ctx, func(users []models.User) ([]models.User, bool, error) {
		i := indexOfUser(users, id)
		if i < 0 {
			return nil, false, ErrAccountNotFound
		}
		if err := fn(&users[i]); err != nil {
			return nil, false, err
		}
		name = users[i].Name
		return users, true, nil
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

// DeleteAccount removes the account and, for organizations, every account
// it owns. It returns how many records were removed.
func (s *AccountService) DeleteAccount(ctx context.Context, id string) (int, error) {
	var removed int
	var name string
	err := s.users.Mutate(ctx, func(users []models.User) ([]models.User, bool, error) {
		i := indexOfUser(users, id)
		if i < 0 {
			return nil, false, ErrAccountNotFound
		}
		target := users[i]
		name = target.Name
		kept := make([]models.User, 0, len(users))
		for _, u := range users {
			if u.ID == id || (target.IsOrganization() && u.OrganizationID == id) {
				continue
			}
			kept = append(kept, u)
		}
		removed = len(users) - len(kept)
		return kept, true, nil
	})
	if err != nil {
		return 0, err
	}
	s.record(ctx, "account.deleted", fmt.Sprintf("account %q deleted (%d records)", name, removed))
	s.log.Info().Str("account_id", id).Int("removed", removed).Msg("account deleted")
	return removed, nil
}

// ToggleAccountStatus sets status on the account and, for organizations,
// on every account it owns. It returns how many records changed status.
func (s *AccountService) ToggleAccountStatus(ctx context.Context, id string, status models.UserStatus) (int, error) {
	if !status.Valid() {
		return 0, &errs.ValidationError{Fields: map[string]string{"status": "must be one of active, inactive, disabled"}}
	}

	var affected int
	var name string
	err := s.users.Mutate(ctx, func(users []models.User) ([]models.User, bool, error) {
		i := indexOfUser(users, id)
		if i < 0 {
			return nil, false, ErrAccountNotFound
		}
		name = users[i].Name
		cascade := users[i].IsOrganization()
		affected = 0
		for j := range users {
			if users[j].ID == id || (cascade && users[j].OrganizationID == id) {
				users[j].Status = status
				affected++
			}
		}
		return users, true, nil
	})
	if err != nil {
		return 0, err
	}

	level := activity.LevelInfo
	if status != models.UserStatusActive {
		level = activity.LevelWarning
	}
	s.recordLevel(ctx, "account.status_changed", fmt.Sprintf("account %q set to %s (%d records)", name, status, affected), level)
	return affected, nil
}

func (s *AccountService) Get(ctx context.Context, id string) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, ErrAccountNotFound
	}
	return user, err
}

type AccountFilter struct {
	AccountType    models.AccountType
	Role           models.UserRole
	Status         models.UserStatus
	OrganizationID string
	Search         string
}

func (f AccountFilter) match(u models.User) bool {
	if f.AccountType != "" && u.AccountType != f.AccountType {
		return false
	}
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.Status != "" && u.Status != f.Status {
		return false
	}
	if f.OrganizationID != "" && u.OrganizationID != f.OrganizationID {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		return strings.Contains(strings.ToLower(u.Name), q) ||
			strings.Contains(strings.ToLower(u.Email), q) ||
			strings.Contains(strings.ToLower(u.Username), q)
	}
	return true
}

func (s *AccountService) List(ctx context.Context, filter AccountFilter) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if filter.match(u) {
			out = append(out, u)
		}
	}
	return out, nil
}

// SubAccounts lists the accounts owned by an organization.
func (s *AccountService) SubAccounts(ctx context.Context, organizationID string) ([]models.User, error) {
	org, err := s.Get(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if !org.IsOrganization() {
		return []models.User{}, nil
	}
	return s.List(ctx, AccountFilter{OrganizationID: organizationID})
}

// VerifyAccessKey checks a presented key against the stored digest.
func (s *AccountService) VerifyAccessKey(ctx context.Context, id string, key string) (bool, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return security.VerifyKey(s.pepper, key, user.AccessKeyHash), nil
}

func (s *AccountService) recordIssued(accessKeys int, master bool) {
	s.metrics.AddKeys("access", accessKeys)
	if master {
		s.metrics.AddKeys("master", 1)
	}
}

func (s *AccountService) record(ctx context.Context, action, details string) {
	s.recordLevel(ctx, action, details, activity.LevelInfo)
}

func (s *AccountService) recordLevel(ctx context.Context, action, details string, level activity.Level) {
	if err := s.activity.Record(ctx, activity.Entry{Action: action, Details: details, Level: level}); err != nil {
		s.log.Warn().Err(err).Str("action", action).Msg("record activity failed")
	}
}

func indexOfUser(users []models.User, id string) int {
	for i := range users {
		if users[i].ID == id {
			return i
		}
	}
	return -1
}
