package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"transitadmin/internal/models"
)

type AccountStats struct {
	Total         int `json:"total"`
	Organizations int `json:"organizations"`
	Individuals   int `json:"individuals"`
	SubAccounts   int `json:"subAccounts"`
	Active        int `json:"active"`
	Disabled      int `json:"disabled"`
}

type DashboardStats struct {
	Verifications      VerificationStats `json:"verifications"`
	Accounts           AccountStats      `json:"accounts"`
	VehicleTypes       int               `json:"vehicleTypes"`
	ActiveVehicleTypes int               `json:"activeVehicleTypes"`
}

// DashboardService assembles the overview page counters.
type DashboardService struct {
	verifications *VerificationService
	accounts      *AccountService
	vehicleTypes  *VehicleTypeService
}

func NewDashboardService(verifications *VerificationService, accounts *AccountService, vehicleTypes *VehicleTypeService) *DashboardService {
	return &DashboardService{verifications: verifications, accounts: accounts, vehicleTypes: vehicleTypes}
}

func (s *DashboardService) Stats(ctx context.Context) (DashboardStats, error) {
	var (
		stats DashboardStats
		users []models.User
		types []models.VehicleType
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats.Verifications, err = s.verifications.Stats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = s.accounts.List(gctx, AccountFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		types, err = s.vehicleTypes.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardStats{}, err
	}

	for _, u := range users {
		if u.Role == models.UserRoleAdmin {
			continue
		}
		stats.Accounts.Total++
		switch {
		case u.OrganizationID != "":
			stats.Accounts.SubAccounts++
		case u.IsOrganization():
			stats.Accounts.Organizations++
		default:
			stats.Accounts.Individuals++
		}
		switch u.Status {
		case models.UserStatusActive:
			stats.Accounts.Active++
		case models.UserStatusDisabled:
			stats.Accounts.Disabled++
		}
	}

	stats.VehicleTypes = len(types)
	for _, vt := range types {
		if vt.IsActive() {
			stats.ActiveVehicleTypes++
		}
	}
	return stats, nil
}
