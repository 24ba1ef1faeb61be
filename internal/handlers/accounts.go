package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"transitadmin/internal/models"
	"transitadmin/internal/service"
)

type provisionResponse struct {
	Account     models.UserView       `json:"account"`
	Credentials service.Credentials   `json:"credentials"`
	SubAccounts []service.Credentials `json:"subAccounts,omitempty"`
}

func views(users []models.User) []models.UserView {
	out := make([]models.UserView, 0, len(users))
	for _, u := range users {
		out = append(out, u.View())
	}
	return out
}

func (h HandlerSet) ListAccounts(c *gin.Context) {
	users, err := h.accounts.List(c.Request.Context(), service.AccountFilter{
		AccountType:    models.AccountType(c.Query("accountType")),
		Role:           models.UserRole(c.Query("role")),
		Status:         models.UserStatus(c.Query("status")),
		OrganizationID: c.Query("organizationId"),
		Search:         c.Query("search"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": views(users)})
}

func (h HandlerSet) GetAccount(c *gin.Context) {
	user, err := h.accounts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user.View())
}

func (h HandlerSet) ListSubAccounts(c *gin.Context) {
	users, err := h.accounts.SubAccounts(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": views(users)})
}

func (h HandlerSet) CreateAccount(c *gin.Context) {
	h.provision(c, h.accounts.CreateAccount)
}

// CreateOrganization also provisions one driver account per vehicle.
func (h HandlerSet) CreateOrganization(c *gin.Context) {
	h.provision(c, h.accounts.CreateOrganizationWithAccounts)
}

func (h HandlerSet) provision(c *gin.Context, create func(context.Context, service.AccountInput) (service.ProvisionResult, error)) {
	var input service.AccountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	res, err := create(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, provisionResponse{
		Account:     res.Account.View(),
		Credentials: res.Credentials,
		SubAccounts: res.SubAccounts,
	})
}

func (h HandlerSet) RegenerateAccessKey(c *gin.Context) {
	key, err := h.accounts.RegenerateAccessKey(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessKey": key})
}

func (h HandlerSet) RegenerateMasterKey(c *gin.Context) {
	key, err := h.accounts.RegenerateMasterKey(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"masterKey": key})
}

func (h HandlerSet) DeleteAccount(c *gin.Context) {
	removed, err := h.accounts.DeleteAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

type statusRequest struct {
	Status models.UserStatus `json:"status" binding:"required"`
}

func (h HandlerSet) ToggleAccountStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	affected, err := h.accounts.ToggleAccountStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"affected": affected})
}

func (h HandlerSet) ListFleet(c *gin.Context) {
	vehicles, err := h.fleet.ListByOrganization(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": vehicles})
}

func (h HandlerSet) SaveVehicle(c *gin.Context) {
	var input service.VehicleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	input.OrganizationID = c.Param("id")

	vehicle, err := h.fleet.Save(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, vehicle)
}
