package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"transitadmin/internal/service"
)

func (h HandlerSet) ListVehicleTypes(c *gin.Context) {
	types, err := h.vehicleTypes.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": types})
}

func (h HandlerSet) GetVehicleType(c *gin.Context) {
	vt, err := h.vehicleTypes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, vt)
}

func (h HandlerSet) CreateVehicleType(c *gin.Context) {
	var input service.VehicleTypeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	vt, err := h.vehicleTypes.Create(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, vt)
}

func (h HandlerSet) UpdateVehicleType(c *gin.Context) {
	var patch service.VehicleTypePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}

	vt, err := h.vehicleTypes.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, vt)
}

func (h HandlerSet) DeleteVehicleType(c *gin.Context) {
	if err := h.vehicleTypes.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
