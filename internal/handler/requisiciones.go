package handler

import (
	"net/http"

	"requisiciones/internal/dto"
	"requisiciones/internal/middleware"
	"requisiciones/internal/service"

	"github.com/gin-gonic/gin"
)

type RequisicionesHandler struct{ svc service.RequisicionService }

func NewRequisicionesHandler(svc service.RequisicionService) *RequisicionesHandler {
	return &RequisicionesHandler{svc: svc}
}

// Crear godoc
// @Summary Crea una requisicion en borrador
// @Tags requisiciones
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CrearRequisicionRequest true "Datos de la requisicion"
// @Success 201 {object} dto.RequisicionResponse
// @Failure 400 {object} apierror.APIError
// @Failure 403 {object} apierror.APIError
// @Router /v1/requisiciones [post]
func (h *RequisicionesHandler) Crear(c *gin.Context) {
	var req dto.CrearRequisicionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Obtener godoc
// @Summary Obtiene una requisicion con partidas, solicitudes e historial
// @Tags requisiciones
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID de requisicion"
// @Success 200 {object} dto.RequisicionResponse
// @Failure 403 {object} apierror.APIError
// @Failure 404 {object} apierror.APIError
// @Router /v1/requisiciones/{id} [get]
func (h *RequisicionesHandler) Obtener(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Obtener(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ReemplazarPartidas godoc
// @Summary Reemplaza las partidas de un borrador
// @Tags requisiciones
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID de requisicion"
// @Param body body dto.ReemplazarPartidasRequest true "Partidas"
// @Success 200 {object} dto.RequisicionResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/requisiciones/{id}/partidas [put]
func (h *RequisicionesHandler) ReemplazarPartidas(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.ReemplazarPartidasRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ReemplazarPartidas(c.Request.Context(), middleware.GetActor(c), id, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AvanzarEstado godoc
// @Summary Aplica un cambio de estado de la tabla de transiciones
// @Tags requisiciones
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID de requisicion"
// @Param body body dto.AvanzarEstadoRequest true "Estado destino y comentario"
// @Success 200 {object} dto.TransicionResponse
// @Failure 400 {object} apierror.APIError
// @Failure 403 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/requisiciones/{id}/estado [post]
func (h *RequisicionesHandler) AvanzarEstado(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.AvanzarEstadoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AvanzarEstado(c.Request.Context(), middleware.GetActor(c), id, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AsignarOperador godoc
// @Summary Asigna el operador de compras de la requisicion
// @Tags requisiciones
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID de requisicion"
// @Param body body dto.AsignarOperadorRequest true "Operador"
// @Success 200 {object} dto.RequisicionResponse
// @Failure 403 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/requisiciones/{id}/operador [put]
func (h *RequisicionesHandler) AsignarOperador(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.AsignarOperadorRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AsignarOperador(c.Request.Context(), middleware.GetActor(c), id, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
