package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"requisiciones/internal/dto"
	"requisiciones/internal/infra"
	"requisiciones/internal/middleware"
	"requisiciones/internal/service"

	"github.com/gin-gonic/gin"
)

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type CotizacionHandler struct{ svc service.CotizacionService }

func NewCotizacionHandler(svc service.CotizacionService) *CotizacionHandler {
	return &CotizacionHandler{svc: svc}
}

// Invitar godoc
// @Summary Invita proveedores a cotizar
// @Description Reinvitar a un proveedor que ya respondio no altera su estado.
// @Tags cotizacion
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID de requisicion"
// @Param body body dto.InvitarProveedoresRequest true "Proveedores y fecha limite"
// @Success 200 {object} dto.InvitacionResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/requisiciones/{id}/cotizacion/invitaciones [post]
func (h *CotizacionHandler) Invitar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.InvitarProveedoresRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Invitar(c.Request.Context(), middleware.GetActor(c), id, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GuardarPrecios godoc
// @Summary Registra precios por partida y proveedor
// @Tags cotizacion
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID de requisicion"
// @Param body body dto.GuardarPreciosRequest true "Celdas de precio"
// @Success 200 {object} dto.GuardarPreciosResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/requisiciones/{id}/cotizacion/precios [post]
func (h *CotizacionHandler) GuardarPrecios(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.GuardarPreciosRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.GuardarPrecios(c.Request.Context(), middleware.GetActor(c), id, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Declinar godoc
// @Summary Registra que un proveedor invitado declino cotizar
// @Tags cotizacion
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID de requisicion"
// @Param proveedor_id path int true "ID de proveedor"
// @Success 200 {object} dto.SolicitudResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/requisiciones/{id}/cotizacion/proveedores/{proveedor_id}/declinar [post]
func (h *CotizacionHandler) Declinar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	proveedorID, ok := paramID(c, "proveedor_id")
	if !ok {
		return
	}
	resp, err := h.svc.Declinar(c.Request.Context(), middleware.GetActor(c), id, proveedorID)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cerrar godoc
// @Summary Cierra la recepcion de cotizaciones
// @Description Idempotente: cerrar una recepcion ya cerrada responde sin_cambios.
// @Tags cotizacion
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID de requisicion"
// @Param body body dto.CerrarCotizacionRequest false "Nota de cierre"
// @Success 200 {object} dto.CierreResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/requisiciones/{id}/cotizacion/cerrar [post]
func (h *CotizacionHandler) Cerrar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.CerrarCotizacionRequest
	if !bindOptional(c, &req) {
		return
	}
	resp, err := h.svc.Cerrar(c.Request.Context(), middleware.GetActor(c), id, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reabrir godoc
// @Summary Reabre la recepcion de cotizaciones
// @Tags cotizacion
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID de requisicion"
// @Success 200 {object} dto.CierreResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/requisiciones/{id}/cotizacion/reabrir [post]
func (h *CotizacionHandler) Reabrir(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Reabrir(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// EnviarARevision godoc
// @Summary Envia la cotizacion cerrada a revision del solicitante
// @Tags cotizacion
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID de requisicion"
// @Success 200 {object} dto.TransicionResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/requisiciones/{id}/cotizacion/revision [post]
func (h *CotizacionHandler) EnviarARevision(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.EnviarARevision(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Comparativo godoc
// @Summary Cuadro comparativo de precios por partida y proveedor
// @Tags cotizacion
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID de requisicion"
// @Success 200 {object} dto.ComparativoResponse
// @Failure 403 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/requisiciones/{id}/cotizacion/comparativo [get]
func (h *CotizacionHandler) Comparativo(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Comparativo(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ComparativoXLSX godoc
// @Summary Descarga el cuadro comparativo como hoja de calculo
// @Tags cotizacion
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param id path int true "ID de requisicion"
// @Success 200 {file} binary
// @Failure 403 {object} apierror.APIError
// @Router /v1/requisiciones/{id}/cotizacion/comparativo.xlsx [get]
func (h *CotizacionHandler) ComparativoXLSX(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Comparativo(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		responderError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := infra.ExportarComparativoXLSX(resp, &buf); err != nil {
		responderError(c, fmt.Errorf("exportar comparativo: %w", err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="comparativo_%s.xlsx"`, resp.Folio))
	c.Data(http.StatusOK, mimeXLSX, buf.Bytes())
}
