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

type OrdenesHandler struct {
	svc         service.SeleccionService
	institucion string
}

func NewOrdenesHandler(svc service.SeleccionService, institucion string) *OrdenesHandler {
	return &OrdenesHandler{svc: svc, institucion: institucion}
}

// EnviarSeleccion godoc
// @Summary Envia la seleccion de ganadores por partida
// @Description Todo o nada: si un par es invalido no se marca ningun ganador.
// @Tags ordenes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID de requisicion"
// @Param body body dto.EnviarSeleccionRequest true "Pares partida/proveedor"
// @Success 200 {object} dto.TransicionResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/requisiciones/{id}/seleccion [post]
func (h *OrdenesHandler) EnviarSeleccion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.EnviarSeleccionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.EnviarSeleccion(c.Request.Context(), middleware.GetActor(c), id, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GuardarOrdenMeta godoc
// @Summary Guarda folio e IVA de la orden de un proveedor ganador
// @Tags ordenes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID de requisicion"
// @Param proveedor_id path int true "ID de proveedor"
// @Param body body dto.OrdenMetaRequest true "Datos de la orden"
// @Success 200 {object} dto.OrdenMetaResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/requisiciones/{id}/ordenes/{proveedor_id} [put]
func (h *OrdenesHandler) GuardarOrdenMeta(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	proveedorID, ok := paramID(c, "proveedor_id")
	if !ok {
		return
	}
	var req dto.OrdenMetaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.GuardarOrdenMeta(c.Request.Context(), middleware.GetActor(c), id, proveedorID, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ResumenOrdenes godoc
// @Summary Resumen de ordenes de compra por proveedor ganador
// @Tags ordenes
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID de requisicion"
// @Success 200 {object} dto.OrdenesResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/requisiciones/{id}/ordenes [get]
func (h *OrdenesHandler) ResumenOrdenes(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ResumenOrdenes(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// OrdenPDF godoc
// @Summary Descarga la orden de compra de un proveedor en PDF
// @Description Se rechaza mientras la orden no tenga folio.
// @Tags ordenes
// @Produce application/pdf
// @Security BearerAuth
// @Param id path int true "ID de requisicion"
// @Param proveedor_id path int true "ID de proveedor"
// @Success 200 {file} binary
// @Failure 404 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/requisiciones/{id}/ordenes/{proveedor_id}/pdf [get]
func (h *OrdenesHandler) OrdenPDF(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	proveedorID, ok := paramID(c, "proveedor_id")
	if !ok {
		return
	}
	resp, err := h.svc.OrdenParaDocumento(c.Request.Context(), middleware.GetActor(c), id, proveedorID)
	if err != nil {
		responderError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := infra.GenerateOrdenPDF(resp, h.institucion, &buf); err != nil {
		responderError(c, fmt.Errorf("generar orden pdf: %w", err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="orden_%s_%d.pdf"`, resp.Folio, proveedorID))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// MarcarComprada godoc
// @Summary Marca la requisicion como comprada
// @Description Exige folio en todas las ordenes de proveedores ganadores.
// @Tags ordenes
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID de requisicion"
// @Success 200 {object} dto.TransicionResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/requisiciones/{id}/comprada [post]
func (h *OrdenesHandler) MarcarComprada(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.MarcarComprada(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
