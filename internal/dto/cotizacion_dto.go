package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type InvitarProveedoresRequest struct {
	ProveedorIDs []uint     `json:"proveedor_ids" validate:"required,min=1,dive,gt=0"`
	FechaLimite  *time.Time `json:"fecha_limite"`
}

// CeldaPrecioInput is one (partida, proveedor) offer. A cell without a price
// and without a description is ignored.
type CeldaPrecioInput struct {
	PartidaID           uint             `json:"partida_id"   validate:"required"`
	ProveedorID         uint             `json:"proveedor_id" validate:"required"`
	PrecioUnitario      *decimal.Decimal `json:"precio_unitario"`
	DescripcionOfrecida *string          `json:"descripcion_ofrecida"`
	Notas               *string          `json:"notas"`
}

type GuardarPreciosRequest struct {
	Celdas []CeldaPrecioInput `json:"celdas" validate:"required,min=1,dive"`
}

type CerrarCotizacionRequest struct {
	Nota *string `json:"nota" validate:"omitempty,max=2000"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SolicitudResponse struct {
	ProveedorID  uint       `json:"proveedor_id"`
	RazonSocial  string     `json:"razon_social,omitempty"`
	Estado       string     `json:"estado"`
	InvitadoEn   *time.Time `json:"invitado_en,omitempty"`
	RespondidoEn *time.Time `json:"respondido_en,omitempty"`
	FechaLimite  *time.Time `json:"fecha_limite,omitempty"`
}

type InvitacionResponse struct {
	RequisicionID uint                `json:"requisicion_id"`
	Estado        int                 `json:"estado"`
	Solicitudes   []SolicitudResponse `json:"solicitudes"`
}

type GuardarPreciosResponse struct {
	RequisicionID uint   `json:"requisicion_id"`
	Guardadas     int    `json:"guardadas"`
	Descartadas   int    `json:"descartadas"`
	Respondieron  []uint `json:"respondieron"`
}

// CierreResponse reports the close/reopen outcome. Afectadas is the number
// of invitations that expired on close.
type CierreResponse struct {
	RequisicionID       uint       `json:"requisicion_id"`
	Estado              int        `json:"estado"`
	CotizacionCerradaEn *time.Time `json:"cotizacion_cerrada_en"`
	Afectadas           int64      `json:"afectadas"`
	SinCambios          bool       `json:"sin_cambios"`
}

type ProveedorColumna struct {
	ProveedorID uint   `json:"proveedor_id"`
	RazonSocial string `json:"razon_social"`
	Estado      string `json:"estado"`
}

type CeldaComparativo struct {
	ProveedorID         uint             `json:"proveedor_id"`
	PrecioUnitario      *decimal.Decimal `json:"precio_unitario,omitempty"`
	Importe             *decimal.Decimal `json:"importe,omitempty"`
	DescripcionOfrecida *string          `json:"descripcion_ofrecida,omitempty"`
	Notas               *string          `json:"notas,omitempty"`
	EsGanador           bool             `json:"es_ganador"`
	EsMenor             bool             `json:"es_menor"`
}

type FilaComparativo struct {
	PartidaID uint               `json:"partida_id"`
	Producto  string             `json:"producto"`
	Cantidad  decimal.Decimal    `json:"cantidad"`
	Celdas    []CeldaComparativo `json:"celdas"`
}

// ComparativoResponse is the line item × provider quotation matrix.
type ComparativoResponse struct {
	RequisicionID uint               `json:"requisicion_id"`
	Folio         string             `json:"folio"`
	Estado        int                `json:"estado"`
	Cerrada       bool               `json:"cerrada"`
	Proveedores   []ProveedorColumna `json:"proveedores"`
	Filas         []FilaComparativo  `json:"filas"`
}
