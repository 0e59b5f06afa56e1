package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type PartidaInput struct {
	Producto    string          `json:"producto"    validate:"required,min=1"`
	Descripcion *string         `json:"descripcion"`
	Cantidad    decimal.Decimal `json:"cantidad"    validate:"required,gt=0"`
	UnidadID    *uint           `json:"unidad_id"`
}

type CrearRequisicionRequest struct {
	Nombre        string         `json:"nombre"         validate:"required,min=3"`
	Justificacion string         `json:"justificacion"  validate:"required,min=3"`
	Observaciones *string        `json:"observaciones"`
	UREID         uint           `json:"ure_id"         validate:"required"`
	CategoriaID   *uint          `json:"categoria_id"`
	TipoOrden     string         `json:"tipo_orden"     validate:"required,oneof=compra servicio"`
	Partidas      []PartidaInput `json:"partidas"       validate:"required,min=1,dive"`
}

type ReemplazarPartidasRequest struct {
	Partidas []PartidaInput `json:"partidas" validate:"required,min=1,dive"`
}

type AvanzarEstadoRequest struct {
	Estado     int    `json:"estado"     validate:"required"`
	Comentario string `json:"comentario" validate:"max=2000"`
}

type AsignarOperadorRequest struct {
	OperadorID uint `json:"operador_id" validate:"required"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type PartidaResponse struct {
	ID          uint            `json:"id"`
	Producto    string          `json:"producto"`
	Descripcion *string         `json:"descripcion,omitempty"`
	Cantidad    decimal.Decimal `json:"cantidad"`
	UnidadID    *uint           `json:"unidad_id,omitempty"`
}

type RequisicionResponse struct {
	ID                  uint                `json:"id"`
	Folio               string              `json:"folio"`
	Nombre              string              `json:"nombre"`
	Justificacion       string              `json:"justificacion"`
	Observaciones       *string             `json:"observaciones,omitempty"`
	CreadorID           uint                `json:"creador_id"`
	UREID               uint                `json:"ure_id"`
	CategoriaID         *uint               `json:"categoria_id,omitempty"`
	TipoOrden           string              `json:"tipo_orden"`
	OperadorID          *uint               `json:"operador_id,omitempty"`
	Estado              int                 `json:"estado"`
	EstadoNombre        string              `json:"estado_nombre"`
	CotizacionCerradaEn *time.Time          `json:"cotizacion_cerrada_en,omitempty"`
	NotaCierre          *string             `json:"nota_cierre,omitempty"`
	MotivoRechazo       *string             `json:"motivo_rechazo,omitempty"`
	Siguientes          []int               `json:"siguientes"`
	Partidas            []PartidaResponse   `json:"partidas"`
	Solicitudes         []SolicitudResponse `json:"solicitudes,omitempty"`
	Historial           []HistorialResponse `json:"historial,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
}

// TransicionResponse is returned by every operation that may move the status.
// SinCambios is true when the call was an idempotent no-op.
type TransicionResponse struct {
	RequisicionID  uint   `json:"requisicion_id"`
	EstadoAnterior int    `json:"estado_anterior"`
	Estado         int    `json:"estado"`
	EstadoNombre   string `json:"estado_nombre"`
	SinCambios     bool   `json:"sin_cambios"`
}

type HistorialResponse struct {
	EstadoAnterior int            `json:"estado_anterior"`
	EstadoNuevo    int            `json:"estado_nuevo"`
	Accion         string         `json:"accion"`
	ActorID        uint           `json:"actor_id"`
	ActorRol       string         `json:"actor_rol"`
	Comentario     *string        `json:"comentario,omitempty"`
	Detalle        map[string]any `json:"detalle,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
