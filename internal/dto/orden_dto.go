package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type SeleccionInput struct {
	PartidaID   uint `json:"partida_id"   validate:"required"`
	ProveedorID uint `json:"proveedor_id" validate:"required"`
}

type EnviarSeleccionRequest struct {
	Selecciones []SeleccionInput `json:"selecciones" validate:"required,min=1,dive"`
}

// OrdenMetaRequest captures the purchase-order data for one winning provider.
// PorcentajeIVA must be omitted when IncluyeIVA is false.
type OrdenMetaRequest struct {
	Folio         string           `json:"folio"          validate:"max=40"`
	IncluyeIVA    bool             `json:"incluye_iva"`
	PorcentajeIVA *decimal.Decimal `json:"porcentaje_iva"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type OrdenMetaResponse struct {
	RequisicionID uint             `json:"requisicion_id"`
	ProveedorID   uint             `json:"proveedor_id"`
	Folio         string           `json:"folio"`
	IncluyeIVA    bool             `json:"incluye_iva"`
	PorcentajeIVA *decimal.Decimal `json:"porcentaje_iva"`
}

type OrdenPartida struct {
	PartidaID   uint            `json:"partida_id"`
	Producto    string          `json:"producto"`
	Descripcion *string         `json:"descripcion,omitempty"`
	Cantidad    decimal.Decimal `json:"cantidad"`
	// nil when the winning offer carried no unit price
	PrecioUnitario *decimal.Decimal `json:"precio_unitario"`
	Importe        decimal.Decimal  `json:"importe"`
}

// OrdenResumen is the data handed to the order document renderer.
type OrdenResumen struct {
	ProveedorID   uint             `json:"proveedor_id"`
	RazonSocial   string           `json:"razon_social"`
	RFC           string           `json:"rfc"`
	Folio         string           `json:"folio"`
	IncluyeIVA    bool             `json:"incluye_iva"`
	PorcentajeIVA *decimal.Decimal `json:"porcentaje_iva,omitempty"`
	Partidas      []OrdenPartida   `json:"partidas"`
	SinPrecio     []uint           `json:"sin_precio,omitempty"`
	Subtotal      decimal.Decimal  `json:"subtotal"`
	IVA           decimal.Decimal  `json:"iva"`
	Total         decimal.Decimal  `json:"total"`
}

type OrdenesResponse struct {
	RequisicionID uint           `json:"requisicion_id"`
	Folio         string         `json:"folio"`
	Nombre        string         `json:"nombre"`
	TipoOrden     string         `json:"tipo_orden"`
	Estado        int            `json:"estado"`
	Ordenes       []OrdenResumen `json:"ordenes"`
}
