package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estado de una invitación: "invitado" | "respondido" | "expirado" | "declinado"
const (
	InvitacionInvitado   = "invitado"
	InvitacionRespondido = "respondido"
	InvitacionExpirado   = "expirado"
	InvitacionDeclinado  = "declinado"
)

// SolicitudCotizacion is the invitation of one provider to quote one
// requisition. At most one row per (requisicion, proveedor).
type SolicitudCotizacion struct {
	RequisicionID uint   `gorm:"primaryKey;autoIncrement:false"`
	ProveedorID   uint   `gorm:"primaryKey;autoIncrement:false"`
	Estado        string `gorm:"type:varchar(20);not null;default:'invitado'"`
	InvitadoEn    *time.Time
	RespondidoEn  *time.Time
	FechaLimite   *time.Time
	UpdatedAt     time.Time

	Proveedor *Proveedor `gorm:"foreignKey:ProveedorID"`
}

func (SolicitudCotizacion) TableName() string { return "solicitudes_cotizacion" }

// PrecioCotizacion is one cell of the quotation matrix: the offer of one
// provider for one line item. Never persisted without a price or description.
type PrecioCotizacion struct {
	RequisicionID       uint                `gorm:"primaryKey;autoIncrement:false"`
	PartidaID           uint                `gorm:"primaryKey;autoIncrement:false"`
	ProveedorID         uint                `gorm:"primaryKey;autoIncrement:false"`
	PrecioUnitario      decimal.NullDecimal `gorm:"type:decimal(14,4)"`
	DescripcionOfrecida *string             `gorm:"type:text"`
	Notas               *string             `gorm:"type:text"`
	// EsGanador is true for at most one provider per (requisicion, partida)
	EsGanador bool `gorm:"not null;default:false"`
	UpdatedAt time.Time
}

func (PrecioCotizacion) TableName() string { return "precios_cotizacion" }

// SeleccionGanador snapshots the winning offer of a line item at selection
// time. Exists only once the requisition reached the purchase process.
// PrecioUnitario is null when the winning offer was quoted by description only.
type SeleccionGanador struct {
	RequisicionID  uint                `gorm:"primaryKey;autoIncrement:false"`
	PartidaID      uint                `gorm:"primaryKey;autoIncrement:false"`
	ProveedorID    uint                `gorm:"not null;index"`
	PrecioUnitario decimal.NullDecimal `gorm:"type:decimal(14,4)"`
	Descripcion    *string             `gorm:"type:text"`
	CreatedAt      time.Time
}

func (SeleccionGanador) TableName() string { return "selecciones_ganador" }
