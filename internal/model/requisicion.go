package model

import (
	"time"

	"requisiciones/internal/workflow"

	"github.com/shopspring/decimal"
)

// TipoOrden: "compra" | "servicio"
const (
	TipoOrdenCompra   = "compra"
	TipoOrdenServicio = "servicio"
)

// Requisicion is a purchase or service request moving through the approval
// pipeline. Estado only changes through the transition engine.
type Requisicion struct {
	ID            uint   `gorm:"primaryKey"`
	Folio         string `gorm:"type:varchar(20);uniqueIndex;not null"`
	Nombre        string `gorm:"not null"`
	Justificacion string `gorm:"type:text;not null"`
	Observaciones *string
	CreadorID     uint   `gorm:"not null;index"`
	UREID         uint   `gorm:"column:ure_id;not null;index"`
	CategoriaID   *uint  `gorm:"index"`
	TipoOrden     string `gorm:"type:varchar(20);not null;default:'compra'"`
	// OperadorID is the purchasing agent in charge; nil until an admin assigns one
	OperadorID *uint           `gorm:"index"`
	Estado     workflow.Estado `gorm:"not null;index;default:7"`
	// CotizacionCerradaEn is set when the quotation reception closes and
	// cleared by a reopen.
	CotizacionCerradaEn *time.Time
	NotaCierre          *string
	MotivoRechazo       *string
	CreatedAt           time.Time
	UpdatedAt           time.Time

	Partidas []Partida `gorm:"foreignKey:RequisicionID"`
}

func (Requisicion) TableName() string { return "requisiciones" }

// Propiedad returns the ownership data the workflow guards need.
func (r *Requisicion) Propiedad() workflow.Propiedad {
	return workflow.Propiedad{
		CreadorID:  r.CreadorID,
		UREID:      r.UREID,
		OperadorID: r.OperadorID,
	}
}

// CotizacionCerrada reports whether the reception window is closed.
func (r *Requisicion) CotizacionCerrada() bool {
	return r.CotizacionCerradaEn != nil
}

// Partida is one requested product or service line. Owned exclusively by a
// Requisicion; replaced only while the requisition is a draft.
type Partida struct {
	ID            uint            `gorm:"primaryKey"`
	RequisicionID uint            `gorm:"not null;index"`
	Producto      string          `gorm:"not null"`
	Descripcion   *string         `gorm:"type:text"`
	Cantidad      decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	UnidadID      *uint
	CreatedAt     time.Time
}

func (Partida) TableName() string { return "partidas" }
