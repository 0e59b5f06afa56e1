package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrdenCompraMeta holds the purchase-order data captured per winning provider.
// PorcentajeIVA is nil whenever IncluyeIVA is false.
type OrdenCompraMeta struct {
	RequisicionID uint             `gorm:"primaryKey;autoIncrement:false"`
	ProveedorID   uint             `gorm:"primaryKey;autoIncrement:false"`
	Folio         string           `gorm:"type:varchar(40);not null;default:''"`
	IncluyeIVA    bool             `gorm:"column:incluye_iva;not null;default:false"`
	PorcentajeIVA *decimal.Decimal `gorm:"column:porcentaje_iva;type:decimal(5,2)"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (OrdenCompraMeta) TableName() string { return "ordenes_compra_meta" }
