package model

import "time"

// Proveedor is an external vendor that can be invited to quote.
// Provider administration lives outside this service; rows are read-only here.
type Proveedor struct {
	ID          uint   `gorm:"primaryKey"`
	RazonSocial string `gorm:"not null"`
	RFC         string `gorm:"column:rfc;uniqueIndex;not null"`
	Email       *string
	Telefono    *string
	Activo      bool `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Proveedor) TableName() string { return "proveedores" }
