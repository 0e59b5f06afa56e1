package model

import (
	"time"

	"requisiciones/internal/workflow"

	"gorm.io/datatypes"
)

// HistorialEstado records every applied status change, close and reopen.
// Rows are immutable; they are never updated or deleted.
type HistorialEstado struct {
	ID             uint            `gorm:"primaryKey"`
	RequisicionID  uint            `gorm:"not null;index"`
	EstadoAnterior workflow.Estado `gorm:"not null"`
	EstadoNuevo    workflow.Estado `gorm:"not null"`
	// Accion: "transicion" | "cierre_cotizacion" | "reapertura_cotizacion" | "asignacion"
	Accion     string `gorm:"type:varchar(30);not null"`
	ActorID    uint   `gorm:"not null"`
	ActorRol   string `gorm:"type:varchar(20);not null"`
	Comentario *string
	// Detalle is a free-form JSON snapshot (affected rows, providers, folios)
	Detalle   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time
}

func (HistorialEstado) TableName() string { return "historial_estados" }
