package model

import "time"

// Usuario is a person acting on requisitions. Accounts are managed by the
// identity service; this table is only read to address notifications.
// Rol: "solicitante" | "coordinador" | "secretario" | "compras" | "admin_compras"
type Usuario struct {
	ID     uint   `gorm:"primaryKey"`
	Nombre string `gorm:"not null"`
	Email  *string
	Rol    string `gorm:"type:varchar(20);not null"`
	// UREID scopes coordinators and secretaries; nil = all units
	UREID     *uint `gorm:"column:ure_id"`
	Activo    bool  `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Usuario) TableName() string { return "usuarios" }
