package repository

import (
	"context"

	"requisiciones/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrdenRepository interface {
	ReplaceSeleccionesTx(ctx context.Context, tx *gorm.DB, requisicionID uint, sel []model.SeleccionGanador) error
	ListSeleccionesTx(ctx context.Context, tx *gorm.DB, requisicionID uint) ([]model.SeleccionGanador, error)
	FindOrdenMetasTx(ctx context.Context, tx *gorm.DB, requisicionID uint) ([]model.OrdenCompraMeta, error)
	SaveOrdenMetaTx(ctx context.Context, tx *gorm.DB, m *model.OrdenCompraMeta) error
}

type ordenRepo struct{ db *gorm.DB }

func NewOrdenRepository(db *gorm.DB) OrdenRepository { return &ordenRepo{db: db} }

func (r *ordenRepo) ReplaceSeleccionesTx(ctx context.Context, tx *gorm.DB, requisicionID uint, sel []model.SeleccionGanador) error {
	db := conn(ctx, r.db, tx)
	if err := db.Where("requisicion_id = ?", requisicionID).Delete(&model.SeleccionGanador{}).Error; err != nil {
		return err
	}
	if len(sel) == 0 {
		return nil
	}
	return db.Create(&sel).Error
}

func (r *ordenRepo) ListSeleccionesTx(ctx context.Context, tx *gorm.DB, requisicionID uint) ([]model.SeleccionGanador, error) {
	var rows []model.SeleccionGanador
	err := conn(ctx, r.db, tx).
		Where("requisicion_id = ?", requisicionID).
		Order("proveedor_id ASC, partida_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *ordenRepo) FindOrdenMetasTx(ctx context.Context, tx *gorm.DB, requisicionID uint) ([]model.OrdenCompraMeta, error) {
	var rows []model.OrdenCompraMeta
	err := conn(ctx, r.db, tx).Where("requisicion_id = ?", requisicionID).Find(&rows).Error
	return rows, err
}

func (r *ordenRepo) SaveOrdenMetaTx(ctx context.Context, tx *gorm.DB, m *model.OrdenCompraMeta) error {
	return conn(ctx, r.db, tx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "requisicion_id"}, {Name: "proveedor_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"folio", "incluye_iva", "porcentaje_iva", "updated_at"}),
		}).
		Create(m).Error
}
