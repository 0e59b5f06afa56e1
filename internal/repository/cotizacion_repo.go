package repository

import (
	"context"
	"time"

	"requisiciones/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CotizacionRepository stores invitations and price cells. Writes are plain
// upserts by composite key; the merge rules live in the service layer.
type CotizacionRepository interface {
	FindSolicitudesTx(ctx context.Context, tx *gorm.DB, requisicionID uint) ([]model.SolicitudCotizacion, error)
	SaveSolicitudTx(ctx context.Context, tx *gorm.DB, s *model.SolicitudCotizacion) error
	// ExpirarInvitadasTx flips every still-invited row to expired.
	ExpirarInvitadasTx(ctx context.Context, tx *gorm.DB, requisicionID uint, ahora time.Time) (int64, error)
	FindPreciosTx(ctx context.Context, tx *gorm.DB, requisicionID uint) ([]model.PrecioCotizacion, error)
	SavePrecioTx(ctx context.Context, tx *gorm.DB, p *model.PrecioCotizacion) error
	CountPreciosTx(ctx context.Context, tx *gorm.DB, requisicionID uint) (int64, error)
	LimpiarGanadoresTx(ctx context.Context, tx *gorm.DB, requisicionID, partidaID uint) error
	MarcarGanadorTx(ctx context.Context, tx *gorm.DB, requisicionID, partidaID, proveedorID uint) (int64, error)
}

type cotizacionRepo struct{ db *gorm.DB }

func NewCotizacionRepository(db *gorm.DB) CotizacionRepository { return &cotizacionRepo{db: db} }

func (r *cotizacionRepo) FindSolicitudesTx(ctx context.Context, tx *gorm.DB, requisicionID uint) ([]model.SolicitudCotizacion, error) {
	var rows []model.SolicitudCotizacion
	err := conn(ctx, r.db, tx).
		Where("requisicion_id = ?", requisicionID).
		Order("proveedor_id ASC").
		Preload("Proveedor").
		Find(&rows).Error
	return rows, err
}

func (r *cotizacionRepo) SaveSolicitudTx(ctx context.Context, tx *gorm.DB, s *model.SolicitudCotizacion) error {
	return conn(ctx, r.db, tx).
		Omit("Proveedor").
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(s).Error
}

func (r *cotizacionRepo) ExpirarInvitadasTx(ctx context.Context, tx *gorm.DB, requisicionID uint, ahora time.Time) (int64, error) {
	res := conn(ctx, r.db, tx).Model(&model.SolicitudCotizacion{}).
		Where("requisicion_id = ? AND estado = ?", requisicionID, model.InvitacionInvitado).
		Updates(map[string]interface{}{"estado": model.InvitacionExpirado, "updated_at": ahora})
	return res.RowsAffected, res.Error
}

func (r *cotizacionRepo) FindPreciosTx(ctx context.Context, tx *gorm.DB, requisicionID uint) ([]model.PrecioCotizacion, error) {
	var rows []model.PrecioCotizacion
	err := conn(ctx, r.db, tx).
		Where("requisicion_id = ?", requisicionID).
		Order("partida_id ASC, proveedor_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *cotizacionRepo) SavePrecioTx(ctx context.Context, tx *gorm.DB, p *model.PrecioCotizacion) error {
	// The winner flag is owned by the selection protocol; price saves never touch it.
	return conn(ctx, r.db, tx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "requisicion_id"}, {Name: "partida_id"}, {Name: "proveedor_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"precio_unitario", "descripcion_ofrecida", "notas", "updated_at",
			}),
		}).
		Create(p).Error
}

func (r *cotizacionRepo) CountPreciosTx(ctx context.Context, tx *gorm.DB, requisicionID uint) (int64, error) {
	var n int64
	err := conn(ctx, r.db, tx).Model(&model.PrecioCotizacion{}).
		Where("requisicion_id = ?", requisicionID).
		Count(&n).Error
	return n, err
}

func (r *cotizacionRepo) LimpiarGanadoresTx(ctx context.Context, tx *gorm.DB, requisicionID, partidaID uint) error {
	return conn(ctx, r.db, tx).Model(&model.PrecioCotizacion{}).
		Where("requisicion_id = ? AND partida_id = ? AND es_ganador = true", requisicionID, partidaID).
		Update("es_ganador", false).Error
}

func (r *cotizacionRepo) MarcarGanadorTx(ctx context.Context, tx *gorm.DB, requisicionID, partidaID, proveedorID uint) (int64, error) {
	res := conn(ctx, r.db, tx).Model(&model.PrecioCotizacion{}).
		Where("requisicion_id = ? AND partida_id = ? AND proveedor_id = ?", requisicionID, partidaID, proveedorID).
		Update("es_ganador", true)
	return res.RowsAffected, res.Error
}
